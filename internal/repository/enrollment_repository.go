package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sams-edu/attendance-api/internal/models"
)

// EnrollmentRepository provides database access for student-class enrollment.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new instance of EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create enrolls a student in a class. The unique index on
// (student_id, class_id) surfaces a repeat enrollment as ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, class_id, enrolled_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, enrollment.ID, enrollment.StudentID, enrollment.ClassID, enrollment.EnrolledAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// Delete removes a single enrollment along with the student's marks in that
// class, in one transaction.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, classID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete enrollment: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const deleteMarks = `DELETE FROM attendance
WHERE student_id = $1 AND session_id IN (SELECT id FROM attendance_sessions WHERE class_id = $2)`
	if _, err := tx.ExecContext(ctx, deleteMarks, studentID, classID); err != nil {
		return fmt.Errorf("delete enrollment marks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1 AND class_id = $2`, studentID, classID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete enrollment: %w", err)
	}
	committed = true
	return nil
}

// Exists reports whether a student is enrolled in a class.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, classID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, studentID, classID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// ListByClass returns the roster of a class ordered by student code.
func (r *EnrollmentRepository) ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.class_id, e.enrolled_at,
	s.student_code, u.full_name AS student_name
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN users u ON u.id = s.user_id
WHERE e.class_id = $1
ORDER BY s.student_code`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, classID); err != nil {
		return nil, fmt.Errorf("list enrollments by class: %w", err)
	}
	return enrollments, nil
}

// ListClassesByStudent returns the classes a student is enrolled in.
func (r *EnrollmentRepository) ListClassesByStudent(ctx context.Context, studentID string) ([]models.ClassDetail, error) {
	query := classDetailQuery + `
JOIN enrollments e ON e.class_id = c.id
WHERE e.student_id = $1
ORDER BY co.code`
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, studentID); err != nil {
		return nil, fmt.Errorf("list classes by student: %w", err)
	}
	return classes, nil
}
