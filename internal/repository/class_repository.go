package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sams-edu/attendance-api/internal/models"
)

// ClassRepository provides database access for class offerings.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classDetailQuery = `SELECT c.id, c.course_id, c.faculty_id, c.section, c.schedule, c.room, c.created_at,
	co.code AS course_code, co.name AS course_name, u.full_name AS faculty_name
FROM classes c
JOIN courses co ON co.id = c.course_id
JOIN faculty f ON f.id = c.faculty_id
JOIN users u ON u.id = f.user_id`

// Create inserts a class offering.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (id, course_id, faculty_id, section, schedule, room, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, class.ID, class.CourseID, class.FacultyID, class.Section, class.Schedule, class.Room, class.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, course_id, faculty_id, section, schedule, room, created_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindDetailByID returns a class joined with its course and faculty names.
func (r *ClassRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	var class models.ClassDetail
	if err := r.db.GetContext(ctx, &class, classDetailQuery+` WHERE c.id = $1`, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListBySection returns every class offered to a section. The conflict checker
// scans these when a new class is proposed.
func (r *ClassRepository) ListBySection(ctx context.Context, section string) ([]models.ClassDetail, error) {
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, classDetailQuery+` WHERE c.section = $1 ORDER BY co.code`, section); err != nil {
		return nil, fmt.Errorf("list classes by section: %w", err)
	}
	return classes, nil
}

// ListByFaculty returns every class owned by a faculty member.
func (r *ClassRepository) ListByFaculty(ctx context.Context, facultyID string) ([]models.ClassDetail, error) {
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, classDetailQuery+` WHERE c.faculty_id = $1 ORDER BY co.code`, facultyID); err != nil {
		return nil, fmt.Errorf("list classes by faculty: %w", err)
	}
	return classes, nil
}

// List returns all classes.
func (r *ClassRepository) List(ctx context.Context) ([]models.ClassDetail, error) {
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, classDetailQuery+` ORDER BY co.code, c.section`); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// DeleteCascade removes a class and its dependent rows in one transaction.
func (r *ClassRepository) DeleteCascade(ctx context.Context, classID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete class: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM classes WHERE id = $1)`, classID); err != nil {
		return fmt.Errorf("check class: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	if err := deleteClassGraphTx(ctx, tx, classID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete class: %w", err)
	}
	committed = true
	return nil
}

// deleteClassGraphTx removes one class and everything hanging off it inside an
// existing transaction: attendance marks, sessions, enrollments, then the
// class row itself. Shared by the class, course and user cascades.
func deleteClassGraphTx(ctx context.Context, tx *sqlx.Tx, classID string) error {
	steps := []string{
		`DELETE FROM attendance WHERE session_id IN (SELECT id FROM attendance_sessions WHERE class_id = $1)`,
		`DELETE FROM attendance_sessions WHERE class_id = $1`,
		`DELETE FROM enrollments WHERE class_id = $1`,
		`DELETE FROM classes WHERE id = $1`,
	}
	for _, query := range steps {
		if _, err := tx.ExecContext(ctx, query, classID); err != nil {
			return fmt.Errorf("cascade class delete: %w", err)
		}
	}
	return nil
}
