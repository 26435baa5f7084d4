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

// CourseRepository provides database access for the course catalogue.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new instance of CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, code, name, department, credits, year, semester, created_at`

// Create inserts a course. A duplicate course code surfaces as ErrDuplicate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO courses (id, code, name, department, credits, year, semester, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, course.ID, course.Code, course.Name, course.Department, course.Credits, course.Year, course.Semester, course.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns all courses, optionally restricted to a department.
func (r *CourseRepository) List(ctx context.Context, department string) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses`, courseColumns)
	var args []interface{}
	if department != "" {
		query += ` WHERE department = $1`
		args = append(args, department)
	}
	query += ` ORDER BY code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// DeleteCascade removes a course and every class built on it, leaf records
// first, in one transaction.
func (r *CourseRepository) DeleteCascade(ctx context.Context, courseID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete course: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, courseID); err != nil {
		return fmt.Errorf("check course: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}

	var classIDs []string
	if err := tx.SelectContext(ctx, &classIDs, `SELECT id FROM classes WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("list course classes: %w", err)
	}
	for _, classID := range classIDs {
		if err := deleteClassGraphTx(ctx, tx, classID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, courseID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete course: %w", err)
	}
	committed = true
	return nil
}
