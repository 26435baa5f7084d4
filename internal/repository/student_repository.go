package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sams-edu/attendance-api/internal/models"
)

// StudentRepository provides database access for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailQuery = `SELECT s.id, s.user_id, s.student_code, s.department, s.year, s.section,
	s.parent_email, s.parent_phone, u.full_name, u.email
FROM students s
JOIN users u ON u.id = s.user_id`

// FindByID returns a student profile with user details.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, studentDetailQuery+` WHERE s.id = $1`, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID returns the student profile owned by a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT id, user_id, student_code, department, year, section, parent_email, parent_phone
FROM students WHERE user_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListBySection returns every student in a (department, year, section) cohort
// ordered by student code.
func (r *StudentRepository) ListBySection(ctx context.Context, department string, year int, section string) ([]models.StudentDetail, error) {
	query := studentDetailQuery + ` WHERE s.department = $1 AND s.year = $2 AND s.section = $3 ORDER BY s.student_code`
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, department, year, section); err != nil {
		return nil, fmt.Errorf("list students by section: %w", err)
	}
	return students, nil
}

// CountBySection returns the cohort size for a (department, year, section)
// triple. The conflict checker refuses classes for empty cohorts.
func (r *StudentRepository) CountBySection(ctx context.Context, department string, year int, section string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM students WHERE department = $1 AND year = $2 AND section = $3`
	if err := r.db.GetContext(ctx, &count, query, department, year, section); err != nil {
		return 0, fmt.Errorf("count students by section: %w", err)
	}
	return count, nil
}

// List returns student profiles based on filters with total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("s.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("s.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("s.section = $%d", len(args)+1))
		args = append(args, filter.Section)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(s.student_code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`%s%s ORDER BY s.student_code LIMIT %d OFFSET %d`, studentDetailQuery, base, size, (page-1)*size)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM students s JOIN users u ON u.id = s.user_id` + base
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}
