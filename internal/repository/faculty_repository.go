package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sams-edu/attendance-api/internal/models"
)

// FacultyRepository provides database access for faculty profiles.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new instance of FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

const facultyDetailQuery = `SELECT f.id, f.user_id, f.faculty_code, f.department, f.designation,
	u.full_name, u.email
FROM faculty f
JOIN users u ON u.id = f.user_id`

// FindByID returns a faculty profile with user details.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	var faculty models.FacultyDetail
	if err := r.db.GetContext(ctx, &faculty, facultyDetailQuery+` WHERE f.id = $1`, id); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// FindByUserID returns the faculty profile owned by a user account.
func (r *FacultyRepository) FindByUserID(ctx context.Context, userID string) (*models.Faculty, error) {
	const query = `SELECT id, user_id, faculty_code, department, designation FROM faculty WHERE user_id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, userID); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// List returns all faculty profiles ordered by code.
func (r *FacultyRepository) List(ctx context.Context) ([]models.FacultyDetail, error) {
	var faculty []models.FacultyDetail
	if err := r.db.SelectContext(ctx, &faculty, facultyDetailQuery+` ORDER BY f.faculty_code`); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	return faculty, nil
}
