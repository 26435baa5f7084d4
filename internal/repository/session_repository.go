package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sams-edu/attendance-api/internal/models"
)

// SessionRepository provides database access for attendance sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, class_id, date, start_time, end_time, created_by, created_at,
	is_active, is_finalized, finalized_at, finalized_by`

// Create inserts a session row.
func (r *SessionRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_sessions
	(id, class_id, date, start_time, end_time, created_by, created_at, is_active, is_finalized)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)`
	if _, err := r.db.ExecContext(ctx, query, session.ID, session.ClassID, session.Date, session.StartTime, session.EndTime, session.CreatedBy, session.CreatedAt, session.Active); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindByID returns a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE id = $1`, sessionColumns)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByClass returns a class's sessions newest first.
func (r *SessionRepository) ListByClass(ctx context.Context, classID string) ([]models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE class_id = $1 ORDER BY date DESC, start_time DESC`, sessionColumns)
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query, classID); err != nil {
		return nil, fmt.Errorf("list sessions by class: %w", err)
	}
	return sessions, nil
}

// Finalize flips the finalized flag if and only if the session is not already
// finalized. The WHERE guard makes concurrent finalize attempts race-safe: the
// loser sees zero rows affected and false is returned.
func (r *SessionRepository) Finalize(ctx context.Context, sessionID, finalizedBy string, finalizedAt time.Time) (bool, error) {
	const query = `UPDATE attendance_sessions
SET is_finalized = TRUE, is_active = FALSE, finalized_at = $2, finalized_by = $3
WHERE id = $1 AND is_finalized = FALSE`
	result, err := r.db.ExecContext(ctx, query, sessionID, finalizedAt, finalizedBy)
	if err != nil {
		return false, fmt.Errorf("finalize session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finalize session rows: %w", err)
	}
	return rows > 0, nil
}

// SetActive toggles whether a session currently accepts self check-in.
func (r *SessionRepository) SetActive(ctx context.Context, sessionID string, active bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE attendance_sessions SET is_active = $2 WHERE id = $1`, sessionID, active); err != nil {
		return fmt.Errorf("set session active: %w", err)
	}
	return nil
}
