package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sams-edu/attendance-api/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_sessions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.AttendanceSession{
		ClassID:   "class-1",
		Date:      time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		StartTime: models.MustClock("09:00"),
		EndTime:   models.MustClock("10:00"),
		CreatedBy: "user-fac",
		Active:    true,
	}
	require.NoError(t, repo.Create(context.Background(), session))
	require.NotEmpty(t, session.ID)

	rows := sqlmock.NewRows([]string{"id", "class_id", "date", "start_time", "end_time", "created_by", "created_at", "is_active", "is_finalized", "finalized_at", "finalized_by"}).
		AddRow(session.ID, "class-1", session.Date, "09:00:00", "10:00:00", "user-fac", time.Now(), true, false, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, date, start_time, end_time")).
		WithArgs(session.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, models.MustClock("09:00"), found.StartTime)
	require.False(t, found.Finalized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFinalizeWinner(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	finalizedAt := time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_sessions")).
		WithArgs("sess-1", finalizedAt, "user-fac").
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.Finalize(context.Background(), "sess-1", "user-fac", finalizedAt)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFinalizeLoser(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	finalizedAt := time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC)
	// Another finalize already flipped the flag: the guarded UPDATE matches
	// zero rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_sessions")).
		WithArgs("sess-1", finalizedAt, "user-fac").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.Finalize(context.Background(), "sess-1", "user-fac", finalizedAt)
	require.NoError(t, err)
	require.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_sessions SET is_active")).
		WithArgs("sess-1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetActive(context.Background(), "sess-1", false))
	require.NoError(t, mock.ExpectationsWereMet())
}
