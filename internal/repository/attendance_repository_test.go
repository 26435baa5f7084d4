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

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryUpsertInsert(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mark := &models.Attendance{
		SessionID: "sess-1",
		StudentID: "stu-1",
		Status:    models.AttendanceStatusPresent,
		MarkedAt:  time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
		MarkedBy:  "user-fac",
		Method:    "faculty",
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("mark-1"))

	require.NoError(t, repo.Upsert(context.Background(), mark))
	require.Equal(t, "mark-1", mark.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertKeepsExistingRow(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	// The conflict branch fires: RETURNING hands back the row that already
	// existed for this (session, student) pair, not the fresh candidate id.
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (session_id, student_id)")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("mark-existing"))

	mark := &models.Attendance{
		SessionID: "sess-1",
		StudentID: "stu-1",
		Status:    models.AttendanceStatusAbsent,
		MarkedAt:  time.Date(2026, 2, 10, 9, 45, 0, 0, time.UTC),
		MarkedBy:  "user-fac",
		Method:    "faculty",
	}
	require.NoError(t, repo.Upsert(context.Background(), mark))
	require.Equal(t, "mark-existing", mark.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountByStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	rows := sqlmock.NewRows([]string{"total", "credited", "absent"}).AddRow(10, 7, 3)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	total, credited, absent, err := repo.CountByStudent(context.Background(), "stu-1", nil)
	require.NoError(t, err)
	require.Equal(t, 10, total)
	require.Equal(t, 7, credited)
	require.Equal(t, 3, absent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountByStudentScopedToClass(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	rows := sqlmock.NewRows([]string{"total", "credited", "absent"}).AddRow(4, 3, 1)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN attendance_sessions sess ON sess.id = a.session_id")).
		WithArgs("stu-1", "class-1").
		WillReturnRows(rows)

	classID := "class-1"
	total, credited, absent, err := repo.CountByStudent(context.Background(), "stu-1", &classID)
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Equal(t, 3, credited)
	require.Equal(t, 1, absent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountOverviewFilters(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"class_id", "course_code", "course_name", "section", "total", "present", "absent"}).
		AddRow("class-1", "CS201", "Data Structures", "A", 40, 32, 8)
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes c")).
		WithArgs(from, "CS").
		WillReturnRows(rows)

	report, err := repo.CountOverview(context.Background(), models.OverviewFilter{Department: "CS", From: &from})
	require.NoError(t, err)
	require.Len(t, report, 1)
	require.Equal(t, "CS201", report[0].CourseCode)
	require.Equal(t, 32, report[0].Present)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountByClass(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	rows := sqlmock.NewRows([]string{"student_code", "student_name", "total", "present", "absent"}).
		AddRow("CS2024001", "Jane Doe", 10, 9, 1).
		AddRow("CS2024002", "John Roe", 0, 0, 0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e")).
		WithArgs("class-1").
		WillReturnRows(rows)

	report, err := repo.CountByClass(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, report, 2)
	require.Equal(t, "CS2024001", report[0].StudentCode)
	require.Equal(t, 9, report[0].Present)
	// Enrolled but never marked: zero counts rather than a missing row.
	require.Equal(t, 0, report[1].Total)
	require.NoError(t, mock.ExpectationsWereMet())
}
