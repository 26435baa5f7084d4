package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/sams-edu/attendance-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestUserRepositoryCreateWithStudentProfile(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	user := &models.User{
		Username:     "jdoe",
		Email:        "jdoe@example.edu",
		PasswordHash: "hash",
		FullName:     "Jane Doe",
		Role:         models.RoleStudent,
		Active:       true,
	}
	student := &models.Student{StudentCode: "CS2024001", Department: "CS", Year: 2, Section: "A"}

	require.NoError(t, repo.CreateWithProfile(context.Background(), user, student, nil))
	require.NotEmpty(t, user.ID)
	require.Equal(t, user.ID, student.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateDuplicateRollsBack(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	user := &models.User{Username: "jdoe", Email: "jdoe@example.edu", Role: models.RoleAdmin}
	err := repo.CreateWithProfile(context.Background(), user, nil, nil)
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteCascadeStudent(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, email, password_hash")).
		WithArgs("user-stu").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "full_name", "role", "is_active", "created_at"}).
			AddRow("user-stu", "jdoe", "jdoe@example.edu", "hash", "Jane Doe", "STUDENT", true, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE user_id")).
		WithArgs("user-stu").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-1"))
	// Leaf rows go first so no step ever orphans a child.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance WHERE student_id")).
		WithArgs("stu-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id")).
		WithArgs("stu-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id")).
		WithArgs("stu-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications WHERE user_id")).
		WithArgs("user-stu").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audit_logs WHERE user_id")).
		WithArgs("user-stu").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id")).
		WithArgs("user-stu").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), "user-stu"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByLogin(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "full_name", "role", "is_active", "created_at"}).
		AddRow("user-1", "jdoe", "jdoe@example.edu", "hash", "Jane Doe", "STUDENT", true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1 OR email = $1")).
		WithArgs("jdoe@example.edu").
		WillReturnRows(rows)

	user, err := repo.FindByLogin(context.Background(), "jdoe@example.edu")
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
