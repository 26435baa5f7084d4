package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sams-edu/attendance-api/internal/models"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
// The unique indexes make the check-then-insert race safe; the service layer
// translates this into a conflict response.
var ErrDuplicate = errors.New("duplicate key")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// UserRepository provides database access for users, profiles and the audit
// sink.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, full_name, role, is_active, created_at`

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByLogin returns a user matching the given username or email.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1 OR email = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, login); err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	base := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(username) LIKE $%d OR LOWER(full_name) LIKE $%d)", len(args)+1, len(args)+1))
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
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, userColumns, base, size, offset)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// CountByRole returns the number of users carrying a role. Used for the
// last-admin deletion guard.
func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE role = $1`, role); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

// CreateWithProfile inserts a user and, when the role requires one, its
// student or faculty profile within a single transaction. The unique indexes
// on username/email/student_code/faculty_code surface duplicates as
// ErrDuplicate.
func (r *UserRepository) CreateWithProfile(ctx context.Context, user *models.User, student *models.Student, faculty *models.Faculty) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const insertUser = `INSERT INTO users (id, username, email, password_hash, full_name, role, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, insertUser, user.ID, user.Username, user.Email, user.PasswordHash, user.FullName, user.Role, user.Active, user.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if student != nil {
		if student.ID == "" {
			student.ID = uuid.NewString()
		}
		student.UserID = user.ID
		const insertStudent = `INSERT INTO students (id, user_id, student_code, department, year, section, parent_email, parent_phone)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		if _, err := tx.ExecContext(ctx, insertStudent, student.ID, student.UserID, student.StudentCode, student.Department, student.Year, student.Section, student.ParentEmail, student.ParentPhone); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert student profile: %w", err)
		}
	}

	if faculty != nil {
		if faculty.ID == "" {
			faculty.ID = uuid.NewString()
		}
		faculty.UserID = user.ID
		const insertFaculty = `INSERT INTO faculty (id, user_id, faculty_code, department, designation)
VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(ctx, insertFaculty, faculty.ID, faculty.UserID, faculty.FacultyCode, faculty.Department, faculty.Designation); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert faculty profile: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	committed = true
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// DeleteCascade removes a user and every dependent row in one transaction,
// leaf records first. For students: attendance, enrollments, notifications,
// profile, user. For faculty: the full graph of every owned class, then the
// profile and user. The ordering is deliberate application logic; the store
// is not trusted to cascade.
func (r *UserRepository) DeleteCascade(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var user models.User
	if err := tx.GetContext(ctx, &user, fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns), userID); err != nil {
		return err
	}

	switch user.Role {
	case models.RoleStudent:
		var studentID string
		err := tx.GetContext(ctx, &studentID, `SELECT id FROM students WHERE user_id = $1`, userID)
		if err == nil {
			steps := []struct{ query, arg string }{
				{`DELETE FROM attendance WHERE student_id = $1`, studentID},
				{`DELETE FROM enrollments WHERE student_id = $1`, studentID},
				{`DELETE FROM students WHERE id = $1`, studentID},
			}
			for _, step := range steps {
				if _, err := tx.ExecContext(ctx, step.query, step.arg); err != nil {
					return fmt.Errorf("cascade student delete: %w", err)
				}
			}
		}
	case models.RoleFaculty:
		var facultyID string
		err := tx.GetContext(ctx, &facultyID, `SELECT id FROM faculty WHERE user_id = $1`, userID)
		if err == nil {
			var classIDs []string
			if err := tx.SelectContext(ctx, &classIDs, `SELECT id FROM classes WHERE faculty_id = $1`, facultyID); err != nil {
				return fmt.Errorf("list faculty classes: %w", err)
			}
			for _, classID := range classIDs {
				if err := deleteClassGraphTx(ctx, tx, classID); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM faculty WHERE id = $1`, facultyID); err != nil {
				return fmt.Errorf("delete faculty profile: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user notifications: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM audit_logs WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user audit logs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	committed = true
	return nil
}

// CreateAuditLog appends one audit row. Callers treat failures as
// best-effort.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, entity, entity_id, details, ip_address, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, log.ID, log.UserID, log.Action, log.Entity, log.EntityID, log.Details, log.IPAddress, log.CreatedAt); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
