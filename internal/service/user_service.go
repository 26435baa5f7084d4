package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sams-edu/attendance-api/internal/models"
	"github.com/sams-edu/attendance-api/internal/repository"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	CreateWithProfile(ctx context.Context, user *models.User, student *models.Student, faculty *models.Faculty) error
	DeleteCascade(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles account administration.
type UserService struct {
	users     userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the user service.
func NewUserService(users userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, validator: validate, logger: logger}
}

// CreateUserRequest carries a new account plus the role-specific profile.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=ADMIN FACULTY STUDENT"`

	// Student profile, required when role is STUDENT.
	StudentCode *string `json:"student_code"`
	Department  *string `json:"department"`
	Year        *int    `json:"year"`
	Section     *string `json:"section"`
	ParentEmail *string `json:"parent_email" validate:"omitempty,email"`
	ParentPhone *string `json:"parent_phone"`

	// Faculty profile, required when role is FACULTY.
	FacultyCode *string `json:"faculty_code"`
	Designation *string `json:"designation"`
}

// Create makes the account and its profile atomically. Uniqueness of
// username, email and profile codes is enforced by the store inside the same
// transaction, so concurrent duplicate requests cannot both win.
func (s *UserService) Create(ctx context.Context, actor models.Actor, req CreateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	role := models.UserRole(req.Role)
	var student *models.Student
	var faculty *models.Faculty
	switch role {
	case models.RoleStudent:
		if req.StudentCode == nil || req.Department == nil || req.Year == nil || req.Section == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student accounts require student_code, department, year and section")
		}
		student = &models.Student{
			StudentCode: *req.StudentCode,
			Department:  *req.Department,
			Year:        *req.Year,
			Section:     *req.Section,
			ParentEmail: req.ParentEmail,
			ParentPhone: req.ParentPhone,
		}
	case models.RoleFaculty:
		if req.FacultyCode == nil || req.Department == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "faculty accounts require faculty_code and department")
		}
		faculty = &models.Faculty{
			FacultyCode: *req.FacultyCode,
			Department:  *req.Department,
			Designation: req.Designation,
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         role,
		Active:       true,
	}
	if err := s.users.CreateWithProfile(ctx, user, student, faculty); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username, email or profile code already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	audit := &models.AuditLog{UserID: &actor.UserID, Action: models.AuditActionUserCreate, Entity: "user", EntityID: &user.ID, Details: req.Username}
	if err := s.users.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionUserCreate), zap.Error(err))
	}
	return user, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, appErrors.ErrForbidden
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, actor models.Actor, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if !actor.IsAdmin() {
		return nil, nil, appErrors.ErrForbidden
	}
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Delete removes an account and everything that hangs off it. Self-deletion
// and removal of the last remaining admin are refused.
func (s *UserService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	if actor.UserID == id {
		return appErrors.Clone(appErrors.ErrConflict, "cannot delete your own account")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role == models.RoleAdmin {
		admins, err := s.users.CountByRole(ctx, models.RoleAdmin)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count admins")
		}
		if admins <= 1 {
			return appErrors.Clone(appErrors.ErrConflict, "cannot delete the last admin account")
		}
	}

	if err := s.users.DeleteCascade(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	audit := &models.AuditLog{UserID: &actor.UserID, Action: models.AuditActionUserDelete, Entity: "user", EntityID: &id, Details: user.Username}
	if err := s.users.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionUserDelete), zap.Error(err))
	}
	return nil
}
