package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sams-edu/attendance-api/internal/models"
	"github.com/sams-edu/attendance-api/internal/repository"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
)

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, department string) ([]models.Course, error)
	DeleteCascade(ctx context.Context, courseID string) error
}

type auditSink interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CourseService manages the course catalogue.
type CourseService struct {
	courses   courseRepository
	audit     auditSink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(courses courseRepository, audit auditSink, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, audit: audit, validator: validate, logger: logger}
}

// CreateCourseRequest is the payload for adding a course.
type CreateCourseRequest struct {
	Code       string `json:"code" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Department string `json:"department" validate:"required"`
	Credits    int    `json:"credits" validate:"required,min=1,max=10"`
	Year       int    `json:"year" validate:"required,min=1,max=6"`
	Semester   int    `json:"semester" validate:"required,min=1,max=2"`
}

// Create adds a course to the catalogue. Admin only; a duplicate code is a
// conflict.
func (s *CourseService) Create(ctx context.Context, actor models.Actor, req CreateCourseRequest) (*models.Course, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		Code:       req.Code,
		Name:       req.Name,
		Department: req.Department,
		Credits:    req.Credits,
		Year:       req.Year,
		Semester:   req.Semester,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	audit := &models.AuditLog{UserID: &actor.UserID, Action: models.AuditActionCourseCreate, Entity: "course", EntityID: &course.ID, Details: course.Code}
	if err := s.audit.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionCourseCreate), zap.Error(err))
	}
	return course, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// List returns courses, optionally filtered by department.
func (s *CourseService) List(ctx context.Context, department string) ([]models.Course, error) {
	courses, err := s.courses.List(ctx, department)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Delete removes a course and all classes built on it, including their
// sessions, marks and enrollments. Admin only.
func (s *CourseService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	if err := s.courses.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	audit := &models.AuditLog{UserID: &actor.UserID, Action: models.AuditActionCourseDelete, Entity: "course", EntityID: &id}
	if err := s.audit.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionCourseDelete), zap.Error(err))
	}
	return nil
}
