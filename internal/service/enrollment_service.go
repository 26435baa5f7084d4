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

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, studentID, classID string) error
	ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error)
	ListClassesByStudent(ctx context.Context, studentID string) ([]models.ClassDetail, error)
}

type enrollmentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// EnrollmentService manages student membership in classes.
type EnrollmentService struct {
	enrollments enrollmentRepository
	classes     attendanceClassRepository
	students    enrollmentStudentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(enrollments enrollmentRepository, classes attendanceClassRepository, students enrollmentStudentRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{enrollments: enrollments, classes: classes, students: students, validator: validate, logger: logger}
}

// EnrollRequest is the payload for enrolling a student into a class.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
}

// Enroll adds a student to a class. Admin only; repeat enrollment is a
// conflict.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Actor, req EnrollRequest) (*models.Enrollment, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.classes.FindDetailByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, ClassID: req.ClassID}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return enrollment, nil
}

// Unenroll removes a student from a class together with their marks in it.
// Admin only.
func (s *EnrollmentService) Unenroll(ctx context.Context, actor models.Actor, studentID, classID string) error {
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	if err := s.enrollments.Delete(ctx, studentID, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll student")
	}
	return nil
}

// ListByClass returns a class roster for its owner or an admin.
func (s *EnrollmentService) ListByClass(ctx context.Context, actor models.Actor, classID string) ([]models.EnrollmentDetail, error) {
	class, err := s.classes.FindDetailByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !actor.IsAdmin() && (!actor.IsFaculty() || actor.FacultyID != class.FacultyID) {
		return nil, appErrors.ErrForbidden
	}
	rows, err := s.enrollments.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return rows, nil
}

// ListClassesByStudent returns the classes a student belongs to. Students see
// only their own.
func (s *EnrollmentService) ListClassesByStudent(ctx context.Context, actor models.Actor, studentID string) ([]models.ClassDetail, error) {
	if actor.IsStudent() && actor.StudentID != studentID {
		return nil, appErrors.ErrForbidden
	}
	if !actor.IsAdmin() && !actor.IsStudent() {
		return nil, appErrors.ErrForbidden
	}
	classes, err := s.enrollments.ListClassesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}
