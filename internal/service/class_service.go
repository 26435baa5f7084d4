package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sams-edu/attendance-api/internal/models"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
)

type classRepository interface {
	Create(ctx context.Context, class *models.Class) error
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	ListBySection(ctx context.Context, section string) ([]models.ClassDetail, error)
	ListByFaculty(ctx context.Context, facultyID string) ([]models.ClassDetail, error)
	List(ctx context.Context) ([]models.ClassDetail, error)
	DeleteCascade(ctx context.Context, classID string) error
}

type classCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type classFacultyRepository interface {
	FindByID(ctx context.Context, id string) (*models.FacultyDetail, error)
}

type sectionCounter interface {
	CountBySection(ctx context.Context, department string, year int, section string) (int, error)
}

// Operating hours for scheduled classes.
const (
	classDayStart = models.ClockTime(8 * 60)  // 08:00
	classDayEnd   = models.ClockTime(17 * 60) // 17:00
)

var roomPattern = regexp.MustCompile(`^(Lab|Room) \d{3}$`)

// ClassService manages class offerings and the schedule conflict check.
type ClassService struct {
	classes   classRepository
	courses   classCourseRepository
	faculty   classFacultyRepository
	students  sectionCounter
	audit     auditSink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(classes classRepository, courses classCourseRepository, faculty classFacultyRepository, students sectionCounter, audit auditSink, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		classes:   classes,
		courses:   courses,
		faculty:   faculty,
		students:  students,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// CreateClassRequest is the payload for offering a class to a section.
type CreateClassRequest struct {
	CourseID  string `json:"course_id" validate:"required"`
	FacultyID string `json:"faculty_id" validate:"required"`
	Section   string `json:"section" validate:"required"`
	Schedule  string `json:"schedule" validate:"required"`
	Room      string `json:"room" validate:"required"`
}

// Create validates a proposed class and inserts it. The checks run in a fixed
// order and the first failure wins: schedule shape, operating hours, time
// ordering, room format, cohort existence, then the conflict scan against
// every class already offered to the section.
func (s *ClassService) Create(ctx context.Context, actor models.Actor, req CreateClassRequest) (*models.Class, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	spec, err := models.ParseSchedule(req.Schedule)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if spec.Start < classDayStart || spec.End > classDayEnd {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classes must run between 08:00 and 17:00")
	}
	if spec.Start >= spec.End {
		return nil, appErrors.ErrInvalidTimeRange
	}
	if !roomPattern.MatchString(req.Room) {
		return nil, appErrors.Clone(appErrors.ErrValidation, `room must match "Lab NNN" or "Room NNN"`)
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.faculty.FindByID(ctx, req.FacultyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}

	cohort, err := s.students.CountBySection(ctx, course.Department, course.Year, req.Section)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count section students")
	}
	if cohort == 0 {
		return nil, appErrors.ErrNoStudentsInSection
	}

	conflict, err := s.findConflict(ctx, req.Section, spec)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		msg := fmt.Sprintf("schedule conflicts with %s (%s)", conflict.CourseName, conflict.Schedule)
		return nil, appErrors.Clone(appErrors.ErrScheduleConflict, msg)
	}

	class := &models.Class{
		CourseID:  req.CourseID,
		FacultyID: req.FacultyID,
		Section:   req.Section,
		Schedule:  spec.String(),
		Room:      req.Room,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	audit := &models.AuditLog{UserID: &actor.UserID, Action: models.AuditActionClassCreate, Entity: "class", EntityID: &class.ID, Details: class.Schedule}
	if err := s.audit.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionClassCreate), zap.Error(err))
	}
	return class, nil
}

// findConflict scans every class the section already has and returns the
// first one whose schedule collides with the proposal. A stored schedule that
// no longer parses is skipped with a warning rather than blocking creation.
func (s *ClassService) findConflict(ctx context.Context, section string, proposed *models.ScheduleSpec) (*models.ClassConflict, error) {
	existing, err := s.classes.ListBySection(ctx, section)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan section classes")
	}
	for _, class := range existing {
		spec, err := models.ParseSchedule(class.Schedule)
		if err != nil {
			s.logger.Warn("stored schedule failed to parse",
				zap.String("class_id", class.ID), zap.String("schedule", class.Schedule))
			continue
		}
		if proposed.Overlaps(spec) {
			return &models.ClassConflict{
				ClassID:    class.ID,
				CourseName: class.CourseName,
				Section:    class.Section,
				Schedule:   class.Schedule,
			}, nil
		}
	}
	return nil, nil
}

// Get returns one class with course and faculty details.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.classes.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// List returns classes scoped by the caller: faculty see their own, admins
// see everything.
func (s *ClassService) List(ctx context.Context, actor models.Actor) ([]models.ClassDetail, error) {
	var classes []models.ClassDetail
	var err error
	switch {
	case actor.IsAdmin():
		classes, err = s.classes.List(ctx)
	case actor.IsFaculty():
		classes, err = s.classes.ListByFaculty(ctx, actor.FacultyID)
	default:
		return nil, appErrors.ErrForbidden
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Delete removes a class with its sessions, marks and enrollments. Admin
// only.
func (s *ClassService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	if err := s.classes.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}

	audit := &models.AuditLog{UserID: &actor.UserID, Action: models.AuditActionClassDelete, Entity: "class", EntityID: &id}
	if err := s.audit.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionClassDelete), zap.Error(err))
	}
	return nil
}
