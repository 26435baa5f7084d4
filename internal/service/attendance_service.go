package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sams-edu/attendance-api/internal/models"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
)

// Mark provenance methods.
const (
	MarkMethodFaculty = "faculty"
	MarkMethodSelf    = "self"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, mark *models.Attendance) error
	Roster(ctx context.Context, sessionID string) ([]models.SessionRosterRow, error)
	StudentHistory(ctx context.Context, studentID, classID string) ([]models.StudentMarkRow, error)
}

type attendanceSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
}

type attendanceClassRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

type enrollmentChecker interface {
	Exists(ctx context.Context, studentID, classID string) (bool, error)
}

type lowAttendanceChecker interface {
	CheckLowAttendance(ctx context.Context, studentID, classID, className string)
}

type reportInvalidator interface {
	InvalidateClass(ctx context.Context, classID string)
}

// AttendanceService handles mark writes and reads, gated by ownership and the
// session editability rule.
type AttendanceService struct {
	attendance  attendanceRepository
	sessions    attendanceSessionRepository
	classes     attendanceClassRepository
	enrollments enrollmentChecker
	aggregation lowAttendanceChecker
	reports     reportInvalidator
	audit       auditSink
	editWindow  time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
	now         func() time.Time
}

// UseMetrics attaches the Prometheus counters. Optional; all recording is
// nil-safe.
func (s *AttendanceService) UseMetrics(m *MetricsService) { s.metrics = m }

// NewAttendanceService constructs the attendance service. reports may be nil
// when report caching is disabled.
func NewAttendanceService(attendance attendanceRepository, sessions attendanceSessionRepository, classes attendanceClassRepository, enrollments enrollmentChecker, aggregation lowAttendanceChecker, reports reportInvalidator, audit auditSink, editWindow time.Duration, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{
		attendance:  attendance,
		sessions:    sessions,
		classes:     classes,
		enrollments: enrollments,
		aggregation: aggregation,
		reports:     reports,
		audit:       audit,
		editWindow:  editWindow,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// MarkRequest is the payload for writing one mark.
type MarkRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,attendance_status"`
}

// BulkMarkItem is one entry of a bulk mark payload.
type BulkMarkItem struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,attendance_status"`
}

// BulkMarkRequest marks several students of one session in a single call.
type BulkMarkRequest struct {
	SessionID string         `json:"session_id" validate:"required"`
	Items     []BulkMarkItem `json:"items" validate:"required,min=1,dive"`
}

// BulkMarkFailure reports one rejected item of a bulk mark.
type BulkMarkFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// BulkMarkResult summarises a bulk mark execution.
type BulkMarkResult struct {
	Processed int               `json:"processed"`
	Success   int               `json:"success"`
	Failures  []BulkMarkFailure `json:"failures,omitempty"`
}

// RosterResponse pairs the roster with the session's current editability.
type RosterResponse struct {
	SessionID string                    `json:"session_id"`
	Phase     models.SessionPhase       `json:"phase"`
	Editable  bool                      `json:"editable"`
	Rows      []models.SessionRosterRow `json:"rows"`
}

// checkWritable loads the session and its class, verifies the actor owns the
// class, and applies the editability rule. The rule is evaluated against the
// current clock on every call; a verdict is never cached.
func (s *AttendanceService) checkWritable(ctx context.Context, actor models.Actor, sessionID string) (*models.AttendanceSession, *models.ClassDetail, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	class, err := s.classes.FindDetailByID(ctx, session.ClassID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !actor.IsFaculty() || actor.FacultyID != class.FacultyID {
		return nil, nil, appErrors.ErrForbidden
	}
	switch session.EditState(s.now(), s.editWindow) {
	case models.SessionLockedFinalized:
		return nil, nil, appErrors.ErrSessionFinalized
	case models.SessionLockedWindowExpired:
		return nil, nil, appErrors.ErrEditWindowExpired
	}
	return session, class, nil
}

// Mark writes one mark. Re-marking the same student overwrites the previous
// row; after the write the student's class percentage is re-checked in the
// background.
func (s *AttendanceService) Mark(ctx context.Context, actor models.Actor, req MarkRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	session, class, err := s.checkWritable(ctx, actor, req.SessionID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.enrollments.Exists(ctx, req.StudentID, session.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in this class")
	}

	mark := &models.Attendance{
		SessionID: req.SessionID,
		StudentID: req.StudentID,
		Status:    models.AttendanceStatus(strings.ToLower(req.Status)),
		MarkedAt:  s.now().UTC(),
		MarkedBy:  actor.UserID,
		Method:    MarkMethodFaculty,
	}
	if err := s.attendance.Upsert(ctx, mark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write mark")
	}
	s.metrics.MarkWritten()

	s.afterWrite(actor, session.ClassID, class.CourseName, []string{req.StudentID})
	return mark, nil
}

// BulkMark writes marks for several students of one session. The session
// checks run once; per-item failures (unknown or unenrolled students) are
// collected without aborting the rest.
func (s *AttendanceService) BulkMark(ctx context.Context, actor models.Actor, req BulkMarkRequest) (*BulkMarkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk mark payload")
	}
	session, class, err := s.checkWritable(ctx, actor, req.SessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMarkResult{Processed: len(req.Items)}
	markedAt := s.now().UTC()
	var written []string
	for _, item := range req.Items {
		enrolled, err := s.enrollments.Exists(ctx, item.StudentID, session.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			result.Failures = append(result.Failures, BulkMarkFailure{StudentID: item.StudentID, Reason: "not enrolled"})
			continue
		}
		mark := &models.Attendance{
			SessionID: req.SessionID,
			StudentID: item.StudentID,
			Status:    models.AttendanceStatus(strings.ToLower(item.Status)),
			MarkedAt:  markedAt,
			MarkedBy:  actor.UserID,
			Method:    MarkMethodFaculty,
		}
		if err := s.attendance.Upsert(ctx, mark); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write mark")
		}
		s.metrics.MarkWritten()
		result.Success++
		written = append(written, item.StudentID)
	}

	if len(written) > 0 {
		s.afterWrite(actor, session.ClassID, class.CourseName, written)
	}
	return result, nil
}

// CheckIn lets an enrolled student mark themselves present while the session
// is active and still editable.
func (s *AttendanceService) CheckIn(ctx context.Context, actor models.Actor, sessionID string) (*models.Attendance, error) {
	if !actor.IsStudent() {
		return nil, appErrors.ErrForbidden
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	switch session.EditState(s.now(), s.editWindow) {
	case models.SessionLockedFinalized:
		return nil, appErrors.ErrSessionFinalized
	case models.SessionLockedWindowExpired:
		return nil, appErrors.ErrEditWindowExpired
	}
	if !session.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session is not accepting check-ins")
	}
	enrolled, err := s.enrollments.Exists(ctx, actor.StudentID, session.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.ErrForbidden
	}

	mark := &models.Attendance{
		SessionID: sessionID,
		StudentID: actor.StudentID,
		Status:    models.AttendanceStatusPresent,
		MarkedAt:  s.now().UTC(),
		MarkedBy:  actor.UserID,
		Method:    MarkMethodSelf,
	}
	if err := s.attendance.Upsert(ctx, mark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write mark")
	}
	s.metrics.MarkWritten()
	if s.reports != nil {
		go s.reports.InvalidateClass(context.Background(), session.ClassID)
	}
	return mark, nil
}

// Roster returns the session's full roster with existing marks and the
// current editability verdict.
func (s *AttendanceService) Roster(ctx context.Context, actor models.Actor, sessionID string) (*RosterResponse, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	class, err := s.classes.FindDetailByID(ctx, session.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !actor.IsAdmin() && (!actor.IsFaculty() || actor.FacultyID != class.FacultyID) {
		return nil, appErrors.ErrForbidden
	}

	rows, err := s.attendance.Roster(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	now := s.now()
	return &RosterResponse{
		SessionID: sessionID,
		Phase:     session.Phase(now, s.editWindow),
		Editable:  session.EditState(now, s.editWindow) == models.SessionEditable,
		Rows:      rows,
	}, nil
}

// StudentHistory returns a student's per-session marks for one class.
// Students read only their own; faculty read for classes they own; admins
// read anything.
func (s *AttendanceService) StudentHistory(ctx context.Context, actor models.Actor, studentID, classID string) ([]models.StudentMarkRow, error) {
	switch {
	case actor.IsAdmin():
	case actor.IsStudent():
		if actor.StudentID != studentID {
			return nil, appErrors.ErrForbidden
		}
	case actor.IsFaculty():
		class, err := s.classes.FindDetailByID(ctx, classID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrNotFound
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
		if class.FacultyID != actor.FacultyID {
			return nil, appErrors.ErrForbidden
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	rows, err := s.attendance.StudentHistory(ctx, studentID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return rows, nil
}

// afterWrite runs the post-write side effects in the background: audit,
// report cache invalidation and the low-attendance re-check for each written
// student. None of them can fail the mark write that triggered them.
func (s *AttendanceService) afterWrite(actor models.Actor, classID, className string, studentIDs []string) {
	entityID := classID
	audit := &models.AuditLog{UserID: &actor.UserID, Action: models.AuditActionMarkAttendance, Entity: "class", EntityID: &entityID}
	go func() {
		ctx := context.Background()
		if err := s.audit.CreateAuditLog(ctx, audit); err != nil {
			s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionMarkAttendance), zap.Error(err))
		}
		if s.reports != nil {
			s.reports.InvalidateClass(ctx, classID)
		}
		for _, studentID := range studentIDs {
			s.aggregation.CheckLowAttendance(ctx, studentID, classID, className)
		}
	}()
}
