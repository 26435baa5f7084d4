package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sams-edu/attendance-api/internal/models"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.AttendanceSession) error
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	ListByClass(ctx context.Context, classID string) ([]models.AttendanceSession, error)
	Finalize(ctx context.Context, sessionID, finalizedBy string, finalizedAt time.Time) (bool, error)
	SetActive(ctx context.Context, sessionID string, active bool) error
}

type sessionClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// SessionService manages the attendance session lifecycle.
type SessionService struct {
	sessions   sessionRepository
	classes    sessionClassRepository
	audit      auditSink
	editWindow time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	now        func() time.Time
}

// UseMetrics attaches the Prometheus counters. Optional; all recording is
// nil-safe.
func (s *SessionService) UseMetrics(m *MetricsService) { s.metrics = m }

// NewSessionService constructs the session service.
func NewSessionService(sessions sessionRepository, classes sessionClassRepository, audit auditSink, editWindow time.Duration, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:   sessions,
		classes:    classes,
		audit:      audit,
		editWindow: editWindow,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateSessionRequest is the payload for opening a session.
type CreateSessionRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// SessionView is a session plus its derived lifecycle phase.
type SessionView struct {
	models.AttendanceSession
	Phase models.SessionPhase `json:"phase"`
}

// requireOwnership loads the class and checks the actor teaches it. Ownership
// is personal: admins are not exempt here.
func (s *SessionService) requireOwnership(ctx context.Context, actor models.Actor, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !actor.IsFaculty() || actor.FacultyID != class.FacultyID {
		return nil, appErrors.ErrForbidden
	}
	return class, nil
}

// Create opens a session for a class the actor teaches. The session's times
// are independent of the class's recurring schedule; only their ordering is
// enforced.
func (s *SessionService) Create(ctx context.Context, actor models.Actor, req CreateSessionRequest) (*SessionView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	start, err := models.ParseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_time, expected HH:MM")
	}
	end, err := models.ParseClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_time, expected HH:MM")
	}
	if start >= end {
		return nil, appErrors.ErrInvalidTimeRange
	}

	if _, err := s.requireOwnership(ctx, actor, req.ClassID); err != nil {
		return nil, err
	}

	session := &models.AttendanceSession{
		ClassID:   req.ClassID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		CreatedBy: actor.UserID,
		Active:    true,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.metrics.SessionOpened()

	audit := &models.AuditLog{UserID: &actor.UserID, Action: models.AuditActionSessionCreate, Entity: "session", EntityID: &session.ID, Details: req.ClassID}
	if err := s.audit.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionSessionCreate), zap.Error(err))
	}
	return s.view(session), nil
}

// Get returns a session with its lifecycle phase.
func (s *SessionService) Get(ctx context.Context, id string) (*SessionView, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return s.view(session), nil
}

// ListByClass returns a class's sessions, newest first, for its owner.
func (s *SessionService) ListByClass(ctx context.Context, actor models.Actor, classID string) ([]SessionView, error) {
	if _, err := s.requireOwnership(ctx, actor, classID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	views := make([]SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, *s.view(&sessions[i]))
	}
	return views, nil
}

// Finalize locks a session permanently. Only the owning faculty may finalize,
// only while the session is still editable, and only once: the store's
// conditional update decides a concurrent race, and the loser is told the
// session was already finalized.
func (s *SessionService) Finalize(ctx context.Context, actor models.Actor, sessionID string) (*SessionView, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if _, err := s.requireOwnership(ctx, actor, session.ClassID); err != nil {
		return nil, err
	}

	now := s.now()
	switch session.EditState(now, s.editWindow) {
	case models.SessionLockedFinalized:
		return nil, appErrors.ErrAlreadyFinalized
	case models.SessionLockedWindowExpired:
		return nil, appErrors.ErrEditWindowExpired
	}

	finalizedAt := now.UTC()
	won, err := s.sessions.Finalize(ctx, sessionID, actor.UserID, finalizedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize session")
	}
	if !won {
		return nil, appErrors.ErrAlreadyFinalized
	}
	s.metrics.SessionFinalized()

	session.Finalized = true
	session.Active = false
	session.FinalizedAt = &finalizedAt
	session.FinalizedBy = &actor.UserID

	audit := &models.AuditLog{UserID: &actor.UserID, Action: models.AuditActionSessionFinalize, Entity: "session", EntityID: &sessionID}
	if err := s.audit.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionSessionFinalize), zap.Error(err))
	}
	return s.view(session), nil
}

// SetActive toggles whether a session accepts self check-in. Independent of
// finalization, but a finalized session stays inactive.
func (s *SessionService) SetActive(ctx context.Context, actor models.Actor, sessionID string, active bool) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if _, err := s.requireOwnership(ctx, actor, session.ClassID); err != nil {
		return err
	}
	if session.Finalized {
		return appErrors.ErrSessionFinalized
	}
	if err := s.sessions.SetActive(ctx, sessionID, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	return nil
}

func (s *SessionService) view(session *models.AttendanceSession) *SessionView {
	return &SessionView{
		AttendanceSession: *session,
		Phase:             session.Phase(s.now(), s.editWindow),
	}
}
