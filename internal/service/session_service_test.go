package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sams-edu/attendance-api/internal/models"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
)

type mockSessionRepo struct {
	sessions    map[string]models.AttendanceSession
	created     *models.AttendanceSession
	finalizeOK  bool
	finalizedBy string
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = "sess-new"
	}
	if m.sessions == nil {
		m.sessions = make(map[string]models.AttendanceSession)
	}
	m.sessions[session.ID] = *session
	m.created = session
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) ListByClass(ctx context.Context, classID string) ([]models.AttendanceSession, error) {
	var list []models.AttendanceSession
	for _, s := range m.sessions {
		if s.ClassID == classID {
			list = append(list, s)
		}
	}
	return list, nil
}

func (m *mockSessionRepo) Finalize(ctx context.Context, sessionID, finalizedBy string, finalizedAt time.Time) (bool, error) {
	if !m.finalizeOK {
		return false, nil
	}
	m.finalizedBy = finalizedBy
	if s, ok := m.sessions[sessionID]; ok {
		s.Finalized = true
		m.sessions[sessionID] = s
	}
	return true, nil
}

func (m *mockSessionRepo) SetActive(ctx context.Context, sessionID string, active bool) error {
	if s, ok := m.sessions[sessionID]; ok {
		s.Active = active
		m.sessions[sessionID] = s
	}
	return nil
}

type mockClassRepo struct {
	classes map[string]models.Class
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockAuditSink struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (m *mockAuditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func facultyActor() models.Actor {
	return models.Actor{UserID: "user-fac", Role: models.RoleFaculty, FacultyID: "fac-1"}
}

func newSessionFixture(finalizeOK bool) (*SessionService, *mockSessionRepo) {
	sessions := &mockSessionRepo{finalizeOK: finalizeOK}
	classes := &mockClassRepo{classes: map[string]models.Class{
		"class-1": {ID: "class-1", FacultyID: "fac-1", Section: "A"},
	}}
	svc := NewSessionService(sessions, classes, &mockAuditSink{}, 24*time.Hour, nil, nil)
	return svc, sessions
}

func TestSessionCreate(t *testing.T) {
	svc, sessions := newSessionFixture(true)

	view, err := svc.Create(context.Background(), facultyActor(), CreateSessionRequest{
		ClassID:   "class-1",
		Date:      "2026-02-10",
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "class-1", view.ClassID)
	assert.True(t, view.Active)
	assert.False(t, view.Finalized)
	require.NotNil(t, sessions.created)
	assert.Equal(t, "user-fac", sessions.created.CreatedBy)
}

func TestSessionCreateRejectsInvertedTimes(t *testing.T) {
	svc, _ := newSessionFixture(true)

	_, err := svc.Create(context.Background(), facultyActor(), CreateSessionRequest{
		ClassID:   "class-1",
		Date:      "2026-02-10",
		StartTime: "10:00",
		EndTime:   "09:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTimeRange))

	_, err = svc.Create(context.Background(), facultyActor(), CreateSessionRequest{
		ClassID:   "class-1",
		Date:      "2026-02-10",
		StartTime: "10:00",
		EndTime:   "10:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTimeRange))
}

func TestSessionCreateRequiresOwnership(t *testing.T) {
	svc, _ := newSessionFixture(true)

	otherFaculty := models.Actor{UserID: "user-2", Role: models.RoleFaculty, FacultyID: "fac-2"}
	_, err := svc.Create(context.Background(), otherFaculty, CreateSessionRequest{
		ClassID: "class-1", Date: "2026-02-10", StartTime: "09:00", EndTime: "10:00",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	// Admins do not own classes; attendance operations stay personal.
	admin := models.Actor{UserID: "user-admin", Role: models.RoleAdmin}
	_, err = svc.Create(context.Background(), admin, CreateSessionRequest{
		ClassID: "class-1", Date: "2026-02-10", StartTime: "09:00", EndTime: "10:00",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestSessionFinalize(t *testing.T) {
	svc, sessions := newSessionFixture(true)
	end := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	sessions.sessions = map[string]models.AttendanceSession{
		"sess-1": {
			ID:        "sess-1",
			ClassID:   "class-1",
			Date:      time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			StartTime: models.MustClock("09:00"),
			EndTime:   models.MustClock("10:00"),
			Active:    true,
		},
	}
	svc.now = func() time.Time { return end.Add(time.Hour) }

	view, err := svc.Finalize(context.Background(), facultyActor(), "sess-1")
	require.NoError(t, err)
	assert.True(t, view.Finalized)
	assert.False(t, view.Active)
	assert.Equal(t, models.SessionPhaseLocked, view.Phase)
	assert.Equal(t, "user-fac", sessions.finalizedBy)
}

func TestSessionFinalizeAlreadyFinalized(t *testing.T) {
	svc, sessions := newSessionFixture(true)
	sessions.sessions = map[string]models.AttendanceSession{
		"sess-1": {ID: "sess-1", ClassID: "class-1", Finalized: true},
	}

	_, err := svc.Finalize(context.Background(), facultyActor(), "sess-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyFinalized))
}

func TestSessionFinalizeWindowExpired(t *testing.T) {
	svc, sessions := newSessionFixture(true)
	end := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	sessions.sessions = map[string]models.AttendanceSession{
		"sess-1": {
			ID:        "sess-1",
			ClassID:   "class-1",
			Date:      time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			StartTime: models.MustClock("09:00"),
			EndTime:   models.MustClock("10:00"),
		},
	}
	svc.now = func() time.Time { return end.Add(25 * time.Hour) }

	_, err := svc.Finalize(context.Background(), facultyActor(), "sess-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrEditWindowExpired))
}

func TestSessionFinalizeRaceLoser(t *testing.T) {
	svc, sessions := newSessionFixture(false)
	end := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	sessions.sessions = map[string]models.AttendanceSession{
		"sess-1": {
			ID:        "sess-1",
			ClassID:   "class-1",
			Date:      time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			StartTime: models.MustClock("09:00"),
			EndTime:   models.MustClock("10:00"),
		},
	}
	svc.now = func() time.Time { return end.Add(time.Hour) }

	// The in-memory state says editable, but the store's conditional update
	// reports another finalize got there first.
	_, err := svc.Finalize(context.Background(), facultyActor(), "sess-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyFinalized))
}

func TestSessionSetActiveOnFinalized(t *testing.T) {
	svc, sessions := newSessionFixture(true)
	sessions.sessions = map[string]models.AttendanceSession{
		"sess-1": {ID: "sess-1", ClassID: "class-1", Finalized: true},
	}

	err := svc.SetActive(context.Background(), facultyActor(), "sess-1", true)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionFinalized))
}
