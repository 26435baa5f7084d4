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

type mockAttendanceRepo struct {
	mu    sync.Mutex
	marks map[string]models.Attendance // keyed session|student
}

func markKey(sessionID, studentID string) string { return sessionID + "|" + studentID }

func (m *mockAttendanceRepo) Upsert(ctx context.Context, mark *models.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marks == nil {
		m.marks = make(map[string]models.Attendance)
	}
	key := markKey(mark.SessionID, mark.StudentID)
	if existing, ok := m.marks[key]; ok {
		mark.ID = existing.ID
	} else if mark.ID == "" {
		mark.ID = "mark-" + key
	}
	m.marks[key] = *mark
	return nil
}

func (m *mockAttendanceRepo) Roster(ctx context.Context, sessionID string) ([]models.SessionRosterRow, error) {
	return nil, nil
}

func (m *mockAttendanceRepo) StudentHistory(ctx context.Context, studentID, classID string) ([]models.StudentMarkRow, error) {
	return nil, nil
}

type mockClassDetailRepo struct {
	classes map[string]models.ClassDetail
}

func (m *mockClassDetailRepo) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockEnrollmentChecker struct {
	enrolled map[string]bool // keyed student|class
}

func (m *mockEnrollmentChecker) Exists(ctx context.Context, studentID, classID string) (bool, error) {
	return m.enrolled[studentID+"|"+classID], nil
}

type mockAggregation struct {
	mu      sync.Mutex
	checked []string
}

func (m *mockAggregation) CheckLowAttendance(ctx context.Context, studentID, classID, className string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked = append(m.checked, studentID)
}

type attendanceFixture struct {
	svc         *AttendanceService
	marks       *mockAttendanceRepo
	sessions    *mockSessionRepo
	aggregation *mockAggregation
}

func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()
	marks := &mockAttendanceRepo{}
	sessions := &mockSessionRepo{sessions: map[string]models.AttendanceSession{
		"sess-1": {
			ID:        "sess-1",
			ClassID:   "class-1",
			Date:      time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			StartTime: models.MustClock("09:00"),
			EndTime:   models.MustClock("10:00"),
			Active:    true,
		},
	}}
	classes := &mockClassDetailRepo{classes: map[string]models.ClassDetail{
		"class-1": {
			Class:      models.Class{ID: "class-1", FacultyID: "fac-1", Section: "A"},
			CourseName: "Data Structures",
		},
	}}
	enrollments := &mockEnrollmentChecker{enrolled: map[string]bool{
		"stu-1|class-1": true,
		"stu-2|class-1": true,
	}}
	aggregation := &mockAggregation{}
	svc := NewAttendanceService(marks, sessions, classes, enrollments, aggregation, nil, &mockAuditSink{}, 24*time.Hour, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC) }
	return &attendanceFixture{svc: svc, marks: marks, sessions: sessions, aggregation: aggregation}
}

func TestMarkOverwritesOnRemark(t *testing.T) {
	f := newAttendanceFixture(t)
	actor := facultyActor()

	first, err := f.svc.Mark(context.Background(), actor, MarkRequest{
		SessionID: "sess-1", StudentID: "stu-1", Status: "present",
	})
	require.NoError(t, err)

	second, err := f.svc.Mark(context.Background(), actor, MarkRequest{
		SessionID: "sess-1", StudentID: "stu-1", Status: "absent",
	})
	require.NoError(t, err)

	// One row per (session, student): the re-mark replaced the first.
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.marks.marks, 1)
	assert.Equal(t, models.AttendanceStatusAbsent, f.marks.marks[markKey("sess-1", "stu-1")].Status)
}

func TestMarkDuringGraceWindow(t *testing.T) {
	f := newAttendanceFixture(t)
	// One hour after session end: still inside the 24h window.
	f.svc.now = func() time.Time { return time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC) }

	_, err := f.svc.Mark(context.Background(), facultyActor(), MarkRequest{
		SessionID: "sess-1", StudentID: "stu-1", Status: "late",
	})
	require.NoError(t, err)
}

func TestMarkRejectedAfterWindow(t *testing.T) {
	f := newAttendanceFixture(t)
	// 25 hours after session end.
	f.svc.now = func() time.Time { return time.Date(2026, 2, 11, 11, 0, 0, 0, time.UTC) }

	_, err := f.svc.Mark(context.Background(), facultyActor(), MarkRequest{
		SessionID: "sess-1", StudentID: "stu-1", Status: "present",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrEditWindowExpired))
	assert.Empty(t, f.marks.marks)
}

func TestMarkRejectedWhenFinalized(t *testing.T) {
	f := newAttendanceFixture(t)
	s := f.sessions.sessions["sess-1"]
	s.Finalized = true
	f.sessions.sessions["sess-1"] = s

	_, err := f.svc.Mark(context.Background(), facultyActor(), MarkRequest{
		SessionID: "sess-1", StudentID: "stu-1", Status: "present",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionFinalized))
}

func TestMarkRejectsNonOwner(t *testing.T) {
	f := newAttendanceFixture(t)
	admin := models.Actor{UserID: "user-admin", Role: models.RoleAdmin}

	_, err := f.svc.Mark(context.Background(), admin, MarkRequest{
		SessionID: "sess-1", StudentID: "stu-1", Status: "present",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestMarkRejectsUnenrolledStudent(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.Mark(context.Background(), facultyActor(), MarkRequest{
		SessionID: "sess-1", StudentID: "stu-other", Status: "present",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestMarkRejectsUnknownStatus(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.Mark(context.Background(), facultyActor(), MarkRequest{
		SessionID: "sess-1", StudentID: "stu-1", Status: "excused",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestBulkMarkCollectsFailures(t *testing.T) {
	f := newAttendanceFixture(t)

	result, err := f.svc.BulkMark(context.Background(), facultyActor(), BulkMarkRequest{
		SessionID: "sess-1",
		Items: []BulkMarkItem{
			{StudentID: "stu-1", Status: "present"},
			{StudentID: "stu-other", Status: "present"},
			{StudentID: "stu-2", Status: "late"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.Success)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "stu-other", result.Failures[0].StudentID)
}

func TestCheckInRequiresActiveSession(t *testing.T) {
	f := newAttendanceFixture(t)
	s := f.sessions.sessions["sess-1"]
	s.Active = false
	f.sessions.sessions["sess-1"] = s

	student := models.Actor{UserID: "user-stu", Role: models.RoleStudent, StudentID: "stu-1"}
	_, err := f.svc.CheckIn(context.Background(), student, "sess-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestCheckInWritesSelfMark(t *testing.T) {
	f := newAttendanceFixture(t)

	student := models.Actor{UserID: "user-stu", Role: models.RoleStudent, StudentID: "stu-1"}
	mark, err := f.svc.CheckIn(context.Background(), student, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, mark.Status)
	assert.Equal(t, MarkMethodSelf, mark.Method)
	assert.Equal(t, "user-stu", mark.MarkedBy)
}
