package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sams-edu/attendance-api/internal/models"
)

type mockAttendanceCounter struct {
	total    int
	credited int
	absent   int
}

func (m *mockAttendanceCounter) CountByStudent(ctx context.Context, studentID string, classID *string) (int, int, int, error) {
	return m.total, m.credited, m.absent, nil
}

type mockNotificationRepo struct {
	created   []models.Notification
	hasRecent bool
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.created = append(m.created, *n)
	return nil
}

func (m *mockNotificationRepo) ExistsRecent(ctx context.Context, userID, notifType string, since time.Time) (bool, error) {
	return m.hasRecent, nil
}

type mockStudentReader struct {
	students map[string]*models.StudentDetail
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func newAggregationFixture(counts mockAttendanceCounter, hasRecent bool) (*AggregationService, *mockNotificationRepo) {
	notifications := &mockNotificationRepo{hasRecent: hasRecent}
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", UserID: "user-stu"}},
	}}
	svc := NewAggregationService(&counts, notifications, students, 75.0, 7*24*time.Hour, nil)
	return svc, notifications
}

func TestSummaryPercentages(t *testing.T) {
	tests := []struct {
		name   string
		counts mockAttendanceCounter
		want   float64
	}{
		{"all credited", mockAttendanceCounter{total: 10, credited: 10}, 100.0},
		{"exactly threshold", mockAttendanceCounter{total: 4, credited: 3, absent: 1}, 75.0},
		{"repeating decimal rounds", mockAttendanceCounter{total: 3, credited: 2, absent: 1}, 66.67},
		{"one of six", mockAttendanceCounter{total: 6, credited: 1, absent: 5}, 16.67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAggregationFixture(tt.counts, false)
			summary, err := svc.Summary(context.Background(), "stu-1", nil)
			require.NoError(t, err)
			require.NotNil(t, summary.Percent)
			assert.Equal(t, tt.want, *summary.Percent)
		})
	}
}

func TestSummaryNoDataSentinel(t *testing.T) {
	svc, _ := newAggregationFixture(mockAttendanceCounter{}, false)

	summary, err := svc.Summary(context.Background(), "stu-1", nil)
	require.NoError(t, err)
	// Zero recorded marks is "no data yet", not 0%.
	assert.Nil(t, summary.Percent)
	assert.Equal(t, 0, summary.Total)
}

func TestLowAttendanceAlertEmitted(t *testing.T) {
	svc, notifications := newAggregationFixture(mockAttendanceCounter{total: 10, credited: 5, absent: 5}, false)

	svc.CheckLowAttendance(context.Background(), "stu-1", "class-1", "Data Structures")
	require.Len(t, notifications.created, 1)
	assert.Equal(t, "user-stu", notifications.created[0].UserID)
	assert.Equal(t, models.NotificationTypeLowAttendance, notifications.created[0].Type)
	assert.Contains(t, notifications.created[0].Message, "Data Structures")
	assert.Contains(t, notifications.created[0].Message, "50.00")
}

func TestLowAttendanceNoAlertAtThreshold(t *testing.T) {
	// 75% is not below 75%.
	svc, notifications := newAggregationFixture(mockAttendanceCounter{total: 4, credited: 3, absent: 1}, false)

	svc.CheckLowAttendance(context.Background(), "stu-1", "class-1", "Data Structures")
	assert.Empty(t, notifications.created)
}

func TestLowAttendanceAlertDeduplicated(t *testing.T) {
	svc, notifications := newAggregationFixture(mockAttendanceCounter{total: 10, credited: 2, absent: 8}, true)

	svc.CheckLowAttendance(context.Background(), "stu-1", "class-1", "Data Structures")
	assert.Empty(t, notifications.created)
}

func TestLowAttendanceNoAlertWithoutData(t *testing.T) {
	svc, notifications := newAggregationFixture(mockAttendanceCounter{}, false)

	svc.CheckLowAttendance(context.Background(), "stu-1", "class-1", "Data Structures")
	assert.Empty(t, notifications.created)
}

func TestRoundPercentHalfAway(t *testing.T) {
	assert.Equal(t, 66.67, roundPercent(66.666666))
	assert.Equal(t, 16.67, roundPercent(16.666666))
	assert.Equal(t, 87.5, roundPercent(87.5))
	assert.Equal(t, 33.33, roundPercent(33.333333))
}
