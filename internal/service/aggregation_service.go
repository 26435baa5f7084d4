package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sams-edu/attendance-api/internal/models"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
)

type attendanceCounter interface {
	CountByStudent(ctx context.Context, studentID string, classID *string) (total, credited, absent int, err error)
}

type notificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
	ExistsRecent(ctx context.Context, userID, notifType string, since time.Time) (bool, error)
}

type aggregationStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// AggregationService computes attendance percentages and emits low-attendance
// alerts.
type AggregationService struct {
	attendance    attendanceCounter
	notifications notificationWriter
	students      aggregationStudentRepository
	threshold     float64
	dedupWindow   time.Duration
	logger        *zap.Logger
	metrics       *MetricsService
	now           func() time.Time
}

// UseMetrics attaches the Prometheus counters. Optional; all recording is
// nil-safe.
func (s *AggregationService) UseMetrics(m *MetricsService) { s.metrics = m }

// NewAggregationService constructs the aggregation service.
func NewAggregationService(attendance attendanceCounter, notifications notificationWriter, students aggregationStudentRepository, threshold float64, dedupWindow time.Duration, logger *zap.Logger) *AggregationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregationService{
		attendance:    attendance,
		notifications: notifications,
		students:      students,
		threshold:     threshold,
		dedupWindow:   dedupWindow,
		logger:        logger,
		now:           time.Now,
	}
}

// roundPercent rounds half away from zero to two decimals.
func roundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}

// Summary aggregates a student's recorded marks, optionally scoped to one
// class. Percent is nil when no marks exist; zero marks is "no data", not 0%.
func (s *AggregationService) Summary(ctx context.Context, studentID string, classID *string) (*models.AttendanceSummary, error) {
	total, credited, absent, err := s.attendance.CountByStudent(ctx, studentID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}
	summary := &models.AttendanceSummary{Total: total, Credited: credited, Absent: absent}
	if total > 0 {
		pct := roundPercent(100 * float64(credited) / float64(total))
		summary.Percent = &pct
	}
	return summary, nil
}

// CheckLowAttendance recomputes a student's class percentage and emits a
// low_attendance notification when it sits under the threshold. At most one
// alert per user per dedup window. Best-effort by contract: every failure is
// logged and swallowed so the triggering mark write never fails.
func (s *AggregationService) CheckLowAttendance(ctx context.Context, studentID, classID, className string) {
	summary, err := s.Summary(ctx, studentID, &classID)
	if err != nil {
		s.logger.Warn("low-attendance check failed", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if summary.Percent == nil || *summary.Percent >= s.threshold {
		return
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("low-attendance check: student lookup failed", zap.String("student_id", studentID), zap.Error(err))
		return
	}

	cutoff := s.now().Add(-s.dedupWindow)
	exists, err := s.notifications.ExistsRecent(ctx, student.UserID, models.NotificationTypeLowAttendance, cutoff)
	if err != nil {
		s.logger.Warn("low-attendance check: dedup lookup failed", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if exists {
		return
	}

	notification := &models.Notification{
		UserID: student.UserID,
		Title:  "Low attendance warning",
		Message: fmt.Sprintf("Your attendance in %s has dropped to %.2f%%, below the required %.0f%%.",
			className, *summary.Percent, s.threshold),
		Type: models.NotificationTypeLowAttendance,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("low-attendance alert write failed", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	s.metrics.AlertEmitted()
	s.logger.Info("low-attendance alert emitted",
		zap.String("student_id", studentID),
		zap.String("class_id", classID),
		zap.Float64("percent", *summary.Percent))
}
