package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sams-edu/attendance-api/internal/models"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
	"github.com/sams-edu/attendance-api/pkg/export"
)

type reportAttendanceRepository interface {
	CountByClass(ctx context.Context, classID string) ([]models.ClassReportRow, error)
	CountOverview(ctx context.Context, filter models.OverviewFilter) ([]models.OverviewRow, error)
}

// ClassReport is the aggregate report for one class.
type ClassReport struct {
	ClassID     string                  `json:"class_id"`
	CourseCode  string                  `json:"course_code"`
	CourseName  string                  `json:"course_name"`
	Section     string                  `json:"section"`
	GeneratedAt time.Time               `json:"generated_at"`
	Rows        []models.ClassReportRow `json:"rows"`
}

// ReportService builds per-class attendance reports and their CSV/PDF
// renderings. Reports are cached in Redis when a client is configured; the
// cache is invalidated whenever a mark in the class changes.
type ReportService struct {
	attendance reportAttendanceRepository
	classes    attendanceClassRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
	now        func() time.Time
}

// NewReportService constructs the report service. cache may be nil, which
// disables caching entirely.
func NewReportService(attendance reportAttendanceRepository, classes attendanceClassRepository, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		attendance: attendance,
		classes:    classes,
		cache:      cache,
		cacheTTL:   cacheTTL,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
		now:        time.Now,
	}
}

func classReportKey(classID string) string {
	return "report:class:" + classID
}

// ClassReport returns the per-student aggregate for one class, visible to the
// owning faculty and admins.
func (s *ReportService) ClassReport(ctx context.Context, actor models.Actor, classID string) (*ClassReport, error) {
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

	if cached := s.readCache(ctx, classID); cached != nil {
		return cached, nil
	}

	rows, err := s.attendance.CountByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate class report")
	}
	for i := range rows {
		if rows[i].Total > 0 {
			pct := roundPercent(100 * float64(rows[i].Present) / float64(rows[i].Total))
			rows[i].Percent = &pct
		}
	}

	report := &ClassReport{
		ClassID:     classID,
		CourseCode:  class.CourseCode,
		CourseName:  class.CourseName,
		Section:     class.Section,
		GeneratedAt: s.now().UTC(),
		Rows:        rows,
	}
	s.writeCache(ctx, classID, report)
	return report, nil
}

// ClassReportCSV renders the class report as CSV bytes.
func (s *ReportService) ClassReportCSV(ctx context.Context, actor models.Actor, classID string) ([]byte, string, error) {
	report, err := s.ClassReport(ctx, actor, classID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.csv.Render(reportDataset(report))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	filename := fmt.Sprintf("attendance_%s_%s.csv", report.CourseCode, report.Section)
	return data, filename, nil
}

// ClassReportPDF renders the class report as PDF bytes.
func (s *ReportService) ClassReportPDF(ctx context.Context, actor models.Actor, classID string) ([]byte, string, error) {
	report, err := s.ClassReport(ctx, actor, classID)
	if err != nil {
		return nil, "", err
	}
	title := fmt.Sprintf("Attendance Report: %s (%s)", report.CourseName, report.CourseCode)
	subtitle := fmt.Sprintf("Section %s, generated %s", report.Section, report.GeneratedAt.Format("2006-01-02 15:04"))
	data, err := s.pdf.Render(reportDataset(report), title, subtitle)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	filename := fmt.Sprintf("attendance_%s_%s.pdf", report.CourseCode, report.Section)
	return data, filename, nil
}

// Overview returns the institution-wide per-class aggregate, admin only.
// Filter combinations vary too much to be worth caching.
func (s *ReportService) Overview(ctx context.Context, actor models.Actor, filter models.OverviewFilter) ([]models.OverviewRow, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	rows, err := s.attendance.CountOverview(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate overview report")
	}
	for i := range rows {
		if rows[i].Total > 0 {
			pct := roundPercent(100 * float64(rows[i].Present) / float64(rows[i].Total))
			rows[i].Percent = &pct
		}
	}
	return rows, nil
}

// OverviewCSV renders the overview report as CSV bytes.
func (s *ReportService) OverviewCSV(ctx context.Context, actor models.Actor, filter models.OverviewFilter) ([]byte, string, error) {
	rows, err := s.Overview(ctx, actor, filter)
	if err != nil {
		return nil, "", err
	}
	data, err := s.csv.Render(overviewDataset(rows))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	filename := fmt.Sprintf("attendance_overview_%s.csv", s.now().UTC().Format("2006-01-02"))
	return data, filename, nil
}

// InvalidateClass drops the cached report for a class. Called after every
// mark write; a miss is not an error.
func (s *ReportService) InvalidateClass(ctx context.Context, classID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, classReportKey(classID)).Err(); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.String("class_id", classID), zap.Error(err))
	}
}

func (s *ReportService) readCache(ctx context.Context, classID string) *ClassReport {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, classReportKey(classID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("report cache read failed", zap.String("class_id", classID), zap.Error(err))
		}
		return nil
	}
	var report ClassReport
	if err := json.Unmarshal(raw, &report); err != nil {
		s.logger.Warn("report cache decode failed", zap.String("class_id", classID), zap.Error(err))
		return nil
	}
	return &report
}

func (s *ReportService) writeCache(ctx context.Context, classID string, report *ClassReport) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, classReportKey(classID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("report cache write failed", zap.String("class_id", classID), zap.Error(err))
	}
}

func overviewDataset(rows []models.OverviewRow) export.Dataset {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		percent := "N/A"
		if row.Percent != nil {
			percent = fmt.Sprintf("%.2f", *row.Percent)
		}
		out = append(out, []string{
			row.CourseCode,
			row.CourseName,
			row.Section,
			fmt.Sprintf("%d", row.Total),
			fmt.Sprintf("%d", row.Present),
			fmt.Sprintf("%d", row.Absent),
			percent,
		})
	}
	return export.Dataset{
		Headers: []string{"Course Code", "Course", "Section", "Total", "Present", "Absent", "Percentage"},
		Rows:    out,
	}
}

func reportDataset(report *ClassReport) export.Dataset {
	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		percent := "N/A"
		if row.Percent != nil {
			percent = fmt.Sprintf("%.2f", *row.Percent)
		}
		rows = append(rows, []string{
			row.StudentCode,
			row.StudentName,
			fmt.Sprintf("%d", row.Total),
			fmt.Sprintf("%d", row.Present),
			fmt.Sprintf("%d", row.Absent),
			percent,
		})
	}
	return export.Dataset{
		Headers: []string{"Student Code", "Name", "Total", "Present", "Absent", "Percentage"},
		Rows:    rows,
	}
}
