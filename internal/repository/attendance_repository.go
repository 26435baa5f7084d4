package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sams-edu/attendance-api/internal/models"
)

// AttendanceRepository provides database access for attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert writes one mark for a (session, student) pair. A repeat mark
// overwrites status, marker, method and timestamp in place; last write wins.
func (r *AttendanceRepository) Upsert(ctx context.Context, mark *models.Attendance) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	const query = `INSERT INTO attendance (id, session_id, student_id, status, marked_at, marked_by, method)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id, student_id)
DO UPDATE SET status = EXCLUDED.status, marked_at = EXCLUDED.marked_at,
	marked_by = EXCLUDED.marked_by, method = EXCLUDED.method
RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, mark.ID, mark.SessionID, mark.StudentID, mark.Status, mark.MarkedAt, mark.MarkedBy, mark.Method).Scan(&mark.ID); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// Roster returns every enrolled student of the session's class outer-joined
// with their mark, ordered by student code. Unmarked students carry a nil
// status.
func (r *AttendanceRepository) Roster(ctx context.Context, sessionID string) ([]models.SessionRosterRow, error) {
	const query = `SELECT s.id AS student_id, s.student_code, u.full_name AS student_name,
	a.status, a.marked_at
FROM attendance_sessions sess
JOIN enrollments e ON e.class_id = sess.class_id
JOIN students s ON s.id = e.student_id
JOIN users u ON u.id = s.user_id
LEFT JOIN attendance a ON a.session_id = sess.id AND a.student_id = s.id
WHERE sess.id = $1
ORDER BY s.student_code`
	var rows []models.SessionRosterRow
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("session roster: %w", err)
	}
	return rows, nil
}

// StudentHistory returns a student's per-session marks for one class, newest
// session first. Sessions without a mark still appear.
func (r *AttendanceRepository) StudentHistory(ctx context.Context, studentID, classID string) ([]models.StudentMarkRow, error) {
	const query = `SELECT sess.id AS session_id, sess.date, sess.start_time, sess.end_time,
	a.status, a.marked_at
FROM attendance_sessions sess
LEFT JOIN attendance a ON a.session_id = sess.id AND a.student_id = $1
WHERE sess.class_id = $2
ORDER BY sess.date DESC, sess.start_time DESC`
	var rows []models.StudentMarkRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, classID); err != nil {
		return nil, fmt.Errorf("student history: %w", err)
	}
	return rows, nil
}

// statusCounts is the raw aggregate the percentage math consumes.
type statusCounts struct {
	Total    int `db:"total"`
	Credited int `db:"credited"`
	Absent   int `db:"absent"`
}

// CountByStudent aggregates a student's marks, optionally restricted to one
// class. Only recorded marks are counted; unmarked sessions are invisible to
// the percentage.
func (r *AttendanceRepository) CountByStudent(ctx context.Context, studentID string, classID *string) (total, credited, absent int, err error) {
	query := `SELECT COUNT(*) AS total,
	COUNT(*) FILTER (WHERE a.status IN ('present', 'late')) AS credited,
	COUNT(*) FILTER (WHERE a.status = 'absent') AS absent
FROM attendance a`
	args := []interface{}{studentID}
	if classID != nil {
		query += `
JOIN attendance_sessions sess ON sess.id = a.session_id
WHERE a.student_id = $1 AND sess.class_id = $2`
		args = append(args, *classID)
	} else {
		query += `
WHERE a.student_id = $1`
	}
	var counts statusCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return 0, 0, 0, fmt.Errorf("count attendance: %w", err)
	}
	return counts.Total, counts.Credited, counts.Absent, nil
}

// CountOverview aggregates marks per class across the whole institution,
// optionally narrowed by department, course and session date range. Date
// bounds live on the session join so classes with no sessions in range still
// appear with zero counts.
func (r *AttendanceRepository) CountOverview(ctx context.Context, filter models.OverviewFilter) ([]models.OverviewRow, error) {
	query := `SELECT c.id AS class_id, co.code AS course_code, co.name AS course_name, c.section,
	COUNT(a.id) AS total,
	COUNT(a.id) FILTER (WHERE a.status IN ('present', 'late')) AS present,
	COUNT(a.id) FILTER (WHERE a.status = 'absent') AS absent
FROM classes c
JOIN courses co ON co.id = c.course_id
LEFT JOIN attendance_sessions sess ON sess.class_id = c.id`
	var args []interface{}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND sess.date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND sess.date <= $%d", len(args))
	}
	query += `
LEFT JOIN attendance a ON a.session_id = sess.id
WHERE 1=1`
	if filter.Department != "" {
		args = append(args, filter.Department)
		query += fmt.Sprintf(" AND co.department = $%d", len(args))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		query += fmt.Sprintf(" AND co.id = $%d", len(args))
	}
	query += `
GROUP BY c.id, co.code, co.name, c.section
ORDER BY co.code, c.section`
	var rows []models.OverviewRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count attendance overview: %w", err)
	}
	return rows, nil
}

// classCountRow is one student's aggregate within a class report.
type classCountRow struct {
	StudentCode string `db:"student_code"`
	StudentName string `db:"student_name"`
	Total       int    `db:"total"`
	Present     int    `db:"present"`
	Absent      int    `db:"absent"`
}

// CountByClass aggregates marks per enrolled student for a class report,
// ordered by student code. Students with no marks appear with zero counts.
func (r *AttendanceRepository) CountByClass(ctx context.Context, classID string) ([]models.ClassReportRow, error) {
	const query = `SELECT s.student_code, u.full_name AS student_name,
	COUNT(a.id) AS total,
	COUNT(a.id) FILTER (WHERE a.status IN ('present', 'late')) AS present,
	COUNT(a.id) FILTER (WHERE a.status = 'absent') AS absent
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN users u ON u.id = s.user_id
LEFT JOIN attendance_sessions sess ON sess.class_id = e.class_id
LEFT JOIN attendance a ON a.session_id = sess.id AND a.student_id = s.id
WHERE e.class_id = $1
GROUP BY s.student_code, u.full_name
ORDER BY s.student_code`
	var raw []classCountRow
	if err := r.db.SelectContext(ctx, &raw, query, classID); err != nil {
		return nil, fmt.Errorf("count attendance by class: %w", err)
	}
	rows := make([]models.ClassReportRow, 0, len(raw))
	for _, row := range raw {
		rows = append(rows, models.ClassReportRow{
			StudentCode: row.StudentCode,
			StudentName: row.StudentName,
			Total:       row.Total,
			Present:     row.Present,
			Absent:      row.Absent,
		})
	}
	return rows, nil
}
