package models

import "time"

// AttendanceStatus is the per-student status for one session.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// CountsAsAttended reports whether the status earns attendance credit.
// Lateness is not absence.
func (s AttendanceStatus) CountsAsAttended() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate
}

// Attendance is one mark for one (session, student) pair. There is at most
// one row per pair; re-marking overwrites status, marker and timestamp, so
// the row is current state with provenance rather than an event log.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedAt  time.Time        `db:"marked_at" json:"marked_at"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	Method    string           `db:"method" json:"method"`
}

// AttendanceSummary aggregates a student's marks. Percent is nil when no
// marks exist: "no data yet" is deliberately distinguishable from 0%.
type AttendanceSummary struct {
	Total    int      `json:"total"`
	Credited int      `json:"credited"`
	Absent   int      `json:"absent"`
	Percent  *float64 `json:"percent"`
}

// SessionRosterRow pairs an enrolled student with their mark for one session,
// if any.
type SessionRosterRow struct {
	StudentID   string            `db:"student_id" json:"student_id"`
	StudentCode string            `db:"student_code" json:"student_code"`
	StudentName string            `db:"student_name" json:"student_name"`
	Status      *AttendanceStatus `db:"status" json:"status,omitempty"`
	MarkedAt    *time.Time        `db:"marked_at" json:"marked_at,omitempty"`
}

// StudentMarkRow is one session of a student's per-class history, outer-joined
// with their mark.
type StudentMarkRow struct {
	SessionID string            `db:"session_id" json:"session_id"`
	Date      time.Time         `db:"date" json:"date"`
	StartTime ClockTime         `db:"start_time" json:"start_time"`
	EndTime   ClockTime         `db:"end_time" json:"end_time"`
	Status    *AttendanceStatus `db:"status" json:"status,omitempty"`
	MarkedAt  *time.Time        `db:"marked_at" json:"marked_at,omitempty"`
}

// ClassReportRow summarises one student within a class report.
type ClassReportRow struct {
	StudentCode string   `json:"student_code"`
	StudentName string   `json:"student_name"`
	Total       int      `json:"total"`
	Present     int      `json:"present"`
	Absent      int      `json:"absent"`
	Percent     *float64 `json:"percent"`
}

// OverviewFilter narrows the admin-wide report. Zero values mean "all".
type OverviewFilter struct {
	Department string
	CourseID   string
	From       *time.Time
	To         *time.Time
}

// OverviewRow summarises one class within the admin-wide report.
type OverviewRow struct {
	ClassID    string   `db:"class_id" json:"class_id"`
	CourseCode string   `db:"course_code" json:"course_code"`
	CourseName string   `db:"course_name" json:"course_name"`
	Section    string   `db:"section" json:"section"`
	Total      int      `db:"total" json:"total"`
	Present    int      `db:"present" json:"present"`
	Absent     int      `db:"absent" json:"absent"`
	Percent    *float64 `db:"-" json:"percent"`
}
