package models

import "time"

// Class is one scheduled offering of a Course taught by one Faculty to one
// Section. Schedule holds the canonical "DAYS HH:MM-HH:MM" string validated
// at creation time.
type Class struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	FacultyID string    `db:"faculty_id" json:"faculty_id"`
	Section   string    `db:"section" json:"section"`
	Schedule  string    `db:"schedule" json:"schedule"`
	Room      string    `db:"room" json:"room"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClassDetail extends Class with course and faculty display fields.
type ClassDetail struct {
	Class
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseName  string `db:"course_name" json:"course_name"`
	FacultyName string `db:"faculty_name" json:"faculty_name"`
}

// ClassConflict identifies the existing class that blocks a new schedule.
type ClassConflict struct {
	ClassID    string `json:"class_id"`
	CourseName string `json:"course_name"`
	Section    string `json:"section"`
	Schedule   string `json:"schedule"`
}
