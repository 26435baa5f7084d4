package models

import "time"

// NotificationTypeLowAttendance marks alerts emitted when a student's class
// percentage drops under the configured threshold.
const NotificationTypeLowAttendance = "low_attendance"

// Notification is an alert row on a user's account. Delivery is the UI's
// problem; the core only writes and lists rows.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	Read      bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
