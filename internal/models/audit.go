package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionLogout          = "LOGOUT"
	AuditActionPasswordChange  = "PASSWORD_CHANGE"
	AuditActionUserCreate      = "USER_CREATE"
	AuditActionUserDelete      = "USER_DELETE"
	AuditActionCourseCreate    = "COURSE_CREATE"
	AuditActionCourseDelete    = "COURSE_DELETE"
	AuditActionClassCreate     = "CLASS_CREATE"
	AuditActionClassDelete     = "CLASS_DELETE"
	AuditActionSessionCreate   = "SESSION_CREATE"
	AuditActionSessionFinalize = "SESSION_FINALIZE"
	AuditActionMarkAttendance  = "MARK_ATTENDANCE"
)

// AuditLog is an append-only record of a user-initiated action. It is a
// write-only sink; nothing in the core reads it back.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	Entity    string    `db:"entity" json:"entity"`
	EntityID  *string   `db:"entity_id" json:"entity_id,omitempty"`
	Details   string    `db:"details" json:"details"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
