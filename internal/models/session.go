package models

import "time"

// SessionEditState is the verdict of the editability check consulted on every
// mark-write attempt. The two locked states stay distinct so callers can
// report whether a human finalized the session or the clock did.
type SessionEditState int

const (
	SessionEditable SessionEditState = iota
	SessionLockedFinalized
	SessionLockedWindowExpired
)

// SessionPhase names the lifecycle stage of a session for display purposes.
type SessionPhase string

const (
	SessionPhaseOpen          SessionPhase = "OPEN"
	SessionPhaseEditableGrace SessionPhase = "EDITABLE_GRACE"
	SessionPhaseLocked        SessionPhase = "LOCKED"
)

// AttendanceSession is one concrete occurrence of a Class on a specific date.
// Its start/end times are independent of the class's recurring schedule.
type AttendanceSession struct {
	ID          string     `db:"id" json:"id"`
	ClassID     string     `db:"class_id" json:"class_id"`
	Date        time.Time  `db:"date" json:"date"`
	StartTime   ClockTime  `db:"start_time" json:"start_time"`
	EndTime     ClockTime  `db:"end_time" json:"end_time"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	Active      bool       `db:"is_active" json:"is_active"`
	Finalized   bool       `db:"is_finalized" json:"is_finalized"`
	FinalizedAt *time.Time `db:"finalized_at" json:"finalized_at,omitempty"`
	FinalizedBy *string    `db:"finalized_by" json:"finalized_by,omitempty"`
}

// EndsAt combines the session date with its end time.
func (s *AttendanceSession) EndsAt() time.Time {
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(),
		s.EndTime.Hour(), s.EndTime.Minute(), 0, 0, s.Date.Location())
}

// EditState evaluates whether marks may be written right now. Pure: it reads
// only the session row, the supplied clock and the grace window, and must be
// recomputed per request rather than cached.
//
//	editable = !finalized && (now < end || now-end <= window)
func (s *AttendanceSession) EditState(now time.Time, window time.Duration) SessionEditState {
	if s.Finalized {
		return SessionLockedFinalized
	}
	end := s.EndsAt()
	if now.Before(end) || now.Sub(end) <= window {
		return SessionEditable
	}
	return SessionLockedWindowExpired
}

// Phase reports the lifecycle stage: OPEN until the session end time passes,
// EDITABLE_GRACE while the post-end window is still open, LOCKED after
// finalization or window expiry.
func (s *AttendanceSession) Phase(now time.Time, window time.Duration) SessionPhase {
	if s.Finalized {
		return SessionPhaseLocked
	}
	end := s.EndsAt()
	switch {
	case now.Before(end):
		return SessionPhaseOpen
	case now.Sub(end) <= window:
		return SessionPhaseEditableGrace
	default:
		return SessionPhaseLocked
	}
}
