package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sessionEndingAt(end time.Time) *AttendanceSession {
	return &AttendanceSession{
		Date:      time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()),
		StartTime: ClockTime(end.Hour()*60 + end.Minute() - 60),
		EndTime:   ClockTime(end.Hour()*60 + end.Minute()),
	}
}

func TestSessionEditState(t *testing.T) {
	window := 24 * time.Hour
	end := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	session := sessionEndingAt(end)

	tests := []struct {
		name string
		now  time.Time
		want SessionEditState
	}{
		{"before end", end.Add(-30 * time.Minute), SessionEditable},
		{"one hour after end", end.Add(time.Hour), SessionEditable},
		{"exactly at window boundary", end.Add(window), SessionEditable},
		{"one second past window", end.Add(window + time.Second), SessionLockedWindowExpired},
		{"25 hours after end", end.Add(25 * time.Hour), SessionLockedWindowExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, session.EditState(tt.now, window))
		})
	}
}

func TestSessionEditStateFinalizedAlwaysLocked(t *testing.T) {
	end := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	session := sessionEndingAt(end)
	session.Finalized = true

	// Finalization wins regardless of the clock.
	assert.Equal(t, SessionLockedFinalized, session.EditState(end.Add(-time.Hour), 24*time.Hour))
	assert.Equal(t, SessionLockedFinalized, session.EditState(end.Add(time.Hour), 24*time.Hour))
	assert.Equal(t, SessionLockedFinalized, session.EditState(end.Add(48*time.Hour), 24*time.Hour))
}

func TestSessionPhase(t *testing.T) {
	window := 24 * time.Hour
	end := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	session := sessionEndingAt(end)

	assert.Equal(t, SessionPhaseOpen, session.Phase(end.Add(-time.Minute), window))
	assert.Equal(t, SessionPhaseEditableGrace, session.Phase(end.Add(time.Hour), window))
	assert.Equal(t, SessionPhaseLocked, session.Phase(end.Add(window+time.Minute), window))

	session.Finalized = true
	assert.Equal(t, SessionPhaseLocked, session.Phase(end.Add(-time.Minute), window))
}
