package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	parsed, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, parsed.Hour())
	assert.Equal(t, 30, parsed.Minute())
	assert.Equal(t, "09:30", parsed.String())

	for _, raw := range []string{"9:30:00:00", "24:00", "12:60", "noon", ""} {
		_, err := ParseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestClockTimeScan(t *testing.T) {
	var clock ClockTime
	require.NoError(t, clock.Scan("14:05:00"))
	assert.Equal(t, MustClock("14:05"), clock)

	require.NoError(t, clock.Scan([]byte("08:00")))
	assert.Equal(t, MustClock("08:00"), clock)
}

func TestTokenizeDaysGreedy(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"MWF", []string{"M", "W", "F"}},
		{"TTh", []string{"T", "Th"}},
		{"Th", []string{"Th"}},
		{"ThT", []string{"Th", "T"}},
		{"SSu", []string{"S", "Su"}},
		{"MTWThF", []string{"M", "T", "W", "Th", "F"}},
	}
	for _, tt := range tests {
		got, err := TokenizeDays(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	for _, raw := range []string{"", "X", "MX", "thm"} {
		_, err := TokenizeDays(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseSchedule(t *testing.T) {
	spec, err := ParseSchedule("MWF 09:00-10:00")
	require.NoError(t, err)
	assert.Equal(t, []string{"M", "W", "F"}, spec.Days)
	assert.Equal(t, MustClock("09:00"), spec.Start)
	assert.Equal(t, MustClock("10:00"), spec.End)
	assert.Equal(t, "MWF 09:00-10:00", spec.String())

	invalid := []string{
		"MWF 9:00-10:00",
		"MWF 09:00 - 10:00",
		"09:00-10:00",
		"MWF",
		"XYZ 09:00-10:00",
	}
	for _, raw := range invalid {
		_, err := ParseSchedule(raw)
		assert.Error(t, err, raw)
	}
}

func TestScheduleOverlaps(t *testing.T) {
	base, err := ParseSchedule("MWF 09:00-10:00")
	require.NoError(t, err)

	tests := []struct {
		other string
		want  bool
	}{
		{"MWF 09:00-10:00", true},
		{"M 09:30-10:30", true},
		{"TTh 09:00-10:00", false},
		{"MWF 10:00-11:00", false}, // touching ranges do not overlap
		{"MWF 08:00-09:00", false},
		{"F 08:30-09:01", true},
	}
	for _, tt := range tests {
		other, err := ParseSchedule(tt.other)
		require.NoError(t, err, tt.other)
		assert.Equal(t, tt.want, base.Overlaps(other), tt.other)
		assert.Equal(t, tt.want, other.Overlaps(base), tt.other)
	}
}
