package models

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day in minutes since midnight. It exists
// so schedule and session times compare as plain integers instead of being
// tied to a date or a location.
type ClockTime int

// ParseClock parses an "HH:MM" string.
func ParseClock(raw string) (ClockTime, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return ClockTime(hour*60 + minute), nil
}

// MustClock parses an "HH:MM" string and panics on failure. Test helper.
func MustClock(raw string) ClockTime {
	t, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Scan implements sql.Scanner so ClockTime columns stored as "HH:MM[:SS]"
// text or TIME values load directly.
func (t *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = 0
		return nil
	case time.Time:
		*t = ClockTime(v.Hour()*60 + v.Minute())
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

func (t *ClockTime) scanString(raw string) error {
	if len(raw) > 5 {
		raw = raw[:5]
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer, persisting as "HH:MM:SS".
func (t ClockTime) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:00", t.Hour(), t.Minute()), nil
}

// MarshalJSON renders the time as a quoted "HH:MM" string.
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted "HH:MM" string.
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Hour returns the hour component.
func (t ClockTime) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t ClockTime) Minute() int { return int(t) % 60 }

// String renders the time as "HH:MM".
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Canonical day codes, two-letter codes listed first so tokenization is
// greedy: "Th" is Thursday, never Tuesday followed by an unknown 'h'.
var dayCodes = []string{"Th", "Su", "M", "T", "W", "F", "S"}

// TokenizeDays splits a day string like "MWF" or "TTh" into canonical day
// tokens. Unknown characters are rejected rather than skipped.
func TokenizeDays(raw string) ([]string, error) {
	var days []string
	for i := 0; i < len(raw); {
		matched := ""
		for _, code := range dayCodes {
			if strings.HasPrefix(raw[i:], code) {
				matched = code
				break
			}
		}
		if matched == "" {
			return nil, fmt.Errorf("unknown day code at %q", raw[i:])
		}
		days = append(days, matched)
		i += len(matched)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("empty day set")
	}
	return days, nil
}

var schedulePattern = regexp.MustCompile(`^([A-Za-z]+) (\d{2}:\d{2})-(\d{2}:\d{2})$`)

// ScheduleSpec is a parsed recurring meeting time: a set of days plus a daily
// time range.
type ScheduleSpec struct {
	Days  []string
	Start ClockTime
	End   ClockTime
}

// ParseSchedule parses a schedule string of the form "MWF 09:00-10:00". Only
// the lexical shape and day alphabet are validated here; range constraints
// (operating hours, ordering) are the caller's policy.
func ParseSchedule(raw string) (*ScheduleSpec, error) {
	m := schedulePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("schedule %q does not match \"DAYS HH:MM-HH:MM\"", raw)
	}
	days, err := TokenizeDays(m[1])
	if err != nil {
		return nil, err
	}
	start, err := ParseClock(m[2])
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(m[3])
	if err != nil {
		return nil, err
	}
	return &ScheduleSpec{Days: days, Start: start, End: end}, nil
}

// String renders the spec back into its canonical form.
func (s *ScheduleSpec) String() string {
	return fmt.Sprintf("%s %s-%s", strings.Join(s.Days, ""), s.Start, s.End)
}

// DaysOverlap reports whether the two specs share at least one day token.
func (s *ScheduleSpec) DaysOverlap(other *ScheduleSpec) bool {
	set := make(map[string]struct{}, len(s.Days))
	for _, d := range s.Days {
		set[d] = struct{}{}
	}
	for _, d := range other.Days {
		if _, ok := set[d]; ok {
			return true
		}
	}
	return false
}

// TimesOverlap reports whether the daily time ranges intersect. Ranges that
// merely touch (one ends exactly when the other starts) do not overlap.
func (s *ScheduleSpec) TimesOverlap(other *ScheduleSpec) bool {
	return !(s.End <= other.Start || s.Start >= other.End)
}

// Overlaps reports whether two specs collide: shared day and intersecting
// time range.
func (s *ScheduleSpec) Overlaps(other *ScheduleSpec) bool {
	return s.DaysOverlap(other) && s.TimesOverlap(other)
}
