package domain

import (
	"fmt"
)

// TimeOfDay is a clock value expressed as minutes from midnight [0, 1440).
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour and minute pair.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 {
		return 0, NewInvalidInputError("hour must be between 0 and 23", fmt.Sprintf("hour=%d", hour))
	}
	if minute < 0 || minute > 59 {
		return 0, NewInvalidInputError("minute must be between 0 and 59", fmt.Sprintf("minute=%d", minute))
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustTimeOfDay is NewTimeOfDay panicking on invalid input, for literals in
// wiring and tests.
func MustTimeOfDay(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay parses a "HH:MM" clock string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, NewInvalidInputError("time of day must be HH:MM", s)
	}
	return NewTimeOfDay(hour, minute)
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats the value as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// TimeWindow is a daily time range. A window is either all-day, or bounded
// by both Start and End. Start > End is a valid overnight window spanning
// midnight (e.g. 20:00-08:00), not an error.
type TimeWindow struct {
	AllDay bool       `json:"all_day"`
	Start  *TimeOfDay `json:"start,omitempty"`
	End    *TimeOfDay `json:"end,omitempty"`
}

// NewTimeWindow builds a bounded window from start and end clock values.
func NewTimeWindow(start, end TimeOfDay) TimeWindow {
	s, e := start, end
	return TimeWindow{Start: &s, End: &e}
}

// AllDayWindow builds a window covering the whole day.
func AllDayWindow() TimeWindow {
	return TimeWindow{AllDay: true}
}

// Validate enforces the structural invariant: an all-day window carries no
// bounds, a bounded window carries both. The matcher never sees a window
// that fails this check.
func (w TimeWindow) Validate() error {
	if w.AllDay {
		if w.Start != nil || w.End != nil {
			return NewMalformedWindowError("all-day window must not carry start or end times")
		}
		return nil
	}
	if w.Start == nil || w.End == nil {
		return NewMalformedWindowError("bounded window requires both start and end times")
	}
	return nil
}

// Overnight reports whether the window spans midnight.
func (w TimeWindow) Overnight() bool {
	return !w.AllDay && w.Start != nil && w.End != nil && *w.Start > *w.End
}

// String renders the window for logs and errors.
func (w TimeWindow) String() string {
	if w.AllDay {
		return "24h"
	}
	if w.Start == nil || w.End == nil {
		return "invalid"
	}
	return fmt.Sprintf("%s-%s", w.Start, w.End)
}
