package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/daybell/internal/constants"
)

// TimeOfDay is a wall-clock minute of the day in the range [0, 1440).
// It formats as zero-padded HH:MM, so integer order and string order agree.
type TimeOfDay int

const minutesPerDay = 24 * 60

// NewTimeOfDay builds a TimeOfDay from an hour and minute.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day out of range: %02d:%02d", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseTimeOfDay parses a zero-padded HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != len(constants.TimeFormat) || s[2] != ':' {
		return 0, fmt.Errorf("invalid time format (expected HH:MM): %q", s)
	}
	t, err := time.Parse(constants.TimeFormat, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time format (expected HH:MM): %w", err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// TimeOfDayOf returns the local hour:minute of t, truncated to the minute.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// IsSlot reports whether t falls on a half-hour boundary.
func (t TimeOfDay) IsSlot() bool {
	return t.Valid() && int(t)%constants.SlotMinutes == 0
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("time of day out of range: %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Slots returns the 48 half-hour slots 00:00, 00:30, ... 23:30.
func Slots() []TimeOfDay {
	slots := make([]TimeOfDay, 0, constants.SlotsPerDay)
	for m := 0; m < minutesPerDay; m += constants.SlotMinutes {
		slots = append(slots, TimeOfDay(m))
	}
	return slots
}
