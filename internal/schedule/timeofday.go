package schedule

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used across the service.
const DateLayout = "2006-01-02"

const minutesPerDay = 24 * 60

// TimeOfDay is an immutable wall-clock time within a single day.
// Its JSON form is {"hour":..,"minute":..,"second":..,"nano":..}.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
	Nano   int `json:"nano"`
}

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("hour out of range: %d", hour)
	}
	if minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("minute out of range: %d", minute)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// MustTimeOfDay is NewTimeOfDay for literals known to be valid.
func MustTimeOfDay(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return NewTimeOfDay(hour, minute)
}

// TimeOfDayFromClock projects the wall-clock portion of an instant.
func TimeOfDayFromClock(t time.Time) TimeOfDay {
	return TimeOfDay{
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
		Nano:   t.Nanosecond(),
	}
}

// Valid reports whether every field is within its calendar range.
// Values decoded from JSON can carry arbitrary ints, so they must
// pass here before any minute arithmetic is trusted.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 &&
		t.Minute >= 0 && t.Minute <= 59 &&
		t.Second >= 0 && t.Second <= 59 &&
		t.Nano >= 0 && t.Nano < int(time.Second)
}

// FromMinuteOfDay builds a TimeOfDay from minutes since midnight,
// wrapping modulo 24h. Negative inputs wrap backwards.
func FromMinuteOfDay(m int) TimeOfDay {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

// MinuteOfDay returns minutes since midnight, discarding seconds.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// AddMinutes returns t advanced by m minutes. The day is treated as a
// closed loop: crossing midnight wraps the hour modulo 24, so callers
// that care about the day boundary must check against a closing bound.
func (t TimeOfDay) AddMinutes(m int) TimeOfDay {
	out := FromMinuteOfDay(t.MinuteOfDay() + m)
	out.Second = t.Second
	out.Nano = t.Nano
	return out
}

func (t TimeOfDay) nanosecondOfDay() int64 {
	return (int64(t.MinuteOfDay())*60+int64(t.Second))*int64(time.Second) + int64(t.Nano)
}

// Before reports whether t is strictly earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.nanosecondOfDay() < other.nanosecondOfDay()
}

// After reports whether t is strictly later than other.
func (t TimeOfDay) After(other TimeOfDay) bool {
	return t.nanosecondOfDay() > other.nanosecondOfDay()
}

// String renders "HH:MM", the form used in slot-key fingerprints.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
