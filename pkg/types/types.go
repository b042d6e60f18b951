// Package types defines the core records shared by the rollcall engine:
// directory entities, their booked activities, and the half-open minute
// ranges used by conflict detection, availability and scheduling.
package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDay indicates that a day name could not be parsed.
	ErrInvalidDay = errors.New("invalid day of week")

	// ErrInvalidRange indicates a minute range outside [0,1440) or with start >= end.
	ErrInvalidRange = errors.New("invalid time range")

	// ErrInvalidClock indicates a malformed "HH:MM" clock string.
	ErrInvalidClock = errors.New("invalid clock time")
)

// Weekday is one of the seven symbolic days an activity can fall on.
// The zero value is invalid so that unset days are caught by Validate.
type Weekday int

// Weekday constants, Monday first.
const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

// String returns the full English day name, e.g. "Monday".
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Valid reports whether d is one of Monday..Sunday.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// ParseWeekday accepts full or three-letter day names in any case.
func ParseWeekday(s string) (Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if len(name) >= 3 {
		for d := Monday; d <= Sunday; d++ {
			full := strings.ToLower(weekdayNames[d])
			if name == full || name == full[:3] {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

// Weekdays returns Monday through Friday.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// AllDays returns Monday through Sunday.
func AllDays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// MarshalText implements encoding.TextMarshaler.
func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDay, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
