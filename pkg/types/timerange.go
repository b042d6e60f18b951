package types

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the size of the discrete time domain. Minute values
// range over [0, MinutesPerDay); a range end may equal MinutesPerDay.
const MinutesPerDay = 24 * 60

// Range is a half-open [Start, End) interval of minutes within one day.
// Touching ranges such as [0,60) and [60,120) do not overlap.
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// NewRange builds a validated range.
func NewRange(start, end int) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Validate checks 0 <= Start < End <= MinutesPerDay.
func (r Range) Validate() error {
	if r.Start < 0 || r.End > MinutesPerDay || r.Start >= r.End {
		return fmt.Errorf("%w: [%d,%d)", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Valid reports whether Validate would succeed.
func (r Range) Valid() bool {
	return r.Validate() == nil
}

// Len returns the number of minutes covered.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Overlaps reports whether r and o share at least one minute.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// Contains reports whether minute m lies inside r.
func (r Range) Contains(m int) bool {
	return m >= r.Start && m < r.End
}

// String renders the range as "09:00-10:30".
func (r Range) String() string {
	return FormatClock(r.Start) + "-" + FormatClock(r.End)
}

// ParseClock converts "HH:MM" or "HH:MM:SS" into minute-of-day. Seconds are
// truncated. "24:00" is accepted as the end-of-day sentinel.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	total := hours*60 + minutes
	if hours < 0 || minutes < 0 || minutes > 59 || total > MinutesPerDay {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return total, nil
}

// FormatClock renders minute-of-day as zero-padded "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
