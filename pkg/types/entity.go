package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidEntity indicates an entity record that cannot be indexed.
var ErrInvalidEntity = errors.New("invalid entity")

// Entity is a person listed in the directory. Entities are owned by the
// directory store; the engine only holds copies for the lifetime of an
// index snapshot.
type Entity struct {
	ID         int64    `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Aliases    []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Attributes string   `json:"attributes,omitempty" yaml:"attributes,omitempty"` // free text, e.g. specialization

	// Directory metadata carried through for callers; not indexed.
	Department string `json:"department,omitempty" yaml:"department,omitempty"`
	Room       string `json:"room,omitempty" yaml:"room,omitempty"`
	Floor      string `json:"floor,omitempty" yaml:"floor,omitempty"`

	Activities []Activity `json:"activities,omitempty" yaml:"activities,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Validate checks the fields required for indexing.
func (e *Entity) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidEntity, e.ID)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: entity %d has no name", ErrInvalidEntity, e.ID)
	}
	return nil
}

// Activity is one booked range on a given day for an entity.
type Activity struct {
	ID        string    `json:"id" yaml:"id,omitempty"`
	EntityID  int64     `json:"entity_id" yaml:"entity_id,omitempty"`
	Day       Weekday   `json:"day" yaml:"day"`
	Start     int       `json:"start" yaml:"-"`
	End       int       `json:"end" yaml:"-"`
	Label     string    `json:"label" yaml:"label"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// Range returns the activity's half-open minute range.
func (a Activity) Range() Range {
	return Range{Start: a.Start, End: a.End}
}

// Validate checks the day and range invariants.
func (a Activity) Validate() error {
	if !a.Day.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDay, int(a.Day))
	}
	return a.Range().Validate()
}

// String renders "Monday 09:00-10:00 Algorithms".
func (a Activity) String() string {
	return fmt.Sprintf("%s %s %s", a.Day, a.Range(), a.Label)
}

// Ranges projects activities to their minute ranges.
func Ranges(activities []Activity) []Range {
	out := make([]Range, 0, len(activities))
	for _, a := range activities {
		out = append(out, a.Range())
	}
	return out
}

// OnDay filters activities to the given day.
func OnDay(activities []Activity, day Weekday) []Activity {
	var out []Activity
	for _, a := range activities {
		if a.Day == day {
			out = append(out, a)
		}
	}
	return out
}
