package timeslot

import (
	"errors"
	"fmt"

	"github.com/scrypster/rollcall/pkg/types"
)

// ErrConflict is matched by every *ConflictError.
var ErrConflict = errors.New("time slot conflict")

// ConflictError reports the existing activity a proposal collides with.
type ConflictError struct {
	Proposed types.Range
	Existing types.Activity
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("proposed %s on %s overlaps %q (%s)",
		e.Proposed, e.Existing.Day, e.Existing.Label, e.Existing.Range())
}

// Is makes errors.Is(err, ErrConflict) true.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Overlaps reports whether two half-open ranges share a minute.
func Overlaps(a, b types.Range) bool {
	return a.Overlaps(b)
}

// Detector checks a proposed range against one entity's activities for a
// single day. It is built per request and holds no shared state.
type Detector struct {
	occupancy  *Occupancy
	activities []types.Activity
}

// NewDetector seeds an occupancy tree with existing activities.
func NewDetector(existing []types.Activity) *Detector {
	d := &Detector{occupancy: NewOccupancy(), activities: existing}
	for _, a := range existing {
		d.occupancy.Add(a.Range(), 1)
	}
	return d
}

// Check returns nil when proposed is free, a *ConflictError when it
// overlaps an existing activity, or types.ErrInvalidRange when proposed is
// malformed.
func (d *Detector) Check(proposed types.Range) error {
	if err := proposed.Validate(); err != nil {
		return err
	}
	if d.occupancy.Max(proposed) == 0 {
		return nil
	}
	for _, a := range d.activities {
		if a.Range().Overlaps(proposed) {
			return &ConflictError{Proposed: proposed, Existing: a}
		}
	}
	// Unreachable while the tree mirrors d.activities.
	return &ConflictError{Proposed: proposed}
}

// Occupied reports whether any minute of r is booked.
func (d *Detector) Occupied(r types.Range) bool {
	return d.occupancy.Max(r) > 0
}

// Check is a one-shot NewDetector(existing).Check(proposed).
func Check(existing []types.Activity, proposed types.Range) error {
	return NewDetector(existing).Check(proposed)
}
