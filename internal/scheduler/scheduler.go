// Package scheduler assigns single-slot activity requests to (day, slot)
// cells of a fixed weekly grid so that no entity is booked twice in the
// same cell.
//
// The search is exhaustive depth-first backtracking over the grid in a
// fixed order, which makes results deterministic but the worst case
// exponential in the number of requests. Solver therefore enforces two
// bounds: MaxRequests caps the input size and MaxSteps caps the number of
// candidate cells tried. Exceeding either is reported separately from
// ErrInfeasible so callers can tell "no schedule exists" from "gave up".
package scheduler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/scrypster/rollcall/pkg/types"
)

var (
	// ErrInfeasible means the grid was exhausted without a full assignment.
	ErrInfeasible = errors.New("scheduler: no feasible assignment")

	// ErrTooManyRequests means the input exceeds Solver.MaxRequests.
	ErrTooManyRequests = errors.New("scheduler: too many requests")

	// ErrSearchBudget means the search hit Solver.MaxSteps before finishing.
	ErrSearchBudget = errors.New("scheduler: search budget exhausted")

	// ErrInvalidGrid means the grid has no cells or an out-of-range slot.
	ErrInvalidGrid = errors.New("scheduler: invalid grid")
)

// Request is one single-slot activity waiting for a cell.
type Request struct {
	ID       string `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	EntityID int64  `json:"entity_id" yaml:"entity_id"`
}

// Split turns a request needing several slots into single-slot chunks.
func Split(label string, entityID int64, slots int) []Request {
	out := make([]Request, 0, max(slots, 0))
	for i := 0; i < slots; i++ {
		out = append(out, Request{
			ID:       uuid.New().String(),
			Label:    label,
			EntityID: entityID,
		})
	}
	return out
}

// Assignment places a request in a grid cell.
type Assignment struct {
	Request Request       `json:"request"`
	Day     types.Weekday `json:"day"`
	Slot    types.Range   `json:"slot"`
}

// Activity converts the assignment into a bookable activity.
func (a Assignment) Activity() types.Activity {
	return types.Activity{
		EntityID: a.Request.EntityID,
		Day:      a.Day,
		Start:    a.Slot.Start,
		End:      a.Slot.End,
		Label:    a.Request.Label,
	}
}

// Grid is the candidate space: every slot start on every day, each slot
// lasting SlotMinutes.
type Grid struct {
	Days        []types.Weekday
	Slots       []int
	SlotMinutes int
}

// DefaultGrid is Monday to Friday, hourly slots from 09:00 to 16:00.
func DefaultGrid() Grid {
	return HourlyGrid(types.Weekdays(), 9*60, 17*60, 60)
}

// HourlyGrid builds a grid of back-to-back slots covering [from, to).
func HourlyGrid(days []types.Weekday, from, to, slotMinutes int) Grid {
	g := Grid{Days: days, SlotMinutes: slotMinutes}
	if slotMinutes <= 0 {
		return g
	}
	for start := from; start+slotMinutes <= to; start += slotMinutes {
		g.Slots = append(g.Slots, start)
	}
	return g
}

// Validate checks that the grid has cells and that slots are ascending,
// non-overlapping and inside the day.
func (g Grid) Validate() error {
	if len(g.Days) == 0 || len(g.Slots) == 0 || g.SlotMinutes <= 0 {
		return fmt.Errorf("%w: %d days, %d slots, %d minutes", ErrInvalidGrid, len(g.Days), len(g.Slots), g.SlotMinutes)
	}
	for _, d := range g.Days {
		if !d.Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidGrid, d)
		}
	}
	for i, s := range g.Slots {
		if err := (types.Range{Start: s, End: s + g.SlotMinutes}).Validate(); err != nil {
			return fmt.Errorf("%w: slot %d: %v", ErrInvalidGrid, s, err)
		}
		// Cells must be disjoint so that blocking one cell never hides a
		// collision in another.
		if i > 0 && s < g.Slots[i-1]+g.SlotMinutes {
			return fmt.Errorf("%w: slot %s overlaps the previous slot", ErrInvalidGrid, types.FormatClock(s))
		}
	}
	return nil
}

type cell struct {
	day  types.Weekday
	slot types.Range
}

func (g Grid) cells() []cell {
	out := make([]cell, 0, len(g.Days)*len(g.Slots))
	for _, d := range g.Days {
		for _, s := range g.Slots {
			out = append(out, cell{day: d, slot: types.Range{Start: s, End: s + g.SlotMinutes}})
		}
	}
	return out
}

// sortedEntities returns the distinct entity ids of requests, ascending.
func sortedEntities(requests []Request) []int64 {
	seen := make(map[int64]struct{})
	for _, r := range requests {
		seen[r.EntityID] = struct{}{}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
