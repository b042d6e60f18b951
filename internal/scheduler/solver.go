package scheduler

import (
	"fmt"

	"github.com/scrypster/rollcall/pkg/types"
)

// Solver runs the bounded backtracking search.
type Solver struct {
	Grid        Grid
	MaxRequests int // 0 means unbounded
	MaxSteps    int // 0 means unbounded
}

// NewSolver returns a solver over grid with the default bounds.
func NewSolver(grid Grid) *Solver {
	return &Solver{Grid: grid, MaxRequests: 64, MaxSteps: 1_000_000}
}

// searchState is the blocked set and partial schedule threaded through the
// recursion. place and unplace are exact inverses.
type searchState struct {
	cells    []cell
	blocked  map[int64][]bool // entity -> blocked flag per cell index
	schedule []Assignment
	steps    int
	maxSteps int
}

func newSearchState(cells []cell, maxSteps int) *searchState {
	return &searchState{cells: cells, blocked: make(map[int64][]bool), maxSteps: maxSteps}
}

func (s *searchState) row(entity int64) []bool {
	r, ok := s.blocked[entity]
	if !ok {
		r = make([]bool, len(s.cells))
		s.blocked[entity] = r
	}
	return r
}

func (s *searchState) block(entity int64, c int) {
	s.row(entity)[c] = true
}

func (s *searchState) free(entity int64, c int) bool {
	return !s.row(entity)[c]
}

func (s *searchState) place(req Request, c int) {
	s.row(req.EntityID)[c] = true
	s.schedule = append(s.schedule, Assignment{Request: req, Day: s.cells[c].day, Slot: s.cells[c].slot})
}

func (s *searchState) unplace(req Request, c int) {
	s.row(req.EntityID)[c] = false
	s.schedule = s.schedule[:len(s.schedule)-1]
}

func (s *searchState) freeCells(entity int64) int {
	n := 0
	for _, b := range s.row(entity) {
		if !b {
			n++
		}
	}
	return n
}

// Solve assigns every request to a free cell, in request order. Existing
// activities block each cell they overlap for their entity. On failure no
// partial schedule is returned.
func (sv *Solver) Solve(requests []Request, existing []types.Activity) ([]Assignment, error) {
	if err := sv.Grid.Validate(); err != nil {
		return nil, err
	}
	if sv.MaxRequests > 0 && len(requests) > sv.MaxRequests {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyRequests, len(requests), sv.MaxRequests)
	}
	if len(requests) == 0 {
		return []Assignment{}, nil
	}

	state := newSearchState(sv.Grid.cells(), sv.MaxSteps)
	for _, a := range existing {
		for i, c := range state.cells {
			if c.day == a.Day && c.slot.Overlaps(a.Range()) {
				state.block(a.EntityID, i)
			}
		}
	}

	demand := make(map[int64]int)
	for _, r := range requests {
		demand[r.EntityID]++
	}
	for _, id := range sortedEntities(requests) {
		if free := state.freeCells(id); demand[id] > free {
			return nil, fmt.Errorf("%w: entity %d needs %d slots, %d free", ErrInfeasible, id, demand[id], free)
		}
	}

	ok, err := backtrack(requests, 0, state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInfeasible
	}
	return append([]Assignment(nil), state.schedule...), nil
}

func backtrack(requests []Request, index int, state *searchState) (bool, error) {
	if index == len(requests) {
		return true, nil
	}
	req := requests[index]
	for c := range state.cells {
		if !state.free(req.EntityID, c) {
			continue
		}
		state.steps++
		if state.maxSteps > 0 && state.steps > state.maxSteps {
			return false, fmt.Errorf("%w after %d steps", ErrSearchBudget, state.maxSteps)
		}

		state.place(req, c)
		ok, err := backtrack(requests, index+1, state)
		if err != nil || ok {
			return ok, err
		}
		state.unplace(req, c)
	}
	return false, nil
}

// Verify returns the first (entity, day, slot) collision among assignments
// and existing activities, or nil when the schedule is sound.
func Verify(assignments []Assignment, existing []types.Activity) error {
	for i, a := range assignments {
		for _, e := range existing {
			if e.EntityID == a.Request.EntityID && e.Day == a.Day && e.Range().Overlaps(a.Slot) {
				return fmt.Errorf("assignment %q on %s %s collides with existing %q", a.Request.Label, a.Day, a.Slot, e.Label)
			}
		}
		for _, b := range assignments[:i] {
			if b.Request.EntityID == a.Request.EntityID && b.Day == a.Day && b.Slot.Overlaps(a.Slot) {
				return fmt.Errorf("assignments %q and %q share %s %s", b.Request.Label, a.Request.Label, a.Day, a.Slot)
			}
		}
	}
	return nil
}
