package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/scrypster/rollcall/internal/notify"
	"github.com/scrypster/rollcall/internal/scheduler"
	"github.com/scrypster/rollcall/internal/storage"
	"github.com/scrypster/rollcall/internal/timeslot"
	"github.com/scrypster/rollcall/pkg/types"
)

// Book adds an activity for entityID if it overlaps nothing already booked
// that day. The check and the insert happen under one lock, so two bookings
// racing in this process cannot both succeed for the same minutes.
//
// Errors: types.ErrInvalidDay / types.ErrInvalidRange for malformed input,
// storage.ErrNotFound for an unknown entity, timeslot.ErrConflict (as a
// *timeslot.ConflictError) when the range is taken.
func (e *Engine) Book(ctx context.Context, entityID int64, day types.Weekday, start, end int, label string) (types.Activity, error) {
	if !day.Valid() {
		return types.Activity{}, fmt.Errorf("book: %w: %d", types.ErrInvalidDay, int(day))
	}
	r, err := types.NewRange(start, end)
	if err != nil {
		return types.Activity{}, fmt.Errorf("book: %w", err)
	}

	e.bookMu.Lock()
	defer e.bookMu.Unlock()

	ent, err := e.store.GetEntity(ctx, entityID)
	if err != nil {
		return types.Activity{}, fmt.Errorf("book: %w", err)
	}

	if err := timeslot.Check(types.OnDay(ent.Activities, day), r); err != nil {
		return types.Activity{}, fmt.Errorf("book entity %d: %w", entityID, err)
	}

	act := types.Activity{
		ID:        uuid.New().String(),
		EntityID:  entityID,
		Day:       day,
		Start:     r.Start,
		End:       r.End,
		Label:     label,
		CreatedAt: e.clock.Now(),
	}
	if err := e.store.AddActivity(ctx, &act); err != nil {
		return types.Activity{}, fmt.Errorf("book: failed to store activity: %w", err)
	}

	e.logger.Info("activity booked", "entity", entityID, "activity", act.String(), "id", act.ID)
	e.changed(notify.ActivityBooked, entityID)
	e.remind(*ent, act)
	return act, nil
}

// remind schedules an advisory reminder ReminderLead before the next
// occurrence of act. If the lead has already passed, it is due now.
func (e *Engine) remind(ent types.Entity, act types.Activity) {
	if e.config.ReminderLead <= 0 {
		return
	}
	now := e.clock.Now().In(e.config.Location)
	starts := nextOccurrence(now, act.Day, act.Start)
	due := starts.Add(-e.config.ReminderLead)
	if due.Before(now) {
		due = now
	}
	label := act.Label
	if label == "" {
		label = "activity"
	}
	msg := fmt.Sprintf("%s: %s starts %s", ent.Name, label, starts.Format("Mon 15:04"))
	e.reminders.Schedule(msg, due)
}

// nextOccurrence returns the first instant after now that falls on day at
// minute, in now's location.
func nextOccurrence(now time.Time, day types.Weekday, minute int) time.Time {
	ahead := (int(day) - int(weekdayOf(now)) + 7) % 7
	t := time.Date(now.Year(), now.Month(), now.Day()+ahead, minute/60, minute%60, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}

// Unbook removes an activity. Returns storage.ErrNotFound if it doesn't exist.
func (e *Engine) Unbook(ctx context.Context, activityID string) error {
	e.bookMu.Lock()
	defer e.bookMu.Unlock()

	if err := e.store.DeleteActivity(ctx, activityID); err != nil {
		return fmt.Errorf("unbook: %w", err)
	}
	e.logger.Info("activity cancelled", "id", activityID)
	e.changed(notify.ActivityCancelled, 0)
	return nil
}

// Gaps returns the free ranges of entityID on day within window.
func (e *Engine) Gaps(ctx context.Context, entityID int64, day types.Weekday, window types.Range) ([]types.Range, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("gaps: %w: %d", types.ErrInvalidDay, int(day))
	}
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("gaps: %w", err)
	}

	ent, err := e.store.GetEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("gaps: %w", err)
	}
	return timeslot.Gaps(types.Ranges(types.OnDay(ent.Activities, day)), window), nil
}

// GroupAvailability returns the ranges inside working hours on day when
// every listed entity is free. An empty ID list yields an empty result; an
// ID missing from the current snapshot yields storage.ErrNotFound.
func (e *Engine) GroupAvailability(ctx context.Context, entityIDs []int64, day types.Weekday) ([]types.Range, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("group availability: %w: %d", types.ErrInvalidDay, int(day))
	}
	ids := uniqueIDs(entityIDs)
	if len(ids) == 0 {
		return []types.Range{}, nil
	}

	s := e.snap.Load()
	for _, id := range ids {
		if _, ok := s.entities[id]; !ok {
			return nil, fmt.Errorf("group availability: entity %d: %w", id, storage.ErrNotFound)
		}
	}

	acts, err := e.store.ActivitiesOf(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("group availability: %w", err)
	}

	booked := make(map[int64][]types.Range, len(ids))
	for _, a := range acts {
		if a.Day == day {
			booked[a.EntityID] = append(booked[a.EntityID], a.Range())
		}
	}

	lists := make([][]types.Range, 0, len(ids))
	for _, id := range ids {
		lists = append(lists, timeslot.Gaps(booked[id], e.config.Window))
	}
	free := timeslot.IntersectGaps(lists)
	if free == nil {
		free = []types.Range{}
	}
	return free, nil
}

// Optimize assigns every request to a grid cell without double-booking any
// entity, taking their existing activities into account. The assignments
// are not persisted.
func (e *Engine) Optimize(ctx context.Context, requests []scheduler.Request) ([]scheduler.Assignment, error) {
	ids := make([]int64, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.EntityID)
	}
	existing, err := e.store.ActivitiesOf(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	solver := &scheduler.Solver{
		Grid:        e.config.Grid,
		MaxRequests: e.config.MaxRequests,
		MaxSteps:    e.config.MaxSteps,
	}
	started := time.Now()
	assignments, err := solver.Solve(requests, existing)
	if err != nil {
		e.logger.Warn("optimize failed", "requests", len(requests), "err", err)
		return nil, fmt.Errorf("optimize: %w", err)
	}

	if e.logger.GetLevel() <= log.DebugLevel {
		if verr := scheduler.Verify(assignments, existing); verr != nil {
			e.logger.Error("optimizer produced an unsound schedule", "err", verr)
		}
	}
	e.logger.Info("schedule optimized", "requests", len(requests), "took", time.Since(started))
	return assignments, nil
}

// Presence reports whether entityID is in an activity, free, or outside
// working hours at the instant at (evaluated in Config.Location), and the
// free gap a visitor should aim for. An activity covering the instant wins
// at any hour. Days outside Config.Grid.Days are off hours with no gap.
func (e *Engine) Presence(ctx context.Context, entityID int64, at time.Time) (Presence, error) {
	if _, ok := e.Entity(entityID); !ok {
		return Presence{}, fmt.Errorf("presence: entity %d: %w", entityID, storage.ErrNotFound)
	}

	local := at.In(e.config.Location)
	day := weekdayOf(local)
	minute := local.Hour()*60 + local.Minute()

	acts, err := e.store.ActivitiesFor(ctx, entityID, day)
	if err != nil {
		return Presence{}, fmt.Errorf("presence: %w", err)
	}

	p := Presence{EntityID: entityID, At: local, Day: day, Minute: minute, State: OffHours}
	window := e.config.Window
	workday := e.isWorkday(day)

	for i := range acts {
		if acts[i].Start <= minute && minute < acts[i].End {
			current := acts[i]
			p.Current = &current
			p.State = InActivity
			break
		}
	}
	if p.Current == nil && workday && window.Start <= minute && minute < window.End {
		p.State = Available
	}
	if !workday {
		return p, nil
	}

	for _, g := range timeslot.Gaps(types.Ranges(acts), window) {
		if g.End > minute {
			gap := g
			p.Free = &gap
			break
		}
	}
	return p, nil
}

func (e *Engine) isWorkday(day types.Weekday) bool {
	for _, d := range e.config.Grid.Days {
		if d == day {
			return true
		}
	}
	return false
}

// weekdayOf maps time.Weekday (Sunday = 0) onto types.Weekday (Monday = 1).
func weekdayOf(t time.Time) types.Weekday {
	if t.Weekday() == time.Sunday {
		return types.Sunday
	}
	return types.Weekday(t.Weekday())
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
