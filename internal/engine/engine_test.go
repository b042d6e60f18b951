package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/rollcall/internal/clock"
	"github.com/scrypster/rollcall/internal/config"
	"github.com/scrypster/rollcall/internal/logging"
	"github.com/scrypster/rollcall/internal/notify"
	"github.com/scrypster/rollcall/internal/scheduler"
	"github.com/scrypster/rollcall/internal/storage"
	"github.com/scrypster/rollcall/internal/storage/sqlite"
	"github.com/scrypster/rollcall/internal/timeslot"
	"github.com/scrypster/rollcall/pkg/types"
)

// Monday 2 March 2026, 10:30 in Kolkata.
var mondayMorning = time.Date(2026, 3, 2, 10, 30, 0, 0, mustLoad("Asia/Kolkata"))

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Location = mustLoad("Asia/Kolkata")
	return cfg
}

func directory() []types.Entity {
	return []types.Entity{
		{ID: 1, Name: "Prashant Kumar", Aliases: []string{"PK"}, Attributes: "Machine Learning, Compilers"},
		{ID: 2, Name: "Prakash Rao", Attributes: "Networks"},
		{ID: 3, Name: "Anita Desai", Attributes: "machine vision"},
		{ID: 5, Name: "Meera Iyer", Attributes: "Databases"},
	}
}

func newTestEngine(t *testing.T) (*Engine, *sqlite.DirectoryStore) {
	t.Helper()
	store, err := sqlite.NewDirectoryStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for _, ent := range directory() {
		ent := ent
		require.NoError(t, store.UpsertEntity(ctx, &ent))
	}

	e, err := New(store, testConfig(),
		WithLogger(logging.Discard()),
		WithClock(clock.Fake(mondayMorning)))
	require.NoError(t, err)
	require.NoError(t, e.Rebuild(ctx))
	return e, store
}

func ids(entities []types.Entity) []int64 {
	out := make([]int64, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID)
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)

	store, err := sqlite.NewDirectoryStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	cfg := DefaultConfig()
	cfg.FuzzyMaxDistance = -1
	_, err = New(store, cfg)
	assert.Error(t, err)
}

func TestSearch_PrefixThenFuzzy(t *testing.T) {
	e, _ := newTestEngine(t)

	got, err := e.Search("pra")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(got))

	got, err = e.Search("Prashant Kumar")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got))

	got, err = e.Search("prashnat")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got), "transposition falls back to fuzzy")

	got, err = e.Search("machine")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(got))

	got, err = e.Search("   ")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = e.Search("zzzzzzzz")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_ShortQueriesDoNotFuzzyMatchAliases(t *testing.T) {
	e, _ := newTestEngine(t)

	for _, q := range []string{"qq", "zx", "xyz"} {
		got, err := e.Search(q)
		require.NoError(t, err)
		assert.Empty(t, got, "query %q", q)
	}

	got, err := e.Search("pk")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got), "exact alias still matches")

	got, err = e.Search("Prasant")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got))
}

func TestRecommend(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Equal(t, []int64{3}, e.Recommend(1))
	assert.Equal(t, []int64{1}, e.Recommend(3))
	assert.Empty(t, e.Recommend(2))
	assert.Empty(t, e.Recommend(404))
}

type failingSource struct{ err error }

func (f failingSource) ListEntities(context.Context) ([]types.Entity, error) { return nil, f.err }

func TestRebuildFailureKeepsPreviousSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)
	before := e.Stats()
	require.Equal(t, 4, before.Entities)

	boom := errors.New("connection refused")
	e.source = failingSource{err: boom}

	err := e.Rebuild(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRebuildFailed)
	assert.ErrorIs(t, err, boom)

	var rerr *RebuildError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, before.BuiltAt, rerr.PreviousBuiltAt)

	got, err := e.Search("meera")
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids(got), "old snapshot still serves")
}

func TestRebuildThroughGuardedSource(t *testing.T) {
	e, store := newTestEngine(t)
	e.source = storage.NewGuarded(store, storage.BreakerConfig{}, logging.Discard())

	ent := types.Entity{ID: 9, Name: "Zoya Khan", Attributes: "Networks"}
	require.NoError(t, store.UpsertEntity(context.Background(), &ent))
	require.NoError(t, e.Rebuild(context.Background()))

	got, err := e.Search("zoya")
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, ids(got))
	assert.Equal(t, []int64{2}, e.Recommend(9))
}

func TestRebuildFromSkipsInvalid(t *testing.T) {
	e, _ := newTestEngine(t)
	e.RebuildFrom([]types.Entity{{ID: 10, Name: "Solo"}, {ID: 0, Name: "bad"}, {ID: 11}})

	assert.Equal(t, 1, e.Stats().Entities)
	_, ok := e.Entity(10)
	assert.True(t, ok)
	_, ok = e.Entity(1)
	assert.False(t, ok)
}

func TestBook_EntityFiveMonday(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	var events []string
	e.SetOnChange(func(eventType string, entityID int64) { events = append(events, eventType) })

	first, err := e.Book(ctx, 5, types.Monday, 540, 600, "Databases")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, mondayMorning, first.CreatedAt)

	_, err = e.Book(ctx, 5, types.Monday, 570, 630, "Overlap")
	require.Error(t, err)
	assert.ErrorIs(t, err, timeslot.ErrConflict)
	var cerr *timeslot.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, first.ID, cerr.Existing.ID)

	_, err = e.Book(ctx, 5, types.Monday, 600, 660, "Touching")
	assert.NoError(t, err, "touching ranges do not conflict")

	_, err = e.Book(ctx, 5, types.Tuesday, 570, 630, "Other day")
	assert.NoError(t, err)

	assert.Equal(t, []string{notify.ActivityBooked, notify.ActivityBooked, notify.ActivityBooked}, events)
}

func TestBook_Errors(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Book(ctx, 404, types.Monday, 540, 600, "x")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = e.Book(ctx, 5, types.Monday, 600, 540, "x")
	assert.ErrorIs(t, err, types.ErrInvalidRange)

	_, err = e.Book(ctx, 5, types.Weekday(0), 540, 600, "x")
	assert.ErrorIs(t, err, types.ErrInvalidDay)
}

func TestBook_ConcurrentSameSlotOnlyOneWins(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Book(ctx, 2, types.Wednesday, 600, 660, "race"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestUnbook(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	act, err := e.Book(ctx, 1, types.Friday, 540, 600, "x")
	require.NoError(t, err)
	require.NoError(t, e.Unbook(ctx, act.ID))
	assert.ErrorIs(t, e.Unbook(ctx, act.ID), storage.ErrNotFound)

	_, err = e.Book(ctx, 1, types.Friday, 540, 600, "again")
	assert.NoError(t, err)
}

func TestGapsAndGroupAvailability(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Book(ctx, 1, types.Monday, 600, 660, "a")
	require.NoError(t, err)
	_, err = e.Book(ctx, 2, types.Monday, 630, 720, "b")
	require.NoError(t, err)

	gaps, err := e.Gaps(ctx, 1, types.Monday, types.Range{Start: 540, End: 720})
	require.NoError(t, err)
	assert.Equal(t, []types.Range{{Start: 540, End: 600}, {Start: 660, End: 720}}, gaps)

	_, err = e.Gaps(ctx, 1, types.Monday, types.Range{Start: 700, End: 600})
	assert.ErrorIs(t, err, types.ErrInvalidRange)

	free, err := e.GroupAvailability(ctx, []int64{2, 1, 2}, types.Monday)
	require.NoError(t, err)
	assert.Equal(t, []types.Range{{Start: 540, End: 600}, {Start: 720, End: 1020}}, free)

	free, err = e.GroupAvailability(ctx, nil, types.Monday)
	require.NoError(t, err)
	assert.NotNil(t, free)
	assert.Empty(t, free)

	_, err = e.GroupAvailability(ctx, []int64{1, 404}, types.Monday)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOptimize(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Book(ctx, 1, types.Monday, 540, 600, "existing")
	require.NoError(t, err)

	requests := append(scheduler.Split("Compilers", 1, 2), scheduler.Split("Networks", 2, 1)...)
	got, err := e.Optimize(ctx, requests)
	require.NoError(t, err)
	require.Len(t, got, 3)

	existing, err := e.store.ActivitiesOf(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.NoError(t, scheduler.Verify(got, existing))
	assert.Equal(t, types.Range{Start: 600, End: 660}, got[0].Slot, "09:00 is taken, next slot is used")
}

func TestOptimize_Bounds(t *testing.T) {
	e, _ := newTestEngine(t)
	e.config.MaxRequests = 2

	_, err := e.Optimize(context.Background(), scheduler.Split("x", 1, 3))
	assert.ErrorIs(t, err, scheduler.ErrTooManyRequests)
}

func TestPresence(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	act, err := e.Book(ctx, 5, types.Monday, 600, 660, "Databases")
	require.NoError(t, err)

	// 10:30 Kolkata falls inside 10:00-11:00.
	p, err := e.Presence(ctx, 5, mondayMorning.UTC())
	require.NoError(t, err)
	assert.Equal(t, InActivity, p.State)
	require.NotNil(t, p.Current)
	assert.Equal(t, act.ID, p.Current.ID)
	assert.Equal(t, types.Monday, p.Day)
	assert.Equal(t, 630, p.Minute)
	require.NotNil(t, p.Free)
	assert.Equal(t, types.Range{Start: 660, End: 1020}, *p.Free)

	p, err = e.Presence(ctx, 5, mondayMorning.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Available, p.State)
	assert.Equal(t, types.Range{Start: 540, End: 600}, *p.Free)

	p, err = e.Presence(ctx, 5, mondayMorning.Add(-3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, OffHours, p.State)
	assert.Equal(t, types.Range{Start: 540, End: 600}, *p.Free, "next gap of the day")

	p, err = e.Presence(ctx, 5, mondayMorning.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, OffHours, p.State)
	assert.Nil(t, p.Free)

	sunday := time.Date(2026, 3, 1, 12, 0, 0, 0, e.config.Location)
	p, err = e.Presence(ctx, 5, sunday)
	require.NoError(t, err)
	assert.Equal(t, types.Sunday, p.Day)
	assert.Equal(t, OffHours, p.State, "Sunday is not a scheduled day")
	assert.Nil(t, p.Free)

	_, err = e.Presence(ctx, 404, mondayMorning)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPresence_ActivityOutsideWorkingHours(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	evening, err := e.Book(ctx, 5, types.Monday, 18*60, 19*60, "Evening lab")
	require.NoError(t, err)

	at := time.Date(2026, 3, 2, 18, 30, 0, 0, e.config.Location)
	p, err := e.Presence(ctx, 5, at)
	require.NoError(t, err)
	assert.Equal(t, InActivity, p.State)
	require.NotNil(t, p.Current)
	assert.Equal(t, evening.ID, p.Current.ID)
	assert.Nil(t, p.Free, "no working-hours gap left that day")

	_, err = e.Book(ctx, 5, types.Sunday, 11*60, 13*60, "Weekend workshop")
	require.NoError(t, err)

	p, err = e.Presence(ctx, 5, time.Date(2026, 3, 1, 12, 0, 0, 0, e.config.Location))
	require.NoError(t, err)
	assert.Equal(t, InActivity, p.State, "an activity wins on unscheduled days too")
	require.NotNil(t, p.Current)
	assert.Equal(t, "Weekend workshop", p.Current.Label)
}

func TestQueueAndReminders(t *testing.T) {
	e, _ := newTestEngine(t)

	e.Queue().Enqueue("low", 3)
	e.Queue().Enqueue("high", 1)
	next, ok := e.Queue().Dequeue()
	require.True(t, ok)
	assert.Equal(t, "high", next.Label)

	e.Reminders().Schedule("office hours", mondayMorning.Add(-time.Minute))
	due := e.Reminders().Due()
	require.Len(t, due, 1)
	assert.Equal(t, "office hours", due[0].Message)
}

func TestBookSchedulesReminder(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Book(ctx, 5, types.Monday, 12*60, 13*60, "Databases")
	require.NoError(t, err)
	require.Equal(t, 1, e.Reminders().Len())

	assert.Empty(t, e.Reminders().PopAllDue(mondayMorning.Add(74*time.Minute)))
	due := e.Reminders().PopAllDue(mondayMorning.Add(75 * time.Minute))
	require.Len(t, due, 1)
	assert.Equal(t, "Meera Iyer: Databases starts Mon 12:00", due[0].Message)

	// 09:00 has already passed today, so the reminder targets next Monday.
	_, err = e.Book(ctx, 5, types.Monday, 9*60, 9*60+30, "")
	require.NoError(t, err)
	next, ok := e.Reminders().Peek()
	require.True(t, ok)
	assert.True(t, next.Due.Equal(time.Date(2026, 3, 9, 8, 45, 0, 0, e.config.Location)), "got %v", next.Due)
	assert.Contains(t, next.Message, "activity starts Mon 09:00")

	// Starting within the lead time makes the reminder due immediately.
	_, err = e.Book(ctx, 5, types.Monday, 10*60+40, 10*60+50, "Quick sync")
	require.NoError(t, err)
	due = e.Reminders().Due()
	require.Len(t, due, 1)
	assert.True(t, due[0].Due.Equal(mondayMorning))

	e.config.ReminderLead = 0
	_, err = e.Book(ctx, 5, types.Tuesday, 9*60, 10*60, "Off")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Reminders().Len(), "only next Monday's reminder remains")
}

func TestRebuilderCoalescesTriggers(t *testing.T) {
	e, store := newTestEngine(t)
	r := NewRebuilder(e, 0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	ent := types.Entity{ID: 12, Name: "Late Arrival"}
	require.NoError(t, store.UpsertEntity(context.Background(), &ent))
	for i := 0; i < 5; i++ {
		r.Trigger()
	}

	assert.Eventually(t, func() bool {
		_, ok := e.Entity(12)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestConfigFromSettingsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.FuzzyMaxDistance)
	assert.Equal(t, types.Range{Start: 540, End: 1020}, cfg.Window)
	assert.Len(t, cfg.Grid.Slots, 8)
}

func TestConfigFromSettings(t *testing.T) {
	settings := config.Default()
	settings.Schedule.WorkdayStart = "10:00"
	settings.Schedule.WorkdayEnd = "13:00"
	settings.Schedule.Days = []string{"Sat"}
	settings.Search.FuzzyMaxDistance = 1
	settings.Reminders.Lead = 5 * time.Minute

	cfg, err := ConfigFromSettings(settings)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.FuzzyMaxDistance)
	assert.Equal(t, types.Range{Start: 600, End: 780}, cfg.Window)
	assert.Equal(t, []types.Weekday{types.Saturday}, cfg.Grid.Days)
	assert.Equal(t, []int{600, 660, 720}, cfg.Grid.Slots)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
	assert.Equal(t, 5*time.Minute, cfg.ReminderLead)
}
