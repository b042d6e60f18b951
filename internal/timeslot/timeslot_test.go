package timeslot

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/rollcall/pkg/types"
)

func at(day types.Weekday, start, end int, label string) types.Activity {
	return types.Activity{EntityID: 5, Day: day, Start: start, End: end, Label: label}
}

func TestScenarioEntityFiveMonday(t *testing.T) {
	existing := []types.Activity{at(types.Monday, 9*60, 10*60, "Algorithms")}

	err := Check(existing, types.Range{Start: 9*60 + 30, End: 10*60 + 30})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Algorithms", conflict.Existing.Label)

	assert.NoError(t, Check(existing, types.Range{Start: 10 * 60, End: 11 * 60}))
}

func TestTouchingActivitiesDoNotConflict(t *testing.T) {
	existing := []types.Activity{at(types.Monday, 60, 120, "a")}
	assert.NoError(t, Check(existing, types.Range{Start: 0, End: 60}))
	assert.NoError(t, Check(existing, types.Range{Start: 120, End: 180}))
	assert.ErrorIs(t, Check(existing, types.Range{Start: 119, End: 180}), ErrConflict)
	assert.ErrorIs(t, Check(existing, types.Range{Start: 0, End: 61}), ErrConflict)
}

func TestCheckRejectsMalformedRange(t *testing.T) {
	err := Check(nil, types.Range{Start: 600, End: 540})
	assert.ErrorIs(t, err, types.ErrInvalidRange)
	assert.NotErrorIs(t, err, ErrConflict)

	assert.ErrorIs(t, Check(nil, types.Range{Start: 0, End: 1441}), types.ErrInvalidRange)
}

func TestOverlapSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		a := randomRange(rng)
		b := randomRange(rng)
		assert.Equal(t, Overlaps(a, b), Overlaps(b, a), "%v %v", a, b)
	}
	assert.False(t, Overlaps(types.Range{Start: 0, End: 60}, types.Range{Start: 60, End: 120}))
}

func TestOccupancyMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	occ := NewOccupancy()
	var counts [types.MinutesPerDay]int

	for i := 0; i < 200; i++ {
		r := randomRange(rng)
		occ.Add(r, 1)
		for m := r.Start; m < r.End; m++ {
			counts[m]++
		}

		q := randomRange(rng)
		want := 0
		for m := q.Start; m < q.End; m++ {
			want = max(want, counts[m])
		}
		require.Equal(t, want, occ.Max(q), "after %d adds, query %v", i+1, q)
	}
}

func TestOccupancyEmptyRangeIsFree(t *testing.T) {
	occ := NewOccupancy()
	occ.Add(types.Range{Start: 0, End: types.MinutesPerDay}, 1)
	assert.Equal(t, 0, occ.Max(types.Range{Start: 10, End: 10}))
	assert.Equal(t, 1, occ.Max(types.Range{Start: 1439, End: 1440}))
}

func TestOccupancyRemoval(t *testing.T) {
	occ := NewOccupancy()
	r := types.Range{Start: 540, End: 600}
	occ.Add(r, 1)
	assert.Equal(t, 1, occ.Max(r))
	occ.Add(r, -1)
	assert.Equal(t, 0, occ.Max(r))
}

func TestDetectorOccupied(t *testing.T) {
	d := NewDetector([]types.Activity{at(types.Tuesday, 600, 660, "lab")})
	assert.True(t, d.Occupied(types.Range{Start: 650, End: 700}))
	assert.False(t, d.Occupied(types.Range{Start: 660, End: 700}))
}

func TestGaps(t *testing.T) {
	window := types.Range{Start: 540, End: 1020}
	booked := []types.Range{{Start: 660, End: 720}, {Start: 540, End: 600}, {Start: 900, End: 960}}

	assert.Equal(t, []types.Range{
		{Start: 600, End: 660},
		{Start: 720, End: 900},
		{Start: 960, End: 1020},
	}, Gaps(booked, window))

	assert.Equal(t, []types.Range{window}, Gaps(nil, window))
	assert.Empty(t, Gaps([]types.Range{{Start: 0, End: 1440}}, window))
	assert.Empty(t, Gaps(nil, types.Range{Start: 600, End: 600}))
}

func TestGapsToleratesOverlapAndOutOfWindow(t *testing.T) {
	window := types.Range{Start: 540, End: 1020}
	booked := []types.Range{
		{Start: 480, End: 570},
		{Start: 600, End: 700},
		{Start: 650, End: 680},
		{Start: 1000, End: 1100},
		{Start: 1200, End: 1300},
	}
	assert.Equal(t, []types.Range{
		{Start: 570, End: 600},
		{Start: 700, End: 1000},
	}, Gaps(booked, window))
}

func TestGapComplementInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	window := types.Range{Start: 480, End: 1080}

	for iter := 0; iter < 200; iter++ {
		// Non-overlapping bookings, as the entity invariant guarantees.
		var booked []types.Range
		cursor := rng.Intn(200)
		for cursor < types.MinutesPerDay {
			start := cursor + rng.Intn(90)
			end := start + 1 + rng.Intn(120)
			if end > types.MinutesPerDay {
				break
			}
			booked = append(booked, types.Range{Start: start, End: end})
			cursor = end + rng.Intn(60)
		}
		rng.Shuffle(len(booked), func(i, j int) { booked[i], booked[j] = booked[j], booked[i] })

		var cover [types.MinutesPerDay]int
		for _, g := range Gaps(booked, window) {
			require.True(t, g.Start < g.End)
			for m := g.Start; m < g.End; m++ {
				cover[m]++
			}
		}
		for _, b := range booked {
			for m := max(b.Start, window.Start); m < min(b.End, window.End); m++ {
				cover[m]++
			}
		}
		for m := window.Start; m < window.End; m++ {
			require.Equal(t, 1, cover[m], "minute %d covered %d times", m, cover[m])
		}
	}
}

func TestIntersectGaps(t *testing.T) {
	a := []types.Range{{Start: 540, End: 660}, {Start: 720, End: 900}}
	b := []types.Range{{Start: 600, End: 780}, {Start: 840, End: 1020}}
	c := []types.Range{{Start: 540, End: 1020}}

	assert.Equal(t, []types.Range{
		{Start: 600, End: 660},
		{Start: 720, End: 780},
		{Start: 840, End: 900},
	}, IntersectGaps([][]types.Range{a, b, c}))

	assert.Empty(t, IntersectGaps(nil))
	assert.Empty(t, IntersectGaps([][]types.Range{a, nil, c}))
	assert.Equal(t, a, IntersectGaps([][]types.Range{a}))
}

func TestIntersectionDropsTouchingRanges(t *testing.T) {
	a := []types.Range{{Start: 540, End: 600}}
	b := []types.Range{{Start: 600, End: 660}}
	assert.Empty(t, IntersectGaps([][]types.Range{a, b}))
}

func TestIntersectionCommutative(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	window := types.Range{Start: 540, End: 1020}
	for i := 0; i < 200; i++ {
		a := Gaps(randomBookings(rng), window)
		b := Gaps(randomBookings(rng), window)
		assert.Equal(t, IntersectGaps([][]types.Range{a, b}), IntersectGaps([][]types.Range{b, a}))
	}
}

func randomRange(rng *rand.Rand) types.Range {
	start := rng.Intn(types.MinutesPerDay - 1)
	end := start + 1 + rng.Intn(types.MinutesPerDay-start)
	return types.Range{Start: start, End: end}
}

func randomBookings(rng *rand.Rand) []types.Range {
	var out []types.Range
	for i := rng.Intn(5); i > 0; i-- {
		out = append(out, randomRange(rng))
	}
	return out
}
