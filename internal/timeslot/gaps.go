package timeslot

import (
	"sort"

	"github.com/scrypster/rollcall/pkg/types"
)

// Gaps returns the free ranges inside window, ascending, given booked
// ranges in any order. Booked ranges may overlap each other or extend past
// the window; both are handled. An empty or inverted window yields nil.
func Gaps(booked []types.Range, window types.Range) []types.Range {
	if window.Start >= window.End {
		return nil
	}
	sorted := append([]types.Range(nil), booked...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	var gaps []types.Range
	cursor := window.Start
	for _, b := range sorted {
		if b.End <= window.Start || b.Start >= window.End {
			continue
		}
		if cursor < b.Start {
			gaps = append(gaps, types.Range{Start: cursor, End: b.Start})
		}
		cursor = max(cursor, b.End)
		if cursor >= window.End {
			break
		}
	}
	if cursor < window.End {
		gaps = append(gaps, types.Range{Start: cursor, End: window.End})
	}
	return gaps
}

// Intersect returns the common free time of two ascending gap lists using
// a two-pointer walk.
func Intersect(a, b []types.Range) []types.Range {
	var out []types.Range
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := max(a[i].Start, b[j].Start)
		end := min(a[i].End, b[j].End)
		if start < end {
			out = append(out, types.Range{Start: start, End: end})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// IntersectGaps folds Intersect over lists left to right. No lists, or any
// empty list, yields an empty result.
func IntersectGaps(lists [][]types.Range) []types.Range {
	if len(lists) == 0 {
		return nil
	}
	acc := lists[0]
	for _, next := range lists[1:] {
		if len(acc) == 0 {
			break
		}
		acc = Intersect(acc, next)
	}
	if len(acc) == 0 {
		return nil
	}
	return append([]types.Range(nil), acc...)
}
