// Package timeslot detects booking conflicts and computes free time.
//
// All ranges are half-open [start, end) minutes within one day, so
// activities that merely touch ([09:00,10:00) and [10:00,11:00)) never
// conflict. The conversion to the inclusive leaf indices used by the
// segment tree happens only in Occupancy.
package timeslot

import "github.com/scrypster/rollcall/pkg/types"

// Occupancy is a range-add / range-max segment tree with lazy propagation
// over the minute domain of one day. Each booked range adds +1; a query
// reporting a maximum above zero means some minute is occupied.
type Occupancy struct {
	size int
	tree []int
	lazy []int
}

// NewOccupancy returns an empty tree over [0, types.MinutesPerDay).
func NewOccupancy() *Occupancy {
	return newOccupancy(types.MinutesPerDay)
}

func newOccupancy(size int) *Occupancy {
	return &Occupancy{
		size: size,
		tree: make([]int, 4*size),
		lazy: make([]int, 4*size),
	}
}

// Add adds delta to every minute of r. Ranges are clipped to the domain;
// empty ranges are ignored.
func (o *Occupancy) Add(r types.Range, delta int) {
	lo, hi, ok := o.bounds(r)
	if !ok {
		return
	}
	o.update(1, 0, o.size-1, lo, hi, delta)
}

// Max returns the highest occupancy of any minute in r, or 0 for an empty
// range.
func (o *Occupancy) Max(r types.Range) int {
	lo, hi, ok := o.bounds(r)
	if !ok {
		return 0
	}
	return o.query(1, 0, o.size-1, lo, hi)
}

// bounds maps half-open r onto inclusive leaf indices.
func (o *Occupancy) bounds(r types.Range) (int, int, bool) {
	lo, hi := max(r.Start, 0), min(r.End, o.size)-1
	return lo, hi, lo <= hi
}

func (o *Occupancy) push(n int) {
	if o.lazy[n] == 0 {
		return
	}
	for _, c := range [2]int{2 * n, 2*n + 1} {
		o.tree[c] += o.lazy[n]
		o.lazy[c] += o.lazy[n]
	}
	o.lazy[n] = 0
}

func (o *Occupancy) update(n, start, end, lo, hi, delta int) {
	if hi < start || end < lo {
		return
	}
	if lo <= start && end <= hi {
		o.tree[n] += delta
		o.lazy[n] += delta
		return
	}
	o.push(n)
	mid := (start + end) / 2
	o.update(2*n, start, mid, lo, hi, delta)
	o.update(2*n+1, mid+1, end, lo, hi, delta)
	o.tree[n] = max(o.tree[2*n], o.tree[2*n+1])
}

func (o *Occupancy) query(n, start, end, lo, hi int) int {
	if hi < start || end < lo {
		return 0
	}
	if lo <= start && end <= hi {
		return o.tree[n]
	}
	o.push(n)
	mid := (start + end) / 2
	return max(o.query(2*n, start, mid, lo, hi), o.query(2*n+1, mid+1, end, lo, hi))
}
