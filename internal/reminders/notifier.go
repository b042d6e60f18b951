// Package reminders implements the deferred notifier: an in-memory min-heap
// of messages keyed by due time. Entries are advisory and at-most-once;
// anything not yet due when the process exits is lost.
package reminders

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/rollcall/internal/clock"
	"github.com/scrypster/rollcall/internal/heap"
)

// Notification is a scheduled message.
type Notification struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Due     time.Time `json:"due"`
	seq     uint64
}

func less(a, b Notification) bool {
	if !a.Due.Equal(b.Due) {
		return a.Due.Before(b.Due)
	}
	return a.seq < b.seq
}

// Notifier holds pending notifications. Safe for concurrent use.
type Notifier struct {
	mu    sync.Mutex
	heap  *heap.Heap[Notification]
	seq   uint64
	clock clock.Clock
}

// New returns an empty notifier. A nil clock means clock.Real().
func New(c clock.Clock) *Notifier {
	if c == nil {
		c = clock.Real()
	}
	return &Notifier{heap: heap.New(less), clock: c}
}

// Schedule queues message for delivery at due.
func (n *Notifier) Schedule(message string, due time.Time) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++
	item := Notification{
		ID:      uuid.New().String(),
		Message: message,
		Due:     due,
		seq:     n.seq,
	}
	n.heap.Push(item)
	return item
}

// ScheduleIn queues message for delivery d after the notifier's clock.
func (n *Notifier) ScheduleIn(message string, d time.Duration) Notification {
	return n.Schedule(message, n.clock.Now().Add(d))
}

// PopAllDue removes and returns every notification due at or before now,
// in ascending due order. Later entries are left untouched.
func (n *Notifier) PopAllDue(now time.Time) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.heap.PopWhile(func(item Notification) bool {
		return !item.Due.After(now)
	})
}

// Due is PopAllDue evaluated at the notifier clock's current time.
func (n *Notifier) Due() []Notification {
	return n.PopAllDue(n.clock.Now())
}

// Peek returns the next notification to fall due.
func (n *Notifier) Peek() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.heap.Peek()
}

// Len returns the number of pending notifications.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.heap.Len()
}
