// Package queue implements the request queue: waiting requests ordered by
// urgency (lower rank first) and, within equal urgency, by arrival order.
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/rollcall/internal/heap"
)

// Urgency ranks. Lower values are served first; callers may use any int.
const (
	UrgencyHigh   = 1
	UrgencyMedium = 2
	UrgencyLow    = 3
)

// Entry is one waiting request.
type Entry struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Urgency    int       `json:"urgency"`
	Seq        uint64    `json:"seq"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func less(a, b Entry) bool {
	if a.Urgency != b.Urgency {
		return a.Urgency < b.Urgency
	}
	return a.Seq < b.Seq
}

// Queue is a mutex-guarded priority queue. Safe for concurrent use.
type Queue struct {
	mu   sync.Mutex
	heap *heap.Heap[Entry]
	seq  uint64
	now  func() time.Time
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{heap: heap.New(less), now: time.Now}
}

// Enqueue adds a request. Sequence numbers are assigned monotonically so
// FIFO order holds within equal urgency.
func (q *Queue) Enqueue(label string, urgency int) Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	e := Entry{
		ID:         uuid.New().String(),
		Label:      label,
		Urgency:    urgency,
		Seq:        q.seq,
		EnqueuedAt: q.now(),
	}
	q.heap.Push(e)
	return e
}

// Dequeue removes the most urgent, earliest request. It returns false when
// the queue is empty.
func (q *Queue) Dequeue() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Pop()
}

// Peek returns the next request without removing it.
func (q *Queue) Peek() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Peek()
}

// Len returns the number of waiting requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Snapshot returns the waiting requests in service order.
func (q *Queue) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Sorted()
}
