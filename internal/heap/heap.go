// Package heap provides a generic binary min-heap ordered by a caller
// supplied less function. It is not safe for concurrent use; owners such as
// queue.Queue and reminders.Notifier serialize access themselves.
package heap

// Heap is a binary min-heap. The zero value is not usable; call New.
type Heap[T any] struct {
	items []T
	less  func(a, b T) bool
}

// New returns an empty heap ordered by less. less(a, b) must report
// whether a sorts strictly before b.
func New[T any](less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{less: less}
}

// Len returns the number of items.
func (h *Heap[T]) Len() int {
	return len(h.items)
}

// Push inserts v in O(log n).
func (h *Heap[T]) Push(v T) {
	h.items = append(h.items, v)
	h.up(len(h.items) - 1)
}

// Peek returns the minimum without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	var zero T
	if len(h.items) == 0 {
		return zero, false
	}
	return h.items[0], true
}

// Pop removes and returns the minimum in O(log n).
func (h *Heap[T]) Pop() (T, bool) {
	var zero T
	n := len(h.items)
	if n == 0 {
		return zero, false
	}
	top := h.items[0]
	last := n - 1
	h.items[0] = h.items[last]
	h.items[last] = zero
	h.items = h.items[:last]
	if last > 0 {
		h.down(0)
	}
	return top, true
}

// PopWhile pops items in ascending order while keep reports true for the
// current minimum. The first rejected item stays in the heap.
func (h *Heap[T]) PopWhile(keep func(T) bool) []T {
	var out []T
	for {
		top, ok := h.Peek()
		if !ok || !keep(top) {
			return out
		}
		h.Pop()
		out = append(out, top)
	}
}

// Sorted returns the items in heap order without mutating the heap.
func (h *Heap[T]) Sorted() []T {
	clone := &Heap[T]{items: append([]T(nil), h.items...), less: h.less}
	out := make([]T, 0, len(h.items))
	for clone.Len() > 0 {
		v, _ := clone.Pop()
		out = append(out, v)
	}
	return out
}

// Clear drops all items.
func (h *Heap[T]) Clear() {
	h.items = nil
}

func (h *Heap[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.items[i], h.items[parent]) {
			return
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap[T]) down(i int) {
	n := len(h.items)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && h.less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
