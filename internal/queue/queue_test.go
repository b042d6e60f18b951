package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Label)
	}
	return out
}

func TestDequeueOrdersByUrgencyThenArrival(t *testing.T) {
	q := New()
	q.Enqueue("first", 1)
	q.Enqueue("second", 2)
	q.Enqueue("third", 1)

	var got []string
	for {
		e, ok := q.Dequeue()
		if !ok {
			break
		}
		got = append(got, e.Label)
	}
	assert.Equal(t, []string{"first", "third", "second"}, got)
}

func TestDequeueEmptyReturnsFalse(t *testing.T) {
	q := New()
	e, ok := q.Dequeue()
	assert.False(t, ok)
	assert.Equal(t, Entry{}, e)

	_, ok = q.Peek()
	assert.False(t, ok)
}

func TestPeekIsNonDestructive(t *testing.T) {
	q := New()
	q.Enqueue("low", UrgencyLow)
	q.Enqueue("high", UrgencyHigh)

	e, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "high", e.Label)
	assert.Equal(t, 2, q.Len())
}

func TestSequenceNumbersIncrease(t *testing.T) {
	q := New()
	a := q.Enqueue("a", UrgencyMedium)
	b := q.Enqueue("b", UrgencyMedium)
	assert.Less(t, a.Seq, b.Seq)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}

func TestFIFOWithinUrgencyUnderLoad(t *testing.T) {
	q := New()
	for i := 0; i < 100; i++ {
		q.Enqueue("x", i%3+1)
	}
	snapshot := q.Snapshot()
	require.Len(t, snapshot, 100)
	for i := 1; i < len(snapshot); i++ {
		prev, cur := snapshot[i-1], snapshot[i]
		if prev.Urgency == cur.Urgency {
			assert.Less(t, prev.Seq, cur.Seq)
		} else {
			assert.Less(t, prev.Urgency, cur.Urgency)
		}
	}
	assert.Equal(t, 100, q.Len(), "snapshot must not drain the queue")
}

func TestConcurrentEnqueueDequeue(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Enqueue("job", UrgencyMedium)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, q.Len())

	var seen []uint64
	for {
		e, ok := q.Dequeue()
		if !ok {
			break
		}
		seen = append(seen, e.Seq)
	}
	require.Len(t, seen, 400)
	for i := 1; i < len(seen); i++ {
		assert.Less(t, seen[i-1], seen[i])
	}
	assert.Empty(t, labels(q.Snapshot()))
}
