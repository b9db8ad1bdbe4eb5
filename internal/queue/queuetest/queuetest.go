// Package queuetest is a shared harness for driving every Queue backend
// through the same producer/consumer workloads, adapted from the
// teacher's publisher/queue/queuetest package for this package's
// push-style Consumer callback instead of a pull-style batch Get API.
package queuetest

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/njcx/logqueued/internal/queue"
)

// QueueFactory builds a queue.Queue wired to consumer for a single test
// case. Tests call Start/Close themselves via the returned Queue.
type QueueFactory func(t *testing.T, consumer queue.Consumer) *queue.Queue

// Recorder is a thread-safe consumer that counts and optionally orders
// every item it sees.
type Recorder struct {
	mu       sync.Mutex
	seen     []interface{}
	total    int64
	inOrder  bool
	expected int
}

// NewRecorder returns a Recorder that expects to observe count items and
// checks arrival order (appropriate for single-worker configurations,
// spec.md §8 law 3).
func NewRecorder(count int, checkOrder bool) *Recorder {
	return &Recorder{expected: count, inOrder: checkOrder}
}

func (r *Recorder) Consume(item interface{}) error {
	r.mu.Lock()
	r.seen = append(r.seen, item)
	r.mu.Unlock()
	atomic.AddInt64(&r.total, 1)
	return nil
}

func (r *Recorder) Total() int {
	return int(atomic.LoadInt64(&r.total))
}

func (r *Recorder) Items() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interface{}, len(r.seen))
	copy(out, r.seen)
	return out
}

// WaitForTotal polls until Total reaches r.expected or timeout elapses,
// returning whether it reached the target in time.
func (r *Recorder) WaitForTotal(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.Total() >= r.expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return r.Total() >= r.expected
}

// RunSingleProducer starts the queue's workers, enqueues `events` ints
// (0..events-1) from a single goroutine, waits for the recorder to
// observe every one and checks they arrived in enqueue order, then
// closes the queue (spec.md §8, scenario 1).
func RunSingleProducer(t *testing.T, events int, newQueue QueueFactory) {
	rec := NewRecorder(events, true)
	q := newQueue(t, rec.Consume)
	require.NoError(t, q.Start())
	defer q.Close()

	for i := 0; i < events; i++ {
		_ = q.Enqueue(i)
	}

	require.True(t, rec.WaitForTotal(10*time.Second), "expected %d items, got %d", events, rec.Total())
	if rec.inOrder {
		for i, item := range rec.Items() {
			require.Equal(t, i, item, "item at position %d arrived out of order", i)
		}
	}
}

// RunMultiProducer enqueues `events` ints from each of `producers`
// goroutines (spec.md §8, scenario 3) and waits for the recorder to
// observe producers*events items total.
func RunMultiProducer(t *testing.T, producers, events int, newQueue QueueFactory) {
	total := producers * events
	rec := NewRecorder(total, false)
	q := newQueue(t, rec.Consume)
	require.NoError(t, q.Start())
	defer q.Close()

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < events; i++ {
				_ = q.Enqueue(base*events + i)
			}
		}(p)
	}
	wg.Wait()

	require.True(t, rec.WaitForTotal(15*time.Second), "expected %d items, got %d", total, rec.Total())
}
