package queue

import (
	"sync"
	"time"

	"go.elastic.co/apm/v2"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/njcx/logqueued/internal/queue/diskspool"
	"github.com/njcx/logqueued/internal/queue/errs"
	"github.com/njcx/logqueued/internal/queue/metrics"
)

// DefaultEnqueueTimeout is the design constant from spec.md §4.2: how
// long Enqueue waits for free capacity before dropping the item.
const DefaultEnqueueTimeout = 2 * time.Second

// lifecycle tracks the state machine of spec.md §4.8.
type lifecycle int

const (
	constructed lifecycle = iota
	running
	draining
	destroyed
)

// Settings configures a Queue at construction. Capacity, WorkerCount and
// the Kind passed to New are immutable for the life of the Queue once New returns
// (spec.md §3, "Invariants").
type Settings struct {
	// Capacity is the hard cap backpressure is measured against. ARRAY
	// and DISK enforce it as a physical limit; LINKED is logically
	// unbounded but still gates producers against it.
	Capacity int

	// WorkerCount is the number of worker goroutines started by Start.
	// Forced to 1 for Disk and to 0 for Direct; a caller-requested value
	// that doesn't match is overridden with a logged warning for Disk (a
	// debug message for Direct) rather than silently accepted (spec.md
	// §9, "Worker-count for DISK").
	WorkerCount int

	// EnqueueTimeout bounds how long Enqueue blocks for free capacity.
	// Zero selects DefaultEnqueueTimeout.
	EnqueueTimeout time.Duration

	// Disk carries DISK-backend-specific settings. Ignored for other
	// kinds.
	Disk diskspool.Settings

	Logger  *logp.Logger
	Metrics *metrics.Metrics
	Tracer  *apm.Tracer
}

// Queue is the generic producer/consumer queue of spec.md §2: one mutex,
// two condition variables (not_full, not_empty), a running backend, a set
// of workers, and a consumer callable.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	kind     Kind
	capacity int
	size     int
	state    lifecycle

	backend  backend
	consumer Consumer

	workerCount    int
	workers        []*worker
	workersWG      sync.WaitGroup
	enqueueTimeout time.Duration

	logger  *logp.Logger
	metrics *metrics.Metrics
	tracer  *apm.Tracer

	closeOnce sync.Once
}

// New allocates a Queue, selects and constructs the backend for kind, and
// validates settings (spec.md §4.1, "construct"). Capacity must be >= 1
// and WorkerCount >= 0.
func New(kind Kind, settings Settings, consumer Consumer) (*Queue, error) {
	if settings.Capacity < 1 {
		return nil, newConfigError("capacity must be >= 1")
	}
	if settings.WorkerCount < 0 {
		return nil, newConfigError("worker_count must be >= 0")
	}
	if consumer == nil {
		return nil, newConfigError("consumer must not be nil")
	}

	logger := settings.Logger
	if logger == nil {
		logger = logp.L()
	}
	logger = logger.Named("queue").With("backend", kind.String())

	workerCount := settings.WorkerCount
	switch kind {
	case Disk:
		if workerCount != 1 {
			logger.Warnf("disk queue requires exactly 1 worker, overriding requested worker_count=%d", workerCount)
			workerCount = 1
		}
	case Direct:
		if workerCount != 0 {
			logger.Debugf("direct queue uses no worker goroutines, ignoring requested worker_count=%d", workerCount)
		}
		workerCount = 0
	}

	timeout := settings.EnqueueTimeout
	if timeout <= 0 {
		timeout = DefaultEnqueueTimeout
	}

	q := &Queue{
		kind:           kind,
		capacity:       settings.Capacity,
		consumer:       consumer,
		workerCount:    workerCount,
		enqueueTimeout: timeout,
		logger:         logger,
		metrics:        settings.Metrics,
		tracer:         settings.Tracer,
		state:          constructed,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)

	b, err := newBackend(kind, settings, consumer)
	if err != nil {
		return nil, err
	}
	q.backend = b

	q.metrics.SetSize(0)
	return q, nil
}

func newBackend(kind Kind, settings Settings, consumer Consumer) (backend, error) {
	switch kind {
	case Array:
		return newArrayBackend(settings.Capacity), nil
	case Linked:
		return newLinkedBackend(), nil
	case Disk:
		return newDiskBackend(settings.Disk)
	case Direct:
		return newDirectBackend(consumer), nil
	default:
		return nil, newConfigError("unknown backend kind")
	}
}

// Start spawns WorkerCount worker goroutines (none for Direct). It is
// idempotent only before the first Close (spec.md §4.1, "start").
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != constructed {
		return nil
	}
	q.state = running

	q.workers = make([]*worker, q.workerCount)
	for i := 0; i < q.workerCount; i++ {
		w := &worker{id: i, queue: q}
		q.workers[i] = w
		q.workersWG.Add(1)
		go w.run()
	}
	return nil
}

// Enqueue implements spec.md §4.2. For Direct it short-circuits: the lock
// is held only to check the lifecycle state, the consumer then runs
// synchronously on the caller's goroutine without the lock,
// and the notional size is never touched (spec.md §9, open question 1:
// "do not decrement"). A queue span wraps the whole call whenever a
// tracer is configured (SPEC_FULL.md §2), nil-safe when it is not.
func (q *Queue) Enqueue(item Entry) (err error) {
	tx := q.startTransaction("queue.enqueue")
	defer func() { endTransaction(tx, err) }()

	if q.kind == Direct {
		q.mu.Lock()
		shuttingDown := q.state == draining || q.state == destroyed
		q.mu.Unlock()
		if shuttingDown {
			destroyEntry(item)
			err = errs.ErrShutdown
			return err
		}

		err = q.backend.add(item)
		if err != nil {
			q.metrics.IncErrored()
		} else {
			q.metrics.IncEnqueued()
		}
		return err
	}

	q.mu.Lock()

	if q.state == draining || q.state == destroyed {
		q.mu.Unlock()
		destroyEntry(item)
		err = errs.ErrShutdown
		return err
	}

	deadline := time.Now().Add(q.enqueueTimeout)
	for q.size >= q.capacity {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			q.mu.Unlock()
			destroyEntry(item)
			q.metrics.IncDropped()
			err = errs.ErrQueueFull
			return err
		}
		q.timedWaitNotFull(remaining)
		if q.state == draining || q.state == destroyed {
			q.mu.Unlock()
			destroyEntry(item)
			err = errs.ErrShutdown
			return err
		}
	}

	if addErr := q.backend.add(item); addErr != nil {
		q.mu.Unlock()
		q.metrics.IncErrored()
		err = addErr
		return err
	}
	q.size++
	q.metrics.SetSize(q.size)
	q.metrics.IncEnqueued()
	q.reportSegments()
	q.mu.Unlock()

	q.notEmpty.Signal()
	return nil
}

// reportSegments refreshes the "disk.segments" metric from the backend
// when it implements segmentReporter (only the DISK backend does).
// Must be called with q.mu held.
func (q *Queue) reportSegments() {
	if sr, ok := q.backend.(segmentReporter); ok {
		q.metrics.SetSegments(sr.SegmentCount())
	}
}

// startTransaction begins a queue span named label when q.tracer is
// configured, returning nil otherwise so callers can pass the result
// straight to endTransaction without a nil check of their own.
func (q *Queue) startTransaction(label string) *apm.Transaction {
	if q.tracer == nil {
		return nil
	}
	return q.tracer.StartTransaction(label, "queue")
}

// endTransaction closes a transaction started by startTransaction,
// recording err (if any) as the transaction result. A nil tx is a no-op.
func endTransaction(tx *apm.Transaction, err error) {
	if tx == nil {
		return
	}
	if err != nil {
		tx.Result = "error"
	} else {
		tx.Result = "success"
	}
	tx.End()
}

// timedWaitNotFull waits on notFull for at most d, re-broadcasting itself
// once the deadline elapses so a producer parked in Cond.Wait is
// guaranteed to wake even with no matching Signal. Must be called with
// q.mu held; returns with q.mu held.
func (q *Queue) timedWaitNotFull(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.notFull.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()
	q.notFull.Wait()
}

// Close initiates shutdown (spec.md §4.1, "destruct"): it enters the
// Draining state, wakes every worker, waits for them to drain all
// remaining items, then tears down the backend. Safe to call multiple
// times; only the first call does anything. Must not be called from
// within a worker (spec.md §5).
func (q *Queue) Close() error {
	var backendErr error
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.state = draining
		q.notEmpty.Broadcast()
		q.notFull.Broadcast()
		q.mu.Unlock()

		q.workersWG.Wait()

		q.mu.Lock()
		q.state = destroyed
		q.mu.Unlock()

		backendErr = q.backend.close()
	})
	return backendErr
}

// Size returns the queue's current item count under lock, for tests and
// metrics.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func newConfigError(msg string) error {
	return &configError{msg: msg}
}

type configError struct{ msg string }

func (e *configError) Error() string { return "queue: " + e.msg }
