// Package queue implements the message queue subsystem: a single generic
// Queue abstraction presenting a uniform producer/consumer contract over
// four pluggable backends (ARRAY, LINKED, DISK, DIRECT), bounded blocking
// enqueue with timeout, one or more worker goroutines, and (for DISK)
// crash-survivable persistence via the codec package's Serializable
// contract.
package queue

import "fmt"

// Entry is an opaque item handle supplied by a producer. It is stored by
// value for ARRAY/LINKED/DIRECT; for DISK it must additionally be
// accepted by the configured codec.Codec.
type Entry = interface{}

// Consumer is invoked once per dequeued item by a worker, outside the
// queue's lock. A non-nil return is logged and does not stop the queue
// (spec.md §4.3, §7).
type Consumer func(Entry) error

// Destroyer is an optional capability an Entry may implement. When an
// enqueue times out (spec.md §4.2) or a DISK add succeeds (spec.md §3,
// "the in-memory handle is destroyed by the producer side after
// serialization"), the item is destroyed through this hook if present.
type Destroyer interface {
	Destroy()
}

func destroyEntry(item Entry) {
	if d, ok := item.(Destroyer); ok {
		d.Destroy()
	}
}

// Kind selects one of the four backend implementations at construction
// time. The set is closed, so backends are dispatched through a tagged
// Kind rather than through an open-ended registry or virtual dispatch
// (spec.md §9, "Polymorphic backend dispatch").
type Kind int

const (
	// Array is a bounded ring buffer of item handles.
	Array Kind = iota
	// Linked is an unbounded (but still capacity-gated) singly-linked FIFO.
	Linked
	// Disk is a segmented on-disk spool; forces worker_count to 1.
	Disk
	// Direct performs no storage: enqueue invokes the consumer inline.
	Direct
)

func (k Kind) String() string {
	switch k {
	case Array:
		return "array"
	case Linked:
		return "linked"
	case Disk:
		return "disk"
	case Direct:
		return "direct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// errRemoveWouldBlock is returned internally by the DISK adapter's remove
// when the reader has caught up to the writer mid-segment. It never
// escapes the worker loop as a user-visible error (spec.md §4.6, read
// path step 3).
var errRemoveWouldBlock = fmt.Errorf("queue: disk backend has nothing ready")

// backend is the capability set every variant implements: construct,
// destruct, add(item), remove() -> item (spec.md §3, "Entity: Backend").
// Construction happens in New via newBackend, not through this interface.
type backend interface {
	add(item Entry) error
	remove() (Entry, error)
	close() error
}

// segmentReporter is an optional capability a backend may implement to
// report how many on-disk segment files currently exist. Only the DISK
// backend satisfies it; Queue type-asserts for it after every add/remove
// so the "disk.segments" metric tracks rollovers and deletions as they
// happen instead of staying pinned at its zero value.
type segmentReporter interface {
	SegmentCount() int
}
