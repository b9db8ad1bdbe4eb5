package queue

import (
	"io"

	"github.com/njcx/logqueued/internal/queue/diskspool"
)

// diskBackendAdapter adapts diskspool.Backend's exported Add/Remove/Close
// methods to the package-private backend interface, translating the
// diskspool package's io.EOF (from the segmented spool's read path) into
// this package's convention of an empty read simply blocking the caller
// rather than surfacing EOF to the consumer (spec.md §4.6, read path step
// 3: "continues without surfacing EOF to the consumer"). In practice a
// worker only calls remove() once size > 0 under the queue lock, so an
// EOF here means a concurrent writer hasn't flushed yet; the worker's
// caller treats it as "nothing to do this iteration" rather than an error.
type diskBackendAdapter struct {
	inner *diskspool.Backend
}

func newDiskBackend(settings diskspool.Settings) (*diskBackendAdapter, error) {
	inner, err := diskspool.Open(settings)
	if err != nil {
		return nil, err
	}
	return &diskBackendAdapter{inner: inner}, nil
}

func (d *diskBackendAdapter) add(item Entry) error {
	err := d.inner.Add(item)
	if err == nil {
		// The canonical representation of a DISK item is now the bytes
		// on disk; the producer's in-memory handle is done (spec.md §3,
		// "Entity: Item" lifecycle).
		destroyEntry(item)
	}
	return err
}

func (d *diskBackendAdapter) remove() (Entry, error) {
	item, err := d.inner.Remove()
	if err == io.EOF {
		return nil, errRemoveWouldBlock
	}
	return item, err
}

func (d *diskBackendAdapter) close() error {
	return d.inner.Close()
}

// SegmentCount satisfies the queue package's segmentReporter capability
// so Queue can keep the "disk.segments" metric current.
func (d *diskBackendAdapter) SegmentCount() int {
	return d.inner.SegmentCount()
}
