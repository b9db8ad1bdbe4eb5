package queue

// directBackend is the DIRECT backend (spec.md §4.7): no storage at all.
// add invokes the consumer synchronously on the caller's goroutine; remove
// is never called because Queue.Enqueue short-circuits before reaching the
// worker/backend machinery for this Kind.
type directBackend struct {
	consumer Consumer
}

func newDirectBackend(consumer Consumer) *directBackend {
	return &directBackend{consumer: consumer}
}

func (b *directBackend) add(item Entry) error {
	return b.consumer(item)
}

func (b *directBackend) remove() (Entry, error) {
	return nil, nil
}

func (b *directBackend) close() error {
	return nil
}
