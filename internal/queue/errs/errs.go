// Package errs defines the sentinel error values shared across the queue
// subsystem, so callers can test outcomes with errors.Is instead of string
// matching.
package errs

import "errors"

var (
	// ErrQueueFull is returned by Enqueue when the producer's wait on
	// not_full exceeded the configured timeout. The item passed to
	// Enqueue has already been destroyed by the time this is returned.
	ErrQueueFull = errors.New("queue: full, enqueue timed out")

	// ErrShutdown is returned by Enqueue once the queue has entered the
	// Draining state.
	ErrShutdown = errors.New("queue: shutting down")

	// ErrFormat is returned by a Deserializer when the bytes read from a
	// segment could not be reconstructed into an item.
	ErrFormat = errors.New("queue: malformed record")

	// ErrIO wraps a disk read/write failure at the backend level.
	ErrIO = errors.New("queue: disk i/o error")
)
