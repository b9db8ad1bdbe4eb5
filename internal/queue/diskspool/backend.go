package diskspool

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/njcx/logqueued/internal/queue/errs"
)

// Backend is the DISK backend described in spec.md §4.6: a writer cursor
// and a reader cursor advancing independently over a directory of
// sequentially-numbered segment files.
type Backend struct {
	settings Settings

	writer writerCursor
	reader readerCursor

	// segments holds the monotonic ids of every segment file known to
	// still be on disk, ascending. It bounds the EOF-advance retry loop
	// in Remove so an empty queue can't spin forever hunting for data,
	// and lets reserveSegmentPath detect a wrapped file name that an
	// older live segment still occupies.
	segments []uint64

	lockFile *os.File
}

// Open constructs a Backend rooted at settings.SpoolDir, creating the
// directory if needed and resuming from whatever segments and cursor
// positions a previous run left behind (spec.md §4.6, "Crash behavior").
func Open(settings Settings) (*Backend, error) {
	if settings.SpoolDir == "" {
		return nil, errors.New("diskspool: spool_dir is required")
	}
	if settings.Codec == nil {
		return nil, errors.New("diskspool: codec is required")
	}
	if err := os.MkdirAll(settings.SpoolDir, 0o750); err != nil {
		return nil, errors.Wrap(err, "diskspool: create spool directory")
	}

	b := &Backend{settings: settings}
	b.reader.pageSize = settings.pageSize()

	if settings.LockSpoolDir {
		if err := b.acquireLock(); err != nil {
			return nil, err
		}
	}

	existing, err := scanExistingSegments(settings.SpoolDir)
	if err != nil {
		return nil, err
	}

	st, hadState, err := loadState(settings.SpoolDir)
	if err != nil {
		return nil, err
	}

	switch {
	case hadState:
		b.writer.id = st.WriterID
		b.reader.id = st.ReaderID
		b.segments = segmentsInRange(existing, st.ReaderID, st.WriterID)
	case len(existing) > 0:
		b.reader.id = existing[0]
		b.writer.id = existing[len(existing)-1]
		b.segments = existing
	default:
		b.segments = nil
	}

	return b, nil
}

func (b *Backend) acquireLock() error {
	path := b.settings.SpoolDir + "/.lock"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return errors.Wrap(err, "diskspool: open lock file")
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return errors.Wrap(err, "diskspool: spool directory already locked by another process")
	}
	b.lockFile = f
	return nil
}

// segmentsInRange filters the wrapped ids scanned off disk down to the
// monotonic ids between fromID and toID (inclusive) that actually exist.
func segmentsInRange(existingWrapped []uint64, fromID, toID uint64) []uint64 {
	present := make(map[uint64]bool, len(existingWrapped))
	for _, w := range existingWrapped {
		present[w] = true
	}
	var ids []uint64
	for id := fromID; ; id++ {
		if present[id%segmentModulus] {
			ids = append(ids, id)
		}
		if id == toID {
			break
		}
	}
	return ids
}

func appendSegment(segments []uint64, id uint64) []uint64 {
	if len(segments) > 0 && segments[len(segments)-1] == id {
		return segments
	}
	return append(segments, id)
}

// Add implements the write path of spec.md §4.6.
func (b *Backend) Add(item interface{}) error {
	if !b.writer.isOpen() {
		path, err := b.reserveSegmentPath(b.writer.id)
		if err != nil {
			return err
		}
		if err := b.writer.open(path); err != nil {
			return err
		}
		b.segments = appendSegment(b.segments, b.writer.id)
	}

	var buf bytes.Buffer
	if err := b.settings.Codec.Serialize(item, &buf); err != nil {
		return errors.Wrap(err, "diskspool: serialize item")
	}

	n, err := b.writer.file.Write(buf.Bytes())
	b.writer.offset += int64(n)
	if err != nil {
		return errors.Wrap(errs.ErrIO, err.Error())
	}

	if b.writer.offset >= b.settings.maxSegmentBytes() {
		if err := b.rollWriter(); err != nil {
			return err
		}
	}
	return b.persistState()
}

// reserveSegmentPath guards against the 1,000,000-segment wrap (spec.md
// §9, open question 3) reusing a filename that a surviving older segment
// still occupies: if the wrapped name is already on b.segments under a
// different monotonic id, the writer keeps advancing until it finds a
// free slot instead of silently overwriting old data.
func (b *Backend) reserveSegmentPath(id uint64) (string, error) {
	for {
		collides := false
		for _, existing := range b.segments {
			if existing != id && existing%segmentModulus == id%segmentModulus {
				collides = true
				break
			}
		}
		if !collides {
			return b.settings.segmentPath(id), nil
		}
		id++
		b.writer.id = id
		if id-b.reader.id > segmentModulus {
			return "", errors.New("diskspool: segment id space exhausted, spool directory has too many live segments")
		}
	}
}

func (b *Backend) rollWriter() error {
	if err := b.writer.file.Sync(); err != nil {
		return errors.Wrap(err, "diskspool: flush segment before roll")
	}
	if err := b.writer.close(); err != nil {
		return errors.Wrap(err, "diskspool: close writer segment")
	}
	b.writer.id++
	b.writer.offset = 0
	return nil
}

// Remove implements the read path of spec.md §4.6, bounding the
// EOF-advance retry by the number of segments known to exist so that a
// genuinely empty queue can't spin forever.
func (b *Backend) Remove() (interface{}, error) {
	attempts := len(b.segments) + 1
	for i := 0; i < attempts; i++ {
		if !b.reader.isOpen() {
			if err := b.reader.open(b.settings.segmentPath(b.reader.id)); err != nil {
				if os.IsNotExist(errors.Cause(err)) {
					return nil, io.EOF
				}
				return nil, err
			}
		}

		item, err := b.settings.Codec.Deserialize(b.reader.buffered)
		if err == nil {
			return item, nil
		}
		if err == io.EOF {
			if advErr := b.advanceReader(); advErr != nil {
				return nil, advErr
			}
			continue
		}
		// A malformed or truncated record leaves the reader's byte
		// position unreliable -- retrying at the same offset would
		// either hit the same error forever or mis-parse garbage as a
		// valid record. Abandon the rest of this segment rather than
		// continuing to read from it (spec.md §9, "disk write errors
		// only logged/wrapped" extended to cover a corrupt read).
		if advErr := b.advanceReader(); advErr != nil {
			return nil, errors.Wrap(err, "diskspool: deserialize item (segment also failed to advance)")
		}
		return nil, errors.Wrap(err, "diskspool: deserialize item")
	}
	return nil, io.EOF
}

// advanceReader closes out the reader's current segment, deletes it if the
// writer has moved past it (spec.md §9, open question 4), and moves the
// reader cursor to the next segment.
func (b *Backend) advanceReader() error {
	finishedID := b.reader.id
	if err := b.reader.close(); err != nil {
		return errors.Wrap(err, "diskspool: close reader segment")
	}
	if finishedID != b.writer.id {
		if err := os.Remove(b.settings.segmentPath(finishedID)); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "diskspool: delete consumed segment")
		}
		b.segments = removeSegment(b.segments, finishedID)
	}
	b.reader.id++
	return b.persistState()
}

func removeSegment(segments []uint64, id uint64) []uint64 {
	out := segments[:0]
	for _, s := range segments {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}

func (b *Backend) persistState() error {
	return saveState(b.settings.SpoolDir, spoolState{
		WriterID: b.writer.id,
		ReaderID: b.reader.id,
	})
}

// Close flushes and releases both cursors and the advisory lock, if held.
func (b *Backend) Close() error {
	var firstErr error
	if err := b.writer.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := b.reader.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if b.lockFile != nil {
		_ = unix.Flock(int(b.lockFile.Fd()), unix.LOCK_UN)
		if err := b.lockFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SegmentCount reports the number of segment files currently believed to
// exist, for tests and metrics.
func (b *Backend) SegmentCount() int {
	return len(b.segments)
}
