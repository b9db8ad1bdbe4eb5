package diskspool

import (
	"os"

	"github.com/pkg/errors"

	"github.com/njcx/logqueued/internal/queue/spoolio"
)

// writerCursor is the DiskBackend's write-side FileCursor (spec.md §3):
// current segment id, an open file handle (or nil when closed) and the
// write offset within that segment.
type writerCursor struct {
	id     uint64
	file   *os.File
	offset int64
}

func (w *writerCursor) isOpen() bool { return w.file != nil }

func (w *writerCursor) open(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return errors.Wrapf(err, "diskspool: open writer segment %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "diskspool: stat writer segment %s", path)
	}
	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		f.Close()
		return errors.Wrapf(err, "diskspool: seek writer segment %s", path)
	}
	w.file = f
	w.offset = info.Size()
	return nil
}

func (w *writerCursor) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// readerCursor is the DiskBackend's read-side FileCursor: current segment
// id, an open file handle (or nil when closed), and a buffered
// spoolio.Reader giving get_char/unget_char semantics over that file.
type readerCursor struct {
	id       uint64
	file     *os.File
	buffered *spoolio.Reader
	pageSize int
}

func (r *readerCursor) isOpen() bool { return r.file != nil }

func (r *readerCursor) open(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "diskspool: open reader segment %s", path)
	}
	r.file = f
	if r.buffered == nil {
		r.buffered = spoolio.NewReader(f, r.pageSize)
	} else {
		r.buffered.Reset(f)
	}
	return nil
}

func (r *readerCursor) close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
