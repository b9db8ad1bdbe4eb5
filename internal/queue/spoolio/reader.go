// Package spoolio provides the character-granular, single-byte-unget
// buffered reader that the disk queue's deserializer reads segment files
// through.
package spoolio

import (
	"io"

	"github.com/pkg/errors"
)

// DefaultPageSize is the buffer size used when a Reader is not given an
// explicit one. Chosen to match a single filesystem block on most setups.
const DefaultPageSize = 4096

// ByteSource is the read side of the Serializable contract: a deserializer
// pulls bytes one at a time and may push exactly one byte back.
type ByteSource interface {
	// GetChar returns the next byte, or io.EOF once the source is exhausted.
	GetChar() (byte, error)
	// UngetChar pushes c back so the next GetChar returns it. It is a
	// programming error to call UngetChar twice without an intervening
	// GetChar, and Reader panics in that case rather than silently
	// dropping the first ungotten byte.
	UngetChar(c byte)
}

// Reader adapts an io.Reader into a ByteSource, refilling a fixed-size page
// lazily on first use and on exhaustion.
type Reader struct {
	r        io.Reader
	pageSize int

	page  []byte
	idx   int
	count int

	unget    byte
	hasUnget bool
}

// NewReader wraps r in a buffered ByteSource using pageSize-byte pages. A
// pageSize of 0 selects DefaultPageSize.
func NewReader(r io.Reader, pageSize int) *Reader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Reader{r: r, pageSize: pageSize}
}

// Reset rebinds the reader to a new underlying io.Reader and drops any
// buffered page or unget byte, so a single Reader can be reused across
// segment files.
func (b *Reader) Reset(r io.Reader) {
	b.r = r
	b.idx = 0
	b.count = 0
	b.hasUnget = false
}

func (b *Reader) GetChar() (byte, error) {
	if b.hasUnget {
		b.hasUnget = false
		return b.unget, nil
	}
	if b.idx >= b.count {
		if err := b.refill(); err != nil {
			return 0, err
		}
	}
	c := b.page[b.idx]
	b.idx++
	return c, nil
}

func (b *Reader) UngetChar(c byte) {
	if b.hasUnget {
		panic("spoolio: UngetChar called twice without an intervening GetChar")
	}
	b.unget = c
	b.hasUnget = true
}

func (b *Reader) refill() error {
	if b.page == nil {
		b.page = make([]byte, b.pageSize)
	}
	n, err := b.r.Read(b.page)
	if n == 0 {
		if err == nil || err == io.EOF {
			return io.EOF
		}
		return errors.Wrap(err, "spoolio: refill failed")
	}
	b.idx = 0
	b.count = n
	// A short read that also reports an error (other than EOF) still
	// yields the bytes we got; the error resurfaces on the next refill.
	return nil
}
