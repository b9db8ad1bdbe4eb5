// Package codec implements the Serializable contract (spec.md §3, §6) on
// top of the spoolio buffered ByteSource: a Codec knows how to turn a queue
// entry into a length-prefixed byte sequence and back. Two concrete codecs
// are provided (MsgpCodec, JSONCodec); both share the framing helpers here
// so the on-disk format stays consistent regardless of payload encoding.
package codec

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/njcx/logqueued/internal/queue/errs"
	"github.com/njcx/logqueued/internal/queue/spoolio"
)

// Codec serializes queue entries to a byte sink and reconstructs them from
// a spoolio.ByteSource. Implementations must be safe for concurrent use
// only to the extent the disk backend requires: in practice this is never
// an issue because the disk queue forces worker_count to 1.
type Codec interface {
	Serialize(item interface{}, w io.Writer) error
	Deserialize(src spoolio.ByteSource) (interface{}, error)
}

// maxFrameBytes bounds a single record so a corrupted length prefix can't
// make the reader try to allocate an unreasonable buffer.
const maxFrameBytes = 64 << 20 // 64MiB

// WriteFramed writes a 4-byte big-endian length prefix followed by payload,
// the self-describing envelope every Codec's Serialize wraps its encoded
// bytes in.
func WriteFramed(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "codec: write length prefix")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "codec: write payload")
	}
	return nil
}

// ReadFramed reads one length-prefixed record from src. A clean end of
// spool (no bytes at all before the length prefix) is reported as io.EOF;
// running out of bytes partway through a frame is reported as ErrFormat,
// since that means a segment was truncated mid-record.
func ReadFramed(src spoolio.ByteSource) ([]byte, error) {
	var hdr [4]byte
	for i := range hdr {
		c, err := src.GetChar()
		if err != nil {
			if i == 0 && err == io.EOF {
				return nil, io.EOF
			}
			return nil, errors.Wrap(errs.ErrFormat, "codec: truncated length prefix")
		}
		hdr[i] = c
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrameBytes {
		return nil, errors.Wrapf(errs.ErrFormat, "codec: frame of %d bytes exceeds limit", n)
	}
	buf := make([]byte, n)
	for i := range buf {
		c, err := src.GetChar()
		if err != nil {
			return nil, errors.Wrap(errs.ErrFormat, "codec: truncated payload")
		}
		buf[i] = c
	}
	return buf, nil
}
