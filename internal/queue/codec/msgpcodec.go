package codec

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/njcx/logqueued/internal/queue/spoolio"
)

// MsgpCodec is the default Serializable implementation for disk-backed
// queues: it frames a tinylib/msgp-encoded payload behind the codec
// package's generic length prefix.
type MsgpCodec struct {
	// New returns a fresh, zero-value instance to unmarshal into. It must
	// return a new value on every call; the codec is used by a single
	// reader goroutine (disk queues force worker_count to 1) but reusing
	// a value across calls would leak the previous record's fields into
	// the next one.
	New func() msgp.Unmarshaler
}

// NewLogEntryMsgpCodec returns a MsgpCodec bound to codec.LogEntry, the
// demo message type used by cmd/logqueued.
func NewLogEntryMsgpCodec() MsgpCodec {
	return MsgpCodec{New: func() msgp.Unmarshaler { return &LogEntry{} }}
}

func (c MsgpCodec) Serialize(item interface{}, w io.Writer) error {
	m, ok := item.(msgp.Marshaler)
	if !ok {
		return errors.Errorf("codec: %T does not implement msgp.Marshaler", item)
	}
	buf, err := m.MarshalMsg(nil)
	if err != nil {
		return errors.Wrap(err, "codec: msgp marshal")
	}
	return WriteFramed(w, buf)
}

func (c MsgpCodec) Deserialize(src spoolio.ByteSource) (interface{}, error) {
	buf, err := ReadFramed(src)
	if err != nil {
		return nil, err
	}
	item := c.New()
	rest, err := item.UnmarshalMsg(buf)
	if err != nil {
		return nil, errors.Wrap(err, "codec: msgp unmarshal")
	}
	if len(rest) != 0 {
		return nil, errors.Errorf("codec: %d trailing bytes after msgp record", len(rest))
	}
	return item, nil
}
