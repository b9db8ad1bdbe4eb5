package codec

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/njcx/logqueued/internal/queue/spoolio"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONCodec is an alternate Serializable implementation, demonstrating
// that the disk backend's Serializable capability is codec-agnostic: it
// only needs something that can turn an entry into framed bytes and back.
type JSONCodec struct {
	// New returns a fresh pointer to decode a record into.
	New func() interface{}
}

// NewLogEntryJSONCodec returns a JSONCodec bound to codec.LogEntry.
func NewLogEntryJSONCodec() JSONCodec {
	return JSONCodec{New: func() interface{} { return &LogEntry{} }}
}

func (c JSONCodec) Serialize(item interface{}, w io.Writer) error {
	buf, err := jsonAPI.Marshal(item)
	if err != nil {
		return errors.Wrap(err, "codec: json marshal")
	}
	return WriteFramed(w, buf)
}

func (c JSONCodec) Deserialize(src spoolio.ByteSource) (interface{}, error) {
	buf, err := ReadFramed(src)
	if err != nil {
		return nil, err
	}
	item := c.New()
	if err := jsonAPI.Unmarshal(buf, item); err != nil {
		return nil, errors.Wrap(err, "codec: json unmarshal")
	}
	return item, nil
}
