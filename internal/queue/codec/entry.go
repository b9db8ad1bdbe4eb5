package codec

import (
	"github.com/tinylib/msgp/msgp"
)

// LogEntry is the demo message object carried through the queue in
// cmd/logqueued and in the disk backend's round-trip tests. The queue
// core itself never refers to this type directly -- it only requires
// whatever Codec is configured to know how to (de)serialize it -- but a
// concrete, msgp-encodable entry is what exercises the DISK backend's
// Serializable contract end to end.
//
// MarshalMsg/UnmarshalMsg/Msgsize are hand-written in the array-encoding
// style `msgp -io=false -tests=false` would generate for a struct tagged
// `msg:",as=array"`, rather than running the generator.
type LogEntry struct {
	TimestampUnixNano int64
	Host              string
	Facility          string
	Severity          string
	Message           string
}

const logEntryFieldCount = 5

// MarshalMsg implements msgp.Marshaler.
func (e *LogEntry) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, logEntryFieldCount)
	b = msgp.AppendInt64(b, e.TimestampUnixNano)
	b = msgp.AppendString(b, e.Host)
	b = msgp.AppendString(b, e.Facility)
	b = msgp.AppendString(b, e.Severity)
	b = msgp.AppendString(b, e.Message)
	return b, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (e *LogEntry) UnmarshalMsg(b []byte) ([]byte, error) {
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return b, err
	}
	if sz != logEntryFieldCount {
		return b, msgp.ArrayError{Wanted: logEntryFieldCount, Got: sz}
	}
	if e.TimestampUnixNano, b, err = msgp.ReadInt64Bytes(b); err != nil {
		return b, err
	}
	if e.Host, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	if e.Facility, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	if e.Severity, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	if e.Message, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	return b, nil
}

// Msgsize implements msgp.Sizer, an upper bound used to preallocate the
// encode buffer.
func (e *LogEntry) Msgsize() int {
	return msgp.ArrayHeaderSize +
		msgp.Int64Size +
		msgp.StringPrefixSize + len(e.Host) +
		msgp.StringPrefixSize + len(e.Facility) +
		msgp.StringPrefixSize + len(e.Severity) +
		msgp.StringPrefixSize + len(e.Message)
}

// Equal reports whether two entries carry the same fields, used by the
// disk backend's round-trip test to check deserialize(serialize(x)) == x.
func (e *LogEntry) Equal(other *LogEntry) bool {
	if other == nil {
		return false
	}
	return *e == *other
}
