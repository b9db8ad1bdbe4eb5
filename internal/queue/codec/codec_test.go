package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njcx/logqueued/internal/queue/errs"
	"github.com/njcx/logqueued/internal/queue/spoolio"
)

// TestMsgpCodec_RoundTrip is spec.md §8's round-trip law:
// deserialize(serialize(x)) == x byte-for-byte, here checked field by
// field via LogEntry.Equal.
func TestMsgpCodec_RoundTrip(t *testing.T) {
	c := NewLogEntryMsgpCodec()
	want := &LogEntry{TimestampUnixNano: 42, Host: "h1", Facility: "local0", Severity: "err", Message: "boom"}

	var buf bytes.Buffer
	require.NoError(t, c.Serialize(want, &buf))

	got, err := c.Deserialize(spoolio.NewReader(&buf, 0))
	require.NoError(t, err)
	assert.True(t, want.Equal(got.(*LogEntry)))
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	c := NewLogEntryJSONCodec()
	want := &LogEntry{TimestampUnixNano: 7, Host: "h2", Facility: "mail", Severity: "warn", Message: "hello"}

	var buf bytes.Buffer
	require.NoError(t, c.Serialize(want, &buf))

	got, err := c.Deserialize(spoolio.NewReader(&buf, 0))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadFramed_EmptySourceIsEOF(t *testing.T) {
	_, err := ReadFramed(spoolio.NewReader(bytes.NewReader(nil), 0))
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFramed_TruncatedLengthPrefixIsFormatError(t *testing.T) {
	_, err := ReadFramed(spoolio.NewReader(bytes.NewReader([]byte{0, 0}), 0))
	assert.ErrorIs(t, err, errs.ErrFormat)
}

func TestMultipleRecordsBackToBack(t *testing.T) {
	c := NewLogEntryMsgpCodec()
	var buf bytes.Buffer
	entries := []*LogEntry{
		{Message: "one"},
		{Message: "two"},
		{Message: "three"},
	}
	for _, e := range entries {
		require.NoError(t, c.Serialize(e, &buf))
	}

	src := spoolio.NewReader(&buf, 0)
	for _, want := range entries {
		got, err := c.Deserialize(src)
		require.NoError(t, err)
		assert.True(t, want.Equal(got.(*LogEntry)))
	}
	_, err := c.Deserialize(src)
	assert.ErrorIs(t, err, io.EOF)
}
