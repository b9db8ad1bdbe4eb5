package spoolio

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_GetCharReadsInOrder(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("abcde")), 2)
	for _, want := range []byte("abcde") {
		got, err := r.GetChar()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := r.GetChar()
	assert.ErrorIs(t, err, io.EOF)
}

// TestReader_UngetIdempotence is spec.md §8's unget law: unget_char(c);
// get_char() == c, and after the pair the reader's state matches the
// state before the unget.
func TestReader_UngetIdempotence(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("abc")), DefaultPageSize)

	first, err := r.GetChar()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), first)

	r.UngetChar(first)
	replayed, err := r.GetChar()
	require.NoError(t, err)
	assert.Equal(t, first, replayed)

	rest := []byte{}
	for {
		c, err := r.GetChar()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rest = append(rest, c)
	}
	assert.Equal(t, []byte("bc"), rest)
}

func TestReader_UngetTwiceWithoutGetPanics(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("a")), DefaultPageSize)
	assert.Panics(t, func() {
		r.UngetChar('x')
		r.UngetChar('y')
	})
}

func TestReader_EmptySourceIsImmediateEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), DefaultPageSize)
	_, err := r.GetChar()
	assert.ErrorIs(t, err, io.EOF)
}
