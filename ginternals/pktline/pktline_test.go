package pktline_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Nivl/git-go/ginternals/pktline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderReadPacket(t *testing.T) {
	t.Parallel()

	t.Run("should decode a single packet followed by a flush", func(t *testing.T) {
		t.Parallel()

		r := pktline.NewReader(bytes.NewBufferString("000bhello\n0000"))

		payload, err := r.ReadPacket()
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(payload))

		_, err = r.ReadPacket()
		require.Error(t, err)
		assert.True(t, errors.Is(err, pktline.FlushPkt))
	})

	t.Run("should fail on a length between 1 and 3", func(t *testing.T) {
		t.Parallel()

		r := pktline.NewReader(bytes.NewBufferString("0003"))
		_, err := r.ReadPacket()
		require.Error(t, err)
		assert.True(t, errors.Is(err, pktline.ErrInvalidLength))
	})

	t.Run("should fail on a non-hex length", func(t *testing.T) {
		t.Parallel()

		r := pktline.NewReader(bytes.NewBufferString("zzzzhello"))
		_, err := r.ReadPacket()
		require.Error(t, err)
		assert.True(t, errors.Is(err, pktline.ErrInvalidLength))
	})

	t.Run("should fail on a truncated stream", func(t *testing.T) {
		t.Parallel()

		r := pktline.NewReader(bytes.NewBufferString("000bhel"))
		_, err := r.ReadPacket()
		require.Error(t, err)
	})
}

func TestWriterWritePacket(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := pktline.NewWriter(&buf)
	require.NoError(t, w.WriteString("hello\n"))
	require.NoError(t, w.WriteFlush())

	assert.Equal(t, "000bhello\n0000", buf.String())
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := pktline.NewWriter(&buf)
	require.NoError(t, w.WriteString("hello\n"))
	require.NoError(t, w.WriteFlush())

	r := pktline.NewReader(&buf)
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)

	_, err = r.ReadPacket()
	assert.True(t, errors.Is(err, pktline.FlushPkt))
}
