package packfile_test

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/object"
	"github.com/Nivl/git-go/ginternals/packfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entry describes a single object to bake into a synthetic packfile
type entry struct {
	typ     object.Type
	content []byte
}

// buildPackfile assembles a minimal but valid packfile (sans trailing
// checksum validation, since Decoder never recomputes it) containing
// the given entries, in order. Deltas aren't supported by this helper;
// it's only meant to exercise non-delta decoding end to end.
func buildPackfile(t *testing.T, entries []entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("PACK")
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(2)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(entries))))

	for _, e := range entries {
		size := len(e.content)
		first := byte(e.typ)<<4 | byte(size&0b_1111)
		size >>= 4
		if size > 0 {
			first |= 0b_1000_0000
		}
		buf.WriteByte(first)
		for size > 0 {
			b := byte(size & 0b_0111_1111)
			size >>= 7
			if size > 0 {
				b |= 0b_1000_0000
			}
			buf.WriteByte(b)
		}

		zw := zlib.NewWriter(&buf)
		_, err := zw.Write(e.content)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	}

	// trailing checksum: Decoder doesn't validate it, a 20 byte
	// placeholder is enough
	buf.Write(make([]byte, ginternals.OidSize))

	return buf.Bytes()
}

func TestNewDecoder(t *testing.T) {
	t.Parallel()

	t.Run("valid header should pass", func(t *testing.T) {
		t.Parallel()

		data := buildPackfile(t, []entry{
			{typ: object.TypeBlob, content: []byte("hello world")},
		})
		dec, err := packfile.NewDecoder(bytes.NewReader(data), nil)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), dec.ObjectCount())
	})

	t.Run("invalid magic should fail", func(t *testing.T) {
		t.Parallel()

		data := buildPackfile(t, []entry{{typ: object.TypeBlob, content: []byte("x")}})
		data[0] = 'X'
		_, err := packfile.NewDecoder(bytes.NewReader(data), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, packfile.ErrInvalidMagic))
	})

	t.Run("invalid version should fail", func(t *testing.T) {
		t.Parallel()

		data := buildPackfile(t, []entry{{typ: object.TypeBlob, content: []byte("x")}})
		data[7] = 99
		_, err := packfile.NewDecoder(bytes.NewReader(data), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, packfile.ErrInvalidVersion))
	})
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("should decode every object in order", func(t *testing.T) {
		t.Parallel()

		blobContent := []byte("# Binaries for programs and plugins\n")
		treeBlobID := object.New(object.TypeBlob, blobContent).ID()

		tree := object.NewTree([]object.TreeEntry{
			{Mode: object.ModeFile, ID: treeBlobID, Path: "const.go"},
		})
		treeContent := tree.ToObject().Bytes()

		data := buildPackfile(t, []entry{
			{typ: object.TypeBlob, content: blobContent},
			{typ: object.TypeTree, content: treeContent},
		})

		dec, err := packfile.NewDecoder(bytes.NewReader(data), nil)
		require.NoError(t, err)

		var seen []object.Type
		err = dec.Decode(func(oid ginternals.Oid, o *object.Object) error {
			seen = append(seen, o.Type())
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []object.Type{object.TypeBlob, object.TypeTree}, seen)
	})

	t.Run("should stop on OidWalkStop", func(t *testing.T) {
		t.Parallel()

		data := buildPackfile(t, []entry{
			{typ: object.TypeBlob, content: []byte("a")},
			{typ: object.TypeBlob, content: []byte("b")},
			{typ: object.TypeBlob, content: []byte("c")},
		})
		dec, err := packfile.NewDecoder(bytes.NewReader(data), nil)
		require.NoError(t, err)

		count := 0
		err = dec.Decode(func(oid ginternals.Oid, o *object.Object) error {
			count++
			if count == 1 {
				return packfile.OidWalkStop
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("should propagate a callback error", func(t *testing.T) {
		t.Parallel()

		data := buildPackfile(t, []entry{
			{typ: object.TypeBlob, content: []byte("a")},
			{typ: object.TypeBlob, content: []byte("b")},
		})
		dec, err := packfile.NewDecoder(bytes.NewReader(data), nil)
		require.NoError(t, err)

		someErr := errors.New("some error")
		err = dec.Decode(func(oid ginternals.Oid, o *object.Object) error {
			return someErr
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, someErr))
	})
}
