// Package packfile contains methods and structs to decode packfiles
// received over the wire (ex. during a clone).
//
// Unlike a full git implementation, objects decoded from a packfile
// are never kept in a .pack/.idx pair on disk: the packfile is decoded
// once, entirely in memory, and every object it contains is persisted
// as a loose object through the backend. There's therefore no index
// format and no on-disk Pack type here, just a Decoder that walks the
// binary stream once.
// https://git-scm.com/docs/pack-format
package packfile

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"

	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/delta"
	"github.com/Nivl/git-go/ginternals/object"
	"golang.org/x/xerrors"
)

const (
	// packfileHeaderSize contains the size of the header of a packfile.
	// the first 4 bytes contain the magic, the 4 next bytes contains the
	// version, and the last 4 bytes contains the number of objects in
	// the packfile, for a total of 12 bytes
	packfileHeaderSize = 12

	// checksumSize is the size of the trailing SHA1 of the packfile
	checksumSize = ginternals.OidSize
)

func packfileMagic() []byte {
	return []byte{'P', 'A', 'C', 'K'}
}

func packfileVersion() []byte {
	return []byte{0, 0, 0, 2}
}

var (
	// ErrIntOverflow is an error thrown when the packfile couldn't
	// be parsed because some data couldn't fit in an int64
	ErrIntOverflow = errors.New("int64 overflow")
	// ErrInvalidMagic is an error thrown when a file doesn't have
	// the expected magic.
	ErrInvalidMagic = errors.New("invalid magic")
	// ErrInvalidVersion is an error thrown when a file has an
	// unsupported version
	ErrInvalidVersion = errors.New("invalid version")
	// ErrBaseNotFound is returned when a delta's base object can't be
	// found, either because it hasn't been decoded yet or because it
	// belongs to a thin-pack and lives outside the stream
	ErrBaseNotFound = errors.New("delta base not found")
)

// OidWalkFunc represents a function applied on every oid found while
// walking a packfile
type OidWalkFunc = func(oid ginternals.Oid) error

// OidWalkStop is a fake error used to tell a Walk method to stop
var OidWalkStop = errors.New("stop walking") //nolint // it's a fake error, not a real failure

// ObjectFunc is called by Decode() for every object resolved from the
// packfile, in stream order
type ObjectFunc = func(oid ginternals.Oid, o *object.Object) error

// Decoder decodes a packfile that's entirely held in memory.
//
// Header: 12 bytes
//         The first 4 bytes contain the magic ('P', 'A', 'C', 'K')
//         The next 4 bytes contains the version (0, 0, 0, 2)
//         The last 4 bytes contains the number of objects in the packfile
// Content: Variable size
//          The content contains all the objects of the packfile, each zlib
//          compressed.
//          Before every zlib compressed objects comes a few bytes of
//          metadata about the object (the type and size of the object).
//          The size of the metadata is variable, so every byte contains
//          a MSB (Most Significant bit, the most left bit of a byte) that
//          indicates if the next byte is also part of the size or not.
//          The very first byte of the metadata contains:
//          - The MSB (1 bit)
//          - The type of the object (3 bits)
//          - the beginning of the size (4 bits)
//          The subsequent bytes contains:
//          - The MSB (1 bit)
//			- The next part of the size (7 bits)
//         The chucks of the size are little-endian encoded (right to left):
//         Final_size = [part_2][part_1][part_0]
//         /!\ The size of the object cannot be used to extract the
//         object. The size corresponds to the real size of the object
//         and not the size of the zlib compressed object (which is)
//         what we have here). It's possible that the compressed object
//         has a bigger size than the de-compressed object.
// Footer: 20 bytes
//         Contains the SHA1 sum of the packfile (without this SHA)
type Decoder struct {
	data   []byte
	header [packfileHeaderSize]byte

	// byOffset caches every object already decoded, keyed by its
	// starting offset in data. Offset-deltas always point backward,
	// so by the time we need a base it's already in this map.
	byOffset map[uint64]*object.Object
	// resolveExternal looks up an object that's not part of this
	// packfile. It's used for ref-deltas against objects the caller
	// already owns. It may be nil, in which case ref-deltas can only
	// resolve against objects already seen in the stream.
	resolveExternal func(ginternals.Oid) (*object.Object, error)
}

// NewDecoder reads the whole packfile into memory and validates its
// header. The actual objects aren't parsed until Decode() is called.
// resolveExternal is used to look up ref-delta bases that live
// outside of the packfile (ex. thin packs); it may be nil.
func NewDecoder(r io.Reader, resolveExternal func(ginternals.Oid) (*object.Object, error)) (*Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("could not read packfile: %w", err)
	}
	if len(data) < packfileHeaderSize+checksumSize {
		return nil, xerrors.Errorf("packfile too small: %w", ErrInvalidMagic)
	}

	d := &Decoder{
		data:            data,
		byOffset:        map[uint64]*object.Object{},
		resolveExternal: resolveExternal,
	}
	copy(d.header[:], data[:packfileHeaderSize])

	if !bytes.Equal(d.header[0:4], packfileMagic()) {
		return nil, xerrors.Errorf("invalid header: %w", ErrInvalidMagic)
	}
	if !bytes.Equal(d.header[4:8], packfileVersion()) {
		return nil, xerrors.Errorf("invalid header: %w", ErrInvalidVersion)
	}

	return d, nil
}

// ObjectCount returns the number of objects in the packfile
func (d *Decoder) ObjectCount() uint32 {
	return binary.BigEndian.Uint32(d.header[8:])
}

// Checksum returns the trailing SHA1 of the packfile content
func (d *Decoder) Checksum() (ginternals.Oid, error) {
	sum := d.data[len(d.data)-checksumSize:]
	oid, err := ginternals.NewOidFromHex(sum)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not parse checksum: %w", err)
	}
	return oid, nil
}

// Decode walks every object of the packfile, resolving deltas along
// the way, and invokes cb with the fully reconstructed object, in the
// order the objects appear in the stream.
func (d *Decoder) Decode(cb ObjectFunc) error {
	offset := uint64(packfileHeaderSize)
	end := uint64(len(d.data) - checksumSize)

	total := d.ObjectCount()
	for i := uint32(0); i < total; i++ {
		if offset >= end {
			return xerrors.Errorf("unexpected end of packfile after %d/%d objects", i, total)
		}

		o, bytesRead, err := d.decodeEntryAt(offset)
		if err != nil {
			return xerrors.Errorf("could not decode object at offset %d: %w", offset, err)
		}
		d.byOffset[offset] = o
		offset += bytesRead

		if err := cb(o.ID(), o); err != nil {
			if errors.Is(err, OidWalkStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// resolveAt returns the fully resolved object located at the given
// offset, decoding it if it hasn't been seen yet. Used to fetch
// offset-delta bases, which always point backward in the stream.
func (d *Decoder) resolveAt(offset uint64) (*object.Object, error) {
	if o, ok := d.byOffset[offset]; ok {
		return o, nil
	}
	o, _, err := d.decodeEntryAt(offset)
	if err != nil {
		return nil, err
	}
	d.byOffset[offset] = o
	return o, nil
}

func (d *Decoder) resolveExternalOrCached(oid ginternals.Oid) (*object.Object, error) {
	for _, o := range d.byOffset {
		if o.ID() == oid {
			return o, nil
		}
	}
	if d.resolveExternal != nil {
		o, err := d.resolveExternal(oid)
		if err != nil {
			return nil, xerrors.Errorf("could not look up external base %s: %w", oid.String(), err)
		}
		return o, nil
	}
	return nil, xerrors.Errorf("base %s: %w", oid.String(), ErrBaseNotFound)
}

// decodeEntryAt parses and, if needed, resolves the delta of the
// object starting at offset. It returns the object along with the
// number of bytes it occupies in the stream.
func (d *Decoder) decodeEntryAt(offset uint64) (o *object.Object, bytesRead uint64, err error) {
	typ, size, baseOid, baseOffset, payload, n, err := d.readEntry(offset)
	if err != nil {
		return nil, 0, err
	}

	switch typ { //nolint:exhaustive // only deltas need special handling
	case object.ObjectDeltaRef, object.ObjectDeltaOFS:
		var base *object.Object
		if typ == object.ObjectDeltaRef {
			base, err = d.resolveExternalOrCached(baseOid)
		} else {
			base, err = d.resolveAt(baseOffset)
		}
		if err != nil {
			return nil, 0, xerrors.Errorf("could not resolve delta base: %w", err)
		}

		resolvedContent, err := delta.Apply(base.Bytes(), payload)
		if err != nil {
			return nil, 0, xerrors.Errorf("could not apply delta: %w", err)
		}
		return object.New(base.Type(), resolvedContent), n, nil
	default:
		if int(size) != len(payload) {
			return nil, 0, xerrors.Errorf("object size not valid. expecting %d, got %d", size, len(payload))
		}
		return object.New(typ, payload), n, nil
	}
}

// readEntry parses the metadata + payload of the object located at
// offset and returns everything needed to either build the object
// (non-delta) or resolve it (delta), plus the total number of bytes
// consumed from the stream.
func (d *Decoder) readEntry(offset uint64) (typ object.Type, size uint64, baseOid ginternals.Oid, baseOffset uint64, payload []byte, bytesRead uint64, err error) {
	src := bytes.NewReader(d.data[offset:])
	buf := bufio.NewReader(src)

	// parse the metadata of the object
	// the metadata is X bytes long and contains:
	// 1 first byte that contains
	//   - a MSB (1 bit)
	//   - the Object type (3 bits)
	//   - the beginning of the object size (4 bits)
	// X more bytes that contains:
	//   - a MSB (a bit)
	//   - the next part of the size (7 bits)
	// Once the MSB of a byte is 0 it means the byte is the last
	// one we need to read.
	first, err := buf.ReadByte()
	if err != nil {
		return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("could not read object meta: %w", err)
	}

	// value       : MTTT_SSSS // M = MSB ; T = type ; S = size
	// & 0111_0000 : 0TTT_0000
	// >> 4        : 0000_0TTT
	typ = object.Type((first & 0b_0111_0000) >> 4)
	if !typ.IsValid() {
		return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("unknown object type %d", typ)
	}

	// value       : MTTT_SSSS // M = MSB ; T = type; S = size
	// & 0000_1111  : 0000_SSSS
	size = uint64(first & 0b_0000_1111)

	if isMSBSet(first) {
		rest, peekErr := buf.Peek(9)
		if peekErr != nil && len(rest) == 0 {
			return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("couldn't read object size: %w", peekErr)
		}
		extra, n, sizeErr := readSize(rest)
		if sizeErr != nil {
			return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("couldn't read object size: %w", sizeErr)
		}
		if _, err := buf.Discard(n); err != nil {
			return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("could not skip the size: %w", err)
		}
		// we add 4bits to the right of $extra, then we merge everything with |
		size |= extra << 4
	}

	switch typ { //nolint:exhaustive // only 2 types have a special treatment
	case object.ObjectDeltaRef:
		raw := make([]byte, ginternals.OidSize)
		if _, err = io.ReadFull(buf, raw); err != nil {
			return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("could not get base object SHA: %w", err)
		}
		baseOid, err = ginternals.NewOidFromHex(raw)
		if err != nil {
			return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("could not parse base object SHA %#v: %w", raw, err)
		}
	case object.ObjectDeltaOFS:
		rest, peekErr := buf.Peek(9)
		if peekErr != nil && len(rest) == 0 {
			return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("could not get base object offset: %w", peekErr)
		}
		rel, n, offErr := readDeltaOffset(rest)
		if offErr != nil {
			return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("couldn't read base object offset: %w", offErr)
		}
		if _, err := buf.Discard(n); err != nil {
			return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("could not skip the offset: %w", err)
		}
		baseOffset = offset - rel
	}

	zlibR, err := zlib.NewReader(buf)
	if err != nil {
		return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("could not get zlib reader: %w", err)
	}
	var out bytes.Buffer
	if _, err = io.Copy(&out, zlibR); err != nil {
		return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("could not decompress: %w", err)
	}
	if err = zlibR.Close(); err != nil {
		return 0, 0, ginternals.NullOid, 0, nil, 0, xerrors.Errorf("could not close zlib reader: %w", err)
	}

	// the zlib stream has been fully consumed by io.Copy; anything
	// still sitting in the bufio.Reader hasn't actually been read off
	// the wire, so the real stream position is what bufio pulled from
	// the slice minus what's left buffered
	bytesRead = uint64(src.Size()-int64(src.Len())) - uint64(buf.Buffered())

	return typ, size, baseOid, baseOffset, out.Bytes(), bytesRead, nil
}

// readSize reads the provided bytes to extract what's left for the
// size from an object metadata.
// This method is only to read the remaining parts of a size.
func readSize(data []byte) (objectSize uint64, bytesRead int, err error) {
	for i, b := range data {
		bytesRead++

		// We make sure to remove the MSB because it's not part of the size
		chunk := unsetMSB(b)

		// Sizes are little endian encoded, because why not
		objectSize = insertLittleEndian7(objectSize, chunk, uint8(i))

		// No more MSB? Then we're done reading the size
		if !isMSBSet(b) {
			break
		}
	}
	if bytesRead == 0 {
		return 0, 0, ErrIntOverflow
	}

	// if the last byte read has its MSB set it means that we have an
	// overflow (bytesRead - 1 is also == to len(data))
	if isMSBSet(data[bytesRead-1]) {
		return 0, 0, ErrIntOverflow
	}

	return objectSize, bytesRead, nil
}

// readDeltaOffset reads the provided bytes to extract an ofs-delta
// base offset. The format of each byte is:
// - 1 bit (MSB) that is used to know if we need to read the next byte
// - 7 bits that contains a chunk of offset
// Unlike a plain big-endian varint, each continuation chunk biases the
// already-accumulated value by 1 before shifting it in
// (v = ((v+1)<<7) | chunk), so the encoding can't represent the same
// value two different ways. Dropping that +1 (i.e. plain
// base<<7|chunk) silently mis-decodes every offset that spans more
// than one byte.
func readDeltaOffset(data []byte) (offset uint64, bytesRead int, err error) {
	if len(data) == 0 {
		return 0, 0, ErrIntOverflow
	}

	b := data[0]
	offset = uint64(unsetMSB(b))
	bytesRead = 1

	for isMSBSet(b) {
		if bytesRead >= len(data) {
			return 0, 0, ErrIntOverflow
		}
		b = data[bytesRead]
		bytesRead++
		offset = ((offset + 1) << 7) | uint64(unsetMSB(b))
	}

	return offset, bytesRead, nil
}

// insertLittleEndian7 inserts $chunk into $base from the left.
// Only the 7 most right bits will be inserted.
// Example:
// base   = 1110_1010_1111_1100
// chunk  = 1010_1011
// Result = 1010_1011_1110_1010_1111_1100 [chunk][base]
func insertLittleEndian7(base uint64, chunk, position uint8) uint64 {
	return (uint64(chunk) << (position * 7)) | base
}

// isMSBSet checks if the MSB of a byte is set to 1.
// The MSB is the first bit on the left
func isMSBSet(b byte) bool {
	return b >= 0b_1000_0000
}

// unsetMSB set the most left bit of the byte to 0
func unsetMSB(b byte) byte {
	return b & 0b_0111_1111
}
