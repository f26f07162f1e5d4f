// Package delta applies git's packfile delta encoding: given a base
// object's content and a delta instruction stream, it reconstructs
// the target content.
// https://git-scm.com/docs/pack-format#_deltified_representation
package delta

import (
	"bytes"
	"encoding/binary"
	"errors"

	"golang.org/x/xerrors"
)

// ErrInvalid is returned when a delta stream is malformed or doesn't
// match the base it's being applied to
var ErrInvalid = errors.New("invalid delta")

// Apply reconstructs the target content described by delta, using
// base as the source of COPY instructions.
//
// A delta stream starts with 2 size-encoded varints (the size of the
// base, and the size of the target), followed by a sequence of COPY
// and INSERT instructions:
//   - COPY:   MSB set. Copies a range of $base into the output.
//   - INSERT: MSB unset. The remaining 7 bits are the number of bytes
//     that directly follow in the delta stream, to append as-is.
func Apply(base []byte, delta []byte) ([]byte, error) {
	srcSize, n, err := readSize(delta)
	if err != nil {
		return nil, xerrors.Errorf("could not read source size: %w", err)
	}
	if int(srcSize) != len(base) {
		return nil, xerrors.Errorf("base size mismatch: expected %d, got %d: %w", srcSize, len(base), ErrInvalid)
	}
	delta = delta[n:]

	targetSize, n, err := readSize(delta)
	if err != nil {
		return nil, xerrors.Errorf("could not read target size: %w", err)
	}
	instructions := delta[n:]

	out := bytes.NewBuffer(make([]byte, 0, targetSize))
	for i := 0; i < len(instructions); {
		instr := instructions[i]
		i++

		if isMSBSet(instr) {
			offset, copyLen, consumed, err := readCopyArgs(instr, instructions[i:])
			if err != nil {
				return nil, xerrors.Errorf("could not parse copy instruction: %w", err)
			}
			i += consumed
			if int(offset+copyLen) > len(base) {
				return nil, xerrors.Errorf("copy instruction out of bounds: %w", ErrInvalid)
			}
			out.Write(base[offset : offset+copyLen])
			continue
		}

		// INSERT: $instr is itself the number of bytes to copy from
		// the delta stream directly into the output
		n := int(instr)
		if i+n > len(instructions) {
			return nil, xerrors.Errorf("insert instruction out of bounds: %w", ErrInvalid)
		}
		out.Write(instructions[i : i+n])
		i += n
	}

	if out.Len() != int(targetSize) {
		return nil, xerrors.Errorf("target size mismatch: expected %d, got %d: %w", targetSize, out.Len(), ErrInvalid)
	}
	return out.Bytes(), nil
}

// readCopyArgs parses the offset and length that follow a COPY
// instruction's leading byte. Both are stored as a variable number of
// little-endian bytes, selected by the 7 non-MSB bits of instr:
// the 4 lowest bits pick which of the 4 offset bytes are present, the
// next 3 bits pick which of the 3 length bytes are present.
func readCopyArgs(instr byte, rest []byte) (offset, length uint32, consumed int, err error) {
	offsetBytes := make([]byte, 4)
	for j := uint(0); j < 4; j++ {
		if instr>>j&1 == 1 {
			if consumed >= len(rest) {
				return 0, 0, 0, xerrors.Errorf("truncated copy offset: %w", ErrInvalid)
			}
			offsetBytes[j] = rest[consumed]
			consumed++
		}
	}
	offset = binary.LittleEndian.Uint32(offsetBytes)

	lengthBytes := make([]byte, 4)
	for j := uint(0); j < 3; j++ {
		if instr>>(4+j)&1 == 1 {
			if consumed >= len(rest) {
				return 0, 0, 0, xerrors.Errorf("truncated copy length: %w", ErrInvalid)
			}
			lengthBytes[j] = rest[consumed]
			consumed++
		}
	}
	length = binary.LittleEndian.Uint32(lengthBytes)
	// a copy length of 0 actually means 0x10000, per the pack format spec
	if length == 0 {
		length = 0x10000
	}

	return offset, length, consumed, nil
}

// readSize reads a delta-encoded varint: each byte contributes its 7
// low bits, least-significant chunk first, and the MSB signals
// whether another byte follows.
func readSize(data []byte) (size uint64, bytesRead int, err error) {
	for i, b := range data {
		bytesRead++
		size |= uint64(unsetMSB(b)) << (uint(i) * 7)
		if !isMSBSet(b) {
			return size, bytesRead, nil
		}
	}
	return 0, 0, xerrors.Errorf("truncated size: %w", ErrInvalid)
}

func isMSBSet(b byte) bool {
	return b >= 0b_1000_0000
}

func unsetMSB(b byte) byte {
	return b & 0b_0111_1111
}
