// Package pktline implements the git pkt-line framing format and the
// side-band multiplexing built on top of it.
// https://git-scm.com/docs/protocol-common#_pkt_line_format
package pktline

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"golang.org/x/xerrors"
)

// MaxPayloadSize is the largest payload a single pkt-line record can
// carry (65516 bytes of data, plus the 4-byte length prefix gives the
// side-band-64k maximum of 65520 bytes per packet).
const MaxPayloadSize = 65516

// lengthPrefixSize is the size, in bytes, of the hex length prefix
const lengthPrefixSize = 4

// ErrInvalidLength is returned when a pkt-line's length prefix isn't a
// valid 4-digit hex number, or encodes a length between 1 and 3
var ErrInvalidLength = errors.New("invalid pkt-line length")

// FlushPkt is returned by Reader.ReadPacket() when a flush-pkt ("0000")
// is read. It's a sentinel, not a real error.
var FlushPkt = errors.New("flush-pkt") //nolint // fake error used as a sentinel

// Reader decodes a stream of pkt-lines
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader that parses the pkt-line records coming
// from the provided io.Reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadPacket reads a single pkt-line and returns its payload.
// FlushPkt is returned (as the error) when a flush packet ("0000") is
// read; the returned payload is nil in that case.
func (r *Reader) ReadPacket() ([]byte, error) {
	lengthHex := make([]byte, lengthPrefixSize)
	if _, err := io.ReadFull(r.r, lengthHex); err != nil {
		return nil, xerrors.Errorf("could not read pkt-line length: %w", err)
	}

	size, err := parseHexLen(lengthHex)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", err.Error(), ErrInvalidLength)
	}

	if size == 0 {
		return nil, FlushPkt
	}
	if size < lengthPrefixSize {
		return nil, xerrors.Errorf("length %d: %w", size, ErrInvalidLength)
	}

	payload := make([]byte, size-lengthPrefixSize)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, xerrors.Errorf("could not read pkt-line payload: %w", err)
	}
	return payload, nil
}

// ReadLine reads a single pkt-line and returns its payload as a string.
// It's a thin convenience wrapper around ReadPacket for callers dealing
// with the textual parts of the protocol (capability lines, ref
// advertisements, status lines).
func (r *Reader) ReadLine() (string, error) {
	p, err := r.ReadPacket()
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// parseHexLen parses the 4 ASCII hex digits making up a pkt-line's
// length prefix. It rejects anything that isn't valid hex instead of
// relying on strconv's more permissive parsing (signs, underscores...).
func parseHexLen(b []byte) (int, error) {
	n := 0
	for _, c := range b {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= int(c - '0')
		case c >= 'a' && c <= 'f':
			n |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n |= int(c-'A') + 10
		default:
			return 0, xerrors.Errorf("%q is not a valid hex length", string(b))
		}
	}
	return n, nil
}

// Writer encodes pkt-line records onto an io.Writer
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer that writes pkt-line records to the
// provided io.Writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WritePacket writes a single pkt-line record containing the given
// payload. An empty (nil or zero-length) payload still produces a
// valid, non-flush record ("0004").
func (w *Writer) WritePacket(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return xerrors.Errorf("payload of %d bytes exceeds max pkt-line payload size %d", len(payload), MaxPayloadSize)
	}

	size := len(payload) + lengthPrefixSize
	header := []byte(fmt.Sprintf("%04x", size))

	if _, err := w.w.Write(header); err != nil {
		return xerrors.Errorf("could not write pkt-line length: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.w.Write(payload); err != nil {
			return xerrors.Errorf("could not write pkt-line payload: %w", err)
		}
	}
	return nil
}

// WriteString is a convenience wrapper around WritePacket for textual
// payloads
func (w *Writer) WriteString(s string) error {
	return w.WritePacket([]byte(s))
}

// WriteFlush writes a flush-pkt ("0000")
func (w *Writer) WriteFlush() error {
	_, err := w.w.Write([]byte("0000"))
	if err != nil {
		return xerrors.Errorf("could not write flush-pkt: %w", err)
	}
	return nil
}
