package pktline

import (
	"bytes"
	"errors"
	"io"

	"golang.org/x/xerrors"
)

// Side-band channels, as used by the side-band-64k capability
// https://git-scm.com/docs/protocol-capabilities#_side_band_side_band_64k
const (
	// BandData carries packfile data
	BandData byte = 1
	// BandProgress carries progress text meant for stderr
	BandProgress byte = 2
	// BandError carries an error message; receiving one aborts the
	// operation
	BandError byte = 3
)

// ErrUnknownBand is returned when a side-band packet starts with a
// byte other than BandData, BandProgress, or BandError
var ErrUnknownBand = errors.New("unknown side-band")

// ErrRemoteError wraps a message received on the error band
var ErrRemoteError = errors.New("remote error")

// DemuxSideband reads pkt-lines from r until a flush-pkt, splitting
// band 1 (packfile data) into pack, and band 2 (progress) into
// progress. A message on band 3 is turned into an error wrapping
// ErrRemoteError and stops the read immediately.
func DemuxSideband(r io.Reader, pack, progress io.Writer) error {
	pr := NewReader(r)
	for {
		pkt, err := pr.ReadPacket()
		if err != nil {
			if errors.Is(err, FlushPkt) {
				return nil
			}
			return xerrors.Errorf("could not read side-band packet: %w", err)
		}
		if len(pkt) == 0 {
			continue
		}

		band, payload := pkt[0], pkt[1:]
		switch band {
		case BandData:
			if _, err := pack.Write(payload); err != nil {
				return xerrors.Errorf("could not write packfile data: %w", err)
			}
		case BandProgress:
			if progress != nil {
				if _, err := progress.Write(payload); err != nil {
					return xerrors.Errorf("could not write progress data: %w", err)
				}
			}
		case BandError:
			return xerrors.Errorf("%s: %w", bytes.TrimRight(payload, "\n"), ErrRemoteError)
		default:
			return xerrors.Errorf("band %d: %w", band, ErrUnknownBand)
		}
	}
}

// MuxWriter multiplexes writes onto a single side-band channel of a
// pkt-line stream, splitting large payloads across multiple packets
// to respect MaxPayloadSize.
type MuxWriter struct {
	w    *Writer
	band byte
}

// NewMuxWriter returns a MuxWriter that writes every payload on the
// given side-band channel
func NewMuxWriter(w *Writer, band byte) *MuxWriter {
	return &MuxWriter{w: w, band: band}
}

// maxChunkSize is MaxPayloadSize minus the leading band byte
const maxChunkSize = MaxPayloadSize - 1

// Write implements io.Writer, chunking p across as many pkt-lines as
// needed
func (m *MuxWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		chunkSize := maxChunkSize
		if len(p) < chunkSize {
			chunkSize = len(p)
		}
		chunk := p[:chunkSize]

		frame := make([]byte, 0, len(chunk)+1)
		frame = append(frame, m.band)
		frame = append(frame, chunk...)
		if err := m.w.WritePacket(frame); err != nil {
			return written, xerrors.Errorf("could not write side-band chunk: %w", err)
		}

		written += chunkSize
		p = p[chunkSize:]
	}
	return written, nil
}
