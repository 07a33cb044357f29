// Package obu provides a read-only view of AV1 Open Bitstream Units.
//
// The package locates OBU boundaries in a low-overhead bitstream access
// unit and exposes the header bits the RTP payload format needs (type,
// extension flag, size-field flag). It performs no semantic decoding of
// OBU payloads.
package obu

import (
	"errors"
	"fmt"

	"github.com/opd-ai/av1rtp/leb128"
)

// OBU types from AV1 section 6.2.2.
const (
	TypeSequenceHeader       = 1
	TypeTemporalDelimiter    = 2
	TypeFrameHeader          = 3
	TypeTileGroup            = 4
	TypeMetadata             = 5
	TypeFrame                = 6
	TypeRedundantFrameHeader = 7
	TypeTileList             = 8
	TypePadding              = 15
)

// Sentinel errors for OBU parsing.
var (
	// ErrShortBuffer indicates the buffer ended inside an OBU header or payload.
	ErrShortBuffer = errors.New("buffer too short for OBU")

	// ErrInvalidHeader indicates the OBU header's forbidden bit is set.
	ErrInvalidHeader = errors.New("invalid OBU header: forbidden bit set")

	// ErrNoSizeField indicates an OBU without obu_has_size_field, which
	// cannot be delimited in a low-overhead bitstream.
	ErrNoSizeField = errors.New("OBU lacks size field")
)

// Header holds the fixed fields of a one- or two-byte OBU header.
type Header struct {
	Type         uint8
	HasExtension bool
	HasSizeField bool
}

// ParseHeader reads the OBU header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) == 0 {
		return Header{}, ErrShortBuffer
	}
	if b[0]&0x80 != 0 {
		return Header{}, ErrInvalidHeader
	}
	h := Header{
		Type:         b[0] >> 3 & 0x0f,
		HasExtension: b[0]&0x04 != 0,
		HasSizeField: b[0]&0x02 != 0,
	}
	if h.HasExtension && len(b) < 2 {
		return Header{}, ErrShortBuffer
	}
	return h, nil
}

// Size returns the header length in bytes: two with the extension byte,
// one without.
func (h Header) Size() int {
	if h.HasExtension {
		return 2
	}
	return 1
}

// OBU is a read-only view of one Open Bitstream Unit. Raw spans the full
// unit: header, size field, and payload. The view borrows the underlying
// buffer and is valid only as long as that buffer is.
type OBU struct {
	Header
	Raw []byte
}

// Split walks a low-overhead bitstream access unit and returns ordered
// views of its OBUs. Every OBU must carry obu_has_size_field; without it
// the unit is not self-delimiting and Split fails with ErrNoSizeField.
func Split(accessUnit []byte) ([]OBU, error) {
	var obus []OBU
	for pos := 0; pos < len(accessUnit); {
		h, err := ParseHeader(accessUnit[pos:])
		if err != nil {
			return nil, fmt.Errorf("OBU %d at offset %d: %w", len(obus), pos, err)
		}
		if !h.HasSizeField {
			return nil, fmt.Errorf("OBU %d at offset %d: %w", len(obus), pos, ErrNoSizeField)
		}

		payloadSize, n, err := leb128.Decode(accessUnit[pos+h.Size():])
		if err != nil {
			return nil, fmt.Errorf("OBU %d size field: %w", len(obus), err)
		}

		rawSize := h.Size() + n + int(payloadSize)
		if pos+rawSize > len(accessUnit) {
			return nil, fmt.Errorf("OBU %d: declared size %d exceeds remaining %d bytes: %w",
				len(obus), rawSize, len(accessUnit)-pos, ErrShortBuffer)
		}

		obus = append(obus, OBU{Header: h, Raw: accessUnit[pos : pos+rawSize]})
		pos += rawSize
	}
	return obus, nil
}
