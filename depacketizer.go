package av1rtp

import (
	"fmt"

	"github.com/gobwas/pool/pbytes"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/av1rtp/leb128"
	"github.com/opd-ai/av1rtp/obu"
)

// DefaultMaxOBUSize bounds the size of a single reconstructed OBU.
// Fragments announcing a larger OBU are rejected instead of buffered.
const DefaultMaxOBUSize = 2 * 1024 * 1024

// Unit is one reconstructed unit delivered by the depacketizer: a single
// OBU reassembled from fragments, or the concatenated OBUs of one
// aggregation packet. Units are always complete; partial data is never
// delivered.
type Unit struct {
	// Data holds the raw OBU bytes.
	Data []byte

	// NewCodedVideoSequence reports the aggregation header's N flag: the
	// unit starts a new coded video sequence.
	NewCodedVideoSequence bool

	// Marker reports the RTP marker bit of the packet that completed the
	// unit, hinting at an access-unit boundary.
	Marker bool
}

// Depacketizer reconstructs AV1 OBUs from a stream of RTP payloads.
//
// One instance serves exactly one RTP stream and must be fed payloads in
// sequence order. The accumulation buffer for cross-packet fragments is
// owned exclusively by the instance; concurrent streams need independent
// instances. Any parse error is local to one HandlePacket call and leaves
// the depacketizer usable for subsequent packets.
type Depacketizer struct {
	// Params carries the SDP-negotiated codec parameters for downstream
	// consumers. The wire codec does not consult them.
	Params SessionParameters

	maxOBUSize int

	buf       []byte // pooled accumulation buffer for fragments
	totalSize int    // expected size of the OBU being reassembled, 0 = none
	readSize  int    // bytes accumulated so far
	pendingN  bool   // N flag seen on any fragment of the pending OBU
}

// NewDepacketizer creates a depacketizer for one RTP stream.
func NewDepacketizer() *Depacketizer {
	logrus.WithFields(logrus.Fields{
		"function":     "NewDepacketizer",
		"max_obu_size": DefaultMaxOBUSize,
	}).Info("Creating new AV1 depacketizer")

	return &Depacketizer{maxOBUSize: DefaultMaxOBUSize}
}

// SetMaxOBUSize configures the largest reconstructed OBU the depacketizer
// accepts.
func (d *Depacketizer) SetMaxOBUSize(size int) error {
	if size < 1 {
		return fmt.Errorf("%w: max OBU size %d", ErrInvalidPayloadSize, size)
	}
	d.maxOBUSize = size
	return nil
}

// HandlePacket consumes one RTP payload and returns a reconstructed unit
// if the payload completed one, or nil while a fragmented OBU is still
// being accumulated. The marker argument is the RTP header's marker bit.
func (d *Depacketizer) HandlePacket(payload []byte, marker bool) (*Unit, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPacket
	}

	hdr := parseAggregationHeader(payload[0])
	body := payload[1:]

	// A non-continuation packet while a fragment is pending means the
	// fragment's tail was lost; the stale bytes can never be completed.
	if !hdr.Z && d.totalSize > 0 {
		logrus.WithFields(logrus.Fields{
			"function":   "Depacketizer.HandlePacket",
			"total_size": d.totalSize,
			"read_size":  d.readSize,
		}).Warn("Discarding incomplete OBU fragment")
		d.resetFragment()
	}

	if !hdr.Z && !hdr.Y {
		data, err := d.readAggregation(hdr, body)
		if err != nil {
			return nil, err
		}
		return &Unit{Data: data, NewCodedVideoSequence: hdr.N, Marker: marker}, nil
	}
	return d.readFragment(hdr, body, marker)
}

// readAggregation reconstructs one unit from a packet carrying complete
// OBU elements. Length prefixes are consumed, not copied: the output is
// the elements' raw bytes back to back.
func (d *Depacketizer) readAggregation(hdr aggregationHeader, body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: no OBU elements", ErrMalformedAggregation)
	}

	out := make([]byte, 0, len(body))
	if hdr.W == 0 {
		// Every element carries a length prefix.
		for len(body) > 0 {
			size, n, err := leb128.Decode(body)
			if err != nil {
				return nil, fmt.Errorf("OBU element length: %w", err)
			}
			body = body[n:]
			if int(size) > len(body) {
				return nil, fmt.Errorf("%w: element length %d exceeds remaining %d bytes",
					ErrMalformedAggregation, size, len(body))
			}
			out = append(out, body[:size]...)
			body = body[size:]
		}
		return out, nil
	}

	// W elements; the last one has no length prefix and takes the rest.
	for i := uint8(0); i < hdr.W-1; i++ {
		size, n, err := leb128.Decode(body)
		if err != nil {
			return nil, fmt.Errorf("OBU element length: %w", err)
		}
		body = body[n:]
		if int(size) > len(body) {
			return nil, fmt.Errorf("%w: element length %d exceeds remaining %d bytes",
				ErrMalformedAggregation, size, len(body))
		}
		out = append(out, body[:size]...)
		body = body[size:]
	}
	return append(out, body...), nil
}

// readFragment consumes one fragment of an OBU spanning multiple packets.
func (d *Depacketizer) readFragment(hdr aggregationHeader, body []byte, marker bool) (*Unit, error) {
	if hdr.W > 1 {
		d.resetFragment()
		return nil, fmt.Errorf("%w: W=%d in fragmentation packet", ErrMalformedFragmentHeader, hdr.W)
	}

	if hdr.W == 0 {
		size, n, err := leb128.Decode(body)
		if err != nil {
			d.resetFragment()
			return nil, fmt.Errorf("fragment length: %w", err)
		}
		if int(size) != len(body)-n {
			d.resetFragment()
			return nil, fmt.Errorf("%w: prefix says %d, payload carries %d bytes",
				ErrFragmentLengthMismatch, size, len(body)-n)
		}
		body = body[n:]
	}

	if d.totalSize == 0 {
		if hdr.Z {
			// Continuation of a fragment we never saw the start of; the
			// first fragment was lost, so this one cannot be placed.
			logrus.WithFields(logrus.Fields{
				"function":      "Depacketizer.readFragment",
				"fragment_size": len(body),
			}).Warn("Dropping continuation fragment without a start")
			return nil, nil
		}
		if err := d.beginFragment(body); err != nil {
			d.resetFragment()
			return nil, err
		}
	}
	if hdr.N {
		d.pendingN = true
	}

	if d.readSize+len(body) > d.totalSize {
		err := fmt.Errorf("%w: %d+%d bytes against announced size %d",
			ErrFragmentOverflow, d.readSize, len(body), d.totalSize)
		d.resetFragment()
		return nil, err
	}
	copy(d.buf[d.readSize:], body)
	d.readSize += len(body)

	if d.readSize >= d.totalSize {
		data := make([]byte, d.totalSize)
		copy(data, d.buf[:d.totalSize])
		unit := &Unit{Data: data, NewCodedVideoSequence: d.pendingN, Marker: marker}
		d.resetFragment()

		logrus.WithFields(logrus.Fields{
			"function": "Depacketizer.readFragment",
			"obu_size": len(data),
		}).Debug("Reassembled fragmented OBU")
		return unit, nil
	}
	return nil, nil
}

// beginFragment parses the OBU header at the start of the first fragment
// and establishes the expected total size of the OBU being reassembled.
func (d *Depacketizer) beginFragment(body []byte) error {
	h, err := obu.ParseHeader(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOBUHeader, err)
	}
	if !h.HasSizeField {
		return fmt.Errorf("%w: type %d", ErrMissingOBUSizeField, h.Type)
	}

	payloadSize, n, err := leb128.Decode(body[h.Size():])
	if err != nil {
		return fmt.Errorf("OBU size field: %w", err)
	}

	total := h.Size() + n + int(payloadSize)
	if total > d.maxOBUSize {
		return fmt.Errorf("%w: OBU size %d exceeds limit %d",
			ErrAllocationFailure, total, d.maxOBUSize)
	}
	d.grow(total)
	d.totalSize = total
	return nil
}

// grow ensures the accumulation buffer holds at least total bytes. Called
// only at the start of a fragment, so existing contents need not survive.
func (d *Depacketizer) grow(total int) {
	if cap(d.buf) >= total {
		d.buf = d.buf[:cap(d.buf)]
		return
	}
	if d.buf != nil {
		pbytes.Put(d.buf)
	}
	d.buf = pbytes.GetLen(total)
}

// resetFragment abandons any in-progress reassembly, keeping the buffer
// for reuse.
func (d *Depacketizer) resetFragment() {
	d.totalSize = 0
	d.readSize = 0
	d.pendingN = false
}

// Close releases the accumulation buffer. It is safe to call in any
// state; a closed depacketizer may keep handling packets and will simply
// reallocate on demand.
func (d *Depacketizer) Close() {
	d.resetFragment()
	if d.buf != nil {
		pbytes.Put(d.buf)
		d.buf = nil
	}
}
