package av1rtp

import (
	"errors"

	"github.com/opd-ai/av1rtp/leb128"
)

// Sentinel errors for payload parsing and packetization.
// These errors enable reliable error classification using errors.Is().
// Every error is local to one HandlePacket or Send call; the depacketizer
// remains usable for subsequent packets after any of them.

// Payload-level errors.
var (
	// ErrEmptyPacket indicates a zero-length RTP payload.
	ErrEmptyPacket = errors.New("empty AV1 RTP payload")

	// ErrMalformedAggregation indicates an aggregation packet whose
	// declared OBU element length exceeds the remaining payload bytes.
	ErrMalformedAggregation = errors.New("malformed aggregation packet")

	// ErrMalformedFragmentHeader indicates a fragmentation packet with an
	// invalid W field (only 0 and 1 are legal).
	ErrMalformedFragmentHeader = errors.New("malformed fragment header")

	// ErrFragmentLengthMismatch indicates a W=0 fragment whose length
	// prefix disagrees with the actual remaining payload bytes.
	ErrFragmentLengthMismatch = errors.New("fragment length prefix mismatch")
)

// OBU reassembly errors.
var (
	// ErrInvalidOBUHeader indicates a first fragment whose OBU header has
	// the forbidden bit set.
	ErrInvalidOBUHeader = errors.New("invalid OBU header in fragment")

	// ErrMissingOBUSizeField indicates a first fragment whose OBU header
	// lacks the size field this payload format requires.
	ErrMissingOBUSizeField = errors.New("fragmented OBU lacks size field")

	// ErrFragmentOverflow indicates accumulated fragment bytes would
	// exceed the OBU size established by the first fragment.
	ErrFragmentOverflow = errors.New("fragment exceeds announced OBU size")

	// ErrAllocationFailure indicates the accumulation buffer cannot be
	// grown to the announced OBU size.
	ErrAllocationFailure = errors.New("cannot grow accumulation buffer")
)

// Packetizer errors.
var (
	// ErrInvalidPayloadSize indicates a max payload size outside the
	// supported range.
	ErrInvalidPayloadSize = errors.New("invalid max payload size")
)

// IsParseError reports whether err is a per-packet payload parse error.
// Such errors discard the offending packet but leave the depacketizer
// usable for subsequent packets; hosts should not tear down the stream
// over them.
func IsParseError(err error) bool {
	return errors.Is(err, ErrEmptyPacket) ||
		errors.Is(err, ErrMalformedAggregation) ||
		errors.Is(err, ErrMalformedFragmentHeader) ||
		errors.Is(err, ErrFragmentLengthMismatch) ||
		errors.Is(err, ErrInvalidOBUHeader) ||
		errors.Is(err, ErrMissingOBUSizeField) ||
		errors.Is(err, ErrFragmentOverflow) ||
		errors.Is(err, ErrAllocationFailure) ||
		errors.Is(err, leb128.ErrTruncated)
}
