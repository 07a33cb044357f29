// Package leb128 implements the unsigned LEB128 variable-length integer
// encoding used by the AV1 bitstream and the AV1 RTP payload format.
//
// Each encoded byte carries seven value bits in its low bits; the high bit
// signals that another byte follows. Encoders always emit the minimum
// number of bytes, decoders accept any legal encoding up to MaxLen bytes.
package leb128

import "errors"

// MaxLen is the maximum number of bytes in an encoded value.
// Eight 7-bit groups bound decoded values to 2^56-1.
const MaxLen = 8

// ErrTruncated indicates an encoded value ran past the end of its buffer
// or past the MaxLen group limit without a terminating byte.
var ErrTruncated = errors.New("truncated leb128 value")

// Len returns the number of bytes Encode produces for v.
func Len(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// Append appends the minimum-length encoding of v to dst and returns the
// extended slice.
func Append(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// Encode returns the minimum-length encoding of v.
func Encode(v uint64) []byte {
	return Append(make([]byte, 0, Len(v)), v)
}

// Decode reads one encoded value from the start of b. It returns the value
// and the number of bytes consumed. Decode accepts non-minimal encodings up
// to MaxLen bytes and fails with ErrTruncated if b ends before a
// terminating byte or if MaxLen bytes pass without one.
func Decode(b []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < MaxLen; i++ {
		if i >= len(b) {
			return 0, 0, ErrTruncated
		}
		v |= uint64(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrTruncated
}
