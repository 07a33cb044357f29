package av1rtp

import (
	"github.com/opd-ai/av1rtp/leb128"
	"github.com/opd-ai/av1rtp/obu"
)

// makeOBU builds a size-field OBU with a deterministic payload.
func makeOBU(obuType uint8, payloadLen int) obu.OBU {
	payload := make([]byte, payloadLen)
	for i := range payload {
		payload[i] = byte(i)
	}
	raw := []byte{obuType<<3 | 0x02}
	raw = leb128.Append(raw, uint64(payloadLen))
	raw = append(raw, payload...)
	return obu.OBU{Header: obu.Header{Type: obuType, HasSizeField: true}, Raw: raw}
}

// sentPayload records one payload handed to the send callback.
type sentPayload struct {
	data   []byte
	marker bool
}

// collector returns a SendFunc appending copies of each payload to dst.
func collector(dst *[]sentPayload) SendFunc {
	return func(payload []byte, marker bool) error {
		*dst = append(*dst, sentPayload{
			data:   append([]byte{}, payload...),
			marker: marker,
		})
		return nil
	}
}
