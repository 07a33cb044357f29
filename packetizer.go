package av1rtp

import (
	"fmt"

	"github.com/gobwas/pool/pbytes"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/av1rtp/leb128"
	"github.com/opd-ai/av1rtp/obu"
)

const aggregationHeaderSize = 1

// Payload size bounds accepted by NewPacketizer.
const (
	MinPayloadSize = 100
	MaxPayloadSize = 9000
)

// SendFunc receives one finished RTP payload from the packetizer. The
// payload slice is reused and only valid for the duration of the call;
// implementations that retain it must copy. The marker flag is the value
// for the RTP header's marker bit.
type SendFunc func(payload []byte, marker bool) error

// emitFunc finalizes the aggregation header of a payload and hands it to
// the send callback.
type emitFunc func(payload []byte, z, y bool, marker bool) error

// Packetizer splits AV1 access units into MTU-bounded RTP payloads.
//
// The packetizer is stateless across Send calls except for the one-shot
// flag driving the aggregation header's N bit, which ties an instance to
// exactly one transmitted session.
type Packetizer struct {
	maxPayloadSize int
	announced      bool // a payload with N=1 has been sent this session
}

// NewPacketizer creates a packetizer emitting payloads of at most
// maxPayloadSize bytes, aggregation header included.
func NewPacketizer(maxPayloadSize int) (*Packetizer, error) {
	if maxPayloadSize < MinPayloadSize || maxPayloadSize > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d (must be %d-%d)",
			ErrInvalidPayloadSize, maxPayloadSize, MinPayloadSize, MaxPayloadSize)
	}

	logrus.WithFields(logrus.Fields{
		"function":         "NewPacketizer",
		"max_payload_size": maxPayloadSize,
	}).Info("Creating new AV1 packetizer")

	return &Packetizer{maxPayloadSize: maxPayloadSize}, nil
}

// SendBitstream extracts the OBUs of a low-overhead bitstream access unit
// and transmits them via Send. Extraction errors surface before the send
// callback is invoked for any payload.
func (p *Packetizer) SendBitstream(accessUnit []byte, send SendFunc) error {
	obus, err := obu.Split(accessUnit)
	if err != nil {
		return fmt.Errorf("extract OBUs: %w", err)
	}
	return p.Send(obus, send)
}

// Send packetizes one access unit's OBUs, in order, into one or more RTP
// payloads handed to the send callback. Temporal delimiter OBUs are
// dropped; the RTP marker bit conveys the access-unit boundary instead
// and is set on the last payload of the unit. A callback error aborts the
// call.
func (p *Packetizer) Send(obus []obu.OBU, send SendFunc) error {
	if send == nil {
		return fmt.Errorf("send callback cannot be nil")
	}

	hasSeqHeader := false
	last := -1 // index of the last OBU that will be transmitted
	for i := range obus {
		if obus[i].Type == obu.TypeSequenceHeader {
			hasSeqHeader = true
		}
		if obus[i].Type != obu.TypeTemporalDelimiter {
			last = i
		}
	}
	if last < 0 {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"function":       "Packetizer.Send",
		"obu_count":      len(obus),
		"has_seq_header": hasSeqHeader,
	}).Debug("Packetizing access unit")

	// N is announced on the first payload of the session's first access
	// unit that carries a sequence header, and never again.
	firstPayload := true
	emit := func(payload []byte, z, y bool, marker bool) error {
		n := false
		if firstPayload && hasSeqHeader && !p.announced {
			n = true
			p.announced = true
		}
		firstPayload = false
		payload[0] = aggregationHeader{Z: z, Y: y, N: n}.marshal()
		return send(payload, marker)
	}

	assembly := pbytes.GetCap(p.maxPayloadSize)
	defer func() { pbytes.Put(assembly) }()

	for i := 0; i <= last; i++ {
		o := &obus[i]
		if o.Type == obu.TypeTemporalDelimiter {
			continue
		}
		elemSize := leb128.Len(uint64(len(o.Raw))) + len(o.Raw)

		for {
			if len(assembly) == 0 {
				if aggregationHeaderSize+elemSize > p.maxPayloadSize {
					// The OBU alone exceeds the budget: fragment it.
					if err := p.sendFragments(o.Raw, i == last, emit); err != nil {
						return err
					}
					break
				}
				assembly = append(assembly, 0) // aggregation header placeholder
			} else if len(assembly)+elemSize > p.maxPayloadSize {
				// Flush, then retry against an empty buffer.
				if err := emit(assembly, false, false, false); err != nil {
					return err
				}
				assembly = assembly[:0]
				continue
			}
			assembly = leb128.Append(assembly, uint64(len(o.Raw)))
			assembly = append(assembly, o.Raw...)
			break
		}
	}

	if len(assembly) > 0 {
		return emit(assembly, false, false, true)
	}
	return nil
}

// sendFragments splits one oversize OBU across multiple payloads. Every
// fragment carries a length prefix (W=0); non-terminal fragments fill the
// payload budget exactly. The terminal fragment sets the marker when the
// OBU closes the access unit.
func (p *Packetizer) sendFragments(raw []byte, lastOBU bool, emit emitFunc) error {
	logrus.WithFields(logrus.Fields{
		"function": "Packetizer.sendFragments",
		"obu_size": len(raw),
	}).Debug("Fragmenting oversize OBU")

	buf := pbytes.GetCap(p.maxPayloadSize)
	defer pbytes.Put(buf)

	first := true
	for aggregationHeaderSize+leb128.Len(uint64(len(raw)))+len(raw) > p.maxPayloadSize {
		chunk := fragmentChunk(p.maxPayloadSize - aggregationHeaderSize)

		payload := append(buf[:0], 0)
		payload = leb128.Append(payload, uint64(chunk))
		payload = append(payload, raw[:chunk]...)
		if err := emit(payload, !first, true, false); err != nil {
			return err
		}
		raw = raw[chunk:]
		first = false
	}

	payload := append(buf[:0], 0)
	payload = leb128.Append(payload, uint64(len(raw)))
	payload = append(payload, raw...)
	return emit(payload, true, false, lastOBU)
}

// fragmentChunk returns the largest chunk size whose leb128 length prefix
// still fits the payload budget alongside it: the prefix length n must
// satisfy leb128.Len(budget-n) == n.
func fragmentChunk(budget int) int {
	for n := 1; n <= leb128.MaxLen; n++ {
		if leb128.Len(uint64(budget-n)) == n {
			return budget - n
		}
	}
	return 0
}
