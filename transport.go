package av1rtp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// StreamWriter frames packetizer output into complete RTP packets.
//
// It owns the RTP header bookkeeping the payload codec leaves to the host
// engine: SSRC, sequence numbering and payload type. Marshaled packets go
// to the configured output function.
type StreamWriter struct {
	packetizer     *Packetizer
	payloadType    uint8
	clockRate      uint32
	ssrc           uint32
	sequenceNumber uint16
	out            func([]byte) error
}

// NewStreamWriter creates an RTP stream writer for one AV1 session.
//
// Parameters:
//   - payloadType: dynamic RTP payload type negotiated for AV1
//   - clockRate: RTP clock rate in Hz (90000 for video)
//   - maxPayloadSize: maximum RTP payload size in bytes
//   - out: receives each marshaled RTP packet
func NewStreamWriter(payloadType uint8, clockRate uint32, maxPayloadSize int, out func([]byte) error) (*StreamWriter, error) {
	if clockRate == 0 {
		return nil, fmt.Errorf("clock rate cannot be zero")
	}
	if out == nil {
		return nil, fmt.Errorf("output function cannot be nil")
	}

	packetizer, err := NewPacketizer(maxPayloadSize)
	if err != nil {
		return nil, err
	}

	// Random SSRC for this stream.
	ssrcBytes := make([]byte, 4)
	if _, err := rand.Read(ssrcBytes); err != nil {
		return nil, fmt.Errorf("failed to generate SSRC: %w", err)
	}
	ssrc := binary.BigEndian.Uint32(ssrcBytes)

	logrus.WithFields(logrus.Fields{
		"function":     "NewStreamWriter",
		"ssrc":         ssrc,
		"payload_type": payloadType,
		"clock_rate":   clockRate,
	}).Info("Creating new AV1 stream writer")

	return &StreamWriter{
		packetizer:  packetizer,
		payloadType: payloadType,
		clockRate:   clockRate,
		ssrc:        ssrc,
		out:         out,
	}, nil
}

// SSRC returns the stream's synchronization source identifier.
func (w *StreamWriter) SSRC() uint32 {
	return w.ssrc
}

// WriteAccessUnit packetizes one access unit and emits it as a sequence
// of RTP packets sharing the given timestamp. The access unit must be a
// low-overhead bitstream with OBU size fields.
func (w *StreamWriter) WriteAccessUnit(accessUnit []byte, timestamp uint32) error {
	return w.packetizer.SendBitstream(accessUnit, func(payload []byte, marker bool) error {
		packet := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         marker,
				PayloadType:    w.payloadType,
				SequenceNumber: w.sequenceNumber,
				Timestamp:      timestamp,
				SSRC:           w.ssrc,
			},
			Payload: payload,
		}

		raw, err := packet.Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal RTP packet: %w", err)
		}
		w.sequenceNumber++
		return w.out(raw)
	})
}

// StreamReader feeds received RTP packets into a depacketizer.
//
// It unmarshals raw RTP datagrams, pins the stream to the first SSRC it
// sees, and hands payload and marker bit to the depacketizer. Packets
// must arrive in sequence order; reordering is the host jitter buffer's
// job.
type StreamReader struct {
	depacketizer *Depacketizer
	expectedSSRC uint32
	hasSSRC      bool
	lastSeq      uint16
	hasLastSeq   bool
}

// NewStreamReader creates an RTP stream reader with a fresh depacketizer.
func NewStreamReader() *StreamReader {
	logrus.WithFields(logrus.Fields{
		"function": "NewStreamReader",
	}).Info("Creating new AV1 stream reader")

	return &StreamReader{depacketizer: NewDepacketizer()}
}

// Depacketizer exposes the underlying depacketizer, e.g. to set session
// parameters from SDP.
func (r *StreamReader) Depacketizer() *Depacketizer {
	return r.depacketizer
}

// ReadPacket processes one raw RTP datagram and returns a reconstructed
// unit if the packet completed one. Errors satisfying IsParseError
// discard only the offending packet; the reader stays usable.
func (r *StreamReader) ReadPacket(rtpData []byte) (*Unit, error) {
	packet := &rtp.Packet{}
	if err := packet.Unmarshal(rtpData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal RTP packet: %w", err)
	}

	// Accept the first seen SSRC, reject the rest.
	if !r.hasSSRC {
		r.expectedSSRC = packet.SSRC
		r.hasSSRC = true
		logrus.WithFields(logrus.Fields{
			"function": "StreamReader.ReadPacket",
			"ssrc":     packet.SSRC,
		}).Info("Accepted new SSRC for stream")
	} else if packet.SSRC != r.expectedSSRC {
		return nil, fmt.Errorf("unexpected SSRC: expected %d, got %d", r.expectedSSRC, packet.SSRC)
	}

	if r.hasLastSeq && packet.SequenceNumber != r.lastSeq+1 {
		logrus.WithFields(logrus.Fields{
			"function":          "StreamReader.ReadPacket",
			"expected_sequence": r.lastSeq + 1,
			"received_sequence": packet.SequenceNumber,
		}).Warn("Sequence gap detected in RTP stream")
	}
	r.lastSeq = packet.SequenceNumber
	r.hasLastSeq = true

	return r.depacketizer.HandlePacket(packet.Payload, packet.Marker)
}

// Close releases the reader's depacketizer resources.
func (r *StreamReader) Close() {
	r.depacketizer.Close()
}
