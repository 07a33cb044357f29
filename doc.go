// Package av1rtp implements the AV1 RTP payload format
// (https://aomediacodec.github.io/av1-rtp-spec/): a packetizer that splits
// AV1 access units into MTU-bounded RTP payloads and a depacketizer that
// reconstructs Open Bitstream Units (OBUs) from received payloads.
//
// The two halves share only the wire format. Each RTP payload starts with a
// one-byte aggregation header followed by OBU elements, each optionally
// preceded by a LEB128 length prefix. OBUs too large for one payload are
// fragmented across packets and reassembled on the receive side.
//
// # Packetization
//
// The packetizer consumes an access unit's OBUs and hands finished payloads
// to a callback; RTP header construction, sequencing and timestamps belong
// to the host RTP engine:
//
//	packetizer, err := av1rtp.NewPacketizer(1200)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = packetizer.SendBitstream(accessUnit, func(payload []byte, marker bool) error {
//	    return transport.Send(payload, marker)
//	})
//
// Temporal delimiter OBUs are dropped on send; the RTP marker bit conveys
// access-unit boundaries instead.
//
// # Depacketization
//
// The depacketizer consumes one RTP payload at a time, in sequence order,
// and produces at most one reconstructed unit per call:
//
//	depacketizer := av1rtp.NewDepacketizer()
//	defer depacketizer.Close()
//
//	unit, err := depacketizer.HandlePacket(payload, marker)
//	if err != nil {
//	    log.Printf("dropping packet: %v", err)
//	}
//	if unit != nil {
//	    consume(unit.Data)
//	}
//
// Parse errors discard the offending packet and abandon any in-progress
// fragment, but never poison the stream; IsParseError classifies them.
//
// # RTP integration
//
// StreamWriter and StreamReader wrap the two halves with pion/rtp packet
// framing for hosts that want complete RTP datagrams rather than bare
// payloads.
//
// # Concurrency
//
// Both halves are synchronous call-and-return components with no internal
// locking. One depacketizer serves exactly one RTP stream; independent
// streams need independent instances. A packetizer's one-shot new-sequence
// flag ties it to a single transmitted session.
package av1rtp
