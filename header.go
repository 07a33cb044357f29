package av1rtp

// aggregationHeader is the one-byte header that leads every AV1 RTP
// payload:
//
//	 0 1 2 3 4 5 6 7
//	+-+-+-+-+-+-+-+-+
//	|Z|Y| W |N|-|-|-|
//	+-+-+-+-+-+-+-+-+
//
// Z: the first OBU element continues a fragment from the previous packet.
// Y: the last OBU element continues into the next packet.
// W: OBU element count; 0 means every element carries a length prefix.
// N: first packet of a new coded video sequence.
type aggregationHeader struct {
	Z bool
	Y bool
	W uint8
	N bool
}

func parseAggregationHeader(b byte) aggregationHeader {
	return aggregationHeader{
		Z: b&0x80 != 0,
		Y: b&0x40 != 0,
		W: b >> 4 & 0x03,
		N: b&0x08 != 0,
	}
}

func (h aggregationHeader) marshal() byte {
	var b byte
	if h.Z {
		b |= 0x80
	}
	if h.Y {
		b |= 0x40
	}
	b |= h.W << 4 & 0x30
	if h.N {
		b |= 0x08
	}
	return b
}
