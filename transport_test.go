package av1rtp

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/av1rtp/obu"
)

func TestNewStreamWriter(t *testing.T) {
	out := func([]byte) error { return nil }

	tests := []struct {
		name        string
		clockRate   uint32
		maxSize     int
		out         func([]byte) error
		expectError bool
	}{
		{name: "Valid parameters", clockRate: 90000, maxSize: 1200, out: out},
		{name: "Zero clock rate", clockRate: 0, maxSize: 1200, out: out, expectError: true},
		{name: "Nil output", clockRate: 90000, maxSize: 1200, out: nil, expectError: true},
		{name: "Bad payload size", clockRate: 90000, maxSize: 10, out: out, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewStreamWriter(96, tt.clockRate, tt.maxSize, tt.out)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, w)
			} else {
				require.NoError(t, err)
				require.NotNil(t, w)
				assert.NotZero(t, w.SSRC())
			}
		})
	}
}

func TestStreamRoundTrip(t *testing.T) {
	var accessUnit []byte
	seqHdr := makeOBU(obu.TypeSequenceHeader, 10)
	frame := makeOBU(obu.TypeFrame, 2000)
	for _, o := range []obu.OBU{makeOBU(obu.TypeTemporalDelimiter, 0), seqHdr, frame} {
		accessUnit = append(accessUnit, o.Raw...)
	}

	var datagrams [][]byte
	w, err := NewStreamWriter(96, 90000, 1200, func(raw []byte) error {
		datagrams = append(datagrams, append([]byte{}, raw...))
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, w.WriteAccessUnit(accessUnit, 0x12345678))
	require.Len(t, datagrams, 3)

	// RTP headers: shared timestamp, consecutive sequence numbers, marker
	// only on the last packet of the access unit.
	for i, raw := range datagrams {
		packet := &rtp.Packet{}
		require.NoError(t, packet.Unmarshal(raw))
		assert.Equal(t, uint8(96), packet.PayloadType)
		assert.Equal(t, uint32(0x12345678), packet.Timestamp)
		assert.Equal(t, w.SSRC(), packet.SSRC)
		assert.Equal(t, uint16(i), packet.SequenceNumber)
		assert.Equal(t, i == len(datagrams)-1, packet.Marker)
	}

	r := NewStreamReader()
	defer r.Close()

	var units []*Unit
	for _, raw := range datagrams {
		unit, err := r.ReadPacket(raw)
		require.NoError(t, err)
		if unit != nil {
			units = append(units, unit)
		}
	}

	require.Len(t, units, 2)
	assert.Equal(t, seqHdr.Raw, units[0].Data)
	assert.True(t, units[0].NewCodedVideoSequence)
	assert.Equal(t, frame.Raw, units[1].Data)
	assert.True(t, units[1].Marker)
}

func TestStreamReaderRejectsForeignSSRC(t *testing.T) {
	marshal := func(ssrc uint32, seq uint16) []byte {
		packet := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    96,
				SequenceNumber: seq,
				SSRC:           ssrc,
			},
			Payload: []byte{0x00, 0x02, 0xaa, 0xbb},
		}
		raw, err := packet.Marshal()
		require.NoError(t, err)
		return raw
	}

	r := NewStreamReader()
	defer r.Close()

	unit, err := r.ReadPacket(marshal(111, 0))
	require.NoError(t, err)
	require.NotNil(t, unit)

	unit, err = r.ReadPacket(marshal(222, 1))
	assert.Error(t, err)
	assert.Nil(t, unit)

	// The pinned SSRC keeps working.
	unit, err = r.ReadPacket(marshal(111, 1))
	require.NoError(t, err)
	assert.NotNil(t, unit)
}

func TestStreamReaderBadDatagram(t *testing.T) {
	r := NewStreamReader()
	defer r.Close()

	unit, err := r.ReadPacket([]byte{0x01, 0x02})
	assert.Error(t, err)
	assert.Nil(t, unit)
}

func TestStreamReaderSessionParameters(t *testing.T) {
	r := NewStreamReader()
	defer r.Close()

	require.NoError(t, r.Depacketizer().Params.ApplyFmtpParameter("profile", "1"))
	assert.Equal(t, uint8(1), r.Depacketizer().Params.SeqProfile)
}
