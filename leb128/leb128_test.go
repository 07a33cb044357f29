package leb128

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		want  []byte
	}{
		{name: "Zero", value: 0, want: []byte{0x00}},
		{name: "Single byte max", value: 127, want: []byte{0x7f}},
		{name: "Two bytes min", value: 128, want: []byte{0x80, 0x01}},
		{name: "Ten", value: 10, want: []byte{0x0a}},
		{name: "Three hundred", value: 300, want: []byte{0xac, 0x02}},
		{name: "Two byte max", value: 16383, want: []byte{0xff, 0x7f}},
		{name: "Largest value", value: 1<<56 - 1, want: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.value))
			assert.Equal(t, len(tt.want), Len(tt.value))
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		wantValue   uint64
		wantLen     int
		expectError bool
	}{
		{name: "Zero", input: []byte{0x00}, wantValue: 0, wantLen: 1},
		{name: "Ten with trailing data", input: []byte{0x0a, 0xde, 0xad}, wantValue: 10, wantLen: 1},
		{name: "Two bytes", input: []byte{0x80, 0x01}, wantValue: 128, wantLen: 2},
		{name: "Non-minimal encoding accepted", input: []byte{0x80, 0x00}, wantValue: 0, wantLen: 2},
		{name: "Empty input", input: []byte{}, expectError: true},
		{name: "Missing terminator", input: []byte{0x80, 0x80}, expectError: true},
		{name: "Nine groups", input: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, n, err := Decode(tt.input)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrTruncated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, value)
			assert.Equal(t, tt.wantLen, n)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 255, 300, 16383, 16384, 1 << 21, 1 << 28, 1 << 35, 1 << 42, 1 << 49, 1<<56 - 1}

	for _, v := range values {
		encoded := Encode(v)
		decoded, n, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
		assert.Equal(t, len(encoded), n)
		assert.Equal(t, Len(v), len(encoded), "encoding must be minimum length")
	}
}

func TestAppend(t *testing.T) {
	dst := []byte{0xff}
	dst = Append(dst, 300)
	assert.Equal(t, []byte{0xff, 0xac, 0x02}, dst)
}
