// internal/crc/crc16_test.go
package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum_KnownVectors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"check string", []byte("123456789"), 0x4B37},
		{"read holding request", []byte{0x01, 0x03, 0x02, 0x06, 0x00, 0x02}, 0xB225},
		{"read holding response", []byte{0x01, 0x03, 0x04, 0x41, 0x45, 0x70, 0xA4}, 0xA1DB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.data))
		})
	}
}

func TestAppend_LittleEndianOnWire(t *testing.T) {
	req := []byte{0x01, 0x03, 0x02, 0x06, 0x00, 0x02}

	framed := Append(req)

	assert.Equal(t, []byte{0x01, 0x03, 0x02, 0x06, 0x00, 0x02, 0x25, 0xB2}, framed)
	assert.Len(t, req, 6, "input must not be modified")
}

func TestChecksum_Deterministic(t *testing.T) {
	data := []byte{0x11, 0x22, 0x33, 0x44, 0x55}
	assert.Equal(t, Checksum(data), Checksum(data))
}

func TestVerify_FreshFrame(t *testing.T) {
	frames := [][]byte{
		{0x01},
		{0x01, 0x03, 0x02, 0x06, 0x00, 0x02},
		{0xF7, 0x03, 0x04, 0xDE, 0xAD, 0xBE, 0xEF},
		[]byte("+001.50\r"),
	}
	for _, f := range frames {
		assert.True(t, Verify(Append(f)), "frame % X", f)
	}
}

func TestVerify_EverySingleBitFlipFails(t *testing.T) {
	framed := Append([]byte{0x01, 0x03, 0x04, 0x41, 0x45, 0x70, 0xA4})
	require.True(t, Verify(framed))

	for i := range framed {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), framed...)
			corrupt[i] ^= 1 << bit
			assert.False(t, Verify(corrupt), "byte %d bit %d", i, bit)
		}
	}
}

func TestVerify_TooShort(t *testing.T) {
	assert.False(t, Verify(nil))
	assert.False(t, Verify([]byte{0xFF, 0xFF}))
}
