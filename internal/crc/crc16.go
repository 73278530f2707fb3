// internal/crc/crc16.go
package crc

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
)

// Size is the number of CRC bytes trailing an RTU frame.
const Size = 2

// table is the reflected 0xA001 lookup table, seed 0xFFFF, no final xor.
var table = crc16.MakeTable(crc16.CRC16_MODBUS)

// Checksum returns the Modbus CRC-16 of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, table)
}

// Sum returns the CRC of data as it appears on the wire (low byte first).
func Sum(data []byte) [Size]byte {
	var out [Size]byte
	binary.LittleEndian.PutUint16(out[:], Checksum(data))
	return out
}

// Append returns frame with its CRC appended.
// frame is not modified.
func Append(frame []byte) []byte {
	out := make([]byte, len(frame), len(frame)+Size)
	copy(out, frame)
	sum := Sum(frame)
	return append(out, sum[:]...)
}

// Verify reports whether the trailing two bytes of frame are the CRC of
// everything before them.
func Verify(frame []byte) bool {
	if len(frame) < Size+1 {
		return false
	}
	body := frame[:len(frame)-Size]
	return binary.LittleEndian.Uint16(frame[len(frame)-Size:]) == Checksum(body)
}
