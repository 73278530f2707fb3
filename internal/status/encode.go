// internal/status/encode.go
package status

// Encode converts a Snapshot into the live part of a channel status block.
// Tag slots are left zero; the writer fills them on full re-assert.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerChannel)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotLinkResets] = saturate16(s.Resets)
	regs[SlotOverflows] = saturate16(s.Overflows)
	regs[SlotDropped] = saturate16(s.Dropped)

	return regs
}

// EncodeTag packs up to 16 ASCII characters into 8 registers,
// two bytes per register, big-endian. Non-printable bytes become '?'.
func EncodeTag(tag string) []uint16 {
	out := make([]uint16, SlotTagSlots)

	b := []byte(tag)
	if len(b) > TagMaxChars {
		b = b[:TagMaxChars]
	}

	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < TagMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}

func saturate16(v uint64) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
