package display

import "github.com/dtg01100/tn5250r-go/internal/protoerr"

// addrCodes is the pre-computed 64-entry 6-bit buffer-address encoding
// table (IBM 3270/5250 I/O codes), identical to racingmars-go3270's
// `codes` table: index is the 6-bit value, result is the EBCDIC byte
// that represents it on the wire.
var addrCodes = [64]byte{
	0x40, 0xC1, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7, 0xC8,
	0xC9, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F, 0x50, 0xD1, 0xD2, 0xD3, 0xD4,
	0xD5, 0xD6, 0xD7, 0xD8, 0xD9, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F, 0x60,
	0x61, 0xE2, 0xE3, 0xE4, 0xE5, 0xE6, 0xE7, 0xE8, 0xE9, 0x6A, 0x6B, 0x6C,
	0x6D, 0x6E, 0x6F, 0xF0, 0xF1, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6, 0xF7, 0xF8,
	0xF9, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F,
}

// addrDecode is addrCodes inverted, built once at init.
var addrDecode = func() map[byte]int {
	m := make(map[byte]int, len(addrCodes))
	for i, b := range addrCodes {
		m[b] = i
	}
	return m
}()

// EncodeAddress packs a 0-based linear buffer address into the
// two-byte EBCDIC buffer-address pair used by SBA/RA/EA orders.
func EncodeAddress(addr int) [2]byte {
	hi := (addr & 0xFC0) >> 6
	lo := addr & 0x3F
	return [2]byte{addrCodes[hi], addrCodes[lo]}
}

// DecodeAddress unpacks a two-byte EBCDIC buffer-address pair back
// into a 0-based linear address.
func DecodeAddress(hi, lo byte) (int, error) {
	h, ok := addrDecode[hi]
	if !ok {
		return 0, protoerr.New(protoerr.BadAddress, "display.DecodeAddress", nil)
	}
	l, ok := addrDecode[lo]
	if !ok {
		return 0, protoerr.New(protoerr.BadAddress, "display.DecodeAddress", nil)
	}
	return h<<6 | l, nil
}
