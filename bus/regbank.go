// regbank.go - shared pack/unpack helpers for MMIO register banks
//
// License: GPLv3 or later

package bus

import "github.com/zotley/gekkojit/prim"

// readBank and writeBank slice a register bank's packed byte
// representation at the given offset and width (1, 2, or 4 bytes).
// Each bank packs its fields into a fixed-layout buffer and unpacks
// it after a write, the same trick original_source leans on via
// zerocopy's as_bytes()/as_mut_bytes() on its #[bitos] structs.
func readBank(buf []byte, offset uint32, width int) uint64 {
	if int(offset)+width > len(buf) {
		return 0
	}
	switch width {
	case 1:
		return uint64(buf[offset])
	case 2:
		return uint64(prim.ReadNE[uint16](buf[offset:]))
	default:
		return uint64(prim.ReadNE[uint32](buf[offset:]))
	}
}

func writeBank(buf []byte, offset uint32, width int, value uint64) {
	if int(offset)+width > len(buf) {
		return
	}
	switch width {
	case 1:
		buf[offset] = byte(value)
	case 2:
		prim.WriteNE(uint16(value), buf[offset:])
	default:
		prim.WriteNE(uint32(value), buf[offset:])
	}
}
