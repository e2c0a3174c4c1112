// bat.go - Block Address Translation descriptor
//
// License: GPLv3 or later

package gekko

// BatDescriptor is one Block Address Translation entry: an effective
// page index, a real (physical) page number, a block length mask, and
// the validity/caching flags, matching the Gekko's BAT register pair
// layout.
//
// Invariant: Start and End share the same block length; End = Start +
// Length - 1; PhysicalStart is RealPageNumber masked and shifted.
type BatDescriptor struct {
	EffectivePageIndex uint32 // top bits of the effective address this BAT covers
	RealPageNumber     uint32 // top bits of the physical address this BAT maps to
	LengthMask         uint32 // power-of-two block length mask, in [0x000, 0x7FF]
	SupervisorValid    bool
	UserValid          bool
	WriteThrough       bool
	CacheInhibited     bool
}

// blockLengthBytes converts a LengthMask (counted in 128 KiB units, one
// bit per 128 KiB block minus one) to a byte length. A mask of 0x000
// spans exactly 128 KiB; 0x7FF spans 256 MiB.
func blockLengthBytes(mask uint32) uint32 {
	return (mask + 1) << 17
}

// Start returns the first effective address this BAT covers.
func (b BatDescriptor) Start() Address {
	return Address(b.EffectivePageIndex << 17)
}

// End returns the last effective address this BAT covers (inclusive).
func (b BatDescriptor) End() Address {
	return Address(uint32(b.Start()) + blockLengthBytes(b.LengthMask) - 1)
}

// PhysicalStart returns the first physical address this BAT maps to.
func (b BatDescriptor) PhysicalStart() Address {
	return Address(b.RealPageNumber << 17)
}

// Valid reports whether this BAT applies in the given privilege mode.
func (b BatDescriptor) Valid(supervisor bool) bool {
	if supervisor {
		return b.SupervisorValid
	}
	return b.UserValid
}

// Contains reports whether ea falls within this BAT's effective range.
func (b BatDescriptor) Contains(ea Address) bool {
	return ea >= b.Start() && ea <= b.End()
}

// Translate maps an effective address within this BAT's range to the
// corresponding physical address. Callers must check Contains first.
func (b BatDescriptor) Translate(ea Address) Address {
	return Address(uint32(b.PhysicalStart()) + (uint32(ea) - uint32(b.Start())))
}
