// bat.go - Block Address Translation lookup tables
//
// License: GPLv3 or later

/*
Package bat implements the BAT translator: a pair of dense lookup
tables, one for data accesses and one for instruction fetches, built
from the CPU's (at most 8) active BAT descriptors and answering
translate-data/translate-instruction in O(1).

Grounded on original_source/hemisphere/src/system/mmu.rs: a
2^15-entry table indexed by the top 15 bits of the effective address,
a sentinel for "no mapping", and entries shifted left one bit so the
sentinel (an odd value) can never collide with a real (even) physical
base.
*/
package bat

import "github.com/zotley/gekkojit/gekko"

const (
	lutEntries  = 1 << 15
	noBat       = 1 // sentinel: odd, so real entries (even) never collide
	baseShift   = 17 // bits of low-order effective address below the LUT index
)

// Translator holds the two precomputed LUTs and rebuilds them whenever
// the CPU writes a BAT descriptor.
type Translator struct {
	dataLUT  [lutEntries]uint16
	instrLUT [lutEntries]uint16
}

// NewTranslator returns a Translator with both LUTs marking every
// address as unmapped.
func NewTranslator() *Translator {
	t := &Translator{}
	t.resetLUT(&t.dataLUT)
	t.resetLUT(&t.instrLUT)
	return t
}

func (t *Translator) resetLUT(lut *[lutEntries]uint16) {
	for i := range lut {
		lut[i] = noBat
	}
}

// BuildBatLUT recomputes both tables from the CPU's BAT descriptor
// arrays. Last BAT wins on overlap; a BAT with its validity flag clear
// for the current privilege level is skipped entirely. Calling this
// twice with identical inputs produces identical tables (idempotent).
func (t *Translator) BuildBatLUT(dbat, ibat [4]gekko.BatDescriptor, supervisor bool) {
	t.resetLUT(&t.dataLUT)
	t.resetLUT(&t.instrLUT)

	for _, b := range dbat {
		if !b.Valid(supervisor) {
			continue
		}
		updateLUT(&t.dataLUT, b)
	}
	for _, b := range ibat {
		if !b.Valid(supervisor) {
			continue
		}
		updateLUT(&t.instrLUT, b)
	}
}

func updateLUT(lut *[lutEntries]uint16, b gekko.BatDescriptor) {
	startBase := uint32(b.Start()) >> baseShift
	endBase := uint32(b.End()) >> baseShift
	physBase := uint32(b.PhysicalStart()) >> baseShift

	for base := startBase; base <= endBase; base++ {
		offset := base - startBase
		lut[base] = uint16((physBase + offset) << 1)
	}
}

// TranslateData maps an effective data address to a physical address,
// or reports ok=false on a BAT miss.
func (t *Translator) TranslateData(ea gekko.Address) (pa gekko.Address, ok bool) {
	return translate(&t.dataLUT, ea)
}

// TranslateInstr maps an effective instruction address to a physical
// address, or reports ok=false on a BAT miss.
func (t *Translator) TranslateInstr(ea gekko.Address) (pa gekko.Address, ok bool) {
	return translate(&t.instrLUT, ea)
}

func translate(lut *[lutEntries]uint16, ea gekko.Address) (gekko.Address, bool) {
	base := uint32(ea) >> baseShift
	entry := lut[base]
	if entry == noBat {
		return 0, false
	}
	physBase := uint32(entry) >> 1
	low := uint32(ea) & ((1 << baseShift) - 1)
	return gekko.Address((physBase << baseShift) | low), true
}
