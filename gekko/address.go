// address.go - guest address and cycle count primitives
//
// License: GPLv3 or later

// Package gekko holds the small, shared value types the rest of the
// core passes around: guest addresses, cycle counts, and the Gekko
// architectural register file. It has no dependencies on bus, bat,
// jit, or scheduler so that all of them can depend on it.
package gekko

import "fmt"

// CPUFrequencyHz is the Gekko's fixed clock frequency, used to convert
// between Cycles and wall-clock durations.
const CPUFrequencyHz = 486_000_000

// Address is a 32-bit guest effective or physical address with
// wrapping arithmetic, matching Gekko's register-sized PC and GPRs.
type Address uint32

// WrappingAdd returns a+delta, wrapping around the 32-bit range.
func (a Address) WrappingAdd(delta int32) Address {
	return Address(uint32(a) + uint32(delta))
}

// Aligned reports whether a is aligned to the given power-of-two size.
func (a Address) Aligned(size uint32) bool {
	return uint32(a)&(size-1) == 0
}

// Value returns the address as a plain uint32.
func (a Address) Value() uint32 { return uint32(a) }

func (a Address) String() string {
	return fmt.Sprintf("0x%08X", uint32(a))
}

// Less orders addresses by numeric value.
func (a Address) Less(b Address) bool { return a < b }
