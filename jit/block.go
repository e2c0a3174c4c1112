// block.go - compiled blocks and their execution output
//
// License: GPLv3 or later

package jit

import (
	"sync/atomic"

	"github.com/zotley/gekkojit/bat"
	"github.com/zotley/gekkojit/bus"
	"github.com/zotley/gekkojit/gekko"
)

// Action tells the runner what a block wants to happen after it
// returns: nothing special, a jump to another effective address, or
// a CPU exception that needs to be raised.
type Action int

const (
	ActionNone Action = iota
	ActionJump
	ActionException
	ActionRfi
)

// BlockOutput is what a compiled block reports after Run returns,
// mirroring original_source/ppcjit/src/block.rs's BlockOutput.
type BlockOutput struct {
	ExecutedInstructions uint32
	ExecutedCycles       uint32
	Action               Action
	Target               gekko.Address  // valid when Action == ActionJump
	Exception            gekko.Exception // valid when Action == ActionException
}

// BlockFn is the signature every compiled block has: it runs against
// the live register file and the physical bus, and reports what
// happened. Grounded on ppcjit's BlockFn, which is an
// `extern "sysv64" fn(&mut Registers, &mut BlockOutput)` — the Go
// port returns its output by value instead of an out-pointer since
// there's no FFI boundary to satisfy.
type BlockFn func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus) BlockOutput

// Block is a compiled run of PowerPC instructions starting at Start
// and covering [Start, End) of effective address space.
type Block struct {
	Start, End gekko.Address
	Fn         BlockFn

	// Code is this block's raw big-endian instruction words, copied
	// into the owning BlockBuilder's Arena and aliasing that mapped
	// memory for as long as the arena chunk lives. Execution never
	// reads Code (there is no native-code backend, so Fn is a Go
	// closure, not a jump into this region); it exists so the Arena
	// stays the real owner of each block's bytes, the way
	// original_source/ppcjit/src/block.rs's BlockOutput makes a
	// compiled block's code an arena-owned slice.
	Code []byte

	// backRefs lists every LinkSlot (owned by some other block, or by
	// the runner's dispatch site) currently resolved to this block.
	// Evicting this block must null out each of them so nobody jumps
	// into freed/stale code.
	backRefs []*LinkSlot
}

// Run executes the block once.
func (b *Block) Run(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus) BlockOutput {
	return b.Fn(regs, tr, mem)
}

func (b *Block) addBackRef(slot *LinkSlot) {
	b.backRefs = append(b.backRefs, slot)
}

func (b *Block) invalidateBackRefs() {
	for _, slot := range b.backRefs {
		slot.target.Store(nil)
	}
	b.backRefs = nil
}

// LinkSlot is an inter-block link site: a branch instruction that has
// (or hasn't yet) been resolved to a directly-callable Block. Once
// resolved, the owning block can tail-call straight into the target
// without returning to the runner's fetch/dispatch loop.
//
// Grounded on original_source/crates/ppcjit/src/builder/branch.rs's
// try_link/follow_link hooks, which do the same thing through a
// Cranelift-emitted indirect call; here the "hook" is just an
// atomic.Pointer read in the block closure.
type LinkSlot struct {
	target atomic.Pointer[Block]
	at     gekko.Address
}

// NewLinkSlot creates an unresolved link slot for a branch whose
// target effective address is at.
func NewLinkSlot(at gekko.Address) *LinkSlot {
	return &LinkSlot{at: at}
}

// FollowLink returns the resolved block, if any.
func (s *LinkSlot) FollowLink() (*Block, bool) {
	b := s.target.Load()
	return b, b != nil
}

// TryLink resolves the slot to target, registering this slot as a
// back-reference so target can invalidate it if evicted.
func (s *LinkSlot) TryLink(target *Block) {
	s.target.Store(target)
	target.addBackRef(s)
}

// Invalidate clears the slot, forcing the next branch through it back
// to the runner's full fetch/dispatch path.
func (s *LinkSlot) Invalidate() {
	s.target.Store(nil)
}
