// cpu.go - Gekko architectural state and the fetch/execute loop
//
// License: GPLv3 or later

/*
Package cpu implements the CPU core: it holds the Gekko's
architectural register file, drives the "translate PC /
look up or compile a block / dispatch / follow link" loop against a
cycle budget or breakpoint set, and raises exceptions by the usual
PowerPC SRR0/SRR1/MSR/PC dance.

Grounded on original_source/hemisphere/src/system/cpu.rs (the exec/
step entry points and the breakpoint-checked outer loop) and
ppcjit/src/dispatch.rs (the block-cache-or-compile, run, follow-link
cycle). Depends on bat, bus, gekko, and jit; deliberately has no
dependency on scheduler so that the system package can
own the only place all of these meet, supplying interrupt sourcing
through a plain closure instead of a concrete scheduler type.
*/
package cpu

import (
	"github.com/zotley/gekkojit/bat"
	"github.com/zotley/gekkojit/bus"
	"github.com/zotley/gekkojit/gekko"
	"github.com/zotley/gekkojit/jit"
)

// Executed is the result of one execution slice: how many guest
// instructions and cycles ran, and whether a breakpoint stopped it
// short of its budget.
type Executed struct {
	Instructions  uint32
	Cycles        gekko.Cycles
	HitBreakpoint bool
}

// CPU is the Gekko's architectural state plus the collaborators the
// exec loop needs to fetch, translate, and run guest code.
type CPU struct {
	Regs       *gekko.Registers
	Translator *bat.Translator
	Bus        *bus.Bus
	Store      *jit.BlockStore
	Builder    *jit.BlockBuilder

	// PendingInterrupt reports whether an external interrupt is
	// currently asserted (PI's ActiveInterrupts() nonzero, for
	// instance). nil means no external interrupt source is wired yet.
	PendingInterrupt func() bool
}

// New returns a CPU wired to the given architectural state and
// collaborators. Callers (system) own the lifetime of everything
// passed in.
func New(regs *gekko.Registers, tr *bat.Translator, b *bus.Bus, store *jit.BlockStore, builder *jit.BlockBuilder) *CPU {
	return &CPU{Regs: regs, Translator: tr, Bus: b, Store: store, Builder: builder}
}

// fetchInstruction implements jit.Fetcher against this CPU's
// instruction-side BAT translator and the physical bus.
func (c *CPU) fetchInstruction(ea gekko.Address) (uint32, bool) {
	pa, ok := c.Translator.TranslateInstr(ea)
	if !ok {
		return 0, false
	}
	return bus.Read[uint32](c.Bus, pa), true
}

// blockAt returns the cached block starting at ea, compiling and
// caching a fresh one on a miss. breakpoints are only consulted at
// compile time: if the runner's breakpoint set changes, it must clear
// the block store so stale blocks compiled under the old set don't
// silently run past a newly added breakpoint.
func (c *CPU) blockAt(ea gekko.Address, breakpoints map[gekko.Address]struct{}) *jit.Block {
	if b, ok := c.Store.Get(ea); ok {
		return b
	}
	b := c.Builder.Compile(ea, c.fetchInstruction, breakpoints)
	if !c.Store.Insert(b) {
		// Someone else (a reentrant exception handler re-running this
		// same PC, say) already installed a block here between the Get
		// miss above and this Compile finishing; keep that one so any
		// back-references already attached to it stay valid.
		cached, _ := c.Store.Get(ea)
		return cached
	}
	return b
}

// Exec runs guest code from the current PC until budget cycles have
// elapsed, a breakpoint address is reached, or a block runs zero
// cycles (one that faults on its first instruction, for instance). An
// exception raised by a block that did run cycles moves PC to its
// vector and the loop continues from there.
func (c *CPU) Exec(budget gekko.Cycles, breakpoints map[gekko.Address]struct{}) Executed {
	var out Executed

	for out.Cycles < budget {
		if _, hit := breakpoints[c.Regs.PC]; hit {
			out.HitBreakpoint = true
			break
		}

		block := c.blockAt(c.Regs.PC, breakpoints)
		result := block.Run(c.Regs, c.Translator, c.Bus)

		out.Instructions += result.ExecutedInstructions
		out.Cycles += gekko.Cycles(result.ExecutedCycles)

		c.applyOutput(result)
		c.checkPendingExceptions(result.ExecutedCycles)

		if result.ExecutedCycles == 0 {
			// No guest time passed, so out.Cycles cannot reach budget;
			// return rather than spin on a vector that faults again.
			break
		}
	}

	return out
}

// Step runs exactly one guest instruction via a one-shot, uncached
// block.
func (c *CPU) Step() Executed {
	block := c.Builder.CompileOne(c.Regs.PC, c.fetchInstruction)
	result := block.Run(c.Regs, c.Translator, c.Bus)

	c.applyOutput(result)
	c.checkPendingExceptions(result.ExecutedCycles)

	return Executed{
		Instructions: result.ExecutedInstructions,
		Cycles:       gekko.Cycles(result.ExecutedCycles),
	}
}

func (c *CPU) applyOutput(result jit.BlockOutput) {
	switch result.Action {
	case jit.ActionJump:
		c.Regs.PC = result.Target
	case jit.ActionException:
		c.RaiseException(result.Exception)
	case jit.ActionRfi:
		c.Rfi()
	}
}

// checkPendingExceptions honors the decrementer and any externally
// sourced interrupt after a block has run. With MSR.EE set, it raises
// an Interrupt exception when the decrementer just crossed below zero,
// or when PendingInterrupt reports an external device interrupt.
func (c *CPU) checkPendingExceptions(elapsed uint32) {
	prev := c.Regs.Decrementer
	c.Regs.Decrementer -= int32(elapsed)
	if prev >= 0 && c.Regs.Decrementer < 0 && c.Regs.MSR.ExternalInterruptEnable {
		c.RaiseException(gekko.ExceptionInterrupt)
		return
	}

	if c.Regs.MSR.ExternalInterruptEnable && c.PendingInterrupt != nil && c.PendingInterrupt() {
		c.RaiseException(gekko.ExceptionInterrupt)
	}
}

// RaiseException saves PC/MSR into SRR0/SRR1, switches to supervisor
// mode with translation and external interrupts disabled, and jumps
// to the exception's fixed vector.
func (c *CPU) RaiseException(e gekko.Exception) {
	c.Regs.SRR0 = uint32(c.Regs.PC)
	c.Regs.SRR1 = c.Regs.MSR.Pack()

	c.Regs.MSR = gekko.MSR{Supervisor: true}
	c.Regs.PC = e.Vector()
}

// Rfi ("return from interrupt") restores MSR and PC from SRR1/SRR0,
// the inverse of RaiseException.
func (c *CPU) Rfi() {
	c.Regs.MSR.Unpack(c.Regs.SRR1)
	c.Regs.PC = gekko.Address(c.Regs.SRR0)
}
