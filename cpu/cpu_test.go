// License: GPLv3 or later

package cpu

import (
	"testing"

	"github.com/zotley/gekkojit/bat"
	"github.com/zotley/gekkojit/bus"
	"github.com/zotley/gekkojit/gekko"
	"github.com/zotley/gekkojit/jit"
)

// identityTranslator maps effective [0, 256MiB) straight onto the same
// physical range, and effective [0x8000_0000, 0x9000_0000) onto
// physical 0 the way BootBAT does, so tests can run code at either.
func identityTranslator() *bat.Translator {
	tr := bat.NewTranslator()
	d := gekko.BatDescriptor{
		EffectivePageIndex: 0,
		RealPageNumber:     0,
		LengthMask:         0x7FF, // 256MiB, covers all of RAM
		SupervisorValid:    true,
		UserValid:          true,
	}
	mirror := d
	mirror.EffectivePageIndex = 0x8000_0000 >> 17
	tr.BuildBatLUT([4]gekko.BatDescriptor{d, mirror}, [4]gekko.BatDescriptor{d, mirror}, true)
	return tr
}

func be32(w uint32) []byte {
	return []byte{byte(w >> 24), byte(w >> 16), byte(w >> 8), byte(w)}
}

func newTestCPU(t *testing.T, code []byte, at gekko.Address) *CPU {
	t.Helper()
	b := bus.NewBus()
	tr := identityTranslator()
	pa, _ := tr.TranslateData(at)
	copy(b.RAM[pa:], code)

	regs := &gekko.Registers{PC: at}
	arena, err := jit.NewArena(jit.ProtReadWrite)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	t.Cleanup(func() { arena.Close() })

	return New(regs, tr, b, jit.NewBlockStore(), jit.NewBlockBuilder(arena))
}

func TestStepAddiThenBlr(t *testing.T) {
	addi := uint32(14)<<26 | uint32(3)<<21 | uint32(0)<<16 | 42 // addi r3, 0, 42
	blr := uint32(19)<<26 | uint32(20)<<21 | uint32(16)<<1      // blr (BO=20, xo=16)

	var code []byte
	code = append(code, be32(addi)...)
	code = append(code, be32(blr)...)

	c := newTestCPU(t, code, 0x8000_3100)
	c.Regs.LR = 0x8000_0000

	first := c.Step()
	if c.Regs.GPR[3] != 42 {
		t.Fatalf("GPR[3] = %d, want 42", c.Regs.GPR[3])
	}
	if c.Regs.PC != 0x8000_3104 {
		t.Fatalf("PC after addi = %s, want 0x80003104", c.Regs.PC)
	}
	if first.Instructions != 1 {
		t.Fatalf("first.Instructions = %d, want 1", first.Instructions)
	}

	second := c.Step()
	if c.Regs.PC != 0x8000_0000 {
		t.Fatalf("PC after blr = %s, want LR (0x80000000)", c.Regs.PC)
	}
	if second.Instructions != 1 {
		t.Fatalf("second.Instructions = %d, want 1", second.Instructions)
	}
}

func TestExecStopsAtBreakpoint(t *testing.T) {
	nop := uint32(24) << 26 // ori r0, r0, 0 (treated as a no-op-equivalent)

	var code []byte
	for i := 0; i < 8; i++ {
		code = append(code, be32(nop)...)
	}

	c := newTestCPU(t, code, 0x8000_0000)
	breakpoints := map[gekko.Address]struct{}{0x8000_0000 + 16: {}}

	out := c.Exec(gekko.Cycles(1_000_000), breakpoints)

	if !out.HitBreakpoint {
		t.Fatalf("expected HitBreakpoint, got %+v", out)
	}
	if c.Regs.PC != 0x8000_0000+16 {
		t.Fatalf("PC = %s, want breakpoint address", c.Regs.PC)
	}
}

func TestRaiseExceptionThenRfiRoundTrips(t *testing.T) {
	c := newTestCPU(t, nil, 0x8000_0100)
	c.Regs.MSR.ExternalInterruptEnable = true

	c.RaiseException(gekko.ExceptionDataStorage)

	if c.Regs.PC != gekko.ExceptionDataStorage.Vector() {
		t.Fatalf("PC after exception = %s, want vector", c.Regs.PC)
	}
	if !c.Regs.MSR.Supervisor {
		t.Fatalf("MSR.Supervisor should be set after an exception")
	}
	if c.Regs.MSR.ExternalInterruptEnable {
		t.Fatalf("MSR.EE should be cleared after an exception")
	}
	if c.Regs.SRR0 != 0x8000_0100 {
		t.Fatalf("SRR0 = %08X, want 80000100", c.Regs.SRR0)
	}

	c.Rfi()
	if c.Regs.PC != 0x8000_0100 {
		t.Fatalf("PC after rfi = %s, want 0x80000100", c.Regs.PC)
	}
	if !c.Regs.MSR.ExternalInterruptEnable {
		t.Fatalf("MSR.EE should be restored after rfi")
	}
}

func TestDecrementerFiresInterruptWhenEnabled(t *testing.T) {
	nop := uint32(24) << 26
	var code []byte
	for i := 0; i < 4; i++ {
		code = append(code, be32(nop)...)
	}

	c := newTestCPU(t, code, 0x8000_0000)
	c.Regs.MSR.ExternalInterruptEnable = true
	c.Regs.Decrementer = 0

	c.Step()

	if c.Regs.PC != gekko.ExceptionInterrupt.Vector() {
		t.Fatalf("PC = %s, want interrupt vector after decrementer underflow", c.Regs.PC)
	}
}
