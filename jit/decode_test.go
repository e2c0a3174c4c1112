// License: GPLv3 or later

package jit

import (
	"testing"

	"github.com/zotley/gekkojit/bat"
	"github.com/zotley/gekkojit/bus"
	"github.com/zotley/gekkojit/gekko"
)

// identityTranslator builds a BAT translator that maps the whole
// low 256MiB of effective address space straight onto the same
// physical addresses, which is all these instruction-level tests need.
func identityTranslator() *bat.Translator {
	tr := bat.NewTranslator()
	// A single BAT entry covering effective [0, 256MiB) mapped straight
	// onto the same physical range (LengthMask 0x7FF spans 256MiB).
	d := gekko.BatDescriptor{
		EffectivePageIndex: 0,
		RealPageNumber:     0,
		LengthMask:         0x7FF,
		SupervisorValid:    true,
		UserValid:          true,
	}
	tr.BuildBatLUT([4]gekko.BatDescriptor{d}, [4]gekko.BatDescriptor{d}, true)
	return tr
}

func TestDecodeAddi(t *testing.T) {
	regs := &gekko.Registers{}
	regs.GPR[1] = 10
	// addi r2, r1, 5
	word := uint32(14)<<26 | uint32(2)<<21 | uint32(1)<<16 | 5
	fn := Decode(word)
	fn(regs, nil, nil, 0)
	if regs.GPR[2] != 15 {
		t.Fatalf("GPR[2] = %d, want 15", regs.GPR[2])
	}
}

func TestDecodeAddiNegativeImmediate(t *testing.T) {
	regs := &gekko.Registers{}
	regs.GPR[1] = 10
	// addi r2, r1, -1
	word := uint32(14)<<26 | uint32(2)<<21 | uint32(1)<<16 | uint32(uint16(0xFFFF))
	fn := Decode(word)
	fn(regs, nil, nil, 0)
	if regs.GPR[2] != 9 {
		t.Fatalf("GPR[2] = %d, want 9", regs.GPR[2])
	}
}

func TestDecodeAddRR(t *testing.T) {
	regs := &gekko.Registers{}
	regs.GPR[1] = 3
	regs.GPR[2] = 4
	// add r3, r1, r2  (opcode 31, xo 266)
	word := uint32(31)<<26 | uint32(3)<<21 | uint32(1)<<16 | uint32(2)<<11 | uint32(266)<<1
	fn := Decode(word)
	fn(regs, nil, nil, 0)
	if regs.GPR[3] != 7 {
		t.Fatalf("GPR[3] = %d, want 7", regs.GPR[3])
	}
}

func TestDecodeLwzStw(t *testing.T) {
	b := bus.NewBus()
	tr := identityTranslator()
	regs := &gekko.Registers{}
	regs.GPR[1] = 0x100
	regs.GPR[2] = 0xDEADBEEF

	stw := Decode(uint32(36)<<26 | uint32(2)<<21 | uint32(1)<<16 | 0)
	stw(regs, tr, b, 0)

	regs.GPR[3] = 0
	lwz := Decode(uint32(32)<<26 | uint32(3)<<21 | uint32(1)<<16 | 0)
	lwz(regs, tr, b, 0)

	if regs.GPR[3] != 0xDEADBEEF {
		t.Fatalf("GPR[3] = %08X, want DEADBEEF", regs.GPR[3])
	}
}

func TestDecodeBranchAbsolute(t *testing.T) {
	regs := &gekko.Registers{}
	// b 0x1000, AA=1, LK=0
	word := uint32(18)<<26 | uint32(0x1000) | 0x2
	fn := Decode(word)
	s := fn(regs, nil, nil, 0x500)
	if !s.ends || s.action != ActionJump || s.target != 0x1000 {
		t.Fatalf("unexpected step: %+v", s)
	}
}

func TestDecodeBranchLinkSetsLR(t *testing.T) {
	regs := &gekko.Registers{}
	// bl 0x1000, AA=1, LK=1
	word := uint32(18)<<26 | uint32(0x1000) | 0x3
	fn := Decode(word)
	fn(regs, nil, nil, 0x500)
	if regs.LR != 0x504 {
		t.Fatalf("LR = %08X, want 504", regs.LR)
	}
}

func TestDecodeBlrReturnsToLinkRegister(t *testing.T) {
	regs := &gekko.Registers{}
	regs.LR = 0x8000_1234
	// blr: BO=20 (always-take), xo=16, LK=0
	word := uint32(19)<<26 | uint32(20)<<21 | uint32(16)<<1
	fn := Decode(word)
	s := fn(regs, nil, nil, 0x8000_0100)
	if !s.ends || s.action != ActionJump || s.target != 0x8000_1234 {
		t.Fatalf("unexpected step: %+v", s)
	}
}

// TestDecodeRfi guards opcode 19's xo dispatch: xo 50 is rfi, a
// distinct encoding from bclr (xo 16) and bcctr (xo 528) sharing the
// same primary opcode, and must never fall into the register-branch
// decoder.
func TestDecodeRfi(t *testing.T) {
	// rfi: xo=50
	word := uint32(19)<<26 | uint32(50)<<1
	fn := Decode(word)
	s := fn(&gekko.Registers{}, nil, nil, 0x8000_0100)
	if !s.ends || s.action != ActionRfi {
		t.Fatalf("unexpected step: %+v, want ends=true action=ActionRfi", s)
	}
}

func TestDecodeIllegalOpcode(t *testing.T) {
	regs := &gekko.Registers{}
	fn := Decode(0xFFFFFFFF)
	s := fn(regs, nil, nil, 0)
	if !s.ends || s.exception != gekko.ExceptionIllegalInstruction {
		t.Fatalf("unexpected step: %+v", s)
	}
}

func TestDecodeSyscall(t *testing.T) {
	regs := &gekko.Registers{}
	word := uint32(17) << 26
	fn := Decode(word)
	s := fn(regs, nil, nil, 0)
	if !s.ends || s.exception != gekko.ExceptionSyscall {
		t.Fatalf("unexpected step: %+v", s)
	}
}
