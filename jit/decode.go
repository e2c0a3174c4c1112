// decode.go - PowerPC instruction decode and per-instruction closures
//
// License: GPLv3 or later

package jit

import (
	"github.com/zotley/gekkojit/bat"
	"github.com/zotley/gekkojit/bus"
	"github.com/zotley/gekkojit/gekko"
)

// step is what one decoded instruction's closure reports back to the
// block loop: how many cycles it cost, and whether it ended the
// block (a taken branch or a raised exception).
type step struct {
	cycles    uint32
	ends      bool
	action    Action
	target    gekko.Address
	exception gekko.Exception
}

// instrFn is a single decoded instruction compiled to a closure.
// Grounded on the per-opcode handler functions in
// original_source/crates/ppcjit/src/builder/{arithmetic,branch,
// compare,floating}.rs, generalized from emitting Cranelift IR to
// simply performing the operation against the live register file —
// there is no native-code backend here (see DESIGN.md).
type instrFn func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step

// decoded pairs a compiled instruction with its own address, so the
// block loop can advance PC correctly between instructions.
type decoded struct {
	addr gekko.Address
	exec instrFn
}

func signExtend16(v uint16) int32 { return int32(int16(v)) }

func signExtend26(v uint32) int32 {
	v &= 0x03FF_FFFF
	if v&0x0200_0000 != 0 {
		return int32(v | 0xFC00_0000)
	}
	return int32(v)
}

// Decode decodes a single big-endian PowerPC instruction word into a
// compiled closure. Unrecognized opcodes compile to a closure that
// raises ExceptionIllegalInstruction rather than panicking on
// unimplemented encodings.
func Decode(word uint32) instrFn {
	opcode := word >> 26

	switch opcode {
	case 14: // addi
		return addiLike(word, false)
	case 15: // addis
		return addiLike(word, true)
	case 24: // ori
		return oriLike(word, false)
	case 25: // oris
		return oriLike(word, true)
	case 11: // cmpwi
		return cmpwi(word)
	case 31:
		return decode31(word)
	case 32: // lwz
		return loadStore(word, 4, false, false)
	case 33: // lwzu
		return loadStore(word, 4, false, true)
	case 34: // lbz
		return loadStore(word, 1, false, false)
	case 40: // lhz
		return loadStore(word, 2, false, false)
	case 36: // stw
		return loadStore(word, 4, true, false)
	case 37: // stwu
		return loadStore(word, 4, true, true)
	case 38: // stb
		return loadStore(word, 1, true, false)
	case 44: // sth
		return loadStore(word, 2, true, false)
	case 18: // b/ba/bl/bla
		return branchAbsolute(word)
	case 16: // bc/bca/bcl/bcla
		return branchConditional(word)
	case 19:
		switch (word >> 1) & 0x3FF {
		case 50: // rfi
			return rfi()
		case 16, 528: // bclr/bclrl, bcctr/bcctrl
			return branchToSpecialRegister(word)
		default:
			return illegal()
		}
	case 17: // sc
		return syscall()
	default:
		return illegal()
	}
}

func reg(i uint32) int { return int(i) }

func addiLike(word uint32, shifted bool) instrFn {
	rd := reg((word >> 21) & 0x1F)
	ra := reg((word >> 16) & 0x1F)
	imm := signExtend16(uint16(word))
	if shifted {
		imm <<= 16
	}
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		base := int32(0)
		if ra != 0 {
			base = int32(regs.GPR[ra])
		}
		regs.GPR[rd] = uint32(base + imm)
		return step{cycles: 1}
	}
}

func oriLike(word uint32, shifted bool) instrFn {
	rs := reg((word >> 21) & 0x1F)
	ra := reg((word >> 16) & 0x1F)
	uimm := uint32(uint16(word))
	if shifted {
		uimm <<= 16
	}
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		regs.GPR[ra] = regs.GPR[rs] | uimm
		return step{cycles: 1}
	}
}

func cmpwi(word uint32) instrFn {
	field := reg((word >> 23) & 0x7)
	ra := reg((word >> 16) & 0x1F)
	imm := signExtend16(uint16(word))
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		a := int32(regs.GPR[ra])
		var bits uint32
		switch {
		case a < imm:
			bits = gekko.CRLt
		case a > imm:
			bits = gekko.CRGt
		default:
			bits = gekko.CREq
		}
		if regs.XER.Overflow {
			bits |= gekko.CRSo
		}
		regs.CR.SetField(field, bits)
		return step{cycles: 1}
	}
}

// decode31 handles the extended opcode-31 arithmetic/compare/SPR
// instructions (add, subf, and, or, xor, mfspr, mtspr, cmpw...).
func decode31(word uint32) instrFn {
	xo := (word >> 1) & 0x3FF
	rd := reg((word >> 21) & 0x1F)
	ra := reg((word >> 16) & 0x1F)
	rb := reg((word >> 11) & 0x1F)
	rc := word&1 != 0

	switch xo {
	case 266: // add
		return arith(rd, ra, rb, rc, func(a, b uint32) uint32 { return a + b })
	case 40: // subf
		return arith(rd, ra, rb, rc, func(a, b uint32) uint32 { return b - a })
	// The logical ops write rA from rS (the field decoded into rd) and rB.
	case 444: // or (also `mr` when rs==rb... handled generically)
		return arith(ra, rd, rb, rc, func(a, b uint32) uint32 { return a | b })
	case 316: // xor
		return arith(ra, rd, rb, rc, func(a, b uint32) uint32 { return a ^ b })
	case 28: // and
		return arith(ra, rd, rb, rc, func(a, b uint32) uint32 { return a & b })
	case 0: // cmpw
		field := reg((word >> 23) & 0x7)
		return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
			a, b := int32(regs.GPR[ra]), int32(regs.GPR[rb])
			var bits uint32
			switch {
			case a < b:
				bits = gekko.CRLt
			case a > b:
				bits = gekko.CRGt
			default:
				bits = gekko.CREq
			}
			regs.CR.SetField(field, bits)
			return step{cycles: 1}
		}
	case 339: // mfspr
		return mfspr(rd, word)
	case 467: // mtspr
		return mtspr(rd, word)
	default:
		return illegal()
	}
}

func arith(rd, ra, rb int, rc bool, op func(a, b uint32) uint32) instrFn {
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		result := op(regs.GPR[ra], regs.GPR[rb])
		regs.GPR[rd] = result
		if rc {
			var bits uint32
			switch {
			case int32(result) < 0:
				bits = gekko.CRLt
			case int32(result) > 0:
				bits = gekko.CRGt
			default:
				bits = gekko.CREq
			}
			regs.CR.SetField(0, bits)
		}
		return step{cycles: 1}
	}
}

const (
	sprLR  = 8
	sprCTR = 9
)

func sprField(word uint32) uint32 {
	raw := (word >> 11) & 0x3FF
	return (raw&0x1F)<<5 | (raw >> 5)
}

func mfspr(rd int, word uint32) instrFn {
	spr := sprField(word)
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		switch spr {
		case sprLR:
			regs.GPR[rd] = regs.LR
		case sprCTR:
			regs.GPR[rd] = regs.CTR
		}
		return step{cycles: 1}
	}
}

func mtspr(rs int, word uint32) instrFn {
	spr := sprField(word)
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		switch spr {
		case sprLR:
			regs.LR = regs.GPR[rs]
		case sprCTR:
			regs.CTR = regs.GPR[rs]
		}
		return step{cycles: 1}
	}
}

func loadStore(word uint32, size int, store, update bool) instrFn {
	rdst := reg((word >> 21) & 0x1F)
	ra := reg((word >> 16) & 0x1F)
	imm := signExtend16(uint16(word))

	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		base := int32(0)
		if ra != 0 {
			base = int32(regs.GPR[ra])
		}
		ea := gekko.Address(uint32(base + imm))

		pa, ok := tr.TranslateData(ea)
		if !ok {
			return step{ends: true, action: ActionException, exception: gekko.ExceptionDataStorage}
		}

		if store {
			switch size {
			case 1:
				bus.Write[uint8](mem, pa, uint8(regs.GPR[rdst]))
			case 2:
				bus.Write[uint16](mem, pa, uint16(regs.GPR[rdst]))
			default:
				bus.Write[uint32](mem, pa, regs.GPR[rdst])
			}
		} else {
			switch size {
			case 1:
				regs.GPR[rdst] = uint32(bus.Read[uint8](mem, pa))
			case 2:
				regs.GPR[rdst] = uint32(bus.Read[uint16](mem, pa))
			default:
				regs.GPR[rdst] = bus.Read[uint32](mem, pa)
			}
		}

		if update && ra != 0 {
			regs.GPR[ra] = uint32(ea)
		}

		return step{cycles: 1}
	}
}

func branchAbsolute(word uint32) instrFn {
	li := signExtend26(word & 0x03FF_FFFC)
	aa := word&0x2 != 0
	lk := word&0x1 != 0

	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		var target gekko.Address
		if aa {
			target = gekko.Address(uint32(li))
		} else {
			target = pc.WrappingAdd(li)
		}
		if lk {
			regs.LR = uint32(pc) + 4
		}
		return step{cycles: 2, ends: true, action: ActionJump, target: target}
	}
}

func branchConditional(word uint32) instrFn {
	bo := (word >> 21) & 0x1F
	bi := (word >> 16) & 0x1F
	bd := signExtend16(uint16(word) & 0xFFFC)
	aa := word&0x2 != 0
	lk := word&0x1 != 0

	ignoreCtr := bo&0b00100 != 0
	ctrEqZero := bo&0b00010 != 0
	ignoreCr := bo&0b10000 != 0
	desiredCr := bo&0b01000 != 0

	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		take := true
		if !ignoreCtr {
			regs.CTR--
			ctrOk := regs.CTR != 0
			if ctrEqZero {
				ctrOk = regs.CTR == 0
			}
			take = take && ctrOk
		}
		if !ignoreCr {
			bitIndex := 31 - bi
			bitSet := regs.CR&(1<<bitIndex) != 0
			take = take && (bitSet == desiredCr)
		}

		if !take {
			return step{cycles: 2}
		}

		var target gekko.Address
		if aa {
			target = gekko.Address(uint32(bd))
		} else {
			target = pc.WrappingAdd(bd)
		}
		if lk {
			regs.LR = uint32(pc) + 4
		}
		return step{cycles: 2, ends: true, action: ActionJump, target: target}
	}
}

// branchToSpecialRegister decodes bclr/bclrl (branch to LR) and
// bcctr/bcctrl (branch to CTR), opcode 19's two XL-form conditional
// branches that target a special-purpose register instead of an
// immediate displacement.
func branchToSpecialRegister(word uint32) instrFn {
	xo := (word >> 1) & 0x3FF
	bo := (word >> 21) & 0x1F
	bi := (word >> 16) & 0x1F
	lk := word&0x1 != 0
	toCTR := xo == 528

	ignoreCtr := bo&0b00100 != 0 || toCTR
	ctrEqZero := bo&0b00010 != 0
	ignoreCr := bo&0b10000 != 0
	desiredCr := bo&0b01000 != 0

	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		take := true
		if !ignoreCtr {
			regs.CTR--
			ctrOk := regs.CTR != 0
			if ctrEqZero {
				ctrOk = regs.CTR == 0
			}
			take = take && ctrOk
		}
		if !ignoreCr {
			bitIndex := 31 - bi
			bitSet := regs.CR&(1<<bitIndex) != 0
			take = take && (bitSet == desiredCr)
		}

		if !take {
			return step{cycles: 2}
		}

		var target gekko.Address
		if toCTR {
			target = gekko.Address(regs.CTR &^ 0x3)
		} else {
			target = gekko.Address(regs.LR &^ 0x3)
		}
		if lk {
			regs.LR = uint32(pc) + 4
		}
		return step{cycles: 2, ends: true, action: ActionJump, target: target}
	}
}

func syscall() instrFn {
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		return step{ends: true, action: ActionException, exception: gekko.ExceptionSyscall}
	}
}

// rfi ("return from interrupt") is opcode 19, xo 50: it restores MSR
// and PC from SRR1/SRR0 rather than jumping to a register or raising
// an exception, so it gets its own block-ending action instead of
// falling into bclr/bcctr's register-branch handling.
func rfi() instrFn {
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		return step{ends: true, action: ActionRfi}
	}
}

func illegal() instrFn {
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		return step{ends: true, action: ActionException, exception: gekko.ExceptionIllegalInstruction}
	}
}
