// builder.go - compiles a run of decoded instructions into a Block
//
// License: GPLv3 or later

package jit

import (
	"encoding/binary"
	"fmt"

	"github.com/zotley/gekkojit/bat"
	"github.com/zotley/gekkojit/bus"
	"github.com/zotley/gekkojit/gekko"
)

// maxBlockInstructions caps how far a block extends before an
// unconditional stop (branch, exception, or hitting the cap itself
// forces a fall-through exit so the runner can re-check breakpoints
// and scheduler due-dates at reasonable granularity).
const maxBlockInstructions = 256

// Fetcher reads the 4-byte-aligned instruction words a BlockBuilder
// compiles from. The runner supplies one backed by the live bus and
// the CPU's instruction-side BAT translator; tests supply a plain
// byte-slice fetcher.
type Fetcher func(addr gekko.Address) (word uint32, ok bool)

// BlockBuilder compiles straight-line runs of PowerPC instructions
// into Blocks, stopping at the first control-flow instruction (a
// block never spans a branch) or at maxBlockInstructions. Grounded on
// original_source/crates/ppcjit/src/builder/mod.rs's translation loop,
// which does the same linear scan-and-stop but emits Cranelift IR
// instead of a Go closure.
type BlockBuilder struct {
	arena *Arena
}

// NewBlockBuilder returns a builder that allocates each compiled
// block's backing bytes from arena.
func NewBlockBuilder(arena *Arena) *BlockBuilder {
	return &BlockBuilder{arena: arena}
}

// Compile decodes instructions one at a time starting at start,
// stopping at (a) a control-transfer that does not permit fall-through,
// (b) the instruction cap, or (c) the address immediately after start
// that falls in breakpoints — so a block never runs past a breakpoint
// without the runner getting a chance to observe it. breakpoints may
// be nil.
func (bb *BlockBuilder) Compile(start gekko.Address, fetch Fetcher, breakpoints map[gekko.Address]struct{}) *Block {
	return bb.compileLimit(start, fetch, maxBlockInstructions, breakpoints)
}

// CompileOne compiles exactly one instruction at start, regardless of
// whether it is control flow. Used by the CPU core's single-step
// operation, which must execute precisely one guest instruction rather
// than however far a cached block runs.
func (bb *BlockBuilder) CompileOne(start gekko.Address, fetch Fetcher) *Block {
	return bb.compileLimit(start, fetch, 1, nil)
}

func (bb *BlockBuilder) compileLimit(start gekko.Address, fetch Fetcher, limit int, breakpoints map[gekko.Address]struct{}) *Block {
	var ops []decoded
	var raw []byte
	addr := start

	for len(ops) < limit {
		if len(ops) > 0 {
			if _, hit := breakpoints[addr]; hit {
				break
			}
		}

		word, ok := fetch(addr)
		if !ok {
			ops = append(ops, decoded{addr: addr, exec: illegalFetch()})
			addr += 4
			break
		}

		fn := Decode(word)
		ops = append(ops, decoded{addr: addr, exec: fn})
		raw = binary.BigEndian.AppendUint32(raw, word)

		if isControlFlow(word) {
			addr += 4
			break
		}
		addr += 4
	}

	end := addr
	return &Block{
		Start: start,
		End:   end,
		Fn:    compileRun(ops, end),
		Code:  bb.commit(raw),
	}
}

// commit copies raw into the builder's arena, flipping its owning
// chunk's protection in the process, and returns the committed slice.
// Tests that construct a BlockBuilder with a nil arena get a plain
// copy instead, since there is nothing to commit into.
func (bb *BlockBuilder) commit(raw []byte) []byte {
	if bb.arena == nil {
		if len(raw) == 0 {
			return nil
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return out
	}
	code, err := bb.arena.Allocate(raw)
	if err != nil {
		panic(fmt.Errorf("jit: committing compiled block: %w", err))
	}
	return code
}

// isControlFlow reports whether word ends straight-line execution:
// unconditional/conditional branches, syscalls, and every opcode-19
// form (rfi, bclr, bcctr) terminate a block so link slots have a
// stable place to attach. Illegal encodings do not stop compilation;
// they end the block only when executed.
func isControlFlow(word uint32) bool {
	switch word >> 26 {
	case 18, 16, 19, 17:
		return true
	}
	return false
}

func illegalFetch() instrFn {
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus, pc gekko.Address) step {
		return step{ends: true, action: ActionException, exception: gekko.ExceptionInstructionStorage}
	}
}

// compileRun closes over the decoded instruction slice and produces
// the Block's BlockFn: it runs each instruction in order, accumulates
// instruction/cycle counts, and stops early on a block-ending step.
// fallThrough is the address execution continues at if every
// instruction in the run falls through (should not normally happen,
// since Compile always stops on control flow or the instruction cap,
// but covers the cap case).
func compileRun(ops []decoded, fallThrough gekko.Address) BlockFn {
	return func(regs *gekko.Registers, tr *bat.Translator, mem *bus.Bus) BlockOutput {
		out := BlockOutput{}
		for _, op := range ops {
			s := op.exec(regs, tr, mem, op.addr)
			out.ExecutedInstructions++
			out.ExecutedCycles += s.cycles
			if s.ends {
				out.Action = s.action
				out.Target = s.target
				out.Exception = s.exception
				return out
			}
		}
		out.Action = ActionJump
		out.Target = fallThrough
		return out
	}
}
