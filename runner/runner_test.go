// License: GPLv3 or later

package runner

import (
	"testing"
	"time"

	"github.com/zotley/gekkojit/bat"
	"github.com/zotley/gekkojit/bus"
	"github.com/zotley/gekkojit/cpu"
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
		LengthMask:         0x7FF,
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

func newTestCPU(t *testing.T, code []byte, at gekko.Address) *cpu.CPU {
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

	return cpu.New(regs, tr, b, jit.NewBlockStore(), jit.NewBlockBuilder(arena))
}

func nopLoop(n int) []byte {
	var code []byte
	for i := 0; i < n; i++ {
		code = append(code, be32(uint32(24)<<26)...) // ori r0, r0, 0
	}
	return code
}

func TestRunnerStepExecutesOneInstruction(t *testing.T) {
	addi := uint32(14)<<26 | uint32(3)<<21 | uint32(0)<<16 | 7
	core := newTestCPU(t, be32(addi), 0x8000_0000)

	r := New(core)
	defer r.Close()

	executed := r.Step()
	if executed.Instructions != 1 {
		t.Fatalf("Instructions = %d, want 1", executed.Instructions)
	}

	var gpr3 uint32
	r.WithState(func(c *cpu.CPU) { gpr3 = c.Regs.GPR[3] })
	if gpr3 != 7 {
		t.Fatalf("GPR[3] = %d, want 7", gpr3)
	}
}

func TestRunnerStartAdvancesAndStopPauses(t *testing.T) {
	core := newTestCPU(t, nopLoop(64), 0x8000_0000)

	r := New(core)
	defer r.Close()

	if r.Running() {
		t.Fatalf("runner should start paused")
	}

	r.Start()
	if !r.Running() {
		t.Fatalf("Running() should be true after Start")
	}
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	if r.Running() {
		t.Fatalf("Running() should be false after Stop")
	}

	history := r.IPSHistory()
	sawSample := false
	for _, v := range history {
		if v > 0 {
			sawSample = true
		}
	}
	if !sawSample {
		t.Fatalf("expected at least one recorded IPS sample while running, history=%v", history)
	}
}

func TestRunnerBreakpointPausesWorker(t *testing.T) {
	core := newTestCPU(t, nopLoop(64), 0x8000_0000)

	r := New(core)
	defer r.Close()
	r.AddBreakpoint(0x8000_0000 + 8)

	r.Start()
	deadline := time.Now().Add(200 * time.Millisecond)
	for r.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if r.Running() {
		t.Fatalf("runner should have paused at the breakpoint")
	}
	if !r.BreakpointHit() {
		t.Fatalf("BreakpointHit() should report true after pausing")
	}

	var pc gekko.Address
	r.WithState(func(c *cpu.CPU) { pc = c.Regs.PC })
	if pc != 0x8000_0000+8 {
		t.Fatalf("PC = %s, want breakpoint address", pc)
	}
}
