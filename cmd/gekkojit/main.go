// main.go - gekkojit CLI: load a .dol and run it
//
// License: GPLv3 or later

/*
Command gekkojit is the outer application around the execution core:
it takes an input image path, an optional IPL ROM path, a --run flag
to auto-start, and an --ipb flag that is accepted but not applied to
block compilation, wires a System with real audio/render/input backends, and drops into a
small raw-terminal debug console.

Grounded on gmofishsauce-wut4/emul/main.go's shape: flag-declared
options, a usage() printer, term.MakeRaw/term.Restore bracketing the
run with a signal handler to restore the terminal on interrupt, and a
post-run statistics summary. Concurrent module bring-up (render/audio/
input construction) uses golang.org/x/sync/errgroup, first error wins,
so a slow or failing backend can't block the others from finishing.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/zotley/gekkojit/dol"
	"github.com/zotley/gekkojit/modules"
	"github.com/zotley/gekkojit/runner"
	"github.com/zotley/gekkojit/system"
)

var (
	iplPath   = flag.String("ipl", "", "Path to an IPL (BIOS) ROM image")
	autoRun   = flag.Bool("run", false, "Start execution immediately instead of waiting at the console")
	ipb       = flag.Uint("ipb", 0, "Instructions-per-block cap; accepted but not applied to block compilation")
	headless  = flag.Bool("headless", false, "Use headless (no window, no audio device) module backends")
	vulkan    = flag.Bool("vulkan", false, "Use the Vulkan render backend instead of ebiten's software path")
	clipboard = flag.Bool("clipboard-debug", false, "Wrap the debug module with a Copy method that writes an address/symbol/location line to the system clipboard")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.dol>\n", os.Args[0])
	flag.PrintDefaults()
}

var savedTermState *term.State

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)
	_ = ipb // block-size capping belongs to jit.BlockBuilder; no CLI-level plumbing exists for it yet

	data, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gekkojit: reading %s: %v\n", inputPath, err)
		os.Exit(1)
	}

	image, err := dol.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gekkojit: parsing %s: %v\n", inputPath, err)
		os.Exit(1)
	}

	sys := system.New()
	sys.BootBAT()

	if *iplPath != "" {
		if err := loadIPL(sys, *iplPath); err != nil {
			fmt.Fprintf(os.Stderr, "gekkojit: loading IPL: %v\n", err)
			os.Exit(1)
		}
	}

	if err := sys.LoadDol(image); err != nil {
		fmt.Fprintf(os.Stderr, "gekkojit: loading %s: %v\n", inputPath, err)
		os.Exit(1)
	}

	if !*headless {
		if err := attachRealModules(sys); err != nil {
			fmt.Fprintf(os.Stderr, "gekkojit: %v\n", err)
			os.Exit(1)
		}
	}
	if *clipboard {
		sys.Debug = modules.NewClipboardDebug(sys.Debug)
	}

	r := runner.NewWithSystem(sys, sys.CPU)
	defer r.Close()

	if err := setupTerminal(); err != nil {
		fmt.Fprintf(os.Stderr, "gekkojit: %v\n", err)
		os.Exit(1)
	}
	defer restoreTerminal()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		restoreTerminal()
		os.Exit(130)
	}()

	if *autoRun {
		r.Start()
	}

	start := time.Now()
	runConsole(r)
	elapsed := time.Since(start)

	restoreTerminal()

	fmt.Fprintf(os.Stderr, "\n----------------------------------------\n")
	fmt.Fprintf(os.Stderr, "Time: %v\n", elapsed.Round(time.Millisecond))
	history := r.IPSHistory()
	if len(history) > 0 {
		fmt.Fprintf(os.Stderr, "Last recorded IPS: %.0f\n", history[len(history)-1])
	}
}

// loadIPL reads an IPL ROM image straight into the bus's IPL region,
// the same way a real GameCube maps its boot ROM at a fixed physical
// window (no header, no relocation — it's a flat image).
func loadIPL(sys *system.System, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading IPL image: %w", err)
	}
	if len(data) > len(sys.Bus.IPL) {
		return fmt.Errorf("IPL image is %d bytes, larger than the %d-byte IPL window", len(data), len(sys.Bus.IPL))
	}
	copy(sys.Bus.IPL, data)
	return nil
}

// attachRealModules brings up the render, audio, and input backends
// concurrently (each is an independent OS/GPU handshake with its own
// latency) and fails fast on the first error, per SPEC_FULL.md's
// domain-stack wiring of golang.org/x/sync/errgroup into the CLI.
func attachRealModules(sys *system.System) error {
	var g errgroup.Group
	var render modules.RenderModule
	var audio *modules.OtoAudio
	var input *modules.EbitenInput

	g.Go(func() error {
		if *vulkan {
			render = modules.NewVulkanRender(640, 480)
			return nil
		}
		render = modules.NewEbitenRender(640, 480)
		return nil
	})
	g.Go(func() error {
		a, err := modules.NewOtoAudio(modules.SampleRate48kHz)
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		audio = a
		return nil
	})
	g.Go(func() error {
		input = modules.NewEbitenInput()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	sys.Render = render
	sys.Audio = audio
	sys.Input = input
	return nil
}

// runConsole is the small raw-terminal debug console: space toggles
// run/pause, 's' single-steps, 'q' quits. Grounded on
// gmofishsauce-wut4/emul/main.go's raw-mode stdin loop, generalized
// from a UART-passthrough console to a start/stop/step debugger
// console since that's what the Runner exposes.
func runConsole(r *runner.Runner) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		switch buf[0] {
		case 'q', 'Q', 3: // 3 = Ctrl-C, in case the terminal isn't fully raw
			return
		case ' ':
			if r.Running() {
				r.Stop()
			} else {
				r.Start()
			}
		case 's', 'S':
			r.Stop()
			r.Step()
		}
		if r.BreakpointHit() {
			fmt.Fprintf(os.Stderr, "\nbreakpoint hit\n")
		}
	}
}

func setupTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	state, err := term.GetState(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("getting terminal state: %w", err)
	}
	savedTermState = state
	if _, err := term.MakeRaw(int(os.Stdin.Fd())); err != nil {
		return fmt.Errorf("setting raw mode: %w", err)
	}
	return nil
}

func restoreTerminal() {
	if savedTermState != nil && term.IsTerminal(int(os.Stdin.Fd())) {
		term.Restore(int(os.Stdin.Fd()), savedTermState)
	}
}
