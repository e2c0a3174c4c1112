// arena.go - executable/read-write memory arena for compiled blocks
//
// License: GPLv3 or later

/*
Package jit implements the dynamic recompiler: an executable memory
arena, a two-level block store keyed by effective-address region and address, a
block builder that compiles a decoded instruction sequence into a
callable block, and the inter-block link slots that let one compiled
block jump directly into another without returning to the runner's
dispatch loop.

Grounded on original_source/ppcjit/src/arena.rs (a bump allocator over
memmap2-backed chunks, growing into a fresh chunk when the current one
is exhausted) and crates/jitalloc/src/lib.rs (the Exec/ReadWrite
protection-kind split). The Go port uses golang.org/x/sys/unix for the
real mmap/mprotect syscalls rather than a crate, since no Go library in
the retrieval pack wraps anonymous executable mappings.
*/
package jit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	pageSize  = 4096
	chunkSize = 256 * pageSize
)

// Protection selects the page protection an Arena's chunks are
// flipped to once a block has been written into them.
type Protection int

const (
	ProtExec Protection = iota
	ProtReadWrite
)

type chunk struct {
	mem    []byte
	offset int
}

// Arena is a bump allocator over anonymous mmap'd chunks. Each
// allocation is written while the owning chunk is mapped
// read/write, then the whole chunk is flipped to its final
// protection (exec or read/write, per Protection) once the write is
// committed — mirroring arena.rs's make_mut()/make_exec() dance.
type Arena struct {
	protection Protection
	chunks     []*chunk
}

// NewArena allocates the first chunk and returns an Arena that keeps
// every allocation's final protection at prot.
func NewArena(prot Protection) (*Arena, error) {
	a := &Arena{protection: prot}
	if err := a.grow(chunkSize); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Arena) grow(size int) error {
	if size < chunkSize {
		size = chunkSize
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return fmt.Errorf("jit: mmap %d bytes: %w", size, err)
	}
	a.chunks = append(a.chunks, &chunk{mem: mem})
	return nil
}

// Allocate copies data into the arena, flips the owning chunk to the
// arena's configured protection, and returns a slice viewing the
// committed bytes. The returned slice aliases mapped memory: it must
// not be retained past the Arena's lifetime.
func (a *Arena) Allocate(data []byte) ([]byte, error) {
	c := a.chunks[len(a.chunks)-1]
	if len(c.mem)-c.offset < len(data) {
		if err := a.grow(len(data)); err != nil {
			return nil, err
		}
		c = a.chunks[len(a.chunks)-1]
	}

	if err := unix.Mprotect(c.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return nil, fmt.Errorf("jit: mprotect rw: %w", err)
	}

	start := c.offset
	copy(c.mem[start:], data)
	out := c.mem[start : start+len(data)]

	prot := unix.PROT_READ | unix.PROT_EXEC
	if a.protection == ProtReadWrite {
		prot = unix.PROT_READ | unix.PROT_WRITE
	}
	if err := unix.Mprotect(c.mem, prot); err != nil {
		return nil, fmt.Errorf("jit: mprotect final: %w", err)
	}

	c.offset = nextMultipleOf16(start + len(data))
	return out, nil
}

func nextMultipleOf16(n int) int {
	return (n + 15) &^ 15
}

// Close unmaps every chunk. The Arena must not be used afterwards.
func (a *Arena) Close() error {
	var first error
	for _, c := range a.chunks {
		if err := unix.Munmap(c.mem); err != nil && first == nil {
			first = err
		}
	}
	a.chunks = nil
	return first
}
