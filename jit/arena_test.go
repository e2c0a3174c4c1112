// License: GPLv3 or later

package jit

import "testing"

func TestArenaAllocateRoundTrips(t *testing.T) {
	a, err := NewArena(ProtReadWrite)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	data := []byte{1, 2, 3, 4, 5}
	out, err := a.Allocate(data)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(out) != len(data) {
		t.Fatalf("len = %d, want %d", len(out), len(data))
	}
	for i, b := range data {
		if out[i] != b {
			t.Fatalf("byte %d = %d, want %d", i, out[i], b)
		}
	}
}

func TestArenaGrowsBeyondChunk(t *testing.T) {
	a, err := NewArena(ProtReadWrite)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	big := make([]byte, chunkSize+1)
	if _, err := a.Allocate(big); err != nil {
		t.Fatalf("Allocate big: %v", err)
	}
	if len(a.chunks) < 2 {
		t.Fatalf("expected growth into a second chunk, have %d", len(a.chunks))
	}
}

func TestArenaMultipleAllocationsDoNotOverlap(t *testing.T) {
	a, err := NewArena(ProtReadWrite)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	first, _ := a.Allocate([]byte{0xAA, 0xAA})
	second, _ := a.Allocate([]byte{0xBB, 0xBB})

	if first[0] != 0xAA || second[0] != 0xBB {
		t.Fatalf("allocations clobbered each other: first=%v second=%v", first, second)
	}
}
