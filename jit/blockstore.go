// blockstore.go - two-level block lookup table
//
// License: GPLv3 or later

package jit

import "github.com/zotley/gekkojit/gekko"

// regionBits picks how many low address bits identify a block's
// position within its region; the remaining high bits select the
// region itself. A region is 16KiB of effective address space, which
// keeps most hot loops within a single region's inner map.
const regionBits = 14
const regionSize = 1 << regionBits

func regionOf(addr gekko.Address) uint32 {
	return uint32(addr) >> regionBits
}

// BlockStore is a two-level map from effective address to compiled
// Block: an outer map keyed by region, an inner map keyed by the
// block's start address within that region. Grounded on
// original_source/crates/cores/src/cpu/jit/mapping.rs's nested
// fixed-size table (there, three levels over a dense array; here,
// two levels over Go maps, which is closer to how
// IntuitionEngine's memory_bus.go keys its own page-mapped I/O
// regions with a plain `map[uint32][]IORegion`).
type BlockStore struct {
	regions map[uint32]map[gekko.Address]*Block
}

// NewBlockStore returns an empty store.
func NewBlockStore() *BlockStore {
	return &BlockStore{regions: make(map[uint32]map[gekko.Address]*Block)}
}

// Insert records a freshly compiled block. It reports false and leaves
// the store untouched if a block already starts at b.Start: callers
// that raced to compile the same miss must keep whichever block they
// already hold rather than silently replacing a block that may have
// back-references attached.
func (s *BlockStore) Insert(b *Block) bool {
	r := regionOf(b.Start)
	inner, ok := s.regions[r]
	if !ok {
		inner = make(map[gekko.Address]*Block)
		s.regions[r] = inner
	}
	if _, exists := inner[b.Start]; exists {
		return false
	}
	inner[b.Start] = b
	return true
}

// Region returns the start addresses of every block currently stored
// in the region containing addr, i.e. every block start whose
// regionOf matches regionOf(addr). Used by writers to find candidate
// blocks before falling back to InvalidateRange's byte-range scan, and
// by tests asserting the insert/region invariant: for any installed
// block at a, Region(a) contains a.
func (s *BlockStore) Region(addr gekko.Address) []gekko.Address {
	inner, ok := s.regions[regionOf(addr)]
	if !ok {
		return nil
	}
	addrs := make([]gekko.Address, 0, len(inner))
	for start := range inner {
		addrs = append(addrs, start)
	}
	return addrs
}

// Get looks up the block starting exactly at addr.
func (s *BlockStore) Get(addr gekko.Address) (*Block, bool) {
	inner, ok := s.regions[regionOf(addr)]
	if !ok {
		return nil, false
	}
	b, ok := inner[addr]
	return b, ok
}

// Remove evicts the block starting at addr, if any, and invalidates
// every link slot pointing into it so nothing jumps into freed code.
func (s *BlockStore) Remove(addr gekko.Address) {
	r := regionOf(addr)
	inner, ok := s.regions[r]
	if !ok {
		return
	}
	b, ok := inner[addr]
	if !ok {
		return
	}
	delete(inner, addr)
	if len(inner) == 0 {
		delete(s.regions, r)
	}
	b.invalidateBackRefs()
}

// InvalidateRange evicts every block whose span overlaps
// [start, end) of effective address space, as a write to that range
// must since any of those blocks may have read the old bytes as
// instructions. Only the regions the range could possibly touch are
// scanned, including the one before start's region, since a block
// that starts there can run into the range.
func (s *BlockStore) InvalidateRange(start, end gekko.Address) {
	firstRegion := regionOf(start)
	if firstRegion > 0 {
		firstRegion--
	}
	lastRegion := regionOf(end)

	for r := firstRegion; r <= lastRegion; r++ {
		inner, ok := s.regions[r]
		if !ok {
			continue
		}
		for blockStart, b := range inner {
			if blockStart < end && b.End > start {
				delete(inner, blockStart)
				b.invalidateBackRefs()
			}
		}
		if len(inner) == 0 {
			delete(s.regions, r)
		}
	}
}

// Clear removes every block, invalidating all link slots.
func (s *BlockStore) Clear() {
	for _, inner := range s.regions {
		for _, b := range inner {
			b.invalidateBackRefs()
		}
	}
	s.regions = make(map[uint32]map[gekko.Address]*Block)
}

// Len reports how many blocks are currently stored.
func (s *BlockStore) Len() int {
	n := 0
	for _, inner := range s.regions {
		n += len(inner)
	}
	return n
}
