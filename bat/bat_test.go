package bat

import (
	"testing"

	"github.com/zotley/gekkojit/gekko"
)

func dbatSet() [4]gekko.BatDescriptor {
	return [4]gekko.BatDescriptor{
		{
			EffectivePageIndex: 0x8000_0000 >> 17,
			RealPageNumber:     0,
			LengthMask:         0x7FF, // 256 MiB
			SupervisorValid:    true,
			UserValid:          true,
		},
	}
}

// TestBatTranslationRoundTrip checks the BootBAT-style 256MiB
// identity-offset mapping translates both its first page and an
// address deep inside the range to the matching physical offset.
func TestBatTranslationRoundTrip(t *testing.T) {
	tr := NewTranslator()
	tr.BuildBatLUT(dbatSet(), [4]gekko.BatDescriptor{}, true)

	if pa, ok := tr.TranslateData(0x8000_1234); !ok || pa != 0x0000_1234 {
		t.Fatalf("translate_data(0x80001234) = (%v, %v), want (0x1234, true)", pa, ok)
	}
	if pa, ok := tr.TranslateData(0x8800_0000); !ok || pa != 0x0800_0000 {
		t.Fatalf("translate_data(0x88000000) = (%v, %v), want (0x08000000, true)", pa, ok)
	}
}

func TestBatTranslationMiss(t *testing.T) {
	tr := NewTranslator()
	tr.BuildBatLUT(dbatSet(), [4]gekko.BatDescriptor{}, true)

	if _, ok := tr.TranslateData(0x7000_0000); ok {
		t.Fatal("expected a miss outside any BAT range")
	}
	if _, ok := tr.TranslateInstr(0x8000_0000); ok {
		t.Fatal("ibat is empty, instruction translation should miss")
	}
}

func TestBatSupervisorFlagSkipsDisabledEntries(t *testing.T) {
	bats := dbatSet()
	bats[0].SupervisorValid = false

	tr := NewTranslator()
	tr.BuildBatLUT(bats, [4]gekko.BatDescriptor{}, true)

	if _, ok := tr.TranslateData(0x8000_1234); ok {
		t.Fatal("expected a miss: bat is invalid in supervisor mode")
	}
}

func TestBatLastWinsOnOverlap(t *testing.T) {
	bats := [4]gekko.BatDescriptor{
		{EffectivePageIndex: 0x8000_0000 >> 17, RealPageNumber: 0x0000_0000 >> 17, LengthMask: 0x7FF, SupervisorValid: true},
		{EffectivePageIndex: 0x8000_0000 >> 17, RealPageNumber: 0x4000_0000 >> 17, LengthMask: 0x7FF, SupervisorValid: true},
	}

	tr := NewTranslator()
	tr.BuildBatLUT(bats, [4]gekko.BatDescriptor{}, true)

	pa, ok := tr.TranslateData(0x8000_0000)
	if !ok || pa != 0x4000_0000 {
		t.Fatalf("expected the later BAT to win, got (%v, %v)", pa, ok)
	}
}

// TestBuildBatLUTIdempotent checks that rebuilding the LUT from the
// same descriptor set twice produces an identical table.
func TestBuildBatLUTIdempotent(t *testing.T) {
	tr := NewTranslator()
	bats := dbatSet()

	tr.BuildBatLUT(bats, [4]gekko.BatDescriptor{}, true)
	first := tr.dataLUT

	tr.BuildBatLUT(bats, [4]gekko.BatDescriptor{}, true)
	second := tr.dataLUT

	if first != second {
		t.Fatal("rebuilding the LUT with identical inputs should be idempotent")
	}
}
