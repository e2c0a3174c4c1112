// boot.go - boot-time BAT setup and .dol loading
//
// License: GPLv3 or later

package system

import (
	"fmt"

	"github.com/zotley/gekkojit/bus"
	"github.com/zotley/gekkojit/dol"
	"github.com/zotley/gekkojit/gekko"
)

// BootBAT installs the GameCube's standard post-IPL BAT0 mapping:
// effective 0x8000_0000-0x8FFF_FFFF (256MiB, cached) straight onto
// physical 0x0000_0000, so translate_data(0x8000_1234) ==
// 0x0000_1234. Real firmware sets several BATs covering RAM,
// locked cache, and I/O; only the one range this core's bus actually
// backs is reproduced here.
func (s *System) BootBAT() {
	mapping := gekko.BatDescriptor{
		EffectivePageIndex: 0x8000_0000 >> 17,
		RealPageNumber:     0x0000_0000 >> 17,
		LengthMask:         0x7FF,
		SupervisorValid:    true,
		UserValid:          true,
	}
	s.CPU.Regs.DBAT[0] = mapping
	s.CPU.Regs.IBAT[0] = mapping
	s.CPU.Translator.BuildBatLUT(s.CPU.Regs.DBAT, s.CPU.Regs.IBAT, true)
}

// LoadDol writes every section of d into physical memory through the
// CPU's data BAT (so section targets, which are effective addresses,
// land at the physical bytes the running CPU will actually fetch
// from) and positions PC at its entry point.
func (s *System) LoadDol(d *dol.Dol) error {
	for _, sec := range d.Sections() {
		if err := s.writeTranslated(sec.Target, sec.Content); err != nil {
			return fmt.Errorf("system: loading dol section at %#x: %w", sec.Target, err)
		}
	}
	if target, size := d.BSS(); size > 0 {
		if err := s.writeTranslated(target, make([]byte, size)); err != nil {
			return fmt.Errorf("system: zeroing dol bss at %#x: %w", target, err)
		}
	}
	s.CPU.Regs.PC = gekko.Address(d.Entrypoint())
	return nil
}

// writeTranslated copies content into physical memory starting at the
// physical address ea translates to, failing if any byte of the
// range falls outside every configured BAT (a malformed .dol
// targeting memory the boot BAT doesn't cover).
func (s *System) writeTranslated(ea uint32, content []byte) error {
	for i, b := range content {
		pa, ok := s.CPU.Translator.TranslateData(gekko.Address(ea) + gekko.Address(i))
		if !ok {
			return fmt.Errorf("effective address %#x has no BAT mapping", ea+uint32(i))
		}
		bus.Write[byte](s.Bus, pa, b)
	}
	return nil
}
