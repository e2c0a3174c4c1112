// vi.go - Video Interface (VI) register bank
//
// License: GPLv3 or later

package bus

// VI mirrors the subset of video timing/framebuffer registers named
// in original_source/hemisphere/src/system/video/regs.rs and wired
// into the bus's const-range dispatch table in system/bus.rs. Pixel
// output itself goes through modules.RenderModule; this bank only
// holds the raw register state a guest can read back.
type VI struct {
	VerticalTiming   uint16
	DisplayConfig    uint16
	HorizontalTiming uint64

	OddVerticalTiming, EvenVerticalTiming uint32
	OddBBInterval, EvenBBInterval         uint32
	TopBaseLeft, TopBaseRight             uint32
	BottomBaseLeft, BottomBaseRight       uint32

	HorizontalScaling uint16
	Clock             uint16
}

func newVI() *VI { return &VI{} }

const viBankLen = 0x80

func (v *VI) pack() []byte {
	buf := make([]byte, viBankLen)
	writeBank(buf, 0x00, 2, uint64(v.VerticalTiming))
	writeBank(buf, 0x02, 2, uint64(v.DisplayConfig))
	writeBank(buf, 0x04, 4, uint64(v.HorizontalTiming>>32))
	writeBank(buf, 0x08, 4, uint64(v.HorizontalTiming))
	writeBank(buf, 0x0C, 4, uint64(v.OddVerticalTiming))
	writeBank(buf, 0x10, 4, uint64(v.EvenVerticalTiming))
	writeBank(buf, 0x14, 4, uint64(v.OddBBInterval))
	writeBank(buf, 0x18, 4, uint64(v.EvenBBInterval))
	writeBank(buf, 0x1C, 4, uint64(v.TopBaseLeft))
	writeBank(buf, 0x20, 4, uint64(v.TopBaseRight))
	writeBank(buf, 0x24, 4, uint64(v.BottomBaseLeft))
	writeBank(buf, 0x28, 4, uint64(v.BottomBaseRight))
	writeBank(buf, 0x4A, 2, uint64(v.HorizontalScaling))
	writeBank(buf, 0x6C, 2, uint64(v.Clock))
	return buf
}

func (v *VI) unpack(buf []byte) {
	v.VerticalTiming = uint16(readBank(buf, 0x00, 2))
	v.DisplayConfig = uint16(readBank(buf, 0x02, 2))
	v.HorizontalTiming = readBank(buf, 0x04, 4)<<32 | readBank(buf, 0x08, 4)
	v.OddVerticalTiming = uint32(readBank(buf, 0x0C, 4))
	v.EvenVerticalTiming = uint32(readBank(buf, 0x10, 4))
	v.OddBBInterval = uint32(readBank(buf, 0x14, 4))
	v.EvenBBInterval = uint32(readBank(buf, 0x18, 4))
	v.TopBaseLeft = uint32(readBank(buf, 0x1C, 4))
	v.TopBaseRight = uint32(readBank(buf, 0x20, 4))
	v.BottomBaseLeft = uint32(readBank(buf, 0x24, 4))
	v.BottomBaseRight = uint32(readBank(buf, 0x28, 4))
	v.HorizontalScaling = uint16(readBank(buf, 0x4A, 2))
	v.Clock = uint16(readBank(buf, 0x6C, 2))
}

func (v *VI) ReadRegister(offset uint32, width int) uint64 {
	return readBank(v.pack(), offset, width)
}

func (v *VI) WriteRegister(offset uint32, width int, value uint64) {
	buf := v.pack()
	writeBank(buf, offset, width, value)
	v.unpack(buf)
}
