// cp.go - Command Processor (CP) register bank
//
// License: GPLv3 or later

package bus

import "github.com/zotley/gekkojit/prim"

// CP mirrors the GP FIFO control registers, matching the shape shown
// in original_source/app/src/subsystem/cp.rs's debug window (Status,
// Control, and a Fifo block of watermarks/pointers). Vertex/display
// list processing itself is out of scope; this bank only stores the
// register state the CPU can observe and set.
type CP struct {
	Status, Control, Clear uint16

	FifoStart, FifoEnd                 uint32
	FifoHighWatermark, FifoLowWatermark uint32
	FifoCount                          uint32
	FifoWritePtr, FifoReadPtr          uint32
}

func newCP() *CP { return &CP{} }

const cpBankLen = 0x28

func (c *CP) pack() []byte {
	buf := make([]byte, cpBankLen)
	prim.WriteNE(c.Status, buf[0x00:])
	prim.WriteNE(c.Control, buf[0x02:])
	prim.WriteNE(c.Clear, buf[0x04:])
	prim.WriteNE(c.FifoStart, buf[0x0C:])
	prim.WriteNE(c.FifoEnd, buf[0x10:])
	prim.WriteNE(c.FifoHighWatermark, buf[0x14:])
	prim.WriteNE(c.FifoLowWatermark, buf[0x18:])
	prim.WriteNE(c.FifoCount, buf[0x1C:])
	prim.WriteNE(c.FifoWritePtr, buf[0x20:])
	prim.WriteNE(c.FifoReadPtr, buf[0x24:])
	return buf
}

func (c *CP) unpack(buf []byte) {
	c.Status = prim.ReadNE[uint16](buf[0x00:])
	c.Control = prim.ReadNE[uint16](buf[0x02:])
	c.Clear = prim.ReadNE[uint16](buf[0x04:])
	c.FifoStart = prim.ReadNE[uint32](buf[0x0C:])
	c.FifoEnd = prim.ReadNE[uint32](buf[0x10:])
	c.FifoHighWatermark = prim.ReadNE[uint32](buf[0x14:])
	c.FifoLowWatermark = prim.ReadNE[uint32](buf[0x18:])
	c.FifoCount = prim.ReadNE[uint32](buf[0x1C:])
	c.FifoWritePtr = prim.ReadNE[uint32](buf[0x20:])
	c.FifoReadPtr = prim.ReadNE[uint32](buf[0x24:])
}

func (c *CP) ReadRegister(offset uint32, width int) uint64 {
	return readBank(c.pack(), offset, width)
}

func (c *CP) WriteRegister(offset uint32, width int, value uint64) {
	buf := c.pack()
	writeBank(buf, offset, width, value)
	c.unpack(buf)
}
