// dsp.go - DSP interface (AID/ARAM DMA) register bank
//
// License: GPLv3 or later

package bus

// DSP mirrors original_source/hemisphere/src/system/dsp.rs: a pair of
// 32-bit mailboxes (CPU-to-DSP and DSP-to-CPU, each with a status bit
// in its top bit), a control/interrupt register, and the ARAM DMA
// address/length/direction triple. DSP program execution itself is
// out of scope (Non-goal); only the register-visible state is kept.
type DSP struct {
	DspMailbox, CPUMailbox uint32
	Control                uint16

	AramDmaRAM, AramDmaARAM uint32
	AramDmaControl          uint32
}

func newDSP() *DSP {
	// real hardware and original_source both boot the DSP with a
	// "ready" mailbox value so the IPL doesn't spin forever waiting
	// for a response.
	return &DSP{CPUMailbox: 0x8071_FEED}
}

const dspBankLen = 0x2C

func (d *DSP) pack() []byte {
	buf := make([]byte, dspBankLen)
	writeBank(buf, 0x00, 4, uint64(d.DspMailbox))
	writeBank(buf, 0x04, 4, uint64(d.CPUMailbox))
	writeBank(buf, 0x0A, 2, uint64(d.Control))
	writeBank(buf, 0x20, 4, uint64(d.AramDmaRAM))
	writeBank(buf, 0x24, 4, uint64(d.AramDmaARAM))
	writeBank(buf, 0x28, 4, uint64(d.AramDmaControl))
	return buf
}

func (d *DSP) unpack(buf []byte) {
	d.DspMailbox = uint32(readBank(buf, 0x00, 4))
	d.CPUMailbox = uint32(readBank(buf, 0x04, 4))
	d.Control = uint16(readBank(buf, 0x0A, 2))
	d.AramDmaRAM = uint32(readBank(buf, 0x20, 4))
	d.AramDmaARAM = uint32(readBank(buf, 0x24, 4))
	d.AramDmaControl = uint32(readBank(buf, 0x28, 4))
}

func (d *DSP) ReadRegister(offset uint32, width int) uint64 {
	v := readBank(d.pack(), offset, width)
	// reading the low half of the CPU mailbox clears its status bit,
	// matching original_source's read handler for 0x0C00_5004.
	if offset == 0x06 {
		d.CPUMailbox &^= 1 << 31
	}
	return v
}

func (d *DSP) WriteRegister(offset uint32, width int, value uint64) {
	buf := d.pack()
	writeBank(buf, offset, width, value)
	d.unpack(buf)

	if offset == 0x0A && value&(1<<0) != 0 {
		// reset bit: clear every control flag and requeue the boot
		// mailbox handshake.
		d.Control = 0
		d.CPUMailbox = 0x8071_FEED
	}
}
