// di.go - Disk Interface (DI) register bank
//
// License: GPLv3 or later

package bus

// DI mirrors original_source/hemisphere/src/system/di.rs's Status,
// Control, Cover, and command/DMA registers. Starting a DMA transfer
// (the side effect of writing Control with transfer_ongoing=1) is
// system-level behaviour: it needs the ISO reader and the scheduler,
// neither of which the bus package owns. System watches for that
// transition via DI.TransferJustStarted after calling WriteRegister.
type DI struct {
	Status, Control uint32
	Command         [3]uint32
	DmaBase         uint32
	DmaLength       uint32
	Cover           uint32
	Config          uint32

	// TransferJustStarted is set by WriteRegister when a write to
	// Control flips transfer_ongoing from 0 to 1, and is meant to be
	// observed and cleared by System immediately afterwards.
	TransferJustStarted bool
}

func newDI() *DI { return &DI{Config: 0x0000_0000} }

const diBankLen = 0x28

func (d *DI) pack() []byte {
	buf := make([]byte, diBankLen)
	writeBank(buf, 0x00, 4, uint64(d.Status))
	writeBank(buf, 0x04, 4, uint64(d.Control))
	writeBank(buf, 0x08, 4, uint64(d.Command[0]))
	writeBank(buf, 0x0C, 4, uint64(d.Command[1]))
	writeBank(buf, 0x10, 4, uint64(d.Command[2]))
	writeBank(buf, 0x14, 4, uint64(d.DmaBase))
	writeBank(buf, 0x18, 4, uint64(d.DmaLength))
	writeBank(buf, 0x1C, 4, uint64(d.Cover))
	writeBank(buf, 0x24, 4, uint64(d.Config))
	return buf
}

func (d *DI) unpack(buf []byte) {
	d.Status = uint32(readBank(buf, 0x00, 4))
	d.Control = uint32(readBank(buf, 0x04, 4))
	d.Command[0] = uint32(readBank(buf, 0x08, 4))
	d.Command[1] = uint32(readBank(buf, 0x0C, 4))
	d.Command[2] = uint32(readBank(buf, 0x10, 4))
	d.DmaBase = uint32(readBank(buf, 0x14, 4))
	d.DmaLength = uint32(readBank(buf, 0x18, 4))
	d.Cover = uint32(readBank(buf, 0x1C, 4))
	d.Config = uint32(readBank(buf, 0x24, 4))
}

func (d *DI) ReadRegister(offset uint32, width int) uint64 {
	return readBank(d.pack(), offset, width)
}

const diTransferOngoing = 1 << 0

func (d *DI) WriteRegister(offset uint32, width int, value uint64) {
	wasOngoing := d.Control&diTransferOngoing != 0
	oldStatus := d.Status

	buf := d.pack()
	writeBank(buf, offset, width, value)
	d.unpack(buf)

	if offset == 0x00 {
		// DI status interrupt bits are write-one-to-clear: a written 1
		// clears the matching old bit, a written 0 leaves it alone, and
		// the non-W1C bits pass through whatever was written.
		const w1cMask = 0x54 // device_err|transfer|break interrupt bits
		written := uint32(value)
		d.Status = (oldStatus &^ (written & w1cMask)) | (written &^ w1cMask)
	}

	if offset == 0x04 && !wasOngoing && d.Control&diTransferOngoing != 0 {
		d.TransferJustStarted = true
	}
}
