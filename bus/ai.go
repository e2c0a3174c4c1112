// ai.go - Audio Interface (AI) register bank
//
// License: GPLv3 or later

package bus

// AI mirrors original_source/hemisphere/src/system/ai.rs: a control
// register (play/pause, sample rates, interrupt enable/status), a DMA
// address/control pair, and the running sample counter System
// advances as audio time elapses. Actual PCM streaming goes through
// modules.AudioModule; this bank only holds the register-visible
// state.
type AI struct {
	Control       uint32
	DmaBase       uint32
	DmaControl    uint32
	SampleCounter uint32
}

func newAI() *AI { return &AI{} }

const aiBankLen = 0x10

func (a *AI) pack() []byte {
	buf := make([]byte, aiBankLen)
	writeBank(buf, 0x00, 4, uint64(a.Control))
	writeBank(buf, 0x04, 4, uint64(a.DmaBase))
	writeBank(buf, 0x08, 4, uint64(a.DmaControl))
	writeBank(buf, 0x0C, 4, uint64(a.SampleCounter))
	return buf
}

func (a *AI) unpack(buf []byte) {
	a.Control = uint32(readBank(buf, 0x00, 4))
	a.DmaBase = uint32(readBank(buf, 0x04, 4))
	a.DmaControl = uint32(readBank(buf, 0x08, 4))
	a.SampleCounter = uint32(readBank(buf, 0x0C, 4))
}

func (a *AI) ReadRegister(offset uint32, width int) uint64 {
	return readBank(a.pack(), offset, width)
}

const aiInterruptBit = 1 << 3
const aiSampleCounterReset = 1 << 5

func (a *AI) WriteRegister(offset uint32, width int, value uint64) {
	buf := a.pack()
	writeBank(buf, offset, width, value)
	a.unpack(buf)

	if offset == 0x00 && value&aiSampleCounterReset != 0 {
		a.SampleCounter = 0
	}
}
