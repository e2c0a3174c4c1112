// si.go - Serial Interface (SI) register bank
//
// License: GPLv3 or later

package bus

// SI mirrors the subset of original_source/hemisphere/src/system/serial.rs
// needed to answer controller Info/Poll/GetOrigin/Calibrate commands:
// a polling configuration register, a communication-control register
// whose transfer_start bit kicks off a transfer, a status register,
// and the 32-byte command/response buffer. System schedules the
// transfer completion and fills Buffer with the command's response;
// this bank only stores the raw register state.
type SI struct {
	Poll        uint32
	CommControl uint32
	Status      uint32
	Buffer      [32]byte

	// TransferJustStarted is set when a write to CommControl raises
	// its transfer_start bit, mirroring DI.TransferJustStarted.
	TransferJustStarted bool
}

func newSI() *SI { return &SI{} }

const siBankLen = 0x90

func (s *SI) pack() []byte {
	buf := make([]byte, siBankLen)
	writeBank(buf, 0x00, 4, uint64(s.Poll))
	writeBank(buf, 0x30, 4, uint64(s.CommControl))
	writeBank(buf, 0x34, 4, uint64(s.Status))
	copy(buf[0x40:], s.Buffer[:])
	return buf
}

func (s *SI) unpack(buf []byte) {
	s.Poll = uint32(readBank(buf, 0x00, 4))
	s.CommControl = uint32(readBank(buf, 0x30, 4))
	s.Status = uint32(readBank(buf, 0x34, 4))
	copy(s.Buffer[:], buf[0x40:0x60])
}

func (s *SI) ReadRegister(offset uint32, width int) uint64 {
	return readBank(s.pack(), offset, width)
}

const siTransferStart = 1 << 0

func (s *SI) WriteRegister(offset uint32, width int, value uint64) {
	buf := s.pack()
	writeBank(buf, offset, width, value)
	s.unpack(buf)

	if offset == 0x30 && value&siTransferStart != 0 {
		s.TransferJustStarted = true
	}
}
