package bus

import "testing"

func TestRAMRoundTrip(t *testing.T) {
	b := NewBus()
	Write[uint32](b, 0x1000, 0xDEADBEEF)
	if got := Read[uint32](b, 0x1000); got != 0xDEADBEEF {
		t.Fatalf("read back %08X, want DEADBEEF", got)
	}
}

func TestRAMIsBigEndian(t *testing.T) {
	b := NewBus()
	Write[uint32](b, 0x2000, 0x01020304)
	if b.RAM[0x2000] != 0x01 || b.RAM[0x2003] != 0x04 {
		t.Fatalf("RAM bytes not big-endian: %v", b.RAM[0x2000:0x2004])
	}
}

func TestReadPureOnlyCoversRAM(t *testing.T) {
	b := NewBus()
	Write[uint32](b, 0x3000, 0x11223344)

	if v, ok := ReadPure[uint32](b, 0x3000); !ok || v != 0x11223344 {
		t.Fatalf("read_pure(RAM) = (%X, %v), want (11223344, true)", v, ok)
	}
	if _, ok := ReadPure[uint32](b, mmioBase+0x2000); ok {
		t.Fatal("read_pure must never succeed against an MMIO address")
	}
}

func TestDIControlStartsTransferOnce(t *testing.T) {
	b := NewBus()
	Write[uint32](b, mmioBase+0x6004, 1) // DI control, transfer_ongoing=1
	if !b.DI.TransferJustStarted {
		t.Fatal("expected TransferJustStarted after 0->1 transition")
	}
	b.DI.TransferJustStarted = false

	Write[uint32](b, mmioBase+0x6004, 1) // already ongoing, no new edge
	if b.DI.TransferJustStarted {
		t.Fatal("did not expect a second transfer start while one is ongoing")
	}
}

func TestDIStatusWriteOneClears(t *testing.T) {
	b := NewBus()
	b.DI.Status = 0x54 // all three interrupt bits set
	Write[uint32](b, mmioBase+0x6000, 0x54)
	if b.DI.Status != 0 {
		t.Fatalf("write-one-to-clear left status = %X", b.DI.Status)
	}
}

// TestDIStatusWriteOneClearsOnlyWrittenBits guards against clearing
// or losing bits the write didn't touch: only the bit written as 1
// within the W1C mask should clear, and every other bit (pending or
// not) must survive the write untouched.
func TestDIStatusWriteOneClearsOnlyWrittenBits(t *testing.T) {
	b := NewBus()
	b.DI.Status = 0x54 // device_err|transfer|break all pending
	Write[uint32](b, mmioBase+0x6000, 0x04) // ack only the device-error bit (bit 2)
	if b.DI.Status != 0x50 {
		t.Fatalf("status after partial ack = %#X, want 0x50 (other pending bits preserved)", b.DI.Status)
	}
}

func TestPIActiveInterruptsMasksCause(t *testing.T) {
	b := NewBus()
	b.PI.InterruptCause = 0b101
	b.PI.InterruptMask = 0b001
	if got := b.PI.ActiveInterrupts(); got != 0b001 {
		t.Fatalf("active interrupts = %b, want 001", got)
	}
}

// TestPIWriteOneClearsOnlyWrittenCauseBits guards against the write
// path zeroing the whole cause register regardless of what the guest
// wrote (the bug: unpack() made InterruptCause equal value before the
// &^= ran, so value &^= value was always 0).
func TestPIWriteOneClearsOnlyWrittenCauseBits(t *testing.T) {
	b := NewBus()
	b.PI.InterruptCause = 0b101
	Write[uint32](b, mmioBase+0x3000, 0b001) // ack only bit 0
	if b.PI.InterruptCause != 0b100 {
		t.Fatalf("cause after partial ack = %b, want 100 (bit 2 still pending)", b.PI.InterruptCause)
	}
}

// TestPEWriteOneClearsOnlyWrittenCauseBits is PI's regression mirrored
// onto PE's token/finish cause pair.
func TestPEWriteOneClearsOnlyWrittenCauseBits(t *testing.T) {
	b := NewBus()
	b.PE.TokenCause = 0b11
	Write[uint16](b, mmioBase+0x1000, 0b01) // ack only the low bit
	if b.PE.TokenCause != 0b10 {
		t.Fatalf("token cause after partial ack = %b, want 10 (bit 1 still pending)", b.PE.TokenCause)
	}
}

func TestVIRegisterRoundTrip(t *testing.T) {
	b := NewBus()
	Write[uint16](b, mmioBase+0x2000, 0x1234)
	if got := Read[uint16](b, mmioBase+0x2000); got != 0x1234 {
		t.Fatalf("VI vertical_timing round trip = %X, want 1234", got)
	}
}

func TestUnmappedAddressReturnsZero(t *testing.T) {
	b := NewBus()
	if got := Read[uint32](b, 0xFFFF_0000); got != 0 {
		t.Fatalf("unmapped read = %X, want 0", got)
	}
}

func TestEXIChannelZeroDmaStart(t *testing.T) {
	b := NewBus()
	Write[uint32](b, mmioBase+0x6804, 0b11) // channel 0 control: ongoing|dma
	if !b.EXI.Channels[0].TransferJustStarted {
		t.Fatal("expected channel 0 transfer to start")
	}
	if b.EXI.Channels[1].TransferJustStarted {
		t.Fatal("channel 1 must be unaffected by a channel 0 write")
	}
}
