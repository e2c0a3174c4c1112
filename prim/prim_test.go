package prim

import "testing"

func TestRoundTripBE(t *testing.T) {
	buf := make([]byte, 4)
	WriteBE[uint32](0xDEADBEEF, buf)
	if got := ReadBE[uint32](buf); got != 0xDEADBEEF {
		t.Fatalf("ReadBE(WriteBE(v)) = 0x%08X, want 0xDEADBEEF", got)
	}
}

func TestRoundTripLE(t *testing.T) {
	buf := make([]byte, 8)
	WriteLE[uint64](0x1122334455667788, buf)
	if got := ReadLE[uint64](buf); got != 0x1122334455667788 {
		t.Fatalf("ReadLE(WriteLE(v)) = 0x%016X, want 0x1122334455667788", got)
	}
}

func TestRoundTripNE(t *testing.T) {
	buf := make([]byte, 2)
	WriteNE[uint16](0xABCD, buf)
	if got := ReadNE[uint16](buf); got != 0xABCD {
		t.Fatalf("ReadNE(WriteNE(v)) = 0x%04X, want 0xABCD", got)
	}
}

// TestReadBEShortBufferZeroExtends verifies the short-buffer boundary
// behavior: reading a u32 from a 3-byte slice returns the value with
// the missing low byte zero.
func TestReadBEShortBufferZeroExtends(t *testing.T) {
	buf := []byte{0x12, 0x34, 0x56}
	got := ReadBE[uint32](buf)
	want := uint32(0x12345600)
	if got != want {
		t.Fatalf("ReadBE(short) = 0x%08X, want 0x%08X", got, want)
	}
}

func TestReadLEShortBufferZeroExtends(t *testing.T) {
	buf := []byte{0x12, 0x34, 0x56}
	got := ReadLE[uint32](buf)
	want := uint32(0x00563412)
	if got != want {
		t.Fatalf("ReadLE(short) = 0x%08X, want 0x%08X", got, want)
	}
}

func TestWriteBETruncatesToBuffer(t *testing.T) {
	buf := make([]byte, 2)
	WriteBE[uint32](0xDEADBEEF, buf)
	if buf[0] != 0xDE || buf[1] != 0xAD {
		t.Fatalf("WriteBE(short) = %X, want DE AD", buf)
	}
}

func TestSignedRoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	WriteBESigned[int32, uint32](-42, buf)
	if got := ReadBESigned[int32, uint32](buf); got != -42 {
		t.Fatalf("signed round trip = %d, want -42", got)
	}
}

func TestByteWidths(t *testing.T) {
	cases := []struct {
		name string
		fn   func() uint
	}{
		{"u8", func() uint { return widthOf(uint8(0)) }},
		{"u16", func() uint { return widthOf(uint16(0)) }},
		{"u32", func() uint { return widthOf(uint32(0)) }},
		{"u64", func() uint { return widthOf(uint64(0)) }},
	}
	want := []uint{1, 2, 4, 8}
	for i, c := range cases {
		if got := c.fn(); got != want[i] {
			t.Fatalf("%s width = %d, want %d", c.name, got, want[i])
		}
	}
}
