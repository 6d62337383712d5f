package bus

import "testing"

func TestU16RoundTrip(t *testing.T) {
	buf := make([]byte, 2)
	for _, x := range []uint16{0, 1, 0x00ff, 0xabcd, 0xffff} {
		PutU16BE(buf, 0, x)
		if got := U16BE(buf, 0); got != x {
			t.Errorf("U16BE(PutU16BE(%#x)) = %#x", x, got)
		}
	}
}

func TestU32RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	for _, x := range []uint32{0, 1, 2500, 0x0001E208, 0x80000000, 0xffffffff} {
		PutU32BE(buf, 0, x)
		if got := U32BE(buf, 0); got != x {
			t.Errorf("U32BE(PutU32BE(%#x)) = %#x", x, got)
		}
	}
}

func TestU32BigEndianLayout(t *testing.T) {
	buf := make([]byte, 4)
	PutU32BE(buf, 0, 2500)
	want := []byte{0x00, 0x00, 0x09, 0xc4}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, buf[i], want[i])
		}
	}
}
