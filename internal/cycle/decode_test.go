package cycle

import "testing"

func TestDataWidthDerivation(t *testing.T) {
	cases := []struct {
		bhe, a0 bool
		want    DataWidth
	}{
		{false, false, WidthSixteen},
		{false, true, WidthEightHigh},
		{true, false, WidthEightLow},
		{true, true, WidthInvalid},
	}
	for _, c := range cases {
		if got := DeriveDataWidth(c.bhe, c.a0); got != c.want {
			t.Errorf("DeriveDataWidth(%v,%v) = %v, want %v", c.bhe, c.a0, got, c.want)
		}
	}
}

func TestDecodeStatusPre286AllValues(t *testing.T) {
	for v := 0; v < 256; v++ {
		state, seg, qop := DecodeStatusPre286(byte(v))
		if int(state) != v&0x07 {
			t.Fatalf("status %02x: bus state %v != %d", v, state, v&0x07)
		}
		if int(seg) != (v>>3)&0x03 {
			t.Fatalf("status %02x: segment %v != %d", v, seg, (v>>3)&0x03)
		}
		if int(qop) != (v>>6)&0x03 {
			t.Fatalf("status %02x: queue-op %v != %d", v, qop, (v>>6)&0x03)
		}
	}
}

func TestDecodeStatus286UndefinedIsPassive(t *testing.T) {
	for v := 0; v < 16; v++ {
		state, _ := DecodeStatus286(byte(v))
		if !status286Table[v].defined && state != StatePASV {
			t.Errorf("undefined 286 status %04b decoded to %v, want PASV", v, state)
		}
	}
}

func TestPackMemIOStatus(t *testing.T) {
	// All command lines deasserted (bits all high) -> both triples zero.
	mem, io := PackMemIOStatus(0xFF)
	if mem != 0 || io != 0 {
		t.Fatalf("expected zero triples when nothing asserted, got mem=%03b io=%03b", mem, io)
	}
	// MRDC asserted only.
	mem, _ = PackMemIOStatus(0xFF &^ CmdBitMRDC)
	if mem>>2&1 != 1 {
		t.Fatalf("expected read bit set, got %03b", mem)
	}
}
