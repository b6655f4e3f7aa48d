package registers

import "testing"

func TestV1RoundTrip(t *testing.T) {
	v := V1{AX: 0x1111, BX: 0x2222, CX: 0x3333, DX: 0x4444, SS: 0x5555, DS: 0x6666,
		ES: 0x7777, SP: 0x8888, BP: 0x9999, SI: 0xAAAA, DI: 0xBBBB, CS: 0xCCCC, IP: 0xDDDD, Flags: 0xEEEE}
	buf := v.Serialize()
	if len(buf) != SizeV1 {
		t.Fatalf("len = %d, want %d", len(buf), SizeV1)
	}
	got := ParseV1(buf)
	if got != v {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, v)
	}
}

func TestV2RoundTrip(t *testing.T) {
	v := V2{MSW: 1, TR: 2, Flags: 3, IP: 4, LDTSel: 5, DS: 6, SS: 7, CS: 8, ES: 9,
		DI: 10, SI: 11, BP: 12, SP: 13, BX: 14, DX: 15, CX: 16, AX: 17}
	v.Descriptors.ES = Descriptor6{Base: 0x123456, Type: 2, S: true, DPL: 0, Present: true, Limit: 0xFFFF}
	buf := v.Serialize()
	if len(buf) != SizeV2 {
		t.Fatalf("len = %d, want %d", len(buf), SizeV2)
	}
	got := ParseV2(buf)
	if got != v {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, v)
	}
}

func TestV3ARoundTrip(t *testing.T) {
	v := NewV3ADefault()
	v.EAX = 0xDEADBEEF
	v.Segments.DS = 0x2000
	buf := v.Serialize()
	if len(buf) != SizeV3A {
		t.Fatalf("len = %d, want %d", len(buf), SizeV3A)
	}
	got := ParseV3(buf, false)
	if got != v {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, v)
	}
}

func TestV3BRoundTrip(t *testing.T) {
	v := NewV3ADefault()
	v.HasCR3 = true
	v.CR3 = 0x1000
	buf := v.Serialize()
	if len(buf) != SizeV3B {
		t.Fatalf("len = %d, want %d", len(buf), SizeV3B)
	}
	got := ParseV3(buf, true)
	if got != v {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, v)
	}
	if got.CR3Value() != 0x1000 {
		t.Fatalf("CR3Value = %#x, want 0x1000", got.CR3Value())
	}
}

func TestV3ACR3IsZero(t *testing.T) {
	v := NewV3ADefault()
	if v.CR3Value() != 0 {
		t.Fatalf("CR3Value on V3A = %#x, want 0", v.CR3Value())
	}
}

func TestNormalizeDescriptorsV2(t *testing.T) {
	v := V2{DS: 0x1234}
	v.NormalizeDescriptors()
	if v.Descriptors.DS.Base != uint32(0x1234)<<4 {
		t.Fatalf("DS base = %#x, want %#x", v.Descriptors.DS.Base, uint32(0x1234)<<4)
	}
	if v.Descriptors.DS.Limit != 0xFFFF {
		t.Fatalf("DS limit = %#x, want 0xFFFF", v.Descriptors.DS.Limit)
	}
}
