package registers

import "github.com/ardx86/testgen/internal/wire"

// V3 EFLAGS reserved masks (80386), analogous to the 16-bit masks but over
// the full 32-bit register; bit 1 is always set, undefined high bits are
// always clear.
const (
	V3EFlagsReservedSetMask   uint32 = 0x0000_0002
	V3EFlagsReservedClearMask uint32 = 0x0003_7FD7
)

// Default reset values for the V3A register set (spec.md §3 invariants).
const (
	V3ADefaultCR0 uint32 = 0x7FFE_FFF0
	V3ADefaultCS  uint16 = 0x1000
	V3ADefaultEIP uint32 = 0x0000_0100
)

// Descriptor12 is the 80386 LOADALL's 12-byte descriptor cache entry:
// access u32, base u32, limit u32 (spec.md §3).
type Descriptor12 struct {
	Access uint32
	Base   uint32
	Limit  uint32
}

func writeDescriptor12(buf []byte, d Descriptor12) {
	wire.PutU32(buf[0:4], d.Access)
	wire.PutU32(buf[4:8], d.Base)
	wire.PutU32(buf[8:12], d.Limit)
}

func parseDescriptor12(buf []byte) Descriptor12 {
	return Descriptor12{Access: wire.U32(buf[0:4]), Base: wire.U32(buf[4:8]), Limit: wire.U32(buf[8:12])}
}

// V3Descriptors holds the ten 12-byte descriptors, in wire order
// TSS,IDT,GDT,LDT,GS,FS,DS,SS,CS,ES (spec.md §3).
type V3Descriptors struct {
	TSS, IDT, GDT, LDT, GS, FS, DS, SS, CS, ES Descriptor12
}

// V3Segments holds the six 32-bit segment selector+pad pairs, same
// register order as the GS..ES descriptor run above.
type V3Segments struct {
	GS, FS, DS, SS, CS, ES uint16
}

// V3 is the 80386 LOADALL register set. HasCR3 distinguishes the V3B
// variant (208 bytes, +CR3) from V3A (204 bytes); Serialize/Parse branch
// on it.
type V3 struct {
	HasCR3 bool
	CR0    uint32
	CR3    uint32 // only meaningful when HasCR3
	EFlags uint32
	EIP    uint32
	EAX, EBX, ECX, EDX uint32
	ESP, EBP, ESI, EDI uint32
	DR6, DR7 uint32
	TR, LDT  uint32
	Segments    V3Segments
	Descriptors V3Descriptors
}

// Size returns 208 for V3B, 204 for V3A.
func (v V3) Size() int {
	if v.HasCR3 {
		return SizeV3B
	}
	return SizeV3A
}

// ParseV3 decodes a V3A (204-byte) or V3B (208-byte) payload, determined
// by hasCR3.
func ParseV3(buf []byte, hasCR3 bool) V3 {
	var v V3
	v.HasCR3 = hasCR3
	off := 0
	v.CR0 = wire.U32(buf[off : off+4])
	off += 4
	if hasCR3 {
		v.CR3 = wire.U32(buf[off : off+4])
		off += 4
	}
	v.EFlags = wire.U32(buf[off : off+4])
	off += 4
	v.EIP = wire.U32(buf[off : off+4])
	off += 4

	read32 := func() uint32 {
		x := wire.U32(buf[off : off+4])
		off += 4
		return x
	}
	// GPR wire order is EDI,ESI,EBP,ESP,EBX,EDX,ECX,EAX (spec.md §3;
	// original_source/crates/arduinox86_client/src/registers/registers_v3.rs).
	v.EDI = read32()
	v.ESI = read32()
	v.EBP = read32()
	v.ESP = read32()
	v.EBX = read32()
	v.EDX = read32()
	v.ECX = read32()
	v.EAX = read32()
	v.DR6 = read32()
	v.DR7 = read32()
	v.TR = read32()
	v.LDT = read32()

	read16pad := func() uint16 {
		sel := wire.U16(buf[off : off+2])
		off += 4 // 16-bit selector + 16-bit pad
		return sel
	}
	v.Segments.GS = read16pad()
	v.Segments.FS = read16pad()
	v.Segments.DS = read16pad()
	v.Segments.SS = read16pad()
	v.Segments.CS = read16pad()
	v.Segments.ES = read16pad()

	readDesc := func() Descriptor12 {
		d := parseDescriptor12(buf[off : off+12])
		off += 12
		return d
	}
	v.Descriptors.TSS = readDesc()
	v.Descriptors.IDT = readDesc()
	v.Descriptors.GDT = readDesc()
	v.Descriptors.LDT = readDesc()
	v.Descriptors.GS = readDesc()
	v.Descriptors.FS = readDesc()
	v.Descriptors.DS = readDesc()
	v.Descriptors.SS = readDesc()
	v.Descriptors.CS = readDesc()
	v.Descriptors.ES = readDesc()
	return v
}

// Serialize writes the layout-exact V3A/V3B payload.
func (v V3) Serialize() []byte {
	buf := make([]byte, v.Size())
	off := 0
	wire.PutU32(buf[off:off+4], v.CR0)
	off += 4
	if v.HasCR3 {
		wire.PutU32(buf[off:off+4], v.CR3)
		off += 4
	}
	wire.PutU32(buf[off:off+4], v.EFlags)
	off += 4
	wire.PutU32(buf[off:off+4], v.EIP)
	off += 4

	write32 := func(x uint32) {
		wire.PutU32(buf[off:off+4], x)
		off += 4
	}
	write32(v.EDI)
	write32(v.ESI)
	write32(v.EBP)
	write32(v.ESP)
	write32(v.EBX)
	write32(v.EDX)
	write32(v.ECX)
	write32(v.EAX)
	write32(v.DR6)
	write32(v.DR7)
	write32(v.TR)
	write32(v.LDT)

	write16pad := func(sel uint16) {
		wire.PutU16(buf[off:off+2], sel)
		wire.PutU16(buf[off+2:off+4], 0)
		off += 4
	}
	write16pad(v.Segments.GS)
	write16pad(v.Segments.FS)
	write16pad(v.Segments.DS)
	write16pad(v.Segments.SS)
	write16pad(v.Segments.CS)
	write16pad(v.Segments.ES)

	writeDesc := func(d Descriptor12) {
		writeDescriptor12(buf[off:off+12], d)
		off += 12
	}
	writeDesc(v.Descriptors.TSS)
	writeDesc(v.Descriptors.IDT)
	writeDesc(v.Descriptors.GDT)
	writeDesc(v.Descriptors.LDT)
	writeDesc(v.Descriptors.GS)
	writeDesc(v.Descriptors.FS)
	writeDesc(v.Descriptors.DS)
	writeDesc(v.Descriptors.SS)
	writeDesc(v.Descriptors.CS)
	writeDesc(v.Descriptors.ES)
	return buf
}

// CodeAddress computes the flat CS:EIP address, truncated to 32 bits
// (real/unreal segmentation only, per spec.md §1 non-goals).
func (v V3) CodeAddress() uint32 { return uint32(v.Segments.CS)<<4 + v.EIP }

// RewindIP subtracts adjust from EIP.
func (v *V3) RewindIP(adjust uint32) { v.EIP -= adjust }

// NormalizeDescriptors forces each segment descriptor's base to
// selector<<4 and limit to 0xFFFF. CR3 is not a descriptor concern and is
// untouched; on a V3A value (no CR3 field) it is simply 0 per spec.md §9's
// down-conversion note.
func (v *V3) NormalizeDescriptors() {
	norm := func(sel uint16) Descriptor12 {
		return Descriptor12{Access: 0x93, Base: uint32(sel) << 4, Limit: 0xFFFF}
	}
	v.Descriptors.GS = norm(v.Segments.GS)
	v.Descriptors.FS = norm(v.Segments.FS)
	v.Descriptors.DS = norm(v.Segments.DS)
	v.Descriptors.SS = norm(v.Segments.SS)
	v.Descriptors.CS = norm(v.Segments.CS)
	v.Descriptors.ES = norm(v.Segments.ES)
}

// NewV3ADefault returns a V3A register set populated with the spec'd
// reset defaults (CR0, CS, EIP) and zero elsewhere.
func NewV3ADefault() V3 {
	v := V3{HasCR3: false, CR0: V3ADefaultCR0, EIP: V3ADefaultEIP}
	v.Segments.CS = V3ADefaultCS
	return v
}

// MaskEFlags applies the V3 reserved-bit masks to EFlags.
func (v *V3) MaskEFlags() {
	v.EFlags = (v.EFlags | V3EFlagsReservedSetMask) & V3EFlagsReservedClearMask
}

// CR3Value returns CR3 if this is a V3B set, or 0 for V3A (spec.md §9:
// "Treat CR3 as 0 on V3A").
func (v V3) CR3Value() uint32 {
	if v.HasCR3 {
		return v.CR3
	}
	return 0
}
