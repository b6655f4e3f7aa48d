package registers

import "github.com/ardx86/testgen/internal/wire"

// V2 FLAGS reserved masks (80286), per spec.md §3 invariants.
const (
	V2FlagsReservedSetMask   uint16 = 0x0002
	V2FlagsReservedClearMask uint16 = 0xFFD7
)

// Descriptor6 is the 6-byte 80286 LOADALL segment descriptor cache entry:
// a 24-bit base, a packed access byte (4-bit type, S bit, 2-bit DPL, P
// bit), and a 16-bit limit (spec.md §3).
type Descriptor6 struct {
	Base   uint32 // low 24 bits significant
	Type   uint8  // 4 bits
	S      bool
	DPL    uint8 // 2 bits
	Present bool
	Limit  uint16
}

func (d Descriptor6) access() uint8 {
	var b uint8
	b = d.Type & 0x0F
	if d.S {
		b |= 1 << 4
	}
	b |= (d.DPL & 0x03) << 5
	if d.Present {
		b |= 1 << 7
	}
	return b
}

func descriptorFromAccess(access uint8) (typ uint8, s bool, dpl uint8, present bool) {
	typ = access & 0x0F
	s = access&0x10 != 0
	dpl = (access >> 5) & 0x03
	present = access&0x80 != 0
	return
}

func writeDescriptor6(buf []byte, d Descriptor6) {
	buf[0] = byte(d.Base)
	buf[1] = byte(d.Base >> 8)
	buf[2] = byte(d.Base >> 16)
	buf[3] = d.access()
	wire.PutU16(buf[4:6], d.Limit)
}

func parseDescriptor6(buf []byte) Descriptor6 {
	base := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
	typ, s, dpl, present := descriptorFromAccess(buf[3])
	return Descriptor6{Base: base, Type: typ, S: s, DPL: dpl, Present: present, Limit: wire.U16(buf[4:6])}
}

// collinsAccessDefault is the default access-byte template value used by
// the Collins' LOADALL documentation this descriptor cache default is
// drawn from (spec.md §3): present, DPL 0, code/data segment, type 2
// (read/write data).
const collinsAccessDefault uint8 = 0x92

// V2Descriptors holds the eight 6-byte descriptor cache entries, in wire
// order ES,CS,SS,DS,GDT,LDT,IDT,TSS.
type V2Descriptors struct {
	ES, CS, SS, DS, GDT, LDT, IDT, TSS Descriptor6
}

// V2 is the 80286 LOADALL register set (102 bytes). Field order follows
// the real LOADALL memory image (spec.md §3;
// original_source/crates/ard808x_cpu/src/registers.rs): two reserved
// words, MSW, eight more reserved words, TR, then FLAGS onward.
type V2 struct {
	Reserved0 [2]uint16
	MSW       uint16
	Reserved1 [8]uint16
	TR        uint16
	Flags    uint16
	IP       uint16
	LDTSel   uint16
	DS, SS, CS, ES uint16 // segment selectors
	DI, SI, BP, SP, BX, DX, CX, AX uint16
	Descriptors V2Descriptors
}

// ParseV2 decodes a 102-byte V2 wire payload.
func ParseV2(buf []byte) V2 {
	var v V2
	off := 0
	for i := range v.Reserved0 {
		v.Reserved0[i] = wire.U16(buf[off : off+2])
		off += 2
	}
	v.MSW = wire.U16(buf[off : off+2])
	off += 2
	for i := range v.Reserved1 {
		v.Reserved1[i] = wire.U16(buf[off : off+2])
		off += 2
	}
	v.TR = wire.U16(buf[off : off+2])
	off += 2
	v.Flags = wire.U16(buf[off : off+2])
	off += 2
	v.IP = wire.U16(buf[off : off+2])
	off += 2
	v.LDTSel = wire.U16(buf[off : off+2])
	off += 2
	v.DS = wire.U16(buf[off : off+2])
	off += 2
	v.SS = wire.U16(buf[off : off+2])
	off += 2
	v.CS = wire.U16(buf[off : off+2])
	off += 2
	v.ES = wire.U16(buf[off : off+2])
	off += 2
	v.DI = wire.U16(buf[off : off+2])
	off += 2
	v.SI = wire.U16(buf[off : off+2])
	off += 2
	v.BP = wire.U16(buf[off : off+2])
	off += 2
	v.SP = wire.U16(buf[off : off+2])
	off += 2
	v.BX = wire.U16(buf[off : off+2])
	off += 2
	v.DX = wire.U16(buf[off : off+2])
	off += 2
	v.CX = wire.U16(buf[off : off+2])
	off += 2
	v.AX = wire.U16(buf[off : off+2])
	off += 2

	descs := [8]*Descriptor6{&v.Descriptors.ES, &v.Descriptors.CS, &v.Descriptors.SS, &v.Descriptors.DS,
		&v.Descriptors.GDT, &v.Descriptors.LDT, &v.Descriptors.IDT, &v.Descriptors.TSS}
	for _, d := range descs {
		*d = parseDescriptor6(buf[off : off+6])
		off += 6
	}
	return v
}

// Serialize writes the 102-byte V2 payload in wire order.
func (v V2) Serialize() []byte {
	buf := make([]byte, SizeV2)
	off := 0
	put := func(val uint16) {
		wire.PutU16(buf[off:off+2], val)
		off += 2
	}
	for _, r := range v.Reserved0 {
		put(r)
	}
	put(v.MSW)
	for _, r := range v.Reserved1 {
		put(r)
	}
	put(v.TR)
	put(v.Flags)
	put(v.IP)
	put(v.LDTSel)
	put(v.DS)
	put(v.SS)
	put(v.CS)
	put(v.ES)
	put(v.DI)
	put(v.SI)
	put(v.BP)
	put(v.SP)
	put(v.BX)
	put(v.DX)
	put(v.CX)
	put(v.AX)

	descs := []Descriptor6{v.Descriptors.ES, v.Descriptors.CS, v.Descriptors.SS, v.Descriptors.DS,
		v.Descriptors.GDT, v.Descriptors.LDT, v.Descriptors.IDT, v.Descriptors.TSS}
	for _, d := range descs {
		writeDescriptor6(buf[off:off+6], d)
		off += 6
	}
	return buf
}

// CodeAddress computes the flat CS:IP address.
func (v V2) CodeAddress() uint32 { return uint32(v.CS)<<4 + uint32(v.IP) }

// RewindIP subtracts adjust from IP, wrapping at 16 bits.
func (v *V2) RewindIP(adjust uint32) { v.IP = uint16(uint32(v.IP) - adjust) }

// NormalizeDescriptors forces each segment descriptor's base to
// selector<<4 and limit to 0xFFFF, emulating real-mode semantics
// (spec.md §3).
func (v *V2) NormalizeDescriptors() {
	v.Descriptors.ES = Descriptor6{Base: uint32(v.ES) << 4, Type: v.Descriptors.ES.Type, S: true, DPL: 0, Present: true, Limit: 0xFFFF}
	v.Descriptors.CS = Descriptor6{Base: uint32(v.CS) << 4, Type: v.Descriptors.CS.Type, S: true, DPL: 0, Present: true, Limit: 0xFFFF}
	v.Descriptors.SS = Descriptor6{Base: uint32(v.SS) << 4, Type: v.Descriptors.SS.Type, S: true, DPL: 0, Present: true, Limit: 0xFFFF}
	v.Descriptors.DS = Descriptor6{Base: uint32(v.DS) << 4, Type: v.Descriptors.DS.Type, S: true, DPL: 0, Present: true, Limit: 0xFFFF}
}

// MaskFlags applies the V2 reserved-bit masks to Flags.
func (v *V2) MaskFlags() {
	v.Flags = (v.Flags | V2FlagsReservedSetMask) & V2FlagsReservedClearMask
}

// DefaultDescriptor returns a descriptor populated from the Collins'
// LOADALL access-byte template default (spec.md §3).
func DefaultDescriptor(base uint32, limit uint16) Descriptor6 {
	typ, s, dpl, present := descriptorFromAccess(collinsAccessDefault)
	return Descriptor6{Base: base, Type: typ, S: s, DPL: dpl, Present: present, Limit: limit}
}
