package registers

import "github.com/ardx86/testgen/internal/wire"

// FLAGS bit masks for the 8088-class (16-bit) flags register.
const (
	FlagCarry     uint16 = 1 << 0
	flagReserved1 uint16 = 1 << 1
	FlagParity    uint16 = 1 << 2
	flagReserved3 uint16 = 1 << 3
	FlagAuxCarry  uint16 = 1 << 4
	flagReserved5 uint16 = 1 << 5
	FlagZero      uint16 = 1 << 6
	FlagSign      uint16 = 1 << 7
	FlagTrap      uint16 = 1 << 8
	FlagInterrupt uint16 = 1 << 9
	FlagDirection uint16 = 1 << 10
	FlagOverflow  uint16 = 1 << 11

	// FlagsReservedSetMask is always-1 per the 8086 FLAGS layout (bit 1).
	FlagsReservedSetMask uint16 = flagReserved1
	// FlagsReservedClearMask masks off bits that are always 0 on an
	// 8088-class part (reserved bits 3 and 5).
	FlagsReservedClearMask uint16 = 0xFFD7
)

// V1 is the 8088-class register set: 14 16-bit words.
type V1 struct {
	AX, BX, CX, DX     uint16
	SS, DS, ES         uint16
	SP, BP, SI, DI     uint16
	CS, IP             uint16
	Flags              uint16
}

// ParseV1 decodes a 28-byte V1 wire payload. Field order on the wire is
// AX,BX,CX,DX,IP,CS,FLAGS,SS,SP,DS,ES,BP,SI,DI (spec.md §3).
func ParseV1(buf []byte) V1 {
	return V1{
		AX:    wire.U16(buf[0:2]),
		BX:    wire.U16(buf[2:4]),
		CX:    wire.U16(buf[4:6]),
		DX:    wire.U16(buf[6:8]),
		IP:    wire.U16(buf[8:10]),
		CS:    wire.U16(buf[10:12]),
		Flags: wire.U16(buf[12:14]),
		SS:    wire.U16(buf[14:16]),
		SP:    wire.U16(buf[16:18]),
		DS:    wire.U16(buf[18:20]),
		ES:    wire.U16(buf[20:22]),
		BP:    wire.U16(buf[22:24]),
		SI:    wire.U16(buf[24:26]),
		DI:    wire.U16(buf[26:28]),
	}
}

// Serialize writes the 28-byte V1 payload in wire order.
func (v V1) Serialize() []byte {
	buf := make([]byte, SizeV1)
	wire.PutU16(buf[0:2], v.AX)
	wire.PutU16(buf[2:4], v.BX)
	wire.PutU16(buf[4:6], v.CX)
	wire.PutU16(buf[6:8], v.DX)
	wire.PutU16(buf[8:10], v.IP)
	wire.PutU16(buf[10:12], v.CS)
	wire.PutU16(buf[12:14], v.Flags)
	wire.PutU16(buf[14:16], v.SS)
	wire.PutU16(buf[16:18], v.SP)
	wire.PutU16(buf[18:20], v.DS)
	wire.PutU16(buf[20:22], v.ES)
	wire.PutU16(buf[22:24], v.BP)
	wire.PutU16(buf[24:26], v.SI)
	wire.PutU16(buf[26:28], v.DI)
	return buf
}

// CodeAddress computes the flat CS:IP address.
func (v V1) CodeAddress() uint32 { return uint32(v.CS)<<4 + uint32(v.IP) }

// RewindIP subtracts adjust from IP, wrapping at 16 bits.
func (v *V1) RewindIP(adjust uint32) { v.IP = uint16(uint32(v.IP) - adjust) }

// NormalizeDescriptors is a no-op for V1: there is no descriptor cache,
// segments are used directly as selector<<4.
func (v *V1) NormalizeDescriptors() {}

// MaskFlags applies the reserved-bit set/clear masks to Flags (spec.md
// §3 invariant).
func (v *V1) MaskFlags() {
	v.Flags = (v.Flags | FlagsReservedSetMask) & FlagsReservedClearMask
}
