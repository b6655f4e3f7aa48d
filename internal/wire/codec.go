package wire

import "encoding/binary"

// PutU16 writes v little-endian into buf[0:2].
func PutU16(buf []byte, v uint16) { binary.LittleEndian.PutUint16(buf, v) }

// PutU32 writes v little-endian into buf[0:4].
func PutU32(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }

// U16 reads a little-endian uint16 from buf[0:2].
func U16(buf []byte) uint16 { return binary.LittleEndian.Uint16(buf) }

// U32 reads a little-endian uint32 from buf[0:4].
func U32(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf) }

// AppendU16 appends v little-endian to buf.
func AppendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	PutU16(tmp[:], v)
	return append(buf, tmp[:]...)
}

// AppendU32 appends v little-endian to buf.
func AppendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	PutU32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// ResultOK reports whether a raw result byte's LSB indicates success.
func ResultOK(b byte) bool { return b&0x01 == 1 }
