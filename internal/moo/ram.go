package moo

import (
	"encoding/binary"

	"github.com/ardx86/testgen/internal/membuild"
)

// RamEntry is one (address, byte) observation, matching the original
// crate's MooRamEntry layout: a little-endian u32 address followed by a
// single value byte.
type RamEntry struct {
	Address uint32
	Value   byte
}

// encodeRAM serializes entries as a u32 count followed by 5-byte records,
// in the given order (insertion order for an initial state, delta order
// for a final state).
func encodeRAM(entries []membuild.Entry) []byte {
	buf := make([]byte, 4+5*len(entries))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	off := 4
	for _, e := range entries {
		binary.LittleEndian.PutUint32(buf[off:off+4], e.Addr)
		buf[off+4] = e.Value
		off += 5
	}
	return buf
}

// decodeRAM parses a RAM chunk payload back into entries.
func decodeRAM(payload []byte) ([]RamEntry, error) {
	if len(payload) < 4 {
		return nil, errShort("RAM", 4, len(payload))
	}
	count := binary.LittleEndian.Uint32(payload[0:4])
	entries := make([]RamEntry, 0, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+5 > len(payload) {
			return nil, errShort("RAM entry", off+5, len(payload))
		}
		entries = append(entries, RamEntry{
			Address: binary.LittleEndian.Uint32(payload[off : off+4]),
			Value:   payload[off+4],
		})
		off += 5
	}
	return entries, nil
}
