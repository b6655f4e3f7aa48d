// Package moo implements the MOO chunked binary test-file format
// (spec.md §4.7): a file-header chunk followed by one TEST chunk per
// generated instruction test, each holding nested NAME/BYTS/INIT/FINA/
// CYCL/HASH chunks (INIT and FINA carry REGS/RGS2/RAM and, optionally,
// QUEU sub-chunks). Every chunk is a
// 4-byte magic tag plus a little-endian u32 payload length, matching the
// original Rust crate's binrw layout byte-for-byte.
package moo

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is a 4-byte chunk tag.
type Magic [4]byte

var (
	MagicFileHeader  = Magic{'M', 'O', 'O', ' '}
	MagicTestHeader  = Magic{'T', 'E', 'S', 'T'}
	MagicName        = Magic{'N', 'A', 'M', 'E'}
	MagicBytes       = Magic{'B', 'Y', 'T', 'S'}
	MagicInitial     = Magic{'I', 'N', 'I', 'T'}
	MagicFinal       = Magic{'F', 'I', 'N', 'A'}
	MagicRegisters16 = Magic{'R', 'E', 'G', 'S'}
	MagicXRegisters  = Magic{'R', 'G', 'S', '2'}
	MagicRAM         = Magic{'R', 'A', 'M', ' '}
	MagicQueueState  = Magic{'Q', 'U', 'E', 'U'}
	MagicCycleStates = Magic{'C', 'Y', 'C', 'L'}
	MagicHash        = Magic{'H', 'A', 'S', 'H'}
)

func (m Magic) String() string { return string(m[:]) }

// writeChunk emits magic, the payload's length as a little-endian u32,
// then the payload itself.
func writeChunk(w io.Writer, magic Magic, payload []byte) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readChunk reads one chunk header and its payload.
func readChunk(r io.Reader) (Magic, []byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Magic{}, nil, err
	}
	var magic Magic
	copy(magic[:], header[:4])
	size := binary.LittleEndian.Uint32(header[4:])
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Magic{}, nil, fmt.Errorf("moo: reading %s payload (%d bytes): %w", magic, size, err)
	}
	return magic, payload, nil
}

// expectChunk reads one chunk and verifies its magic.
func expectChunk(r io.Reader, want Magic) ([]byte, error) {
	magic, payload, err := readChunk(r)
	if err != nil {
		return nil, err
	}
	if magic != want {
		return nil, fmt.Errorf("moo: expected %s chunk, got %s", want, magic)
	}
	return payload, nil
}
