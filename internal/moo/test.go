package moo

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ardx86/testgen/internal/membuild"
)

// RegisterVersion selects which register chunk magic a state uses:
// MagicRegisters16 ("REGS") for V1, MagicXRegisters ("RGS2") for V2/V3
// (spec.md §4.7).
type RegisterVersion uint8

const (
	RegistersV1 RegisterVersion = iota
	RegistersWide
)

// State is one INIT or FINA payload: a register snapshot, the prefetch
// queue contents (omitted entirely when empty, per spec.md §9), and the
// observed RAM entries in insertion order.
type State struct {
	RegVersion RegisterVersion
	Regs       []byte // Set.Serialize() output
	Queue      []byte
	RAM        []membuild.Entry
}

func (s State) encode() []byte {
	var buf bytes.Buffer
	regsMagic := MagicRegisters16
	if s.RegVersion == RegistersWide {
		regsMagic = MagicXRegisters
	}
	writeChunk(&buf, regsMagic, s.Regs)
	if len(s.Queue) > 0 {
		writeChunk(&buf, MagicQueueState, s.Queue)
	}
	writeChunk(&buf, MagicRAM, encodeRAM(s.RAM))
	return buf.Bytes()
}

// Test is one synthesized-instruction test case.
type Test struct {
	Index   uint32
	Name    string
	Bytes   []byte
	Initial State
	Final   State
	Cycles  []CycleRecord
}

func (t Test) encodeBody() []byte {
	var buf bytes.Buffer

	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], t.Index)
	buf.Write(idx[:])

	var nameBuf bytes.Buffer
	var nameLen [4]byte
	binary.LittleEndian.PutUint32(nameLen[:], uint32(len(t.Name)))
	nameBuf.Write(nameLen[:])
	nameBuf.WriteString(t.Name)
	writeChunk(&buf, MagicName, nameBuf.Bytes())

	var bytesBuf bytes.Buffer
	var bytesLen [4]byte
	binary.LittleEndian.PutUint32(bytesLen[:], uint32(len(t.Bytes)))
	bytesBuf.Write(bytesLen[:])
	bytesBuf.Write(t.Bytes)
	writeChunk(&buf, MagicBytes, bytesBuf.Bytes())

	writeChunk(&buf, MagicInitial, t.Initial.encode())
	writeChunk(&buf, MagicFinal, t.Final.encode())
	writeChunk(&buf, MagicCycleStates, encodeCycles(t.Cycles))

	return buf.Bytes()
}

// Encode serializes t as a complete TEST chunk, including the trailing
// HASH chunk computed over everything that precedes it (spec.md §4.7).
func (t Test) Encode() []byte {
	body := t.encodeBody()
	sum := sha1.Sum(body)

	var withHash bytes.Buffer
	withHash.Write(body)
	writeChunk(&withHash, MagicHash, sum[:])

	var out bytes.Buffer
	writeChunk(&out, MagicTestHeader, withHash.Bytes())
	return out.Bytes()
}

// File is a complete MOO file: header plus test cases.
type File struct {
	Version   byte
	CPUName   [4]byte
	Tests     []Test
}

// WriteTo serializes the file header and every test to w.
func (f File) WriteTo(w io.Writer) (int64, error) {
	counter := &countingWriter{w: w}

	header := make([]byte, 1+3+4+4)
	header[0] = f.Version
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(f.Tests)))
	copy(header[8:12], f.CPUName[:])
	if err := writeChunk(counter, MagicFileHeader, header); err != nil {
		return counter.n, err
	}

	for _, t := range f.Tests {
		if _, err := counter.Write(t.Encode()); err != nil {
			return counter.n, err
		}
	}
	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ReadFileHeader reads and validates the leading MOO file-header chunk,
// returning the declared test count and CPU name.
func ReadFileHeader(r io.Reader) (version byte, testCount uint32, cpuName [4]byte, err error) {
	payload, err := expectChunk(r, MagicFileHeader)
	if err != nil {
		return 0, 0, cpuName, err
	}
	if len(payload) < 12 {
		return 0, 0, cpuName, errShort("MOO header", 12, len(payload))
	}
	version = payload[0]
	testCount = binary.LittleEndian.Uint32(payload[4:8])
	copy(cpuName[:], payload[8:12])
	return version, testCount, cpuName, nil
}

// ReadFile reads a complete MOO file: the header plus every declared test.
func ReadFile(r io.Reader) (File, error) {
	version, testCount, cpuName, err := ReadFileHeader(r)
	if err != nil {
		return File{}, err
	}
	f := File{Version: version, CPUName: cpuName, Tests: make([]Test, 0, testCount)}
	for i := uint32(0); i < testCount; i++ {
		t, err := ReadTest(r)
		if err != nil {
			return File{}, fmt.Errorf("moo: reading test %d/%d: %w", i, testCount, err)
		}
		f.Tests = append(f.Tests, t)
	}
	return f, nil
}

// ReadTest reads one TEST chunk and parses its sub-chunks, validating the
// trailing HASH against the preceding bytes.
func ReadTest(r io.Reader) (Test, error) {
	body, err := expectChunk(r, MagicTestHeader)
	if err != nil {
		return Test{}, err
	}
	return parseTestBody(body)
}

func parseTestBody(body []byte) (Test, error) {
	br := bytes.NewReader(body)
	if br.Len() < 4 {
		return Test{}, errShort("TEST index", 4, br.Len())
	}
	var idxBuf [4]byte
	if _, err := io.ReadFull(br, idxBuf[:]); err != nil {
		return Test{}, fmt.Errorf("moo: reading test index: %w", err)
	}
	index := binary.LittleEndian.Uint32(idxBuf[:])

	namePayload, err := expectChunk(br, MagicName)
	if err != nil {
		return Test{}, err
	}
	name, err := decodeLenPrefixedString(namePayload)
	if err != nil {
		return Test{}, err
	}

	bytsPayload, err := expectChunk(br, MagicBytes)
	if err != nil {
		return Test{}, err
	}
	instBytes, err := decodeLenPrefixedBytes(bytsPayload)
	if err != nil {
		return Test{}, err
	}

	initPayload, err := expectChunk(br, MagicInitial)
	if err != nil {
		return Test{}, err
	}
	initial, err := decodeState(initPayload)
	if err != nil {
		return Test{}, err
	}

	finaPayload, err := expectChunk(br, MagicFinal)
	if err != nil {
		return Test{}, err
	}
	final, err := decodeState(finaPayload)
	if err != nil {
		return Test{}, err
	}

	cyclPayload, err := expectChunk(br, MagicCycleStates)
	if err != nil {
		return Test{}, err
	}
	cycles, err := decodeCycles(cyclPayload)
	if err != nil {
		return Test{}, err
	}

	hashEnd := len(body) - br.Len()
	hashPayload, err := expectChunk(br, MagicHash)
	if err != nil {
		return Test{}, err
	}
	if len(hashPayload) != sha1.Size {
		return Test{}, errShort("HASH", sha1.Size, len(hashPayload))
	}
	want := sha1.Sum(body[:hashEnd])
	if !bytes.Equal(want[:], hashPayload) {
		return Test{}, fmt.Errorf("moo: test %q: hash mismatch", name)
	}

	return Test{
		Index: index,
		Name:  name,
		Bytes: instBytes,
		Initial: State{
			RegVersion: regVersionOf(initial.regsMagic),
			Regs:       initial.regs,
			Queue:      initial.queue,
			RAM:        ramEntriesToMembuild(initial.ram),
		},
		Final: State{
			RegVersion: regVersionOf(final.regsMagic),
			Regs:       final.regs,
			Queue:      final.queue,
			RAM:        ramEntriesToMembuild(final.ram),
		},
		Cycles: cycles,
	}, nil
}

func regVersionOf(magic Magic) RegisterVersion {
	if magic == MagicXRegisters {
		return RegistersWide
	}
	return RegistersV1
}

type rawState struct {
	regsMagic Magic
	regs      []byte
	queue     []byte
	ram       []RamEntry
}

func decodeState(payload []byte) (rawState, error) {
	br := bytes.NewReader(payload)
	magic, regs, err := readChunk(br)
	if err != nil {
		return rawState{}, err
	}
	if magic != MagicRegisters16 && magic != MagicXRegisters {
		return rawState{}, fmt.Errorf("moo: expected REGS or RGS2 chunk, got %s", magic)
	}

	var queue []byte
	nextMagic, nextPayload, err := readChunk(br)
	if err != nil {
		return rawState{}, err
	}
	if nextMagic == MagicQueueState {
		queue = nextPayload
		nextMagic, nextPayload, err = readChunk(br)
		if err != nil {
			return rawState{}, err
		}
	}
	if nextMagic != MagicRAM {
		return rawState{}, fmt.Errorf("moo: expected RAM chunk, got %s", nextMagic)
	}
	ram, err := decodeRAM(nextPayload)
	if err != nil {
		return rawState{}, err
	}
	return rawState{regsMagic: magic, regs: regs, queue: queue, ram: ram}, nil
}

func ramEntriesToMembuild(entries []RamEntry) []membuild.Entry {
	out := make([]membuild.Entry, len(entries))
	for i, e := range entries {
		out[i] = membuild.Entry{Addr: e.Address, Value: e.Value}
	}
	return out
}

func decodeLenPrefixedString(payload []byte) (string, error) {
	b, err := decodeLenPrefixedBytes(payload)
	return string(b), err
}

func decodeLenPrefixedBytes(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, errShort("length-prefixed field", 4, len(payload))
	}
	n := binary.LittleEndian.Uint32(payload[0:4])
	if uint32(len(payload)-4) < n {
		return nil, errShort("length-prefixed field body", int(n), len(payload)-4)
	}
	return payload[4 : 4+n], nil
}
