package orchestrator

import (
	"bytes"
	"testing"

	"github.com/ardx86/testgen/internal/cpuid"
	"github.com/ardx86/testgen/internal/membuild"
	"github.com/ardx86/testgen/internal/preload"
	"github.com/ardx86/testgen/internal/wire"
)

// scriptedPort replays a fixed sequence of read responses regardless of
// what is written, enough to drive wire.Client through a canned cycle
// sequence without real hardware.
type scriptedPort struct {
	reads [][]byte
	next  int
}

func (p *scriptedPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *scriptedPort) DiscardInput() error          { return nil }
func (p *scriptedPort) ReadFull(b []byte) (int, error) {
	if p.next >= len(p.reads) {
		return 0, bytes.ErrTooLarge
	}
	chunk := p.reads[p.next]
	p.next++
	n := copy(b, chunk)
	return n, nil
}

// cycleReply builds the 11-byte GET_CYCLE_STATE payload (without the
// trailing result byte, which wire.Client reads as a separate ReadFull).
func cycleReply(programState, stateBits, statusBits, ctrlBits, cmdBits byte, addr uint32, data uint16) []byte {
	buf := make([]byte, 11)
	buf[0] = programState
	buf[1] = stateBits
	buf[2] = statusBits
	buf[3] = ctrlBits
	buf[4] = cmdBits
	buf[5] = byte(addr)
	buf[6] = byte(addr >> 8)
	buf[7] = byte(addr >> 16)
	buf[8] = byte(addr >> 24)
	buf[9] = byte(data)
	buf[10] = byte(data >> 8)
	return buf
}

func okReply() []byte { return []byte{1} }

func TestRunDetectsHaltAndFinalizes(t *testing.T) {
	const cmdBitsIdle = 0xFF // MRDC/AMWC/MWTC/IORC/AIOWC/IOWC/INTA/BHE all deasserted
	port := &scriptedPort{reads: [][]byte{
		cycleReply(0, 3, 3, 0, cmdBitsIdle, 0xFF000, 0), // bus state 3 = HALT
		okReply(),                                       // GET_CYCLE_STATE result byte
		okReply(),                                       // Finalize() result byte
	}}
	client := wire.NewClient(port)
	mem := membuild.NewMemSet()
	code := preload.NewCodeStream(nil)

	res, err := Run(client, mem, code, Options{Family: cpuid.Intel8088, ProgramStart: 0xFF000, ProgramEnd: 0xFF010})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Halted {
		t.Fatal("expected Halted=true")
	}
	if len(res.CycleLog) != 1 {
		t.Fatalf("len(CycleLog) = %d, want 1", len(res.CycleLog))
	}
	if res.BusStates[0].String() != "HALT" {
		t.Fatalf("BusStates[0] = %v, want HALT", res.BusStates[0])
	}
}

func TestTagForClassifiesProgramVsFinalize(t *testing.T) {
	opts := Options{ProgramStart: 0x100, ProgramEnd: 0x110}
	if tag := tagFor(0x105, RunProgram, opts); tag.String() != "Program" {
		t.Fatalf("in-bounds fetch tagged %v, want Program", tag)
	}
	if tag := tagFor(0x200, RunProgram, opts); tag.String() != "Finalize" {
		t.Fatalf("out-of-bounds fetch tagged %v, want Finalize", tag)
	}
	if tag := tagFor(0x000, RunPreload, opts); tag.String() != "Preload" {
		t.Fatalf("preload fetch tagged %v, want Preload", tag)
	}
}
