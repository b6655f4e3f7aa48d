package driver

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ardx86/testgen/internal/cpuid"
	"github.com/ardx86/testgen/internal/except"
	"github.com/ardx86/testgen/internal/registers"
	"github.com/ardx86/testgen/internal/synth"
	"github.com/ardx86/testgen/internal/wire"
)

// scriptedPort replays a fixed sequence of read responses, mirroring
// orchestrator's test fake: each ReadFull call consumes exactly one
// script entry, matching wire.Client's split response/result-byte reads.
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
	return copy(b, chunk), nil
}

func okReply() []byte { return []byte{1} }

func cycleHaltReply() []byte {
	buf := make([]byte, 11)
	buf[1] = 3 // StateBits: T-state field -> T3-ish, bus state bits -> HALT (3)
	buf[2] = 3
	buf[4] = 0xFF // all command bits idle
	return buf
}

func TestGenerateTestRunsOneAttemptToCompletion(t *testing.T) {
	port := &scriptedPort{reads: [][]byte{
		okReply(),        // Reset
		okReply(),        // Load
		cycleHaltReply(), // CycleStep data (HALT)
		okReply(),        // CycleStep result byte
		okReply(),        // Finalize (on HALT) result byte
		{byte(wire.RegSetV1)}, // Store type byte
		okReply(),             // Store type-byte result
		make([]byte, registers.SizeV1), // Store payload
		okReply(),                      // Store payload result
	}}
	client := wire.NewClient(port)

	var trace strings.Builder
	opts := Options{
		Family:         cpuid.Intel8088,
		FileSeed:       0x1234,
		TestNum:        0,
		TestRetry:      1,
		MaxGen:         1,
		SynthConfig:    synth.DefaultConfig(),
		RegisterPolicy: registers.DefaultPolicy(),
		AddressRange:   [2]uint32{0, 0xFFFFFFFF},
		Opcode:         0x90,
		NamePrefix:     "NOP",
		ExceptionOrdering: except.PushFirst,
		Trace:          &trace,
	}

	test, err := GenerateTest(client, opts)
	if err != nil {
		t.Fatalf("GenerateTest: %v", err)
	}
	if test.Name != "NOP" {
		t.Fatalf("Name = %q, want NOP (no exception detected)", test.Name)
	}
	if len(test.Final.Regs) != registers.SizeV1 {
		t.Fatalf("len(Final.Regs) = %d, want %d", len(test.Final.Regs), registers.SizeV1)
	}
	if trace.Len() == 0 {
		t.Fatal("expected trace output")
	}
}

func TestGenerateTestReturnsErrExhaustedOnRepeatedFailure(t *testing.T) {
	port := &scriptedPort{reads: [][]byte{}} // every ReadFull fails immediately
	client := wire.NewClient(port)

	opts := Options{
		Family:         cpuid.Intel8088,
		FileSeed:       1,
		TestNum:        0,
		TestRetry:      2,
		MaxGen:         2,
		SynthConfig:    synth.DefaultConfig(),
		RegisterPolicy: registers.DefaultPolicy(),
		AddressRange:   [2]uint32{0, 0xFFFFFFFF},
		Opcode:         0x90,
		ExceptionOrdering: except.PushFirst,
	}

	_, err := GenerateTest(client, opts)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}
