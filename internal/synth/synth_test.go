package synth

import (
	"testing"

	"github.com/ardx86/testgen/internal/randgen"
)

func TestSynthesizeNOPStartsWithOpcode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SegmentOverrideChance = 0
	cfg.LockPrefixChance = 0
	rng := randgen.New(randgen.Seed(0xAAAA, 1, 0))
	inst, err := Synthesize(0x90, nil, cfg, rng, false)
	if err != nil {
		t.Fatalf("Synthesize(0x90): %v", err)
	}
	if len(inst.Bytes) == 0 {
		t.Fatal("expected nonempty instruction bytes")
	}
	if inst.Bytes[0] != 0x90 {
		t.Fatalf("first non-prefix byte = %02X, want 90", inst.Bytes[0])
	}
}

func TestSynthesizeRejectsExcludedOpcode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExcludedOpcodes[0x90] = true
	rng := randgen.New(randgen.Seed(0xAAAA, 1, 0))
	_, err := Synthesize(0x90, nil, cfg, rng, false)
	if err != ErrExcludedOpcode {
		t.Fatalf("expected ErrExcludedOpcode, got %v", err)
	}
}

func TestSynthesizeGroupOpcodeSetsExtension(t *testing.T) {
	cfg := DefaultConfig()
	rng := randgen.New(randgen.Seed(0xBBBB, 2, 0))
	ext := uint8(5)
	inst, err := Synthesize(0x80, &ext, cfg, rng, false)
	if err != nil {
		t.Fatalf("Synthesize(0x80, ext=5): %v", err)
	}
	if Reg(inst.Bytes[1]) != ext {
		t.Fatalf("reg field = %d, want %d", Reg(inst.Bytes[1]), ext)
	}
}

func TestSynthesizeHaltTerminationAppendsF4(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Termination = TerminationHalt
	rng := randgen.New(randgen.Seed(0xCCCC, 3, 0))
	inst, err := Synthesize(0x90, nil, cfg, rng, false)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if inst.Bytes[len(inst.Bytes)-1] != HaltOpcode {
		t.Fatalf("last byte = %02X, want HLT (F4)", inst.Bytes[len(inst.Bytes)-1])
	}
}

func TestModRMTableSIBDetection(t *testing.T) {
	// mod=00, rm=100 (0b100) requires SIB in 32-bit addressing.
	b := byte(0b00_000_100)
	if !ModRMTable[b].NeedsSIB {
		t.Fatalf("modrm %08b should need SIB", b)
	}
	// mod=11 (register direct) never needs SIB.
	b = byte(0b11_000_100)
	if ModRMTable[b].NeedsSIB {
		t.Fatalf("modrm %08b (register direct) should not need SIB", b)
	}
}
