package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTOML = `
[test_gen]
cpu_type = "Intel80286"
seed = 66
test_count = 8
opcode_range = [136, 143]
segment_override_chance = 0.25

[test_exec]
polling_sleep = 2
test_retry = 5
max_gen = 10
`

func TestLoadParsesRecognizedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(sampleTOML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TestGen.CPUType != "Intel80286" {
		t.Fatalf("CPUType = %q, want Intel80286", cfg.TestGen.CPUType)
	}
	if cfg.TestGen.Seed != 66 {
		t.Fatalf("Seed = %d, want 66", cfg.TestGen.Seed)
	}
	if cfg.TestGen.OpcodeRange != [2]uint8{136, 143} {
		t.Fatalf("OpcodeRange = %v, want [136 143]", cfg.TestGen.OpcodeRange)
	}
	if cfg.TestExec.TestRetry != 5 || cfg.TestExec.MaxGen != 10 {
		t.Fatalf("TestExec = %+v", cfg.TestExec)
	}
}

func TestLoadRejectsUnrecognizedKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	bad := sampleTOML + "\nnot_a_real_key = 1\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unrecognized TOML key")
	}
}

func TestDefaultProducesNonZeroChances(t *testing.T) {
	d := Default()
	if d.TestGen.SegmentOverrideChance == 0 {
		t.Fatal("expected nonzero default segment override chance")
	}
	if d.TestExec.TestRetry == 0 {
		t.Fatal("expected nonzero default test retry count")
	}
}
