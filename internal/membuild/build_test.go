package membuild

import (
	"testing"

	"github.com/ardx86/testgen/internal/cycle"
)

func TestPlantPadsToQueueCapacity(t *testing.T) {
	m := Plant([]byte{0x90, 0xF4}, 0x1000, 6)
	if m.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", m.Len())
	}
	entries := m.Entries()
	if entries[0].Addr != 0x1000 || entries[0].Value != 0x90 {
		t.Fatalf("entry 0 = %+v", entries[0])
	}
	if entries[2].Value != NopOpcode {
		t.Fatalf("padding byte = %02X, want NOP", entries[2].Value)
	}
}

func TestBuildMemReadEntersInitialState(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpMemRead, Addr: 0x2000, Data: 0x0042}, // 8-bit low read
	}
	res, err := Build([]byte{0x90}, 0x1000, 1, ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	v, ok := res.Initial.Get(0x2000)
	if !ok || v != 0x42 {
		t.Fatalf("initial[0x2000] = %v,%v want 0x42,true", v, ok)
	}
	if len(res.Delta) != 0 {
		t.Fatalf("expected empty delta, got %+v", res.Delta)
	}
}

func TestBuildMemWriteProducesDelta(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpMemWrite, Addr: 0x2000, Data: 0x0055}, // 8-bit low write
	}
	res, err := Build([]byte{0x90}, 0x1000, 1, ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Initial.Has(0x2000) {
		t.Fatalf("write-only address should not appear in initial state")
	}
	v, ok := res.Final.Get(0x2000)
	if !ok || v != 0x55 {
		t.Fatalf("final[0x2000] = %v,%v want 0x55,true", v, ok)
	}
	if len(res.Delta) != 1 || res.Delta[0].Addr != 0x2000 || res.Delta[0].Value != 0x55 {
		t.Fatalf("delta = %+v", res.Delta)
	}
}

func TestBuildReadAfterWriteDoesNotPolluteInitial(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpMemWrite, Addr: 0x2000, Data: 0x0099},
		{OpType: cycle.OpMemRead, Addr: 0x2000, Data: 0x0099},
	}
	res, err := Build([]byte{0x90}, 0x1000, 1, ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Initial.Has(0x2000) {
		t.Fatalf("address written before any read should not enter initial state")
	}
}

func TestBuildCodeReadValidatesPlantedByte(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpCodeRead, Addr: 0x1000, Data: 0x0090},
	}
	_, err := Build([]byte{0x90}, 0x1000, 1, ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestBuildCodeReadMismatchFails(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpCodeRead, Addr: 0x1000, Data: 0x00AA},
	}
	_, err := Build([]byte{0x90}, 0x1000, 1, ops)
	if err == nil {
		t.Fatal("expected error on planted-byte mismatch")
	}
}

func TestBuildSelfModifyingFetchRecordsObservedByteAsInitial(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpMemWrite, Addr: 0x2000, Data: 0x00CD},
		{OpType: cycle.OpCodeRead, Addr: 0x2000, Data: 0x00CD},
	}
	res, err := Build([]byte{0x90}, 0x1000, 1, ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	v, ok := res.Initial.Get(0x2000)
	if !ok || v != 0xCD {
		t.Fatalf("initial[0x2000] = %v,%v want 0xCD,true (self-modifying fetch)", v, ok)
	}
	if len(res.Delta) != 0 {
		t.Fatalf("expected no delta once initial absorbs the observed fetch, got %+v", res.Delta)
	}
}

func TestBuildCodeReadOutsidePlantedEntersInitial(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpCodeRead, Addr: 0x1001, Data: 0x9000, BHE: true},
	}
	res, err := Build([]byte{0x90}, 0x1000, 1, ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	v, ok := res.Initial.Get(0x1001)
	if !ok || v != 0x90 {
		t.Fatalf("initial[0x1001] = %v,%v want 0x90,true (subsequent fetch)", v, ok)
	}
}

func TestBuildSixteenBitWriteTouchesBothBytes(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpMemWrite, Addr: 0x3000, Data: 0x1234, BHE: true},
	}
	res, err := Build(nil, 0x1000, 0, ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	lo, ok := res.Final.Get(0x3000)
	if !ok || lo != 0x34 {
		t.Fatalf("final[0x3000] = %v,%v want 0x34,true", lo, ok)
	}
	hi, ok := res.Final.Get(0x3001)
	if !ok || hi != 0x12 {
		t.Fatalf("final[0x3001] = %v,%v want 0x12,true", hi, ok)
	}
}
