package except

import (
	"testing"

	"github.com/ardx86/testgen/internal/cycle"
)

func TestDetectPushFirstSequence(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpMemWrite, Addr: 0xFF}, // flags
		{OpType: cycle.OpMemWrite, Addr: 0xFD}, // CS
		{OpType: cycle.OpMemWrite, Addr: 0xFB}, // IP
		{OpType: cycle.OpMemRead, Addr: 0x0020},
		{OpType: cycle.OpMemRead, Addr: 0x0022},
	}
	res := Detect(ops, PushFirst)
	if !res.Detected {
		t.Fatal("expected exception to be detected")
	}
	if res.ExceptionNum != 8 {
		t.Fatalf("ExceptionNum = %d, want 8", res.ExceptionNum)
	}
	if res.VectorAddr != 0x0020 {
		t.Fatalf("VectorAddr = %#x, want 0x20", res.VectorAddr)
	}
}

func TestDetectReadFirstSequence(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpMemRead, Addr: 0x0000},
		{OpType: cycle.OpMemRead, Addr: 0x0002},
		{OpType: cycle.OpMemWrite, Addr: 0xFF},
		{OpType: cycle.OpMemWrite, Addr: 0xFD},
		{OpType: cycle.OpMemWrite, Addr: 0xFB},
	}
	res := Detect(ops, ReadFirst)
	if !res.Detected {
		t.Fatal("expected exception to be detected")
	}
	if res.ExceptionNum != 0 {
		t.Fatalf("ExceptionNum = %d, want 0", res.ExceptionNum)
	}
}

func TestDetectByteGranularPushOfSixWrites(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpMemWrite, Addr: 0xFF},
		{OpType: cycle.OpMemWrite, Addr: 0xFE},
		{OpType: cycle.OpMemWrite, Addr: 0xFD},
		{OpType: cycle.OpMemWrite, Addr: 0xFC},
		{OpType: cycle.OpMemWrite, Addr: 0xFB},
		{OpType: cycle.OpMemWrite, Addr: 0xFA},
		{OpType: cycle.OpMemRead, Addr: 0x0010},
		{OpType: cycle.OpMemRead, Addr: 0x0012},
	}
	res := Detect(ops, PushFirst)
	if !res.Detected || res.FrameLen != 8 {
		t.Fatalf("Detect = %+v, want FrameLen 8", res)
	}
}

func TestDetectNoMatchOnPlainTrace(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpMemRead, Addr: 0x4000},
		{OpType: cycle.OpMemWrite, Addr: 0x4002},
	}
	if res := Detect(ops, PushFirst); res.Detected {
		t.Fatalf("expected no detection, got %+v", res)
	}
}

func TestVectorReadRejectsAboveIVTLimit(t *testing.T) {
	ops := []cycle.BusOp{
		{OpType: cycle.OpMemWrite, Addr: 0xFF},
		{OpType: cycle.OpMemWrite, Addr: 0xFD},
		{OpType: cycle.OpMemWrite, Addr: 0xFB},
		{OpType: cycle.OpMemRead, Addr: 0x2000},
		{OpType: cycle.OpMemRead, Addr: 0x2002},
	}
	if res := Detect(ops, PushFirst); res.Detected {
		t.Fatalf("expected no detection for out-of-range vector read, got %+v", res)
	}
}
