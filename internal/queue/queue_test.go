package queue

import (
	"reflect"
	"testing"

	"github.com/ardx86/testgen/internal/cycle"
)

func TestPushEightHighPushesOnlyHighByte(t *testing.T) {
	q := New(6)
	q.Push(0xABCD, cycle.WidthEightHigh, TagProgram, 0x100)
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
	if got := q.Bytes(); !reflect.DeepEqual(got, []byte{0xAB}) {
		t.Fatalf("bytes = %v, want [AB]", got)
	}
}

func TestPushSixteenPushesLowThenHigh(t *testing.T) {
	q := New(6)
	q.Push(0xABCD, cycle.WidthSixteen, TagProgram, 0x100)
	if got := q.Bytes(); !reflect.DeepEqual(got, []byte{0xCD, 0xAB}) {
		t.Fatalf("bytes = %v, want [CD AB]", got)
	}
}

func TestQueueNeverExceedsCapacity(t *testing.T) {
	q := New(4)
	for i := 0; i < 10; i++ {
		q.Push(0x1122, cycle.WidthSixteen, TagProgram, uint32(i*2))
	}
	if q.Len() > 4 {
		t.Fatalf("len = %d, exceeds capacity 4", q.Len())
	}
}

func TestFlushEmptiesInOneStep(t *testing.T) {
	q := New(6)
	q.Push(0x1122, cycle.WidthSixteen, TagProgram, 0)
	if q.Len() == 0 {
		t.Fatal("expected nonzero length before flush")
	}
	q.Flush()
	if q.Len() != 0 {
		t.Fatalf("len after flush = %d, want 0", q.Len())
	}
}

func TestPopOrdering(t *testing.T) {
	q := New(6)
	q.Push(0x1122, cycle.WidthSixteen, TagProgram, 0x10)
	first, ok := q.Pop()
	if !ok || first.Byte != 0x22 {
		t.Fatalf("first pop = %+v, want byte 0x22", first)
	}
	second, ok := q.Pop()
	if !ok || second.Byte != 0x11 {
		t.Fatalf("second pop = %+v, want byte 0x11", second)
	}
}
