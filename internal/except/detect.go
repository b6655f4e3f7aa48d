// Package except detects whether a recorded bus-op trace shows the CPU
// taking a hardware exception mid-instruction, from the trace shape
// alone (spec.md §4.6): pre-286 parts have no architectural fault
// signal, so the only evidence is the interrupt-frame pushes and the
// IVT descriptor fetch the microcode performs.
package except

import "github.com/ardx86/testgen/internal/cycle"

// IVTLimit bounds the real-mode interrupt vector table: an IVT fetch
// address is always below this and 4-byte aligned.
const IVTLimit = 0x1024

// Ordering distinguishes which half of the exception entry sequence a
// family performs first: cmd/testgen selects PushFirst for the NEC
// V20/V30 and ReadFirst for every other family.
type Ordering uint8

const (
	// ReadFirst: the CPU fetches the IVT descriptor, then pushes the
	// interrupt frame (flags/CS/IP).
	ReadFirst Ordering = iota
	// PushFirst: the CPU pushes the interrupt frame, then fetches the
	// IVT descriptor.
	PushFirst
)

// Result reports a detected exception entry sequence.
type Result struct {
	Detected      bool
	ExceptionNum  uint8
	VectorAddr    uint32
	FrameStart    int // index into ops of the first push/read of the sequence
	FrameLen      int
}

// Detect scans ops for an exception-entry sequence under the given
// family ordering and stack alignment (spec.md §4.6):
//
//   - A stack-frame push is 3 consecutive MemWrites (word-aligned SP) or
//     6 consecutive MemWrites (odd/byte-granular SP, each word split into
//     two byte writes by the bus).
//   - An IVT descriptor fetch is 2 consecutive MemReads at an address
//     below IVTLimit, 4-byte aligned; exception number is addr/4.
//
// The two halves must appear adjacently in the order Ordering specifies.
// Detect returns the first match found; it does not search for multiple
// overlapping candidates.
func Detect(ops []cycle.BusOp, ord Ordering) Result {
	for i := range ops {
		pushLen, pushOK := matchPush(ops, i)
		if !pushOK {
			continue
		}
		readStart := i + pushLen
		vec, readLen, readOK := matchVectorRead(ops, readStart)
		if ord == PushFirst && readOK {
			return Result{Detected: true, ExceptionNum: uint8(vec / 4), VectorAddr: vec, FrameStart: i, FrameLen: pushLen + readLen}
		}
	}
	for i := range ops {
		vec, readLen, readOK := matchVectorRead(ops, i)
		if !readOK {
			continue
		}
		pushStart := i + readLen
		pushLen, pushOK := matchPush(ops, pushStart)
		if ord == ReadFirst && pushOK {
			return Result{Detected: true, ExceptionNum: uint8(vec / 4), VectorAddr: vec, FrameStart: i, FrameLen: readLen + pushLen}
		}
	}
	return Result{}
}

// matchPush reports whether ops[start:] begins with a stack-frame push:
// 3 consecutive word-granular MemWrites, or 6 consecutive byte-granular
// MemWrites (odd SP splits every word push into two bus cycles).
func matchPush(ops []cycle.BusOp, start int) (int, bool) {
	if run := consecutiveWrites(ops, start); run >= 6 {
		return 6, true
	} else if run >= 3 {
		return 3, true
	}
	return 0, false
}

func consecutiveWrites(ops []cycle.BusOp, start int) int {
	n := 0
	for i := start; i < len(ops) && ops[i].OpType == cycle.OpMemWrite; i++ {
		n++
	}
	return n
}

// matchVectorRead reports whether ops[start:] begins with a 2-cycle IVT
// descriptor fetch: consecutive MemReads at an address below IVTLimit,
// 4-byte aligned.
func matchVectorRead(ops []cycle.BusOp, start int) (uint32, int, bool) {
	if start+1 >= len(ops) {
		return 0, 0, false
	}
	a, b := ops[start], ops[start+1]
	if a.OpType != cycle.OpMemRead || b.OpType != cycle.OpMemRead {
		return 0, 0, false
	}
	if a.Addr >= IVTLimit || a.Addr%4 != 0 {
		return 0, 0, false
	}
	if b.Addr != a.Addr+2 {
		return 0, 0, false
	}
	return a.Addr, 2, true
}
