// Package preload provides the per-CPU preload byte streams fed to the CPU
// during initialization, and the CodeStream feeder that presents the
// preload program or the actual test program bytes to the orchestrator's
// CODE-fetch handler (spec.md §3, §4.2).
package preload

import "github.com/ardx86/testgen/internal/cpuid"

// Intel808xProgram is the 8088/8086/V20/V30/80188/80186 preload program: four
// repetitions of STOSB (0xAA), which the orchestrator observes fetched
// before the real program and uses to pre-position DI/ES:DI in a known
// state (spec.md §4.2: "DI is also adjusted by four (±4 depending on DF)
// to undo the preload's 4x STOSB").
var Intel808xProgram = []byte{0xAA, 0xAA, 0xAA, 0xAA}

// ProgramFor returns the preload byte stream for the given family, or nil
// if that family requires no preload (the 80286/80386 LOADALL path loads
// complete CPU state directly and needs no priming program).
func ProgramFor(f cpuid.Family) []byte {
	switch f {
	case cpuid.Intel8088, cpuid.Intel8086, cpuid.NecV20, cpuid.NecV30,
		cpuid.Intel80188, cpuid.Intel80186:
		out := make([]byte, len(Intel808xProgram))
		copy(out, Intel808xProgram)
		return out
	default:
		return nil
	}
}

// DIAdjustment returns the signed DI correction needed to undo the 4x
// STOSB preload program, honoring the direction flag (DF): STOSB
// increments DI when DF=0, decrements when DF=1, so reversing it requires
// the opposite sign.
func DIAdjustment(df bool) int16 {
	if df {
		return 4
	}
	return -4
}

// CodeStream is a small buffer backing code-fetch injection: it presents
// either the preload program or the test's code bytes to CODE-fetch
// handling, strictly in order. It tracks no fetch address or data width: a
// 16-bit fetch that starts on an odd address is not split.
type CodeStream struct {
	bytes  []byte
	offset int
}

// NewCodeStream wraps a byte slice for sequential code-fetch consumption.
func NewCodeStream(bytes []byte) *CodeStream {
	return &CodeStream{bytes: bytes}
}

// Len returns the number of bytes remaining in the stream.
func (c *CodeStream) Len() int { return len(c.bytes) - c.offset }

// Exhausted reports whether every byte has been consumed.
func (c *CodeStream) Exhausted() bool { return c.offset >= len(c.bytes) }

// NextByte consumes and returns the next byte, or ok=false if exhausted.
func (c *CodeStream) NextByte() (b byte, ok bool) {
	if c.Exhausted() {
		return 0, false
	}
	b = c.bytes[c.offset]
	c.offset++
	return b, true
}

// NextWord consumes up to two bytes for a 16-bit fetch, the next two in
// stream order whatever the fetch address's parity. When only one byte
// remains it is returned alone with highValid=false.
func (c *CodeStream) NextWord() (low byte, high byte, highValid bool) {
	low, _ = c.NextByte()
	high, highValid = c.NextByte()
	return
}

// Reset rewinds the stream to its start, for retrying a test.
func (c *CodeStream) Reset() { c.offset = 0 }
