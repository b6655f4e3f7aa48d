package membuild

import (
	"fmt"

	"github.com/ardx86/testgen/internal/cycle"
)

// NopOpcode pads the planted instruction region out to the prefetch
// queue's capacity, matching what a real CPU would prefetch past a short
// instruction (spec.md §4.5).
const NopOpcode = 0x90

// Result holds the reconstructed initial/final memory maps, in insertion
// order, and their delta.
type Result struct {
	Initial *MemSet
	Final   *MemSet
	// Delta holds only the final-state entries whose value differs from
	// the initial state (or that did not exist in the initial state),
	// in final-state insertion order — the minimal write set MOO's FINA
	// chunk stores.
	Delta []Entry
}

// Plant inserts instBytes at consecutive addresses starting at start,
// then pads with NopOpcode out to queueCapacity total bytes so the
// memory map always covers what the CPU could have prefetched.
func Plant(instBytes []byte, start uint32, queueCapacity int) *MemSet {
	m := NewMemSet()
	addr := start
	for _, b := range instBytes {
		m.Insert(addr, b)
		addr++
	}
	for i := len(instBytes); i < queueCapacity; i++ {
		m.Insert(addr, NopOpcode)
		addr++
	}
	return m
}

// Build reconstructs the initial and final memory maps from an ordered
// bus-op trace (spec.md §4.5):
//
//  1. The instruction bytes (plus NOP padding to queue capacity) are
//     planted into the initial map at start; planted holds the same
//     addresses/values and is never mutated, so CodeRead can keep
//     validating against the original planted byte even after a later
//     write touches that address.
//  2. Each bus op is replayed in order:
//     - MemRead: bytes not yet present are inserted into the initial map
//       at their observed value (this is how operand/data fetches
//       outside the planted instruction enter the initial state); bytes
//       already marked written are NOT touched (the read observed a
//       prior write, not the initial value).
//     - CodeRead: a fetch from a planted address must match the planted
//       byte exactly (fail the test on mismatch); a fetch from a
//       previously written, non-planted address is a self-modifying
//       fetch, and the observed (post-write) byte is recorded as the
//       initial byte too, matching what the real hardware held there
//       before this bus op; otherwise it is a subsequent fetch and is
//       inserted into the initial map like a MemRead.
//     - MemWrite: the write always lands in the final map, and the
//       address is marked written so a later read of it is not mistaken
//       for initial state.
//  3. The final map starts as a clone of the initial map with every
//     write applied on top, in order.
//  4. Delta is final-minus-initial: addresses whose final value differs
//     from initial (including addresses only final has).
func Build(instBytes []byte, start uint32, queueCapacity int, ops []cycle.BusOp) (Result, error) {
	initial := Plant(instBytes, start, queueCapacity)
	final := initial.Clone()
	planted := initial.Clone()
	written := make(map[uint32]bool)

	for _, op := range ops {
		addrs, bytes := expand(op)
		switch op.OpType {
		case cycle.OpCodeRead:
			for i, addr := range addrs {
				if want, ok := planted.Get(addr); ok {
					if bytes[i] != want {
						return Result{}, fmt.Errorf("membuild: code read at %#x observed %#02x, want planted byte %#02x", addr, bytes[i], want)
					}
					continue
				}
				if written[addr] {
					initial.Set(addr, bytes[i])
					continue
				}
				initial.Insert(addr, bytes[i])
				if !final.Has(addr) {
					final.Insert(addr, bytes[i])
				}
			}
		case cycle.OpMemRead:
			for i, addr := range addrs {
				if written[addr] {
					continue
				}
				initial.Insert(addr, bytes[i])
				if !final.Has(addr) {
					final.Insert(addr, bytes[i])
				}
			}
		case cycle.OpMemWrite:
			for i, addr := range addrs {
				written[addr] = true
				final.Set(addr, bytes[i])
			}
		case cycle.OpIoRead, cycle.OpIoWrite:
			// I/O transactions carry no memory-map state.
		default:
			return Result{}, fmt.Errorf("membuild: unknown bus op type %v", op.OpType)
		}
	}

	var delta []Entry
	for _, e := range final.Entries() {
		iv, ok := initial.Get(e.Addr)
		if !ok || iv != e.Value {
			delta = append(delta, e)
		}
	}

	return Result{Initial: initial, Final: final, Delta: delta}, nil
}

// expand splits a bus op's 16-bit data bus sample into its constituent
// (address, byte) pairs per BHE/A0 (spec.md §8 property 5): a 16-bit
// transaction touches addr and addr+1, an 8-bit-high transaction touches
// only addr (already the odd byte, taken from the high data lane), and an
// 8-bit-low transaction touches only addr. op.BHE is the asserted flag
// (true means the upper lane is valid), as cycle.State.BHE reports it.
func expand(op cycle.BusOp) ([]uint32, []byte) {
	a0 := op.Addr&1 != 0
	width := cycle.DeriveDataWidth(!op.BHE, a0)
	lo := byte(op.Data)
	hi := byte(op.Data >> 8)

	switch width {
	case cycle.WidthSixteen:
		return []uint32{op.Addr, op.Addr + 1}, []byte{lo, hi}
	case cycle.WidthEightHigh:
		return []uint32{op.Addr}, []byte{hi}
	case cycle.WidthEightLow:
		return []uint32{op.Addr}, []byte{lo}
	default:
		return nil, nil
	}
}
