// Package orchestrator drives the live CPU through one test run's cycle
// loop: Reset→...→Execute→...→Store, servicing bus reads/writes from a
// simulated memory map in real time and detecting instruction-fetch
// completion via the prefetch queue (spec.md §4.2).
package orchestrator

import (
	"fmt"

	"github.com/ardx86/testgen/internal/cpuid"
	"github.com/ardx86/testgen/internal/cycle"
	"github.com/ardx86/testgen/internal/membuild"
	"github.com/ardx86/testgen/internal/preload"
	"github.com/ardx86/testgen/internal/queue"
	"github.com/ardx86/testgen/internal/wire"
)

// Pin indices for WritePin/ReadPin. spec.md names READY/INTR/NMI as pins
// the orchestrator drives but never assigns them wire indices; this
// mapping is this port's own reasonable assignment, not a verified
// hardware numbering.
const (
	PinREADY byte = 0
	PinINTR  byte = 1
	PinNMI   byte = 2
)

// RunState is the client-side overlay spec.md §4.2 describes separately
// from the server's program-state machine: Init→Preload→Program→Finalize,
// advanced by queue-byte tags observed at First-op boundaries.
type RunState uint8

const (
	RunInit RunState = iota
	RunPreload
	RunProgram
	RunFinalize
)

func (s RunState) String() string {
	names := [...]string{"Init", "Preload", "Program", "Finalize"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// TerminationPolicy selects how end-of-instruction is detected.
type TerminationPolicy uint8

const (
	TerminationQueue TerminationPolicy = iota
	TerminationHalt
)

// Options configures one Run invocation.
type Options struct {
	Family      cpuid.Family
	Termination TerminationPolicy

	// ProgramStart/ProgramEnd bound the test instruction's bytes within
	// the flat address space the CodeStream represents; anything the
	// queue fetches outside this range (and outside preload) is tagged
	// Finalize.
	ProgramStart uint32
	ProgramEnd   uint32

	WaitStates int // T2-asserted wait-state count, 0 disables

	IntrOnCycle uint64 // 0 disables
	NmiOnCycle  uint64 // 0 disables
	IntrAfter   int    // instructions; 0 disables

	HaltInstructionLimit int // safety valve; 0 disables

	// CycleLimit bounds the loop as a last-resort safety valve against a
	// runaway instruction that never reaches ExecuteDone/HALT.
	CycleLimit int
}

// Result is everything the caller needs to build a MOO test record:
// the observed bus-op trace (for membuild.Build) and the raw cycle log
// (for moo.CycleRecord encoding), plus bookkeeping the Store/rewind step
// needs.
type Result struct {
	BusOps           []cycle.BusOp
	CycleLog         []cycle.State
	BusStates        []cycle.BusState
	Segments         []cycle.Segment
	QueueOps         []cycle.QueueOp
	InstructionCount int
	Halted           bool
	QueueLenAtFinal  int // rewind amount: bytes still queued when Finalize fired
}

// Run executes the per-cycle algorithm until a Finalize-tagged queue byte
// is popped or the CPU enters HALT (or a configured safety limit is hit),
// servicing the bus from mem and code each tick (spec.md §4.2).
func Run(client *wire.Client, mem *membuild.MemSet, code *preload.CodeStream, opts Options) (Result, error) {
	q := queue.New(opts.Family.QueueCapacity())
	recon := cycle.NewReconstructor(opts.Family.Is286())

	var res Result
	runState := RunInit
	if preload.ProgramFor(opts.Family) != nil {
		runState = RunPreload
	} else {
		runState = RunProgram
	}

	var addrLatch uint32
	waitCounter := 0
	cycleIdx := 0
	instructionsSinceStart := 0
	intrRaised := false

	limit := opts.CycleLimit
	if limit == 0 {
		limit = 1_000_000
	}

	for i := 0; i < limit; i++ {
		reply, err := client.CycleStep(true)
		if err != nil {
			return res, fmt.Errorf("orchestrator: cycle %d: %w", cycleIdx, err)
		}
		s := cycle.State{
			ProgramState: reply.ProgramState,
			StateBits:    reply.StateBits,
			StatusBits:   reply.StatusBits,
			CtrlBits:     reply.CtrlBits,
			CmdBits:      reply.CmdBits,
			AddrBus:      reply.AddrBus,
			DataBus:      reply.DataBus,
		}
		res.CycleLog = append(res.CycleLog, s)

		if s.ALE() {
			addrLatch = s.AddrBus
		}
		busState, seg, queueOp := s.DecodeBusState(opts.Family.Is286())
		res.BusStates = append(res.BusStates, busState)
		res.Segments = append(res.Segments, seg)
		res.QueueOps = append(res.QueueOps, queueOp)

		if op, done := recon.Feed(s, cycleIdx); done {
			res.BusOps = append(res.BusOps, op)
		}

		switch s.TState() {
		case cycle.T2:
			if opts.WaitStates > 0 {
				if err := client.WritePin(PinREADY, false); err != nil {
					return res, err
				}
				waitCounter = opts.WaitStates
			}
		case cycle.T3, cycle.Tw:
			if waitCounter > 0 {
				waitCounter--
				if waitCounter == 0 {
					if err := client.WritePin(PinREADY, true); err != nil {
						return res, err
					}
				}
			}
		case cycle.T4:
			if busState == cycle.StateCODE {
				if err := feedQueue(q, addrLatch, s, runState, opts); err != nil {
					return res, err
				}
			}
		}

		if cycle.Asserted(s.CmdBits, cycle.CmdBitMRDC) {
			if err := serveRead(client, mem, code, addrLatch, s, busState, runState, opts); err != nil {
				return res, err
			}
		}
		if cycle.Asserted(s.CmdBits, cycle.CmdBitMWTC) {
			if err := serveWrite(client, mem, addrLatch, s); err != nil {
				return res, err
			}
		}
		if cycle.Asserted(s.CmdBits, cycle.CmdBitIOWC) {
			data, err := client.ReadDataBus()
			if err != nil {
				return res, err
			}
			_ = data
			if addrLatch == 0x00FF && !intrRaised {
				if err := client.WritePin(PinINTR, true); err != nil {
					return res, err
				}
				intrRaised = true
			}
		}

		switch queueOp {
		case cycle.QueueFirst:
			entry, ok := q.Pop()
			if ok {
				res.InstructionCount++
				instructionsSinceStart++
				switch entry.Tag {
				case queue.TagFinalize:
					if err := client.Finalize(); err != nil {
						return res, err
					}
					res.QueueLenAtFinal = q.Len()
					runState = RunFinalize
				case queue.TagProgram:
					if runState == RunPreload {
						runState = RunProgram
					}
				}
			}
		case cycle.QueueSubsequent:
			q.Pop()
		case cycle.QueueFlush:
			q.Flush()
		}

		if opts.IntrOnCycle != 0 && uint64(cycleIdx) == opts.IntrOnCycle && !intrRaised {
			if err := client.WritePin(PinINTR, true); err != nil {
				return res, err
			}
			intrRaised = true
		}
		if opts.NmiOnCycle != 0 && uint64(cycleIdx) == opts.NmiOnCycle {
			if err := client.WritePin(PinNMI, true); err != nil {
				return res, err
			}
		}
		if opts.IntrAfter != 0 && instructionsSinceStart >= opts.IntrAfter && queueOp == cycle.QueueFirst && !intrRaised {
			if err := client.WritePin(PinINTR, true); err != nil {
				return res, err
			}
			intrRaised = true
		}

		if busState == cycle.StateHALT {
			res.Halted = true
			if err := client.Finalize(); err != nil {
				return res, err
			}
			res.QueueLenAtFinal = q.Len()
			return res, nil
		}
		if opts.HaltInstructionLimit != 0 && res.InstructionCount >= opts.HaltInstructionLimit {
			return res, fmt.Errorf("orchestrator: instruction limit %d reached without ExecuteDone", opts.HaltInstructionLimit)
		}

		if runState == RunFinalize {
			return res, nil
		}

		cycleIdx++
	}
	return res, fmt.Errorf("orchestrator: cycle limit %d reached without reaching Finalize", limit)
}

// feedQueue pushes a CODE-fetch's data-bus word into q, tagging it by
// whether the latched address falls inside the current run-state's
// region (spec.md §4.2 step 5).
func feedQueue(q *queue.Queue, addr uint32, s cycle.State, runState RunState, opts Options) error {
	width := s.DataWidth()
	tag := tagFor(addr, runState, opts)
	q.Push(s.DataBus, width, tag, addr)
	return nil
}

func tagFor(addr uint32, runState RunState, opts Options) queue.Tag {
	switch runState {
	case RunPreload:
		return queue.TagPreload
	case RunProgram:
		if addr >= opts.ProgramStart && addr < opts.ProgramEnd {
			return queue.TagProgram
		}
		return queue.TagFinalize
	default:
		return queue.TagFinalize
	}
}

// serveRead answers an asserted MRDC by writing the data bus: a CODE
// fetch inside program bounds is served from code, an out-of-bounds CODE
// fetch uses PREFETCH_STORE, and any other memory read is served from
// mem (spec.md §4.2 step 6).
func serveRead(client *wire.Client, mem *membuild.MemSet, code *preload.CodeStream, addr uint32, s cycle.State, busState cycle.BusState, runState RunState, opts Options) error {
	if busState == cycle.StateCODE {
		inBounds := runState == RunPreload || (addr >= opts.ProgramStart && addr < opts.ProgramEnd)
		if !inBounds {
			return client.PrefetchStore(nil)
		}
		low, high, highValid := code.NextWord()
		word := uint16(low)
		if highValid {
			word |= uint16(high) << 8
		}
		return client.WriteDataBus(word)
	}

	width := s.DataWidth()
	switch width {
	case cycle.WidthSixteen:
		lo, _ := mem.Get(addr)
		hi, _ := mem.Get(addr + 1)
		return client.WriteDataBus(uint16(lo) | uint16(hi)<<8)
	case cycle.WidthEightHigh:
		v, _ := mem.Get(addr)
		return client.WriteDataBus(uint16(v) << 8)
	default:
		v, _ := mem.Get(addr)
		return client.WriteDataBus(uint16(v))
	}
}

// serveWrite answers an asserted MWTC by reading the data bus and storing
// into mem honoring the cycle's data width.
func serveWrite(client *wire.Client, mem *membuild.MemSet, addr uint32, s cycle.State) error {
	data, err := client.ReadDataBus()
	if err != nil {
		return err
	}
	switch s.DataWidth() {
	case cycle.WidthSixteen:
		mem.Set(addr, byte(data))
		mem.Set(addr+1, byte(data>>8))
	case cycle.WidthEightHigh:
		mem.Set(addr, byte(data>>8))
	default:
		mem.Set(addr, byte(data))
	}
	return nil
}
