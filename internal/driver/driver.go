// Package driver runs the per-opcode test-generation loop: synthesize an
// instruction, roll a register set, execute it against the live CPU via
// internal/orchestrator, reconstruct memory and exceptions, and assemble
// the result into a moo.Test — retrying on transport failure and
// re-synthesizing on exhausted retries (spec.md §4.1 CLI surface, §7
// error propagation policy).
package driver

import (
	"fmt"
	"io"

	"github.com/ardx86/testgen/internal/cpuid"
	"github.com/ardx86/testgen/internal/except"
	"github.com/ardx86/testgen/internal/membuild"
	"github.com/ardx86/testgen/internal/moo"
	"github.com/ardx86/testgen/internal/orchestrator"
	"github.com/ardx86/testgen/internal/preload"
	"github.com/ardx86/testgen/internal/randgen"
	"github.com/ardx86/testgen/internal/registers"
	"github.com/ardx86/testgen/internal/synth"
	"github.com/ardx86/testgen/internal/wire"
)

// maxAddressRerolls bounds the "instruction must land inside the
// configured address range" re-roll loop (spec.md §4.4); it is a safety
// valve distinct from TestRetry/MaxGen, which govern hardware-execution
// failures rather than address placement.
const maxAddressRerolls = 256

// Options configures one opcode's generation loop.
type Options struct {
	Family cpuid.Family

	FileSeed   uint64
	TestNum    uint32
	TestRetry  int // spec.md §7: retries within one generation
	MaxGen     int // spec.md §7: generations before giving up on this opcode

	SynthConfig   synth.Config
	RegisterPolicy registers.Policy
	AddressRange  [2]uint32 // [start,end) the instruction's flat address must land in

	Opcode    byte
	GroupExt  *uint8
	NamePrefix string // e.g. "MOV_rm_r" for trace logging / test naming

	ExceptionOrdering except.Ordering

	// Trace receives one diagnostic line per retry/generation and a final
	// line on success or exhaustion (spec.md §7: "per-test retries are
	// logged to a trace file keyed by opcode").
	Trace io.Writer
}

func (o Options) trace(format string, args ...interface{}) {
	if o.Trace == nil {
		return
	}
	fmt.Fprintf(o.Trace, "[opcode %02X] "+format+"\n", append([]interface{}{o.Opcode}, args...)...)
}

// ErrExhausted is returned when every generation's every retry failed.
var ErrExhausted = fmt.Errorf("driver: exhausted all generations without a successful test")

// GenerateTest runs Options' generation loop against client and returns
// the completed MOO test record.
func GenerateTest(client *wire.Client, opts Options) (moo.Test, error) {
	maxGen := opts.MaxGen
	if maxGen <= 0 {
		maxGen = 1
	}
	maxRetry := opts.TestRetry
	if maxRetry <= 0 {
		maxRetry = 1
	}

	var lastErr error
	for gen := 0; gen < maxGen; gen++ {
		seed := randgen.Seed(opts.FileSeed, opts.TestNum, uint8(gen))
		inst, regs, err := synthesizeAttempt(seed, opts)
		if err != nil {
			opts.trace("gen %d: synthesis failed: %v", gen, err)
			lastErr = err
			continue
		}

		for attempt := 0; attempt < maxRetry; attempt++ {
			test, err := runOnce(client, inst, regs, opts)
			if err == nil {
				opts.trace("gen %d attempt %d: ok", gen, attempt)
				return test, nil
			}
			opts.trace("gen %d attempt %d: execution failed: %v", gen, attempt, err)
			lastErr = err
		}
	}
	opts.trace("exhausted %d generations: %v", maxGen, lastErr)
	if lastErr != nil {
		return moo.Test{}, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
	}
	return moo.Test{}, ErrExhausted
}

// synthesizeAttempt synthesizes one instruction and rolls a register set
// whose CS:IP lands inside opts.AddressRange, re-rolling the register set
// alone (not the instruction) up to maxAddressRerolls times.
func synthesizeAttempt(seed uint64, opts Options) (synth.Instruction, registers.Set, error) {
	rng := randgen.New(seed)
	inst, err := synth.Synthesize(opts.Opcode, opts.GroupExt, opts.SynthConfig, rng, opts.Family.Is386())
	if err != nil {
		return synth.Instruction{}, nil, err
	}

	for i := 0; i < maxAddressRerolls; i++ {
		regs := rollRegisters(rng, opts)
		if addrInRange(regs.CodeAddress(), opts.AddressRange) {
			return inst, regs, nil
		}
	}
	return synth.Instruction{}, nil, fmt.Errorf("driver: opcode %02X: could not place instruction in range [%#x,%#x) after %d rerolls",
		opts.Opcode, opts.AddressRange[0], opts.AddressRange[1], maxAddressRerolls)
}

func rollRegisters(rng *randgen.RNG, opts Options) registers.Set {
	switch {
	case opts.Family.Is386():
		v := registers.RandomizeV3(rng, opts.RegisterPolicy)
		return &v
	case opts.Family == cpuid.Intel80286:
		v := registers.RandomizeV2(rng, opts.RegisterPolicy)
		return &v
	default:
		v := registers.RandomizeV1(rng, opts.RegisterPolicy)
		return &v
	}
}

func addrInRange(addr uint32, r [2]uint32) bool {
	return addr >= r[0] && addr < r[1]
}

// runOnce drives one full Reset/Load/Execute/Store cycle for a single
// synthesized instruction and assembles the resulting moo.Test.
func runOnce(client *wire.Client, inst synth.Instruction, regs registers.Set, opts Options) (moo.Test, error) {
	if err := client.Reset(); err != nil {
		return moo.Test{}, err
	}

	setType, err := loadRegisters(client, regs)
	if err != nil {
		return moo.Test{}, err
	}

	initialRegs := regs.Serialize()
	start := regs.CodeAddress()
	code := preload.NewCodeStream(inst.Bytes)
	mem := membuild.NewMemSet()

	runOpts := orchestrator.Options{
		Family:       opts.Family,
		ProgramStart: start,
		ProgramEnd:   start + uint32(len(inst.Bytes)),
	}
	result, err := orchestrator.Run(client, mem, code, runOpts)
	if err != nil {
		return moo.Test{}, err
	}

	store, err := client.StoreSized(true, len(initialRegs))
	if err != nil {
		return moo.Test{}, err
	}
	finalRegs := finalizeStoredRegisters(opts.Family, store.Payload, rewindAdjust(result))

	built, err := membuild.Build(inst.Bytes, start, opts.Family.QueueCapacity(), result.BusOps)
	if err != nil {
		return moo.Test{}, err
	}

	exc := except.Detect(result.BusOps, opts.ExceptionOrdering)
	name := opts.NamePrefix
	if exc.Detected {
		name = fmt.Sprintf("%s_exc%d", name, exc.ExceptionNum)
	}

	regVersion := moo.RegistersV1
	if setType != wire.RegSetV1 {
		regVersion = moo.RegistersWide
	}

	return moo.Test{
		Index: opts.TestNum,
		Name:  name,
		Bytes: inst.Bytes,
		Initial: moo.State{
			RegVersion: regVersion,
			Regs:       initialRegs,
			Queue:      nil,
			RAM:        built.Initial.Entries(),
		},
		Final: moo.State{
			RegVersion: regVersion,
			Regs:       finalRegs,
			Queue:      nil,
			RAM:        built.Delta,
		},
		Cycles: cyclesFromResult(result),
	}, nil
}

func loadRegisters(client *wire.Client, regs registers.Set) (wire.RegisterSetType, error) {
	switch v := regs.(type) {
	case *registers.V1:
		return wire.RegSetV1, client.Load(wire.RegSetV1, v.Serialize())
	case *registers.V2:
		return wire.RegSetV2, client.Load(wire.RegSetV2, v.Serialize())
	case *registers.V3:
		return wire.RegSetV3, client.Load(wire.RegSetV3, v.Serialize())
	default:
		return 0, fmt.Errorf("driver: unknown register set type %T", regs)
	}
}

// rewindAdjust computes the IP/EIP correction applied after Finalize: the
// prefetch queue may hold bytes beyond the instruction boundary that were
// fetched but never executed (spec.md §4.2).
func rewindAdjust(result orchestrator.Result) uint32 {
	return uint32(result.QueueLenAtFinal)
}

// finalizeStoredRegisters applies the post-Finalize IP rewind (queued but
// unexecuted bytes, spec.md §4.2) and, for 8088-class families, undoes the
// preload program's 4x STOSB DI offset, then re-serializes the corrected
// register buffer. V2/V3 families have no preload program, so only the IP
// rewind applies to them.
func finalizeStoredRegisters(family cpuid.Family, payload []byte, ipAdjust uint32) []byte {
	switch {
	case family.Is386():
		v := registers.ParseV3(payload, len(payload) == registers.SizeV3B)
		v.RewindIP(ipAdjust)
		return v.Serialize()
	case family == cpuid.Intel80286:
		v := registers.ParseV2(payload)
		v.RewindIP(ipAdjust)
		return v.Serialize()
	default:
		v := registers.ParseV1(payload)
		v.RewindIP(ipAdjust)
		if preload.ProgramFor(family) != nil {
			adjust := preload.DIAdjustment(v.Flags&registers.FlagDirection != 0)
			v.DI = uint16(int32(v.DI) + int32(adjust))
		}
		return v.Serialize()
	}
}

// cyclesFromResult builds the CYCL records from the orchestrator's raw
// per-cycle log. The queue-byte/INTR/NMI/RESET fields are not tracked
// per-cycle by orchestrator.Result (WritePin calls are fire-and-forget,
// not sampled back into the log), so they are recorded as zero/false
// here — see DESIGN.md.
func cyclesFromResult(result orchestrator.Result) []moo.CycleRecord {
	out := make([]moo.CycleRecord, 0, len(result.CycleLog))
	for i, s := range result.CycleLog {
		out = append(out, moo.RecordFromState(s, result.BusStates[i], result.Segments[i], result.QueueOps[i], 0, false, false, false))
	}
	return out
}
