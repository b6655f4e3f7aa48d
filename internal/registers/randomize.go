package registers

import "github.com/ardx86/testgen/internal/randgen"

// GeneralPolicy controls how a single general-purpose (or segment)
// register is rolled (spec.md §4.4): weighted toward all-zero or
// all-ones, otherwise a Beta(alpha,beta)-shaped draw scaled across the
// register's width.
type GeneralPolicy struct {
	ZeroChance float64
	OnesChance float64
	BetaAlpha  float64
	BetaBeta   float64
}

// SPPolicy bounds and parity-biases the stack pointer (spec.md §4.4): LSB
// cleared, then set with probability OddChance, then clamped to [Min,Max].
type SPPolicy struct {
	OddChance float64
	Min, Max  uint16
}

// Policy is the full per-test register randomization configuration.
type Policy struct {
	General  GeneralPolicy
	SP       SPPolicy
	IPMask   uint32
	ClearTF  bool
	ClearIF  bool
	// SegmentRandomize, when true, rolls descriptor bases randomly instead
	// of normalizing them to selector<<4 (spec.md §4.4: "if segments are
	// randomized, each segment's descriptor base = random<<4").
	SegmentRandomize bool
}

func randWord16(rng *randgen.RNG, p GeneralPolicy) uint16 {
	x := rng.Float64()
	switch {
	case x < p.ZeroChance:
		return 0
	case x < p.ZeroChance+p.OnesChance:
		return 0xFFFF
	default:
		return uint16(rng.Beta(p.BetaAlpha, p.BetaBeta) * 65536)
	}
}

func randWord32(rng *randgen.RNG, p GeneralPolicy) uint32 {
	x := rng.Float64()
	switch {
	case x < p.ZeroChance:
		return 0
	case x < p.ZeroChance+p.OnesChance:
		return 0xFFFFFFFF
	default:
		return uint32(rng.Beta(p.BetaAlpha, p.BetaBeta) * 4294967296)
	}
}

func randSP(rng *randgen.RNG, p SPPolicy) uint16 {
	sp := rng.Uint16() &^ 1
	if rng.Bool(p.OddChance) {
		sp |= 1
	}
	if sp < p.Min {
		sp = p.Min
	}
	if sp > p.Max {
		sp = p.Max
	}
	return sp
}

// RandomizeV1 rolls a fresh V1 (8088-class) register set, CS and IP
// included. It does not check CS:IP against the configured instruction
// address range; the caller re-rolls the whole set until it lands inside.
func RandomizeV1(rng *randgen.RNG, p Policy) V1 {
	v := V1{
		AX: randWord16(rng, p.General),
		BX: randWord16(rng, p.General),
		CX: randWord16(rng, p.General),
		DX: randWord16(rng, p.General),
		SS: randWord16(rng, p.General),
		DS: randWord16(rng, p.General),
		ES: randWord16(rng, p.General),
		CS: randWord16(rng, p.General),
		BP: randWord16(rng, p.General),
		SI: randWord16(rng, p.General),
		DI: randWord16(rng, p.General),
		SP: randSP(rng, p.SP),
		IP: uint16(rng.Uint32() & p.IPMask),
	}
	v.Flags = randWord16(rng, p.General)
	v.MaskFlags()
	if p.ClearTF {
		v.Flags &^= FlagTrap
	}
	if p.ClearIF {
		v.Flags &^= FlagInterrupt
	}
	return v
}

// RandomizeV2 rolls a fresh V2 (80286 LOADALL) register set, leaving MSW,
// TR, and the GDT/LDT/IDT/TSS descriptors at their zero value (a LOADALL
// test targets general registers and segment descriptor semantics, not
// system-table contents) and normalizing or randomizing the four segment
// descriptor bases per p.SegmentRandomize.
func RandomizeV2(rng *randgen.RNG, p Policy) V2 {
	v := V2{
		DS: randWord16(rng, p.General),
		SS: randWord16(rng, p.General),
		CS: randWord16(rng, p.General),
		ES: randWord16(rng, p.General),
		DI: randWord16(rng, p.General),
		SI: randWord16(rng, p.General),
		BP: randWord16(rng, p.General),
		BX: randWord16(rng, p.General),
		DX: randWord16(rng, p.General),
		CX: randWord16(rng, p.General),
		AX: randWord16(rng, p.General),
		SP: randSP(rng, p.SP),
		IP: uint16(rng.Uint32() & p.IPMask),
	}
	v.Flags = randWord16(rng, p.General)
	v.MaskFlags()
	if p.ClearTF {
		v.Flags &^= FlagTrap
	}
	if p.ClearIF {
		v.Flags &^= FlagInterrupt
	}
	if p.SegmentRandomize {
		base := func() uint32 { return uint32(rng.Uint16()) << 4 }
		v.Descriptors.ES = DefaultDescriptor(base(), 0xFFFF)
		v.Descriptors.CS = DefaultDescriptor(base(), 0xFFFF)
		v.Descriptors.SS = DefaultDescriptor(base(), 0xFFFF)
		v.Descriptors.DS = DefaultDescriptor(base(), 0xFFFF)
	} else {
		v.NormalizeDescriptors()
	}
	return v
}

// RandomizeV3 rolls a fresh V3A (80386 LOADALL, no CR3) register set,
// analogous to RandomizeV1/V2 but over 32-bit general registers and the
// ten-descriptor cache.
func RandomizeV3(rng *randgen.RNG, p Policy) V3 {
	v := NewV3ADefault()
	v.EAX = randWord32(rng, p.General)
	v.EBX = randWord32(rng, p.General)
	v.ECX = randWord32(rng, p.General)
	v.EDX = randWord32(rng, p.General)
	v.EBP = randWord32(rng, p.General)
	v.ESI = randWord32(rng, p.General)
	v.EDI = randWord32(rng, p.General)
	v.ESP = uint32(randSP(rng, p.SP))
	v.EIP = rng.Uint32() & p.IPMask
	v.Segments.DS = randWord16(rng, p.General)
	v.Segments.SS = randWord16(rng, p.General)
	v.Segments.ES = randWord16(rng, p.General)
	v.Segments.FS = randWord16(rng, p.General)
	v.Segments.GS = randWord16(rng, p.General)
	v.Segments.CS = randWord16(rng, p.General)

	v.EFlags = randWord32(rng, p.General)
	v.MaskEFlags()
	if p.ClearTF {
		v.EFlags &^= uint32(FlagTrap)
	}
	if p.ClearIF {
		v.EFlags &^= uint32(FlagInterrupt)
	}

	if p.SegmentRandomize {
		base := func() uint32 { return uint32(rng.Uint16()) << 4 }
		v.Descriptors.DS = Descriptor12{Access: 0x93, Base: base(), Limit: 0xFFFF}
		v.Descriptors.SS = Descriptor12{Access: 0x93, Base: base(), Limit: 0xFFFF}
		v.Descriptors.ES = Descriptor12{Access: 0x93, Base: base(), Limit: 0xFFFF}
		v.Descriptors.FS = Descriptor12{Access: 0x93, Base: base(), Limit: 0xFFFF}
		v.Descriptors.GS = Descriptor12{Access: 0x93, Base: base(), Limit: 0xFFFF}
		v.Descriptors.CS = Descriptor12{Access: 0x93, Base: base(), Limit: 0xFFFF}
	} else {
		v.NormalizeDescriptors()
	}
	return v
}

// DefaultPolicy mirrors synth.DefaultConfig's chance defaults, kept
// separate because registers has no dependency on synth.
func DefaultPolicy() Policy {
	return Policy{
		General: GeneralPolicy{ZeroChance: 0.05, OnesChance: 0.05, BetaAlpha: 2, BetaBeta: 5},
		SP:      SPPolicy{OddChance: 0, Min: 0, Max: 0xFFFE},
		IPMask:  0xFFFF,
	}
}
