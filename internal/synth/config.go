package synth

// ModRMOverride configures per-opcode ModR/M masking (spec.md §4.3 step 2).
type ModRMOverride struct {
	Mask          byte
	InvalidChance float64 // probability the mask is skipped, producing an "invalid" encoding
}

// SPOverride bounds SP during register randomization for a specific
// opcode (spec.md §4.4). Config has no field of this type, and the
// driver's register policy carries only the global SP bounds.
type SPOverride struct {
	Min, Max uint16
}

// Config holds every per-opcode and global knob spec.md §4.3/§6 exposes
// for opcode/ModR/M/prefix/immediate synthesis.
type Config struct {
	ExcludedOpcodes    map[byte]bool
	GroupOpcodes       map[byte]bool
	ModRMOverrides     map[byte]ModRMOverride
	DisableSegOverrides map[byte]bool
	DisableLockPrefix   map[byte]bool
	RepOpcodes          map[byte]bool
	SegmentPrefixes     []byte // 0x26,0x2E,0x36,0x3E (ES,CS,SS,DS overrides)
	RepPrefixes         []byte // 0xF2,0xF3 (REPNE,REP)

	MaxPrefixes          int
	PrefixBetaAlpha       float64
	PrefixBetaBeta        float64
	SegmentOverrideChance float64 // gates whether the rolled prefix count is applied at all
	LockPrefixChance      float64
	RepPrefixChance       float64

	ImmZeroChance  float64
	ImmOnesChance  float64
	Imm8sMinChance float64
	Imm8sMaxChance float64

	NearBranchBan   []uint16
	ShiftMask       byte
	FlowControlOpcodes map[byte]bool
	EscOpcodes         map[byte]bool

	// Immediate-size classification, analogous to the teacher's
	// inst.Catalog HasImmediate/HasImm16 predicates.
	Imm8Opcodes  map[byte]bool
	Imm8sOpcodes map[byte]bool
	Imm16Opcodes map[byte]bool

	Termination TerminationPolicy
}

// TerminationPolicy selects how a synthesized sequence signals the end of
// the validated instruction (spec.md §4.3 step 8, §4.2).
type TerminationPolicy uint8

const (
	TerminationQueue TerminationPolicy = iota // detect via queue leaving program bounds
	TerminationHalt                            // append 0xF4 (HLT)
)

// HaltOpcode is the 8088-class HLT encoding appended under TerminationHalt.
const HaltOpcode byte = 0xF4

// DefaultConfig returns reasonable defaults matching the TOML shape's
// documented option names in spec.md §6.
func DefaultConfig() Config {
	return Config{
		ExcludedOpcodes:     map[byte]bool{},
		GroupOpcodes:        map[byte]bool{0x80: true, 0x81: true, 0x82: true, 0x83: true, 0xC0: true, 0xC1: true, 0xD0: true, 0xD1: true, 0xD2: true, 0xD3: true, 0xF6: true, 0xF7: true, 0xFE: true, 0xFF: true},
		ModRMOverrides:      map[byte]ModRMOverride{},
		DisableSegOverrides: map[byte]bool{},
		DisableLockPrefix:   map[byte]bool{},
		RepOpcodes:          map[byte]bool{0xA4: true, 0xA5: true, 0xA6: true, 0xA7: true, 0xAA: true, 0xAB: true, 0xAC: true, 0xAD: true, 0xAE: true, 0xAF: true},
		SegmentPrefixes:     []byte{0x26, 0x2E, 0x36, 0x3E},
		RepPrefixes:         []byte{0xF2, 0xF3},
		MaxPrefixes:         3,
		PrefixBetaAlpha:     2,
		PrefixBetaBeta:      5,
		SegmentOverrideChance: 0.5,
		LockPrefixChance:      0.05,
		RepPrefixChance:       0.3,
		ImmZeroChance:         0.05,
		ImmOnesChance:         0.05,
		Imm8sMinChance:        0.05,
		Imm8sMaxChance:        0.05,
		ShiftMask:             0x1F,
		FlowControlOpcodes:    map[byte]bool{},
		EscOpcodes:            map[byte]bool{},
		Imm8Opcodes:           map[byte]bool{0x04: true, 0x0C: true, 0x14: true, 0x1C: true, 0x24: true, 0x2C: true, 0x34: true, 0x3C: true, 0xA8: true, 0xB0: true, 0xB1: true, 0xB2: true, 0xB3: true, 0xB4: true, 0xB5: true, 0xB6: true, 0xB7: true, 0xCD: true, 0xE4: true, 0xE6: true, 0xEB: true},
		Imm8sOpcodes:          map[byte]bool{0x6A: true, 0x82: true, 0x83: true},
		Imm16Opcodes:          map[byte]bool{0x05: true, 0x0D: true, 0x15: true, 0x1D: true, 0x25: true, 0x2D: true, 0x35: true, 0x3D: true, 0xA9: true, 0xB8: true, 0xB9: true, 0xBA: true, 0xBB: true, 0xBC: true, 0xBD: true, 0xBE: true, 0xBF: true, 0x68: true, 0x69: true, 0x81: true, 0xE8: true, 0xE9: true},
		Termination:           TerminationQueue,
	}
}
