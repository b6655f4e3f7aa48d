// Package config loads the test_gen./test_exec. TOML configuration
// (spec.md §4.1 CLI surface) via github.com/BurntSushi/toml. No CLI-flag
// values are layered onto the loaded Config.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ModRMOverride mirrors synth.ModRMOverride's TOML shape.
type ModRMOverride struct {
	Opcode        byte    `toml:"opcode"`
	Mask          byte    `toml:"mask"`
	InvalidChance float64 `toml:"invalid_chance"`
}

// SPOverride mirrors synth.SPOverride's TOML shape.
type SPOverride struct {
	Opcode byte   `toml:"opcode"`
	Min    uint16 `toml:"min"`
	Max    uint16 `toml:"max"`
}

// TestGen holds every `test_gen.*` TOML key from spec.md §4.1.
type TestGen struct {
	CPUType               string          `toml:"cpu_type"`
	CPUMode               string          `toml:"cpu_mode"`
	Seed                  uint32          `toml:"seed"`
	TerminationCondition  string          `toml:"termination_condition"`
	OutputDir             string          `toml:"output_dir"`
	AddressMask           uint32          `toml:"address_mask"`
	InstructionAddressRange [2]uint32     `toml:"instruction_address_range"`
	OpcodeRange           [2]uint8        `toml:"opcode_range"`
	ExcludedOpcodes       []uint8         `toml:"excluded_opcodes"`
	Prefixes              []uint8         `toml:"prefixes"`
	SegmentPrefixes       []uint8         `toml:"segment_prefixes"`
	TestCount             uint32          `toml:"test_count"`
	AppendFile            bool            `toml:"append_file"`
	SegmentOverrideChance float64         `toml:"segment_override_chance"`
	LockPrefixChance      float64         `toml:"lock_prefix_chance"`
	RepPrefixChance       float64         `toml:"rep_prefix_chance"`
	RegZeroChance         float64         `toml:"reg_zero_chance"`
	RegOnesChance         float64         `toml:"reg_ones_chance"`
	SPOddChance           float64         `toml:"sp_odd_chance"`
	SPMinValue            uint16          `toml:"sp_min_value"`
	SPMaxValue            uint16          `toml:"sp_max_value"`
	MemZeroChance         float64         `toml:"mem_zero_chance"`
	MemOnesChance         float64         `toml:"mem_ones_chance"`
	DisableSegOverrides   []uint8         `toml:"disable_seg_overrides"`
	DisableLockPrefix     []uint8         `toml:"disable_lock_prefix"`
	RepOpcodes            []uint8         `toml:"rep_opcodes"`
	GroupOpcodes          []uint8         `toml:"group_opcodes"`
	ModRMOverrides        []ModRMOverride `toml:"modrm_overrides"`
	SPOverrides           []SPOverride    `toml:"sp_overrides"`
	RandomizeMemInterval  uint32          `toml:"randomize_mem_interval"`
	IPMask                uint32          `toml:"ip_mask"`
	RegisterBeta          [2]float64      `toml:"register_beta"`
	PrefixBeta            [2]float64      `toml:"prefix_beta"`
	NearBranchBan         []uint16        `toml:"near_branch_ban"`
	ShiftMask             uint8           `toml:"shift_mask"`
	WritelessNullShifts   bool            `toml:"writeless_null_shifts"`
	ImmZeroChance         float64         `toml:"imm_zero_chance"`
	ImmOnesChance         float64         `toml:"imm_ones_chance"`
	Imm8sMinChance        float64         `toml:"imm8s_min_chance"`
	Imm8sMaxChance        float64         `toml:"imm8s_max_chance"`
	FlowControlOpcodes    []uint8         `toml:"flow_control_opcodes"`
	EscOpcodes            []uint8         `toml:"esc_opcodes"`
	MOOVersion            uint8           `toml:"moo_version"`
	TraceFileSuffix       string          `toml:"trace_file_suffix"`
}

// TestExec holds every `test_exec.*` TOML key from spec.md §4.1.
type TestExec struct {
	PollingSleepMillis int  `toml:"polling_sleep"`
	PrintInitialRegs   bool `toml:"print_initial_regs"`
	TestRetry          int  `toml:"test_retry"`
	MaxGen             int  `toml:"max_gen"`
	SerialDebugDefault bool `toml:"serial_debug_default"`
}

// Config is the full parsed TOML document.
type Config struct {
	TestGen  TestGen  `toml:"test_gen"`
	TestExec TestExec `toml:"test_exec"`
}

// Overrides holds the CLI-flag values that take precedence over the TOML
// file's settings (spec.md §4.1: --config-file, --com-port, --validate).
type Overrides struct {
	ComPort  string
	Validate bool
}

// Load parses the TOML file at path and reports any unrecognized keys
// (toml.MetaData.Undecoded) as an error rather than silently ignoring
// them, since a typo'd option name would otherwise fall back to a
// zero-value default without warning.
func Load(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: %s: unrecognized keys %v", path, undecoded)
	}
	return cfg, nil
}

// Default returns reasonable defaults for any TOML key left at its zero
// value by Load, mirroring synth.DefaultConfig's choices where the two
// overlap.
func Default() Config {
	return Config{
		TestGen: TestGen{
			CPUType:               "Intel8088",
			CPUMode:               "Real",
			TerminationCondition:  "queue",
			OutputDir:             ".",
			AddressMask:           0xFFFFF,
			TestCount:             1,
			SegmentOverrideChance: 0.5,
			LockPrefixChance:      0.05,
			RepPrefixChance:       0.3,
			RegZeroChance:         0.05,
			RegOnesChance:         0.05,
			SPMaxValue:            0xFFFE,
			MemZeroChance:         0.05,
			MemOnesChance:         0.05,
			RegisterBeta:          [2]float64{2, 5},
			PrefixBeta:            [2]float64{2, 5},
			ShiftMask:             0x1F,
			ImmZeroChance:         0.05,
			ImmOnesChance:         0.05,
			Imm8sMinChance:        0.05,
			Imm8sMaxChance:        0.05,
			MOOVersion:            1,
			TraceFileSuffix:       ".trace",
		},
		TestExec: TestExec{
			PollingSleepMillis: 1,
			TestRetry:          3,
			MaxGen:             8,
		},
	}
}
