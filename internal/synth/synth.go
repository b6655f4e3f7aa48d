// Package synth synthesizes random x86 instruction byte sequences: opcode
// selection, ModR/M/SIB rolls, prefix rolls, and immediate-value
// overrides, validated against an external decoder (spec.md §4.3).
package synth

import (
	"fmt"

	"github.com/ardx86/testgen/internal/randgen"
	"golang.org/x/arch/x86/x86asm"
)

// Instruction is a synthesized byte sequence plus the external decoder's
// verdict on it.
type Instruction struct {
	Bytes    []byte
	Mnemonic string
	Len      int
}

// ErrExcludedOpcode is returned when the requested opcode is configured
// out or is itself a prefix byte.
var ErrExcludedOpcode = fmt.Errorf("opcode excluded or is a prefix byte")

var prefixByteSet = map[byte]bool{
	0x26: true, 0x2E: true, 0x36: true, 0x3E: true, // segment overrides
	0xF0: true, // LOCK
	0xF2: true, 0xF3: true, // REPNE/REP
	0x64: true, 0x65: true, // NEC FS/GS-style overrides (original_source notes these as NEC-only extras)
}

const maxSynthAttempts = 64

// Synthesize builds one random instruction byte sequence for opcode op
// (and, if op is a group opcode, extension groupExt), following spec.md
// §4.3's eight-step procedure. mode32 selects 32-bit decode (80386 LOADALL
// generation); every other family decodes in 16-bit mode.
func Synthesize(op byte, groupExt *uint8, cfg Config, rng *randgen.RNG, mode32 bool) (Instruction, error) {
	if cfg.ExcludedOpcodes[op] || prefixByteSet[op] {
		return Instruction{}, ErrExcludedOpcode
	}
	for attempt := 0; attempt < maxSynthAttempts; attempt++ {
		if inst, ok := synthesizeOnce(op, groupExt, cfg, rng, mode32); ok {
			return inst, nil
		}
	}
	return Instruction{}, fmt.Errorf("synth: opcode %02X: exhausted %d attempts without a valid decode", op, maxSynthAttempts)
}

func synthesizeOnce(op byte, groupExt *uint8, cfg Config, rng *randgen.RNG, mode32 bool) (Instruction, bool) {
	// Step 2: opcode + ModR/M.
	modrm := byte(rng.IntN(256))
	if groupExt != nil {
		if !cfg.GroupOpcodes[op] {
			return Instruction{}, false
		}
		modrm = WithReg(modrm, *groupExt)
	}
	if ov, has := cfg.ModRMOverrides[op]; has {
		if !rng.Bool(ov.InvalidChance) {
			modrm &= ov.Mask
		}
	}

	body := []byte{op, modrm}
	if ModRMTable[modrm].NeedsSIB {
		body = append(body, byte(rng.IntN(256)))
	}

	// Step 3: six random trailing "operand" bytes covering any
	// immediate/displacement the decoder consumes.
	for i := 0; i < 6; i++ {
		body = append(body, byte(rng.IntN(256)))
	}

	// Step 4: prefixes.
	prefixes := rollPrefixes(op, cfg, rng)
	full := append(append([]byte{}, prefixes...), body...)

	// Step 5: decode.
	dec, err := Decode(full, mode32)
	if err != nil {
		return Instruction{}, false
	}

	// Step 6: immediate overrides, then re-decode.
	if applyImmediateOverrides(op, full, dec, cfg, rng) {
		dec, err = Decode(full, mode32)
		if err != nil {
			return Instruction{}, false
		}
	}

	// Step 7: near-branch ban.
	if rel, ok := dec.Op0Kind.(x86asm.Rel); ok {
		v := uint16(int32(rel))
		for _, banned := range cfg.NearBranchBan {
			if v == banned {
				return Instruction{}, false
			}
		}
	}

	out := append([]byte{}, full[:dec.Len]...)

	// Step 8: termination policy.
	if cfg.Termination == TerminationHalt {
		if dec.Len < len(out) {
			out[len(out)-1] = HaltOpcode
		} else {
			out = append(out, HaltOpcode)
		}
	}

	return Instruction{Bytes: out, Mnemonic: dec.Mnemonic, Len: len(out)}, true
}

func rollPrefixes(op byte, cfg Config, rng *randgen.RNG) []byte {
	var prefixes []byte
	if !cfg.DisableSegOverrides[op] && rng.Bool(cfg.SegmentOverrideChance) && len(cfg.SegmentPrefixes) > 0 {
		count := int(rng.Beta(cfg.PrefixBetaAlpha, cfg.PrefixBetaBeta) * float64(cfg.MaxPrefixes))
		if count > cfg.MaxPrefixes {
			count = cfg.MaxPrefixes
		}
		for i := 0; i < count; i++ {
			prefixes = append(prefixes, cfg.SegmentPrefixes[rng.IntN(len(cfg.SegmentPrefixes))])
		}
	}

	if !cfg.DisableLockPrefix[op] && rng.Bool(cfg.LockPrefixChance) {
		if len(prefixes) > 0 {
			prefixes[rng.IntN(len(prefixes))] = 0xF0
		} else {
			prefixes = append(prefixes, 0xF0)
		}
	}

	if cfg.RepOpcodes[op] && rng.Bool(cfg.RepPrefixChance) && len(cfg.RepPrefixes) > 0 {
		prefixes = append(prefixes, cfg.RepPrefixes[rng.IntN(len(cfg.RepPrefixes))])
	}
	return prefixes
}

// applyImmediateOverrides rewrites the trailing immediate bytes of buf
// in-place per the configured override chances (spec.md §4.3 step 6):
// zero, all-ones, or imm8s MIN/MAX. Re-encoding through an external
// encoder (as the original crates do via iced-x86) is replaced here with
// direct byte patching at the immediate's trailing offset, since x86asm
// (this port's decoder) exposes no paired encoder. The
// immediate's size is looked up from the opcode classification tables
// rather than introspected off the decoded Inst, for the same reason.
func applyImmediateOverrides(op byte, buf []byte, dec Decoded, cfg Config, rng *randgen.RNG) bool {
	immSize := immediateSize(op, cfg)
	if immSize == 0 {
		return false
	}
	offset := dec.Len - immSize
	if offset < 0 || offset+immSize > len(buf) {
		return false
	}
	window := buf[offset : offset+immSize]
	switch {
	case rng.Bool(cfg.ImmZeroChance):
		for i := range window {
			window[i] = 0
		}
	case rng.Bool(cfg.ImmOnesChance):
		for i := range window {
			window[i] = 0xFF
		}
	case immSize == 1 && rng.Bool(cfg.Imm8sMinChance):
		window[0] = 0x80
	case immSize == 1 && rng.Bool(cfg.Imm8sMaxChance):
		window[0] = 0x7F
	default:
		return false
	}
	return true
}

// immediateSize reports the byte width of op's trailing immediate, or 0 if
// it has none.
func immediateSize(op byte, cfg Config) int {
	if cfg.Imm16Opcodes[op] {
		return 2
	}
	if cfg.Imm8Opcodes[op] || cfg.Imm8sOpcodes[op] {
		return 1
	}
	return 0
}
