package synth

import "golang.org/x/arch/x86/x86asm"

// Decoded is the subset of the external decoder's result the synthesizer
// needs: mnemonic, encoded length, and the two primary operand kinds
// (spec.md §4.3 step 5).
type Decoded struct {
	Mnemonic string
	Len      int
	Op0Kind  x86asm.Arg
	Op1Kind  x86asm.Arg
	Inst     x86asm.Inst
}

// Decode runs the opaque external decoder service (golang.org/x/arch's
// x86asm in this port, standing in for iced-x86 per SPEC_FULL.md's domain
// stack) over buf in 16-bit mode, used by all pre-80386 families. The 386
// LOADALL path decodes 32-bit instructions by using Mode32.
//
// x86asm has no NO_INVALID_CHECK/LOADALL286 flag surface the way iced-x86
// does; a decode error is simply treated the same way an
// "invalid" decode would be under those flags — the byte sequence is kept
// as-is and reported invalid to the caller, which re-rolls.
func Decode(buf []byte, mode32 bool) (Decoded, error) {
	m := 16
	if mode32 {
		m = 32
	}
	inst, err := x86asm.Decode(buf, m)
	if err != nil {
		return Decoded{}, err
	}
	d := Decoded{
		Mnemonic: inst.Op.String(),
		Len:      inst.Len,
		Inst:     inst,
	}
	if len(inst.Args) > 0 {
		d.Op0Kind = inst.Args[0]
	}
	if len(inst.Args) > 1 {
		d.Op1Kind = inst.Args[1]
	}
	return d, nil
}

// IsNearBranch16 reports whether arg is a 16-bit relative branch operand
// (spec.md §4.3 step 7).
func IsNearBranch16(arg x86asm.Arg) bool {
	_, ok := arg.(x86asm.Rel)
	return ok
}
