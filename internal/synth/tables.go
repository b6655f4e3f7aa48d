package synth

// ModRMInfo is one precomputed cell of the 256-entry ModR/M table: the
// decoded Mod/Reg/RM fields and whether this encoding requires a following
// SIB byte (32-bit addressing, Mod != 3 and RM == 4), per spec.md §9's
// "Static ModR/M and SIB tables" design note.
type ModRMInfo struct {
	Mod       uint8
	Reg       uint8
	RM        uint8
	NeedsSIB  bool // true for 32-bit addressing when mod!=3 && rm==4
	IsMemory  bool // mod != 3: this ModR/M addresses memory, not a register
}

// ModRMTable is the 256-entry ModR/M decode table, filled in once by
// init.
var ModRMTable [256]ModRMInfo

func init() {
	for b := 0; b < 256; b++ {
		mod := uint8(b>>6) & 0x03
		reg := uint8(b>>3) & 0x07
		rm := uint8(b) & 0x07
		ModRMTable[b] = ModRMInfo{
			Mod:      mod,
			Reg:      reg,
			RM:       rm,
			NeedsSIB: mod != 3 && rm == 4,
			IsMemory: mod != 3,
		}
	}
}

// SIBInfo is one precomputed cell of the SIB decode table: scale, index,
// and base register fields.
type SIBInfo struct {
	Scale uint8
	Index uint8
	Base  uint8
	// NoBaseWhenMod0 is true when Mod==0 && Base==5: base is replaced by a
	// disp32 with no base register.
	NoBaseWhenMod0 bool
}

// SIBTable is the 3x256 SIB decode table, filled in once by init, indexed
// [mod][sib byte] since the SIB byte's interpretation of a base-register
// value of 5 depends on the enclosing ModR/M's Mod field.
var SIBTable [3][256]SIBInfo

func init() {
	for mod := 0; mod < 3; mod++ {
		for b := 0; b < 256; b++ {
			scale := uint8(b>>6) & 0x03
			index := uint8(b>>3) & 0x07
			base := uint8(b) & 0x07
			SIBTable[mod][b] = SIBInfo{
				Scale:          scale,
				Index:          index,
				Base:           base,
				NoBaseWhenMod0: mod == 0 && base == 5,
			}
		}
	}
}

// Reg extracts the reg field of a ModR/M byte (bits 5:3).
func Reg(modrm byte) uint8 { return (modrm >> 3) & 0x07 }

// WithReg returns modrm with its reg field overwritten by reg, used when
// O is a group opcode and reg encodes the group extension (spec.md §4.3
// step 2).
func WithReg(modrm byte, reg uint8) byte {
	return (modrm &^ 0x38) | ((reg & 0x07) << 3)
}
