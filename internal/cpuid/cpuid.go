// Package cpuid decodes the CPU-type byte and the per-family bus-status
// encodings described in spec.md §6.
package cpuid

// Family identifies the physical CPU mounted on the board.
type Family uint8

const (
	Undetected Family = iota
	Intel8088
	Intel8086
	NecV20
	NecV30
	Intel80188
	Intel80186
	Intel80286
	Intel80386
)

func (f Family) String() string {
	switch f {
	case Intel8088:
		return "Intel8088"
	case Intel8086:
		return "Intel8086"
	case NecV20:
		return "NecV20"
	case NecV30:
		return "NecV30"
	case Intel80188:
		return "Intel80188"
	case Intel80186:
		return "Intel80186"
	case Intel80286:
		return "Intel80286"
	case Intel80386:
		return "Intel80386"
	default:
		return "Undetected"
	}
}

// Type is the decoded CPU_TYPE reply byte: low 6 bits family, bit 6 FPU
// presence, bit 7 a family-dependent flag (queue-status availability on
// 80186/80188).
type Type struct {
	Family      Family
	HasFPU      bool
	FamilyFlag  bool
}

// Decode unpacks a raw CPU_TYPE byte.
func Decode(b byte) Type {
	return Type{
		Family:     Family(b & 0x3F),
		HasFPU:     b&0x40 != 0,
		FamilyFlag: b&0x80 != 0,
	}
}

// Is286 reports whether f uses the 80286 4-bit status decode table instead
// of the pre-286 3-bit one.
func (f Family) Is286() bool { return f == Intel80286 }

// Is386 reports whether f is the 80386, which uses 32-bit EFLAGS/EIP and
// the V3 register layouts.
func (f Family) Is386() bool { return f == Intel80386 }

// SupportsQueueStatus reports whether this family exposes queue-status
// pins (all but the plain 8088/8086/NEC parts, which predate QS0/QS1).
func (f Family) SupportsQueueStatus() bool {
	switch f {
	case Intel80188, Intel80186, Intel80286, Intel80386:
		return true
	default:
		return false
	}
}

// BusWidth returns 8 or 16 for the family's external data bus (16-bit
// families still present BHE/A0 semantics; 80386 test generation is
// restricted to real/unreal segmentation per spec.md §1, so it is treated
// as a 16-bit bus externally for prefetch-queue purposes here).
func (f Family) BusWidth() int {
	switch f {
	case Intel8088, NecV20, Intel80188:
		return 8
	default:
		return 16
	}
}

// QueueCapacity is the prefetch queue depth for f (spec.md §3).
func (f Family) QueueCapacity() int {
	if f.BusWidth() == 8 {
		return 4
	}
	return 6
}
