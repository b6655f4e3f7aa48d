// Package registers implements the three versioned register-set layouts
// (spec.md §3): V1 (8088-class, 28 bytes), V2 (80286 LOADALL, 102 bytes),
// and V3A/V3B (80386 LOADALL, 204/208 bytes). Each variant owns a
// layout-exact Serialize/Parse pair (explicit fixed-offset little-endian
// I/O, no reflection-based codec — spec.md §9) plus Randomize and
// NormalizeDescriptors.
package registers

// Set is the width-polymorphic interface shared by all three register
// variants, modeled as a tagged-variant accessor surface rather than deep
// inheritance (spec.md §9 design notes).
type Set interface {
	// Serialize writes the layout-exact wire payload for this variant.
	Serialize() []byte
	// CodeAddress returns the flat CS:IP (or segment:EIP) address the
	// instruction stream begins at.
	CodeAddress() uint32
	// RewindIP subtracts adjust from IP/EIP, wrapping per register width.
	RewindIP(adjust uint32)
	// NormalizeDescriptors forces every segment descriptor's base to
	// selector<<4, emulating real-mode segmentation (spec.md §3).
	NormalizeDescriptors()
}

// Size constants for each wire layout.
const (
	SizeV1  = 28
	SizeV2  = 102
	SizeV3A = 204
	SizeV3B = 208
)
