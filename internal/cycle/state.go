package cycle

// Command bit assignments (active-low), per spec.md §6.
const (
	CmdBitMRDC = 1 << 0
	CmdBitAMWC = 1 << 1
	CmdBitMWTC = 1 << 2
	CmdBitIORC = 1 << 3
	CmdBitAIOWC = 1 << 4
	CmdBitIOWC = 1 << 5
	CmdBitINTA = 1 << 6
	CmdBitBHE  = 1 << 7
)

// Control byte: bit0 ALE.
const CtrlBitALE = 1 << 0

// Asserted reports whether an active-low command bit is asserted (0).
func Asserted(cmdByte byte, bit byte) bool { return cmdByte&bit == 0 }

// State is one bus-clock snapshot, matching spec.md §3's "Cycle state"
// record.
type State struct {
	ProgramState byte
	StateBits    byte // packed T-state
	StatusBits   byte
	CtrlBits     byte
	CmdBits      byte
	AddrBus      uint32
	DataBus      uint16
	Misc         uint16
}

// TState extracts the T-state from the packed 4-bit state-bits field.
func (s State) TState() TState { return TState(s.StateBits & 0x0F) }

// ALE reports whether the address-latch-enable control bit is set.
func (s State) ALE() bool { return s.CtrlBits&CtrlBitALE != 0 }

// BHE reports the bus-high-enable command bit (active low: true means
// BHE# is asserted, i.e. the upper byte lane is valid).
func (s State) BHE() bool { return Asserted(s.CmdBits, CmdBitBHE) }

// A0 is bit 0 of the (possibly latched) address bus.
func (s State) A0() bool { return s.AddrBus&1 != 0 }

// DataWidth derives the active data-bus width for this cycle from BHE/A0.
// DeriveDataWidth takes the BHE# pin level, so the asserted flag is inverted.
func (s State) DataWidth() DataWidth { return DeriveDataWidth(!s.BHE(), s.A0()) }

// DecodeBusState dispatches to the pre-286 or 80286 status decode
// depending on is286, returning bus-state and segment. Queue-op is only
// meaningful pre-286; 286 callers should ignore the returned QueueOp and
// instead track queue status via QUEUE_LEN/QUEUE_BYTES polling (the 80286
// status field carries no queue-status bits).
func (s State) DecodeBusState(is286 bool) (BusState, Segment, QueueOp) {
	if is286 {
		state, seg := DecodeStatus286(s.StatusBits & 0x0F)
		return state, seg, QueueIdle
	}
	return DecodeStatusPre286(s.StatusBits)
}

// PackMemIOStatus re-packs the MRDC/AMWC/MWTC and IORC/AIOWC/IOWC command
// bits into the two 3-bit R/AW/W triples the MOO CYCL chunk stores
// (spec.md §4.7), high to low.
func PackMemIOStatus(cmdBits byte) (memStatus, ioStatus byte) {
	r := boolBit(Asserted(cmdBits, CmdBitMRDC))
	aw := boolBit(Asserted(cmdBits, CmdBitAMWC))
	w := boolBit(Asserted(cmdBits, CmdBitMWTC))
	memStatus = r<<2 | aw<<1 | w

	ior := boolBit(Asserted(cmdBits, CmdBitIORC))
	aiow := boolBit(Asserted(cmdBits, CmdBitAIOWC))
	iow := boolBit(Asserted(cmdBits, CmdBitIOWC))
	ioStatus = ior<<2 | aiow<<1 | iow
	return
}

// PackPins0 packs {ALE, BHE, READY, LOCK} into the low nibble of the MOO
// CYCL chunk's pins0 byte (spec.md §4.7).
func PackPins0(ale, bhe, ready, lock bool) byte {
	return boolBit(ale) | boolBit(bhe)<<1 | boolBit(ready)<<2 | boolBit(lock)<<3
}

func boolBit(b bool) byte {
	if b {
		return 1
	}
	return 0
}
