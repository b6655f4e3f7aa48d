package cycle

// BusOp is a completed bus transaction, derived from a PASV cycle
// following an active bus cycle (spec.md §3).
type BusOp struct {
	OpType BusOpType
	Addr   uint32
	BHE    bool
	Data   uint16
	Idx    int // index of the originating active cycle in the recorded log
}

// Reconstructor accumulates per-cycle State values and emits BusOps as
// active-cycle/PASV pairs complete. It holds the "latched address" and
// "active" bookkeeping spec.md §4.2 describes as orchestrator state.
type Reconstructor struct {
	is286        bool
	addrLatch    uint32
	active       bool
	activeType   BusOpType
	activeAddr   uint32
	activeBHE    bool
	activeIdx    int
	activeData   uint16
	haveData     bool
}

// NewReconstructor creates a Reconstructor for the given CPU family's
// status decode rules.
func NewReconstructor(is286 bool) *Reconstructor {
	return &Reconstructor{is286: is286}
}

// Feed processes one recorded cycle, latching the address bus on ALE and
// returning a completed BusOp when a PASV cycle closes out a prior active
// transaction. idx is the cycle's position in the log, stored on the
// resulting BusOp for trace cross-referencing.
func (r *Reconstructor) Feed(s State, idx int) (BusOp, bool) {
	if s.ALE() {
		r.addrLatch = s.AddrBus
	}
	busState, _, _ := s.DecodeBusState(r.is286)

	opType, isMemOrIO := FromBusState(busState)
	if isMemOrIO {
		if !r.active {
			r.active = true
			r.activeType = opType
			r.activeAddr = r.addrLatch
			r.activeBHE = s.BHE()
			r.activeIdx = idx
			r.haveData = false
		}
		// Latest data bus sample wins; writes settle their value over
		// T2/T3, reads are valid once MRDC/IORC assert.
		r.activeData = s.DataBus
		r.haveData = true
		return BusOp{}, false
	}

	if busState == StatePASV && r.active {
		op := BusOp{
			OpType: r.activeType,
			Addr:   r.activeAddr,
			BHE:    r.activeBHE,
			Data:   r.activeData,
			Idx:    r.activeIdx,
		}
		r.active = false
		return op, true
	}
	return BusOp{}, false
}

// Reset clears accumulated latch/active state between tests.
func (r *Reconstructor) Reset() {
	*r = Reconstructor{is286: r.is286}
}
