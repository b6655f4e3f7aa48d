// Package cycle models one bus clock's worth of observed CPU state and
// derives the higher-level bus-state/segment/queue-op/data-width facts the
// orchestrator needs each tick (spec.md §3, §4.2).
package cycle

// BusState is the decoded three-or-four-bit status-line encoding of the
// current bus cycle.
type BusState uint8

const (
	StateINTA BusState = iota
	StateIOR
	StateIOW
	StateHALT
	StateCODE
	StateMEMR
	StateMEMW
	StatePASV
)

func (s BusState) String() string {
	names := [...]string{"INTA", "IOR", "IOW", "HALT", "CODE", "MEMR", "MEMW", "PASV"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// IsActive reports whether s represents a live bus transaction (as opposed
// to PASV, the idle state observed the cycle after a transaction starts).
func (s BusState) IsActive() bool { return s != StatePASV }

// Segment is the segment register driving the current bus cycle's
// addressing, per the pre-286 status bits.
type Segment uint8

const (
	SegES Segment = iota
	SegSS
	SegCS
	SegDS
)

func (s Segment) String() string {
	names := [...]string{"ES", "SS", "CS", "DS"}
	return names[s&0x3]
}

// QueueOp is the queue-status encoding (QS0/QS1) sampled each cycle.
type QueueOp uint8

const (
	QueueIdle QueueOp = iota
	QueueFirst
	QueueFlush
	QueueSubsequent
)

func (q QueueOp) String() string {
	names := [...]string{"Idle", "First", "Flush", "Subsequent"}
	return names[q&0x3]
}

// TState is the clock phase within a bus cycle.
type TState uint8

const (
	Ti TState = iota
	T1
	T2
	T3
	T4
	Tw
)

// DataWidth describes which half (or both) of a 16-bit data bus a cycle
// addresses, derived from BHE and A0 (spec.md §8 property 5).
type DataWidth uint8

const (
	WidthSixteen DataWidth = iota
	WidthEightHigh
	WidthEightLow
	WidthInvalid
)

// DeriveDataWidth maps (BHE, A0) to a DataWidth per spec.md §8 property 5:
// (BHE=0,A0=0)->Sixteen, (BHE=0,A0=1)->EightHigh, (BHE=1,A0=0)->EightLow,
// (BHE=1,A0=1)->Invalid.
func DeriveDataWidth(bhe, a0 bool) DataWidth {
	switch {
	case !bhe && !a0:
		return WidthSixteen
	case !bhe && a0:
		return WidthEightHigh
	case bhe && !a0:
		return WidthEightLow
	default:
		return WidthInvalid
	}
}

// BusOpType classifies a completed bus transaction for reconstruction.
type BusOpType uint8

const (
	OpCodeRead BusOpType = iota
	OpMemRead
	OpMemWrite
	OpIoRead
	OpIoWrite
)

func (t BusOpType) String() string {
	names := [...]string{"CodeRead", "MemRead", "MemWrite", "IoRead", "IoWrite"}
	return names[t]
}

// FromBusState maps an active BusState to the BusOpType it represents, if
// any (HALT, INTA and PASV have no associated memory/IO operation type).
func FromBusState(s BusState) (BusOpType, bool) {
	switch s {
	case StateCODE:
		return OpCodeRead, true
	case StateMEMR:
		return OpMemRead, true
	case StateMEMW:
		return OpMemWrite, true
	case StateIOR:
		return OpIoRead, true
	case StateIOW:
		return OpIoWrite, true
	default:
		return 0, false
	}
}
