package cycle

// Pre-286 status byte layout (8088/8086/V20/V30/80188/80186):
//
//	bits 0..2  S0-S2, bus state (0..7 -> INTA,IOR,IOW,HALT,CODE,MEMR,MEMW,PASV)
//	bits 3..4  active segment (0..3 -> ES,SS,CS,DS)
//	bits 6..7  queue-op (0..3 -> Idle,First,Flush,Subsequent)
//
// This enumeration is wire-identical to the BusState/Segment/QueueOp iota
// orders in types.go, so decode is a direct field extraction (spec.md §8 property
// 4: all 256 values of the status byte decode per this mapping).

// DecodeStatusPre286 unpacks a pre-80286 status byte into bus-state,
// segment, and queue-op.
func DecodeStatusPre286(status byte) (BusState, Segment, QueueOp) {
	busState := BusState(status & 0x07)
	segment := Segment((status >> 3) & 0x03)
	queueOp := QueueOp((status >> 6) & 0x03)
	return busState, segment, queueOp
}

// status286Entry is one row of the 80286's 4-bit S-field decode table.
type status286Entry struct {
	state   BusState
	segment Segment
	defined bool
}

// status286Table maps the 80286's full 4-bit status field (COD/INTA#,
// M/IO#, S1#, S0# packed as bits 3..0) to a bus state, per the Intel 80286
// hardware reference manual's bus-cycle status table. Encodings the
// datasheet leaves reserved/undefined decode to PASV (spec.md §8 property
// 4).
var status286Table = [16]status286Entry{
	0b0111: {state: StateINTA, defined: true},
	0b0100: {state: StateIOR, defined: true},
	0b0101: {state: StateIOW, defined: true},
	0b0010: {state: StateHALT, defined: true},
	0b1110: {state: StateCODE, segment: SegCS, defined: true},
	0b0110: {state: StateMEMR, defined: true},
	0b0001: {state: StateMEMW, defined: true},
	0b1111: {state: StatePASV, defined: true},
}

// DecodeStatus286 unpacks an 80286 4-bit status field into a bus state.
// Segment decode for the 80286 is only meaningful for CODE cycles here;
// data-cycle segment tracking on the 286 instead comes from the
// orchestrator's own CS/DS/SS/ES bookkeeping, since the 80286 status field
// does not carry a segment selector the way the 8086's does.
func DecodeStatus286(field byte) (BusState, Segment) {
	entry := status286Table[field&0x0F]
	if !entry.defined {
		return StatePASV, SegDS
	}
	return entry.state, entry.segment
}
