package moo

import (
	"encoding/binary"

	"github.com/ardx86/testgen/internal/cycle"
)

// CycleRecord is one CYCL chunk entry, matching spec.md §4.7's 15-byte
// fixed record: pins0, address_bus:u32, segment:u8, memory_status:u8,
// io_status:u8, pins1:u8, data_bus:u16, bus_state:u8, t_state:u8,
// queue_op:u8, queue_byte:u8.
type CycleRecord struct {
	Pins0        byte // {ALE, BHE, READY, LOCK} low nibble (spec.md §4.7)
	AddrBus      uint32
	Segment      byte
	MemoryStatus byte
	IOStatus     byte
	// Pins1 is not itemized by name in spec.md beyond existing alongside
	// Pins0; this port packs {INTR, NMI, RESET} into its low nibble,
	// mirroring Pins0's bit-per-pin convention. Treat as best-effort.
	Pins1     byte
	DataBus   uint16
	BusState  byte
	TState    byte
	QueueOp   byte
	QueueByte byte
}

const cycleRecordSize = 1 + 4 + 1 + 1 + 1 + 1 + 2 + 1 + 1 + 1 + 1 // 15

// PackPins1 packs {intr, nmi, reset} into the low nibble of Pins1.
func PackPins1(intr, nmi, reset bool) byte {
	b := func(v bool) byte {
		if v {
			return 1
		}
		return 0
	}
	return b(intr) | b(nmi)<<1 | b(reset)<<2
}

// RecordFromState builds a CycleRecord from a cycle.State snapshot plus
// the bus-state/segment/queue facts the orchestrator already derived for
// this tick.
func RecordFromState(s cycle.State, busState cycle.BusState, seg cycle.Segment, queueOp cycle.QueueOp, queueByte byte, intr, nmi, reset bool) CycleRecord {
	memStatus, ioStatus := cycle.PackMemIOStatus(s.CmdBits)
	return CycleRecord{
		Pins0:        cycle.PackPins0(s.ALE(), s.BHE(), s.CtrlBits&0x04 != 0, s.CtrlBits&0x08 != 0),
		AddrBus:      s.AddrBus,
		Segment:      byte(seg),
		MemoryStatus: memStatus,
		IOStatus:     ioStatus,
		Pins1:        PackPins1(intr, nmi, reset),
		DataBus:      s.DataBus,
		BusState:     byte(busState),
		TState:       byte(s.TState()),
		QueueOp:      byte(queueOp),
		QueueByte:    queueByte,
	}
}

func encodeCycles(records []CycleRecord) []byte {
	buf := make([]byte, 4+cycleRecordSize*len(records))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(records)))
	off := 4
	for _, r := range records {
		buf[off] = r.Pins0
		binary.LittleEndian.PutUint32(buf[off+1:off+5], r.AddrBus)
		buf[off+5] = r.Segment
		buf[off+6] = r.MemoryStatus
		buf[off+7] = r.IOStatus
		buf[off+8] = r.Pins1
		binary.LittleEndian.PutUint16(buf[off+9:off+11], r.DataBus)
		buf[off+11] = r.BusState
		buf[off+12] = r.TState
		buf[off+13] = r.QueueOp
		buf[off+14] = r.QueueByte
		off += cycleRecordSize
	}
	return buf
}

func decodeCycles(payload []byte) ([]CycleRecord, error) {
	if len(payload) < 4 {
		return nil, errShort("CYCL", 4, len(payload))
	}
	count := binary.LittleEndian.Uint32(payload[0:4])
	records := make([]CycleRecord, 0, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+cycleRecordSize > len(payload) {
			return nil, errShort("CYCL record", off+cycleRecordSize, len(payload))
		}
		records = append(records, CycleRecord{
			Pins0:        payload[off],
			AddrBus:      binary.LittleEndian.Uint32(payload[off+1 : off+5]),
			Segment:      payload[off+5],
			MemoryStatus: payload[off+6],
			IOStatus:     payload[off+7],
			Pins1:        payload[off+8],
			DataBus:      binary.LittleEndian.Uint16(payload[off+9 : off+11]),
			BusState:     payload[off+11],
			TState:       payload[off+12],
			QueueOp:      payload[off+13],
			QueueByte:    payload[off+14],
		})
		off += cycleRecordSize
	}
	return records, nil
}
