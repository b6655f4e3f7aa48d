// Package wire implements the arduinoX86 serial command protocol: typed
// command/reply framing, little-endian primitives, and the result-code
// handshake described in spec.md §4.1.
package wire

// Command is a single wire-stable opcode byte sent by the client.
type Command uint8

// Command opcodes. Numeric values are wire-stable for protocol version 3
// (wire magic "ardX86 ") — see RequiredProtocolVersion. The legacy 0x15
// placeholder from the older client generation is intentionally not
// reproduced here (spec.md §9 Open Questions).
const (
	CmdNull Command = iota
	CmdVersion
	CmdReset
	CmdLoad
	CmdCycle
	CmdReadAddrLatch
	CmdReadStatus
	CmdRead8288Command
	CmdRead8288Control
	CmdReadDataBus
	CmdWriteDataBus
	CmdFinalize
	CmdBeginStore
	CmdStore
	CmdQueueLen
	CmdQueueBytes
	CmdWritePin
	CmdReadPin
	CmdGetProgramState
	CmdGetLastError
	CmdGetCycleState
	CmdPrefetchStore
	CmdReadAddressU
	CmdCPUType
	CmdSetFlags
	CmdPrefetch
	CmdInitScreen
	CmdStoreAll
	CmdSetRandomSeed
	CmdRandomizeMemory
	CmdSetMemory
	CmdGetCycleStates
	CmdEnableDebug
	CmdSetMemoryStrategy
	CmdGetFlags
)

// RequiredProtocolVersion is the protocol version this client speaks.
// Discovery (see Probe in discovery package) aborts if the server reports
// anything else.
const RequiredProtocolVersion = 3

// VersionMagic is the fixed 7-byte prefix of the CmdVersion reply, followed
// by a single protocol-version byte and one trailing byte (9 bytes total).
const VersionMagic = "ardX86 "

// RegisterSetType tags which register layout a LOAD/STORE payload carries.
type RegisterSetType uint8

const (
	RegSetV1  RegisterSetType = 0 // 8088-class, 28 bytes
	RegSetV2  RegisterSetType = 1 // 80286 LOADALL, 102 bytes
	RegSetV3  RegisterSetType = 2 // 80386 LOADALL, 204/208 bytes
)

// String names a command for error messages and trace logs.
func (c Command) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return "Unknown"
}

var commandNames = [...]string{
	"Null", "Version", "Reset", "Load", "Cycle", "ReadAddrLatch",
	"ReadStatus", "Read8288Command", "Read8288Control", "ReadDataBus",
	"WriteDataBus", "Finalize", "BeginStore", "Store", "QueueLen",
	"QueueBytes", "WritePin", "ReadPin", "GetProgramState", "GetLastError",
	"GetCycleState", "PrefetchStore", "ReadAddressU", "CPUType", "SetFlags",
	"Prefetch", "InitScreen", "StoreAll", "SetRandomSeed", "RandomizeMemory",
	"SetMemory", "GetCycleStates", "EnableDebug", "SetMemoryStrategy",
	"GetFlags",
}
