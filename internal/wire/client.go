package wire

import (
	"fmt"
)

// Client drives the request/reply handshake over a Port. It is not
// goroutine-safe: the transport contract (spec.md §5) requires exactly one
// in-flight command at a time.
type Client struct {
	port Port
}

// NewClient wraps port with the command-level protocol.
func NewClient(port Port) *Client {
	return &Client{port: port}
}

// send transmits cmd followed by payload, discarding any stale input first.
func (c *Client) send(cmd Command, payload []byte) error {
	if err := c.port.DiscardInput(); err != nil {
		return WriteFailure(cmd, err)
	}
	if _, err := c.port.Write([]byte{byte(cmd)}); err != nil {
		return WriteFailure(cmd, err)
	}
	if len(payload) > 0 {
		if _, err := c.port.Write(payload); err != nil {
			return WriteFailure(cmd, err)
		}
	}
	return nil
}

// recvFixed reads exactly n response bytes followed by the 1-byte result
// code, and returns the response bytes. It is the workhorse for every
// command whose reply has a statically known length.
func (c *Client) recvFixed(cmd Command, n int) ([]byte, error) {
	resp := make([]byte, n)
	if n > 0 {
		if _, err := c.port.ReadFull(resp); err != nil {
			return nil, ReadFailure(cmd, err)
		}
	}
	var res [1]byte
	if _, err := c.port.ReadFull(res[:]); err != nil {
		return nil, ReadFailure(cmd, err)
	}
	if !ResultOK(res[0]) {
		return nil, CommandFailed(cmd)
	}
	return resp, nil
}

// roundTrip is the common send-then-fixed-reply path.
func (c *Client) roundTrip(cmd Command, payload []byte, replyLen int) ([]byte, error) {
	if err := c.send(cmd, payload); err != nil {
		return nil, err
	}
	return c.recvFixed(cmd, replyLen)
}

// Null pings the server with a no-op command.
func (c *Client) Null() error {
	_, err := c.roundTrip(CmdNull, nil, 0)
	return err
}

// Reset pulses the CPU reset line.
func (c *Client) Reset() error {
	_, err := c.roundTrip(CmdReset, nil, 0)
	return err
}

// Load uploads a register set of the given type. payload is the
// already-serialized, layout-exact register buffer (see internal/registers).
func (c *Client) Load(setType RegisterSetType, payload []byte) error {
	buf := append([]byte{byte(setType)}, payload...)
	_, err := c.roundTrip(CmdLoad, buf, 0)
	return err
}

// StoreResult is the type-tagged register readback from STORE/STOREALL.
type StoreResult struct {
	SetType RegisterSetType
	Payload []byte
}

// storeSizes gives the payload length for each register-set type, used to
// size the fixed read after the type-tag byte.
var storeSizes = map[RegisterSetType]int{
	RegSetV1: 28,
	RegSetV2: 102,
	// V3 is ambiguous between 204 (V3A) and 208 (V3B) bytes; callers that
	// need STORE against a 386 must use StoreSized with the variant they
	// uploaded.
}

// Store issues STORE (or, if all=true, STOREALL) and reads back a
// type-tagged register buffer. For V3 register sets use StoreSized.
func (c *Client) Store(all bool) (*StoreResult, error) {
	cmd := CmdStore
	if all {
		cmd = CmdStoreAll
	}
	if err := c.send(cmd, nil); err != nil {
		return nil, err
	}
	typeByte, err := c.recvFixed(cmd, 1)
	if err != nil {
		return nil, err
	}
	setType := RegisterSetType(typeByte[0])
	size, ok := storeSizes[setType]
	if !ok {
		return nil, BadValue(cmd, fmt.Sprintf("unknown register set type %d for fixed Store; use StoreSized", setType))
	}
	payload, err := c.recvFixed(cmd, size)
	if err != nil {
		return nil, err
	}
	return &StoreResult{SetType: setType, Payload: payload}, nil
}

// StoreSized behaves like Store but the caller declares the exact V3
// payload length (204 for V3A, 208 for V3B) since the type byte alone
// cannot disambiguate.
func (c *Client) StoreSized(all bool, v3Size int) (*StoreResult, error) {
	cmd := CmdStore
	if all {
		cmd = CmdStoreAll
	}
	if err := c.send(cmd, nil); err != nil {
		return nil, err
	}
	typeByte, err := c.recvFixed(cmd, 1)
	if err != nil {
		return nil, err
	}
	setType := RegisterSetType(typeByte[0])
	size, ok := storeSizes[setType]
	if !ok {
		size = v3Size
	}
	payload, err := c.recvFixed(cmd, size)
	if err != nil {
		return nil, err
	}
	return &StoreResult{SetType: setType, Payload: payload}, nil
}

// CycleReply is one cycle state as returned by CycleStep.
type CycleReply struct {
	ProgramState byte
	StateBits    byte
	StatusBits   byte
	CtrlBits     byte
	CmdBits      byte
	AddrBus      uint32
	DataBus      uint16
}

// CycleStep requests one cycle state, optionally stepping the CPU clock
// (step=true corresponds to the wire's step byte 1, false to 0).
func (c *Client) CycleStep(step bool) (CycleReply, error) {
	var stepByte byte
	if step {
		stepByte = 1
	}
	buf, err := c.roundTrip(CmdGetCycleState, []byte{stepByte}, 11)
	if err != nil {
		return CycleReply{}, err
	}
	return CycleReply{
		ProgramState: buf[0],
		StateBits:    buf[1],
		StatusBits:   buf[2],
		CtrlBits:     buf[3],
		CmdBits:      buf[4],
		AddrBus:      U32(buf[5:9]),
		DataBus:      U16(buf[9:11]),
	}, nil
}

// CycleStatesBatch requests the accumulated cycle log since the last
// fetch. stride is data_size/count as specified in spec.md §4.1.
func (c *Client) CycleStatesBatch() (count uint32, stride uint32, data []byte, err error) {
	if err = c.send(CmdGetCycleStates, nil); err != nil {
		return
	}
	hdr, err := c.recvFixed(CmdGetCycleStates, 8)
	if err != nil {
		return
	}
	count = U32(hdr[0:4])
	dataSize := U32(hdr[4:8])
	if dataSize > 0 {
		data = make([]byte, dataSize)
		if _, rerr := c.port.ReadFull(data); rerr != nil {
			err = ReadFailure(CmdGetCycleStates, rerr)
			return
		}
		var res [1]byte
		if _, rerr := c.port.ReadFull(res[:]); rerr != nil {
			err = ReadFailure(CmdGetCycleStates, rerr)
			return
		}
		if !ResultOK(res[0]) {
			err = CommandFailed(CmdGetCycleStates)
			return
		}
	}
	if count > 0 {
		stride = dataSize / count
	}
	return
}

// Finalize signals the instruction boundary has been reached.
func (c *Client) Finalize() error {
	_, err := c.roundTrip(CmdFinalize, nil, 0)
	return err
}

// BeginStore signals the client is about to STORE.
func (c *Client) BeginStore() error {
	_, err := c.roundTrip(CmdBeginStore, nil, 0)
	return err
}

// QueueLen returns the simulated prefetch queue length the server reports.
func (c *Client) QueueLen() (uint8, error) {
	buf, err := c.roundTrip(CmdQueueLen, nil, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// QueueBytes returns the raw bytes currently sitting in the server's queue.
func (c *Client) QueueBytes(n int) ([]byte, error) {
	return c.roundTrip(CmdQueueBytes, nil, n)
}

// GetProgramState polls the orchestrator's program state byte.
func (c *Client) GetProgramState() (byte, error) {
	buf, err := c.roundTrip(CmdGetProgramState, nil, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// GetLastError reads a variable-length error string: a 1-byte count
// followed by that many ASCII bytes, then the result code.
func (c *Client) GetLastError() (string, error) {
	if err := c.send(CmdGetLastError, nil); err != nil {
		return "", err
	}
	n, err := c.recvFixed(CmdGetLastError, 1)
	if err != nil {
		return "", err
	}
	count := int(n[0])
	if count == 0 {
		return "", nil
	}
	msg := make([]byte, count)
	if _, rerr := c.port.ReadFull(msg); rerr != nil {
		return "", ReadFailure(CmdGetLastError, rerr)
	}
	var res [1]byte
	if _, rerr := c.port.ReadFull(res[:]); rerr != nil {
		return "", ReadFailure(CmdGetLastError, rerr)
	}
	if !ResultOK(res[0]) {
		return "", CommandFailed(CmdGetLastError)
	}
	return string(msg), nil
}

// PrefetchStore asks the server to serve a CODE-fetch from out-of-bounds
// program memory via the prefetch-store side channel (spec.md §4.2 step 6).
func (c *Client) PrefetchStore(data []byte) error {
	_, err := c.roundTrip(CmdPrefetchStore, data, 0)
	return err
}

// ReadAddressU reads the 32-bit unlatched address bus.
func (c *Client) ReadAddressU() (uint32, error) {
	buf, err := c.roundTrip(CmdReadAddressU, nil, 4)
	if err != nil {
		return 0, err
	}
	return U32(buf), nil
}

// CPUType reads the CPU-type byte (see internal/cpuid).
func (c *Client) CPUType() (byte, error) {
	buf, err := c.roundTrip(CmdCPUType, nil, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// SetFlags / GetFlags manipulate the server flags bitfield (spec.md §6).
func (c *Client) SetFlags(flags uint32) error {
	buf := AppendU32(nil, flags)
	_, err := c.roundTrip(CmdSetFlags, buf, 0)
	return err
}

func (c *Client) GetFlags() (uint32, error) {
	buf, err := c.roundTrip(CmdGetFlags, nil, 4)
	if err != nil {
		return 0, err
	}
	return U32(buf), nil
}

// SetRandomSeed seeds the server-side memory randomizer.
func (c *Client) SetRandomSeed(seed uint32) error {
	buf := AppendU32(nil, seed)
	_, err := c.roundTrip(CmdSetRandomSeed, buf, 0)
	return err
}

// RandomizeMemory triggers the configured memory-fill strategy.
func (c *Client) RandomizeMemory() error {
	_, err := c.roundTrip(CmdRandomizeMemory, nil, 0)
	return err
}

// SetMemory writes size bytes of data at addr into the server's simulated
// memory.
func (c *Client) SetMemory(addr, size uint32, data []byte) error {
	if uint32(len(data)) != size {
		return BadParameter(CmdSetMemory, fmt.Sprintf("declared size %d != len(data) %d", size, len(data)))
	}
	buf := AppendU32(nil, addr)
	buf = AppendU32(buf, size)
	buf = append(buf, data...)
	_, err := c.roundTrip(CmdSetMemory, buf, 0)
	return err
}

// EnableDebug toggles server-side debug tracing.
func (c *Client) EnableDebug(enable bool) error {
	var b byte
	if enable {
		b = 1
	}
	_, err := c.roundTrip(CmdEnableDebug, []byte{b}, 0)
	return err
}

// SetMemoryStrategy selects the memory-fill policy (zero/ones/random) used
// by RandomizeMemory.
func (c *Client) SetMemoryStrategy(strategy byte) error {
	_, err := c.roundTrip(CmdSetMemoryStrategy, []byte{strategy}, 0)
	return err
}

// WritePin / ReadPin manipulate individual board pins by index.
func (c *Client) WritePin(pin byte, high bool) error {
	var v byte
	if high {
		v = 1
	}
	_, err := c.roundTrip(CmdWritePin, []byte{pin, v}, 0)
	return err
}

func (c *Client) ReadPin(pin byte) (bool, error) {
	buf, err := c.roundTrip(CmdReadPin, []byte{pin}, 1)
	if err != nil {
		return false, err
	}
	return buf[0] != 0, nil
}

// ReadAddrLatch / ReadStatus / Read8288Command / Read8288Control / ReadDataBus
// read the individual pin groups outside of the batched GetCycleState path;
// useful for discovery diagnostics and the orchestrator's recovery paths.
func (c *Client) ReadAddrLatch() (uint32, error) {
	buf, err := c.roundTrip(CmdReadAddrLatch, nil, 4)
	if err != nil {
		return 0, err
	}
	return U32(buf), nil
}

func (c *Client) ReadStatus() (byte, error) {
	buf, err := c.roundTrip(CmdReadStatus, nil, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (c *Client) Read8288Command() (byte, error) {
	buf, err := c.roundTrip(CmdRead8288Command, nil, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (c *Client) Read8288Control() (byte, error) {
	buf, err := c.roundTrip(CmdRead8288Control, nil, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (c *Client) ReadDataBus() (uint16, error) {
	buf, err := c.roundTrip(CmdReadDataBus, nil, 2)
	if err != nil {
		return 0, err
	}
	return U16(buf), nil
}

func (c *Client) WriteDataBus(v uint16) error {
	buf := AppendU16(nil, v)
	_, err := c.roundTrip(CmdWriteDataBus, buf, 0)
	return err
}

// Prefetch primes the server's queue with the preload program without
// beginning execution.
func (c *Client) Prefetch() error {
	_, err := c.roundTrip(CmdPrefetch, nil, 0)
	return err
}

// InitScreen resets any on-board diagnostic display.
func (c *Client) InitScreen() error {
	_, err := c.roundTrip(CmdInitScreen, nil, 0)
	return err
}
