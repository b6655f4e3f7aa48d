// Package discovery enumerates candidate serial devices and probes each
// for a live arduinoX86 server (spec.md §4.1, §9 Open Questions). Port
// enumeration is a directory glob over the well-known /dev device
// namespaces: no third-party USB/serial enumeration library appears
// anywhere in the example corpus, so this one piece is stdlib by
// necessity (see DESIGN.md).
package discovery

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ardx86/testgen/internal/wire"
)

// CandidatePatterns are the device globs checked, in order, when no port
// is given explicitly.
var CandidatePatterns = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
}

// Candidates returns every device path matching CandidatePatterns,
// sorted for deterministic probe order.
func Candidates() ([]string, error) {
	var all []string
	for _, pattern := range CandidatePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("discovery: glob %s: %w", pattern, err)
		}
		all = append(all, matches...)
	}
	sort.Strings(all)
	return all, nil
}

// Probe is the subset of wire.Port discovery needs directly, bypassing
// wire.Client's result-code handshake: the VERSION reply's trailing byte
// is read but not checked (spec.md §4.1's discovery flow is special-cased).
type Probe interface {
	Write(p []byte) (int, error)
	ReadFull(p []byte) (int, error)
	DiscardInput() error
}

// VersionReplyLen is VersionMagic (7 bytes) plus one protocol-version byte
// and one trailing byte: 9 bytes.
const VersionReplyLen = len(wire.VersionMagic) + 2

// ErrBadMagic / ErrVersionMismatch report a probe that answered but isn't
// a compatible arduinoX86 server.
type ErrBadMagic struct{ Got [7]byte }

func (e ErrBadMagic) Error() string {
	return fmt.Sprintf("discovery: unexpected version magic %q", e.Got[:])
}

type ErrVersionMismatch struct{ Got byte }

func (e ErrVersionMismatch) Error() string {
	return fmt.Sprintf("discovery: protocol version %d, want %d", e.Got, wire.RequiredProtocolVersion)
}

// ProbeVersion sends CmdVersion, reads the fixed 9-byte reply, and
// validates bytes 0..6 against VersionMagic and byte 7 against
// RequiredProtocolVersion; byte 8 is not examined. It does not go through
// wire.Client.roundTrip, so that trailing byte is never interpreted as a
// result code (spec.md §4.1).
func ProbeVersion(p Probe) (byte, error) {
	if err := p.DiscardInput(); err != nil {
		return 0, fmt.Errorf("discovery: discard input: %w", err)
	}
	if _, err := p.Write([]byte{byte(wire.CmdVersion)}); err != nil {
		return 0, fmt.Errorf("discovery: write VERSION: %w", err)
	}
	resp := make([]byte, VersionReplyLen)
	if _, err := p.ReadFull(resp); err != nil {
		return 0, fmt.Errorf("discovery: read VERSION reply: %w", err)
	}
	var magic [7]byte
	copy(magic[:], resp[:7])
	if string(magic[:]) != wire.VersionMagic {
		return 0, ErrBadMagic{Got: magic}
	}
	version := resp[7]
	if version != wire.RequiredProtocolVersion {
		return version, ErrVersionMismatch{Got: version}
	}
	return version, nil
}

// PortOpener abstracts transport.Open so Find can be tested without real
// hardware.
type PortOpener func(name string, baud uint32, timeout time.Duration) (interface {
	Probe
	Close() error
}, error)

// Find opens each candidate in turn at baud and returns the first one
// that answers ProbeVersion successfully, closing every port it rejects.
func Find(opener PortOpener, baud uint32, timeout time.Duration) (string, error) {
	candidates, err := Candidates()
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("discovery: no candidate serial devices found (checked %v)", CandidatePatterns)
	}
	var errs []error
	for _, name := range candidates {
		port, err := opener(name, baud, timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		_, verr := ProbeVersion(port)
		port.Close()
		if verr == nil {
			return name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, verr))
	}
	return "", fmt.Errorf("discovery: no arduinoX86 server found among %v: %v", candidates, errs)
}
