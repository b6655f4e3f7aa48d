package discovery

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ardx86/testgen/internal/wire"
)

type fakeProbe struct {
	written  bytes.Buffer
	reply    []byte
	readErr  error
	discards int
}

func (f *fakeProbe) Write(p []byte) (int, error) { return f.written.Write(p) }
func (f *fakeProbe) ReadFull(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	n := copy(p, f.reply)
	return n, nil
}
func (f *fakeProbe) DiscardInput() error { f.discards++; return nil }

func goodReply() []byte {
	return append([]byte(wire.VersionMagic), wire.RequiredProtocolVersion)
}

func TestProbeVersionAccepts(t *testing.T) {
	p := &fakeProbe{reply: goodReply()}
	version, err := ProbeVersion(p)
	if err != nil {
		t.Fatalf("ProbeVersion: %v", err)
	}
	if version != wire.RequiredProtocolVersion {
		t.Fatalf("version = %d, want %d", version, wire.RequiredProtocolVersion)
	}
	if p.written.Len() != 1 || p.written.Bytes()[0] != byte(wire.CmdVersion) {
		t.Fatalf("expected single CmdVersion byte written, got %v", p.written.Bytes())
	}
}

func TestProbeVersionRejectsBadMagic(t *testing.T) {
	bad := append([]byte("xxxxxxx"), wire.RequiredProtocolVersion)
	p := &fakeProbe{reply: bad}
	_, err := ProbeVersion(p)
	var magicErr ErrBadMagic
	if !errors.As(err, &magicErr) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestProbeVersionRejectsVersionMismatch(t *testing.T) {
	reply := append([]byte(wire.VersionMagic), wire.RequiredProtocolVersion+1)
	p := &fakeProbe{reply: reply}
	_, err := ProbeVersion(p)
	var verErr ErrVersionMismatch
	if !errors.As(err, &verErr) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestProbeVersionAcceptsOnlyAnsweringPort(t *testing.T) {
	calls := 0
	opener := func(name string, baud uint32, timeout time.Duration) (interface {
		Probe
		Close() error
	}, error) {
		calls++
		reply := goodReply()
		if name != "/dev/ttyUSB1" {
			reply = []byte("noooooo\x00")
		}
		return &fakePort{fakeProbe: fakeProbe{reply: reply}}, nil
	}
	// Find globs real /dev entries, so directly exercise ProbeVersion's
	// selection logic instead via a synthetic candidate list by calling
	// the opener against two names manually (Find's glob step is covered
	// by Candidates, which depends on the real filesystem).
	p1, _ := opener("/dev/ttyUSB0", 115200, time.Second)
	if _, err := ProbeVersion(p1); err == nil {
		t.Fatal("expected /dev/ttyUSB0 to fail probing in this synthetic setup")
	}
	p2, _ := opener("/dev/ttyUSB1", 115200, time.Second)
	if _, err := ProbeVersion(p2); err != nil {
		t.Fatalf("expected /dev/ttyUSB1 to probe successfully: %v", err)
	}
	if calls != 2 {
		t.Fatalf("opener called %d times, want 2", calls)
	}
}

type fakePort struct{ fakeProbe }

func (f *fakePort) Close() error { return nil }
