//go:build linux

package transport

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestMakeRawClearsCookedModeBits(t *testing.T) {
	var t0 unix.Termios
	t0.Iflag = unix.ICRNL | unix.IXON
	t0.Oflag = unix.OPOST
	t0.Lflag = unix.ICANON | unix.ECHO | unix.ISIG
	t0.Cflag = unix.CS7 | unix.PARENB

	makeRaw(&t0)

	if t0.Lflag&unix.ICANON != 0 {
		t.Fatal("ICANON should be cleared by makeRaw")
	}
	if t0.Oflag&unix.OPOST != 0 {
		t.Fatal("OPOST should be cleared by makeRaw")
	}
	if t0.Cflag&unix.CS8 == 0 {
		t.Fatal("CS8 should be set by makeRaw")
	}
}

func TestSetBaudRejectsNonstandardRate(t *testing.T) {
	var t0 unix.Termios
	if err := setBaud(&t0, 123456); err == nil {
		t.Fatal("expected error for unsupported baud rate")
	}
}

func TestSetBaudAcceptsStandardRate(t *testing.T) {
	var t0 unix.Termios
	if err := setBaud(&t0, 115200); err != nil {
		t.Fatalf("setBaud(115200): %v", err)
	}
	if t0.Ispeed != 115200 || t0.Ospeed != 115200 {
		t.Fatalf("Ispeed/Ospeed = %d/%d, want 115200", t0.Ispeed, t0.Ospeed)
	}
}
