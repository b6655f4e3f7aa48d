//go:build linux

// Package transport owns the serial link to the arduinoX86 target board:
// raw-mode termios configuration, half-duplex write/read framing, and
// input-flush semantics, grounded on the termios/ioctl approach other
// serial libraries in the example corpus use (spec.md §4, wire.Port).
package transport

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Serial is a raw-mode serial port implementing wire.Port.
type Serial struct {
	fd      int
	timeout time.Duration
}

// Open opens name (e.g. "/dev/ttyUSB0") at baud, puts it into raw mode
// with no flow control, and applies readTimeout to every ReadFull call.
func Open(name string, baud uint32, readTimeout time.Duration) (*Serial, error) {
	fd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", name, err)
	}

	// Clear O_NONBLOCK now that the open (which needs it to avoid
	// blocking on DCD) has succeeded; reads/writes block per VMIN/VTIME
	// below instead.
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err == nil {
		unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags&^unix.O_NONBLOCK)
	}

	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: get termios: %w", err)
	}
	makeRaw(t)
	if err := setBaud(t, baud); err != nil {
		unix.Close(fd)
		return nil, err
	}
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, t); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: set termios: %w", err)
	}

	s := &Serial{fd: fd, timeout: readTimeout}
	if err := s.DiscardInput(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return s, nil
}

// Write blocks until all of p is sent.
func (s *Serial) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := unix.Write(s.fd, p[total:])
		if err != nil {
			return total, fmt.Errorf("transport: write: %w", err)
		}
		total += n
	}
	return total, nil
}

// ReadFull blocks until len(p) bytes are read or the configured read
// timeout elapses, polling the descriptor since VMIN/VTIME is set to
// return immediately with whatever is available.
func (s *Serial) ReadFull(p []byte) (int, error) {
	deadline := time.Now().Add(s.timeout)
	total := 0
	for total < len(p) {
		if s.timeout > 0 && time.Now().After(deadline) {
			return total, fmt.Errorf("transport: read timed out after %d/%d bytes", total, len(p))
		}
		n, err := unix.Read(s.fd, p[total:])
		if err != nil {
			return total, fmt.Errorf("transport: read: %w", err)
		}
		if n == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		total += n
	}
	return total, nil
}

// DiscardInput drops any bytes buffered in the kernel's receive queue but
// not yet read, matching TCFLSH(TCIFLUSH).
func (s *Serial) DiscardInput() error {
	return unix.IoctlSetInt(s.fd, unix.TCFLSH, unix.TCIFLUSH)
}

// Close releases the underlying file descriptor.
func (s *Serial) Close() error {
	return unix.Close(s.fd)
}

func makeRaw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CRTSCTS
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
}
