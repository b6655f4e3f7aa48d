//go:build linux

package transport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)

var standardBauds = map[uint32]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	2000000: unix.B2000000,
}

// setBaud sets t's input/output speed to baud, which must be one of the
// standard rates in standardBauds (the arduinoX86 firmware runs fixed,
// well-known baud rates — no BOTHER/custom-divisor support is needed).
func setBaud(t *unix.Termios, baud uint32) error {
	b, ok := standardBauds[baud]
	if !ok {
		return fmt.Errorf("transport: unsupported baud rate %d", baud)
	}
	t.Cflag &^= unix.CBAUD
	t.Cflag |= b
	t.Ispeed = baud
	t.Ospeed = baud
	return nil
}
