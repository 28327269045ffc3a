// Package fakeprinter provides an in-process device that speaks the Gcode
// acknowledgment protocol, for running the CLI and examples without hardware.
package fakeprinter

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"regexp"

	"github.com/arloliu/go-gcode/gcode"
)

// PortName is the name reported for fake ports.
const PortName = "fake"

var (
	m105Re = regexp.MustCompile(`^[mM]105\b`)
	m115Re = regexp.MustCompile(`^[mM]115\b`)
)

// Open returns the host end of a new fake printer. The printer answers every
// command with "ok", preceded by a status line for M105 and M115, and stops
// when the returned port is closed.
func Open() io.ReadWriteCloser {
	host, device := net.Pipe()
	go serve(device)

	return host
}

// Opener returns a gcode.PortOpener that opens a fresh fake printer for any
// port name.
func Opener() gcode.PortOpener {
	return gcode.PortOpenerFunc(func(string, gcode.PortParams) (io.ReadWriteCloser, error) {
		return Open(), nil
	})
}

// Enumerator lists a single fake port with the Ender 3 HWID.
func Enumerator() gcode.PortEnumerator {
	return gcode.StaticPorts{{Name: PortName, HWID: "USB VID:PID=" + gcode.Ender3HWID + " SER=FAKE"}}
}

func serve(conn net.Conn) {
	defer conn.Close()

	s := bufio.NewScanner(conn)
	for s.Scan() {
		t := s.Text()
		switch {
		case m105Re.MatchString(t):
			fmt.Fprintln(conn, "T:21.0 /0.0 B:20.5 /0.0")
		case m115Re.MatchString(t):
			fmt.Fprintln(conn, "FIRMWARE_NAME:fakeprinter PROTOCOL_VERSION:1.0")
		}

		if _, err := fmt.Fprintln(conn, "ok"); err != nil {
			return
		}
	}
}
