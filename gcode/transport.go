package gcode

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Fixed serial line parameters used by Marlin-style firmware.
const (
	DefaultBaudRate = 115200
	DefaultDataBits = 8
	DefaultStopBits = 1
)

// PortParams describes how a serial port is opened.
//
// There is deliberately no read timeout: reads block until a line arrives and
// the acknowledgment timeout is enforced by the Link.
type PortParams struct {
	BaudRate int
	DataBits int
	StopBits int
}

// DefaultPortParams returns 115200 baud, 8 data bits, 1 stop bit.
func DefaultPortParams() PortParams {
	return PortParams{
		BaudRate: DefaultBaudRate,
		DataBits: DefaultDataBits,
		StopBits: DefaultStopBits,
	}
}

// PortOpener opens a transport endpoint by device name.
type PortOpener interface {
	Open(name string, params PortParams) (io.ReadWriteCloser, error)
}

// PortOpenerFunc adapts a function to PortOpener.
type PortOpenerFunc func(name string, params PortParams) (io.ReadWriteCloser, error)

// Open implements PortOpener.
func (f PortOpenerFunc) Open(name string, params PortParams) (io.ReadWriteCloser, error) {
	return f(name, params)
}

// SerialOpener opens real serial ports through go.bug.st/serial.
type SerialOpener struct{}

var _ PortOpener = SerialOpener{}

// Open implements PortOpener.
func (SerialOpener) Open(name string, params PortParams) (io.ReadWriteCloser, error) {
	mode, err := params.serialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}

	return port, nil
}

func (p PortParams) serialMode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: p.BaudRate,
		DataBits: p.DataBits,
		Parity:   serial.NoParity,
	}

	switch p.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("gcode: unsupported stop bits %d", p.StopBits)
	}

	return mode, nil
}
