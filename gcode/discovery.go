package gcode

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes one serial port present on the host.
type PortInfo struct {
	// Name is the device name passed to PortOpener, e.g. /dev/ttyUSB0 or COM3.
	Name string
	// HWID is a free-form hardware identification string, e.g.
	// "USB VID:PID=1A86:7523 SER=5678".
	HWID string
}

// PortEnumerator lists the serial ports currently present.
type PortEnumerator interface {
	Enumerate() ([]PortInfo, error)
}

// PortEnumeratorFunc adapts a function to PortEnumerator.
type PortEnumeratorFunc func() ([]PortInfo, error)

// Enumerate implements PortEnumerator.
func (f PortEnumeratorFunc) Enumerate() ([]PortInfo, error) {
	return f()
}

// StaticPorts is a fixed PortEnumerator.
type StaticPorts []PortInfo

// Enumerate implements PortEnumerator.
func (p StaticPorts) Enumerate() ([]PortInfo, error) {
	return p, nil
}

// SerialEnumerator enumerates ports through go.bug.st/serial/enumerator.
type SerialEnumerator struct{}

var _ PortEnumerator = SerialEnumerator{}

// Enumerate implements PortEnumerator.
func (SerialEnumerator) Enumerate() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("gcode: enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{Name: d.Name, HWID: formatHWID(d)})
	}

	return ports, nil
}

// formatHWID renders USB details the way pyserial's list_ports does, so HWID
// selectors written for existing setups ("1A86:7523") keep matching.
func formatHWID(d *enumerator.PortDetails) string {
	if !d.IsUSB {
		return "n/a"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "USB VID:PID=%s:%s", strings.ToUpper(d.VID), strings.ToUpper(d.PID))
	if d.SerialNumber != "" {
		fmt.Fprintf(&sb, " SER=%s", d.SerialNumber)
	}

	return sb.String()
}

// SelectPort returns the first port whose HWID contains selector.
func SelectPort(ports []PortInfo, selector string) (PortInfo, bool) {
	if selector == "" {
		return PortInfo{}, false
	}

	for _, p := range ports {
		if strings.Contains(p.HWID, selector) {
			return p, true
		}
	}

	return PortInfo{}, false
}
