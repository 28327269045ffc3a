package gcode

import "errors"

var (
	// ErrConnection indicates that no matching device was found or the
	// transport could not be opened. No command can be sent on the link.
	ErrConnection = errors.New("gcode: connection error")

	// ErrEncoding indicates that a command contains characters outside the
	// single-byte ASCII range. Only that command is rejected.
	ErrEncoding = errors.New("gcode: command is not ASCII")

	// ErrInvalidCommand indicates an empty command or one containing an
	// embedded line terminator. It is reported before anything is transmitted.
	ErrInvalidCommand = errors.New("gcode: invalid command")

	// ErrNotConnected indicates that the link is not in a state that accepts commands.
	ErrNotConnected = errors.New("gcode: link is not connected")

	// ErrConnClosed indicates that the link was closed, the device stopped
	// responding at the transport level, or the link context ended while a
	// command was in flight.
	ErrConnClosed = errors.New("gcode: connection closed")

	// ErrTransport indicates that writing to the transport failed.
	ErrTransport = errors.New("gcode: transport write failed")
)

var (
	// ErrLinkExists is returned by Registry.Add when the name is already taken.
	ErrLinkExists = errors.New("gcode: link already registered")

	// ErrLinkNotFound is returned by Registry lookups for unknown names.
	ErrLinkNotFound = errors.New("gcode: link not found")
)
