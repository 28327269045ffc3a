package gcode

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// LineTerminator is appended to every command on the wire.
const LineTerminator = "\r\n"

// ValidateCommand reports whether cmd can be transmitted.
//
// It returns an error wrapping ErrInvalidCommand for an empty command or one
// that contains CR or LF, and an error wrapping ErrEncoding when cmd contains
// anything outside 7-bit ASCII.
func ValidateCommand(cmd string) error {
	if cmd == "" {
		return fmt.Errorf("%w: empty command", ErrInvalidCommand)
	}

	if i := strings.IndexAny(cmd, "\r\n"); i >= 0 {
		return fmt.Errorf("%w: line terminator at offset %d", ErrInvalidCommand, i)
	}

	for i := 0; i < len(cmd); i++ {
		if cmd[i] >= utf8.RuneSelf {
			r, _ := utf8.DecodeRuneInString(cmd[i:])
			return fmt.Errorf("%w: %q at offset %d", ErrEncoding, r, i)
		}
	}

	return nil
}

// EncodeCommand validates cmd and returns its wire form, cmd followed by CR LF.
func EncodeCommand(cmd string) ([]byte, error) {
	if err := ValidateCommand(cmd); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(cmd)+len(LineTerminator))
	buf = append(buf, cmd...)
	buf = append(buf, LineTerminator...)

	return buf, nil
}

// LeadingToken returns the first whitespace-separated field of cmd,
// e.g. "G28" for "G28 X Y". It returns "" for a blank command.
func LeadingToken(cmd string) string {
	cmd = strings.TrimLeft(cmd, " \t")
	if i := strings.IndexAny(cmd, " \t"); i >= 0 {
		return cmd[:i]
	}

	return cmd
}
