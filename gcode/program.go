package gcode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseProgram reads a Gcode program, one command per line. Text after ';'
// is a comment and is dropped, as are blank lines and surrounding whitespace.
func ParseProgram(r io.Reader) ([]string, error) {
	cmds := make([]string, 0)

	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := sc.Text()
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := ValidateCommand(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		cmds = append(cmds, line)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("gcode: read program: %w", err)
	}

	return cmds, nil
}

// ParseProgramFile reads a Gcode program from path.
func ParseProgramFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gcode: open program: %w", err)
	}
	defer f.Close()

	return ParseProgram(f)
}
