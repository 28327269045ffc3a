package gcode

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgram(t *testing.T) {
	src := "; square.gcode\r\n" +
		"G28 ; home\r\n" +
		"\r\n" +
		"   G1 X10 Y10 F3000\n" +
		";G1 X99\n" +
		"M84\n"

	cmds, err := ParseProgram(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"G28", "G1 X10 Y10 F3000", "M84"}, cmds)
}

func TestParseProgram_Empty(t *testing.T) {
	cmds, err := ParseProgram(strings.NewReader("; nothing here\n\n"))
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestParseProgram_NonASCII(t *testing.T) {
	_, err := ParseProgram(strings.NewReader("G28\nM117 Grüße\n"))
	require.ErrorIs(t, err, ErrEncoding)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseProgramFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.gcode")
	require.NoError(t, os.WriteFile(path, []byte("G28\nG1 Z5 ; lift\n"), 0o600))

	cmds, err := ParseProgramFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"G28", "G1 Z5"}, cmds)

	_, err = ParseProgramFile(filepath.Join(t.TempDir(), "missing.gcode"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
