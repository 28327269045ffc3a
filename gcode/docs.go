package gcode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DocEntry is the human-readable description of a Gcode command.
type DocEntry struct {
	Brief string `yaml:"brief"`
	Title string `yaml:"title,omitempty"`
	Group string `yaml:"group,omitempty"`
}

// DocTable looks up the description of a command by its leading token.
//
// A missing entry is not an error; Lookup reports it through the boolean.
type DocTable interface {
	Lookup(token string) (DocEntry, bool)
}

// MapDocTable is a read-only, in-memory DocTable keyed by exact token.
type MapDocTable map[string]DocEntry

var _ DocTable = MapDocTable(nil)

// Lookup implements DocTable.
func (t MapDocTable) Lookup(token string) (DocEntry, bool) {
	entry, ok := t[token]
	return entry, ok
}

// LoadDocTable parses a YAML document mapping command tokens to entries:
//
//	G28:
//	  title: Auto Home
//	  brief: Auto home one or more axes.
//
// Briefs are trimmed of surrounding whitespace, which YAML block scalars
// tend to leave behind.
func LoadDocTable(r io.Reader) (MapDocTable, error) {
	raw := make(map[string]DocEntry)

	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return MapDocTable{}, nil
		}

		return nil, fmt.Errorf("gcode: decode doc table: %w", err)
	}

	table := make(MapDocTable, len(raw))
	for token, entry := range raw {
		entry.Brief = strings.TrimSpace(entry.Brief)
		entry.Title = strings.TrimSpace(entry.Title)
		table[token] = entry
	}

	return table, nil
}

// LoadDocTableFile reads a YAML doc table from path.
func LoadDocTableFile(path string) (MapDocTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gcode: open doc table: %w", err)
	}
	defer f.Close()

	return LoadDocTable(f)
}
