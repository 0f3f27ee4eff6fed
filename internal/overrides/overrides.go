// Package overrides holds the hand-maintained cultural guidance table. Entries
// are keyed by case ID, or by a stated origin label for cases without a
// per-case entry.
package overrides

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table maps cases and origins to prompt guidance. The zero value is an
// empty table.
type Table struct {
	Cases   map[int]string    `yaml:"cases"`
	Origins map[string]string `yaml:"origins"`
}

// Load reads a YAML table from path. An empty path or a missing file yields
// an empty table.
func Load(path string) (*Table, error) {
	if path == "" {
		return &Table{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read overrides %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	if len(t.Origins) > 0 {
		norm := make(map[string]string, len(t.Origins))
		for k, v := range t.Origins {
			norm[normalizeOrigin(k)] = v
		}
		t.Origins = norm
	}
	return &t, nil
}

// Lookup returns the guidance for a case, falling back to its origin.
func (t *Table) Lookup(caseID int, origin string) (string, bool) {
	if t == nil {
		return "", false
	}
	if g, ok := t.Cases[caseID]; ok && strings.TrimSpace(g) != "" {
		return strings.TrimSpace(g), true
	}
	if origin == "" {
		return "", false
	}
	if g, ok := t.Origins[normalizeOrigin(origin)]; ok && strings.TrimSpace(g) != "" {
		return strings.TrimSpace(g), true
	}
	return "", false
}

// Len is the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Cases) + len(t.Origins)
}

func normalizeOrigin(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
