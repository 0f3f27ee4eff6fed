package overrides

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
cases:
  12: "Wears a plain navy hijab."
  40: "  "
origins:
  "Punjabi  Sikh": "Dastar (turban) in a dark colour."
`

func TestParseAndLookup(t *testing.T) {
	tbl, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	g, ok := tbl.Lookup(12, "")
	assert.True(t, ok)
	assert.Equal(t, "Wears a plain navy hijab.", g)

	g, ok = tbl.Lookup(40, "punjabi sikh")
	assert.True(t, ok, "blank case entry falls through to origin")
	assert.Equal(t, "Dastar (turban) in a dark colour.", g)

	_, ok = tbl.Lookup(99, "unspecified")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	tbl, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())

	tbl, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())

	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	tbl, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	require.NoError(t, os.WriteFile(path, []byte("cases: [not, a, map"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	_, ok := tbl.Lookup(1, "x")
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}
