package records

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteSource_FetchCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE patients (case_id INTEGER, Name TEXT, Notes TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO patients VALUES (1, 'Eve', 'quiet'), (1, 'Eve', NULL), (2, 'Finn', 'loud')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src, err := OpenSQLite(path, "patients", "case_id")
	require.NoError(t, err)
	defer src.Close()

	recs, err := src.FetchCase(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Eve", recs[0]["Name"])
	assert.Equal(t, int64(1), recs[0]["case_id"])

	text := Merge(recs, []string{"Name", "Notes"}, map[string]bool{"case_id": true})
	assert.Equal(t, "Name: Eve\nNotes: quiet", text)
}

func TestOpenSQLite_RejectsBadIdentifiers(t *testing.T) {
	_, err := OpenSQLite(":memory:", `patients"; DROP TABLE x; --`, "case_id")
	assert.Error(t, err)
}
