package records

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// identRegex restricts table and column names interpolated into SQL.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ ]{0,63}$`)

// SQLiteSource reads case rows from a local SQLite export of the datastore.
type SQLiteSource struct {
	db        *sql.DB
	table     string
	keyColumn string
}

var _ Source = (*SQLiteSource)(nil)

// OpenSQLite opens path and returns a source over table keyed by keyColumn.
func OpenSQLite(path, table, keyColumn string) (*SQLiteSource, error) {
	if !identRegex.MatchString(table) || !identRegex.MatchString(keyColumn) {
		return nil, fmt.Errorf("invalid sqlite identifier: table=%q key=%q", table, keyColumn)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLiteSource{db: db, table: table, keyColumn: keyColumn}, nil
}

func (s *SQLiteSource) Table() string { return s.table }

// Close releases the database handle.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// FetchCase selects every column of up to limit rows for caseID.
func (s *SQLiteSource) FetchCase(ctx context.Context, caseID, limit int) ([]Record, error) {
	query := fmt.Sprintf(`SELECT * FROM "%s" WHERE "%s" = ? LIMIT ?`, s.table, s.keyColumn)
	rows, err := s.db.QueryContext(ctx, query, caseID, limit)
	if err != nil {
		return nil, &ReadError{Table: s.table, CaseID: caseID, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &ReadError{Table: s.table, CaseID: caseID, Err: err}
	}

	var recs []Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ReadError{Table: s.table, CaseID: caseID, Err: fmt.Errorf("scan: %w", err)}
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &ReadError{Table: s.table, CaseID: caseID, Err: err}
	}
	return recs, nil
}
