// Package records reads the source rows for one case from the record
// datastore and merges them into a single normalized text blob.
//
// Three backends implement Source: DynamoDB (the deployed default), an
// Airtable-compatible table REST API, and SQLite for local runs. Each is
// asked for at most the configured per-case cap; there is no pagination
// past it.
package records

import (
	"context"
	"fmt"
)

// Record is one datastore row, keyed by field name.
type Record map[string]any

// Source fetches up to limit records belonging to caseID.
type Source interface {
	FetchCase(ctx context.Context, caseID, limit int) ([]Record, error)
	Table() string
}

// ReadError wraps an upstream fetch failure with its table and status.
type ReadError struct {
	Table  string
	CaseID int
	Status int
	Err    error
}

func (e *ReadError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("read table %q case %d: status %d: %v", e.Table, e.CaseID, e.Status, e.Err)
	}
	return fmt.Sprintf("read table %q case %d: %v", e.Table, e.CaseID, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// StatusCode exposes the upstream status to retry classification.
func (e *ReadError) StatusCode() int { return e.Status }
