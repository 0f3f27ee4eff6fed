// Package pipeline wires the generation stages into batch.Processors, one per
// HTTP endpoint: headshots, instructions and descriptions.
package pipeline

import (
	"context"

	"github.com/fpang/synthetic-patients/internal/batch"
	"github.com/fpang/synthetic-patients/internal/jsonutil"
	"github.com/fpang/synthetic-patients/internal/records"
)

// Pipeline names, used as processor names and metric dimensions.
const (
	NameHeadshots    = "headshots"
	NameInstructions = "instructions"
	NameDescriptions = "descriptions"
)

// CaseLoader loads the aggregated text for a case. *records.Aggregator
// satisfies it.
type CaseLoader interface {
	Load(ctx context.Context, caseID int) (records.CaseText, error)
}

// DryRunResult is reported for dry-run cases.
type DryRunResult struct {
	RecordCount int    `json:"recordCount"`
	TextLength  int    `json:"textLength"`
	Capped      bool   `json:"capped,omitempty"`
	Preview     string `json:"preview"`
}

// loadCase runs the shared prefix of every pipeline: load, classify empty
// cases, and answer dry runs. A non-nil outcome means the case is finished.
func loadCase(ctx context.Context, loader CaseLoader, caseID int, p batch.Params) (records.CaseText, *batch.Outcome, error) {
	ct, err := loader.Load(ctx, caseID)
	if err != nil {
		return ct, nil, err
	}
	if ct.RecordCount == 0 {
		return ct, &batch.Outcome{Status: batch.StatusNoRecord}, nil
	}
	if ct.Empty() {
		return ct, &batch.Outcome{Status: batch.StatusNoText}, nil
	}
	if p.DryRun {
		res := DryRunResult{
			RecordCount: ct.RecordCount,
			TextLength:  len(ct.Text),
			Capped:      ct.Capped,
			Preview:     jsonutil.Preview(ct.Text),
		}
		return ct, &batch.Outcome{Status: batch.StatusDryRun, Result: res, Debug: res}, nil
	}
	return ct, nil, nil
}
