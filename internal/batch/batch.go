// Package batch walks a range of case IDs through a per-case Processor.
//
// Work is strictly sequential. Every case ends in exactly one terminal
// Status; a failing or panicking case becomes an error record and the loop
// moves on.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"

	"github.com/fpang/synthetic-patients/internal/metrics"
)

// Status is a case's terminal state.
type Status string

const (
	StatusOK       Status = "ok"
	StatusExists   Status = "exists"
	StatusNoRecord Status = "no-record"
	StatusNoText   Status = "no-text"
	StatusDryRun   Status = "dryrun-ok"
	StatusError    Status = "error"
)

// Params are the caller's batch controls.
type Params struct {
	StartFrom int  `json:"startFrom"`
	EndAt     int  `json:"endAt"`
	Limit     int  `json:"limit"`
	DryRun    bool `json:"dryRun"`
	Overwrite bool `json:"overwrite"`
	Debug     bool `json:"debug"`
}

// Validate rejects ranges the driver cannot walk.
func (p Params) Validate() error {
	var errs []error
	if p.StartFrom < 1 {
		errs = append(errs, fmt.Errorf("startFrom must be >= 1, got %d", p.StartFrom))
	}
	if p.EndAt < p.StartFrom {
		errs = append(errs, fmt.Errorf("endAt (%d) must be >= startFrom (%d)", p.EndAt, p.StartFrom))
	}
	if p.Limit < 1 {
		errs = append(errs, fmt.Errorf("limit must be >= 1, got %d", p.Limit))
	}
	return errors.Join(errs...)
}

// Record is one row of batch output.
type Record struct {
	CaseID int    `json:"caseId"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// Outcome is what a Processor reports for one case. Debug carries the
// intermediate artifacts returned in debug mode.
type Outcome struct {
	Status Status
	Result any
	Debug  any
}

// Processor handles one case.
type Processor interface {
	Name() string
	Process(ctx context.Context, caseID int, p Params) (Outcome, error)
}

// DebugInfo is the short-circuit payload of a debug run.
type DebugInfo struct {
	CaseID int `json:"caseId"`
	Data   any `json:"data"`
}

// Run is the result of one invocation.
type Run struct {
	RunID     string      `json:"runId"`
	Pipeline  string      `json:"pipeline"`
	Params    Params      `json:"params"`
	Processed []Record    `json:"processed"`
	Bundles   []BundleRef `json:"bundles,omitempty"`
	Debug     *DebugInfo  `json:"debug,omitempty"`
	Duration  string      `json:"duration"`
}

// Driver runs a Processor over a range.
type Driver struct {
	proc    Processor
	bundler *Bundler
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithBundler groups ok and error records into uploaded bundles.
func WithBundler(b *Bundler) DriverOption {
	return func(d *Driver) { d.bundler = b }
}

func NewDriver(proc Processor, opts ...DriverOption) *Driver {
	d := &Driver{proc: proc}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run walks p.StartFrom..p.EndAt in order and stops after p.Limit attempted
// cases. Only invalid params fail the call; case failures are recorded.
func (d *Driver) Run(ctx context.Context, p Params) (Run, error) {
	if err := p.Validate(); err != nil {
		return Run{}, err
	}
	start := time.Now()
	run := Run{
		RunID:     uuid.NewString(),
		Pipeline:  d.proc.Name(),
		Params:    p,
		Processed: []Record{},
	}
	logger := log.With().Str("runId", run.RunID).Str("pipeline", run.Pipeline).Logger()
	logger.Info().
		Int("startFrom", p.StartFrom).
		Int("endAt", p.EndAt).
		Int("limit", p.Limit).
		Bool("dryRun", p.DryRun).
		Bool("overwrite", p.Overwrite).
		Bool("debug", p.Debug).
		Msg("Batch started")

	var bundle *Bundle
	if d.bundler != nil && !p.DryRun && !p.Debug {
		bundle = d.bundler.Start(run.RunID, run.Pipeline, p.Overwrite)
	}

	for caseID := p.StartFrom; caseID <= p.EndAt && len(run.Processed) < p.Limit; caseID++ {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Int("nextCaseId", caseID).Msg("Batch interrupted, returning partial results")
			break
		}

		caseStart := time.Now()
		out, err := d.processCase(ctx, caseID, p)
		rec := Record{CaseID: caseID, Status: out.Status, Result: out.Result}
		if err != nil {
			rec = failRecord(&logger, caseID, err)
		}
		run.Processed = append(run.Processed, rec)
		logger.Info().
			Int("caseId", caseID).
			Str("status", string(rec.Status)).
			Dur("duration", time.Since(caseStart)).
			Msg("Case finished")

		if p.Debug && rec.Status == StatusOK {
			run.Debug = &DebugInfo{CaseID: caseID, Data: out.Debug}
			break
		}

		if bundle != nil && (rec.Status == StatusOK || rec.Status == StatusError) {
			if ref := bundle.Add(ctx, rec); ref != nil {
				run.Bundles = append(run.Bundles, *ref)
			}
		}
	}

	if bundle != nil && ctx.Err() == nil {
		if ref := bundle.Flush(ctx); ref != nil {
			run.Bundles = append(run.Bundles, *ref)
		}
	}

	elapsed := time.Since(start)
	run.Duration = elapsed.String()
	emitRunMetrics(run, elapsed)
	logger.Info().
		Int("processed", len(run.Processed)).
		Int("bundles", len(run.Bundles)).
		Dur("duration", elapsed).
		Msg("Batch finished")
	return run, nil
}

// processCase converts panics into errors so one case cannot end the batch.
func (d *Driver) processCase(ctx context.Context, caseID int, p Params) (out Outcome, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		out, err = d.proc.Process(ctx, caseID, p)
	})
	if r := pc.Recovered(); r != nil {
		return Outcome{}, r.AsError()
	}
	if err == nil && out.Status == "" {
		return Outcome{}, fmt.Errorf("processor returned no status")
	}
	return out, err
}

// failRecord logs the failure and builds the error row.
func failRecord(logger *zerolog.Logger, caseID int, err error) Record {
	logger.Error().Err(err).Int("caseId", caseID).Msg("Case failed")
	return Record{CaseID: caseID, Status: StatusError, Error: err.Error()}
}

func emitRunMetrics(run Run, elapsed time.Duration) {
	var errCount, okCount int
	for _, r := range run.Processed {
		switch r.Status {
		case StatusError:
			errCount++
		case StatusOK:
			okCount++
		}
	}
	uploaded := 0
	for _, b := range run.Bundles {
		if b.Error == "" && !b.Skipped {
			uploaded++
		}
	}
	metrics.New(metrics.Namespace).
		Dimension("Pipeline", run.Pipeline).
		Metric("CasesProcessed", float64(len(run.Processed)), metrics.UnitCount).
		Metric("CasesSucceeded", float64(okCount), metrics.UnitCount).
		Metric("CaseErrors", float64(errCount), metrics.UnitCount).
		Metric("BundlesUploaded", float64(uploaded), metrics.UnitCount).
		Metric("BatchDurationMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Property("runId", run.RunID).
		Property("dryRun", run.Params.DryRun).
		Flush()
}
