package pipeline

import (
	"context"

	"github.com/fpang/synthetic-patients/internal/batch"
	"github.com/fpang/synthetic-patients/internal/cues"
)

// InstructionsProcessor builds actor instructions. Persistence happens in
// the driver's bundler.
type InstructionsProcessor struct {
	cases   CaseLoader
	builder *cues.Builder
}

var _ batch.Processor = (*InstructionsProcessor)(nil)

func NewInstructionsProcessor(cases CaseLoader, builder *cues.Builder) *InstructionsProcessor {
	return &InstructionsProcessor{cases: cases, builder: builder}
}

func (i *InstructionsProcessor) Name() string { return NameInstructions }

// InstructionsDebug is returned in debug mode.
type InstructionsDebug struct {
	CaseText     string            `json:"caseText"`
	Instructions cues.Instructions `json:"instructions"`
	Cycle        cues.Outcome      `json:"cycle"`
}

func (i *InstructionsProcessor) Process(ctx context.Context, caseID int, p batch.Params) (batch.Outcome, error) {
	ct, done, err := loadCase(ctx, i.cases, caseID, p)
	if err != nil || done != nil {
		return deref(done), err
	}
	ins, cycle, err := i.builder.Build(ctx, caseID, ct.Text)
	if err != nil {
		return batch.Outcome{}, err
	}
	return batch.Outcome{
		Status: batch.StatusOK,
		Result: ins,
		Debug:  InstructionsDebug{CaseText: ct.Text, Instructions: ins, Cycle: cycle},
	}, nil
}
