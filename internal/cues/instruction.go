package cues

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fpang/synthetic-patients/internal/assets"
	"github.com/fpang/synthetic-patients/internal/chat"
	"github.com/fpang/synthetic-patients/internal/jsonutil"
)

// ErrEmptyInstruction means the model returned a blank main instruction.
var ErrEmptyInstruction = errors.New("main instruction is empty")

// ExtractMainInstruction asks for the single most important actor instruction.
func ExtractMainInstruction(ctx context.Context, model chat.TextModel, caseText string) (string, error) {
	raw, err := model.GenerateText(ctx, assets.RenderMainInstructionPrompt(caseText))
	if err != nil {
		return "", fmt.Errorf("main instruction: %w", err)
	}
	v, err := jsonutil.DecodeObject[struct {
		Instruction string `json:"instruction"`
	}](raw)
	if err != nil {
		return "", fmt.Errorf("main instruction: %w", err)
	}
	s := strings.Join(strings.Fields(v.Instruction), " ")
	if s == "" {
		return "", ErrEmptyInstruction
	}
	return s, nil
}

// Assemble joins the main instruction and cues into one paragraph. Every
// sentence ends with terminal punctuation.
func Assemble(mainInstruction string, cues []string) string {
	parts := make([]string, 0, len(cues)+1)
	for _, s := range append([]string{mainInstruction}, cues...) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.ContainsAny(s[len(s)-1:], ".!?") {
			s += "."
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// Instructions is the full actor brief for one case.
type Instructions struct {
	CaseID          int      `json:"caseId"`
	MainInstruction string   `json:"mainInstruction"`
	Cues            []string `json:"cues"`
	Paragraph       string   `json:"paragraph"`
	CuesAccepted    bool     `json:"cuesAccepted"`
	CueAttempts     int      `json:"cueAttempts"`
	Violations      []string `json:"violations,omitempty"`
}

// Builder produces Instructions for a case.
type Builder struct {
	model chat.TextModel
	cycle *Cycle
}

func NewBuilder(model chat.TextModel, validator Validator, attempts int) *Builder {
	return &Builder{model: model, cycle: NewCycle(model, validator, attempts)}
}

// Build extracts the main instruction, runs the cue cycle and assembles the
// paragraph. The returned Outcome carries the intermediate plan for debug
// responses.
func (b *Builder) Build(ctx context.Context, caseID int, caseText string) (Instructions, Outcome, error) {
	main, err := ExtractMainInstruction(ctx, b.model, caseText)
	if err != nil {
		return Instructions{}, Outcome{}, err
	}
	out, err := b.cycle.Run(ctx, caseID, caseText, main)
	if err != nil {
		return Instructions{}, out, err
	}
	return Instructions{
		CaseID:          caseID,
		MainInstruction: main,
		Cues:            out.Cues,
		Paragraph:       Assemble(main, out.Cues),
		CuesAccepted:    out.Accepted,
		CueAttempts:     out.Attempts,
		Violations:      out.Violations,
	}, out, nil
}
