package cues

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/assets"
	"github.com/fpang/synthetic-patients/internal/chat"
)

// State is a step of the cue cycle.
type State int

const (
	StatePlan State = iota
	StateCompose
	StateValidate
	StateRepair
	StateValidateRepaired
	StateAccept
	StateRetry
	StateExhausted
)

var stateNames = [...]string{
	StatePlan:             "PLAN",
	StateCompose:          "COMPOSE",
	StateValidate:         "VALIDATE",
	StateRepair:           "REPAIR",
	StateValidateRepaired: "VALIDATE_REPAIRED",
	StateAccept:           "ACCEPT",
	StateRetry:            "RETRY",
	StateExhausted:        "EXHAUSTED",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// DefaultAttempts is the plan/compose/repair budget.
const DefaultAttempts = 3

// Outcome is the result of one cycle run.
type Outcome struct {
	Cues       []string `json:"cues"`
	Attempts   int      `json:"attempts"`
	Accepted   bool     `json:"accepted"`
	Repaired   bool     `json:"repaired,omitempty"`
	Violations []string `json:"violations,omitempty"`
	Plan       *Plan    `json:"plan,omitempty"`
	Trace      []State  `json:"trace,omitempty"`
}

// Cycle runs plan, compose, validate and repair against a text model.
type Cycle struct {
	model       chat.TextModel
	validator   Validator
	maxAttempts int
}

func NewCycle(model chat.TextModel, validator Validator, maxAttempts int) *Cycle {
	if maxAttempts < 1 {
		maxAttempts = DefaultAttempts
	}
	return &Cycle{model: model, validator: validator, maxAttempts: maxAttempts}
}

// Run never fails on non-compliant output: after the last attempt the best
// output so far is truncated to MaxCues and returned. It fails only when no
// attempt produced any output and the model kept erroring.
func (c *Cycle) Run(ctx context.Context, caseID int, caseText, mainInstruction string) (Outcome, error) {
	var (
		out        Outcome
		plan       Plan
		candidate  []string
		best       []string
		haveBest   bool
		violations []Violation
		lastErr    error
		attempt    int
	)

	fail := func(stage string, err error) State {
		lastErr = fmt.Errorf("cue %s: %w", stage, err)
		log.Warn().Err(err).Int("caseId", caseID).Int("attempt", attempt).Str("stage", stage).Msg("Cue stage failed")
		if attempt < c.maxAttempts {
			return StateRetry
		}
		return StateExhausted
	}

	state := StatePlan
	for {
		out.Trace = append(out.Trace, state)

		switch state {
		case StatePlan:
			attempt++
			out.Attempts = attempt
			raw, err := c.model.GenerateText(ctx, assets.RenderCuePlanPrompt(caseText, mainInstruction))
			if err != nil {
				state = fail("plan", err)
				continue
			}
			if plan, err = ParsePlan(raw); err != nil {
				state = fail("plan", err)
				continue
			}
			if !plan.CandidatesInRange() {
				log.Warn().Int("caseId", caseID).Int("candidates", len(plan.Items)).Msg("Cue plan candidate count outside 4-6, continuing")
			}
			p := plan
			out.Plan = &p
			state = StateCompose

		case StateCompose:
			items := plan.SelectedItems()
			data := assets.CueComposeData{MaxCues: MaxCues, MaxLength: c.validator.MaxLength}
			for _, it := range items {
				data.Items = append(data.Items, assets.CueItem{Domain: it.Domain, Trigger: it.Trigger, Utterance: it.Utterance})
			}
			raw, err := c.model.GenerateText(ctx, assets.RenderCueComposePrompt(data))
			if err != nil {
				state = fail("compose", err)
				continue
			}
			if candidate, err = ParseCues(raw); err != nil {
				state = fail("compose", err)
				continue
			}
			best, haveBest = candidate, true
			state = StateValidate

		case StateValidate:
			violations = c.validator.Validate(candidate)
			if len(violations) == 0 {
				state = StateAccept
				continue
			}
			state = StateRepair

		case StateRepair:
			raw, err := c.model.GenerateText(ctx, assets.RenderCueRepairPrompt(assets.CueRepairData{
				Cues:      candidate,
				Problems:  Describe(violations),
				MaxCues:   MaxCues,
				MaxLength: c.validator.MaxLength,
			}))
			if err != nil {
				state = fail("repair", err)
				continue
			}
			repaired, err := ParseCues(raw)
			if err != nil {
				state = fail("repair", err)
				continue
			}
			candidate = repaired
			best = repaired
			out.Repaired = true
			state = StateValidateRepaired

		case StateValidateRepaired:
			violations = c.validator.Validate(candidate)
			switch {
			case len(violations) == 0:
				state = StateAccept
			case attempt < c.maxAttempts:
				state = StateRetry
			default:
				state = StateExhausted
			}

		case StateRetry:
			log.Info().Int("caseId", caseID).Int("attempt", attempt).Strs("violations", Describe(violations)).Msg("Cues not compliant, starting over")
			out.Repaired = false
			state = StatePlan

		case StateAccept:
			out.Cues = candidate
			out.Accepted = true
			out.Violations = nil
			return out, nil

		case StateExhausted:
			if !haveBest && lastErr != nil {
				return out, lastErr
			}
			if len(best) > MaxCues {
				best = best[:MaxCues]
			}
			out.Cues = best
			out.Violations = Describe(c.validator.Validate(best))
			log.Warn().Int("caseId", caseID).Int("attempts", attempt).Strs("violations", out.Violations).Msg("Cue cycle exhausted, using best effort output")
			return out, nil
		}
	}
}
