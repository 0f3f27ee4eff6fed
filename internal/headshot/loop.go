package headshot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/chat"
	"github.com/fpang/synthetic-patients/internal/profile"
	"github.com/fpang/synthetic-patients/internal/retry"
)

// State is a step of the verified-generation loop.
type State int

const (
	StateGenerate State = iota
	StateCheckCount
	StateCheckGender
	StateCheckClothing
	StateCheckChildAdult
	StateAccept
	StateRetry
	StateExhausted
)

var stateNames = [...]string{
	StateGenerate:        "GENERATE",
	StateCheckCount:      "CHECK_COUNT",
	StateCheckGender:     "CHECK_GENDER",
	StateCheckClothing:   "CHECK_CLOTHING",
	StateCheckChildAdult: "CHECK_CHILD_ADULT",
	StateAccept:          "ACCEPT",
	StateRetry:           "RETRY",
	StateExhausted:       "EXHAUSTED",
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

// DefaultAttempts is the generation budget per case.
const DefaultAttempts = 3

// Checks holds the per-constraint outcome of one attempt.
type Checks struct {
	CountOK           bool `json:"countOk"`
	GenderOK          bool `json:"genderOk"`
	ClothingOK        bool `json:"clothingOk"`
	ChildAdultOK      bool `json:"childAdultOk"`
	ChildAdultChecked bool `json:"childAdultChecked"`
}

// Passed reports whether every applicable check passed.
func (c Checks) Passed() bool {
	ok := c.CountOK && c.GenderOK && c.ClothingOK
	if c.ChildAdultChecked {
		ok = ok && c.ChildAdultOK
	}
	return ok
}

// Failed names the checks that did not pass.
func (c Checks) Failed() []string {
	var out []string
	if !c.CountOK {
		out = append(out, "count")
	}
	if !c.GenderOK {
		out = append(out, "gender")
	}
	if !c.ClothingOK {
		out = append(out, "clothing")
	}
	if c.ChildAdultChecked && !c.ChildAdultOK {
		out = append(out, "childAdult")
	}
	return out
}

// Result is the outcome of one loop run. Image always holds the last
// generated image when err is nil.
type Result struct {
	Image           chat.Image `json:"-"`
	Attempts        int        `json:"attempts"`
	Checks          Checks     `json:"checks"`
	Accepted        bool       `json:"accepted"`
	GenerationError string     `json:"generationError,omitempty"`
	Trace           []State    `json:"trace,omitempty"`
}

// Request is one case's loop input.
type Request struct {
	CaseID   int
	Prompt   string
	Profile  *profile.Profile
	Decision profile.Decision
	// ChildAdult enables the child-with-adult check.
	ChildAdult bool
}

// ImageSource produces images from a prompt. *Generator satisfies it.
type ImageSource interface {
	Generate(ctx context.Context, prompt string) (chat.Image, error)
}

// Loop runs generate/verify until acceptance or exhaustion.
type Loop struct {
	images      ImageSource
	verifier    *Verifier
	maxAttempts int
	verifyDelay time.Duration
	sleep       func(context.Context, time.Duration) error
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

func WithAttempts(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithVerifyDelay sets the pause between generation and verification.
func WithVerifyDelay(d time.Duration) LoopOption {
	return func(l *Loop) { l.verifyDelay = d }
}

// WithSleep replaces the delay function. Used by tests.
func WithSleep(fn func(context.Context, time.Duration) error) LoopOption {
	return func(l *Loop) { l.sleep = fn }
}

func NewLoop(images ImageSource, verifier *Verifier, opts ...LoopOption) *Loop {
	l := &Loop{
		images:      images,
		verifier:    verifier,
		maxAttempts: DefaultAttempts,
		sleep:       retry.SleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drives the state machine. It returns an error only when no image was
// produced at all; every other outcome is a Result.
func (l *Loop) Run(ctx context.Context, req Request) (Result, error) {
	var (
		res     Result
		checks  Checks
		attempt int
		child   = req.ChildAdult
	)

	state := StateGenerate
	for {
		res.Trace = append(res.Trace, state)

		switch state {
		case StateGenerate:
			attempt++
			img, err := l.images.Generate(ctx, req.Prompt)
			if err != nil {
				if res.Attempts == 0 {
					return res, err
				}
				log.Warn().Err(err).Int("caseId", req.CaseID).Int("attempt", attempt).Msg("Generation failed after an earlier image, keeping last image")
				res.GenerationError = err.Error()
				state = StateExhausted
				continue
			}
			res.Image = img
			res.Attempts = attempt
			checks = Checks{ChildAdultChecked: child}
			if l.verifyDelay > 0 {
				_ = l.sleep(ctx, l.verifyDelay)
			}
			state = StateCheckCount

		case StateCheckCount:
			checks.CountOK = l.verifier.Ask(ctx, res.Image, countQuestion(req.Decision))
			if !checks.CountOK {
				// Other checks are meaningless with the wrong number of people.
				state = l.settle(&res, checks, attempt)
				continue
			}
			state = StateCheckGender

		case StateCheckGender:
			checks.GenderOK = l.verifier.Ask(ctx, res.Image, genderQuestion(req.Profile, req.Decision, child))
			state = StateCheckClothing

		case StateCheckClothing:
			checks.ClothingOK = l.verifier.Ask(ctx, res.Image, clothingQuestion(req.Profile))
			if child {
				state = StateCheckChildAdult
				continue
			}
			state = l.settle(&res, checks, attempt)

		case StateCheckChildAdult:
			checks.ChildAdultOK = l.verifier.Ask(ctx, res.Image, childAdultQuestion())
			state = l.settle(&res, checks, attempt)

		case StateRetry:
			log.Info().Int("caseId", req.CaseID).Int("attempt", attempt).Strs("failed", res.Checks.Failed()).Msg("Headshot failed verification, regenerating")
			state = StateGenerate

		case StateAccept:
			res.Accepted = true
			return res, nil

		case StateExhausted:
			log.Warn().Int("caseId", req.CaseID).Int("attempts", res.Attempts).Strs("failed", res.Checks.Failed()).Msg("Headshot verification exhausted, keeping last image")
			return res, nil
		}
	}
}

// settle records the attempt's checks and picks the next state.
func (l *Loop) settle(res *Result, checks Checks, attempt int) State {
	res.Checks = checks
	switch {
	case checks.Passed():
		return StateAccept
	case attempt < l.maxAttempts:
		return StateRetry
	default:
		return StateExhausted
	}
}
