// Package retry runs fallible remote calls under a bounded attempt budget.
//
// Every model, record-source and blob call site goes through Do so that
// rate limiting (429) and server failures (5xx) are handled the same way
// everywhere. Anything else is returned to the caller on the first failure.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	// DefaultAttempts is the attempt budget used when a Policy leaves MaxAttempts unset.
	DefaultAttempts = 3

	// DefaultBaseDelay is the linear backoff step.
	DefaultBaseDelay = time.Second
)

// Policy configures Do. Zero fields fall back to the package defaults.
type Policy struct {
	MaxAttempts int
	Retryable   func(error) bool
	Backoff     func(attempt int) time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error

	// Name labels log lines, e.g. "gemini.text".
	Name string
}

// NewPolicy returns a transient-only policy with linear backoff.
func NewPolicy(attempts int, base time.Duration) Policy {
	return Policy{
		MaxAttempts: attempts,
		Retryable:   IsTransient,
		Backoff:     Linear(base),
	}
}

// Named returns a copy of p labelled for logging.
func (p Policy) Named(name string) Policy {
	p.Name = name
	return p
}

// Linear returns attempt × base. No jitter.
func Linear(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// Do invokes op until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = Linear(DefaultBaseDelay)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == attempts || !retryable(err) {
			break
		}

		delay := backoff(attempt)
		log.Warn().
			Err(err).
			Str("op", p.Name).
			Int("attempt", attempt).
			Int("status", StatusCode(err)).
			Dur("backoff", delay).
			Msg("Transient failure, retrying")
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			break
		}
	}
	return zero, lastErr
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsTransient reports whether err carries a 429 or 5xx status.
func IsTransient(err error) bool {
	code := StatusCode(err)
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// statusCoder is implemented by this module's own HTTP error types.
type statusCoder interface {
	StatusCode() int
}

// httpStatusCoder is implemented by AWS SDK response errors.
type httpStatusCoder interface {
	HTTPStatusCode() int
}

// StatusCode extracts an HTTP status from err, or 0 when none is present.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}

	var gv genai.APIError
	if errors.As(err, &gv) {
		return gv.Code
	}
	var gp *genai.APIError
	if errors.As(err, &gp) && gp != nil {
		return gp.Code
	}
	var oe *openai.Error
	if errors.As(err, &oe) && oe != nil {
		return oe.StatusCode
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	var hc httpStatusCoder
	if errors.As(err, &hc) {
		return hc.HTTPStatusCode()
	}
	return 0
}
