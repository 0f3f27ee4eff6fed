package httpapi

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/batch"
)

// HealthPath is served without auth on every Lambda.
const HealthPath = "/api/health"

// Runner runs one batch. *batch.Driver satisfies it.
type Runner interface {
	Run(ctx context.Context, p batch.Params) (batch.Run, error)
}

// NewBatchHandler parses the query, runs the batch and writes a
// BatchResponse. Case failures stay inside the 200 body.
func NewBatchHandler(runner Runner, defaults Defaults) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			respondError(w, Errorf(http.StatusMethodNotAllowed, "method not allowed"))
			return
		}
		p, err := ParseParams(r.URL.Query(), defaults)
		if err != nil {
			respondError(w, err)
			return
		}
		run, err := runner.Run(r.Context(), p)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, NewBatchResponse(run))
	})
}

// HealthHandler reports liveness.
func HealthHandler(service string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": service,
		})
	})
}

// ServerOptions describe one Lambda's routes.
type ServerOptions struct {
	Service    string
	AuthHeader string
	Secret     string
	Defaults   Defaults
	// Pipelines maps a route path to its batch runner.
	Pipelines map[string]Runner
}

// NewServer builds the full handler: health, one authenticated batch route
// per pipeline, then metrics and panic recovery around everything.
func NewServer(opts ServerOptions) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(HealthPath, HealthHandler(opts.Service))
	known := []string{HealthPath}
	for path, runner := range opts.Pipelines {
		mux.Handle(path, WithSharedSecret(opts.AuthHeader, opts.Secret, NewBatchHandler(runner, opts.Defaults)))
		known = append(known, path)
		log.Debug().Str("path", path).Msg("Batch route registered")
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondError(w, Errorf(http.StatusNotFound, "not found"))
	})
	return WithRecovery(WithMetrics(known, mux))
}
