package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"

	"github.com/fpang/synthetic-patients/internal/metrics"
)

// WithSharedSecret rejects requests whose header does not match secret.
// An empty secret rejects everything.
func WithSharedSecret(header, secret string, next http.Handler) http.Handler {
	if header == "" {
		header = DefaultAuthHeader
	}
	want := []byte(secret)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(header)
		if secret == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			log.Warn().Str("path", r.URL.Path).Bool("headerPresent", got != "").Msg("Blocked request: missing or invalid shared secret")
			respondError(w, &Error{Status: http.StatusUnauthorized, Message: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.wroteHeader {
		sr.statusCode = code
		sr.wroteHeader = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.wroteHeader = true
	return sr.ResponseWriter.Write(b)
}

// WithMetrics emits RequestLatencyMs and RequestCount per endpoint. Paths
// outside known collapse to "other" to keep dimensions bounded.
func WithMetrics(known []string, next http.Handler) http.Handler {
	endpoints := make(map[string]bool, len(known))
	for _, k := range known {
		endpoints[k] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sr, r)

		endpoint := r.URL.Path
		if !endpoints[endpoint] {
			endpoint = "other"
		}
		metrics.New(metrics.Namespace).
			Dimension("Endpoint", endpoint).
			Duration("RequestLatencyMs", time.Since(start)).
			Count("RequestCount").
			Property("method", r.Method).
			Property("statusCode", sr.statusCode).
			Property("path", r.URL.Path).
			Flush()
	})
}

// WithRecovery turns a handler panic into a 500 ErrorResponse.
func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		var pc panics.Catcher
		pc.Try(func() { next.ServeHTTP(sr, r) })
		if rec := pc.Recovered(); rec != nil {
			log.Error().Str("path", r.URL.Path).Str("panic", rec.String()).Msg("Handler panicked")
			if !sr.wroteHeader {
				respondError(w, &Error{Status: http.StatusInternalServerError, Message: "internal error"})
			}
		}
	})
}
