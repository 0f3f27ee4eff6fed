// Package httpapi is the HTTP surface shared by every pipeline Lambda:
// shared-secret auth, request metrics, panic recovery, query parsing and
// the JSON response shapes.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/batch"
)

// DefaultAuthHeader carries the shared secret.
const DefaultAuthHeader = "x-api-secret"

// Error is an invocation-level failure. Status is mirrored onto the HTTP
// response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%d: %s", e.Status, e.Message) }

// Errorf builds an *Error.
func Errorf(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// BatchResponse is the success body of a batch endpoint.
type BatchResponse struct {
	Success   bool              `json:"success"`
	RunID     string            `json:"runId"`
	Pipeline  string            `json:"pipeline"`
	Params    batch.Params      `json:"params"`
	Count     int               `json:"count"`
	Processed []batch.Record    `json:"processed"`
	Bundles   []batch.BundleRef `json:"bundles,omitempty"`
	Debug     *batch.DebugInfo  `json:"debug,omitempty"`
	Duration  string            `json:"duration"`
}

// NewBatchResponse converts a finished run.
func NewBatchResponse(run batch.Run) BatchResponse {
	return BatchResponse{
		Success:   true,
		RunID:     run.RunID,
		Pipeline:  run.Pipeline,
		Params:    run.Params,
		Count:     len(run.Processed),
		Processed: run.Processed,
		Bundles:   run.Bundles,
		Debug:     run.Debug,
		Duration:  run.Duration,
	}
}

// ErrorResponse is the body of every non-200 response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("Failed to write response body")
	}
}

// respondError writes err as an ErrorResponse. Errors other than *Error
// become a 500 with a generic message; their details are only logged.
func respondError(w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		log.Error().Err(err).Msg("Unhandled request error")
		apiErr = &Error{Status: http.StatusInternalServerError, Message: "internal error"}
	}
	respondJSON(w, apiErr.Status, ErrorResponse{Success: false, Error: apiErr.Message, Status: apiErr.Status})
}
