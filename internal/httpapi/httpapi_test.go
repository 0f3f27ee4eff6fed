package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpang/synthetic-patients/internal/batch"
	"github.com/fpang/synthetic-patients/internal/metrics"
)

type fakeRunner struct {
	got   batch.Params
	calls int
	err   error
	panic bool
}

func (f *fakeRunner) Run(_ context.Context, p batch.Params) (batch.Run, error) {
	f.calls++
	f.got = p
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return batch.Run{}, f.err
	}
	return batch.Run{
		RunID:    "run-1",
		Pipeline: "headshots",
		Params:   p,
		Processed: []batch.Record{
			{CaseID: p.StartFrom, Status: batch.StatusOK},
			{CaseID: p.StartFrom + 1, Status: batch.StatusError, Error: "bad json"},
		},
	}, nil
}

func newTestServer(runner Runner) http.Handler {
	return NewServer(ServerOptions{
		Service:   "headshot-lambda",
		Secret:    "s3cret",
		Defaults:  Defaults{MaxCaseID: 50, Limit: 5},
		Pipelines: map[string]Runner{"/api/headshots/generate": runner},
	})
}

func do(t *testing.T, h http.Handler, target, secret string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if secret != "" {
		req.Header.Set(DefaultAuthHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func quiet(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	t.Cleanup(metrics.SetOutput(&buf))
	return &buf
}

func TestServer_AuthRequired(t *testing.T) {
	quiet(t)
	tests := []struct {
		name   string
		secret string
	}{
		{"missing", ""},
		{"wrong", "nope"},
		{"prefix", "s3cre"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			rec, body := do(t, newTestServer(runner), "/api/headshots/generate", tt.secret)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, float64(401), body["status"])
			assert.Zero(t, runner.calls)
		})
	}
}

func TestServer_EmptySecretRejectsEverything(t *testing.T) {
	quiet(t)
	runner := &fakeRunner{}
	h := NewServer(ServerOptions{Pipelines: map[string]Runner{"/api/x": runner}})
	rec, _ := do(t, h, "/api/x", "anything")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestServer_HealthNeedsNoAuth(t *testing.T) {
	quiet(t)
	rec, body := do(t, newTestServer(&fakeRunner{}), HealthPath, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "headshot-lambda", body["service"])
}

func TestServer_BatchResponse(t *testing.T) {
	quiet(t)
	runner := &fakeRunner{}
	rec, body := do(t, newTestServer(runner), "/api/headshots/generate?startFrom=7&limit=2&dryRun=1", "s3cret")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, batch.Params{StartFrom: 7, EndAt: 50, Limit: 2, DryRun: true}, runner.got)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "run-1", body["runId"])
	assert.Equal(t, float64(2), body["count"])

	processed := body["processed"].([]any)
	require.Len(t, processed, 2)
	second := processed[1].(map[string]any)
	assert.Equal(t, "error", second["status"])
	assert.Equal(t, "bad json", second["error"])
}

func TestServer_BadParams(t *testing.T) {
	quiet(t)
	runner := &fakeRunner{}
	rec, body := do(t, newTestServer(runner), "/api/headshots/generate?limit=abc", "s3cret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "limit")
	assert.Zero(t, runner.calls)
}

func TestServer_RunnerErrorHidesDetails(t *testing.T) {
	quiet(t)
	rec, body := do(t, newTestServer(&fakeRunner{err: errors.New("dynamodb: table arn:aws:... missing")}), "/api/headshots/generate", "s3cret")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", body["error"])
}

func TestServer_PanicRecovered(t *testing.T) {
	quiet(t)
	rec, body := do(t, newTestServer(&fakeRunner{panic: true}), "/api/headshots/generate", "s3cret")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestServer_NotFound(t *testing.T) {
	quiet(t)
	rec, body := do(t, newTestServer(&fakeRunner{}), "/api/nothing", "s3cret")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(404), body["status"])
}

func TestWithMetrics_EmitsPerEndpoint(t *testing.T) {
	buf := quiet(t)
	do(t, newTestServer(&fakeRunner{}), "/api/headshots/generate", "")
	do(t, newTestServer(&fakeRunner{}), "/favicon.ico/abc", "")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "/api/headshots/generate", first["Endpoint"])
	assert.Equal(t, float64(401), first["statusCode"])
	assert.Equal(t, "other", second["Endpoint"])
	assert.Equal(t, float64(1), first["RequestCount"])
}

func TestParseParams(t *testing.T) {
	d := Defaults{MaxCaseID: 500, Limit: 5}
	tests := []struct {
		name    string
		query   string
		want    batch.Params
		wantErr string
	}{
		{"defaults", "", batch.Params{StartFrom: 1, EndAt: 500, Limit: 5}, ""},
		{"all set", "startFrom=3&endAt=9&limit=2&dryRun=true&overwrite=1&debug=yes",
			batch.Params{StartFrom: 3, EndAt: 9, Limit: 2, DryRun: true, Overwrite: true, Debug: true}, ""},
		{"explicit false", "overwrite=0&debug=no", batch.Params{StartFrom: 1, EndAt: 500, Limit: 5}, ""},
		{"non-integer", "startFrom=one", batch.Params{}, "startFrom must be an integer"},
		{"bad bool", "dryRun=maybe", batch.Params{}, "dryRun must be 0 or 1"},
		{"reversed range", "startFrom=10&endAt=2", batch.Params{}, "endAt (2) must be >= startFrom (10)"},
		{"zero limit", "limit=0", batch.Params{}, "limit must be >= 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			got, err := ParseParams(q, d)
			if tt.wantErr != "" {
				require.Error(t, err)
				var apiErr *Error
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusBadRequest, apiErr.Status)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
