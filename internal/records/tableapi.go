package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/retry"
)

const (
	// defaultTableAPIBaseURL is the Airtable REST API base URL.
	defaultTableAPIBaseURL = "https://api.airtable.com/v0"

	// maxTableAPIPageSize is the largest page the table API returns.
	maxTableAPIPageSize = 100
)

// TableAPISource reads records from an Airtable-compatible REST API,
// filtering rows by the case key field.
type TableAPISource struct {
	httpClient *http.Client
	baseURL    string
	baseID     string
	table      string
	keyField   string
	token      string
	policy     retry.Policy
}

var _ Source = (*TableAPISource)(nil)

// TableAPIOptions configures a TableAPISource.
type TableAPIOptions struct {
	BaseURL  string
	BaseID   string
	Table    string
	KeyField string
	Token    string
}

// NewTableAPISource creates a table API source. An empty BaseURL selects the public endpoint.
func NewTableAPISource(opts TableAPIOptions, policy retry.Policy) *TableAPISource {
	base := opts.BaseURL
	if base == "" {
		base = defaultTableAPIBaseURL
	}
	return &TableAPISource{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    base,
		baseID:     opts.BaseID,
		table:      opts.Table,
		keyField:   opts.KeyField,
		token:      opts.Token,
		policy:     policy.Named("tableapi.list"),
	}
}

func (s *TableAPISource) Table() string { return s.table }

type tableAPIResponse struct {
	Records []struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"records"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// tableAPIError carries a non-2xx status from the table API.
type tableAPIError struct {
	Status int
	Body   string
}

func (e *tableAPIError) Error() string {
	return fmt.Sprintf("table API status %d: %s", e.Status, e.Body)
}

func (e *tableAPIError) StatusCode() int { return e.Status }

// FetchCase requests a single page of at most limit rows for caseID.
func (s *TableAPISource) FetchCase(ctx context.Context, caseID, limit int) ([]Record, error) {
	if limit <= 0 || limit > maxTableAPIPageSize {
		limit = maxTableAPIPageSize
	}
	q := url.Values{}
	q.Set("filterByFormula", fmt.Sprintf("{%s}=%d", s.keyField, caseID))
	q.Set("pageSize", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/%s/%s?%s", s.baseURL, url.PathEscape(s.baseID), url.PathEscape(s.table), q.Encode())

	start := time.Now()
	resp, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*tableAPIResponse, error) {
		return s.get(ctx, endpoint)
	})
	if err != nil {
		return nil, &ReadError{Table: s.table, CaseID: caseID, Status: retry.StatusCode(err), Err: err}
	}

	recs := make([]Record, 0, len(resp.Records))
	for _, r := range resp.Records {
		recs = append(recs, Record(r.Fields))
	}
	log.Debug().
		Str("table", s.table).
		Int("caseId", caseID).
		Int("records", len(recs)).
		Dur("duration", time.Since(start)).
		Msg("Table API case query complete")
	return recs, nil
}

func (s *TableAPISource) get(ctx context.Context, endpoint string) (*tableAPIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	httpResp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &tableAPIError{Status: httpResp.StatusCode, Body: truncate(string(body), 200)}
	}

	var out tableAPIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}
	if out.Error != nil {
		return nil, fmt.Errorf("table API error: %s (type: %s)", out.Error.Message, out.Error.Type)
	}
	return &out, nil
}

// truncate returns the first n bytes of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
