package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fpang/synthetic-patients/internal/batch"
)

// Defaults fill in query parameters the caller omits.
type Defaults struct {
	StartFrom int
	MaxCaseID int
	Limit     int
}

// DefaultParams is used when a Defaults field is zero.
var DefaultParams = Defaults{StartFrom: 1, MaxCaseID: 500, Limit: 5}

// ParseParams reads startFrom, endAt, limit, dryRun, overwrite and debug.
// Booleans accept 1/0, true/false and yes/no.
func ParseParams(q url.Values, d Defaults) (batch.Params, error) {
	if d.StartFrom <= 0 {
		d.StartFrom = DefaultParams.StartFrom
	}
	if d.MaxCaseID <= 0 {
		d.MaxCaseID = DefaultParams.MaxCaseID
	}
	if d.Limit <= 0 {
		d.Limit = DefaultParams.Limit
	}

	var p batch.Params
	var err error
	if p.StartFrom, err = intParam(q, "startFrom", d.StartFrom); err != nil {
		return p, err
	}
	if p.EndAt, err = intParam(q, "endAt", d.MaxCaseID); err != nil {
		return p, err
	}
	if p.Limit, err = intParam(q, "limit", d.Limit); err != nil {
		return p, err
	}
	if p.DryRun, err = boolParam(q, "dryRun"); err != nil {
		return p, err
	}
	if p.Overwrite, err = boolParam(q, "overwrite"); err != nil {
		return p, err
	}
	if p.Debug, err = boolParam(q, "debug"); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, &Error{Status: http.StatusBadRequest, Message: err.Error()}
	}
	return p, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, Errorf(http.StatusBadRequest, "%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(q.Get(name))) {
	case "", "0", "false", "no":
		return false, nil
	case "1", "true", "yes":
		return true, nil
	}
	return false, Errorf(http.StatusBadRequest, "%s must be 0 or 1, got %q", name, q.Get(name))
}
