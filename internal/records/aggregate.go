package records

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RecordSeparator sits between the blocks of consecutive records.
const RecordSeparator = "\n---\n"

// DefaultMaxPerCase caps the records read for one case.
const DefaultMaxPerCase = 100

// DefaultFields is the known field order emitted before any extra fields.
var DefaultFields = []string{
	"Name",
	"Age",
	"Gender",
	"Presenting Complaint",
	"History of Presenting Complaint",
	"Past Medical History",
	"Medications",
	"Allergies",
	"Social History",
	"Family History",
	"Personality",
	"Appearance",
	"Notes",
}

// CaseText is the aggregated input for one case.
type CaseText struct {
	CaseID      int
	Text        string
	RecordCount int
	// Capped is true when the source returned exactly the per-case cap,
	// meaning further records may exist and were not read.
	Capped bool
}

// Empty reports whether the case has no usable input.
func (c CaseText) Empty() bool { return strings.TrimSpace(c.Text) == "" }

// Aggregator merges every record of a case into one text blob.
type Aggregator struct {
	source     Source
	fields     []string
	exclude    map[string]bool
	maxPerCase int
}

// NewAggregator creates an Aggregator. Fields named in exclude (typically
// the case key attribute) are never emitted.
func NewAggregator(source Source, fields []string, maxPerCase int, exclude ...string) *Aggregator {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	if maxPerCase <= 0 {
		maxPerCase = DefaultMaxPerCase
	}
	ex := make(map[string]bool, len(exclude))
	for _, f := range exclude {
		ex[f] = true
	}
	return &Aggregator{source: source, fields: fields, exclude: ex, maxPerCase: maxPerCase}
}

// Load fetches and merges the records for caseID. A case with no records
// is not an error; it yields an empty CaseText.
func (a *Aggregator) Load(ctx context.Context, caseID int) (CaseText, error) {
	start := time.Now()
	recs, err := a.source.FetchCase(ctx, caseID, a.maxPerCase)
	if err != nil {
		return CaseText{CaseID: caseID}, err
	}

	ct := CaseText{
		CaseID:      caseID,
		Text:        Merge(recs, a.fields, a.exclude),
		RecordCount: len(recs),
		Capped:      len(recs) >= a.maxPerCase,
	}
	if ct.Capped {
		log.Warn().
			Int("caseId", caseID).
			Int("cap", a.maxPerCase).
			Str("table", a.source.Table()).
			Msg("Per-case record cap reached, remaining records not read")
	}
	log.Debug().
		Int("caseId", caseID).
		Int("records", ct.RecordCount).
		Int("textLength", len(ct.Text)).
		Dur("duration", time.Since(start)).
		Msg("Case records aggregated")
	return ct, nil
}

// Merge renders records as label-prefixed lines: known fields in order,
// then any additional fields alphabetically. Identical lines are kept only
// at their first occurrence. Record blocks are joined by RecordSeparator.
func Merge(recs []Record, fields []string, exclude map[string]bool) string {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f] = true
	}

	seen := make(map[string]bool)
	var blocks []string
	for _, rec := range recs {
		var lines []string
		emit := func(field string) {
			v, ok := DisplayValue(rec[field])
			if !ok {
				return
			}
			line := field + ": " + v
			if seen[line] {
				return
			}
			seen[line] = true
			lines = append(lines, line)
		}

		for _, f := range fields {
			if !exclude[f] {
				emit(f)
			}
		}

		extras := make([]string, 0, len(rec))
		for k := range rec {
			if !known[k] && !exclude[k] {
				extras = append(extras, k)
			}
		}
		sort.Strings(extras)
		for _, k := range extras {
			emit(k)
		}

		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, RecordSeparator)
}

// DisplayValue converts a field value to display text. Nil and empty
// values report false. Structured values are serialized as JSON.
func DisplayValue(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case []byte:
		s = string(t)
	case bool:
		s = strconv.FormatBool(t)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	case []any:
		if len(t) == 0 {
			return "", false
		}
		if parts, ok := stringSlice(t); ok {
			s = strings.Join(parts, ", ")
			break
		}
		s = marshal(t)
	case map[string]any:
		if len(t) == 0 {
			return "", false
		}
		s = marshal(t)
	default:
		s = marshal(t)
	}
	s = normalizeText(s)
	return s, s != ""
}

func stringSlice(items []any) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, it := range items {
		str, ok := it.(string)
		if !ok {
			return nil, false
		}
		if str = strings.TrimSpace(str); str != "" {
			out = append(out, str)
		}
	}
	return out, true
}

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// normalizeText trims each line and drops blank lines.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
