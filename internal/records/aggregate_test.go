package records

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMerge_KnownFieldsThenExtras(t *testing.T) {
	recs := []Record{
		{"caseId": 7, "Notes": "anxious", "Name": "Ana", "Zeta": "last", "Alpha": "first"},
		{"caseId": 7, "Name": "Ana", "Age": 34.0},
	}
	got := Merge(recs, []string{"Name", "Age", "Notes"}, map[string]bool{"caseId": true})
	want := "Name: Ana\nNotes: anxious\nAlpha: first\nZeta: last" +
		RecordSeparator +
		"Age: 34"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_DropsEmptyAndNil(t *testing.T) {
	recs := []Record{{"Name": "  ", "Age": nil, "Tags": []any{}, "Meds": []any{"a", " b "}}}
	got := Merge(recs, []string{"Name", "Age"}, nil)
	if got != "Meds: a, b" {
		t.Errorf("Merge() = %q", got)
	}
}

func TestMerge_NoRecords(t *testing.T) {
	if got := Merge(nil, DefaultFields, nil); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestDisplayValue(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{"x", "x", true},
		{"  line one \r\n\r\n line two ", "line one\nline two", true},
		{12.0, "12", true},
		{12.5, "12.5", true},
		{int64(3), "3", true},
		{true, "true", true},
		{map[string]any{"k": "v"}, `{"k":"v"}`, true},
		{[]any{1.0, 2.0}, "[1,2]", true},
		{nil, "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := DisplayValue(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("DisplayValue(%#v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAggregator_Load(t *testing.T) {
	src := &StaticSource{Name: "cases", Cases: map[int][]Record{
		3: {{"caseId": 3, "Name": "Ben"}},
	}}
	agg := NewAggregator(src, []string{"Name"}, 100, "caseId")

	ct, err := agg.Load(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct.Text != "Name: Ben" || ct.RecordCount != 1 || ct.Capped {
		t.Errorf("unexpected case text: %+v", ct)
	}

	empty, err := agg.Load(context.Background(), 4)
	if err != nil {
		t.Fatalf("missing case must not be an error: %v", err)
	}
	if !empty.Empty() || empty.RecordCount != 0 {
		t.Errorf("expected empty case, got %+v", empty)
	}
}

func TestAggregator_CapIsHonoured(t *testing.T) {
	var many []Record
	for i := 0; i < 5; i++ {
		many = append(many, Record{"Notes": strings.Repeat("n", i+1)})
	}
	src := &StaticSource{Name: "cases", Cases: map[int][]Record{1: many}}
	ct, err := NewAggregator(src, nil, 3).Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct.RecordCount != 3 || !ct.Capped {
		t.Errorf("expected 3 capped records, got %+v", ct)
	}
}

func TestAggregator_ReadError(t *testing.T) {
	src := &StaticSource{Name: "cases", Err: errors.New("boom")}
	_, err := NewAggregator(src, nil, 10).Load(context.Background(), 1)
	var re *ReadError
	if !errors.As(err, &re) || re.Table != "cases" || re.CaseID != 1 {
		t.Errorf("expected ReadError for cases/1, got %v", err)
	}
}
