package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fpang/synthetic-patients/internal/chat/chattest"
)

func TestParseDecision(t *testing.T) {
	mum := &Companion{Role: "mother", GenderPresentation: GenderFemale, Age: "35", Notes: "worried"}
	tests := []struct {
		name string
		raw  string
		want Decision
	}{
		{
			name: "single",
			raw:  `{"composition":"single","justification":"adult alone","evidence":"attends alone","confidence":"high","companion":null}`,
			want: Decision{Composition: Single, Justification: "adult alone", Evidence: "attends alone", Confidence: ConfidenceHigh},
		},
		{
			name: "pair with companion",
			raw:  `{"composition":"pair","confidence":"medium","companion":{"role":"mother","gender_presentation":"woman","age":35,"notes":"worried"}}`,
			want: Decision{Composition: Pair, Confidence: ConfidenceMedium, Companion: mum},
		},
		{
			name: "pair without companion",
			raw:  `{"composition":"pair","confidence":"high","companion":null}`,
			want: Decision{Composition: Pair, Confidence: ConfidenceMedium, Companion: &DefaultCompanion, CompanionSynthesized: true},
		},
		{
			name: "pair with malformed companion",
			raw:  `{"composition":"pair","confidence":"low","companion":"mum"}`,
			want: Decision{Composition: Pair, Confidence: ConfidenceLow, Companion: &DefaultCompanion, CompanionSynthesized: true},
		},
		{
			name: "garbage enums",
			raw:  `{"composition":"crowd","confidence":"very"}`,
			want: Decision{Composition: Single, Confidence: ConfidenceLow},
		},
		{
			name: "badly typed field",
			raw:  `{"composition":"pair","confidence":3,"companion":{"role":"father","gender_presentation":"male"}}`,
			want: Decision{Composition: Pair, Confidence: ConfidenceLow, Companion: &Companion{Role: "father", GenderPresentation: GenderMale, Age: "adult"}},
		},
		{
			name: "not json",
			raw:  "no idea",
			want: SingleDecision(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseDecision(tt.raw)); diff != "" {
				t.Errorf("ParseDecision mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecider_ModelErrorIsAdvisory(t *testing.T) {
	d := NewDecider(chattest.NewText().Then(chattest.Reply{Err: errors.New("boom")}))
	if got := d.Decide(context.Background(), 1, "text"); got != SingleDecision() {
		t.Errorf("Decide = %+v, want single", got)
	}
}

func TestApplyAgeOverride(t *testing.T) {
	child := 4.0
	adult := 40.0

	got := ApplyAgeOverride(SingleDecision(), &Profile{AgeYears: &child}, 16)
	if got.Composition != Pair || got.Companion == nil || !got.AgeOverride {
		t.Errorf("child override = %+v", got)
	}

	existing := Decision{Composition: Pair, Confidence: ConfidenceHigh, Companion: &Companion{Role: "father"}}
	got = ApplyAgeOverride(existing, &Profile{AgeYears: &child}, 16)
	if got.Companion.Role != "father" || got.AgeOverride {
		t.Errorf("existing pair should be kept: %+v", got)
	}

	got = ApplyAgeOverride(SingleDecision(), &Profile{AgeYears: &adult}, 16)
	if got.Composition != Single {
		t.Errorf("adult should stay single: %+v", got)
	}

	got = ApplyAgeOverride(SingleDecision(), &Profile{}, 16)
	if got.Composition != Single {
		t.Errorf("unknown age should stay single: %+v", got)
	}
}

func TestOriginScanner(t *testing.T) {
	s := NewOriginScanner(chattest.NewText(`{"origin":"Punjabi Sikh","evidence":"wears a turban"}`, `{"origin":"unknown"}`))
	if got := s.Scan(context.Background(), 1, "x"); got != "Punjabi Sikh" {
		t.Errorf("Scan = %q", got)
	}
	if got := s.Scan(context.Background(), 2, "x"); got != Unspecified {
		t.Errorf("Scan = %q", got)
	}
}
