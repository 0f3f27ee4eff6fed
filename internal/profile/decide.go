package profile

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/assets"
	"github.com/fpang/synthetic-patients/internal/chat"
	"github.com/fpang/synthetic-patients/internal/jsonutil"
)

type Composition string

const (
	Single Composition = "single"
	Pair   Composition = "pair"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Downgrade returns the next lower tier. Low stays low.
func (c Confidence) Downgrade() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Companion is the second person in a pair headshot.
type Companion struct {
	Role               string `json:"role"`
	GenderPresentation Gender `json:"gender_presentation"`
	Age                string `json:"age"`
	Notes              string `json:"notes,omitempty"`
}

// DefaultCompanion is used when a pair is required but none was described.
var DefaultCompanion = Companion{
	Role:               "parent or guardian",
	GenderPresentation: GenderFemale,
	Age:                "adult",
}

// Decision is the composition outcome for one case.
type Decision struct {
	Composition   Composition `json:"composition"`
	Justification string      `json:"justification,omitempty"`
	Evidence      string      `json:"evidence,omitempty"`
	Confidence    Confidence  `json:"confidence"`
	Companion     *Companion  `json:"companion"`

	// CompanionSynthesized is set when DefaultCompanion was filled in.
	CompanionSynthesized bool `json:"companion_synthesized,omitempty"`
	// AgeOverride is set when the child-age rule forced a pair.
	AgeOverride bool `json:"age_override,omitempty"`
}

// SingleDecision is the conservative default.
func SingleDecision() Decision {
	return Decision{Composition: Single, Confidence: ConfidenceLow}
}

// Decider runs the advisory composition call.
type Decider struct {
	model chat.TextModel
}

func NewDecider(model chat.TextModel) *Decider {
	return &Decider{model: model}
}

// Decide never fails: model or parse errors yield SingleDecision.
func (d *Decider) Decide(ctx context.Context, caseID int, caseText string) Decision {
	raw, err := d.model.GenerateText(ctx, assets.RenderCompositionPrompt(caseText))
	if err != nil {
		log.Warn().Err(err).Int("caseId", caseID).Msg("Composition call failed, defaulting to single")
		return SingleDecision()
	}
	return ParseDecision(raw)
}

type rawDecision struct {
	Composition   string          `json:"composition"`
	Justification string          `json:"justification"`
	Evidence      string          `json:"evidence"`
	Confidence    string          `json:"confidence"`
	Companion     json.RawMessage `json:"companion"`
}

type rawCompanion struct {
	Role               string `json:"role"`
	GenderPresentation string `json:"gender_presentation"`
	Age                any    `json:"age"`
	Notes              string `json:"notes"`
}

// ParseDecision is lenient: unparseable enums fall back to single/low, and a
// pair without a usable companion gets DefaultCompanion with confidence
// lowered one tier.
func ParseDecision(raw string) Decision {
	obj, err := jsonutil.ExtractObject(raw)
	if err != nil {
		return SingleDecision()
	}
	rd, err := jsonutil.DecodeObject[rawDecision](obj)
	if err != nil {
		// Retry field-by-field so one badly typed value does not lose the rest.
		fields, ferr := jsonutil.Fields(obj)
		if ferr != nil {
			return SingleDecision()
		}
		rd = rawDecision{
			Composition:   fieldString(fields["composition"]),
			Justification: fieldString(fields["justification"]),
			Evidence:      fieldString(fields["evidence"]),
			Confidence:    fieldString(fields["confidence"]),
			Companion:     fields["companion"],
		}
	}

	d := Decision{
		Composition:   parseComposition(rd.Composition),
		Justification: strings.TrimSpace(rd.Justification),
		Evidence:      strings.TrimSpace(rd.Evidence),
		Confidence:    parseConfidence(rd.Confidence),
	}
	if d.Composition != Pair {
		return d
	}
	if c, ok := parseCompanion(rd.Companion); ok {
		d.Companion = c
		return d
	}
	companion := DefaultCompanion
	d.Companion = &companion
	d.CompanionSynthesized = true
	d.Confidence = d.Confidence.Downgrade()
	return d
}

func parseComposition(s string) Composition {
	s = strings.ToLower(s)
	if strings.Contains(s, "pair") || strings.Contains(s, "two") {
		return Pair
	}
	return Single
}

func parseConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh
	case "medium", "med", "moderate":
		return ConfidenceMedium
	}
	return ConfidenceLow
}

func parseCompanion(raw json.RawMessage) (*Companion, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var rc rawCompanion
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, false
	}
	role := strings.TrimSpace(rc.Role)
	if role == "" {
		return nil, false
	}
	c := &Companion{
		Role:  role,
		Notes: strings.TrimSpace(rc.Notes),
		Age:   DefaultCompanion.Age,
	}
	if g, ok := NormalizeGender(rc.GenderPresentation); ok {
		c.GenderPresentation = g
	} else {
		c.GenderPresentation = DefaultCompanion.GenderPresentation
	}
	if b, err := json.Marshal(rc.Age); err == nil {
		if s := fieldString(b); s != "" {
			c.Age = s
		}
	}
	return c, true
}

// ApplyAgeOverride forces a pair for children. It runs after every other
// composition step and nothing may undo it.
func ApplyAgeOverride(d Decision, p *Profile, threshold float64) Decision {
	if p == nil || !p.IsChild(threshold) {
		return d
	}
	if d.Composition != Pair {
		d.Composition = Pair
		d.AgeOverride = true
	}
	if d.Companion == nil {
		companion := DefaultCompanion
		d.Companion = &companion
		d.CompanionSynthesized = true
	}
	return d
}
