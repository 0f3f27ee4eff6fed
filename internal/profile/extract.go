package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/assets"
	"github.com/fpang/synthetic-patients/internal/chat"
	"github.com/fpang/synthetic-patients/internal/jsonutil"
	"github.com/fpang/synthetic-patients/internal/variety"
)

// Extractor asks the text model for a profile and validates the answer.
type Extractor struct {
	model   chat.TextModel
	palette variety.Palette
}

// NewExtractor creates an Extractor. The palette owns clothing colour and
// background.
func NewExtractor(model chat.TextModel, palette variety.Palette) *Extractor {
	return &Extractor{model: model, palette: palette}
}

// Extract returns the validated profile and the palette selection that was
// written into it.
func (e *Extractor) Extract(ctx context.Context, caseID int, caseText string) (*Profile, variety.Selection, error) {
	prompt := assets.RenderProfilePrompt(assets.ProfileData{
		CaseID:   caseID,
		CaseText: caseText,
		Sentinel: Sentinel,
		Keys:     RequiredKeys,
	})
	raw, err := e.model.GenerateText(ctx, prompt)
	if err != nil {
		return nil, variety.Selection{}, fmt.Errorf("profile extraction: %w", err)
	}

	p, err := Parse(raw)
	if err != nil {
		return nil, variety.Selection{}, err
	}

	sel := e.palette.SelectFor(caseID, caseText)
	ApplySelection(p, sel)

	log.Debug().
		Int("caseId", caseID).
		Str("gender", string(p.GenderPresentation)).
		Str("build", string(p.Build)).
		Str("background", p.Background).
		Str("clothingColor", p.ClothingColor).
		Msg("Profile extracted")
	return p, sel, nil
}

// ApplySelection overwrites the system-owned fields unconditionally.
func ApplySelection(p *Profile, sel variety.Selection) {
	p.ClothingColor = sel.ClothingColor
	p.Background = sel.Background
	if p.Expression == "" {
		p.Expression = sel.Expression
	}
}

// Parse validates a raw model response into a Profile. System-owned fields
// are left as the model returned them.
func Parse(raw string) (*Profile, error) {
	obj, err := jsonutil.ExtractObject(raw)
	if err != nil {
		return nil, err
	}
	fields, err := jsonutil.Fields(obj)
	if err != nil {
		return nil, err
	}
	for _, key := range RequiredKeys {
		if _, ok := fields[key]; !ok {
			return nil, &MissingKeyError{Key: key}
		}
	}

	v := func(key string) string { return fieldString(fields[key]) }

	gender, ok := NormalizeGender(v("gender_presentation"))
	if !ok {
		return nil, &BadEnumError{Field: "gender_presentation", Value: v("gender_presentation")}
	}
	build, ok := NormalizeBuild(v("build"))
	if !ok {
		return nil, &BadEnumError{Field: "build", Value: v("build")}
	}

	p := &Profile{
		Age:                v("age"),
		GenderPresentation: gender,
		Build:              build,
		SkinTone:           NormalizeSkinTone(v("skin_tone")),
		Hair:               v("hair"),
		HairTexture:        NormalizeHairTexture(v("hair_texture")),
		Eyes:               v("eyes"),
		FacialFeatures:     v("facial_features"),
		Expression:         v("expression"),
		ClothingType:       v("clothing_type"),
		ClothingColor:      v("clothing_color"),
		Background:         v("background"),
		Socioeconomic:      NormalizeSocioeconomic(v("socioeconomic")),
		GlamLevel:          NormalizeGlam(v("glam_level")),
		Retouching:         NormalizeRetouching(v("retouching")),
		StyleContext:       v("style_context"),
		CulturalContext:    NormalizeFreeText(v("cultural_context")),
		Notes:              v("notes"),
	}
	if years, ok := ParseAge(p.Age); ok {
		p.AgeYears = &years
	}
	return p, nil
}

// fieldString renders a JSON value as plain text. Numbers keep their
// shortest form, null becomes empty.
func fieldString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return strings.TrimSpace(string(raw))
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			b, _ := json.Marshal(item)
			if s := fieldString(b); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(string(raw))
	}
}
