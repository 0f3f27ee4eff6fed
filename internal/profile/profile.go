// Package profile turns aggregated case text into a validated VisualProfile
// and decides whether the headshot shows one person or two.
//
// Only gender presentation and build are hard-gated: they drive an image
// constraint that cannot be fixed after generation, so an unmappable value
// fails the case. Every other enum-like field falls back to a default.
package profile

import "fmt"

// Sentinel is what the model is told to emit for system-owned fields.
const Sentinel = "auto"

type Gender string

const (
	GenderFemale Gender = "female-presenting"
	GenderMale   Gender = "male-presenting"
)

type Build string

const (
	BuildSlim    Build = "slim"
	BuildAverage Build = "average"
	BuildStocky  Build = "stocky"
)

type Socioeconomic string

const (
	SocioAffluent   Socioeconomic = "affluent"
	SocioAverage    Socioeconomic = "average"
	SocioStruggling Socioeconomic = "struggling"
	SocioHomeless   Socioeconomic = "homeless"
	SocioUnknown    Socioeconomic = "unknown"
)

type GlamLevel string

const (
	GlamLow    GlamLevel = "low"
	GlamMedium GlamLevel = "medium"
	GlamHigh   GlamLevel = "high"
)

type Retouching string

const (
	RetouchNone  Retouching = "none"
	RetouchLight Retouching = "light"
)

// Unspecified is the default for skin tone, hair texture and cultural context.
const Unspecified = "unspecified"

// Profile is the validated visual description of one case.
type Profile struct {
	Age                string        `json:"age"`
	AgeYears           *float64      `json:"age_years,omitempty"`
	GenderPresentation Gender        `json:"gender_presentation"`
	Build              Build         `json:"build"`
	SkinTone           string        `json:"skin_tone"`
	Hair               string        `json:"hair"`
	HairTexture        string        `json:"hair_texture"`
	Eyes               string        `json:"eyes"`
	FacialFeatures     string        `json:"facial_features"`
	Expression         string        `json:"expression,omitempty"`
	ClothingType       string        `json:"clothing_type"`
	ClothingColor      string        `json:"clothing_color"`
	Background         string        `json:"background"`
	Socioeconomic      Socioeconomic `json:"socioeconomic"`
	GlamLevel          GlamLevel     `json:"glam_level"`
	Retouching         Retouching    `json:"retouching"`
	StyleContext       string        `json:"style_context"`
	CulturalContext    string        `json:"cultural_context"`
	Notes              string        `json:"notes"`
}

// RequiredKeys lists every key the extraction response must carry.
var RequiredKeys = []string{
	"age",
	"gender_presentation",
	"build",
	"skin_tone",
	"hair",
	"hair_texture",
	"eyes",
	"facial_features",
	"clothing_type",
	"clothing_color",
	"background",
	"socioeconomic",
	"glam_level",
	"retouching",
	"style_context",
	"cultural_context",
	"notes",
}

// MissingKeyError reports a required key absent from the model's JSON.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("profile missing required key %q", e.Key)
}

// BadEnumError reports a hard-gated field whose value maps to nothing.
type BadEnumError struct {
	Field string
	Value string
}

func (e *BadEnumError) Error() string {
	return fmt.Sprintf("profile field %s has unmappable value %q", e.Field, e.Value)
}

// IsChild reports whether the parsed age is below threshold years.
func (p *Profile) IsChild(threshold float64) bool {
	return p.AgeYears != nil && *p.AgeYears < threshold
}
