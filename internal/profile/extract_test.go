package profile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpang/synthetic-patients/internal/chat/chattest"
	"github.com/fpang/synthetic-patients/internal/jsonutil"
	"github.com/fpang/synthetic-patients/internal/variety"
)

const validProfileJSON = `{
  "age": "8 years",
  "gender_presentation": "girl",
  "build": "slim",
  "skin_tone": "olive",
  "hair": "dark shoulder-length hair in a ponytail",
  "hair_texture": "wavy",
  "eyes": "brown",
  "facial_features": "freckles",
  "clothing_type": "school jumper",
  "clothing_color": "red",
  "background": "a hospital corridor",
  "socioeconomic": "middle income",
  "glam_level": "none",
  "retouching": "no",
  "style_context": "everyday",
  "cultural_context": "",
  "notes": "looks tired"
}`

func TestParse_Valid(t *testing.T) {
	p, err := Parse("Sure! Here it is:\n```json\n" + validProfileJSON + "\n```\nHope that helps.")
	require.NoError(t, err)

	assert.Equal(t, GenderFemale, p.GenderPresentation)
	assert.Equal(t, BuildSlim, p.Build)
	assert.Equal(t, "olive", p.SkinTone)
	assert.Equal(t, "wavy", p.HairTexture)
	assert.Equal(t, SocioAverage, p.Socioeconomic)
	assert.Equal(t, GlamLow, p.GlamLevel)
	assert.Equal(t, RetouchNone, p.Retouching)
	assert.Equal(t, Unspecified, p.CulturalContext)
	require.NotNil(t, p.AgeYears)
	assert.Equal(t, 8.0, *p.AgeYears)
	assert.True(t, p.IsChild(16))
}

func TestParse_NumericAge(t *testing.T) {
	p, err := Parse(strings.Replace(validProfileJSON, `"8 years"`, `52`, 1))
	require.NoError(t, err)
	assert.Equal(t, "52", p.Age)
	assert.False(t, p.IsChild(16))
}

func TestParse_MissingKey(t *testing.T) {
	_, err := Parse(strings.Replace(validProfileJSON, `"eyes": "brown",`, "", 1))
	var mk *MissingKeyError
	require.True(t, errors.As(err, &mk), "err = %v", err)
	assert.Equal(t, "eyes", mk.Key)
}

func TestParse_HardGatedEnums(t *testing.T) {
	_, err := Parse(strings.Replace(validProfileJSON, `"girl"`, `"unclear"`, 1))
	var be *BadEnumError
	require.True(t, errors.As(err, &be), "err = %v", err)
	assert.Equal(t, "gender_presentation", be.Field)

	_, err = Parse(strings.Replace(validProfileJSON, `"slim"`, `"tall"`, 1))
	require.True(t, errors.As(err, &be), "err = %v", err)
	assert.Equal(t, "build", be.Field)
}

func TestParse_NoJSON(t *testing.T) {
	_, err := Parse("I can't help with that.")
	var ee *jsonutil.ExtractionError
	assert.True(t, errors.As(err, &ee), "err = %v", err)
}

func TestExtractor_OverwritesSystemFields(t *testing.T) {
	model := chattest.NewText(strings.NewReplacer(`"red"`, `"auto"`, `"a hospital corridor"`, `"auto"`).Replace(validProfileJSON))
	ex := NewExtractor(model, variety.DefaultPalette)

	p, sel, err := ex.Extract(context.Background(), 12, "Name: Lily\nAge: 8")
	require.NoError(t, err)

	assert.NotEqual(t, Sentinel, p.ClothingColor)
	assert.NotEqual(t, Sentinel, p.Background)
	assert.Equal(t, sel.ClothingColor, p.ClothingColor)
	assert.Equal(t, sel.Background, p.Background)
	assert.Equal(t, variety.DefaultPalette.SelectFor(12, "Name: Lily\nAge: 8"), sel)
	require.Len(t, model.Prompts, 1)
	assert.Contains(t, model.Prompts[0], "case-12")
}

func TestExtractor_ModelChoiceIgnored(t *testing.T) {
	ex := NewExtractor(chattest.NewText(validProfileJSON), variety.DefaultPalette)
	p, _, err := ex.Extract(context.Background(), 3, "text")
	require.NoError(t, err)
	assert.NotEqual(t, "a hospital corridor", p.Background)
}
