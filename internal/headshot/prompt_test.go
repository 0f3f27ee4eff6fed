package headshot

import (
	"strings"
	"testing"

	"github.com/fpang/synthetic-patients/internal/profile"
	"github.com/fpang/synthetic-patients/internal/variety"
)

func testProfile() *profile.Profile {
	age := 42.0
	return &profile.Profile{
		Age:                "42",
		AgeYears:           &age,
		GenderPresentation: profile.GenderMale,
		Build:              profile.BuildStocky,
		SkinTone:           profile.Unspecified,
		Hair:               "short grey hair",
		HairTexture:        "straight",
		Eyes:               "blue",
		FacialFeatures:     "stubble",
		ClothingType:       "polo shirt",
		ClothingColor:      "forest green",
		Background:         "off-white",
		Socioeconomic:      profile.SocioAverage,
		GlamLevel:          profile.GlamLow,
		Retouching:         profile.RetouchNone,
		CulturalContext:    profile.Unspecified,
		Notes:              "looks worried",
	}
}

func TestComposePrompt_BlockOrder(t *testing.T) {
	got := ComposePrompt(PromptInput{
		Profile:        testProfile(),
		Decision:       profile.SingleDecision(),
		Variation:      variety.Selection{Angle: "slight three-quarter turn", Lighting: "soft window light"},
		ChildThreshold: 16,
	})

	markers := []string{
		"off-white studio background",
		"must be very light, never medium or dark",
		"must clearly be male-presenting (a man)",
		"No retouching",
		"do not guess",
		"Exactly one person",
		"Patient attributes:",
		"clothing: forest green polo shirt",
	}
	last := -1
	for _, m := range markers {
		i := strings.Index(got, m)
		if i < 0 {
			t.Fatalf("prompt missing %q:\n%s", m, got)
		}
		if i < last {
			t.Errorf("%q appears out of order", m)
		}
		last = i
	}
	if strings.Contains(got, "  ") || strings.Contains(got, "\n") {
		t.Error("whitespace not collapsed")
	}
	if strings.Contains(got, "skin tone: unspecified") {
		t.Error("unspecified attributes should be left out of the listing")
	}
}

func TestComposePrompt_PairWithChild(t *testing.T) {
	p := testProfile()
	age := 6.0
	p.AgeYears = &age
	p.Age = "6"
	p.GenderPresentation = profile.GenderFemale
	p.CulturalContext = "Somali"

	d := profile.ApplyAgeOverride(profile.SingleDecision(), p, 16)
	got := ComposePrompt(PromptInput{Profile: p, Decision: d, CulturalGuidance: "Headscarf only if the notes mention it.", ChildThreshold: 16})

	for _, want := range []string{
		"(a girl)",
		"Exactly two people",
		"parent or guardian",
		"The patient is a child and the companion is an adult",
		"Cultural context: Somali",
		"Headscarf only if the notes mention it.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(got, "Cultural or religious background is not stated") {
		t.Error("stated cultural context should not produce the do-not-guess block")
	}
}

func TestComposePrompt_Deterministic(t *testing.T) {
	in := PromptInput{Profile: testProfile(), Decision: profile.SingleDecision(), ChildThreshold: 16}
	if ComposePrompt(in) != ComposePrompt(in) {
		t.Error("ComposePrompt is not deterministic")
	}
}
