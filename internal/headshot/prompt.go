// Package headshot renders a verified patient headshot: it composes the image
// prompt, calls the image model, and checks the result with yes/no vision
// questions until every applicable check passes or the attempt budget runs out.
package headshot

import (
	"fmt"
	"strings"

	"github.com/fpang/synthetic-patients/internal/profile"
	"github.com/fpang/synthetic-patients/internal/variety"
)

// PromptInput is everything the composer needs. All of it is resolved before
// composition; ComposePrompt makes no choices of its own.
type PromptInput struct {
	Profile          *profile.Profile
	Decision         profile.Decision
	Variation        variety.Selection
	CulturalGuidance string
	ChildThreshold   float64
}

// ComposePrompt renders the image prompt. Blocks appear in a fixed order:
// framing, gender, style, cultural, composition, attributes.
func ComposePrompt(in PromptInput) string {
	p := in.Profile
	var b strings.Builder

	// Framing, lighting, background.
	fmt.Fprintf(&b, "Photorealistic head-and-shoulders portrait photograph of a patient, %s, %s. ", orDefault(in.Variation.Angle, "facing the camera"), orDefault(in.Variation.Lighting, "soft even lighting"))
	fmt.Fprintf(&b, "Plain seamless %s studio background. The background must be very light, never medium or dark. ", p.Background)
	b.WriteString("Sharp focus on the face, natural colours, no text, no watermark, no border. ")

	// Gender is one sentence on purpose.
	fmt.Fprintf(&b, "The patient must clearly be %s (%s). ", p.GenderPresentation, genderNoun(p.GenderPresentation, p.IsChild(in.ChildThreshold)))

	b.WriteString(styleBlock(p))
	b.WriteString(culturalBlock(p, in.CulturalGuidance))
	b.WriteString(compositionBlock(p, in.Decision, in.ChildThreshold))
	b.WriteString(attributeBlock(p, in.Variation))

	return strings.Join(strings.Fields(b.String()), " ")
}

func styleBlock(p *profile.Profile) string {
	var b strings.Builder
	switch p.GlamLevel {
	case profile.GlamHigh:
		b.WriteString("Polished, well-groomed appearance with neatly styled hair. ")
	case profile.GlamMedium:
		b.WriteString("Tidy everyday appearance with modest grooming. ")
	default:
		b.WriteString("Natural, unstyled everyday appearance. No glamour styling, no studio makeup. ")
	}
	if p.Retouching == profile.RetouchLight {
		b.WriteString("Only light retouching; keep natural skin texture. ")
	} else {
		b.WriteString("No retouching: keep natural skin texture, pores and blemishes. ")
	}
	switch p.Socioeconomic {
	case profile.SocioHomeless:
		b.WriteString("Clothing is worn and weathered, person looks tired and unkempt. ")
	case profile.SocioStruggling:
		b.WriteString("Clothing is plain and a little worn. ")
	case profile.SocioAffluent:
		b.WriteString("Clothing is good quality and well kept. ")
	}
	if p.StyleContext != "" {
		fmt.Fprintf(&b, "Style context: %s. ", p.StyleContext)
	}
	return b.String()
}

func culturalBlock(p *profile.Profile, guidance string) string {
	var b strings.Builder
	if p.CulturalContext == profile.Unspecified || p.CulturalContext == "" {
		b.WriteString("Cultural or religious background is not stated: do not guess it, and do not add cultural or religious dress, jewellery or symbols. ")
	} else {
		fmt.Fprintf(&b, "Cultural context: %s. Depict it respectfully and realistically, without stereotypes or costume-like dress. ", p.CulturalContext)
	}
	if p.SkinTone == profile.Unspecified || p.SkinTone == "" {
		b.WriteString("Skin tone is not stated: do not guess; keep it natural and unremarkable. ")
	}
	if guidance != "" {
		fmt.Fprintf(&b, "%s ", strings.TrimSpace(guidance))
	}
	return b.String()
}

func compositionBlock(p *profile.Profile, d profile.Decision, threshold float64) string {
	if d.Composition != profile.Pair || d.Companion == nil {
		return "Exactly one person in the frame: the patient alone. No other people, no partial figures, no reflections. "
	}
	c := d.Companion
	var b strings.Builder
	fmt.Fprintf(&b, "Exactly two people in the frame: the patient and their %s, a %s person (age: %s). ", c.Role, c.GenderPresentation, c.Age)
	if c.Notes != "" {
		fmt.Fprintf(&b, "Companion notes: %s. ", c.Notes)
	}
	if p.IsChild(threshold) {
		b.WriteString("The patient is a child and the companion is an adult; show the child in front with the adult close beside them. ")
	}
	b.WriteString("No other people, no partial figures. ")
	return b.String()
}

func attributeBlock(p *profile.Profile, v variety.Selection) string {
	attrs := []struct{ label, value string }{
		{"age", p.Age},
		{"build", string(p.Build)},
		{"skin tone", p.SkinTone},
		{"hair", p.Hair},
		{"hair texture", p.HairTexture},
		{"eyes", p.Eyes},
		{"facial features", p.FacialFeatures},
		{"expression", orDefault(p.Expression, v.Expression)},
		{"clothing", strings.TrimSpace(p.ClothingColor + " " + p.ClothingType)},
		{"notes", p.Notes},
	}
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		val := strings.TrimSpace(a.value)
		if val == "" || val == profile.Unspecified {
			continue
		}
		parts = append(parts, a.label+": "+val)
	}
	return "Patient attributes: " + strings.Join(parts, "; ") + "."
}

func genderNoun(g profile.Gender, child bool) string {
	switch {
	case g == profile.GenderFemale && child:
		return "a girl"
	case g == profile.GenderFemale:
		return "a woman"
	case child:
		return "a boy"
	default:
		return "a man"
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
