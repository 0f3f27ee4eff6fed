// Package variety picks appearance attributes deterministically from fixed
// palettes. The seed is derived from the case identity and its text, so a
// re-run over unchanged input always yields the same background, clothing
// color and framing variation, while different cases spread across the palette.
package variety

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
)

// Offsets decorrelate selections drawn from the same seed.
const (
	offsetBackground uint32 = 0
	offsetClothing   uint32 = 7
	offsetAngle      uint32 = 13
	offsetExpression uint32 = 29
	offsetLighting   uint32 = 41
)

// Seed hashes caseID and caseText and reads the first four digest bytes.
func Seed(caseID int, caseText string) uint32 {
	sum := sha256.Sum256([]byte(strconv.Itoa(caseID) + "|" + caseText))
	return binary.BigEndian.Uint32(sum[:4])
}

// Pick returns palette[(seed+offset) mod len(palette)], or "" for an empty palette.
func Pick(palette []string, seed, offset uint32) string {
	if len(palette) == 0 {
		return ""
	}
	idx := (uint64(seed) + uint64(offset)) % uint64(len(palette))
	return palette[idx]
}

// Palette is the ordered set of options the selector draws from.
type Palette struct {
	Backgrounds    []string
	ClothingColors []string
	Angles         []string
	Expressions    []string
	Lighting       []string

	// Clashes lists clothing colors that blend into a given background.
	Clashes map[string][]string
	// Fallback replaces a clashing clothing color. It must not clash with any background.
	Fallback string
}

// Selection is the resolved set of system-owned attributes for one case.
type Selection struct {
	Background    string `json:"background"`
	ClothingColor string `json:"clothingColor"`
	Angle         string `json:"angle"`
	Expression    string `json:"expression"`
	Lighting      string `json:"lighting"`
	Substituted   bool   `json:"clothingSubstituted,omitempty"`
}

// Select resolves every palette for seed and applies the clash rule.
func (p Palette) Select(seed uint32) Selection {
	s := Selection{
		Background:    Pick(p.Backgrounds, seed, offsetBackground),
		ClothingColor: Pick(p.ClothingColors, seed, offsetClothing),
		Angle:         Pick(p.Angles, seed, offsetAngle),
		Expression:    Pick(p.Expressions, seed, offsetExpression),
		Lighting:      Pick(p.Lighting, seed, offsetLighting),
	}
	if p.clashes(s.Background, s.ClothingColor) && p.Fallback != "" {
		s.ClothingColor = p.Fallback
		s.Substituted = true
	}
	return s
}

// SelectFor is Select(Seed(caseID, caseText)).
func (p Palette) SelectFor(caseID int, caseText string) Selection {
	return p.Select(Seed(caseID, caseText))
}

func (p Palette) clashes(background, clothing string) bool {
	for _, c := range p.Clashes[background] {
		if c == clothing {
			return true
		}
	}
	return false
}

// DefaultPalette keeps every background very light; clothing colors carry the contrast.
var DefaultPalette = Palette{
	Backgrounds: []string{
		"off-white",
		"soft ivory",
		"pale grey",
		"very pale blue",
		"light warm beige",
		"pale sage",
		"light cream",
	},
	ClothingColors: []string{
		"navy",
		"burgundy",
		"forest green",
		"charcoal",
		"mustard",
		"teal",
		"plum",
		"rust",
		"denim blue",
		"olive",
		"white",
		"light grey",
		"cream",
		"dusty pink",
	},
	Angles: []string{
		"facing the camera straight on",
		"turned slightly to the left",
		"turned slightly to the right",
		"with the head tilted very slightly",
	},
	Expressions: []string{
		"a neutral, relaxed expression",
		"a faint, polite smile",
		"a calm, attentive expression",
		"a slightly tired but composed expression",
	},
	Lighting: []string{
		"soft even window light",
		"soft diffused studio light",
		"gentle overcast daylight",
	},
	Clashes: map[string][]string{
		"off-white":        {"white", "cream", "light grey"},
		"soft ivory":       {"white", "cream"},
		"pale grey":        {"light grey", "white", "charcoal"},
		"very pale blue":   {"white", "light grey", "denim blue"},
		"light warm beige": {"cream", "mustard"},
		"pale sage":        {"olive", "forest green"},
		"light cream":      {"cream", "white", "mustard"},
	},
	Fallback: "navy",
}
