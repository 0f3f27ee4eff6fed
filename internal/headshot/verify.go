package headshot

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/chat"
	"github.com/fpang/synthetic-patients/internal/profile"
)

// Verifier asks closed yes/no questions about a generated image.
type Verifier struct {
	model chat.VisionModel
}

func NewVerifier(model chat.VisionModel) *Verifier {
	return &Verifier{model: model}
}

// Ask returns true only for an answer that starts with "yes". Errors count
// as no.
func (v *Verifier) Ask(ctx context.Context, img chat.Image, question string) bool {
	answer, err := v.model.AskAboutImage(ctx, img, question)
	if err != nil {
		log.Warn().Err(err).Str("question", question).Msg("Vision check failed, scoring as no")
		return false
	}
	ok := IsAffirmative(answer)
	log.Debug().Str("question", question).Str("answer", truncate(answer, 80)).Bool("ok", ok).Msg("Vision check")
	return ok
}

// IsAffirmative reports whether text begins with the word "yes", ignoring
// case, leading whitespace and markdown emphasis.
func IsAffirmative(text string) bool {
	s := strings.TrimLeftFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("*_`\"'#>-", r)
	})
	s = strings.ToLower(s)
	if !strings.HasPrefix(s, "yes") {
		return false
	}
	rest := s[len("yes"):]
	if rest == "" {
		return true
	}
	r := []rune(rest)[0]
	return !unicode.IsLetter(r)
}

const answerSuffix = " Answer only yes or no."

func countQuestion(d profile.Decision) string {
	if d.Composition == profile.Pair {
		return "Does this image show exactly two people, with no other people or partial figures?" + answerSuffix
	}
	return "Does this image show exactly one person, with no other people or partial figures?" + answerSuffix
}

func genderQuestion(p *profile.Profile, d profile.Decision, child bool) string {
	noun := genderNoun(p.GenderPresentation, child)
	if d.Composition == profile.Pair {
		return fmt.Sprintf("Is the patient in this image, the person who is not the %s, clearly %s?%s", companionRole(d), noun, answerSuffix)
	}
	return fmt.Sprintf("Is the person in this image clearly %s?%s", noun, answerSuffix)
}

func clothingQuestion(p *profile.Profile) string {
	item := strings.TrimSpace(p.ClothingType)
	if item == "" {
		item = "clothing"
	}
	return fmt.Sprintf("Is the patient wearing %s %s, with %s as the main clothing colour?%s", p.ClothingColor, item, p.ClothingColor, answerSuffix)
}

func childAdultQuestion() string {
	return "Does this image show one child together with one adult?" + answerSuffix
}

func companionRole(d profile.Decision) string {
	if d.Companion == nil || d.Companion.Role == "" {
		return "companion"
	}
	return d.Companion.Role
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
