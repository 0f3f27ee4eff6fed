package profile

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	femaleWords = regexp.MustCompile(`\b(female|woman|women|girls?|feminine|lady)\b`)
	maleWords   = regexp.MustCompile(`\b(male|man|men|boys?|masculine|gentleman)\b`)
)

// NormalizeGender maps free text onto the two presentations. Terms match
// whole words only.
func NormalizeGender(raw string) (Gender, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return "", false
	case s == "f", femaleWords.MatchString(s):
		return GenderFemale, true
	case s == "m", maleWords.MatchString(s):
		return GenderMale, true
	}
	return "", false
}

func NormalizeBuild(raw string) (Build, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case containsAny(s, "slim", "thin", "slender", "lean", "petite", "underweight", "frail", "skinny"):
		return BuildSlim, true
	case containsAny(s, "stocky", "heavy", "overweight", "obese", "large", "broad", "muscular", "solid", "plump"):
		return BuildStocky, true
	case containsAny(s, "average", "medium", "normal", "moderate", "typical"):
		return BuildAverage, true
	}
	return "", false
}

func NormalizeSocioeconomic(raw string) Socioeconomic {
	s := strings.ToLower(raw)
	switch {
	case containsAny(s, "homeless", "unhoused", "rough sleep", "no fixed abode"):
		return SocioHomeless
	case containsAny(s, "struggl", "low income", "low-income", "poor", "deprived", "poverty", "unemployed"):
		return SocioStruggling
	case containsAny(s, "affluent", "wealthy", "rich", "upper", "well-off", "well off"):
		return SocioAffluent
	case containsAny(s, "average", "middle", "working", "modest", "comfortable"):
		return SocioAverage
	}
	return SocioUnknown
}

// NormalizeGlam defaults to low.
func NormalizeGlam(raw string) GlamLevel {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "high"):
		return GlamHigh
	case containsAny(s, "medium", "moderate"):
		return GlamMedium
	}
	return GlamLow
}

// NormalizeRetouching defaults to none.
func NormalizeRetouching(raw string) Retouching {
	if containsAny(strings.ToLower(raw), "light", "subtle", "minimal") {
		return RetouchLight
	}
	return RetouchNone
}

// skinTones is ordered so compound labels match before their parts.
var skinTones = []struct {
	label string
	terms []string
}{
	{"very fair", []string{"very fair", "very pale", "porcelain"}},
	{"light-medium", []string{"light-medium", "light medium"}},
	{"dark brown", []string{"dark brown"}},
	{"fair", []string{"fair", "pale"}},
	{"light", []string{"light"}},
	{"olive", []string{"olive"}},
	{"tan", []string{"tan"}},
	{"medium", []string{"medium"}},
	{"brown", []string{"brown"}},
	{"deep", []string{"deep", "dark", "ebony"}},
}

func NormalizeSkinTone(raw string) string {
	s := strings.ToLower(raw)
	for _, t := range skinTones {
		if containsAny(s, t.terms...) {
			return t.label
		}
	}
	return Unspecified
}

func NormalizeHairTexture(raw string) string {
	s := strings.ToLower(raw)
	switch {
	case containsAny(s, "coily", "kinky", "afro", "tightly curled"):
		return "coily"
	case strings.Contains(s, "curl"):
		return "curly"
	case strings.Contains(s, "wav"):
		return "wavy"
	case strings.Contains(s, "straight"):
		return "straight"
	}
	return Unspecified
}

// NormalizeFreeText maps blanks and "unknown"-like answers to Unspecified.
func NormalizeFreeText(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "unknown", "unspecified", "n/a", "na", "none", "not stated", "not specified":
		return Unspecified
	}
	return s
}

var (
	ageRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(months?|mos?|weeks?|wks?|days?|years?|yrs?|y)?`)
	// 18/12 is eighteen months, 6/52 six weeks.
	ageFraction = regexp.MustCompile(`\b(\d+)\s*/\s*(12|52)\b`)
)

// ParseAge extracts an age in years from text like "34", "34 years old",
// "18 months" or "18/12". A number with a year unit wins over other numbers
// in the text. Newborns and infants without a number count as zero.
func ParseAge(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	matches := ageRegex.FindAllStringSubmatch(s, -1)
	for _, m := range matches {
		if strings.HasPrefix(m[2], "y") {
			return ageValue(m[1], 1)
		}
	}
	if m := ageFraction.FindStringSubmatch(s); m != nil {
		div, _ := strconv.ParseFloat(m[2], 64)
		return ageValue(m[1], div)
	}
	if len(matches) == 0 {
		if containsAny(s, "newborn", "neonate", "infant", "baby") {
			return 0, true
		}
		return 0, false
	}
	m := matches[0]
	switch {
	case strings.HasPrefix(m[2], "mo"):
		return ageValue(m[1], 12)
	case strings.HasPrefix(m[2], "w"):
		return ageValue(m[1], 52)
	case strings.HasPrefix(m[2], "d"):
		return ageValue(m[1], 365)
	}
	return ageValue(m[1], 1)
}

func ageValue(num string, perYear float64) (float64, bool) {
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return n / perYear, true
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
