package cues

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLength caps a single cue, in characters.
const DefaultMaxLength = 220

// Rule names reported by Validate.
const (
	RuleTooMany     = "too-many-cues"
	RuleSentences   = "multiple-sentences"
	RuleIfThen      = "not-if-then"
	RuleDigit       = "contains-digit"
	RuleReasoning   = "reasoning-connective"
	RuleDiagnostic  = "diagnostic-vocabulary"
	RuleTooLong     = "too-long"
	ruleWholeOutput = -1
)

// Violation is one broken rule. Index is -1 for whole-output rules.
type Violation struct {
	Index int
	Rule  string
	Cue   string
}

func (v Violation) String() string {
	if v.Index == ruleWholeOutput {
		return v.Rule
	}
	return fmt.Sprintf("cue %d: %s", v.Index+1, v.Rule)
}

var (
	thenWord        = regexp.MustCompile(`(?i)\bthen\b`)
	innerSentence   = regexp.MustCompile(`[.!?]+["')\]]*\s+\S`)
	reasoningTerms  = []string{"because", "i think", "it must", "so i think", "therefore"}
	diagnosticTerms = []string{
		"red flag", "red-flag", "diagnos", "differential", "symptom of", "sign of",
		"consistent with", "indicative", "suggestive", "rule out", "syndrome",
		"disease", "disorder", "infection", "cancer", "tumour", "tumor",
		"fracture", "sepsis", "emergency", "urgent",
	}
)

// Validator is the network-free cue predicate.
type Validator struct {
	MaxCues   int
	MaxLength int
}

// NewValidator returns a Validator with package defaults for zero values.
func NewValidator(maxLength int) Validator {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return Validator{MaxCues: MaxCues, MaxLength: maxLength}
}

// Validate returns every violation; an empty result means the cues pass.
func (v Validator) Validate(cues []string) []Violation {
	var out []Violation
	maxCues := v.MaxCues
	if maxCues <= 0 {
		maxCues = MaxCues
	}
	if len(cues) > maxCues {
		out = append(out, Violation{Index: ruleWholeOutput, Rule: RuleTooMany})
	}
	for i, c := range cues {
		for _, rule := range v.check(c) {
			out = append(out, Violation{Index: i, Rule: rule, Cue: c})
		}
	}
	return out
}

func (v Validator) check(cue string) []string {
	var rules []string
	s := strings.TrimSpace(cue)
	lower := strings.ToLower(s)

	if innerSentence.MatchString(s) {
		rules = append(rules, RuleSentences)
	}
	if !strings.HasPrefix(s, "If ") || !thenWord.MatchString(s) {
		rules = append(rules, RuleIfThen)
	}
	if strings.IndexFunc(s, unicode.IsDigit) >= 0 {
		rules = append(rules, RuleDigit)
	}
	if containsAny(lower, reasoningTerms) {
		rules = append(rules, RuleReasoning)
	}
	if containsAny(lower, diagnosticTerms) {
		rules = append(rules, RuleDiagnostic)
	}
	maxLen := v.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	if utf8.RuneCountInString(s) > maxLen {
		rules = append(rules, RuleTooLong)
	}
	return rules
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// Describe renders violations for logs and the repair prompt.
func Describe(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}
