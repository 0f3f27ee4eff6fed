// Package jsonutil extracts and decodes JSON objects from model responses
// that may be wrapped in markdown code fences or surrounded by prose.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionError reports why no usable JSON object could be taken from a response.
type ExtractionError struct {
	Reason  string
	Preview string
	Err     error
}

func (e *ExtractionError) Error() string {
	msg := "json extraction: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Preview != "" {
		msg += fmt.Sprintf(" (text: %s)", e.Preview)
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StripMarkdownFences removes ```json ... ``` or ``` ... ``` wrapping from text.
// Returns the content between the fences, or the original text if no fences are found.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.Join(lines[1:endIdx], "\n")
}

// ExtractObject returns the first balanced {...} substring of text. Braces
// inside JSON string literals are ignored, so prose before or after the
// object and nested objects are both tolerated.
func ExtractObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", &ExtractionError{Reason: "no opening brace", Preview: Preview(text)}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", &ExtractionError{Reason: "unbalanced braces", Preview: Preview(text[start:])}
}

// Fields extracts the first object from raw and splits it into top-level
// keys without interpreting the values.
func Fields(raw string) (map[string]json.RawMessage, error) {
	obj, err := ExtractObject(StripMarkdownFences(raw))
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return nil, &ExtractionError{Reason: "invalid JSON", Preview: Preview(obj), Err: err}
	}
	return fields, nil
}

// DecodeObject extracts the first object from raw and unmarshals it into T.
func DecodeObject[T any](raw string) (T, error) {
	var zero T
	obj, err := ExtractObject(StripMarkdownFences(raw))
	if err != nil {
		return zero, err
	}
	var result T
	if err := json.Unmarshal([]byte(obj), &result); err != nil {
		return zero, &ExtractionError{Reason: "invalid JSON", Preview: Preview(obj), Err: err}
	}
	return result, nil
}

// Preview truncates s to 200 bytes for error messages and logs.
func Preview(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
