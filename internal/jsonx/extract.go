package jsonx

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNotFound is returned when a response contains no extractable JSON.
var ErrNotFound = errors.New("no valid JSON found in response")

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// StripFences removes Markdown code fences around a response body, returning
// the inner content of the first fenced block if present.
func StripFences(s string) string {
	if m := fencePattern.FindStringSubmatch(s); len(m) >= 2 {
		return m[1]
	}
	return strings.TrimSpace(s)
}

// Extract pulls the first balanced JSON object or array out of free-form AI
// text. Fenced blocks are unwrapped first; whichever of '{' or '[' appears
// earlier wins.
func Extract(response string) (string, error) {
	cleaned := StripFences(response)

	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if s, ok := balanced(cleaned, '{', '}'); ok && json.Valid([]byte(s)) {
			return s, nil
		}
	}
	if arrStart >= 0 {
		if s, ok := balanced(cleaned, '[', ']'); ok && json.Valid([]byte(s)) {
			return s, nil
		}
	}

	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	return "", ErrNotFound
}

// Unmarshal extracts and decodes in one step.
func Unmarshal(response string, v any) error {
	s, err := Extract(response)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(s), v)
}

// balanced finds the first depth-balanced structure opened by openChar,
// honoring string literals and escapes.
func balanced(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
