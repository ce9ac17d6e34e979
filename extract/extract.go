package extract

import (
	"encoding/json"
	"strings"
)

// Object attempts to recover a JSON object from arbitrary generated text.
// Tiers, in order, stopping at first success:
//
//  1. parse the whole text as a JSON object
//  2. locate a fenced code block and parse its inner text
//  3. scan for the first balanced brace-delimited span (tracking quoted
//     string state and escapes so braces inside strings are ignored) and
//     parse that span
//
// Returns (nil, false) when no tier yields an object. The function never
// panics and never returns an error; irrecoverable input is an expected
// outcome for callers.
func Object(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	if obj, ok := parseObject(trimmed); ok {
		return obj, true
	}

	if inner, ok := fencedBlock(trimmed); ok {
		if obj, ok := parseObject(inner); ok {
			return obj, true
		}
	}

	if span, ok := braceSpan(trimmed); ok {
		if obj, ok := parseObject(span); ok {
			return obj, true
		}
	}

	return nil, false
}

// parseObject unmarshals text into a map, rejecting top-level arrays and
// scalars.
func parseObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}
	// The literal null unmarshals into a nil map without error.
	if obj == nil {
		return nil, false
	}
	return obj, true
}

// fencedBlock returns the inner text of the first fenced code block,
// tolerating an optional language tag after the opening fence.
func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start+3:]

	// Skip the language tag line if present ("json", "JSON", etc.).
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}[]") {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	inner := strings.TrimSpace(rest[:end])
	if inner == "" {
		return "", false
	}
	return inner, true
}

// braceSpan scans for the first balanced {...} span. Braces inside quoted
// strings are ignored; backslash escapes inside strings are honored.
func braceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// String reads a string field from an extracted object, tolerating absence.
func String(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

// Number reads a numeric field from an extracted object. JSON numbers
// unmarshal as float64; string-wrapped numbers are not accepted.
func Number(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key].(float64)
	return v, ok
}

// List reads an array field from an extracted object.
func List(obj map[string]any, key string) []any {
	if v, ok := obj[key].([]any); ok {
		return v
	}
	return nil
}
