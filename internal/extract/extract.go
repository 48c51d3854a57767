// Package extract recovers structured values from backend output.
//
// Backends frequently wrap JSON in prose or markdown fences. Instead of
// failing the whole step, normalization walks a ladder of increasingly
// permissive extraction rungs and finally degrades to returning the raw
// text. Callers must treat schema-typed results as best-effort.
package extract

import (
	"encoding/json"
	"strings"
)

// Normalize converts raw backend output into a canonical result. With no
// schema requested the trimmed text is returned unchanged. With a schema
// it tries, in order: direct JSON parse, a ```json fenced block, the
// first balanced brace-delimited substring. When every rung fails the
// trimmed text is returned rather than an error.
func Normalize(raw string, schema map[string]any) any {
	text := strings.TrimSpace(raw)
	if len(schema) == 0 {
		return text
	}

	if v, ok := ParseDirect(text); ok {
		return v
	}
	if block, ok := FencedBlock(text, "json"); ok {
		if v, ok := ParseDirect(block); ok {
			return v
		}
	}
	if fragment, ok := FirstBraced(text); ok {
		if v, ok := ParseDirect(fragment); ok {
			return v
		}
	}
	return text
}

// ParseDirect parses s as a JSON document.
func ParseDirect(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// FencedBlock returns the contents of the first markdown code fence
// tagged with lang.
func FencedBlock(s, lang string) (string, bool) {
	open := "```" + lang
	start := strings.Index(s, open)
	if start < 0 {
		return "", false
	}
	rest := s[start+len(open):]
	// The tag must end the fence line.
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 || strings.TrimSpace(rest[:nl]) != "" {
		return "", false
	}
	rest = rest[nl+1:]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// FirstBraced returns the first brace-delimited substring whose braces
// balance, skipping braces inside JSON string literals.
func FirstBraced(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
