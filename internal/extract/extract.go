// Package extract recovers JSON objects from free-form model output.
//
// Language models frequently wrap the requested JSON in prose or markdown
// code fences, or append commentary after it. Object tries a direct parse
// first and then scans for the first balanced object that decodes.
package extract

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON indicates no parseable JSON object was found in the text.
var ErrNoJSON = errors.New("no JSON object found in response")

// Object returns the first JSON object contained in text.
func Object(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrNoJSON
	}

	if obj, ok := decodeObject(trimmed); ok {
		return obj, nil
	}

	unfenced := stripFences(trimmed)
	if unfenced != trimmed {
		if obj, ok := decodeObject(unfenced); ok {
			return obj, nil
		}
	}

	if obj, ok := scan(unfenced); ok {
		return obj, nil
	}
	if unfenced != trimmed {
		if obj, ok := scan(trimmed); ok {
			return obj, nil
		}
	}

	return nil, ErrNoJSON
}

// scan returns the first balanced object in s that decodes.
func scan(s string) (map[string]any, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s, start); end > start {
			if obj, ok := decodeObject(s[start : end+1]); ok {
				return obj, true
			}
		}

		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

// decodeObject parses s as exactly one JSON object.
func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}

	// Trailing text means the object was embedded in prose.
	if strings.TrimSpace(s[dec.InputOffset():]) != "" {
		return nil, false
	}

	return obj, true
}

// stripFences removes markdown fence markers such as ```json and ```,
// including ones sharing a line with the JSON itself.
func stripFences(s string) string {
	if !strings.Contains(s, fence) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.Index(s, fence)
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		b.WriteByte('\n')

		s = s[i+len(fence):]
		// Language tag, if any.
		j := 0
		for j < len(s) && isTagByte(s[j]) {
			j++
		}
		s = s[j:]
	}
	return strings.TrimSpace(b.String())
}

const fence = "```"

func isTagByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

// matchBrace returns the index of the brace closing the object opened at
// start, or -1. Braces inside JSON strings are ignored.
func matchBrace(s string, start int) int {
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
				return i
			}
		}
	}

	return -1
}
