// Package structured recovers JSON objects from free-form model output.
//
// Models are asked to return a single JSON object but often surround it with
// prose, wrap it in a code fence, or leave trailing commas. Extract finds the
// first well-formed object; Parse and Decode never fail and hand back a
// caller-supplied fallback instead.
package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/schemas"
)

// ErrNoObject is returned when no well-formed JSON object is present.
var ErrNoObject = errors.New("no JSON object found in response")

// Result is the outcome of Parse.
type Result struct {
	Fields   map[string]any
	Fallback bool
}

// Extract returns the first well-formed JSON object found in raw.
func Extract(raw string) (map[string]any, error) {
	text := llm.StripCodeFence(raw)

	for start := strings.IndexByte(text, '{'); start >= 0; {
		end := matchBrace(text, start)
		if end > start {
			if obj, ok := decodeObject(text[start : end+1]); ok {
				return obj, nil
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return nil, ErrNoObject
}

// Parse extracts a mapping from raw, returning a copy of fallback when none is found.
func Parse(raw string, fallback map[string]any) Result {
	obj, err := Extract(raw)
	if err != nil {
		return Result{Fields: deepCopyMap(fallback), Fallback: true}
	}
	return Result{Fields: obj}
}

// Decode extracts the first object from raw into T. When schemaName is
// non-empty the object must also satisfy that embedded JSON Schema. Any failure
// returns a fresh copy of fallback with ok=false.
func Decode[T any](raw string, fallback T, schemaName string) (T, bool) {
	obj, err := Extract(raw)
	if err != nil {
		return copyValue(fallback), false
	}
	if schemaName != "" {
		if err := schemas.Validate(schemaName, obj); err != nil {
			return copyValue(fallback), false
		}
	}

	// Round-trip through JSON so map fields land on struct tags.
	data, err := json.Marshal(obj)
	if err != nil {
		return copyValue(fallback), false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return copyValue(fallback), false
	}
	return out, true
}

// decodeObject parses candidate, retrying once with trailing commas removed.
func decodeObject(candidate string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj, true
	}
	repaired := stripTrailingCommas(candidate)
	if repaired == candidate {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &obj); err == nil {
		return obj, true
	}
	return nil, false
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
// Braces inside string literals are ignored.
func matchBrace(text string, start int) int {
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
				return i
			}
		}
	}
	return -1
}

// stripTrailingCommas drops commas that directly precede '}' or ']' outside strings.
func stripTrailingCommas(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
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
			sb.WriteByte(c)
			continue
		}

		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// copyValue returns an independent copy of v via JSON, so slices in a shared
// fallback are never aliased by callers. Values that cannot round-trip are returned as-is.
func copyValue[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// Describe summarizes raw for log lines when parsing falls back.
func Describe(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 120 {
		return fmt.Sprintf("%q... (%d bytes)", raw[:120], len(raw))
	}
	return fmt.Sprintf("%q", raw)
}
