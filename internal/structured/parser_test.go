package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pynay/LetterChain/internal/schemas"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{
			name:  "bare object",
			input: `{"valid": true, "issues": []}`,
			want:  map[string]any{"valid": true, "issues": []any{}},
		},
		{
			name:  "surrounding prose",
			input: "Sure! Here is the analysis:\n{\"title\": \"Engineer\"}\nLet me know if you need more.",
			want:  map[string]any{"title": "Engineer"},
		},
		{
			name:  "json code fence",
			input: "```json\n{\"company\": \"Acme\"}\n```",
			want:  map[string]any{"company": "Acme"},
		},
		{
			name:  "fence after preamble",
			input: "Result:\n```json\n{\"company\": \"Acme\"}\n```",
			want:  map[string]any{"company": "Acme"},
		},
		{
			name:  "trailing commas",
			input: `{"skills": ["Go", "SQL",], "name": "Ada",}`,
			want:  map[string]any{"skills": []any{"Go", "SQL"}, "name": "Ada"},
		},
		{
			name:  "comma inside string is kept",
			input: `{"summary": "fast, }reliable", "n": 1,}`,
			want:  map[string]any{"summary": "fast, }reliable", "n": 1.0},
		},
		{
			name:  "braces inside strings",
			input: `{"note": "use {curly} braces", "ok": true}`,
			want:  map[string]any{"note": "use {curly} braces", "ok": true},
		},
		{
			name:  "first well-formed object wins",
			input: `{"a": 1} and then {"b": 2}`,
			want:  map[string]any{"a": 1.0},
		},
		{
			name:  "malformed first object is skipped",
			input: `{oops not json} {"b": 2}`,
			want:  map[string]any{"b": 2.0},
		},
		{
			name:  "nested object",
			input: `text {"outer": {"inner": [1, 2]}} text`,
			want:  map[string]any{"outer": map[string]any{"inner": []any{1.0, 2.0}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_NoObject(t *testing.T) {
	for _, input := range []string{"", "no json here", "[1, 2, 3]", `{"unterminated": true`} {
		_, err := Extract(input)
		assert.ErrorIs(t, err, ErrNoObject, input)
	}
}

func TestParse_FallbackIsDeterministic(t *testing.T) {
	fallback := map[string]any{"valid": false, "issues": []any{"parse error"}}

	first := Parse("garbage", fallback)
	second := Parse("more garbage", fallback)

	assert.True(t, first.Fallback)
	assert.Equal(t, fallback, first.Fields)
	assert.Equal(t, first.Fields, second.Fields)

	// Mutating one result must not leak into the next.
	first.Fields["issues"] = append(first.Fields["issues"].([]any), "extra")
	assert.Equal(t, fallback, Parse("x", fallback).Fields)
}

func TestParse_Success(t *testing.T) {
	res := Parse(`{"valid": true}`, map[string]any{"valid": false})
	assert.False(t, res.Fallback)
	assert.Equal(t, true, res.Fields["valid"])
}

type verdict struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

func TestDecode(t *testing.T) {
	fallback := verdict{Valid: false, Issues: []string{"parse error"}}

	got, ok := Decode("```json\n{\"valid\": false, \"issues\": [\"no closing\",]}\n```", fallback, schemas.Verdict)
	require.True(t, ok)
	assert.Equal(t, verdict{Valid: false, Issues: []string{"no closing"}}, got)

	got, ok = Decode(`{"valid": "maybe"}`, fallback, schemas.Verdict)
	assert.False(t, ok, "schema mismatch falls back")
	assert.Equal(t, fallback, got)

	got, ok = Decode("not json", fallback, "")
	assert.False(t, ok)
	assert.Equal(t, fallback, got)

	got.Issues[0] = "changed"
	assert.Equal(t, "parse error", fallback.Issues[0])
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, `"short"`, Describe("  short "))
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	assert.Contains(t, Describe(string(long)), "(200 bytes)")
}
