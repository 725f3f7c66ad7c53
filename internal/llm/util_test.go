package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "code block with language",
			input:    "```markdown\nDear Hiring Manager,\n```",
			expected: "Dear Hiring Manager,",
		},
		{
			name:     "plain text is trimmed",
			input:    "  Dear Hiring Manager,\n\n",
			expected: "Dear Hiring Manager,",
		},
		{
			name:     "unterminated fence",
			input:    "```json\n{\"a\": 1}",
			expected: `{"a": 1}`,
		},
		{
			name:     "fence opening with content on first line",
			input:    "```{\"a\": 1}```",
			expected: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFence(tt.input))
		})
	}
}

func TestOutputInstructions(t *testing.T) {
	out := OutputInstructions(VerdictSchema())

	assert.True(t, strings.HasPrefix(out, "Return ONLY valid JSON"))
	assert.Contains(t, out, `"valid": boolean (required)`)
	assert.Contains(t, out, `"issues": ["string"] (required)`)
}

func TestOutputInstructions_DefaultTypeHint(t *testing.T) {
	out := OutputInstructions(ExtractionSchema{Fields: []SchemaField{{Name: "title"}}})
	assert.Contains(t, out, `"title": "string"`)
}
