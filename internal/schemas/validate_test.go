package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{JobProfile, Matches, ResumeProfile, Verdict}, Names())
}

func TestValidate_Verdict(t *testing.T) {
	tests := []struct {
		name    string
		doc     map[string]any
		wantErr bool
	}{
		{"valid with no issues", map[string]any{"valid": true, "issues": []any{}}, false},
		{"invalid with issues", map[string]any{"valid": false, "issues": []any{"missing company"}}, false},
		{"missing valid", map[string]any{"issues": []any{}}, true},
		{"valid as string", map[string]any{"valid": "yes"}, true},
		{"issue not a string", map[string]any{"valid": false, "issues": []any{3.0}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Verdict, tt.doc)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "error should be ValidationError type")
			assert.Equal(t, Verdict, ve.Schema)
			assert.NotEmpty(t, ve.Errors)
		})
	}
}

func TestValidate_ResumeProfile(t *testing.T) {
	doc := map[string]any{
		"name": "Ada",
		"experiences": []any{
			map[string]any{"title": "Engineer", "org": "Acme", "description": "Built things"},
		},
		"skills": []any{"Go"},
	}
	assert.NoError(t, Validate(ResumeProfile, doc))

	doc["experiences"] = "Engineer at Acme"
	err := Validate(ResumeProfile, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "experiences")
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope", map[string]any{})
	var le *SchemaLoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, err.Error(), "schema not found")
}

func TestCheck_EmbeddedSchemasCompile(t *testing.T) {
	require.NoError(t, Check())
	for _, name := range Names() {
		err := Validate(name, map[string]any{})
		var le *SchemaLoadError
		assert.False(t, errors.As(err, &le), name)
	}
}
