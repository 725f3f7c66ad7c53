package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/llm/llmtest"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL.Std())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("", env(map[string]string{"GEMINI_API_KEY": "g-key"}))
	require.NoError(t, err)
	assert.Equal(t, "g-key", cfg.APIKey)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "letterchain.yaml", `
provider: openai
models:
  advanced: gpt-custom
max_attempts: 5
completion_timeout: 90s
retry_backoff: 2
validator: rules
log_format: json
`)
	cfg, err := Load(path, env(map[string]string{"OPENAI_API_KEY": "o-key", "GEMINI_API_KEY": "g-key"}))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "o-key", cfg.APIKey)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.CompletionTimeout.Std())
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff.Std())
	assert.Equal(t, "rules", cfg.Validator)
	assert.Equal(t, "json", cfg.LogFormat)
	// untouched fields keep defaults
	assert.Equal(t, 100, cfg.MinInputChars)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"provider":"anthropic","cache_ttl":"1h","port":9090,"completion_timeout":30}`)
	cfg, err := Load(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, time.Hour, cfg.CacheTTL.Std())
	assert.Equal(t, 30*time.Second, cfg.CompletionTimeout.Std())
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), env(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeFile(t, "bad.json", `{"provider":`)
	_, err := Load(path, env(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestApplyEnv_Overrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{
		"LETTERCHAIN_PROVIDER":            "anthropic",
		"LETTERCHAIN_MAX_ATTEMPTS":        "4",
		"LETTERCHAIN_COMPLETION_TIMEOUT":  "45s",
		"LETTERCHAIN_REQUESTS_PER_SECOND": "2.5",
		"LETTERCHAIN_USE_BROWSER":         "true",
		"LETTERCHAIN_MODEL_STANDARD":      "claude-mid",
		"ANTHROPIC_API_KEY":               "a-key",
		"DATABASE_URL":                    "postgres://localhost/letters",
		"PORT":                            "7000",
	}))

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 45*time.Second, cfg.CompletionTimeout.Std())
	assert.InDelta(t, 2.5, cfg.RequestsPerSecond, 1e-9)
	assert.True(t, cfg.UseBrowser)
	assert.Equal(t, "claude-mid", cfg.Models.Standard)
	assert.Equal(t, "a-key", cfg.APIKey)
	assert.Equal(t, "postgres://localhost/letters", cfg.DatabaseURL)
	assert.Equal(t, 7000, cfg.Port)
}

func TestApplyEnv_ExplicitKeyWins(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{
		"LETTERCHAIN_API_KEY": "explicit",
		"GEMINI_API_KEY":      "provider",
	}))
	assert.Equal(t, "explicit", cfg.APIKey)
}

func TestApplyEnv_GoogleKeyFallback(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{"GOOGLE_API_KEY": "google"}))
	assert.Equal(t, "google", cfg.APIKey)
}

func TestApplyEnv_IgnoresBadNumbers(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{"LETTERCHAIN_MAX_ATTEMPTS": "lots"}))
	assert.Equal(t, 3, cfg.MaxAttempts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown provider", func(c *Config) { c.Provider = "cohere" }, "provider"},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, "max_attempts"},
		{"too many attempts", func(c *Config) { c.MaxAttempts = 11 }, "max_attempts"},
		{"unknown validator", func(c *Config) { c.Validator = "vibes" }, "validator"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port"},
		{"bad base url", func(c *Config) { c.BaseURL = "not a url" }, "base_url"},
		{"too many transport retries", func(c *Config) { c.TransportRetries = 2 }, "transport_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDefault_RetriesStepCallOnce(t *testing.T) {
	cfg := Default()
	fake := llmtest.New().OnFunc("", func(context.Context, string, string) (string, error) {
		return "", &llm.CompletionError{Provider: llm.ProviderGemini, Model: "m", Message: "503 overloaded", Retryable: true}
	})

	client := llm.WithRetry(fake, cfg.TransportRetries, 0)
	_, err := client.Complete(context.Background(), "TASK: parse-job", "m")

	require.Error(t, err)
	assert.True(t, llm.IsRetryable(err))
	assert.LessOrEqual(t, len(fake.Calls()), 2)
}

func TestLLMConfig(t *testing.T) {
	cfg := Default()
	cfg.Provider = "openai"
	cfg.Models.Advanced = "gpt-big"
	cfg.Temperature = 0.7
	cfg.BaseURL = "http://localhost:11434/v1"

	out := cfg.LLMConfig()
	assert.Equal(t, llm.ProviderOpenAI, out.Provider)
	assert.Equal(t, "gpt-big", out.GetModel(llm.TierAdvanced))
	assert.Equal(t, "gpt-4o", out.GetModel(llm.TierStandard))
	assert.InDelta(t, 0.7, out.Temperature, 1e-6)
	assert.Equal(t, "http://localhost:11434/v1", out.BaseURL)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d.Std())

	d, err = ParseDuration("1.5")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d.Std())

	_, err = ParseDuration("soon")
	assert.Error(t, err)
}
