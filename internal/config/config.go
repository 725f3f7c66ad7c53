// Package config loads the service and CLI configuration from a JSON or YAML
// file, overlays environment variables, and validates the result.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pynay/LetterChain/internal/llm"
)

// Models overrides the model ID per tier. Empty entries keep the provider default.
type Models struct {
	Lite     string `json:"lite,omitempty" yaml:"lite,omitempty"`
	Standard string `json:"standard,omitempty" yaml:"standard,omitempty"`
	Advanced string `json:"advanced,omitempty" yaml:"advanced,omitempty"`
}

// Config represents the full configuration. Every field is optional in a file;
// Default supplies the rest.
type Config struct {
	// Provider selection
	Provider    string  `json:"provider" yaml:"provider" validate:"oneof=gemini openai anthropic"`
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	Models      Models  `json:"models" yaml:"models"`
	Temperature float32 `json:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" validate:"gte=0"`

	// Workflow
	MaxAttempts   int    `json:"max_attempts" yaml:"max_attempts" validate:"gte=1,lte=10"`
	MinInputChars int    `json:"min_input_chars" yaml:"min_input_chars" validate:"gte=0"`
	Validator     string `json:"validator" yaml:"validator" validate:"oneof=llm rules"`

	// Transport
	CompletionTimeout Duration `json:"completion_timeout" yaml:"completion_timeout" validate:"gte=0"`
	TransportRetries  int      `json:"transport_retries" yaml:"transport_retries" validate:"gte=0,lte=1"`
	RetryBackoff      Duration `json:"retry_backoff" yaml:"retry_backoff" validate:"gte=0"`
	RequestsPerSecond float64  `json:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Burst             int      `json:"burst" yaml:"burst" validate:"gte=0"`

	// Storage
	DatabaseURL  string   `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	CacheTTL     Duration `json:"cache_ttl" yaml:"cache_ttl" validate:"gte=0"`
	CacheEntries int      `json:"cache_entries" yaml:"cache_entries" validate:"gte=0"`

	// Job posting fetch
	UseBrowser bool `json:"use_browser" yaml:"use_browser"`

	// Server and logging
	Port      int    `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	LogLevel  string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `json:"log_format" yaml:"log_format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:          string(llm.ProviderGemini),
		Temperature:       0.2,
		MaxTokens:         2048,
		MaxAttempts:       3,
		MinInputChars:     100,
		Validator:         "llm",
		CompletionTimeout: Duration(60 * time.Second),
		TransportRetries:  1,
		RetryBackoff:      Duration(500 * time.Millisecond),
		CacheTTL:          Duration(24 * time.Hour),
		CacheEntries:      1024,
		Port:              8080,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load builds the configuration: defaults, then the file at path if path is
// non-empty, then the environment read through getenv (os.Getenv when nil).
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.ApplyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return nil
}

// Environment variable names.
const (
	EnvPrefix      = "LETTERCHAIN_"
	EnvDatabaseURL = "DATABASE_URL"
	EnvPort        = "PORT"
)

// APIKeyEnv returns the conventional API key variables for a provider, in
// lookup order.
func APIKeyEnv(provider string) []string {
	switch llm.Provider(provider) {
	case llm.ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	case llm.ProviderAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	default:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
}

// ApplyEnv overlays LETTERCHAIN_* variables, DATABASE_URL, PORT, and the
// provider's API key variable. Unparseable numeric values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(EnvPrefix + name)); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := strings.TrimSpace(getenv(EnvPrefix + name)); v != "" {
			var n int
			if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
				*dst = n
			}
		}
	}
	dur := func(name string, dst *Duration) {
		if v := strings.TrimSpace(getenv(EnvPrefix + name)); v != "" {
			if d, err := ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("PROVIDER", &c.Provider)
	str("BASE_URL", &c.BaseURL)
	str("MODEL_LITE", &c.Models.Lite)
	str("MODEL_STANDARD", &c.Models.Standard)
	str("MODEL_ADVANCED", &c.Models.Advanced)
	str("VALIDATOR", &c.Validator)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	num("MAX_ATTEMPTS", &c.MaxAttempts)
	num("MIN_INPUT_CHARS", &c.MinInputChars)
	num("TRANSPORT_RETRIES", &c.TransportRetries)
	num("BURST", &c.Burst)
	num("CACHE_ENTRIES", &c.CacheEntries)
	dur("COMPLETION_TIMEOUT", &c.CompletionTimeout)
	dur("RETRY_BACKOFF", &c.RetryBackoff)
	dur("CACHE_TTL", &c.CacheTTL)
	if v := strings.TrimSpace(getenv(EnvPrefix + "REQUESTS_PER_SECOND")); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			c.RequestsPerSecond = f
		}
	}
	if v := strings.TrimSpace(getenv(EnvPrefix + "USE_BROWSER")); v != "" {
		c.UseBrowser = v == "1" || strings.EqualFold(v, "true")
	}

	if v := strings.TrimSpace(getenv(EnvDatabaseURL)); v != "" {
		c.DatabaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		var p int
		if _, err := fmt.Sscanf(v, "%d", &p); err == nil {
			c.Port = p
		}
	}

	str("API_KEY", &c.APIKey)
	if c.APIKey == "" {
		for _, name := range APIKeyEnv(c.Provider) {
			if v := strings.TrimSpace(getenv(name)); v != "" {
				c.APIKey = v
				break
			}
		}
	}
}

var validate = newValidator()

// newValidator reports fields by their json key.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config error: %s %s", e.Field, e.Message)
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("config error: %w", err)
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "oneof":
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())}
	case "gte":
		return &ValidationError{Field: field, Message: "must be at least " + fe.Param()}
	case "lte":
		return &ValidationError{Field: field, Message: "must be at most " + fe.Param()}
	case "url":
		return &ValidationError{Field: field, Message: "must be a valid URL"}
	default:
		return &ValidationError{Field: field, Message: fmt.Sprintf("failed %q check", fe.Tag())}
	}
}

// LLMConfig returns the completion settings for the configured provider.
func (c *Config) LLMConfig() *llm.Config {
	provider, err := llm.ParseProvider(c.Provider)
	if err != nil {
		provider = llm.ProviderGemini
	}
	out := llm.ConfigFor(provider)
	out.Temperature = c.Temperature
	if c.MaxTokens > 0 {
		out.MaxTokens = c.MaxTokens
	}
	out.BaseURL = c.BaseURL
	if c.Models.Lite != "" {
		out = out.WithModel(llm.TierLite, c.Models.Lite)
	}
	if c.Models.Standard != "" {
		out = out.WithModel(llm.TierStandard, c.Models.Standard)
	}
	if c.Models.Advanced != "" {
		out = out.WithModel(llm.TierAdvanced, c.Models.Advanced)
	}
	return out
}
