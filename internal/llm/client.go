package llm

import (
	"context"
	"fmt"
)

// Client is an abstraction over LLM providers.
// Implementations must be safe for concurrent use by independent requests.
type Client interface {
	// Complete sends one prompt to the given model and returns the generated text.
	// Failures are reported as *CompletionError. No retries are performed.
	Complete(ctx context.Context, prompt string, modelID string) (string, error)
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for provider %s", config.Provider)
	}

	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config, apiKey), nil
	case ProviderAnthropic:
		return NewAnthropicClient(config, apiKey), nil
	default:
		return NewGeminiClient(ctx, config, apiKey)
	}
}
