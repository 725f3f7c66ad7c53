package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Client for Anthropic Claude models
type AnthropicClient struct {
	client anthropic.Client
	config *Config
}

// NewAnthropicClient creates a new Claude client
func NewAnthropicClient(config *Config, apiKey string) *AnthropicClient {
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(config.BaseURL))
	}
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		config: config,
	}
}

// Complete generates text content with the named model
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, modelID string) (string, error) {
	if modelID == "" {
		return "", newCompletionError(ProviderAnthropic, modelID, "no model specified", nil)
	}

	maxTokens := int64(c.config.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(modelID),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(float64(c.config.Temperature)),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return "", newCompletionError(ProviderAnthropic, modelID, "messages request failed", err)
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			parts = append(parts, block.AsText().Text)
		}
	}
	if len(parts) == 0 {
		return "", newCompletionError(ProviderAnthropic, modelID, "no text blocks in response", nil)
	}

	return strings.Join(parts, ""), nil
}

// Close is a no-op; the HTTP transport is shared.
func (c *AnthropicClient) Close() error {
	return nil
}
