package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client for OpenAI chat completions
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient creates a new OpenAI client. A non-empty config.BaseURL
// points the client at an OpenAI-compatible gateway.
func NewOpenAIClient(config *Config, apiKey string) *OpenAIClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Complete generates text content with the named model
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, modelID string) (string, error) {
	if modelID == "" {
		return "", newCompletionError(ProviderOpenAI, modelID, "no model specified", nil)
	}

	req := openai.ChatCompletionRequest{
		Model:       modelID,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", newCompletionError(ProviderOpenAI, modelID, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", newCompletionError(ProviderOpenAI, modelID, fmt.Sprintf("no choices in response %s", resp.ID), nil)
	}

	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the HTTP transport is shared.
func (c *OpenAIClient) Close() error {
	return nil
}
