package llm

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

// DefaultDeepSeekBaseURL is the OpenAI-compatible DeepSeek endpoint.
const DefaultDeepSeekBaseURL = "https://ark.ap-southeast.bytepluses.com/api/v3"

// DeepSeekClient talks to DeepSeek through its OpenAI-compatible API.
type DeepSeekClient struct {
	client *openai.Client
}

// NewDeepSeekClient creates a DeepSeek client. baseURL may be empty to use
// the default endpoint.
func NewDeepSeekClient(apiKey, baseURL string) (*DeepSeekClient, error) {
	if apiKey == "" {
		return nil, errors.New("DeepSeek API key is required")
	}
	if baseURL == "" {
		baseURL = DefaultDeepSeekBaseURL
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &DeepSeekClient{
		client: openai.NewClientWithConfig(cfg),
	}, nil
}

// Name returns the provider name.
func (c *DeepSeekClient) Name() string {
	return "deepseek"
}

// Models returns available models.
func (c *DeepSeekClient) Models() []string {
	return []string{
		"deepseek-v3-2-251201",
		"deepseek-chat",
	}
}

// Complete sends a completion request.
func (c *DeepSeekClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return complete(ctx, c.client, req, "deepseek-v3-2-251201")
}
