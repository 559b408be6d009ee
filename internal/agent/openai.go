package agent

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const openAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient implements the Agent interface for OpenAI chat models.
type OpenAIClient struct {
	retryPolicy
	cfg HTTPClientConfig
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(c Config) *OpenAIClient {
	url := openAIURL
	if c.BaseURL != "" {
		url = strings.TrimRight(c.BaseURL, "/") + "/v1/chat/completions"
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		retryPolicy: newRetryPolicy("openai", c),
		cfg: HTTPClientConfig{
			Service:     "openai",
			APIKey:      c.APIKey,
			Model:       c.Model,
			APIURL:      url,
			HTTPClient:  &http.Client{Timeout: timeout},
			MaxTokens:   c.MaxTokens,
			Temperature: c.Temperature,
			JSONMode:    true,
		},
	}
}

// WithMockResponder sets a mock responder for testing
func (c *OpenAIClient) WithMockResponder(fn func(string) (string, error)) *OpenAIClient {
	c.cfg.MockResponder = fn
	return c
}

// Send sends a prompt to OpenAI and returns the generated text.
func (c *OpenAIClient) Send(ctx context.Context, prompt string) (string, error) {
	return sendWithRetry(ctx, c.retryPolicy, c, prompt)
}

func (c *OpenAIClient) sendOnce(ctx context.Context, prompt string) (string, error) {
	return SendOnce(ctx, c.cfg, prompt)
}
