package agent

import (
	"context"
	"net/http"
	"time"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterClient implements the Agent interface for OpenRouter.
type OpenRouterClient struct {
	retryPolicy
	cfg HTTPClientConfig
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(c Config) *OpenRouterClient {
	url := openRouterURL
	if c.BaseURL != "" {
		url = c.BaseURL
	}
	timeout := c.Timeout
	if timeout <= 0 {
		// OpenRouter can be slower depending on the underlying model
		timeout = 120 * time.Second
	}
	return &OpenRouterClient{
		retryPolicy: newRetryPolicy("openrouter", c),
		cfg: HTTPClientConfig{
			Service:     "openrouter",
			APIKey:      c.APIKey,
			Model:       c.Model,
			APIURL:      url,
			HTTPClient:  &http.Client{Timeout: timeout},
			MaxTokens:   c.MaxTokens,
			Temperature: c.Temperature,
			Headers:     map[string]string{"X-Title": "minotaur"},
		},
	}
}

// WithMockResponder sets a mock responder for testing
func (c *OpenRouterClient) WithMockResponder(fn func(string) (string, error)) *OpenRouterClient {
	c.cfg.MockResponder = fn
	return c
}

// Send sends a prompt to OpenRouter and returns the generated text.
func (c *OpenRouterClient) Send(ctx context.Context, prompt string) (string, error) {
	return sendWithRetry(ctx, c.retryPolicy, c, prompt)
}

func (c *OpenRouterClient) sendOnce(ctx context.Context, prompt string) (string, error) {
	return SendOnce(ctx, c.cfg, prompt)
}
