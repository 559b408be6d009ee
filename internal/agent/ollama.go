package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "minotaur/internal/errors"
)

const (
	ollamaDefaultURL = "http://localhost:11434"
	// Local models can take a while to load on first use.
	ollamaDefaultTimeout = 120 * time.Second
)

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// OllamaClient talks to a local Ollama service through /api/generate.
type OllamaClient struct {
	retryPolicy
	endpoint string
	model    string
	options  ollamaOptions
	http     *http.Client
	mock     func(string) (string, error)
}

// NewOllamaClient creates a new Ollama client.
// BaseURL defaults to http://localhost:11434.
func NewOllamaClient(c Config) *OllamaClient {
	base := c.BaseURL
	if base == "" {
		base = ollamaDefaultURL
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = ollamaDefaultTimeout
	}
	return &OllamaClient{
		retryPolicy: newRetryPolicy("ollama", c),
		endpoint:    strings.TrimRight(base, "/") + "/api/generate",
		model:       c.Model,
		options:     ollamaOptions{Temperature: c.Temperature, NumPredict: c.MaxTokens},
		http:        &http.Client{Timeout: timeout},
	}
}

// WithMockResponder bypasses the HTTP call.
func (c *OllamaClient) WithMockResponder(fn func(string) (string, error)) *OllamaClient {
	c.mock = fn
	return c
}

func (c *OllamaClient) Send(ctx context.Context, prompt string) (string, error) {
	return sendWithRetry(ctx, c.retryPolicy, c, prompt)
}

func (c *OllamaClient) sendOnce(ctx context.Context, prompt string) (string, error) {
	if c.mock != nil {
		return c.mock(prompt)
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Format:  "json",
		Options: c.options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return "", apperrors.NewAPIError("ollama", resp.StatusCode, strings.TrimSpace(string(detail)), 0)
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return out.Response, nil
}
