package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "minotaur/internal/errors"
)

// HTTPClientConfig describes one chat-completions endpoint.
type HTTPClientConfig struct {
	Service       string
	APIKey        string
	Model         string
	APIURL        string
	HTTPClient    *http.Client
	MockResponder func(string) (string, error)
	Headers       map[string]string
	MaxTokens     int
	Temperature   float64
	// JSONMode asks the provider to return a single JSON object.
	JSONMode bool
}

const systemPrompt = "You are a security analyst. Respond only with the JSON object requested."

// errorBodyLimit caps how much of a failed response ends up in the error.
const errorBodyLimit = 2048

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (cfg HTTPClientConfig) request(prompt string) chatRequest {
	req := chatRequest{
		Model: cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	if cfg.JSONMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return req
}

// SendOnce performs a single non-streaming chat-completions request and
// returns the first choice's content. Non-200 answers become *APIError so
// the retry policy can classify them.
func SendOnce(ctx context.Context, cfg HTTPClientConfig, prompt string) (string, error) {
	if cfg.MockResponder != nil {
		return cfg.MockResponder(prompt)
	}
	if cfg.APIKey == "" {
		return "", fmt.Errorf("%s: API key is required", cfg.Service)
	}

	body, err := json.Marshal(cfg.request(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", cfg.Service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		retryAfter := apperrors.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return "", apperrors.NewAPIError(cfg.Service, resp.StatusCode, strings.TrimSpace(string(detail)), retryAfter)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", cfg.Service, err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no content in response")
	}
	return out.Choices[0].Message.Content, nil
}
