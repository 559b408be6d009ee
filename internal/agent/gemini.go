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
	"time"

	apperrors "minotaur/internal/errors"
)

const geminiURL = "https://generativelanguage.googleapis.com/v1beta/models"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// GeminiClient calls the Gemini generateContent endpoint.
type GeminiClient struct {
	retryPolicy
	apiKey   string
	endpoint string
	gen      geminiGenerationConfig
	http     *http.Client
	mock     func(string) (string, error)
}

// NewGeminiClient creates a new Gemini client. BaseURL replaces the
// .../v1beta/models prefix.
func NewGeminiClient(c Config) *GeminiClient {
	base := geminiURL
	if c.BaseURL != "" {
		base = strings.TrimRight(c.BaseURL, "/")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		retryPolicy: newRetryPolicy("gemini", c),
		apiKey:      c.APIKey,
		endpoint:    fmt.Sprintf("%s/%s:generateContent", base, c.Model),
		gen: geminiGenerationConfig{
			Temperature:      c.Temperature,
			MaxOutputTokens:  c.MaxTokens,
			ResponseMimeType: "application/json",
		},
		http: &http.Client{Timeout: timeout},
	}
}

// WithMockResponder bypasses the HTTP call.
func (c *GeminiClient) WithMockResponder(fn func(string) (string, error)) *GeminiClient {
	c.mock = fn
	return c
}

func (c *GeminiClient) Send(ctx context.Context, prompt string) (string, error) {
	return sendWithRetry(ctx, c.retryPolicy, c, prompt)
}

func (c *GeminiClient) sendOnce(ctx context.Context, prompt string) (string, error) {
	if c.mock != nil {
		return c.mock(prompt)
	}
	if c.apiKey == "" {
		return "", errors.New("gemini: API key is required")
	}

	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig:  c.gen,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		retryAfter := apperrors.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return "", apperrors.NewAPIError("gemini", resp.StatusCode, strings.TrimSpace(string(detail)), retryAfter)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", errors.New("no content in response")
	}
	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no content in response (finish reason %s)", out.Candidates[0].FinishReason)
	}
	return text.String(), nil
}
