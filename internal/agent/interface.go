package agent

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Agent is a reasoning collaborator: it answers a prompt with text.
type Agent interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// MaxPromptTokens truncates prompts above this estimate; 0 disables.
	MaxPromptTokens int
	MaxRetries      int
}

// Providers lists the supported provider names.
var Providers = []string{"openai", "openrouter", "gemini", "ollama", "mock"}

// RequiresAPIKey reports whether the provider is hosted and needs a key.
func RequiresAPIKey(provider string) bool {
	switch provider {
	case "openai", "openrouter", "gemini":
		return true
	default:
		return false
	}
}

// NewAgent returns an Agent for cfg.Provider.
func NewAgent(cfg Config) (Agent, error) {
	if cfg.Provider == "openrouter" && !strings.Contains(cfg.Model, "/") && strings.HasPrefix(cfg.Model, "gpt-") {
		cfg.Model = "openai/" + cfg.Model
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg), nil
	case "openrouter":
		return NewOpenRouterClient(cfg), nil
	case "gemini":
		return NewGeminiClient(cfg), nil
	case "ollama":
		return NewOllamaClient(cfg), nil
	case "mock":
		return NewMockAgent(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
