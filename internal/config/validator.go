package config

import (
	"fmt"
	"strings"
	"time"

	"minotaur/internal/agent"
	"minotaur/internal/model"
)

// Validate checks every value and reports all violations at once.
func Validate(cfg Config) error {
	var errors []string
	add := func(format string, args ...interface{}) {
		errors = append(errors, fmt.Sprintf(format, args...))
	}

	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			add("%s must be between 0 and 1, got: %v", name, v)
		}
	}
	positive := func(name string, v int) {
		if v <= 0 {
			add("%s must be positive, got: %d", name, v)
		}
	}
	positiveDuration := func(name string, d time.Duration) {
		if d <= 0 {
			add("%s must be positive, got: %v", name, d)
		}
	}

	if cfg.OSV.BaseURL == "" {
		add("osv.base_url is required")
	}
	if cfg.OSV.RequestsPerSecond <= 0 {
		add("osv.requests_per_second must be positive, got: %v", cfg.OSV.RequestsPerSecond)
	}
	positive("osv.max_attempts", cfg.OSV.MaxAttempts)
	positiveDuration("osv.timeout", cfg.OSV.Timeout)

	knownProvider := false
	for _, p := range agent.Providers {
		if p == cfg.LLM.Provider {
			knownProvider = true
		}
	}
	if !knownProvider {
		add("llm.provider must be one of %s, got: %q", strings.Join(agent.Providers, ", "), cfg.LLM.Provider)
	} else if agent.RequiresAPIKey(cfg.LLM.Provider) && cfg.LLM.APIKey == "" {
		add("llm.api_key is required for provider %s (set MINOTAUR_LLM_API_KEY or OPENAI_API_KEY)", cfg.LLM.Provider)
	}
	if cfg.LLM.Provider != "mock" && cfg.LLM.Model == "" {
		add("llm.model is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		add("llm.temperature must be between 0 and 2, got: %v", cfg.LLM.Temperature)
	}
	positive("llm.max_tokens", cfg.LLM.MaxTokens)
	positiveDuration("llm.timeout", cfg.LLM.Timeout)

	unit("triage.confidence_threshold", cfg.Triage.ConfidenceThreshold)
	unit("triage.range_only_ceiling", cfg.Triage.RangeOnlyCeiling)
	if cfg.Triage.MaxRetries < 0 {
		add("triage.max_retries must not be negative, got: %d", cfg.Triage.MaxRetries)
	}
	positive("triage.max_context_tokens", cfg.Triage.MaxContextTokens)

	positive("analysis.max_dependencies", cfg.Analysis.MaxDependencies)
	positive("analysis.max_depth", cfg.Analysis.MaxDepth)
	positive("analysis.concurrency", cfg.Analysis.Concurrency)
	positiveDuration("analysis.call_timeout", cfg.Analysis.CallTimeout)
	positiveDuration("analysis.deadline", cfg.Analysis.Deadline)
	positiveDuration("repo.clone_timeout", cfg.Repo.CloneTimeout)

	switch strings.ToLower(cfg.Store.Type) {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		add("store.type must be sqlite or postgres, got: %q", cfg.Store.Type)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		add("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}

	webhooks := []struct {
		name string
		cfg  WebhookConfig
	}{{"slack", cfg.Notifications.Slack}, {"discord", cfg.Notifications.Discord}}
	for _, wh := range webhooks {
		if wh.cfg.MinLevel == "" {
			continue
		}
		if _, ok := model.ParseThreatLevel(wh.cfg.MinLevel); !ok {
			add("notifications.%s.min_level is not a threat level: %q", wh.name, wh.cfg.MinLevel)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}
	return nil
}
