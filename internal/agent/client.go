package agent

import (
	"context"
	"fmt"
	"time"

	apperrors "minotaur/internal/errors"
	"minotaur/internal/telemetry"
)

// onceSender performs a single provider call.
type onceSender interface {
	sendOnce(ctx context.Context, prompt string) (string, error)
}

// retryPolicy is shared by the HTTP providers.
type retryPolicy struct {
	name            string
	maxRetries      int
	maxPromptTokens int
	// BackoffFn returns the wait before retry i (1-based).
	BackoffFn func(i int) time.Duration
}

func newRetryPolicy(name string, cfg Config) retryPolicy {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return retryPolicy{
		name:            name,
		maxRetries:      retries,
		maxPromptTokens: cfg.MaxPromptTokens,
		BackoffFn:       apperrors.ExponentialBackoff,
	}
}

// sendWithRetry truncates the prompt to the token budget and retries
// transient failures with backoff, honoring Retry-After hints.
func sendWithRetry(ctx context.Context, p retryPolicy, client onceSender, prompt string) (string, error) {
	if p.maxPromptTokens > 0 {
		if n := EstimateTokenCount(prompt); n > p.maxPromptTokens {
			telemetry.LogDebug("Prompt exceeds token limit, truncating", "provider", p.name, "actual", n, "available", p.maxPromptTokens)
			prompt = TruncateToTokenLimit(prompt, p.maxPromptTokens)
		}
	}

	var lastErr error
	for i := 0; i <= p.maxRetries; i++ {
		if i > 0 {
			wait := apperrors.RetryDelay(lastErr, i, p.BackoffFn)
			telemetry.LogInfo("Retrying agent call", "provider", p.name, "retry", i, "wait", wait, "error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		result, err := client.sendOnce(ctx, prompt)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil || !apperrors.Retryable(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("failed after %d retries: %w", p.maxRetries, lastErr)
}
