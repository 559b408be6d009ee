package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrNoDependenciesFound is the only terminal pipeline failure.
	ErrNoDependenciesFound = errors.New("no dependencies found")
	// ErrDeadlineExceeded marks work cut short by the overall analysis deadline.
	ErrDeadlineExceeded = errors.New("analysis deadline exceeded")
	// ErrMalformedResponse marks reasoning output that does not fit the verdict schema.
	ErrMalformedResponse = errors.New("malformed reasoning response")
)

// ManifestParseError is a per-artifact failure; other artifacts continue.
type ManifestParseError struct {
	Path      string
	Ecosystem string
	Err       error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse %s manifest %s: %v", e.Ecosystem, e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error { return e.Err }

// MatcherError is a per-dependency advisory lookup failure.
type MatcherError struct {
	Dependency string
	Err        error
}

func (e *MatcherError) Error() string {
	return fmt.Sprintf("advisory lookup for %s failed: %v", e.Dependency, e.Err)
}

func (e *MatcherError) Unwrap() error { return e.Err }

// TriageError is a per-finding triage failure.
type TriageError struct {
	Finding  string
	Attempts int
	Err      error
}

func (e *TriageError) Error() string {
	return fmt.Sprintf("triage of %s failed after %d attempt(s): %v", e.Finding, e.Attempts, e.Err)
}

func (e *TriageError) Unwrap() error { return e.Err }

// RateLimitError is returned when an external service answers 429.
type RateLimitError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited (retry after %v)", e.Service, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited", e.Service)
}

// APIError represents a non-success response from an external service.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

// NewAPIError builds the error for an HTTP response status.
// 429 becomes a RateLimitError carrying the Retry-After hint.
func NewAPIError(service string, statusCode int, message string, retryAfter time.Duration) error {
	if statusCode == http.StatusTooManyRequests {
		return &RateLimitError{Service: service, RetryAfter: retryAfter}
	}
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// Retryable reports whether err is worth another attempt.
// Rate limits, server errors and transport errors are; client errors,
// cancellation and malformed output are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 && apiErr.StatusCode < 600
	}

	return true
}

// RetryDelay picks the wait before retry number attempt (1-based): the
// service's Retry-After hint when present, otherwise backoff(attempt).
func RetryDelay(err error, attempt int, backoff func(int) time.Duration) time.Duration {
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		return rateErr.RetryAfter
	}
	if backoff == nil {
		backoff = ExponentialBackoff
	}
	return backoff(attempt)
}

// ExponentialBackoff waits 1s, 2s, 4s, ... for attempts 1, 2, 3, ...
func ExponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// ParseRetryAfter reads a Retry-After header value given in seconds.
func ParseRetryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	var secs int
	if _, err := fmt.Sscanf(h, "%d", &secs); err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
