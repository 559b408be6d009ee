// Package osv queries an OSV.dev-compatible advisory API.
package osv

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
	"minotaur/internal/model"
	"minotaur/internal/telemetry"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.osv.dev"
	maxPages       = 50
	serviceName    = "osv"
)

// Config configures a Client.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	MaxAttempts       int
	Timeout           time.Duration
}

// Client queries advisories for one package at a time.
type Client struct {
	HTTPClient  *http.Client
	BaseURL     string
	Limiter     *rate.Limiter
	MaxAttempts int
	// BackoffFn returns the wait before retry i (1-based).
	BackoffFn func(i int) time.Duration
}

// NewClient returns a client with a shared rate limiter.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &Client{
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		Limiter:     rate.NewLimiter(limit, burst),
		MaxAttempts: cfg.MaxAttempts,
		BackoffFn:   apperrors.ExponentialBackoff,
	}
}

// Query returns every advisory for the package, following pagination.
// An empty version lists advisories for all versions.
func (c *Client) Query(ctx context.Context, q model.PackageQuery) ([]model.VulnerabilityRecord, error) {
	req := queryRequest{
		Package: queryPackage{Name: q.Name, Ecosystem: q.Ecosystem.OSVName()},
		Version: q.Version,
	}

	var records []model.VulnerabilityRecord
	for page := 0; page < maxPages; page++ {
		resp, err := c.queryWithRetry(ctx, req)
		if err != nil {
			return nil, err
		}
		for _, v := range resp.Vulns {
			records = append(records, normalize(v))
		}
		if resp.NextPageToken == "" {
			return records, nil
		}
		req.PageToken = resp.NextPageToken
	}
	telemetry.LogWarn("advisory pagination limit reached", "package", q.Name, "pages", maxPages)
	return records, nil
}

func (c *Client) queryWithRetry(ctx context.Context, req queryRequest) (*queryResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := apperrors.RetryDelay(lastErr, attempt-1, c.BackoffFn)
			telemetry.LogDebug("retrying advisory query", "package", req.Package.Name, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.queryOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil || !apperrors.Retryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("advisory query for %s failed after %d attempts: %w", req.Package.Name, c.MaxAttempts, lastErr)
}

func (c *Client) queryOnce(ctx context.Context, q queryRequest) (*queryResponse, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OSV API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewAPIError(serviceName, resp.StatusCode, strings.TrimSpace(string(msg)), apperrors.ParseRetryAfter(resp.Header.Get("Retry-After")))
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode OSV response: %w", err)
	}
	return &out, nil
}
