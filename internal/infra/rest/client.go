// Package rest provides a JSON-over-HTTP client with a fixed-delay retry
// policy shared by all external data providers.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/defiscope/holderwatch/internal/metrics"
)

// ErrExhausted is returned when all retry attempts for a call have failed.
// The last underlying cause is attached via wrapping.
var ErrExhausted = errors.New("all retry attempts exhausted")

// RetryPolicy defines retry behavior for external calls: a fixed number of
// attempts separated by a fixed delay. No backoff growth.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy matches the upstream providers' documented limits.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Delay:       1 * time.Second,
}

// Client performs GET requests decoded into JSON targets, retrying per policy.
type Client struct {
	httpClient *http.Client
	policy     RetryPolicy
	provider   string
}

// NewClient creates a client for one upstream provider. The provider name is
// used for metrics labels only.
func NewClient(provider string, timeout time.Duration, policy RetryPolicy) *Client {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		policy:   policy,
		provider: provider,
	}
}

// GetJSON fetches url and decodes the response body into target. Transport
// and deserialization failures are retried with the same request until the
// policy is exhausted, then reported as ErrExhausted wrapping the last cause.
// Context cancellation aborts the inter-attempt wait promptly.
func (c *Client) GetJSON(ctx context.Context, url string, target any) error {
	backoff := retry.WithMaxRetries(uint64(c.policy.MaxAttempts-1), retry.NewConstant(c.policy.Delay))

	var lastErr error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.getOnce(ctx, url, target); err != nil {
			lastErr = err
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		metrics.ExternalAPIRequests.WithLabelValues(c.provider, "ok").Inc()
		return nil
	}
	metrics.ExternalAPIRequests.WithLabelValues(c.provider, "error").Inc()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if lastErr == nil {
		lastErr = err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, c.policy.MaxAttempts, lastErr)
}

func (c *Client) getOnce(ctx context.Context, url string, target any) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	metrics.ExternalAPILatency.WithLabelValues(c.provider).Observe(time.Since(start).Seconds())
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
