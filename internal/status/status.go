// Package status fetches and parses the mirror-status catalog document.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pacmirror/pacmirror/internal/mirror"
	"github.com/pacmirror/pacmirror/internal/safety"
)

const (
	fetchTimeout     = 30 * time.Second
	maxResponseBytes = 64 * 1024 * 1024
	userAgent        = "pacmirror/1.0"

	defaultAttempts  = 5
	defaultBaseDelay = time.Second
)

// ParseError indicates the catalog document was malformed. Parse failures
// are fatal immediately: a broken body will not get better on retry.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing mirror status from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Client fetches the mirror-status document. Transport failures and
// non-success responses are retried with a doubling delay up to a fixed
// attempt ceiling; only then do they become fatal.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	attempts   int
	baseDelay  time.Duration
}

// NewClient creates a status client with the default retry policy.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger,
		attempts:   defaultAttempts,
		baseDelay:  defaultBaseDelay,
	}
}

// Fetch downloads and decodes the mirror-status document at url.
func (c *Client) Fetch(ctx context.Context, url string) (*mirror.Status, error) {
	if _, err := safety.ValidateHTTPURL(url); err != nil {
		return nil, fmt.Errorf("invalid status source URL: %w", err)
	}

	var lastErr error
	delay := c.baseDelay

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			c.logger.Warn("retrying mirror status fetch", "url", url, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("fetching mirror status: %w", ctx.Err())
			}
			delay *= 2
		}

		body, err := c.fetchOnce(ctx, url)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) {
				return nil, fmt.Errorf("fetching mirror status from %s: %w", url, err)
			}
			continue
		}

		status := &mirror.Status{}
		if err := json.Unmarshal(body, status); err != nil {
			return nil, &ParseError{URL: url, Err: err}
		}
		return status, nil
	}

	return nil, fmt.Errorf("fetching mirror status from %s after %d attempts: %w", url, c.attempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := safety.ReadAllWithLimit(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}
