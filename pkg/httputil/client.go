package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/finsight/pkg/config"
	"github.com/wonny/finsight/pkg/logger"
)

// ErrExhausted is returned once every attempt of a request failed
var ErrExhausted = errors.New("httputil: retries exhausted")

// StatusError reports a non-2xx response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// defaultUserAgents is rotated per attempt; several vendors block the Go default agent
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
}

// Client is an HTTP client wrapper with retry, rate limiting and logging
// ⭐ SSOT: every outbound vendor request goes through this client
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
	limiter     *rate.Limiter
	userAgents  []string
	sleep       func(ctx context.Context, d time.Duration) error
}

// RetryConfig holds retry configuration.
// Backoff is drawn uniformly from [MinBackoff, MaxBackoff] before every retry.
type RetryConfig struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// New creates a new HTTP client from config
func New(cfg *config.Config, log *logger.Logger) *Client {
	var limiter *rate.Limiter
	if cfg.Scraper.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Scraper.RatePerSec), 1)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Scraper.Timeout,
		},
		logger: log,
		retryConfig: RetryConfig{
			MaxAttempts: cfg.Scraper.MaxRetries,
			MinBackoff:  cfg.Scraper.MinBackoff,
			MaxBackoff:  cfg.Scraper.MaxBackoff,
		},
		limiter:    limiter,
		userAgents: defaultUserAgents,
		sleep:      sleepCtx,
	}
}

// WithRetry overrides retry behaviour
func (c *Client) WithRetry(attempts int, minBackoff, maxBackoff time.Duration) *Client {
	c.retryConfig = RetryConfig{MaxAttempts: attempts, MinBackoff: minBackoff, MaxBackoff: maxBackoff}
	return c
}

// WithUserAgents replaces the rotation pool
func (c *Client) WithUserAgents(agents ...string) *Client {
	if len(agents) > 0 {
		c.userAgents = agents
	}
	return c
}

// WithoutRateLimit disables the limiter (tests, local files)
func (c *Client) WithoutRateLimit() *Client {
	c.limiter = nil
	return c
}

// GetBody fetches url and returns the response body of the first 2xx attempt.
// Headers are applied on every attempt; User-Agent is rotated unless headers set one.
func (c *Client) GetBody(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var lastErr error
	startTime := time.Now()

	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		body, err := c.attempt(ctx, url, headers)
		if err == nil {
			c.logger.WithFields(map[string]interface{}{
				"url":      url,
				"attempt":  attempt,
				"duration": time.Since(startTime).String(),
			}).Debug("HTTP request completed")
			return body, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == c.retryConfig.MaxAttempts {
			break
		}

		delay := c.backoff()
		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"url":     url,
			"error":   err.Error(),
		}).Warn("Retrying HTTP request")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"url":      url,
		"duration": time.Since(startTime).String(),
		"error":    lastErr.Error(),
	}).Error("HTTP request failed")

	return nil, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

func (c *Client) attempt(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgents[rand.IntN(len(c.userAgents))])
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

func (c *Client) backoff() time.Duration {
	span := c.retryConfig.MaxBackoff - c.retryConfig.MinBackoff
	if span <= 0 {
		return c.retryConfig.MinBackoff
	}
	return c.retryConfig.MinBackoff + time.Duration(rand.Int64N(int64(span)))
}

// isRetryable keeps transport failures, throttling, bot blocks and 5xx retryable.
// Other 4xx answers will not change on retry.
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return IsRetryableStatus(se.StatusCode)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// IsRetryableStatus checks if a status code should be retried
func IsRetryableStatus(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests || statusCode == http.StatusForbidden
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
