package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/gecko-volumes/internal/metrics"
)

// ErrRateLimitExhausted is returned when every retry of a request was rate limited.
var ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

// APIError represents a non-success response from the CoinGecko API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
	RetryAfter time.Duration // from the Retry-After header, 0 if absent
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the request should be retried. Only rate
// limiting is retried.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// doRequest performs a single HTTP request. endpoint is the metrics label.
func (c *Client) doRequest(ctx context.Context, method, endpoint, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	metrics.APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return body, nil
}

// doWithRetry performs a request, waiting out 429 responses. The wait is the
// larger of the server's Retry-After (or the default) and an exponential
// backoff capped at maxBackoff. After maxRetries retries it gives up with
// ErrRateLimitExhausted.
func (c *Client) doWithRetry(ctx context.Context, method, endpoint, path string, query url.Values) ([]byte, error) {
	var lastErr *APIError
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.rateLimitWait(lastErr, backoff)
			c.logger.Warn("rate limited, retrying",
				"attempt", attempt,
				"wait", wait,
				"path", path,
			)
			metrics.APIRateLimitWaits.Inc()

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}

			backoff = min(backoff*2, c.maxBackoff)
		}

		body, err := c.doRequest(ctx, method, endpoint, path, query)
		if err == nil {
			return body, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
		lastErr = apiErr
	}

	metrics.APIRateLimitExhausted.Inc()
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRateLimitExhausted, c.maxRetries+1, lastErr)
}

// rateLimitWait never returns less than the advertised Retry-After.
func (c *Client) rateLimitWait(apiErr *APIError, backoff time.Duration) time.Duration {
	retryAfter := c.defaultRetryAfter
	if apiErr != nil && apiErr.RetryAfter > 0 {
		retryAfter = apiErr.RetryAfter
	}

	// Jitter: backoff * (0.5 to 1.5)
	if backoff > 0 {
		backoff = min(backoff/2+time.Duration(rand.Int64N(int64(backoff))), c.maxBackoff)
	}

	return max(retryAfter, backoff)
}

// parseRetryAfter reads a delay-seconds Retry-After value. Missing or
// malformed values yield 0.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// get performs a GET request with rate-limit retries and decodes the JSON body.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, http.MethodGet, endpoint, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
