package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com", "test-key")

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.apiKey != "test-key" {
			t.Errorf("apiKey = %q, want %q", c.apiKey, "test-key")
		}
		if c.apiKeyHeader != "x-cg-demo-api-key" {
			t.Errorf("apiKeyHeader = %q, want %q", c.apiKeyHeader, "x-cg-demo-api-key")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 5 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 5)
		}
		if c.defaultRetryAfter != 30*time.Second {
			t.Errorf("defaultRetryAfter = %v, want %v", c.defaultRetryAfter, 30*time.Second)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://api.example.com", "key",
			WithHTTPClient(customClient),
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithRateLimit(time.Minute, 5*time.Minute),
			WithAPIKeyHeader("x-cg-pro-api-key"),
			WithUserAgent("gecko-volumes/test"),
			WithLogger(logger),
		)
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 10 || c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retries = (%d, %v), want (10, 500ms)", c.maxRetries, c.retryBackoff)
		}
		if c.defaultRetryAfter != time.Minute || c.maxBackoff != 5*time.Minute {
			t.Errorf("rate limit = (%v, %v), want (1m, 5m)", c.defaultRetryAfter, c.maxBackoff)
		}
		if c.apiKeyHeader != "x-cg-pro-api-key" {
			t.Errorf("apiKeyHeader = %q", c.apiKeyHeader)
		}
		if c.userAgent != "gecko-volumes/test" {
			t.Errorf("userAgent = %q", c.userAgent)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	t.Run("Error method", func(t *testing.T) {
		err := &APIError{StatusCode: 404, Message: "Not Found"}
		expected := "coingecko api error 404: Not Found"
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
	})

	t.Run("only 429 is retryable", func(t *testing.T) {
		tests := []struct {
			code     int
			expected bool
		}{
			{429, true},
			{500, false},
			{502, false},
			{503, false},
			{400, false},
			{401, false},
			{404, false},
		}

		for _, tt := range tests {
			err := &APIError{StatusCode: tt.code}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
			}
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{" 5 ", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestDoRequest tests the HTTP request functionality.
func TestDoRequest(t *testing.T) {
	t.Run("successful request sends headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q, want %q", r.Header.Get("Accept"), "application/json")
			}
			if r.Header.Get("x-cg-demo-api-key") != "test-key" {
				t.Errorf("api key header = %q, want %q", r.Header.Get("x-cg-demo-api-key"), "test-key")
			}
			if r.Header.Get("User-Agent") != "gecko-volumes/dev" {
				t.Errorf("User-Agent = %q, want %q", r.Header.Get("User-Agent"), "gecko-volumes/dev")
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status": "ok"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "test-key", WithUserAgent("gecko-volumes/dev"))
		body, err := c.doRequest(context.Background(), http.MethodGet, "test", "/test", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"status": "ok"}` {
			t.Errorf("body = %q, want %q", string(body), `{"status": "ok"}`)
		}
	})

	t.Run("request without API key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("x-cg-demo-api-key") != "" {
				t.Errorf("api key header should be empty, got %q", r.Header.Get("x-cg-demo-api-key"))
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		if _, err := c.doRequest(context.Background(), http.MethodGet, "test", "/test", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("non-200 returns APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "coin not found"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.doRequest(context.Background(), http.MethodGet, "test", "/test", nil)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T (%v)", err, err)
		}
		if apiErr.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, 404)
		}
		if !strings.Contains(string(apiErr.Body), "coin not found") {
			t.Errorf("Body should contain 'coin not found', got %q", string(apiErr.Body))
		}
	})

	t.Run("429 carries Retry-After", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "12")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.doRequest(context.Background(), http.MethodGet, "test", "/test", nil)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.RetryAfter != 12*time.Second {
			t.Errorf("RetryAfter = %v, want 12s", apiErr.RetryAfter)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		c := NewClient(url, "")
		_, err := c.doRequest(context.Background(), http.MethodGet, "test", "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			t.Errorf("transport failure should not be an APIError: %v", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.doRequest(ctx, http.MethodGet, "test", "/test", nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error should wrap context.Canceled, got %v", err)
		}
	})
}

// TestDoWithRetry tests the rate-limit retry logic.
func TestDoWithRetry(t *testing.T) {
	t.Run("succeeds on first try", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(3, 10*time.Millisecond))
		body, err := c.doWithRetry(context.Background(), http.MethodGet, "test", "/test", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok": true}` {
			t.Errorf("body = %q", string(body))
		}
		if attempts.Load() != 1 {
			t.Errorf("attempts = %d, want 1", attempts.Load())
		}
	})

	t.Run("429 then 200 waits Retry-After", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(3, 10*time.Millisecond))
		start := time.Now()
		body, err := c.doWithRetry(context.Background(), http.MethodGet, "test", "/test", nil)
		elapsed := time.Since(start)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok": true}` {
			t.Errorf("body = %q, want the 200 payload", string(body))
		}
		if attempts.Load() != 2 {
			t.Errorf("attempts = %d, want 2", attempts.Load())
		}
		if elapsed < time.Second {
			t.Errorf("elapsed = %v, want >= Retry-After (1s)", elapsed)
		}
	})

	t.Run("429 without header waits default", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "",
			WithRetries(3, time.Millisecond),
			WithRateLimit(150*time.Millisecond, time.Second),
		)
		start := time.Now()
		if _, err := c.doWithRetry(context.Background(), http.MethodGet, "test", "/test", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
			t.Errorf("elapsed = %v, want >= default retry-after (150ms)", elapsed)
		}
	})

	t.Run("does not retry other statuses", func(t *testing.T) {
		for _, code := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusServiceUnavailable} {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(code)
			}))

			c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
			_, err := c.doWithRetry(context.Background(), http.MethodGet, "test", "/test", nil)
			server.Close()

			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != code {
				t.Errorf("status %d: err = %v, want APIError", code, err)
			}
			if attempts.Load() != 1 {
				t.Errorf("status %d: attempts = %d, want 1", code, attempts.Load())
			}
		}
	})

	t.Run("rate limit exhausted", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(server.URL, "",
			WithRetries(2, time.Millisecond),
			WithRateLimit(5*time.Millisecond, 20*time.Millisecond),
		)
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "test", "/test", nil)
		if !errors.Is(err, ErrRateLimitExhausted) {
			t.Fatalf("error = %v, want ErrRateLimitExhausted", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
			t.Errorf("exhausted error should wrap the last 429, got %v", err)
		}
		// 1 initial + 2 retries = 3 attempts
		if attempts.Load() != 3 {
			t.Errorf("attempts = %d, want 3", attempts.Load())
		}
	})

	t.Run("context cancellation during wait", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := c.doWithRetry(ctx, http.MethodGet, "test", "/test", nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want context.DeadlineExceeded", err)
		}
		if time.Since(start) > 5*time.Second {
			t.Error("wait did not observe context cancellation")
		}
	})
}

func TestRateLimitWait(t *testing.T) {
	c := NewClient("http://unused", "", WithRateLimit(30*time.Second, time.Minute))

	t.Run("advertised retry-after is a floor", func(t *testing.T) {
		got := c.rateLimitWait(&APIError{RetryAfter: 10 * time.Second}, time.Millisecond)
		if got != 10*time.Second {
			t.Errorf("wait = %v, want 10s", got)
		}
	})

	t.Run("default when header absent", func(t *testing.T) {
		got := c.rateLimitWait(&APIError{}, time.Millisecond)
		if got != 30*time.Second {
			t.Errorf("wait = %v, want 30s", got)
		}
	})

	t.Run("backoff exceeds retry-after but stays capped", func(t *testing.T) {
		got := c.rateLimitWait(&APIError{RetryAfter: time.Second}, 10*time.Minute)
		if got != time.Minute {
			t.Errorf("wait = %v, want cap 1m", got)
		}
	})
}
