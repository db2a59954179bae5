package api

import (
	"log/slog"
	"net/http"
	"time"
)

// Client provides access to the CoinGecko REST API.
type Client struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	userAgent    string
	httpClient   *http.Client
	logger       *slog.Logger

	maxRetries        int
	retryBackoff      time.Duration
	maxBackoff        time.Duration
	defaultRetryAfter time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. apiKey may be empty for the public API.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		apiKeyHeader: "x-cg-demo-api-key",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:            slog.Default(),
		maxRetries:        5,
		retryBackoff:      2 * time.Second,
		maxBackoff:        2 * time.Minute,
		defaultRetryAfter: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the maximum number of rate-limit retries and the initial backoff.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithRateLimit sets the wait used when a 429 carries no Retry-After header,
// and the cap on the exponential backoff.
func WithRateLimit(defaultRetryAfter, maxBackoff time.Duration) ClientOption {
	return func(c *Client) {
		c.defaultRetryAfter = defaultRetryAfter
		c.maxBackoff = maxBackoff
	}
}

// WithAPIKeyHeader sets the header carrying the API key.
func WithAPIKeyHeader(name string) ClientOption {
	return func(c *Client) {
		c.apiKeyHeader = name
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
