// Package api is the HTTP client for the marketplace order book and asset APIs.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mselser95/nft-orders/pkg/types"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 3 * time.Second
	defaultTimeout    = 30 * time.Second
	userAgent         = "nft-orders/1.0"
	apiKeyHeader      = "X-API-KEY"
)

// Config holds client settings. Zero values fall back to defaults.
type Config struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the marketplace REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewClient creates a marketplace API client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: cfg.HTTPClient,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if cfg.MaxRetries == 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	return c, nil
}

// request is one logical API call. endpoint is the metrics label.
type request struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     []byte
}

// do performs req, retrying 429/503 responses and network timeouts up to
// maxRetries times with a fixed delay. It returns the 2xx response body.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	start := time.Now()
	defer func() {
		RequestDuration.WithLabelValues(req.endpoint).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			RetriesTotal.WithLabelValues(req.endpoint).Inc()
			c.logger.Warn("api-request-retry",
				zap.String("endpoint", req.endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("delay", c.retryDelay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		body, status, err := c.send(ctx, req)
		if err != nil {
			RequestsTotal.WithLabelValues(req.endpoint, "error").Inc()
			if isTimeout(err) && ctx.Err() == nil {
				lastErr = err
				continue
			}
			return nil, err
		}
		RequestsTotal.WithLabelValues(req.endpoint, strconv.Itoa(status)).Inc()

		if status >= 200 && status < 300 {
			return body, nil
		}

		apiErr := &types.APIError{StatusCode: status, Body: string(body), Path: req.path}
		if apiErr.Retryable() {
			lastErr = apiErr
			continue
		}
		return nil, classify(apiErr)
	}

	var apiErr *types.APIError
	if errors.As(lastErr, &apiErr) {
		return nil, classify(apiErr)
	}
	return nil, fmt.Errorf("%s %s: retries exhausted: %w", req.method, req.path, lastErr)
}

func (c *Client) send(ctx context.Context, req request) ([]byte, int, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, c.apiKey)
	}

	c.logger.Debug("api-request",
		zap.String("method", req.method),
		zap.String("url", u))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// classify maps a terminal status onto the package sentinels while keeping
// the APIError reachable through errors.As.
func classify(e *types.APIError) error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", types.ErrNotFound, e)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", types.ErrUnauthorized, e)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", types.ErrRateLimited, e)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %w", types.ErrServiceUnavailable, e)
	default:
		return e
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
