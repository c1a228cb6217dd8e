// Package transport provides the default HTTP transport collaborator: one
// network exchange per Send, built on go-retryablehttp. Connection-level
// retries are off by default so the engine's retry policy owns the retry
// decision; WithRetryConfig re-enables them for callers who want the
// transport to absorb connection flakiness on its own.
package transport

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/antipasta/dispatch/internal/constants"
	"github.com/antipasta/dispatch/pkg/dispatch"
)

// Client implements dispatch.Transport.
type Client struct {
	retryClient *retryablehttp.Client
	logger      dispatch.Logger
	debug       bool
	userAgent   string
}

// Option configures the transport client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger dispatch.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header for requests that did not
// set one.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig enables transport-level retries for connection failures
// and 5xx responses.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryClient.RetryMax = retryMax
		c.retryClient.RetryWaitMin = waitMin
		c.retryClient.RetryWaitMax = waitMax
	}
}

// WithHTTPTimeout sets the per-exchange timeout.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.retryClient.HTTPClient.Timeout = timeout
	}
}

// New creates a transport client.
func New(opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	client := &Client{
		retryClient: retryClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Send implements dispatch.Transport.
func (c *Client) Send(ctx context.Context, req *dispatch.Request) (*dispatch.Response, error) {
	var body io.Reader
	if len(req.Form) > 0 {
		body = strings.NewReader(req.Form.Encode())
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if len(req.Form) > 0 {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    req.URL(),
		})
	}

	httpResp, err := c.retryClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":      req.Method,
			"url":         req.URL(),
			"status_code": httpResp.StatusCode,
		})
	}

	return &dispatch.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

var _ dispatch.Transport = (*Client)(nil)
