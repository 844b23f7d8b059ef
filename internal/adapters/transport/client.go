// Package transport is the shared HTTP client for outbound adapters. It paces
// requests with a token bucket and retries transient failures.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = 500 * time.Millisecond
	DefaultTimeout    = 30 * time.Second
)

// Client wraps an *http.Client with pacing and retry.
type Client struct {
	name        string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	log         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetry sets the attempt budget and the base of the exponential backoff.
func WithRetry(maxRetries int, baseBackoff time.Duration) Option {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if baseBackoff > 0 {
			c.baseBackoff = baseBackoff
		}
	}
}

// WithRateLimit allows one request per interval with the given burst.
// A zero interval disables pacing.
func WithRateLimit(interval time.Duration, burst int) Option {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), burst)
	}
}

// New builds a Client. name tags log lines and error messages.
func New(name string, opts ...Option) *Client {
	c := &Client{
		name:        name,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		baseBackoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = slog.Default().With("component", name)
	return c
}

// PacedHTTPClient returns an *http.Client that shares this client's rate
// limiter but leaves retries to the caller.
func (c *Client) PacedHTTPClient() *http.Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: pacedTransport{client: c, base: base},
	}
}

type pacedTransport struct {
	client *Client
	base   http.RoundTripper
}

func (p pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := p.client.wait(req.Context()); err != nil {
		return nil, err
	}
	return p.base.RoundTrip(req)
}

// Send performs a single paced attempt. Use it for requests that must not be
// replayed.
func (c *Client) Send(req *http.Request) (*http.Response, error) {
	if err := c.wait(req.Context()); err != nil {
		return nil, err
	}
	// #nosec G107 -- URL built from configured base URL
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.name, err)
	}
	return resp, nil
}

// Do performs req, retrying on transport errors, 429 and 5xx. Retry-After is
// honored when present. When the budget runs out on an HTTP status the last
// response is returned so the caller can read its body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: read request body: %w", c.name, err)
		}
		_ = req.Body.Close()
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	ctx := req.Context()
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: request canceled: %w", c.name, err)
		}
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("%s: reset request body: %w", c.name, err)
			}
			req.Body = body
		}

		// #nosec G107 -- URL built from configured base URL
		resp, err := c.httpClient.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			return resp, err
		}

		last := attempt == c.maxRetries-1
		if err != nil {
			c.log.Warn("retrying request", "attempt", attempt+1, "max", c.maxRetries, "error", err)
			if last {
				return nil, fmt.Errorf("%s: request failed after %d attempts: %w", c.name, c.maxRetries, err)
			}
		} else {
			c.log.Warn("retrying request", "attempt", attempt+1, "max", c.maxRetries, "status", resp.StatusCode)
			if last {
				return resp, nil
			}
			_ = resp.Body.Close()
		}

		backoff := c.baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}
		if err := c.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%s: request failed after %d attempts", c.name, c.maxRetries)
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", c.name, err)
	}
	return nil
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: request canceled: %w", c.name, ctx.Err())
	case <-timer.C:
		return nil
	}
}
