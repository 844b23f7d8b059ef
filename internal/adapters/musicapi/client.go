// Package musicapi talks to the music analyzer backend: uploads for analysis,
// quick listen links, lyric search and catalog identifier resolution.
package musicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ewilliams-labs/tracklens/internal/adapters/transport"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// DefaultBaseURL is where the analyzer backend listens in a local setup.
const DefaultBaseURL = "http://127.0.0.1:5000/api/music"

// Client is an HTTP client for the music analyzer backend.
type Client struct {
	http    *transport.Client
	baseURL string
}

// compile-time interface assertions
var (
	_ ports.AnalysisGateway = (*Client)(nil)
	_ ports.TrackResolver   = (*Client)(nil)
	_ ports.LinkLookup      = (*Client)(nil)
	_ ports.LyricSearcher   = (*Client)(nil)
)

// NewClient constructs a Client. A nil transport gets the defaults.
func NewClient(tc *transport.Client, baseURL string) *Client {
	if tc == nil {
		tc = transport.New("musicapi")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    tc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Ping reports whether the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("musicapi: %w", err)
	}
	resp, err := c.http.Send(req)
	if err != nil {
		return fmt.Errorf("musicapi: backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("musicapi: backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// getJSON issues a GET with retry and decodes a 200 body into out.
// It returns the status code so callers can branch on 404.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return 0, fmt.Errorf("musicapi: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("musicapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("musicapi: decode error: %w", err)
	}
	return resp.StatusCode, nil
}
