package musicapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// QuickLink returns the backend's top YouTube video or Spotify track URL for
// query. A 404 or a missing url field yields "".
func (c *Client) QuickLink(ctx context.Context, kind domain.LinkKind, query string) (string, error) {
	switch kind {
	case domain.LinkYouTube:
		var body youtubeResponse
		if err := c.lookup(ctx, "/youtube", query, &body); err != nil {
			return "", err
		}
		return body.VideoURL, nil
	case domain.LinkSpotify:
		var body spotifyResponse
		if err := c.lookup(ctx, "/spotify", query, &body); err != nil {
			return "", err
		}
		return body.TrackURL, nil
	default:
		return "", fmt.Errorf("musicapi: %w: %q", domain.ErrUnknownLinkKind, kind)
	}
}

// ResolveExternalTrack returns the canonical Spotify track URL for query.
func (c *Client) ResolveExternalTrack(ctx context.Context, query string) (string, error) {
	var body spotifyResponse
	if err := c.lookup(ctx, "/spotify", query, &body); err != nil {
		return "", err
	}
	if body.TrackURL == "" {
		return "", fmt.Errorf("musicapi: resolve %q: %w", query, ports.ErrNotFound)
	}
	return body.TrackURL, nil
}

func (c *Client) lookup(ctx context.Context, path, query string, out any) error {
	status, err := c.getJSON(ctx, path, url.Values{"q": {query}}, out)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusOK, status == http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("musicapi: %s status %d", path, status)
	}
}
