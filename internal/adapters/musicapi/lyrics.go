package musicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// SearchByLyricSnippet posts snippet to the lyric search endpoint. A 404 is
// reported as NotFound; any other status is classified from its body.
func (c *Client) SearchByLyricSnippet(ctx context.Context, snippet string) (ports.LyricSearchResponse, error) {
	payload, err := json.Marshal(lyricSearchRequest{Snippet: snippet})
	if err != nil {
		return ports.LyricSearchResponse{}, fmt.Errorf("musicapi: encode lyric search: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/search-lyrics", nil), bytes.NewReader(payload))
	if err != nil {
		return ports.LyricSearchResponse{}, fmt.Errorf("musicapi: failed to create lyric search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.LyricSearchResponse{}, fmt.Errorf("musicapi: lyric search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ports.LyricSearchResponse{NotFound: true}, nil
	}

	var body lyricSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ports.LyricSearchResponse{}, fmt.Errorf("musicapi: lyric search decode error (status %d): %w", resp.StatusCode, err)
	}

	out := ports.LyricSearchResponse{ErrorMarker: body.Error}
	if body.Songs != nil {
		out.SongsPresent = true
		out.Songs = mapSongsToDomain(*body.Songs)
	}
	return out, nil
}
