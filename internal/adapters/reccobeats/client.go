// Package reccobeats fetches supplemental audio descriptors from the
// ReccoBeats catalog API.
package reccobeats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ewilliams-labs/tracklens/internal/adapters/transport"
	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// DefaultBaseURL is the public ReccoBeats API.
const DefaultBaseURL = "https://api.reccobeats.com"

// Client is a ports.FeatureProvider for ReccoBeats.
type Client struct {
	http    *transport.Client
	baseURL string
	apiKey  string
}

// compile-time interface assertion
var _ ports.FeatureProvider = (*Client)(nil)

// NewClient constructs a Client. apiKey is optional.
func NewClient(tc *transport.Client, baseURL, apiKey string) *Client {
	if tc == nil {
		tc = transport.New("reccobeats")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    tc,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// FetchSupplementalFeatures returns the content list for a Spotify or
// ReccoBeats track id, in upstream order.
func (c *Client) FetchSupplementalFeatures(ctx context.Context, id string) ([]domain.SupplementalFeatures, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("reccobeats adapter: empty id")
	}

	u := c.baseURL + "/v1/audio-features?" + url.Values{"ids": {id}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("reccobeats adapter: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reccobeats adapter: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("reccobeats adapter: features for %q: %w", id, ports.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reccobeats adapter: status %d", resp.StatusCode)
	}

	var body featuresResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("reccobeats adapter: decode error: %w", err)
	}

	out := make([]domain.SupplementalFeatures, 0, len(body.Content))
	for _, f := range body.Content {
		out = append(out, f.toDomain())
	}
	return out, nil
}

type featuresResponse struct {
	Content []audioFeatures `json:"content"`
}

// audioFeatures mirrors one content entry. Absent keys stay nil.
type audioFeatures struct {
	Danceability     *float64 `json:"danceability"`
	Energy           *float64 `json:"energy"`
	Valence          *float64 `json:"valence"`
	Acousticness     *float64 `json:"acousticness"`
	Instrumentalness *float64 `json:"instrumentalness"`
	Liveness         *float64 `json:"liveness"`
	Speechiness      *float64 `json:"speechiness"`
	Loudness         *float64 `json:"loudness"`
	Tempo            *float64 `json:"tempo"`
	Key              *int     `json:"key"`
	Mode             *int     `json:"mode"`
	TimeSignature    *int     `json:"time_signature"`
}

func (f audioFeatures) toDomain() domain.SupplementalFeatures {
	return domain.SupplementalFeatures{
		Danceability:     f.Danceability,
		Energy:           f.Energy,
		Valence:          f.Valence,
		Acousticness:     f.Acousticness,
		Instrumentalness: f.Instrumentalness,
		Liveness:         f.Liveness,
		Speechiness:      f.Speechiness,
		Loudness:         f.Loudness,
		SpotifyTempo:     f.Tempo,
		SpotifyKey:       f.Key,
		Mode:             f.Mode,
		TimeSignature:    f.TimeSignature,
	}
}
