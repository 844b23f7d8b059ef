// Package spotify resolves "artist title" queries to Spotify track URLs using
// the Web API search endpoint with client-credentials auth.
package spotify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ewilliams-labs/tracklens/internal/adapters/transport"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

const (
	searchLimit     = 5
	trackURLPrefix  = "https://open.spotify.com/track/"
	externalURLName = "spotify"
)

// Config holds Spotify application credentials. TokenURL and BaseURL are
// only set to point at a fake server.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
}

// Resolver is a ports.TrackResolver backed by the Spotify Web API.
type Resolver struct {
	client    *spotify.Client
	threshold float64
	log       *slog.Logger
}

// compile-time interface assertion
var _ ports.TrackResolver = (*Resolver)(nil)

// NewResolver builds a Resolver. Token fetches and API calls share the pacing
// of tc.
func NewResolver(ctx context.Context, cfg Config, tc *transport.Client) *Resolver {
	if tc == nil {
		tc = transport.New("spotify")
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, tc.PacedHTTPClient())

	opts := []spotify.ClientOption{spotify.WithRetry(true)}
	if cfg.BaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	return &Resolver{
		client:    spotify.New(cc.Client(ctx), opts...),
		threshold: MatchThreshold,
		log:       slog.Default().With("component", "spotify"),
	}
}

// ResolveExternalTrack searches for query and returns the best-scoring
// track's URL. Results under MatchThreshold yield a NoConfidentMatchError.
func (r *Resolver) ResolveExternalTrack(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("spotify adapter: %w", ports.NoConfidentMatchError{Query: query})
	}

	res, err := r.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(searchLimit))
	if err != nil {
		return "", fmt.Errorf("spotify adapter: search request failed: %w", err)
	}
	if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return "", fmt.Errorf("spotify adapter: %w", ports.NoConfidentMatchError{Query: query})
	}

	bestScore := 0.0
	bestIndex := -1
	for i, candidate := range res.Tracks.Tracks {
		if i >= searchLimit {
			break
		}
		artists := artistNames(candidate.Artists)
		score := ScoreQuery(query, artists, candidate.Name)
		r.log.Debug("scored candidate", "artist", artists, "title", candidate.Name, "score", score)
		if score >= r.threshold && score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex == -1 {
		return "", fmt.Errorf("spotify adapter: %w", ports.NoConfidentMatchError{Query: query})
	}

	best := res.Tracks.Tracks[bestIndex]
	if u := best.ExternalURLs[externalURLName]; u != "" {
		return u, nil
	}
	return trackURLPrefix + best.ID.String(), nil
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}
