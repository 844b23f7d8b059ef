package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ewilliams-labs/tracklens/internal/adapters/musicapi"
	"github.com/ewilliams-labs/tracklens/internal/adapters/reccobeats"
	"github.com/ewilliams-labs/tracklens/internal/adapters/spotify"
	"github.com/ewilliams-labs/tracklens/internal/adapters/sqlite"
	"github.com/ewilliams-labs/tracklens/internal/adapters/transport"
	"github.com/ewilliams-labs/tracklens/internal/config"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
	"github.com/ewilliams-labs/tracklens/internal/core/services"
	"github.com/ewilliams-labs/tracklens/internal/worker"
)

// runtime holds every adapter and use case for one CLI invocation.
type runtime struct {
	music       *musicapi.Client
	history     *sqlite.Adapter
	pool        *worker.Pool
	enrichment  *services.EnrichmentOrchestrator
	links       *services.QuickLinkResolver
	lyrics      *services.LyricSearchSession
	recommender *services.Recommender
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	musicTransport := transport.New("musicapi",
		transport.WithHTTPClient(&http.Client{Timeout: cfg.MusicAPI.Timeout}),
		transport.WithRetry(cfg.MusicAPI.MaxRetries, cfg.MusicAPI.RetryBackoff),
		transport.WithRateLimit(cfg.MusicAPI.RateLimit, cfg.MusicAPI.Burst),
	)
	music := musicapi.NewClient(musicTransport, cfg.MusicAPI.BaseURL)

	features := reccobeats.NewClient(
		transport.New("reccobeats", transport.WithRetry(cfg.MusicAPI.MaxRetries, cfg.MusicAPI.RetryBackoff)),
		cfg.ReccoBeats.BaseURL,
		cfg.ReccoBeats.APIKey,
	)

	var resolver ports.TrackResolver = music
	if cfg.Resolver == config.ResolverSpotify {
		resolver = spotify.NewResolver(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			BaseURL:      cfg.Spotify.BaseURL,
		}, transport.New("spotify", transport.WithRateLimit(cfg.MusicAPI.RateLimit, cfg.MusicAPI.Burst)))
	}

	history, err := sqlite.NewAdapter(cfg.History.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}

	pool := worker.NewPool(history, cfg.History.QueueSize)
	pool.Start(cfg.History.Workers)

	return &runtime{
		music:   music,
		history: history,
		pool:    pool,
		enrichment: services.NewEnrichmentOrchestrator(music, resolver, features,
			services.WithRecorder(pool),
			services.WithExternalIDMarker(cfg.ExternalIDMarker),
		),
		links:       services.NewQuickLinkResolver(music, cfg.CacheQuickLinks()),
		lyrics:      services.NewLyricSearchSession(music),
		recommender: services.NewRecommender(history),
	}, nil
}

// flush waits until every recorded profile is in history.
func (rt *runtime) flush() {
	rt.pool.Stop()
}

func (rt *runtime) Close() error {
	rt.pool.Stop()
	return rt.history.Close()
}
