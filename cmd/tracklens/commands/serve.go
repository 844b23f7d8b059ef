package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/tracklens/internal/adapters/rest"
)

const (
	shutdownTimeout = 10 * time.Second
	upstreamWait    = 30 * time.Second
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local JSON API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, wait)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the music API to answer before serving")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, wait bool) error {
	cfg := root.cfg
	log := slog.Default().With("component", "server")

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if wait {
		if err := waitForUpstream(ctx, rt.music, upstreamWait); err != nil {
			log.Warn("music api not reachable, continuing anyway", "url", cfg.MusicAPI.BaseURL, "error", err)
		} else {
			log.Info("music api reachable", "url", cfg.MusicAPI.BaseURL)
		}
	}

	handler := rest.NewHandler(rest.Services{
		Enrichment:  rt.enrichment,
		Links:       rt.links,
		Lyrics:      rt.lyrics,
		Recommender: rt.recommender,
		Upstream:    rt.music,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()
	colorSuccess.Printf("tracklens API is running on http://localhost:%s\n", cfg.Server.Port)

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown error", "error", err)
		}
		return nil
	}
}

// waitForUpstream polls p until it answers or timeout passes.
func waitForUpstream(ctx context.Context, p rest.Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		attemptCtx, attemptCancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.Ping(attemptCtx)
		attemptCancel()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return err
		case <-ticker.C:
		}
	}
}
