// Package rest is the local JSON API the presentation layer calls.
package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ewilliams-labs/tracklens/internal/core/services"
)

// Pinger reports whether an upstream dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the use cases exposed over HTTP. Upstream may be nil.
type Services struct {
	Enrichment  *services.EnrichmentOrchestrator
	Links       *services.QuickLinkResolver
	Lyrics      *services.LyricSearchSession
	Recommender *services.Recommender
	Upstream    Pinger
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc    Services
	router *http.ServeMux
	log    *slog.Logger
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc Services) *Handler {
	h := &Handler{
		svc:    svc,
		router: http.NewServeMux(),
		log:    slog.Default().With("component", "rest"),
	}
	h.routes()
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)
	h.router.HandleFunc("GET /ready", h.ReadyCheck)

	h.router.HandleFunc("POST /profile", h.AnalyzeUpload)
	h.router.HandleFunc("GET /profile", h.GetProfile)

	h.router.HandleFunc("GET /links/{kind}", h.GetListenLink)

	h.router.HandleFunc("POST /lyrics/search", h.SearchLyrics)
	h.router.HandleFunc("POST /lyrics/next", h.NextCandidate)
	h.router.HandleFunc("POST /lyrics/previous", h.PreviousCandidate)
	h.router.HandleFunc("GET /lyrics", h.GetLyrics)

	h.router.HandleFunc("GET /history", h.ListHistory)
	h.router.HandleFunc("GET /history/{id}/recommendations", h.GetRecommendations)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyCheck verifies the music analyzer backend answers.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if h.svc.Upstream != nil {
		if err := h.svc.Upstream.Ping(r.Context()); err != nil {
			h.log.Warn("readiness check failed", "error", err)
			writeErrorWithCode(w, http.StatusServiceUnavailable, "music api unavailable", errCodeUpstreamDown)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
