package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// lookupTimeout bounds a shared lookup once it no longer follows any single
// caller's context.
const lookupTimeout = 30 * time.Second

type linkKey struct {
	kind  domain.LinkKind
	query string
}

// QuickLinkResolver finds an external listen link for an artist/title pair.
// Found links are optionally cached for the life of the resolver.
type QuickLinkResolver struct {
	lookup ports.LinkLookup
	cache  bool
	log    *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	links map[linkKey]string
}

// NewQuickLinkResolver constructs a QuickLinkResolver.
func NewQuickLinkResolver(lookup ports.LinkLookup, cache bool) *QuickLinkResolver {
	return &QuickLinkResolver{
		lookup: lookup,
		cache:  cache,
		log:    slog.Default().With("component", "quicklink"),
		links:  make(map[linkKey]string),
	}
}

// ResolveListenLink returns the listen URL for artist/title on kind.
// Misses and failures both return false; they differ only in what gets logged.
func (r *QuickLinkResolver) ResolveListenLink(ctx context.Context, kind domain.LinkKind, artist, title string) (string, bool) {
	query := domain.TrackQuery(artist, title)
	if query == "" {
		r.log.Info("quick link skipped: empty query", "kind", kind)
		return "", false
	}

	key := linkKey{kind: kind, query: strings.ToLower(query)}
	if url, ok := r.cached(key); ok {
		return url, true
	}

	// The lookup is shared by every concurrent caller for the same key, so it
	// runs detached and each caller waits on its own context.
	ch := r.group.DoChan(string(kind)+"\x00"+key.query, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return r.lookup.QuickLink(lctx, kind, query)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		r.log.Warn("quick link search abandoned", "kind", kind, "query", query, "error", ctx.Err())
		return "", false
	case res = <-ch:
	}
	if res.Err != nil {
		r.log.Warn("quick link search failed", "kind", kind, "query", query, "error", res.Err)
		return "", false
	}

	url, _ := res.Val.(string)
	if url == "" {
		r.log.Info("quick link not found", "kind", kind, "query", query)
		return "", false
	}

	if r.cache {
		r.mu.Lock()
		r.links[key] = url
		r.mu.Unlock()
	}
	return url, true
}

func (r *QuickLinkResolver) cached(key linkKey) (string, bool) {
	if !r.cache {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	url, ok := r.links[key]
	return url, ok
}
