package ports

import (
	"context"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
)

// AnalysisGateway uploads audio to the analysis service.
// authToken is optional; an empty token means an unauthenticated call.
type AnalysisGateway interface {
	Analyze(ctx context.Context, file domain.AudioFile, authToken string) (domain.AnalysisResult, error)
}

// TrackResolver maps an "artist title" query to a canonical catalog URL.
type TrackResolver interface {
	ResolveExternalTrack(ctx context.Context, query string) (string, error)
}

// FeatureProvider fetches supplemental descriptors for a catalog id.
// The returned slice mirrors the upstream content list.
type FeatureProvider interface {
	FetchSupplementalFeatures(ctx context.Context, id string) ([]domain.SupplementalFeatures, error)
}

// LinkLookup returns a listen URL for a query, or "" when the upstream has none.
type LinkLookup interface {
	QuickLink(ctx context.Context, kind domain.LinkKind, query string) (string, error)
}

// LyricSearchResponse is the raw outcome of a lyric search call.
// Transport and decode failures are reported as errors instead.
type LyricSearchResponse struct {
	NotFound     bool
	SongsPresent bool
	Songs        []domain.Candidate
	ErrorMarker  string
}

// LyricSearcher looks up tracks by a lyric fragment.
type LyricSearcher interface {
	SearchByLyricSnippet(ctx context.Context, snippet string) (LyricSearchResponse, error)
}
