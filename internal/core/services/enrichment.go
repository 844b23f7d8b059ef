package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// ErrBusy is returned by TryAnalyzeAndEnrich while another analysis is running.
var ErrBusy = errors.New("enrichment: analysis already running")

// DefaultExternalIDMarker precedes the catalog id in canonical track URLs.
const DefaultExternalIDMarker = "/track/"

// EnrichmentState is what the presentation layer renders for the upload view.
type EnrichmentState struct {
	Profile      domain.TrackProfile `json:"profile"`
	Busy         bool                `json:"busy"`
	Generation   uint64              `json:"generation"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// EnrichmentOrchestrator drives the analyze -> resolve -> supplement chain
// and owns the session's current TrackProfile.
type EnrichmentOrchestrator struct {
	analyzer ports.AnalysisGateway
	resolver ports.TrackResolver
	features ports.FeatureProvider
	recorder ports.ProfileRecorder
	marker   string
	newID    func() string
	now      func() time.Time
	log      *slog.Logger

	mu         sync.Mutex
	profile    domain.TrackProfile
	generation uint64
	inFlight   int
	errMsg     string
}

// EnrichmentOption customizes an EnrichmentOrchestrator.
type EnrichmentOption func(*EnrichmentOrchestrator)

// WithRecorder hands every finished, still-current profile to r.
func WithRecorder(r ports.ProfileRecorder) EnrichmentOption {
	return func(o *EnrichmentOrchestrator) { o.recorder = r }
}

// WithExternalIDMarker overrides the path marker used to pull ids out of canonical URLs.
func WithExternalIDMarker(marker string) EnrichmentOption {
	return func(o *EnrichmentOrchestrator) {
		if marker != "" {
			o.marker = marker
		}
	}
}

// NewEnrichmentOrchestrator constructs an EnrichmentOrchestrator.
// resolver and features may be nil, in which case the chain stops after analysis.
func NewEnrichmentOrchestrator(analyzer ports.AnalysisGateway, resolver ports.TrackResolver, features ports.FeatureProvider, opts ...EnrichmentOption) *EnrichmentOrchestrator {
	o := &EnrichmentOrchestrator{
		analyzer: analyzer,
		resolver: resolver,
		features: features,
		marker:   DefaultExternalIDMarker,
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
		log:      slog.Default().With("component", "enrichment"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns a snapshot of the current profile and flags.
func (o *EnrichmentOrchestrator) State() EnrichmentState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return EnrichmentState{
		Profile:      o.profile.Clone(),
		Busy:         o.inFlight > 0,
		Generation:   o.generation,
		ErrorMessage: o.errMsg,
	}
}

// Profile returns a copy of the current profile.
func (o *EnrichmentOrchestrator) Profile() domain.TrackProfile {
	return o.State().Profile
}

// Busy reports whether an analysis upload is in flight.
func (o *EnrichmentOrchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight > 0
}

// AnalyzeAndEnrich uploads file for analysis and then tries to enrich the
// result with catalog features. Only the analysis stage can fail the call;
// resolve and supplement problems are logged and leave the profile as analyzed.
//
// The returned profile is this call's own result. If a newer call has
// started in the meantime, the shared profile is left to the newer call.
func (o *EnrichmentOrchestrator) AnalyzeAndEnrich(ctx context.Context, file domain.AudioFile, authToken string) (domain.TrackProfile, error) {
	return o.run(ctx, file, authToken, false)
}

// TryAnalyzeAndEnrich is AnalyzeAndEnrich that refuses with ErrBusy instead
// of superseding an analysis already in flight.
func (o *EnrichmentOrchestrator) TryAnalyzeAndEnrich(ctx context.Context, file domain.AudioFile, authToken string) (domain.TrackProfile, error) {
	return o.run(ctx, file, authToken, true)
}

func (o *EnrichmentOrchestrator) run(ctx context.Context, file domain.AudioFile, authToken string, exclusive bool) (domain.TrackProfile, error) {
	if !file.Valid() {
		return domain.TrackProfile{}, domain.ErrNoAudio
	}

	gen, ok := o.begin(exclusive)
	if !ok {
		return domain.TrackProfile{}, ErrBusy
	}

	res, err := o.analyzer.Analyze(ctx, file, authToken)
	if err != nil {
		aerr := analysisError(err)
		o.log.Warn("analysis failed", "file", file.Filename, "error", err)
		o.endAnalysis(gen, nil, aerr.Error())
		return domain.TrackProfile{}, aerr
	}

	profile := domain.NewTrackProfile(o.newID(), res, o.now())
	if profile.Primary.DurationSeconds <= 0 && file.EstimatedSeconds > 0 {
		profile.Primary.DurationSeconds = file.EstimatedSeconds
	}
	if !o.endAnalysis(gen, &profile, "") {
		o.log.Debug("analysis superseded by a newer upload", "generation", gen)
		return profile, nil
	}

	profile, current := o.enrich(ctx, gen, profile)
	if current && o.recorder != nil {
		o.recorder.Record(profile.Clone())
	}
	return profile, nil
}

func (o *EnrichmentOrchestrator) enrich(ctx context.Context, gen uint64, profile domain.TrackProfile) (domain.TrackProfile, bool) {
	if !profile.HasIdentity() || o.resolver == nil {
		return profile, true
	}

	query := domain.TrackQuery(profile.Artist, profile.Title)
	canonical, err := o.resolver.ResolveExternalTrack(ctx, query)
	if err != nil {
		o.log.Warn("resolve failed", "query", query, "error", err)
		return profile, true
	}
	id, ok := ExtractExternalID(canonical, o.marker)
	if !ok {
		o.log.Warn("resolve returned an unusable url", "query", query, "url", canonical)
		return profile, true
	}

	profile = profile.Clone()
	profile.ResolvedExternalID = id
	if !o.commit(gen, profile) {
		o.log.Debug("dropping stale resolve result", "generation", gen)
		return profile, false
	}

	if o.features == nil {
		return profile, true
	}
	content, err := o.features.FetchSupplementalFeatures(ctx, id)
	if err != nil {
		o.log.Warn("supplemental features failed", "id", id, "error", err)
		return profile, true
	}
	if len(content) == 0 {
		o.log.Info("no supplemental features", "id", id)
		return profile, true
	}

	profile = profile.WithSupplemental(content[0])
	if !o.commit(gen, profile) {
		o.log.Debug("dropping stale supplemental features", "generation", gen)
		return profile, false
	}
	return profile, true
}

// begin starts a new generation and clears the shared profile. With
// exclusive set it fails instead when an analysis is already in flight.
func (o *EnrichmentOrchestrator) begin(exclusive bool) (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if exclusive && o.inFlight > 0 {
		return 0, false
	}
	o.generation++
	o.profile = domain.TrackProfile{}
	o.errMsg = ""
	o.inFlight++
	return o.generation, true
}

// endAnalysis settles the analysis stage of gen. It reports whether gen is still current.
func (o *EnrichmentOrchestrator) endAnalysis(gen uint64, profile *domain.TrackProfile, errMsg string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight--
	if gen != o.generation {
		return false
	}
	if profile != nil {
		o.profile = profile.Clone()
	}
	o.errMsg = errMsg
	return true
}

func (o *EnrichmentOrchestrator) commit(gen uint64, profile domain.TrackProfile) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return false
	}
	o.profile = profile.Clone()
	return true
}

func analysisError(err error) *ports.AnalysisError {
	var aerr *ports.AnalysisError
	if errors.As(err, &aerr) && aerr.Message != "" {
		return aerr
	}
	out := &ports.AnalysisError{Message: ports.ErrAnalysisFailed.Error()}
	if aerr != nil {
		out.StatusCode = aerr.StatusCode
	}
	return out
}
