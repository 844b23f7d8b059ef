package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

func f64(v float64) *float64 { return &v }

func audio() domain.AudioFile {
	return domain.AudioFile{Filename: "song.mp3", ContentType: "audio/mpeg", Size: 4, Content: strings.NewReader("data")}
}

func newTestOrchestrator(a ports.AnalysisGateway, r ports.TrackResolver, f ports.FeatureProvider, opts ...EnrichmentOption) *EnrichmentOrchestrator {
	o := NewEnrichmentOrchestrator(a, r, f, opts...)
	n := 0
	o.newID = func() string {
		n++
		return "profile-" + string(rune('0'+n))
	}
	o.now = func() time.Time { return time.Unix(1700000000, 0) }
	return o
}

// TestOrchestrator_AnalyzeAndEnrich verifies the full chain and its failure modes.
func TestOrchestrator_AnalyzeAndEnrich(t *testing.T) {
	stageA := domain.AnalysisResult{
		Title:  "T",
		Artist: "A",
		PrimaryFeatures: domain.PrimaryFeatures{
			BPM: 128, DurationSeconds: 200, RMS: 0.12, CamelotKey: "8A", Genre: "House", StoredFilePath: "song.mp3",
		},
	}

	tests := []struct {
		name          string
		analyzer      mockAnalyzer
		resolver      *mockResolver
		features      *mockFeatures
		token         string
		wantErr       string
		wantEmpty     bool
		wantID        string
		wantDance     *float64
		wantResolved  bool
		wantFeatCalls int
	}{
		{
			name:          "Happy Path",
			analyzer:      mockAnalyzer{result: stageA},
			resolver:      &mockResolver{url: "https://open.spotify.com/track/abc123?si=x"},
			features:      &mockFeatures{content: []domain.SupplementalFeatures{{Danceability: f64(0.8)}, {Danceability: f64(0.1)}}},
			token:         "tok",
			wantID:        "abc123",
			wantDance:     f64(0.8),
			wantResolved:  true,
			wantFeatCalls: 1,
		},
		{
			name:      "Analysis error surfaces server message",
			analyzer:  mockAnalyzer{err: &ports.AnalysisError{StatusCode: 400, Message: "No file uploaded"}},
			resolver:  &mockResolver{url: "https://open.spotify.com/track/abc123"},
			features:  &mockFeatures{},
			wantErr:   "No file uploaded",
			wantEmpty: true,
		},
		{
			name:      "Analysis transport error uses generic message",
			analyzer:  mockAnalyzer{err: errors.New("connection refused")},
			resolver:  &mockResolver{},
			features:  &mockFeatures{},
			wantErr:   "analysis failed",
			wantEmpty: true,
		},
		{
			name:     "Resolve failure keeps Stage A result",
			analyzer: mockAnalyzer{result: stageA},
			resolver: &mockResolver{err: errors.New("network down")},
			features: &mockFeatures{content: []domain.SupplementalFeatures{{Energy: f64(0.9)}}},
		},
		{
			name:     "Unparseable canonical url skips supplement",
			analyzer: mockAnalyzer{result: stageA},
			resolver: &mockResolver{url: "https://open.spotify.com/album/xyz"},
			features: &mockFeatures{content: []domain.SupplementalFeatures{{Energy: f64(0.9)}}},
		},
		{
			name:          "Supplement failure keeps resolved id",
			analyzer:      mockAnalyzer{result: stageA},
			resolver:      &mockResolver{url: "https://open.spotify.com/track/abc123"},
			features:      &mockFeatures{err: errors.New("503")},
			wantID:        "abc123",
			wantResolved:  true,
			wantFeatCalls: 1,
		},
		{
			name:          "Empty supplement content",
			analyzer:      mockAnalyzer{result: stageA},
			resolver:      &mockResolver{url: "https://open.spotify.com/track/abc123"},
			features:      &mockFeatures{content: []domain.SupplementalFeatures{}},
			wantID:        "abc123",
			wantResolved:  true,
			wantFeatCalls: 1,
		},
		{
			name:     "Missing artist skips resolve",
			analyzer: mockAnalyzer{result: domain.AnalysisResult{Title: "T", PrimaryFeatures: stageA.PrimaryFeatures}},
			resolver: &mockResolver{url: "https://open.spotify.com/track/abc123"},
			features: &mockFeatures{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := &mockRecorder{}
			o := newTestOrchestrator(&tc.analyzer, tc.resolver, tc.features, WithRecorder(rec))

			got, err := o.AnalyzeAndEnrich(context.Background(), audio(), tc.token)
			if tc.wantErr != "" {
				if err == nil || err.Error() != tc.wantErr {
					t.Fatalf("expected error %q, got %v", tc.wantErr, err)
				}
				if !errors.Is(err, ports.ErrAnalysisFailed) {
					t.Fatalf("expected ErrAnalysisFailed in chain, got %v", err)
				}
				state := o.State()
				if !state.Profile.IsEmpty() {
					t.Fatalf("expected empty profile after failed analysis, got %+v", state.Profile)
				}
				if state.ErrorMessage != tc.wantErr {
					t.Fatalf("state error: want %q, got %q", tc.wantErr, state.ErrorMessage)
				}
				if tc.resolver.calls != 0 {
					t.Fatalf("resolver must not run after failed analysis")
				}
				if len(rec.profiles) != 0 {
					t.Fatalf("failed analysis must not be recorded")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tc.analyzer.gotToken != tc.token {
				t.Fatalf("token: want %q, got %q", tc.token, tc.analyzer.gotToken)
			}
			if got.Title != tc.analyzer.result.Title || got.Primary == nil || got.Primary.BPM != 128 {
				t.Fatalf("primary features lost: %+v", got)
			}
			if got.ResolvedExternalID != tc.wantID {
				t.Fatalf("resolved id: want %q, got %q", tc.wantID, got.ResolvedExternalID)
			}
			if !reflect.DeepEqual(got.Supplemental.Danceability, tc.wantDance) {
				t.Fatalf("danceability: want %v, got %v", tc.wantDance, got.Supplemental.Danceability)
			}
			if !tc.wantResolved && !got.Supplemental.IsZero() {
				t.Fatalf("expected no supplemental features, got %+v", got.Supplemental)
			}
			if tc.features.calls != tc.wantFeatCalls {
				t.Fatalf("feature calls: want %d, got %d", tc.wantFeatCalls, tc.features.calls)
			}
			if tc.wantResolved && tc.features.gotID != tc.wantID {
				t.Fatalf("features fetched for %q, want %q", tc.features.gotID, tc.wantID)
			}

			state := o.State()
			if !reflect.DeepEqual(state.Profile, got) {
				t.Fatalf("shared profile differs from returned one:\nstate %+v\ngot   %+v", state.Profile, got)
			}
			if state.Busy {
				t.Fatalf("orchestrator still busy after completion")
			}
			if len(rec.profiles) != 1 || rec.profiles[0].ID != got.ID {
				t.Fatalf("expected the final profile to be recorded once, got %+v", rec.profiles)
			}
		})
	}
}

func TestOrchestrator_ResolveFailureEqualsStageA(t *testing.T) {
	analyzer := &mockAnalyzer{result: domain.AnalysisResult{
		Title: "T", Artist: "A", PrimaryFeatures: domain.PrimaryFeatures{BPM: 128, CamelotKey: "8A"},
	}}
	o := newTestOrchestrator(analyzer, &mockResolver{err: errors.New("network error")}, &mockFeatures{})

	got, err := o.AnalyzeAndEnrich(context.Background(), audio(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := domain.NewTrackProfile("profile-1", analyzer.result, time.Unix(1700000000, 0))
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("profile mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestOrchestrator_FailedAnalysisClearsPreviousProfile(t *testing.T) {
	analyzer := &mockAnalyzer{result: domain.AnalysisResult{Title: "Old", Artist: "A"}}
	o := newTestOrchestrator(analyzer, nil, nil)

	if _, err := o.AnalyzeAndEnrich(context.Background(), audio(), ""); err != nil {
		t.Fatalf("first analysis: %v", err)
	}
	if o.Profile().Title != "Old" {
		t.Fatalf("expected first profile to be stored")
	}

	analyzer.err = errors.New("boom")
	if _, err := o.AnalyzeAndEnrich(context.Background(), audio(), ""); err == nil {
		t.Fatalf("expected second analysis to fail")
	}
	if p := o.Profile(); !p.IsEmpty() {
		t.Fatalf("expected empty profile, got %+v", p)
	}
}

func TestOrchestrator_DurationFallback(t *testing.T) {
	tests := []struct {
		name     string
		reported float64
		estimate float64
		want     float64
	}{
		{name: "analyzer duration wins", reported: 200, estimate: 187.2, want: 200},
		{name: "estimate fills missing duration", reported: 0, estimate: 187.2, want: 187.2},
		{name: "nothing known", reported: 0, estimate: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &mockAnalyzer{result: domain.AnalysisResult{
				Title:           "T",
				Artist:          "A",
				PrimaryFeatures: domain.PrimaryFeatures{BPM: 120, DurationSeconds: tt.reported},
			}}
			o := newTestOrchestrator(analyzer, nil, nil)

			file := audio()
			file.EstimatedSeconds = tt.estimate
			got, err := o.AnalyzeAndEnrich(context.Background(), file, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Primary.DurationSeconds != tt.want {
				t.Fatalf("duration: got %v, want %v", got.Primary.DurationSeconds, tt.want)
			}
		})
	}
}

func TestOrchestrator_RejectsMissingAudio(t *testing.T) {
	analyzer := &mockAnalyzer{}
	o := newTestOrchestrator(analyzer, nil, nil)

	_, err := o.AnalyzeAndEnrich(context.Background(), domain.AudioFile{Filename: "x.mp3"}, "")
	if !errors.Is(err, domain.ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
	if analyzer.calls != 0 {
		t.Fatalf("analyzer must not be called without audio")
	}
}

func TestOrchestrator_BusyDuringAnalysis(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	analyzer := &blockingAnalyzer{entered: entered, release: release, result: domain.AnalysisResult{Title: "T"}}
	o := newTestOrchestrator(analyzer, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.AnalyzeAndEnrich(context.Background(), audio(), "")
	}()

	<-entered
	if !o.Busy() {
		t.Fatalf("expected busy while analysis is in flight")
	}
	close(release)
	<-done
	if o.Busy() {
		t.Fatalf("expected idle after analysis settled")
	}
}

func TestOrchestrator_TryAnalyzeAndEnrichRefusesWhileBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	analyzer := &blockingAnalyzer{entered: entered, release: release, result: domain.AnalysisResult{Title: "First", Artist: "A"}}
	o := newTestOrchestrator(analyzer, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := o.TryAnalyzeAndEnrich(context.Background(), audio(), "")
		done <- err
	}()
	<-entered

	if _, err := o.TryAnalyzeAndEnrich(context.Background(), audio(), ""); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if gen := o.State().Generation; gen != 1 {
		t.Fatalf("refused call must not start a generation, got %d", gen)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first call: unexpected error %v", err)
	}
	if got := o.Profile().Title; got != "First" {
		t.Fatalf("profile: got %q, want First", got)
	}
}

// A late supplement from an older upload must not land on the newer profile.
func TestOrchestrator_DropsStaleEnrichment(t *testing.T) {
	first := domain.AnalysisResult{Title: "First", Artist: "A"}
	second := domain.AnalysisResult{Title: "Second", Artist: "B"}

	analyzer := &sequenceAnalyzer{results: []domain.AnalysisResult{first, second}}
	resolverEntered := make(chan struct{}, 2)
	resolverRelease := make(chan struct{})
	resolver := &gatedResolver{
		entered: resolverEntered,
		release: resolverRelease,
		gateFor: "A First",
		url:     "https://open.spotify.com/track/id1",
	}
	features := &mockFeatures{content: []domain.SupplementalFeatures{{Energy: f64(0.99)}}}
	rec := &mockRecorder{}
	o := newTestOrchestrator(analyzer, resolver, features, WithRecorder(rec))

	firstDone := make(chan domain.TrackProfile)
	go func() {
		p, _ := o.AnalyzeAndEnrich(context.Background(), audio(), "")
		firstDone <- p
	}()
	<-resolverEntered

	resolver.mu.Lock()
	resolver.url = "https://open.spotify.com/track/id2"
	resolver.mu.Unlock()

	secondProfile, err := o.AnalyzeAndEnrich(context.Background(), audio(), "")
	if err != nil {
		t.Fatalf("second analysis: %v", err)
	}

	close(resolverRelease)
	firstProfile := <-firstDone

	current := o.Profile()
	if current.Title != "Second" {
		t.Fatalf("expected newest profile to win, got %q", current.Title)
	}
	if current.ResolvedExternalID != secondProfile.ResolvedExternalID {
		t.Fatalf("stale resolve overwrote current profile: %+v", current)
	}
	if firstProfile.Title != "First" {
		t.Fatalf("first caller should still get its own result, got %q", firstProfile.Title)
	}
	for _, p := range rec.profiles {
		if p.Title == "First" {
			t.Fatalf("superseded profile must not be recorded")
		}
	}
}

// --- Mocks ---

type mockAnalyzer struct {
	result domain.AnalysisResult
	err    error

	calls    int
	gotToken string
}

func (m *mockAnalyzer) Analyze(ctx context.Context, file domain.AudioFile, authToken string) (domain.AnalysisResult, error) {
	m.calls++
	m.gotToken = authToken
	if m.err != nil {
		return domain.AnalysisResult{}, m.err
	}
	return m.result, nil
}

type blockingAnalyzer struct {
	entered chan struct{}
	release chan struct{}
	result  domain.AnalysisResult
}

func (m *blockingAnalyzer) Analyze(ctx context.Context, file domain.AudioFile, authToken string) (domain.AnalysisResult, error) {
	close(m.entered)
	<-m.release
	return m.result, nil
}

type sequenceAnalyzer struct {
	mu      sync.Mutex
	results []domain.AnalysisResult
	n       int
}

func (m *sequenceAnalyzer) Analyze(ctx context.Context, file domain.AudioFile, authToken string) (domain.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.results[m.n%len(m.results)]
	m.n++
	return r, nil
}

type mockResolver struct {
	url string
	err error

	calls    int
	gotQuery string
}

func (m *mockResolver) ResolveExternalTrack(ctx context.Context, query string) (string, error) {
	m.calls++
	m.gotQuery = query
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

// gatedResolver blocks only for gateFor, so later queries pass straight through.
type gatedResolver struct {
	entered chan struct{}
	release chan struct{}
	gateFor string

	mu  sync.Mutex
	url string
}

func (m *gatedResolver) ResolveExternalTrack(ctx context.Context, query string) (string, error) {
	m.mu.Lock()
	url := m.url
	m.mu.Unlock()
	if query == m.gateFor {
		m.entered <- struct{}{}
		<-m.release
	}
	return url, nil
}

type mockFeatures struct {
	mu      sync.Mutex
	content []domain.SupplementalFeatures
	err     error

	calls int
	gotID string
}

func (m *mockFeatures) FetchSupplementalFeatures(ctx context.Context, id string) ([]domain.SupplementalFeatures, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.content, nil
}

type mockRecorder struct {
	mu       sync.Mutex
	profiles []domain.TrackProfile
}

func (m *mockRecorder) Record(p domain.TrackProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = append(m.profiles, p)
}
