package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ewilliams-labs/tracklens/internal/adapters/sqlite"
	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
	"github.com/ewilliams-labs/tracklens/internal/core/services"
)

// --- Mocks ---

type mockAnalyzer struct {
	result   domain.AnalysisResult
	err      error
	gotToken string
	gotName  string
	block    chan struct{}
	entered  chan struct{}
}

func (m *mockAnalyzer) Analyze(ctx context.Context, file domain.AudioFile, authToken string) (domain.AnalysisResult, error) {
	m.gotToken = authToken
	m.gotName = file.Filename
	if m.entered != nil {
		close(m.entered)
	}
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return domain.AnalysisResult{}, m.err
	}
	return m.result, nil
}

type mockResolver struct{}

func (mockResolver) ResolveExternalTrack(ctx context.Context, query string) (string, error) {
	return "https://open.spotify.com/track/abc", nil
}

type mockFeatures struct{}

func (mockFeatures) FetchSupplementalFeatures(ctx context.Context, id string) ([]domain.SupplementalFeatures, error) {
	v := 0.7
	return []domain.SupplementalFeatures{{Energy: &v}}, nil
}

type mockLinks struct {
	urls map[domain.LinkKind]string
}

func (m mockLinks) QuickLink(ctx context.Context, kind domain.LinkKind, query string) (string, error) {
	return m.urls[kind], nil
}

type mockSearcher struct {
	resp ports.LyricSearchResponse
	err  error
}

func (m mockSearcher) SearchByLyricSnippet(ctx context.Context, snippet string) (ports.LyricSearchResponse, error) {
	return m.resp, m.err
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(ctx context.Context) error { return m.err }

// --- Helpers ---

type fixture struct {
	handler  *Handler
	analyzer *mockAnalyzer
	history  *sqlite.Adapter
}

func newFixture(t *testing.T, analyzer *mockAnalyzer, searcher mockSearcher) fixture {
	t.Helper()
	history, err := sqlite.NewAdapter(sqlite.MemoryDSN)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	t.Cleanup(func() { _ = history.Close() })

	links := mockLinks{urls: map[domain.LinkKind]string{domain.LinkYouTube: "https://youtu.be/x"}}
	h := NewHandler(Services{
		Enrichment:  services.NewEnrichmentOrchestrator(analyzer, mockResolver{}, mockFeatures{}),
		Links:       services.NewQuickLinkResolver(links, false),
		Lyrics:      services.NewLyricSearchSession(searcher),
		Recommender: services.NewRecommender(history),
		Upstream:    mockPinger{},
	})
	return fixture{handler: h, analyzer: analyzer, history: history}
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHandler_HealthAndReady(t *testing.T) {
	f := newFixture(t, &mockAnalyzer{}, mockSearcher{})

	rec := do(f.handler, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: %d %s", rec.Code, rec.Body.String())
	}

	down := NewHandler(Services{Upstream: mockPinger{err: errors.New("refused")}})
	rec = do(down, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), errCodeUpstreamDown) {
		t.Fatalf("ready when down: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_AnalyzeUpload(t *testing.T) {
	tests := []struct {
		name           string
		filename       string
		content        string
		auth           string
		analyzeErr     error
		expectedStatus int
		expectedBody   string
		expectedToken  string
	}{
		{
			name:           "Success: returns enriched profile",
			filename:       "song.wav",
			content:        "RIFF",
			auth:           "Bearer tok-123",
			expectedStatus: http.StatusOK,
			expectedBody:   `"resolved_external_id":"abc"`,
			expectedToken:  "tok-123",
		},
		{
			name:           "Bad Request: no file",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "No file uploaded",
		},
		{
			name:           "Unsupported: text file",
			filename:       "notes.txt",
			content:        "hello",
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedBody:   errCodeUnsupportedMedia,
		},
		{
			name:           "Bad Gateway: analyzer rejects upload",
			filename:       "song.wav",
			content:        "RIFF",
			analyzeErr:     &ports.AnalysisError{StatusCode: 500, Message: "Analysis failed: bad header"},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   "Analysis failed: bad header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &mockAnalyzer{
				result: domain.AnalysisResult{Title: "T", Artist: "A", PrimaryFeatures: domain.PrimaryFeatures{BPM: 128, CamelotKey: "8A"}},
				err:    tt.analyzeErr,
			}
			f := newFixture(t, analyzer, mockSearcher{})

			body, ct := multipartUpload(t, tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/profile", body)
			req.Header.Set("Content-Type", ct)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}

			rec := do(f.handler, req)
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if tt.expectedBody != "" && !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
			if analyzer.gotToken != tt.expectedToken {
				t.Errorf("token: got %q, want %q", analyzer.gotToken, tt.expectedToken)
			}
		})
	}
}

func TestHandler_AnalyzeUploadBusy(t *testing.T) {
	analyzer := &mockAnalyzer{block: make(chan struct{}), entered: make(chan struct{})}
	f := newFixture(t, analyzer, mockSearcher{})

	done := make(chan int)
	go func() {
		body, ct := multipartUpload(t, "a.wav", "RIFF")
		req := httptest.NewRequest(http.MethodPost, "/profile", body)
		req.Header.Set("Content-Type", ct)
		done <- do(f.handler, req).Code
	}()
	<-analyzer.entered

	body, ct := multipartUpload(t, "b.wav", "RIFF")
	req := httptest.NewRequest(http.MethodPost, "/profile", body)
	req.Header.Set("Content-Type", ct)
	rec := do(f.handler, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while busy, got %d", rec.Code)
	}

	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/profile", nil))
	if !strings.Contains(rec.Body.String(), `"busy":true`) {
		t.Fatalf("expected busy state, got %s", rec.Body.String())
	}

	close(analyzer.block)
	select {
	case code := <-done:
		if code != http.StatusOK {
			t.Fatalf("first upload: got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first upload did not finish")
	}
}

func TestHandler_GetListenLink(t *testing.T) {
	f := newFixture(t, &mockAnalyzer{}, mockSearcher{})

	tests := []struct {
		path           string
		expectedStatus int
		expectedBody   string
	}{
		{path: "/links/youtube?artist=Rick+Astley&title=Never+Gonna", expectedStatus: http.StatusOK, expectedBody: `"url":"https://youtu.be/x"`},
		{path: "/links/spotify?artist=Rick+Astley&title=Never+Gonna", expectedStatus: http.StatusNotFound, expectedBody: `{"error":"not found"}`},
		{path: "/links/soundcloud?artist=a&title=b", expectedStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(f.handler, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedBody != "" && !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Fatalf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_LyricsFlow(t *testing.T) {
	searcher := mockSearcher{resp: ports.LyricSearchResponse{SongsPresent: true, Songs: []domain.Candidate{
		{Title: "One", Artist: "A"}, {Title: "Two", Artist: "B"},
	}}}
	f := newFixture(t, &mockAnalyzer{}, searcher)

	req := httptest.NewRequest(http.MethodPost, "/lyrics/search", strings.NewReader(`{"snippet":"la la"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(f.handler, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: %d %s", rec.Code, rec.Body.String())
	}

	var state domain.LyricSearchState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Status != domain.StatusHasResults || len(state.Candidates) != 2 || state.Cursor != 0 {
		t.Fatalf("unexpected state %+v", state)
	}

	for i := 0; i < 3; i++ {
		do(f.handler, httptest.NewRequest(http.MethodPost, "/lyrics/next", nil))
	}
	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/lyrics", nil))
	if !strings.Contains(rec.Body.String(), `"cursor":1`) {
		t.Fatalf("cursor should stop at the last candidate: %s", rec.Body.String())
	}

	rec = do(f.handler, httptest.NewRequest(http.MethodPost, "/lyrics/previous", nil))
	if !strings.Contains(rec.Body.String(), `"cursor":0`) {
		t.Fatalf("previous: %s", rec.Body.String())
	}
}

func TestHandler_SearchLyricsRejectsNonJSON(t *testing.T) {
	f := newFixture(t, &mockAnalyzer{}, mockSearcher{})
	req := httptest.NewRequest(http.MethodPost, "/lyrics/search", strings.NewReader(`snippet=x`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(f.handler, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
}

func TestHandler_History(t *testing.T) {
	f := newFixture(t, &mockAnalyzer{}, mockSearcher{})
	ctx := context.Background()
	now := time.Now()
	for _, p := range []domain.TrackProfile{
		{ID: "seed", Title: "Seed", Primary: &domain.PrimaryFeatures{BPM: 120, CamelotKey: "8A"}, AnalyzedAt: now},
		{ID: "near", Title: "Near", Primary: &domain.PrimaryFeatures{BPM: 121, CamelotKey: "9A"}, AnalyzedAt: now},
		{ID: "clash", Title: "Clash", Primary: &domain.PrimaryFeatures{BPM: 120, CamelotKey: "2B"}, AnalyzedAt: now},
	} {
		if err := f.history.Save(ctx, p); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	rec := do(f.handler, httptest.NewRequest(http.MethodGet, "/history", nil))
	var profiles []domain.TrackProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &profiles); err != nil || len(profiles) != 3 {
		t.Fatalf("history: %v %s", err, rec.Body.String())
	}

	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/history/seed/recommendations?strict=true", nil))
	var recs []domain.Recommendation
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].Profile.ID != "near" {
		t.Fatalf("strict recommendations: %s", rec.Body.String())
	}

	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/history/missing/recommendations", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/history/seed/recommendations?strict=maybe", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
