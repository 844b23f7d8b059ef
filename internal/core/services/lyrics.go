package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// LyricSearchSession tracks one lyric search view: the snippet, the latest
// search outcome and the cursor over ambiguous matches.
type LyricSearchSession struct {
	searcher ports.LyricSearcher
	log      *slog.Logger

	mu     sync.Mutex
	state  domain.LyricSearchState
	issued uint64
}

// NewLyricSearchSession constructs an idle session.
func NewLyricSearchSession(searcher ports.LyricSearcher) *LyricSearchSession {
	return &LyricSearchSession{
		searcher: searcher,
		log:      slog.Default().With("component", "lyrics"),
		state:    domain.LyricSearchState{Status: domain.StatusIdle, Candidates: []domain.Candidate{}},
	}
}

// State returns a snapshot of the session.
func (s *LyricSearchSession) State() domain.LyricSearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// SetSnippet stores user input without searching.
func (s *LyricSearchSession) SetSnippet(snippet string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Snippet = snippet
}

// Submit searches with the stored snippet.
func (s *LyricSearchSession) Submit(ctx context.Context) domain.LyricSearchState {
	s.mu.Lock()
	snippet := s.state.Snippet
	s.mu.Unlock()
	return s.Search(ctx, snippet)
}

// Search runs a lyric search and settles the session into exactly one of
// HasResults, Empty or Error. A blank snippet resets the session to Idle.
// Responses to searches that have since been superseded are dropped.
func (s *LyricSearchSession) Search(ctx context.Context, snippet string) domain.LyricSearchState {
	trimmed := strings.TrimSpace(snippet)

	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.state.Snippet = snippet
	s.state.Candidates = []domain.Candidate{}
	s.state.Cursor = 0
	s.state.ErrorMessage = ""
	if trimmed == "" {
		s.state.Status = domain.StatusIdle
		out := s.snapshot()
		s.mu.Unlock()
		return out
	}
	s.state.Status = domain.StatusSearching
	s.mu.Unlock()

	resp, err := s.searcher.SearchByLyricSnippet(ctx, trimmed)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued {
		s.log.Debug("dropping stale lyric search response", "seq", seq, "latest", s.issued)
		return s.snapshot()
	}
	if err != nil {
		s.log.Warn("lyric search failed", "error", err)
	}
	s.apply(resp, err)
	return s.snapshot()
}

// Next moves the cursor forward; it is a no-op on the last candidate or
// outside HasResults.
func (s *LyricSearchSession) Next() domain.LyricSearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == domain.StatusHasResults && s.state.Cursor < len(s.state.Candidates)-1 {
		s.state.Cursor++
	}
	return s.snapshot()
}

// Previous moves the cursor back; it is a no-op on the first candidate or
// outside HasResults.
func (s *LyricSearchSession) Previous() domain.LyricSearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == domain.StatusHasResults && s.state.Cursor > 0 {
		s.state.Cursor--
	}
	return s.snapshot()
}

// apply classifies a response. First match wins.
func (s *LyricSearchSession) apply(resp ports.LyricSearchResponse, err error) {
	switch {
	case err != nil:
		s.fail(domain.StatusError, domain.MessageFailure)
	case resp.NotFound || (resp.SongsPresent && len(resp.Songs) == 0):
		s.fail(domain.StatusEmpty, domain.MessageNoMatch)
	case len(resp.Songs) > 0:
		s.state.Status = domain.StatusHasResults
		s.state.Candidates = append([]domain.Candidate(nil), resp.Songs...)
		s.state.Cursor = 0
		s.state.ErrorMessage = ""
	case resp.ErrorMarker != "":
		s.fail(domain.StatusError, domain.MessageInvalidSnippet)
	default:
		s.fail(domain.StatusError, domain.MessageFailure)
	}
}

func (s *LyricSearchSession) fail(status domain.SearchStatus, msg string) {
	s.state.Status = status
	s.state.Candidates = []domain.Candidate{}
	s.state.Cursor = 0
	s.state.ErrorMessage = msg
}

func (s *LyricSearchSession) snapshot() domain.LyricSearchState {
	out := s.state
	out.Candidates = append([]domain.Candidate{}, s.state.Candidates...)
	return out
}
