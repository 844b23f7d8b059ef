package domain

// Candidate is one lyric-search match.
type Candidate struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"cover_url,omitempty"`
}

// SearchStatus is the lifecycle state of a lyric search session.
type SearchStatus string

const (
	StatusIdle       SearchStatus = "idle"
	StatusSearching  SearchStatus = "searching"
	StatusHasResults SearchStatus = "has_results"
	StatusEmpty      SearchStatus = "empty"
	StatusError      SearchStatus = "error"
)

// User-visible messages for the terminal non-result states.
const (
	MessageNoMatch        = "no matching track"
	MessageInvalidSnippet = "snippet missing or invalid"
	MessageFailure        = "network or server failure"
)

// LyricSearchState is a snapshot of a lyric search session.
type LyricSearchState struct {
	Snippet      string       `json:"snippet"`
	Status       SearchStatus `json:"status"`
	Candidates   []Candidate  `json:"candidates"`
	Cursor       int          `json:"cursor"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// Current returns the candidate under the cursor.
func (s LyricSearchState) Current() (Candidate, bool) {
	if s.Status != StatusHasResults || s.Cursor < 0 || s.Cursor >= len(s.Candidates) {
		return Candidate{}, false
	}
	return s.Candidates[s.Cursor], true
}
