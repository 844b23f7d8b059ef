package rest

import (
	"encoding/json"
	"net/http"
)

type lyricSearchRequest struct {
	Snippet string `json:"snippet"`
}

// SearchLyrics handles POST /lyrics/search. The response is the settled
// session state, whatever the outcome of the search.
func (h *Handler) SearchLyrics(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req lyricSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, h.svc.Lyrics.Search(r.Context(), req.Snippet))
}

// NextCandidate handles POST /lyrics/next
func (h *Handler) NextCandidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Lyrics.Next())
}

// PreviousCandidate handles POST /lyrics/previous
func (h *Handler) PreviousCandidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Lyrics.Previous())
}

// GetLyrics handles GET /lyrics
func (h *Handler) GetLyrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Lyrics.State())
}
