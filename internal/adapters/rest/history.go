package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// ListHistory handles GET /history
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.Recommender.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// GetRecommendations handles GET /history/{id}/recommendations?strict=
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "profile id is required")
		return
	}

	strict := false
	if raw := r.URL.Query().Get("strict"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "strict must be true or false")
			return
		}
		strict = parsed
	}

	recs, err := h.svc.Recommender.Recommend(r.Context(), id, strict)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
