package rest

import (
	"net/http"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
)

type linkResponse struct {
	URL string `json:"url"`
}

// GetListenLink handles GET /links/{kind}?artist=&title=
func (h *Handler) GetListenLink(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseLinkKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	url, ok := h.svc.Links.ResolveListenLink(r.Context(), kind, q.Get("artist"), q.Get("title"))
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{URL: url})
}
