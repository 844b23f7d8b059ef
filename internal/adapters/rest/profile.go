package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
	"github.com/ewilliams-labs/tracklens/internal/core/services"
	"github.com/ewilliams-labs/tracklens/internal/upload"
)

// AnalyzeUpload handles POST /profile with a multipart "file" field.
// An "Authorization: Bearer" header is forwarded to the analyzer.
func (h *Handler) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	if h.svc.Enrichment.Busy() {
		writeErrorWithCode(w, http.StatusConflict, "an analysis is already running", errCodeBusy)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	up, err := upload.FromReader(header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedFormat):
			writeErrorWithCode(w, http.StatusUnsupportedMediaType, err.Error(), errCodeUnsupportedMedia)
		case errors.Is(err, upload.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, domain.ErrNoAudio):
			writeError(w, http.StatusBadRequest, "No file uploaded")
		case errors.Is(err, upload.ErrCorrupt):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	profile, err := h.svc.Enrichment.TryAnalyzeAndEnrich(r.Context(), up.AudioFile(), bearerToken(r))
	if err != nil {
		if errors.Is(err, services.ErrBusy) {
			writeErrorWithCode(w, http.StatusConflict, "an analysis is already running", errCodeBusy)
			return
		}
		var aerr *ports.AnalysisError
		if errors.As(err, &aerr) {
			writeErrorWithCode(w, http.StatusBadGateway, aerr.Error(), errCodeAnalysisFailed)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// GetProfile handles GET /profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Enrichment.State())
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
