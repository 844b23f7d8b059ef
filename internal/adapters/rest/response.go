package rest

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
)

const (
	errCodeAnalysisFailed   = "ANALYSIS_FAILED"
	errCodeBusy             = "ANALYSIS_IN_PROGRESS"
	errCodeUnsupportedMedia = "UNSUPPORTED_MEDIA"
	errCodeUpstreamDown     = "UPSTREAM_UNAVAILABLE"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("failed to encode response", "component", "rest", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func isJSONContentType(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
