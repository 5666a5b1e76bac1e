package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/neexbeast/skywatch/internal/hop"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg} plus any extra diagnostic fields.
func writeError(w http.ResponseWriter, status int, msg string, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["error"] = msg
	writeJSON(w, status, body)
}

// writeUpstreamError maps a failed hop call onto the response.
// Hop failures are 502; an abandoned inbound request or anything else is 500.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if ctxErr := r.Context().Err(); ctxErr != nil {
		log.Warn("request interrupted", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "request interrupted", nil)
		return
	}

	var hopErr *hop.Error
	if errors.As(err, &hopErr) {
		log.Error("upstream hop failed", "path", r.URL.Path, "hop", hopErr.Hop, "err", err)
		writeError(w, http.StatusBadGateway, hopErr.Error(), hopErr.Fields())
		return
	}

	log.Error("unexpected failure", "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "internal server error", nil)
}
