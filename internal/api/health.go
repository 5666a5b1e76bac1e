package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthHandlerFunc returns an http.HandlerFunc reporting liveness. When db is
// non-nil it is pinged and a failure turns the response into a 503.
func HealthHandlerFunc(service, version string, db dbPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{
			"status":  "ok",
			"service": service,
			"version": version,
		}
		if db == nil {
			writeJSON(w, http.StatusOK, body)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		body["db"] = "ok"
		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			body["db"] = "error"
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, body)
	}
}
