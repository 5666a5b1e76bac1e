package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/skywatch/internal/readings"
	"github.com/neexbeast/skywatch/internal/storage"
)

const defaultQueryTimeout = 5 * time.Second

// StorageHandlers serves raw readings straight from the store.
type StorageHandlers struct {
	store        ReadingStore
	queryTimeout time.Duration
	log          *slog.Logger
}

// NewStorageHandlers constructs StorageHandlers with all required dependencies.
// Every store call is bounded by queryTimeout, or a default when it is not positive.
func NewStorageHandlers(store ReadingStore, queryTimeout time.Duration, log *slog.Logger) *StorageHandlers {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &StorageHandlers{store: store, queryTimeout: queryTimeout, log: log}
}

func (h *StorageHandlers) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.queryTimeout)
}

// ListTable handles GET /table?name=<table>.
func (h *StorageHandlers) ListTable(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing table name", nil)
		return
	}

	t, err := storage.ParseTable(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table", map[string]any{"table": name})
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	rows, err := h.store.ListAll(ctx, t)
	if err != nil {
		h.log.Error("list table failed", "table", t.Name(), "err", err)
		writeError(w, http.StatusInternalServerError, "query failed", map[string]any{"table": t.Name()})
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// GetRow handles GET /table/{table}/{id}.
func (h *StorageHandlers) GetRow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")

	t, err := storage.ParseTable(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table", map[string]any{"table": name})
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	row, err := h.store.GetByID(ctx, t, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found", map[string]any{"table": t.Name(), "id": id})
		return
	}
	if err != nil {
		h.log.Error("get row failed", "table", t.Name(), "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "query failed", map[string]any{"table": t.Name()})
		return
	}

	writeJSON(w, http.StatusOK, row)
}

// BadTableUsage handles any other path under /table/.
func (h *StorageHandlers) BadTableUsage(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusBadRequest, "usage: /table?name=<table> or /table/<table>/<id>", nil)
}

// LatestAQI handles GET /aqi?city= or ?lat=&lon=.
func (h *StorageHandlers) LatestAQI(w http.ResponseWriter, r *http.Request) {
	h.latest(w, r, readings.MetricAirQuality)
}

// LatestUV handles GET /uv?city= or ?lat=&lon=.
func (h *StorageHandlers) LatestUV(w http.ResponseWriter, r *http.Request) {
	h.latest(w, r, readings.MetricUV)
}

// latest answers with a JSON array of zero or one rows. No match is not an error.
func (h *StorageHandlers) latest(w http.ResponseWriter, r *http.Request, metric readings.Metric) {
	loc, err := parseLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if loc.IsZero() {
		writeError(w, http.StatusBadRequest, "missing city or lat/lon", nil)
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	row, err := h.store.Latest(ctx, metric, loc)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusOK, []storage.Row{})
		return
	}
	if err != nil {
		h.log.Error("latest reading failed", "metric", metric, "err", err)
		writeError(w, http.StatusInternalServerError, "query failed", map[string]any{"metric": string(metric)})
		return
	}

	writeJSON(w, http.StatusOK, []storage.Row{row})
}
