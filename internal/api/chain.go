package api

import (
	"log/slog"
	"net/http"

	"github.com/neexbeast/skywatch/internal/readings"
)

// AggregatorHandlers serves the combined snapshot.
type AggregatorHandlers struct {
	combiner   Combiner
	defaultLoc readings.Location
	log        *slog.Logger
}

// NewAggregatorHandlers constructs AggregatorHandlers. defaultLoc is used when
// a request names no location.
func NewAggregatorHandlers(combiner Combiner, defaultLoc readings.Location, log *slog.Logger) *AggregatorHandlers {
	return &AggregatorHandlers{combiner: combiner, defaultLoc: defaultLoc, log: log}
}

// Combined handles GET /combined.
func (h *AggregatorHandlers) Combined(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if loc.IsZero() {
		loc = h.defaultLoc
	}
	if loc.IsZero() {
		writeError(w, http.StatusBadRequest, "location required", nil)
		return
	}

	snap, err := h.combiner.Combine(r.Context(), loc)
	if err != nil {
		writeUpstreamError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// DashboardHandlers serves the classified report.
type DashboardHandlers struct {
	reports ReportBuilder
	log     *slog.Logger
}

// NewDashboardHandlers constructs DashboardHandlers.
func NewDashboardHandlers(reports ReportBuilder, log *slog.Logger) *DashboardHandlers {
	return &DashboardHandlers{reports: reports, log: log}
}

// Dashboard handles GET /dashboard. The location, if any, is forwarded as is.
func (h *DashboardHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	report, err := h.reports.BuildReport(r.Context(), loc)
	if err != nil {
		writeUpstreamError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
