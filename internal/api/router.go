package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/neexbeast/skywatch/internal/metrics"
)

// RouterOptions carries the settings shared by every service's router.
type RouterOptions struct {
	Service            string
	Version            string
	// RateLimitPerMinute caps requests per client IP on the public edge only.
	// Internal tiers see every request from one upstream IP and are not limited.
	RateLimitPerMinute int
	// Token, when set, is required as a bearer token on data routes.
	Token string
	// Metrics is nil when metrics are disabled.
	Metrics *metrics.Metrics
	Log     *slog.Logger
}

// newBaseRouter installs the middleware stack and utility routes every
// service shares. limit enables the per-IP rate limiter.
func newBaseRouter(opts RouterOptions, db dbPinger, limit bool) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(corsMiddleware())
	r.Use(preflight)
	if limit && opts.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.Get("/health", HealthHandlerFunc(opts.Service, opts.Version, db, opts.Log))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	return r
}

// NewStorageRouter builds the storage service router. db backs the health check.
func NewStorageRouter(h *StorageHandlers, db dbPinger, opts RouterOptions) *chi.Mux {
	r := newBaseRouter(opts, db, false)

	r.Group(func(r chi.Router) {
		if opts.Token != "" {
			r.Use(BearerAuth(opts.Token))
		}
		r.Get("/table", h.ListTable)
		r.Get("/table/{table}/{id}", h.GetRow)
		r.Get("/table/*", h.BadTableUsage)
		r.Get("/aqi", h.LatestAQI)
		r.Get("/uv", h.LatestUV)
	})

	return r
}

// NewAggregatorRouter builds the aggregation service router.
func NewAggregatorRouter(h *AggregatorHandlers, opts RouterOptions) *chi.Mux {
	r := newBaseRouter(opts, nil, false)
	r.Get("/combined", h.Combined)
	return r
}

// NewDashboardRouter builds the presentation service router, the only
// tier browsers reach directly.
func NewDashboardRouter(h *DashboardHandlers, opts RouterOptions) *chi.Mux {
	r := newBaseRouter(opts, nil, true)
	r.Get("/dashboard", h.Dashboard)
	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
