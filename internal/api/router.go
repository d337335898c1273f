// Package api exposes the reporting backend over HTTP: the four report
// endpoints, COUNTER-data ingest, health and metrics.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/julianladisch/eusage-reports/internal/metrics"
	"github.com/julianladisch/eusage-reports/internal/ratelimit"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Rows    RowSource
	Ingest  Recorder
	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics

	// Ping checks database connectivity for the health endpoint. A nil
	// Ping reports the database as connected.
	Ping func(ctx context.Context) error

	// PubPeriodMonths is the default publication period length when the
	// pubPeriod query parameter is absent.
	PubPeriodMonths int
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(slogRequestLogger)
	r.Use(metricsMiddleware(deps.Metrics))

	// Handlers.
	reports := newReportsHandler(deps.Rows, deps.Metrics, deps.PubPeriodMonths)
	counter := newCounterHandler(deps.Ingest, deps.Metrics)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.Ping != nil {
			if err := deps.Ping(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":   "degraded",
					"database": "error",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"database": "connected",
		})
	})

	// Metrics exposition and JSON summary.
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.ExpositionHandler())
		r.Get("/metrics/summary", deps.Metrics.SummaryHandler())
	}

	// Tenant-facing routes (rate limited per tenant).
	r.Route("/eusage", func(er chi.Router) {
		if deps.Limiter != nil {
			var onReject []func()
			if deps.Metrics != nil {
				onReject = append(onReject, deps.Metrics.RateLimitRejectionsTotal.Inc)
			}
			er.Use(ratelimit.Middleware(deps.Limiter, onReject...))
		}

		er.Get("/reports/use-over-time", reports.UseOverTime)
		er.Get("/reports/reqs-by-date-of-use", reports.ReqsByDateOfUse)
		er.Get("/reports/reqs-by-pub-year", reports.ReqsByPubYear)
		er.Get("/reports/cost-per-use", reports.CostPerUse)

		er.Post("/counter-data", counter.PostCounterData)
	})

	return r
}
