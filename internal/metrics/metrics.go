// Package metrics holds the Prometheus collectors for the eusage-reports
// backend and a JSON summary endpoint built on the gathered families.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric collectors for the reporting backend.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Report metrics.
	ReportsBuiltTotal   *prometheus.CounterVec
	ReportBuildDuration *prometheus.HistogramVec
	ReportRowsTotal     *prometheus.CounterVec

	// Rate limiting.
	RateLimitRejectionsTotal prometheus.Counter

	// Ingest collector metrics.
	CollectorBufferSize   prometheus.Gauge
	CollectorFlushesTotal *prometheus.CounterVec
	CollectorRecordsTotal prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eusage_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eusage_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		ReportsBuiltTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eusage_reports_built_total",
			Help: "Total number of report computations, by report type and outcome.",
		}, []string{"type", "status"}),

		ReportBuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eusage_report_build_duration_seconds",
			Help:    "Report computation duration in seconds, fetch included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),

		ReportRowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eusage_report_rows_total",
			Help: "Total number of source rows consumed by report computations.",
		}, []string{"type"}),

		RateLimitRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eusage_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter.",
		}),

		CollectorBufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eusage_collector_buffer_size",
			Help: "Number of COUNTER records buffered for insertion.",
		}),

		CollectorFlushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eusage_collector_flushes_total",
			Help: "Total number of ingest buffer flushes, by outcome.",
		}, []string{"status"}),

		CollectorRecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eusage_collector_records_total",
			Help: "Total number of COUNTER records accepted for ingest.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eusage_server_start_time_seconds",
			Help: "Unix timestamp at which the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReportsBuiltTotal,
		m.ReportBuildDuration,
		m.ReportRowsTotal,
		m.RateLimitRejectionsTotal,
		m.CollectorBufferSize,
		m.CollectorFlushesTotal,
		m.CollectorRecordsTotal,
		m.ServerStartTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))
	return m
}

// RegisterDBPool adds the pgx pool stats collector.
func (m *Metrics) RegisterDBPool(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, pathPattern string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, fmt.Sprintf("%d", statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// ObserveReport records one report computation.
func (m *Metrics) ObserveReport(reportType, status string, rows int, duration time.Duration) {
	m.ReportsBuiltTotal.WithLabelValues(reportType, status).Inc()
	if status == "ok" {
		m.ReportBuildDuration.WithLabelValues(reportType).Observe(duration.Seconds())
		m.ReportRowsTotal.WithLabelValues(reportType).Add(float64(rows))
	}
}

// ExpositionHandler serves the registry in Prometheus text format.
func (m *Metrics) ExpositionHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
