package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/julianladisch/eusage-reports/internal/export"
	"github.com/julianladisch/eusage-reports/internal/metrics"
	"github.com/julianladisch/eusage-reports/internal/period"
	"github.com/julianladisch/eusage-reports/internal/report"
)

// RowSource supplies the flat usage and cost rows reports are computed from.
// It exists to allow testing the handlers without a real database.
type RowSource interface {
	UsageRows(ctx context.Context, agreementID uuid.UUID, from, to time.Time) ([]report.UsageRow, error)
	CostRows(ctx context.Context, agreementID uuid.UUID, from, to time.Time) ([]report.CostRow, error)
}

// reportsHandler groups the four report endpoints.
type reportsHandler struct {
	rows             RowSource
	metrics          *metrics.Metrics
	defaultPubMonths int
}

func newReportsHandler(rows RowSource, m *metrics.Metrics, defaultPubMonths int) *reportsHandler {
	if defaultPubMonths <= 0 {
		defaultPubMonths = 12
	}
	return &reportsHandler{rows: rows, metrics: m, defaultPubMonths: defaultPubMonths}
}

// reportQuery holds the validated query parameters shared by all report
// endpoints.
type reportQuery struct {
	agreementID uuid.UUID
	periods     *period.Periods
	pubMonths   int
	csv         bool
}

// parseQuery validates the request parameters, writing a 400 response and
// returning false on failure.
func (h *reportsHandler) parseQuery(w http.ResponseWriter, r *http.Request) (reportQuery, bool) {
	qs := r.URL.Query()

	agreementID, err := uuid.Parse(qs.Get("agreementId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "agreementId must be a UUID")
		return reportQuery{}, false
	}

	p, err := period.NewPeriods(qs.Get("startDate"), qs.Get("endDate"), qs.Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return reportQuery{}, false
	}

	pubMonths, err := period.SpecMonths(qs.Get("pubPeriod"), h.defaultPubMonths)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid pubPeriod parameter")
		return reportQuery{}, false
	}

	return reportQuery{
		agreementID: agreementID,
		periods:     p,
		pubMonths:   pubMonths,
		csv:         qs.Get("csv") == "true",
	}, true
}

// writeReportError maps aggregation errors to HTTP responses. Malformed
// range text in stored rows aborts the report with a 400 so the bad data is
// surfaced rather than silently skipped.
func writeReportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, period.ErrInvalidSpan), errors.Is(err, period.ErrMalformedRange):
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to compute report")
	}
}

func (h *reportsHandler) observe(reportType, status string, rows int, d time.Duration) {
	if h.metrics != nil {
		h.metrics.ObserveReport(reportType, status, rows, d)
	}
}

// writeCSV renders a report through render and sends it as a CSV attachment.
func writeCSV(w http.ResponseWriter, filename string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to render CSV")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// UseOverTime handles GET /eusage/reports/use-over-time.
func (h *reportsHandler) UseOverTime(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	start := time.Now()

	rows, err := h.rows.UsageRows(r.Context(), q.agreementID, q.periods.StartDate, q.periods.EndDate)
	if err != nil {
		h.observe("use-over-time", "error", 0, 0)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to query usage data")
		return
	}

	rep, err := report.UseOverTimeReport(rows, q.periods)
	if err != nil {
		h.observe("use-over-time", "error", 0, 0)
		writeReportError(w, err)
		return
	}
	h.observe("use-over-time", "ok", len(rows), time.Since(start))

	if q.csv {
		writeCSV(w, "use-over-time.csv", func(buf *bytes.Buffer) error {
			return export.UseOverTimeCSV(buf, rep)
		})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ReqsByDateOfUse handles GET /eusage/reports/reqs-by-date-of-use.
func (h *reportsHandler) ReqsByDateOfUse(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	start := time.Now()

	rows, err := h.rows.UsageRows(r.Context(), q.agreementID, q.periods.StartDate, q.periods.EndDate)
	if err != nil {
		h.observe("reqs-by-date-of-use", "error", 0, 0)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to query usage data")
		return
	}

	rep, err := report.ReqsByDateOfUseReport(rows, q.periods, q.pubMonths)
	if err != nil {
		h.observe("reqs-by-date-of-use", "error", 0, 0)
		writeReportError(w, err)
		return
	}
	h.observe("reqs-by-date-of-use", "ok", len(rows), time.Since(start))

	if q.csv {
		writeCSV(w, "reqs-by-date-of-use.csv", func(buf *bytes.Buffer) error {
			return export.ReqsByDateOfUseCSV(buf, rep)
		})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ReqsByPubYear handles GET /eusage/reports/reqs-by-pub-year.
func (h *reportsHandler) ReqsByPubYear(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	start := time.Now()

	rows, err := h.rows.UsageRows(r.Context(), q.agreementID, q.periods.StartDate, q.periods.EndDate)
	if err != nil {
		h.observe("reqs-by-pub-year", "error", 0, 0)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to query usage data")
		return
	}

	rep, err := report.ReqsByPubYearReport(rows, q.periods, q.pubMonths)
	if err != nil {
		h.observe("reqs-by-pub-year", "error", 0, 0)
		writeReportError(w, err)
		return
	}
	h.observe("reqs-by-pub-year", "ok", len(rows), time.Since(start))

	if q.csv {
		writeCSV(w, "reqs-by-pub-year.csv", func(buf *bytes.Buffer) error {
			return export.ReqsByPubYearCSV(buf, rep)
		})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// CostPerUse handles GET /eusage/reports/cost-per-use.
func (h *reportsHandler) CostPerUse(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	start := time.Now()

	rows, err := h.rows.CostRows(r.Context(), q.agreementID, q.periods.StartDate, q.periods.EndDate)
	if err != nil {
		h.observe("cost-per-use", "error", 0, 0)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to query cost data")
		return
	}

	rep, err := report.CostPerUseReport(rows, q.periods, q.pubMonths)
	if err != nil {
		h.observe("cost-per-use", "error", 0, 0)
		writeReportError(w, err)
		return
	}
	h.observe("cost-per-use", "ok", len(rows), time.Since(start))

	if q.csv {
		writeCSV(w, "cost-per-use.csv", func(buf *bytes.Buffer) error {
			return export.CostPerUseCSV(buf, rep)
		})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
