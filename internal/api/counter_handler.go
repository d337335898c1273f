package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/julianladisch/eusage-reports/internal/metrics"
	"github.com/julianladisch/eusage-reports/internal/period"
	"github.com/julianladisch/eusage-reports/internal/usage"
)

// Recorder accepts validated COUNTER records for buffered ingest.
type Recorder interface {
	Record(recs ...usage.CounterRecord)
	BufferLen() int
}

// counterHandler serves the COUNTER-data ingest endpoint.
type counterHandler struct {
	ingest  Recorder
	metrics *metrics.Metrics
}

func newCounterHandler(ingest Recorder, m *metrics.Metrics) *counterHandler {
	return &counterHandler{ingest: ingest, metrics: m}
}

type counterDataRequest struct {
	Records []usage.CounterRecord `json:"records"`
}

type counterDataResponse struct {
	Accepted int `json:"accepted"`
	Buffered int `json:"buffered"`
}

// PostCounterData handles POST /eusage/counter-data. Records are validated
// up front and either all accepted or all rejected.
func (h *counterHandler) PostCounterData(w http.ResponseWriter, r *http.Request) {
	var req counterDataRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "failed to parse request body")
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_params", "records must not be empty")
		return
	}

	for i, rec := range req.Records {
		if rec.KBTitleID == uuid.Nil {
			writeError(w, http.StatusBadRequest, "invalid_params",
				fmt.Sprintf("records[%d]: kbTitleId is required", i))
			return
		}
		if _, err := period.ParseDateRange(rec.UsageDateRange); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_params",
				fmt.Sprintf("records[%d]: bad usageDateRange %q", i, rec.UsageDateRange))
			return
		}
		if rec.TotalAccessCount < 0 || rec.UniqueAccessCount < 0 {
			writeError(w, http.StatusBadRequest, "invalid_params",
				fmt.Sprintf("records[%d]: access counts must not be negative", i))
			return
		}
	}

	h.ingest.Record(req.Records...)

	buffered := h.ingest.BufferLen()
	if h.metrics != nil {
		h.metrics.CollectorRecordsTotal.Add(float64(len(req.Records)))
		h.metrics.CollectorBufferSize.Set(float64(buffered))
	}

	writeJSON(w, http.StatusAccepted, counterDataResponse{
		Accepted: len(req.Records),
		Buffered: buffered,
	})
}
