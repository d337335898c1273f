package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/julianladisch/eusage-reports/internal/report"
)

var titleA = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func f(v float64) *float64 { return &v }

func TestUseOverTimeCSV(t *testing.T) {
	r := &report.UseOverTime{
		AccessCountPeriods:        []string{"2020-01", "2020-02"},
		TotalItemRequestsTotal:    12,
		TotalItemRequestsByPeriod: []int64{10, 2},
		Items: []*report.UsageItem{
			{
				KBTitleID:            titleA,
				Title:                "Annals of Botany",
				PrintISSN:            "0305-7364",
				AccessType:           report.AccessTypeControlled,
				MetricType:           report.MetricTotalRequests,
				AccessCountTotal:     12,
				AccessCountsByPeriod: []int64{10, 2},
			},
		},
	}

	var buf strings.Builder
	if err := UseOverTimeCSV(&buf, r); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header, one item and totals, got %d rows", len(records))
	}

	header := records[0]
	if header[len(header)-2] != "2020-01" || header[len(header)-1] != "2020-02" {
		t.Errorf("header missing period labels: %v", header)
	}
	item := records[1]
	if item[0] != "Annals of Botany" || item[len(item)-2] != "10" || item[len(item)-1] != "2" {
		t.Errorf("unexpected item row: %v", item)
	}
	totals := records[2]
	if totals[0] != "Totals" || totals[len(totals)-2] != "10" {
		t.Errorf("unexpected totals row: %v", totals)
	}
}

func TestCostPerUseCSV(t *testing.T) {
	r := &report.CostPerUse{
		AccessCountPeriods:      []string{"2020"},
		AmountEncumberedTotal:   1200,
		AmountPaidTotal:         1100.5,
		TotalItemRequestsTotal:  8,
		UniqueItemRequestsTotal: 8,
		Items: []*report.CostPerUseItem{
			{
				KBTitleID:           titleA,
				Title:               "Annals of Botany",
				PoLineNumber:        "POL-1",
				PublicationYear:     "2005",
				AmountEncumbered:    f(600),
				AmountPaid:          f(550.25),
				TotalItemRequests:   8,
				UniqueItemRequests:  8,
				CostPerTotalRequest: f(68.78),
			},
		},
	}

	var buf strings.Builder
	if err := CostPerUseCSV(&buf, r); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header, one item and totals, got %d rows", len(records))
	}

	item := records[1]
	if item[8] != "600.00" || item[9] != "550.25" || item[12] != "68.78" {
		t.Errorf("unexpected amounts in item row: %v", item)
	}
	// Absent cost-per-unique renders empty, not zero.
	if item[13] != "" {
		t.Errorf("expected empty cost per unique request, got %q", item[13])
	}
	totals := records[2]
	if totals[8] != "1200.00" || totals[9] != "1100.50" {
		t.Errorf("unexpected totals row: %v", totals)
	}
}
