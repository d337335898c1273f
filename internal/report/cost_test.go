package report

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianladisch/eusage-reports/internal/period"
)

var packageP = uuid.MustParse("99999999-9999-9999-9999-999999999999")

func yearSchedule(t *testing.T) *period.Periods {
	t.Helper()
	p, err := period.NewPeriods("2020-01-01", "2020-12-31", "1Y")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func costRow(id uuid.UUID, title string, pub *time.Time) CostRow {
	return CostRow{
		UsageRow: UsageRow{
			KBTitleID:       id,
			Title:           title,
			PublicationDate: pub,
		},
		PoLineNumber:  "POL-1",
		InvoiceNumber: "INV-1",
		OrderType:     "Ongoing",
	}
}

func f(v float64) *float64 { return &v }

func TestCostPerUse_PackageCostSharedAcrossTitles(t *testing.T) {
	p := yearSchedule(t)

	a := costRow(titleA, "Annals of Botany", datePtr(2005, 1, 1))
	a.KBPackageID = &packageP
	a.FiscalYearRange = "[2020-01-01,2021-01-01)"
	a.EncumberedCost = f(1200)

	b := costRow(titleB, "Brain", datePtr(2010, 1, 1))
	b.KBPackageID = &packageP
	b.FiscalYearRange = "[2020-01-01,2021-01-01)"
	b.EncumberedCost = f(1200)

	r, err := CostPerUseReport([]CostRow{a, b}, p, 12)
	if err != nil {
		t.Fatal(err)
	}

	if len(r.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(r.Items))
	}
	for _, it := range r.Items {
		if it.AmountEncumbered == nil || *it.AmountEncumbered != 600.00 {
			t.Errorf("item %q AmountEncumbered = %v, want 600.00", it.Title, it.AmountEncumbered)
		}
	}
	if r.AmountEncumberedTotal != 1200.00 {
		t.Errorf("AmountEncumberedTotal = %v, want 1200.00", r.AmountEncumberedTotal)
	}
}

func TestCostPerUse_CostPerRequestTracksCumulativeCounts(t *testing.T) {
	p, err := period.NewPeriods("2020-01-01", "2020-12-31", "1M")
	if err != nil {
		t.Fatal(err)
	}

	base := costRow(titleA, "Annals of Botany", datePtr(2005, 1, 1))
	base.SubscriptionDateRange = "[2020-01-01,2021-01-01)"
	base.InvoicedCost = f(100)

	first := base
	first.UsageDateRange = "[2020-01-01,2020-02-01)"
	first.TotalAccessCount = 5
	first.UniqueAccessCount = 5

	// One row alone: 100 paid / 5 requests.
	r, err := CostPerUseReport([]CostRow{first}, p, 12)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Items[0].CostPerTotalRequest; got == nil || *got != 20.00 {
		t.Errorf("CostPerTotalRequest = %v, want 20.00", got)
	}

	// A second row for the same pay key adds requests but not money.
	second := base
	second.UsageDateRange = "[2020-02-01,2020-03-01)"
	second.TotalAccessCount = 3
	second.UniqueAccessCount = 3

	r, err = CostPerUseReport([]CostRow{first, second}, p, 12)
	if err != nil {
		t.Fatal(err)
	}
	it := r.Items[0]
	if it.TotalItemRequests != 8 {
		t.Errorf("TotalItemRequests = %d, want 8", it.TotalItemRequests)
	}
	if it.CostPerTotalRequest == nil || *it.CostPerTotalRequest != 12.50 {
		t.Errorf("CostPerTotalRequest = %v, want 12.50", it.CostPerTotalRequest)
	}
	if it.AmountPaid == nil || *it.AmountPaid != 100.00 {
		t.Errorf("AmountPaid = %v, want 100.00 (not re-added per row)", it.AmountPaid)
	}
}

func TestCostPerUse_SubscriptionRangeOverridesFiscalYear(t *testing.T) {
	p := yearSchedule(t)

	row := costRow(titleA, "Annals of Botany", datePtr(2005, 1, 1))
	row.FiscalYearRange = "[2020-01-01,2021-01-01)"
	row.SubscriptionDateRange = "[2020-07-01,2021-07-01)"
	row.InvoicedCost = f(120)

	r, err := CostPerUseReport([]CostRow{row}, p, 12)
	if err != nil {
		t.Fatal(err)
	}
	// Only 6 of the 12 subscription months fall inside the report span.
	if got := r.Items[0].AmountPaid; got == nil || *got != 60.00 {
		t.Errorf("AmountPaid = %v, want 60.00", got)
	}
}

func TestCostPerUse_RowsOutsideReportWindowSkipped(t *testing.T) {
	p := yearSchedule(t)

	row := costRow(titleA, "Annals of Botany", datePtr(2005, 1, 1))
	row.FiscalYearRange = "[2018-01-01,2019-01-01)"
	row.InvoicedCost = f(120)

	noRange := costRow(titleB, "Brain", datePtr(2010, 1, 1))
	noRange.InvoicedCost = f(99)

	r, err := CostPerUseReport([]CostRow{row, noRange}, p, 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0", len(r.Items))
	}
	if r.AmountPaidTotal != 0 {
		t.Errorf("AmountPaidTotal = %v, want 0", r.AmountPaidTotal)
	}
}

func TestCostPerUse_PeriodCostCountsPackageOnce(t *testing.T) {
	p, err := period.NewPeriods("2020-01-01", "2020-12-31", "1M")
	if err != nil {
		t.Fatal(err)
	}

	a := costRow(titleA, "Annals of Botany", datePtr(2005, 1, 1))
	a.KBPackageID = &packageP
	a.FiscalYearRange = "[2020-01-01,2021-01-01)"
	a.InvoicedCost = f(120)
	a.UsageDateRange = "[2020-01-01,2020-02-01)"
	a.TotalAccessCount = 2
	a.UniqueAccessCount = 2

	b := costRow(titleB, "Brain", datePtr(2010, 1, 1))
	b.KBPackageID = &packageP
	b.FiscalYearRange = "[2020-01-01,2021-01-01)"
	b.InvoicedCost = f(120)
	b.UsageDateRange = "[2020-01-01,2020-02-01)"
	b.TotalAccessCount = 3
	b.UniqueAccessCount = 3

	r, err := CostPerUseReport([]CostRow{a, b}, p, 12)
	if err != nil {
		t.Fatal(err)
	}

	// Both rows share the package in January: one month of the yearly
	// invoice, counted once.
	if r.CostByPeriod[0] != 10.00 {
		t.Errorf("CostByPeriod[0] = %v, want 10.00", r.CostByPeriod[0])
	}
	if got := r.CostPerTotalItemRequestsByPeriod[0]; got == nil || *got != 2.00 {
		t.Errorf("CostPerTotalItemRequestsByPeriod[0] = %v, want 2.00", got)
	}
	if r.CostPerTotalItemRequestsByPeriod[1] != nil {
		t.Errorf("period without requests should have nil cost-per-request")
	}
}

func TestCostPerUse_UnknownPublicationDroppedAfterKnown(t *testing.T) {
	p := yearSchedule(t)

	known := costRow(titleA, "Annals of Botany", datePtr(2005, 1, 1))
	known.FiscalYearRange = "[2020-01-01,2021-01-01)"
	known.InvoicedCost = f(120)
	known.UsageDateRange = "[2020-01-01,2020-02-01)"
	known.TotalAccessCount = 5
	known.UniqueAccessCount = 5

	unknown := costRow(titleA, "Annals of Botany", nil)
	unknown.FiscalYearRange = "[2020-01-01,2021-01-01)"
	unknown.InvoicedCost = f(120)
	unknown.UsageDateRange = "[2020-02-01,2020-03-01)"
	unknown.TotalAccessCount = 7
	unknown.UniqueAccessCount = 7

	r, err := CostPerUseReport([]CostRow{known, unknown}, p, 12)
	if err != nil {
		t.Fatal(err)
	}

	// The no-publication row shares the pay key with a known publication
	// period and is dropped in pass 1; only the known row contributes.
	if len(r.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(r.Items))
	}
	if r.Items[0].TotalItemRequests != 5 {
		t.Errorf("TotalItemRequests = %d, want 5", r.Items[0].TotalItemRequests)
	}
	if r.TotalItemRequestsTotal != 5 {
		t.Errorf("TotalItemRequestsTotal = %d, want 5", r.TotalItemRequestsTotal)
	}
}

func TestCostPerUse_MalformedSubscriptionRangeAborts(t *testing.T) {
	p := yearSchedule(t)
	row := costRow(titleA, "Annals of Botany", datePtr(2005, 1, 1))
	row.FiscalYearRange = "2020 to 2021"

	if _, err := CostPerUseReport([]CostRow{row}, p, 12); err == nil {
		t.Fatal("expected error for malformed fiscal year range")
	}
}
