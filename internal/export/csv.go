// Package export renders report values to CSV. It only walks the reports'
// public fields; all aggregation happens in the report package.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/julianladisch/eusage-reports/internal/report"
)

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// writeCountItems writes the shared count-report shape: one row per item,
// its per-period counts aligned with the period labels, and a totals row.
func writeCountItems(w *csv.Writer, labels []string, items []*report.UsageItem,
	dimHeader string, dim func(*report.UsageItem) string,
	totalByPeriod []int64, grandTotal int64) error {

	header := []string{"Title", "Print ISSN", "Online ISSN", "ISBN", "Access Type", "Metric Type"}
	if dimHeader != "" {
		header = append(header, dimHeader)
	}
	header = append(header, "Reporting Period Total")
	header = append(header, labels...)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, it := range items {
		row := []string{it.Title, it.PrintISSN, it.OnlineISSN, it.ISBN, it.AccessType, it.MetricType}
		if dimHeader != "" {
			row = append(row, dim(it))
		}
		row = append(row, formatInt(it.AccessCountTotal))
		for _, c := range it.AccessCountsByPeriod {
			row = append(row, formatInt(c))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	totals := []string{"Totals", "", "", "", "", report.MetricTotalRequests}
	if dimHeader != "" {
		totals = append(totals, "")
	}
	totals = append(totals, formatInt(grandTotal))
	for _, c := range totalByPeriod {
		totals = append(totals, formatInt(c))
	}
	return w.Write(totals)
}

// UseOverTimeCSV renders the use-over-time report.
func UseOverTimeCSV(out io.Writer, r *report.UseOverTime) error {
	w := csv.NewWriter(out)
	if err := writeCountItems(w, r.AccessCountPeriods, r.Items, "", nil,
		r.TotalItemRequestsByPeriod, r.TotalItemRequestsTotal); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// ReqsByDateOfUseCSV renders the requests-by-date-of-use report.
func ReqsByDateOfUseCSV(out io.Writer, r *report.ReqsByDateOfUse) error {
	w := csv.NewWriter(out)
	if err := writeCountItems(w, r.AccessCountPeriods, r.Items,
		"Publication Year", func(it *report.UsageItem) string { return it.PublicationYear },
		r.TotalItemRequestsByPeriod, r.TotalItemRequestsTotal); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// ReqsByPubYearCSV renders the requests-by-publication-year report.
func ReqsByPubYearCSV(out io.Writer, r *report.ReqsByPubYear) error {
	w := csv.NewWriter(out)
	if err := writeCountItems(w, r.AccessCountPeriods, r.Items,
		"Period of Use", func(it *report.UsageItem) string { return it.PeriodOfUse },
		r.TotalItemRequestsByPeriod, r.TotalItemRequestsTotal); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// CostPerUseCSV renders the cost-per-use report.
func CostPerUseCSV(out io.Writer, r *report.CostPerUse) error {
	w := csv.NewWriter(out)

	header := []string{
		"Title", "Print ISSN", "Online ISSN", "ISBN", "Order Type",
		"PO Line", "Invoice", "Publication Year",
		"Amount Encumbered", "Amount Paid",
		"Total Requests", "Unique Requests",
		"Cost per Total Request", "Cost per Unique Request",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, it := range r.Items {
		row := []string{
			it.Title, it.PrintISSN, it.OnlineISSN, it.ISBN, it.OrderType,
			it.PoLineNumber, it.InvoiceNumber, it.PublicationYear,
			formatAmount(it.AmountEncumbered), formatAmount(it.AmountPaid),
			formatInt(it.TotalItemRequests), formatInt(it.UniqueItemRequests),
			formatAmount(it.CostPerTotalRequest), formatAmount(it.CostPerUniqueRequest),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	enc := r.AmountEncumberedTotal
	paid := r.AmountPaidTotal
	totals := []string{
		"Totals", "", "", "", "", "", "", "",
		formatAmount(&enc), formatAmount(&paid),
		formatInt(r.TotalItemRequestsTotal), formatInt(r.UniqueItemRequestsTotal),
		"", "",
	}
	if err := w.Write(totals); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
