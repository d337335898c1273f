package report

import (
	"math"

	"github.com/google/uuid"
)

// UsageItem is one aggregated output row of a count report: a title plus its
// grouping dimensions, with per-period counts aligned to the report's
// accessCountPeriods labels.
type UsageItem struct {
	KBTitleID            uuid.UUID `json:"kbTitleId"`
	Title                string    `json:"title"`
	PrintISSN            string    `json:"printISSN,omitempty"`
	OnlineISSN           string    `json:"onlineISSN,omitempty"`
	ISBN                 string    `json:"ISBN,omitempty"`
	AccessType           string    `json:"accessType"`
	MetricType           string    `json:"metricType"`
	PublicationYear      string    `json:"publicationYear,omitempty"`
	PeriodOfUse          string    `json:"periodOfUse,omitempty"`
	AccessCountTotal     int64     `json:"accessCountTotal"`
	AccessCountsByPeriod []int64   `json:"accessCountsByPeriod"`
}

// UseOverTime is the "use over time" report: requests per title per usage
// period.
type UseOverTime struct {
	AccessCountPeriods         []string     `json:"accessCountPeriods"`
	TotalItemRequestsTotal     int64        `json:"totalItemRequestsTotal"`
	UniqueItemRequestsTotal    int64        `json:"uniqueItemRequestsTotal"`
	TotalItemRequestsByPeriod  []int64      `json:"totalItemRequestsByPeriod"`
	UniqueItemRequestsByPeriod []int64      `json:"uniqueItemRequestsByPeriod"`
	Items                      []*UsageItem `json:"items"`
}

// ReqsByDateOfUse buckets requests by usage period and groups items by the
// publication period of the material used. The cross-tab slices hold, per
// usage period, the request counts keyed by publication-period label.
type ReqsByDateOfUse struct {
	AccessCountPeriods                     []string           `json:"accessCountPeriods"`
	TotalItemRequestsTotal                 int64              `json:"totalItemRequestsTotal"`
	UniqueItemRequestsTotal                int64              `json:"uniqueItemRequestsTotal"`
	TotalItemRequestsByPeriod              []int64            `json:"totalItemRequestsByPeriod"`
	UniqueItemRequestsByPeriod             []int64            `json:"uniqueItemRequestsByPeriod"`
	TotalRequestsPublicationYearsByPeriod  []map[string]int64 `json:"totalRequestsPublicationYearsByPeriod"`
	UniqueRequestsPublicationYearsByPeriod []map[string]int64 `json:"uniqueRequestsPublicationYearsByPeriod"`
	Items                                  []*UsageItem       `json:"items"`
}

// ReqsByPubYear buckets requests by publication period (the axis is the
// sorted set of distinct publication-period labels found in the rows) and
// groups items by period of use.
type ReqsByPubYear struct {
	AccessCountPeriods                []string           `json:"accessCountPeriods"`
	TotalItemRequestsTotal            int64              `json:"totalItemRequestsTotal"`
	UniqueItemRequestsTotal           int64              `json:"uniqueItemRequestsTotal"`
	TotalItemRequestsByPeriod         []int64            `json:"totalItemRequestsByPeriod"`
	UniqueItemRequestsByPeriod        []int64            `json:"uniqueItemRequestsByPeriod"`
	TotalRequestsPeriodsOfUseByPeriod []map[string]int64 `json:"totalRequestsPeriodsOfUseByPeriod"`
	Items                             []*UsageItem       `json:"items"`
}

// CostPerUseItem is one aggregated output row of the cost-per-use report:
// a purchase line's share for one publication period of one title.
type CostPerUseItem struct {
	KBTitleID            uuid.UUID `json:"kbTitleId"`
	Title                string    `json:"title"`
	PrintISSN            string    `json:"printISSN,omitempty"`
	OnlineISSN           string    `json:"onlineISSN,omitempty"`
	ISBN                 string    `json:"ISBN,omitempty"`
	OrderType            string    `json:"orderType,omitempty"`
	PoLineNumber         string    `json:"poLineNumber,omitempty"`
	InvoiceNumber        string    `json:"invoiceNumber,omitempty"`
	PublicationYear      string    `json:"publicationYear,omitempty"`
	AmountEncumbered     *float64  `json:"amountEncumbered,omitempty"`
	AmountPaid           *float64  `json:"amountPaid,omitempty"`
	TotalItemRequests    int64     `json:"totalItemRequests"`
	UniqueItemRequests   int64     `json:"uniqueItemRequests"`
	CostPerTotalRequest  *float64  `json:"costPerTotalRequest,omitempty"`
	CostPerUniqueRequest *float64  `json:"costPerUniqueRequest,omitempty"`
}

// CostPerUse is the cost-per-use report: invoiced cost allocated to usage
// periods plus per-item encumbered/paid shares. Per-period cost-per-request
// entries are nil where the period has no requests.
type CostPerUse struct {
	AccessCountPeriods                []string          `json:"accessCountPeriods"`
	AmountEncumberedTotal             float64           `json:"amountEncumberedTotal"`
	AmountPaidTotal                   float64           `json:"amountPaidTotal"`
	TotalItemRequestsTotal            int64             `json:"totalItemRequestsTotal"`
	UniqueItemRequestsTotal           int64             `json:"uniqueItemRequestsTotal"`
	TotalItemRequestsByPeriod         []int64           `json:"totalItemRequestsByPeriod"`
	UniqueItemRequestsByPeriod        []int64           `json:"uniqueItemRequestsByPeriod"`
	CostByPeriod                      []float64         `json:"costByPeriod"`
	CostPerTotalItemRequestsByPeriod  []*float64        `json:"costPerTotalItemRequestsByPeriod"`
	CostPerUniqueItemRequestsByPeriod []*float64        `json:"costPerUniqueItemRequestsByPeriod"`
	Items                             []*CostPerUseItem `json:"items"`
}

// round2 rounds to two decimals, half away from zero. Amounts accumulate
// unrounded and are rounded once, at presentation.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round2p(v float64) *float64 {
	r := round2(v)
	return &r
}
