// Package report builds time-bucketed usage and cost-per-use reports from
// flat per-title rows. All computation is in-memory and deterministic: each
// call consumes a fully materialized row set and a period schedule and
// returns a fresh report value.
package report

import (
	"time"

	"github.com/google/uuid"
)

// Metric type labels emitted on report items.
const (
	MetricTotalRequests  = "Total_Item_Requests"
	MetricUniqueRequests = "Unique_Item_Requests"
)

// Access type labels derived from a row's open-access flag.
const (
	AccessTypeOAGold     = "OA_Gold"
	AccessTypeControlled = "Controlled"
)

// noPublication is the internal publication-period label for rows without a
// publication date. It sorts after all year labels, so the unknown bucket
// lands last on a publication-period axis.
const noPublication = "nopub"

// UsageRow is one raw per-title usage record. UsageDateRange carries the
// range's Postgres text form ("[start,end)"); it is empty when the row has
// no usage attached.
type UsageRow struct {
	KBTitleID         uuid.UUID
	Title             string
	PrintISSN         string
	OnlineISSN        string
	ISBN              string
	OpenAccess        bool
	PublicationDate   *time.Time
	UsageDateRange    string
	TotalAccessCount  int64
	UniqueAccessCount int64
}

// CostRow is a usage row joined with its agreement-line cost fields. A nil
// KBPackageID means the line is already at title granularity. Both range
// fields carry Postgres range text and may be empty; a non-empty
// SubscriptionDateRange always takes precedence over FiscalYearRange.
type CostRow struct {
	UsageRow
	KBPackageID           *uuid.UUID
	PoLineNumber          string
	InvoiceNumber         string
	OrderType             string
	FiscalYearRange       string
	SubscriptionDateRange string
	EncumberedCost        *float64
	InvoicedCost          *float64
}

// accessType maps the open-access flag to its report label.
func (r UsageRow) accessType() string {
	if r.OpenAccess {
		return AccessTypeOAGold
	}
	return AccessTypeControlled
}

// publicationDateText returns the raw publication date used in dedup keys,
// empty when unknown.
func (r UsageRow) publicationDateText() string {
	if r.PublicationDate == nil {
		return ""
	}
	return r.PublicationDate.Format("2006-01-02")
}
