// Package usage provides the Postgres row store and the COUNTER-data ingest
// path feeding the report aggregation engine.
package usage

import (
	"time"

	"github.com/google/uuid"
)

// Title is one knowledge-base title known to the reporting backend.
type Title struct {
	KBTitleID       uuid.UUID  `json:"kbTitleId"`
	KBPackageID     *uuid.UUID `json:"kbPackageId,omitempty"`
	Title           string     `json:"title"`
	PrintISSN       string     `json:"printISSN,omitempty"`
	OnlineISSN      string     `json:"onlineISSN,omitempty"`
	ISBN            string     `json:"ISBN,omitempty"`
	PublicationDate *time.Time `json:"publicationDate,omitempty"`
	OpenAccess      bool       `json:"openAccess"`
}

// AgreementEntry is one purchase line of an agreement: the cost side of the
// cost-per-use report. Range fields carry Postgres daterange text and are
// empty when absent.
type AgreementEntry struct {
	ID                    uuid.UUID  `json:"id"`
	AgreementID           uuid.UUID  `json:"agreementId"`
	KBTitleID             uuid.UUID  `json:"kbTitleId"`
	KBPackageID           *uuid.UUID `json:"kbPackageId,omitempty"`
	PoLineNumber          string     `json:"poLineNumber,omitempty"`
	InvoiceNumber         string     `json:"invoiceNumber,omitempty"`
	OrderType             string     `json:"orderType,omitempty"`
	FiscalYearRange       string     `json:"fiscalYearRange,omitempty"`
	SubscriptionDateRange string     `json:"subscriptionDateRange,omitempty"`
	EncumberedCost        *float64   `json:"encumberedCost,omitempty"`
	InvoicedCost          *float64   `json:"invoicedCost,omitempty"`
}

// CounterRecord is one ingested COUNTER usage measurement for a title.
type CounterRecord struct {
	KBTitleID         uuid.UUID `json:"kbTitleId"`
	UsageDateRange    string    `json:"usageDateRange"`
	TotalAccessCount  int64     `json:"totalAccessCount"`
	UniqueAccessCount int64     `json:"uniqueAccessCount"`
}
