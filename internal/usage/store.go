package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/julianladisch/eusage-reports/internal/report"
)

// Store provides database operations for titles, agreement entries and
// COUNTER data.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UsageRows returns the flat usage rows for one agreement whose usage ranges
// overlap [from, to). Range columns travel in their Postgres text form; the
// aggregation engine parses and re-filters them.
func (s *Store) UsageRows(ctx context.Context, agreementID uuid.UUID, from, to time.Time) ([]report.UsageRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.kb_title_id, t.title, t.print_issn, t.online_issn, t.isbn,
			t.open_access, t.publication_date,
			c.usage_date_range::text, c.total_access_count, c.unique_access_count
		FROM agreement_entries e
		JOIN title_data t ON t.kb_title_id = e.kb_title_id
		JOIN counter_data c ON c.kb_title_id = t.kb_title_id
		WHERE e.agreement_id = $1
			AND c.usage_date_range && daterange($2::date, $3::date)
		ORDER BY t.title, c.usage_date_range`,
		agreementID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying usage rows: %w", err)
	}
	defer rows.Close()

	var out []report.UsageRow
	for rows.Next() {
		var r report.UsageRow
		if err := rows.Scan(
			&r.KBTitleID, &r.Title, &r.PrintISSN, &r.OnlineISSN, &r.ISBN,
			&r.OpenAccess, &r.PublicationDate,
			&r.UsageDateRange, &r.TotalAccessCount, &r.UniqueAccessCount,
		); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage rows: %w", err)
	}
	return out, nil
}

// CostRows returns the agreement's purchase lines joined with any overlapping
// COUNTER data. Lines without usage still appear (with empty usage fields) so
// their cost can be allocated.
func (s *Store) CostRows(ctx context.Context, agreementID uuid.UUID, from, to time.Time) ([]report.CostRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.kb_title_id, t.title, t.print_issn, t.online_issn, t.isbn,
			t.open_access, t.publication_date,
			c.usage_date_range::text, c.total_access_count, c.unique_access_count,
			e.kb_package_id, e.po_line_number, e.invoice_number, e.order_type,
			e.fiscal_year_range::text, e.subscription_date_range::text,
			e.encumbered_cost, e.invoiced_cost
		FROM agreement_entries e
		JOIN title_data t ON t.kb_title_id = e.kb_title_id
		LEFT JOIN counter_data c ON c.kb_title_id = t.kb_title_id
			AND c.usage_date_range && daterange($2::date, $3::date)
		WHERE e.agreement_id = $1
		ORDER BY t.title, c.usage_date_range`,
		agreementID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying cost rows: %w", err)
	}
	defer rows.Close()

	var out []report.CostRow
	for rows.Next() {
		var r report.CostRow
		var usageRange, fiscalRange, subRange *string
		var total, unique *int64
		var pkg uuid.NullUUID
		if err := rows.Scan(
			&r.KBTitleID, &r.Title, &r.PrintISSN, &r.OnlineISSN, &r.ISBN,
			&r.OpenAccess, &r.PublicationDate,
			&usageRange, &total, &unique,
			&pkg, &r.PoLineNumber, &r.InvoiceNumber, &r.OrderType,
			&fiscalRange, &subRange,
			&r.EncumberedCost, &r.InvoicedCost,
		); err != nil {
			return nil, fmt.Errorf("scanning cost row: %w", err)
		}
		r.UsageDateRange = deref(usageRange)
		r.FiscalYearRange = deref(fiscalRange)
		r.SubscriptionDateRange = deref(subRange)
		if total != nil {
			r.TotalAccessCount = *total
		}
		if unique != nil {
			r.UniqueAccessCount = *unique
		}
		if pkg.Valid {
			id := pkg.UUID
			r.KBPackageID = &id
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cost rows: %w", err)
	}
	return out, nil
}

// BatchInsert writes a slice of COUNTER records in a single multi-row INSERT.
// It is a no-op when recs is empty.
func (s *Store) BatchInsert(ctx context.Context, recs []CounterRecord) error {
	if len(recs) == 0 {
		return nil
	}

	const cols = 4
	args := make([]any, 0, len(recs)*cols)
	values := make([]string, 0, len(recs))

	for i, rec := range recs {
		base := i * cols
		values = append(values, fmt.Sprintf(
			"($%d, $%d::daterange, $%d, $%d)",
			base+1, base+2, base+3, base+4,
		))
		args = append(args,
			rec.KBTitleID,
			rec.UsageDateRange,
			rec.TotalAccessCount,
			rec.UniqueAccessCount,
		)
	}

	query := `INSERT INTO counter_data
		(kb_title_id, usage_date_range, total_access_count, unique_access_count)
		VALUES ` + strings.Join(values, ", ")

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("batch inserting counter data: %w", err)
	}
	return nil
}

// UpsertTitle inserts a title or updates its descriptive fields.
func (s *Store) UpsertTitle(ctx context.Context, t Title) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO title_data
			(kb_title_id, kb_package_id, title, print_issn, online_issn, isbn,
			 publication_date, open_access)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (kb_title_id) DO UPDATE SET
			kb_package_id = EXCLUDED.kb_package_id,
			title = EXCLUDED.title,
			print_issn = EXCLUDED.print_issn,
			online_issn = EXCLUDED.online_issn,
			isbn = EXCLUDED.isbn,
			publication_date = EXCLUDED.publication_date,
			open_access = EXCLUDED.open_access`,
		t.KBTitleID, t.KBPackageID, t.Title, t.PrintISSN, t.OnlineISSN, t.ISBN,
		t.PublicationDate, t.OpenAccess)
	if err != nil {
		return fmt.Errorf("upserting title %s: %w", t.KBTitleID, err)
	}
	return nil
}

// InsertAgreementEntry stores one purchase line. Empty range texts become
// NULL ranges.
func (s *Store) InsertAgreementEntry(ctx context.Context, e AgreementEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agreement_entries
			(id, agreement_id, kb_title_id, kb_package_id, po_line_number,
			 invoice_number, order_type, fiscal_year_range,
			 subscription_date_range, encumbered_cost, invoiced_cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			NULLIF($8, '')::daterange, NULLIF($9, '')::daterange, $10, $11)`,
		e.ID, e.AgreementID, e.KBTitleID, e.KBPackageID, e.PoLineNumber,
		e.InvoiceNumber, e.OrderType, e.FiscalYearRange,
		e.SubscriptionDateRange, e.EncumberedCost, e.InvoicedCost)
	if err != nil {
		return fmt.Errorf("inserting agreement entry %s: %w", e.ID, err)
	}
	return nil
}

// Ping checks database connectivity for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
