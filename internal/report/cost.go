package report

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/julianladisch/eusage-reports/internal/period"
)

// payKey identifies a single purchase/subscription line. Cost figures are
// recorded at most once per (payKey, publication period), however many usage
// rows repeat them.
type payKey struct {
	titleID     uuid.UUID
	poLine      string
	fiscalRange string
	subRange    string
}

// costItemKey identifies one cost-per-use output item.
type costItemKey struct {
	pay       payKey
	pubPeriod string
}

// periodCostKey deduplicates per-period invoiced cost: a package's (or
// standalone title's) cost counts once per period regardless of how many of
// its rows land there.
type periodCostKey struct {
	idx   int
	owner uuid.UUID
}

// subscriptionRange resolves the range the row's cost applies to. A
// subscription date range always takes precedence over a fiscal year range;
// rows with neither carry no allocatable cost.
func (r CostRow) subscriptionRange() string {
	if r.SubscriptionDateRange != "" {
		return r.SubscriptionDateRange
	}
	return r.FiscalYearRange
}

// putIfAbsent records v under k unless k is already present. First value
// wins; the return reports whether v was stored.
func putIfAbsent[K comparable](m map[K]float64, k K, v float64) bool {
	if _, ok := m[k]; ok {
		return false
	}
	m[k] = v
	return true
}

// CostPerUseReport allocates agreement-line costs across the schedule's
// periods and the titles sharing each purchase, and relates them to request
// counts.
//
// Two passes: the first discovers, per pay key, the set of publication
// periods billed under it (and the titles bundled in each package); the
// second allocates amounts proportionally to month overlap between the
// subscription range, the report span, and each usage period.
func CostPerUseReport(rows []CostRow, p *period.Periods, pubMonths int) (*CostPerUse, error) {
	// Pass 1: cardinality discovery.
	labelsByPay := map[payKey]map[string]struct{}{}
	packageTitles := map[uuid.UUID]map[uuid.UUID]struct{}{}
	for _, r := range rows {
		if r.subscriptionRange() == "" {
			continue
		}
		pk := payKey{r.KBTitleID, r.PoLineNumber, r.FiscalYearRange, r.SubscriptionDateRange}
		label := pubPeriodLabel(r.PublicationDate, pubMonths)
		set := labelsByPay[pk]
		if set == nil {
			set = map[string]struct{}{}
			labelsByPay[pk] = set
		}
		// A row without a publication date is dropped once the pay key has
		// recorded any publication period: it cannot be told apart from the
		// periods already billed under the same line.
		if label == noPublication && len(set) > 0 {
			continue
		}
		set[label] = struct{}{}

		if r.KBPackageID != nil {
			titles := packageTitles[*r.KBPackageID]
			if titles == nil {
				titles = map[uuid.UUID]struct{}{}
				packageTitles[*r.KBPackageID] = titles
			}
			titles[r.KBTitleID] = struct{}{}
		}
	}

	// Pass 2: allocation.
	n := p.N()
	out := &CostPerUse{
		AccessCountPeriods:                p.Labels(),
		TotalItemRequestsByPeriod:         make([]int64, n),
		UniqueItemRequestsByPeriod:        make([]int64, n),
		CostByPeriod:                      make([]float64, n),
		CostPerTotalItemRequestsByPeriod:  make([]*float64, n),
		CostPerUniqueItemRequestsByPeriod: make([]*float64, n),
	}
	reportRange := p.Range()
	encByItem := map[costItemKey]float64{}
	paidByItem := map[costItemKey]float64{}
	periodPaid := map[periodCostKey]float64{}
	items := map[costItemKey]*CostPerUseItem{}
	order := []*CostPerUseItem{}

	for _, r := range rows {
		subText := r.subscriptionRange()
		if subText == "" {
			continue
		}
		sub, err := period.ParseDateRange(subText)
		if err != nil {
			return nil, fmt.Errorf("subscription range for title %s: %w", r.KBTitleID, err)
		}

		pk := payKey{r.KBTitleID, r.PoLineNumber, r.FiscalYearRange, r.SubscriptionDateRange}
		label := pubPeriodLabel(r.PublicationDate, pubMonths)
		if _, ok := labelsByPay[pk][label]; !ok {
			continue
		}

		allPeriodsMonths := sub.OverlapMonths(reportRange)
		if allPeriodsMonths <= 0 {
			continue
		}
		subMonths := sub.MonthSpan()

		titlesDivide := len(labelsByPay[pk])
		if r.KBPackageID != nil {
			titlesDivide *= len(packageTitles[*r.KBPackageID])
		}

		ik := costItemKey{pay: pk, pubPeriod: label}
		it := items[ik]
		if it == nil {
			it = &CostPerUseItem{
				KBTitleID:       r.KBTitleID,
				Title:           r.Title,
				PrintISSN:       r.PrintISSN,
				OnlineISSN:      r.OnlineISSN,
				ISBN:            r.ISBN,
				OrderType:       r.OrderType,
				PoLineNumber:    r.PoLineNumber,
				InvoiceNumber:   r.InvoiceNumber,
				PublicationYear: displayPubYear(label),
			}
			items[ik] = it
			order = append(order, it)
		}

		if r.EncumberedCost != nil {
			putIfAbsent(encByItem, ik,
				float64(allPeriodsMonths)**r.EncumberedCost/float64(subMonths)/float64(titlesDivide))
		}
		if r.InvoicedCost != nil {
			putIfAbsent(paidByItem, ik,
				float64(allPeriodsMonths)**r.InvoicedCost/float64(subMonths)/float64(titlesDivide))
		}

		if r.UsageDateRange != "" {
			usage, err := period.ParseDateRange(r.UsageDateRange)
			if err != nil {
				return nil, fmt.Errorf("usage range for title %s: %w", r.KBTitleID, err)
			}
			if idx, ok := p.Index(usage.Start); ok {
				out.TotalItemRequestsByPeriod[idx] += r.TotalAccessCount
				out.UniqueItemRequestsByPeriod[idx] += r.UniqueAccessCount

				thisPeriodMonths := sub.OverlapMonths(p.PeriodRange(idx))
				if thisPeriodMonths > 0 && r.InvoicedCost != nil {
					owner := r.KBTitleID
					if r.KBPackageID != nil {
						owner = *r.KBPackageID
					}
					putIfAbsent(periodPaid, periodCostKey{idx: idx, owner: owner},
						float64(thisPeriodMonths)**r.InvoicedCost/float64(subMonths))
				}

				// Counts are summed across every matching row; cost-per-request
				// tracks the latest cumulative counts.
				it.TotalItemRequests += r.TotalAccessCount
				it.UniqueItemRequests += r.UniqueAccessCount
				if paid, ok := paidByItem[ik]; ok {
					if it.TotalItemRequests > 0 {
						it.CostPerTotalRequest = round2p(paid / float64(it.TotalItemRequests))
					}
					if it.UniqueItemRequests > 0 {
						it.CostPerUniqueRequest = round2p(paid / float64(it.UniqueItemRequests))
					}
				}
			}
		}
	}

	// Finalization.
	periodCost := make([]float64, n)
	for k, v := range periodPaid {
		periodCost[k.idx] += v
	}
	for i := 0; i < n; i++ {
		out.CostByPeriod[i] = round2(periodCost[i])
		if out.TotalItemRequestsByPeriod[i] > 0 {
			out.CostPerTotalItemRequestsByPeriod[i] = round2p(periodCost[i] / float64(out.TotalItemRequestsByPeriod[i]))
		}
		if out.UniqueItemRequestsByPeriod[i] > 0 {
			out.CostPerUniqueItemRequestsByPeriod[i] = round2p(periodCost[i] / float64(out.UniqueItemRequestsByPeriod[i]))
		}
		out.TotalItemRequestsTotal += out.TotalItemRequestsByPeriod[i]
		out.UniqueItemRequestsTotal += out.UniqueItemRequestsByPeriod[i]
	}

	// Grand totals sum the distinct per-item amounts, never the per-period
	// map: an item's cost may span several periods but counts once.
	var encTotal, paidTotal float64
	for ik, it := range items {
		if v, ok := encByItem[ik]; ok {
			encTotal += v
			it.AmountEncumbered = round2p(v)
		}
		if v, ok := paidByItem[ik]; ok {
			paidTotal += v
			it.AmountPaid = round2p(v)
		}
	}
	out.AmountEncumberedTotal = round2(encTotal)
	out.AmountPaidTotal = round2(paidTotal)

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		if a.KBTitleID != b.KBTitleID {
			return a.KBTitleID.String() < b.KBTitleID.String()
		}
		if a.PublicationYear != b.PublicationYear {
			return a.PublicationYear < b.PublicationYear
		}
		return a.PoLineNumber < b.PoLineNumber
	})
	out.Items = order
	return out, nil
}
