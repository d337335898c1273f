package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/julianladisch/eusage-reports/internal/period"
)

// countRow is a usage row whose range text has been parsed and whose usage
// start falls inside the requested report span.
type countRow struct {
	UsageRow
	usage period.DateRange
}

// itemKey identifies one output item: a title plus its grouping dimensions.
type itemKey struct {
	titleID uuid.UUID
	access  string
	dim     string
	metric  string
}

// dedupKey identifies a source row for duplicate elimination. The raw range
// and publication-date texts are part of the identity: the same counts for
// the same title may legitimately recur under different ranges.
type dedupKey struct {
	titleID    uuid.UUID
	access     string
	dim        string
	usageRange string
	pubDate    string
}

// countConfig parameterizes the shared count aggregation: how a row maps to
// an axis bucket, which secondary dimension it is grouped by, and where that
// dimension appears on the output item.
type countConfig struct {
	labels    []string
	index     func(r countRow) (int, bool)
	dimension func(r countRow) string
	setDim    func(it *UsageItem, label string)
	dedupPub  bool
	crossTab  bool
}

// counts is the accumulator shared by the three count report variants.
type counts struct {
	labels         []string
	totalByPeriod  []int64
	uniqueByPeriod []int64
	totalTab       []map[string]int64
	uniqueTab      []map[string]int64
	items          []*UsageItem
}

// parseCountRows filters rows to those carrying usage inside the report span
// and parses their range text. A malformed range aborts the aggregation.
func parseCountRows(rows []UsageRow, p *period.Periods) ([]countRow, error) {
	out := make([]countRow, 0, len(rows))
	for _, r := range rows {
		if r.UsageDateRange == "" || r.TotalAccessCount <= 0 {
			continue
		}
		usage, err := period.ParseDateRange(r.UsageDateRange)
		if err != nil {
			return nil, fmt.Errorf("usage range for title %s: %w", r.KBTitleID, err)
		}
		if usage.Start.Before(p.StartDate) || !usage.Start.Before(p.EndDate) {
			continue
		}
		out = append(out, countRow{UsageRow: r, usage: usage})
	}
	return out, nil
}

// aggregateCounts runs the shared dedup/bucket/accumulate loop.
func aggregateCounts(rows []countRow, cfg countConfig) *counts {
	n := len(cfg.labels)
	c := &counts{
		labels:         cfg.labels,
		totalByPeriod:  make([]int64, n),
		uniqueByPeriod: make([]int64, n),
		items:          []*UsageItem{},
	}
	if cfg.crossTab {
		c.totalTab = make([]map[string]int64, n)
		c.uniqueTab = make([]map[string]int64, n)
		for i := 0; i < n; i++ {
			c.totalTab[i] = map[string]int64{}
			c.uniqueTab[i] = map[string]int64{}
		}
	}

	seen := map[dedupKey]struct{}{}
	items := map[itemKey]*UsageItem{}

	for _, r := range rows {
		idx, ok := cfg.index(r)
		if !ok {
			continue
		}
		dim := ""
		if cfg.dimension != nil {
			dim = cfg.dimension(r)
		}

		dk := dedupKey{
			titleID:    r.KBTitleID,
			access:     r.accessType(),
			dim:        dim,
			usageRange: r.UsageDateRange,
		}
		if cfg.dedupPub {
			dk.pubDate = r.publicationDateText()
		}
		if _, dup := seen[dk]; dup {
			continue
		}
		seen[dk] = struct{}{}

		c.totalByPeriod[idx] += r.TotalAccessCount
		c.uniqueByPeriod[idx] += r.UniqueAccessCount
		if cfg.crossTab {
			c.totalTab[idx][dim] += r.TotalAccessCount
			c.uniqueTab[idx][dim] += r.UniqueAccessCount
		}

		for _, metric := range []string{MetricTotalRequests, MetricUniqueRequests} {
			count := r.TotalAccessCount
			if metric == MetricUniqueRequests {
				count = r.UniqueAccessCount
			}
			ik := itemKey{titleID: r.KBTitleID, access: dk.access, dim: dim, metric: metric}
			it := items[ik]
			if it == nil {
				it = &UsageItem{
					KBTitleID:            r.KBTitleID,
					Title:                r.Title,
					PrintISSN:            r.PrintISSN,
					OnlineISSN:           r.OnlineISSN,
					ISBN:                 r.ISBN,
					AccessType:           dk.access,
					MetricType:           metric,
					AccessCountsByPeriod: make([]int64, n),
				}
				if cfg.setDim != nil {
					cfg.setDim(it, dim)
				}
				items[ik] = it
				c.items = append(c.items, it)
			}
			it.AccessCountTotal += count
			it.AccessCountsByPeriod[idx] += count
		}
	}

	sort.Slice(c.items, func(i, j int) bool {
		a, b := c.items[i], c.items[j]
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		if a.KBTitleID != b.KBTitleID {
			return a.KBTitleID.String() < b.KBTitleID.String()
		}
		if a.AccessType != b.AccessType {
			return a.AccessType < b.AccessType
		}
		if a.PublicationYear != b.PublicationYear {
			return a.PublicationYear < b.PublicationYear
		}
		if a.PeriodOfUse != b.PeriodOfUse {
			return a.PeriodOfUse < b.PeriodOfUse
		}
		return a.MetricType < b.MetricType
	})
	return c
}

func (c *counts) grandTotals() (total, unique int64) {
	for i := range c.totalByPeriod {
		total += c.totalByPeriod[i]
		unique += c.uniqueByPeriod[i]
	}
	return
}

// pubPeriodLabel floors a publication date to a publication period of the
// given length and formats its label; nil dates map to the sentinel label.
func pubPeriodLabel(d *time.Time, months int) string {
	if d == nil {
		return noPublication
	}
	return period.Label(period.FloorToPeriod(*d, months), months)
}

// displayPubYear renders the sentinel label as an absent publication year.
func displayPubYear(label string) string {
	if label == noPublication {
		return ""
	}
	return label
}

// UseOverTimeReport aggregates rows into the use-over-time report over the
// given schedule.
func UseOverTimeReport(rows []UsageRow, p *period.Periods) (*UseOverTime, error) {
	parsed, err := parseCountRows(rows, p)
	if err != nil {
		return nil, err
	}
	c := aggregateCounts(parsed, countConfig{
		labels: p.Labels(),
		index:  func(r countRow) (int, bool) { return p.Index(r.usage.Start) },
	})
	total, unique := c.grandTotals()
	return &UseOverTime{
		AccessCountPeriods:         c.labels,
		TotalItemRequestsTotal:     total,
		UniqueItemRequestsTotal:    unique,
		TotalItemRequestsByPeriod:  c.totalByPeriod,
		UniqueItemRequestsByPeriod: c.uniqueByPeriod,
		Items:                      c.items,
	}, nil
}

// ReqsByDateOfUseReport aggregates rows into the requests-by-date-of-use
// report: usage periods on the axis, publication periods of pubMonths length
// as the item dimension.
func ReqsByDateOfUseReport(rows []UsageRow, p *period.Periods, pubMonths int) (*ReqsByDateOfUse, error) {
	parsed, err := parseCountRows(rows, p)
	if err != nil {
		return nil, err
	}
	c := aggregateCounts(parsed, countConfig{
		labels:    p.Labels(),
		index:     func(r countRow) (int, bool) { return p.Index(r.usage.Start) },
		dimension: func(r countRow) string { return pubPeriodLabel(r.PublicationDate, pubMonths) },
		setDim:    func(it *UsageItem, label string) { it.PublicationYear = displayPubYear(label) },
		dedupPub:  true,
		crossTab:  true,
	})
	total, unique := c.grandTotals()
	return &ReqsByDateOfUse{
		AccessCountPeriods:                     c.labels,
		TotalItemRequestsTotal:                 total,
		UniqueItemRequestsTotal:                unique,
		TotalItemRequestsByPeriod:              c.totalByPeriod,
		UniqueItemRequestsByPeriod:             c.uniqueByPeriod,
		TotalRequestsPublicationYearsByPeriod:  c.totalTab,
		UniqueRequestsPublicationYearsByPeriod: c.uniqueTab,
		Items:                                  c.items,
	}, nil
}

// ReqsByPubYearReport aggregates rows into the requests-by-publication-year
// report. The axis is the sorted set of distinct publication-period labels
// seen in the contributing rows (determined in a first pass); the item
// dimension is the period of use, floored to the schedule's period length.
func ReqsByPubYearReport(rows []UsageRow, p *period.Periods, pubMonths int) (*ReqsByPubYear, error) {
	parsed, err := parseCountRows(rows, p)
	if err != nil {
		return nil, err
	}

	// Pass 1: enumerate the publication-period axis.
	labelSet := map[string]struct{}{}
	for _, r := range parsed {
		labelSet[pubPeriodLabel(r.PublicationDate, pubMonths)] = struct{}{}
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	indexOf := make(map[string]int, len(labels))
	for i, l := range labels {
		indexOf[l] = i
	}

	c := aggregateCounts(parsed, countConfig{
		labels: labels,
		index: func(r countRow) (int, bool) {
			i, ok := indexOf[pubPeriodLabel(r.PublicationDate, pubMonths)]
			return i, ok
		},
		dimension: func(r countRow) string {
			return period.Label(period.FloorToPeriod(r.usage.Start, p.Months), p.Months)
		},
		setDim:   func(it *UsageItem, label string) { it.PeriodOfUse = label },
		dedupPub: true,
		crossTab: true,
	})
	total, unique := c.grandTotals()
	return &ReqsByPubYear{
		AccessCountPeriods:                c.labels,
		TotalItemRequestsTotal:            total,
		UniqueItemRequestsTotal:           unique,
		TotalItemRequestsByPeriod:         c.totalByPeriod,
		UniqueItemRequestsByPeriod:        c.uniqueByPeriod,
		TotalRequestsPeriodsOfUseByPeriod: c.totalTab,
		Items:                             c.items,
	}, nil
}
