package period

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidSpan is returned when a report span cannot be turned into a
// period schedule: start after end, mismatched input granularity, an
// unparseable bound or period specifier, or a span longer than the maximum.
var ErrInvalidSpan = errors.New("invalid report span")

// maxSpanMonths caps the widened schedule at ten years.
const maxSpanMonths = 120

// Periods is an ordered sequence of equal-length, calendar-aligned reporting
// periods covering a requested span. StartDate is inclusive and EndDate
// exclusive; both are aligned to Months-length calendar boundaries, widened
// (never narrowed) from the user-given bounds.
type Periods struct {
	Months    int
	StartDate time.Time
	EndDate   time.Time
}

// NewPeriods builds a schedule from user start/end bounds and an optional
// period specifier of the form "<N>M" or "<N>Y". Bounds are either both
// years ("2021") or both full dates ("2021-04-30"); the end bound is
// inclusive. When the specifier is empty it defaults to 1Y for year bounds
// and 1M for date bounds.
func NewPeriods(start, end, spec string) (*Periods, error) {
	startDate, startIsYear, err := parseBound(start)
	if err != nil {
		return nil, err
	}
	endDate, endIsYear, err := parseBound(end)
	if err != nil {
		return nil, err
	}
	if startIsYear != endIsYear {
		return nil, fmt.Errorf("%w: mixed granularity %q and %q", ErrInvalidSpan, start, end)
	}
	if startDate.After(endDate) {
		return nil, fmt.Errorf("%w: start %q after end %q", ErrInvalidSpan, start, end)
	}

	months, err := parseSpec(spec, startIsYear)
	if err != nil {
		return nil, err
	}

	// The exclusive end of the covered span: year bounds cover the whole
	// end year, date bounds cover the end day.
	endExclusive := endDate.AddDate(0, 0, 1)
	if endIsYear {
		endExclusive = endDate.AddDate(1, 0, 0)
	}

	p := &Periods{
		Months:    months,
		StartDate: FloorToPeriod(startDate, months),
		EndDate:   FloorToPeriod(endExclusive.AddDate(0, 0, -1), months).AddDate(0, months, 0),
	}
	if span := monthsBetween(p.StartDate, p.EndDate); span > maxSpanMonths {
		return nil, fmt.Errorf("%w: %d months exceeds maximum of %d", ErrInvalidSpan, span, maxSpanMonths)
	}
	return p, nil
}

// N returns the number of periods in the schedule.
func (p *Periods) N() int {
	return monthsBetween(p.StartDate, p.EndDate) / p.Months
}

// Index maps a date to the zero-based period containing it. ok is false for
// dates outside [StartDate, EndDate); callers filter such rows out.
func (p *Periods) Index(d time.Time) (int, bool) {
	if d.Before(p.StartDate) || !d.Before(p.EndDate) {
		return 0, false
	}
	return monthsBetween(p.StartDate, FloorToPeriod(d, p.Months)) / p.Months, true
}

// PeriodStart returns the first day of period i.
func (p *Periods) PeriodStart(i int) time.Time {
	return p.StartDate.AddDate(0, i*p.Months, 0)
}

// PeriodRange returns period i as a DateRange.
func (p *Periods) PeriodRange(i int) DateRange {
	start := p.PeriodStart(i)
	return Between(start, start.AddDate(0, p.Months, 0))
}

// Range returns the whole schedule span as a DateRange.
func (p *Periods) Range() DateRange {
	return Between(p.StartDate, p.EndDate)
}

// Labels returns the ordered period labels.
func (p *Periods) Labels() []string {
	labels := make([]string, p.N())
	for i := range labels {
		labels[i] = Label(p.PeriodStart(i), p.Months)
	}
	return labels
}

// Label formats the label of a period of the given month length starting at
// start: "YYYY-MM" for single months, "YYYY" for single years,
// "YYYY - YYYY" for whole multiples of a year, and
// "YYYY-MM - YYYY-MM" otherwise.
func Label(start time.Time, months int) string {
	last := start.AddDate(0, months-1, 0)
	switch {
	case months == 1:
		return start.Format("2006-01")
	case months == 12:
		return start.Format("2006")
	case months%12 == 0:
		return fmt.Sprintf("%d - %d", start.Year(), last.Year())
	default:
		return start.Format("2006-01") + " - " + last.Format("2006-01")
	}
}

// FloorToPeriod floors a date to the start of its containing calendar-aligned
// period of the given month length. Alignment is absolute (a 12-month period
// starts in January, a 3-month period in January/April/July/October), so the
// result need not be one of a particular schedule's own periods.
func FloorToPeriod(d time.Time, months int) time.Time {
	mi := d.Year()*12 + int(d.Month()) - 1
	mi -= mi % months
	return time.Date(mi/12, time.Month(mi%12+1), 1, 0, 0, 0, 0, time.UTC)
}

// SpecMonths converts a period specifier like "3M" or "2Y" into a month
// count. The empty specifier yields the given default.
func SpecMonths(spec string, defaultMonths int) (int, error) {
	if spec == "" {
		return defaultMonths, nil
	}
	return parseSpec(spec, false)
}

// parseBound parses a report span bound, either "YYYY" or "YYYY-MM-DD".
func parseBound(s string) (t time.Time, isYear bool, err error) {
	if len(s) == 4 {
		year, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%w: bad bound %q", ErrInvalidSpan, s)
		}
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true, nil
	}
	t, perr := time.Parse(dateLayout, s)
	if perr != nil {
		return time.Time{}, false, fmt.Errorf("%w: bad bound %q", ErrInvalidSpan, s)
	}
	return t, false, nil
}

// parseSpec parses a period specifier like "3M" or "2Y" into months.
func parseSpec(spec string, yearBounds bool) (int, error) {
	if spec == "" {
		if yearBounds {
			return 12, nil
		}
		return 1, nil
	}
	if len(spec) < 2 {
		return 0, fmt.Errorf("%w: bad period %q", ErrInvalidSpan, spec)
	}
	n, err := strconv.Atoi(spec[:len(spec)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: bad period %q", ErrInvalidSpan, spec)
	}
	switch spec[len(spec)-1] {
	case 'M':
		return n, nil
	case 'Y':
		return n * 12, nil
	default:
		return 0, fmt.Errorf("%w: bad period %q", ErrInvalidSpan, spec)
	}
}
