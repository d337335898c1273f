// Package period implements the calendar arithmetic behind usage and cost
// reports: closed date ranges with month-overlap arithmetic, and schedules of
// equal-length calendar-aligned reporting periods.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedRange is returned when a textual date range cannot be parsed.
var ErrMalformedRange = errors.New("malformed date range")

const dateLayout = "2006-01-02"

// DateRange is a closed date interval. Start and End are both inclusive;
// a range whose End precedes its Start is empty (this happens when the
// half-open textual form [d,d) is parsed).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses the Postgres textual range forms "[start,end)" and
// "[start,end]" with date-granularity bounds. The half-open form is
// normalized to an inclusive End one day earlier.
func ParseDateRange(s string) (DateRange, error) {
	if len(s) < 2 || s[0] != '[' {
		return DateRange{}, fmt.Errorf("%w: %q", ErrMalformedRange, s)
	}
	closed := false
	switch s[len(s)-1] {
	case ')':
	case ']':
		closed = true
	default:
		return DateRange{}, fmt.Errorf("%w: %q", ErrMalformedRange, s)
	}

	body := s[1 : len(s)-1]
	lo, hi, ok := strings.Cut(body, ",")
	if !ok {
		return DateRange{}, fmt.Errorf("%w: %q", ErrMalformedRange, s)
	}

	start, err := time.Parse(dateLayout, strings.TrimSpace(lo))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: %q: %v", ErrMalformedRange, s, err)
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(hi))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: %q: %v", ErrMalformedRange, s, err)
	}
	if !closed {
		end = end.AddDate(0, 0, -1)
	}
	return DateRange{Start: start, End: end}, nil
}

// Between builds a DateRange from an inclusive start and an exclusive end.
func Between(start, endExclusive time.Time) DateRange {
	return DateRange{Start: start, End: endExclusive.AddDate(0, 0, -1)}
}

// StartMonth returns the first day of the month containing Start.
func (r DateRange) StartMonth() time.Time {
	return floorMonth(r.Start)
}

// EndMonthExclusive returns the first day of the month immediately after End.
func (r DateRange) EndMonthExclusive() time.Time {
	return floorMonth(r.End).AddDate(0, 1, 0)
}

// MonthSpan returns the number of whole calendar months touched by the range,
// by month-floor: a one-day range spans 1 month, an empty range spans 0.
func (r DateRange) MonthSpan() int {
	n := monthsBetween(r.StartMonth(), r.EndMonthExclusive())
	if n < 0 {
		return 0
	}
	return n
}

// OverlapMonths returns the number of whole calendar months common to both
// ranges' month-floor spans, clamped to zero when they do not overlap. It is
// symmetric in its operands.
func (r DateRange) OverlapMonths(o DateRange) int {
	lo := laterOf(r.StartMonth(), o.StartMonth())
	hi := earlierOf(r.EndMonthExclusive(), o.EndMonthExclusive())
	n := monthsBetween(lo, hi)
	if n < 0 {
		return 0
	}
	return n
}

// Includes reports whether d falls within the range, bounds included.
func (r DateRange) Includes(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s,%s]", r.Start.Format(dateLayout), r.End.Format(dateLayout))
}

func floorMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthsBetween counts calendar months from a to b; both must be first-of-month.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func laterOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

func earlierOf(a, b time.Time) time.Time {
	if a.After(b) {
		return b
	}
	return a
}
