package period

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		in        string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"[2020-01-09,2020-02-01)", date(2020, 1, 9), date(2020, 1, 31)},
		{"[2020-01-09,2020-02-01]", date(2020, 1, 9), date(2020, 2, 1)},
		{"[2020-01-01,2020-01-01)", date(2020, 1, 1), date(2019, 12, 31)},
		{"[2020-03-01, 2020-04-01)", date(2020, 3, 1), date(2020, 3, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ParseDateRange(tt.in)
			if err != nil {
				t.Fatalf("ParseDateRange(%q) failed: %v", tt.in, err)
			}
			if !r.Start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", r.Start, tt.wantStart)
			}
			if !r.End.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", r.End, tt.wantEnd)
			}
		})
	}
}

func TestParseDateRange_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"2020-01-01,2020-02-01",
		"[2020-01-01,2020-02-01",
		"(2020-01-01,2020-02-01)",
		"[2020-01-01]",
		"[not-a-date,2020-02-01)",
		"[2020-01-01,never)",
	}
	for _, in := range inputs {
		if _, err := ParseDateRange(in); !errors.Is(err, ErrMalformedRange) {
			t.Errorf("ParseDateRange(%q) = %v, want ErrMalformedRange", in, err)
		}
	}
}

func TestMonthSpan(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"[2020-01-01,2020-01-01)", 0},
		{"[2020-01-01,2020-01-01]", 1},
		{"[2020-01-15,2020-02-13]", 2},
		{"[2020-01-01,2021-07-01)", 18},
		{"[2020-01-31,2020-02-01)", 1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ParseDateRange(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got := r.MonthSpan(); got != tt.want {
				t.Errorf("MonthSpan() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOverlapMonths(t *testing.T) {
	a, err := ParseDateRange("[2020-01-01,2021-07-01)")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		other string
		want  int
	}{
		{"[2020-02-01,2020-03-01)", 1},
		{"[2021-01-01,2022-01-01)", 6},
		{"[2019-01-01,2020-01-01)", 0},
		{"[2021-07-01,2021-08-01)", 0},
		{"[2019-06-01,2022-06-01)", 18},
	}
	for _, tt := range tests {
		t.Run(tt.other, func(t *testing.T) {
			b, err := ParseDateRange(tt.other)
			if err != nil {
				t.Fatal(err)
			}
			if got := a.OverlapMonths(b); got != tt.want {
				t.Errorf("a.OverlapMonths(b) = %d, want %d", got, tt.want)
			}
			if got := b.OverlapMonths(a); got != tt.want {
				t.Errorf("b.OverlapMonths(a) = %d, want %d (symmetry)", got, tt.want)
			}
		})
	}
}

func TestIncludes(t *testing.T) {
	r, err := ParseDateRange("[2020-01-09,2020-02-01)")
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []time.Time{date(2020, 1, 9), date(2020, 1, 20), date(2020, 1, 31)} {
		if !r.Includes(d) {
			t.Errorf("expected %v to be included", d)
		}
	}
	for _, d := range []time.Time{date(2020, 1, 8), date(2020, 2, 1)} {
		if r.Includes(d) {
			t.Errorf("expected %v to be excluded", d)
		}
	}
}

func TestBetween(t *testing.T) {
	r := Between(date(2020, 1, 1), date(2020, 2, 1))
	if !r.End.Equal(date(2020, 1, 31)) {
		t.Errorf("end = %v, want 2020-01-31", r.End)
	}
	if r.MonthSpan() != 1 {
		t.Errorf("MonthSpan() = %d, want 1", r.MonthSpan())
	}
}
