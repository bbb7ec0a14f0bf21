// Package report turns flat expense lists into the period-bucketed series
// and category summaries the dashboards render. Everything here is pure and
// synchronous; callers fetch expenses first and aggregate in memory.
package report

import (
	"fmt"
	"sort"
	"time"

	"kakeibo/internal/core"
)

// Granularity selects the bucket size for trend and category series.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// RangeKind names the preset date ranges the UI offers.
type RangeKind string

const (
	RangeToday RangeKind = "today"
	RangeWeek  RangeKind = "week"
	RangeMonth RangeKind = "month"
)

// Valid reports whether k is a known range kind.
func (k RangeKind) Valid() bool {
	switch k {
	case RangeToday, RangeWeek, RangeMonth:
		return true
	}
	return false
}

// DefaultGranularity is the bucket size the UI preselects for a range:
// daily buckets for a day or a week of data, weekly buckets for a month.
func (k RangeKind) DefaultGranularity() Granularity {
	switch k {
	case RangeToday, RangeWeek:
		return Daily
	case RangeMonth:
		return Weekly
	}
	return Monthly
}

// Range is an inclusive calendar-date interval.
type Range struct {
	Start core.Date
	End   core.Date
}

// RangeFor returns the preset range containing now. Weeks start on Monday.
func RangeFor(kind RangeKind, now time.Time) Range {
	today := core.DateOf(now)
	switch kind {
	case RangeToday:
		return Range{Start: today, End: today}
	case RangeWeek:
		start := startOfWeek(today)
		return Range{Start: start, End: addDays(start, 6)}
	default:
		start := core.NewDate(today.Year(), today.Month(), 1)
		return Range{Start: start, End: endOfMonth(start)}
	}
}

// PreviousRange shifts r back by one period of its kind, for
// period-over-period comparison.
func PreviousRange(kind RangeKind, r Range) Range {
	switch kind {
	case RangeToday:
		return Range{Start: addDays(r.Start, -1), End: addDays(r.End, -1)}
	case RangeWeek:
		return Range{Start: addDays(r.Start, -7), End: addDays(r.End, -7)}
	default:
		start := core.Date{Time: r.Start.AddDate(0, -1, 0)}
		return Range{Start: start, End: addDays(r.Start, -1)}
	}
}

// TrendBucket is one point of the spending trend line.
type TrendBucket struct {
	Label string
	Start core.Date
	End   core.Date
	Total core.Money
	Count int
}

// Trend buckets expenses into a contiguous daily/weekly/monthly sequence
// spanning the minimum and maximum expense date. Buckets with no expenses
// are kept with a zero total so the line stays continuous. An empty input
// yields an empty slice.
func Trend(expenses []core.Expense, g Granularity) []TrendBucket {
	starts := bucketStarts(expenses, g)
	if len(starts) == 0 {
		return nil
	}

	buckets := make([]TrendBucket, 0, len(starts))
	for _, start := range starts {
		end := bucketEnd(start, g)
		var total int64
		count := 0
		for _, e := range expenses {
			if e.Date.Within(start, end) {
				total += e.Amount.Cents
				count++
			}
		}
		buckets = append(buckets, TrendBucket{
			Label: bucketLabel(start, g),
			Start: start,
			End:   end,
			Total: core.Money{Cents: total},
			Count: count,
		})
	}
	return buckets
}

// CategoryBucket is one bar group of the per-category chart: a period with
// the totals of every category that spent anything in it.
type CategoryBucket struct {
	Label  string
	Start  core.Date
	End    core.Date
	Totals map[int]core.Money // category ID -> cents spent in this period
	Total  core.Money
}

// CategorySeries buckets like Trend but splits each bucket by category.
// Unlike the trend line, periods without any spending are dropped.
func CategorySeries(expenses []core.Expense, g Granularity) []CategoryBucket {
	starts := bucketStarts(expenses, g)
	if len(starts) == 0 {
		return nil
	}

	buckets := make([]CategoryBucket, 0, len(starts))
	for _, start := range starts {
		end := bucketEnd(start, g)
		totals := make(map[int]core.Money)
		var total int64
		for _, e := range expenses {
			if !e.Date.Within(start, end) {
				continue
			}
			t := totals[e.CategoryID]
			t.Cents += e.Amount.Cents
			totals[e.CategoryID] = t
			total += e.Amount.Cents
		}
		if total == 0 {
			continue
		}
		buckets = append(buckets, CategoryBucket{
			Label:  bucketLabel(start, g),
			Start:  start,
			End:    end,
			Totals: totals,
			Total:  core.Money{Cents: total},
		})
	}
	return buckets
}

// CategoryShare is one slice of the category breakdown.
type CategoryShare struct {
	Category   core.Category
	Total      core.Money
	Count      int
	Percentage float64 // share of the grand total, 0-100
}

// Breakdown groups expenses by category and computes each category's share
// of the grand total. Categories without expenses are omitted; the result
// is sorted descending by total.
func Breakdown(expenses []core.Expense) []CategoryShare {
	totals := make(map[int]*CategoryShare)
	var grand int64
	for _, e := range expenses {
		s, ok := totals[e.CategoryID]
		if !ok {
			cat, _ := core.CategoryByID(e.CategoryID)
			s = &CategoryShare{Category: cat}
			totals[e.CategoryID] = s
		}
		s.Total.Cents += e.Amount.Cents
		s.Count++
		grand += e.Amount.Cents
	}

	shares := make([]CategoryShare, 0, len(totals))
	for _, s := range totals {
		if grand > 0 {
			s.Percentage = float64(s.Total.Cents) / float64(grand) * 100
		}
		shares = append(shares, *s)
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Total.Cents > shares[j].Total.Cents
	})
	return shares
}

// Comparison is the period-over-period summary.
type Comparison struct {
	Current          core.Money
	Previous         core.Money
	PercentageChange float64
}

// Compare sums both expense sets and computes the percentage change.
// When the previous total is zero the change is reported as 100 if the
// current total is positive and 0 otherwise; this avoids a division by
// zero and matches the dashboard's established behavior.
func Compare(current, previous []core.Expense) Comparison {
	c := Comparison{
		Current:  core.Money{Cents: sum(current)},
		Previous: core.Money{Cents: sum(previous)},
	}
	switch {
	case c.Previous.Cents == 0 && c.Current.Cents > 0:
		c.PercentageChange = 100
	case c.Previous.Cents == 0:
		c.PercentageChange = 0
	default:
		c.PercentageChange = float64(c.Current.Cents-c.Previous.Cents) / float64(c.Previous.Cents) * 100
	}
	return c
}

// Filter returns the expenses whose date falls inside r.
func Filter(expenses []core.Expense, r Range) []core.Expense {
	var out []core.Expense
	for _, e := range expenses {
		if e.Date.Within(r.Start, r.End) {
			out = append(out, e)
		}
	}
	return out
}

func sum(expenses []core.Expense) int64 {
	var total int64
	for _, e := range expenses {
		total += e.Amount.Cents
	}
	return total
}

// bucketStarts generates the chronological sequence of period start dates
// covering [min expense date, max expense date].
func bucketStarts(expenses []core.Expense, g Granularity) []core.Date {
	if len(expenses) == 0 {
		return nil
	}
	min, max := expenses[0].Date, expenses[0].Date
	for _, e := range expenses[1:] {
		if e.Date.Before(min) {
			min = e.Date
		}
		if e.Date.After(max) {
			max = e.Date
		}
	}

	var starts []core.Date
	switch g {
	case Weekly:
		for d := startOfWeek(min); !d.After(max); d = addDays(d, 7) {
			starts = append(starts, d)
		}
	case Monthly:
		for d := core.NewDate(min.Year(), min.Month(), 1); !d.After(max); d = (core.Date{Time: d.AddDate(0, 1, 0)}) {
			starts = append(starts, d)
		}
	default:
		for d := min; !d.After(max); d = addDays(d, 1) {
			starts = append(starts, d)
		}
	}
	return starts
}

func bucketEnd(start core.Date, g Granularity) core.Date {
	switch g {
	case Weekly:
		return addDays(start, 6)
	case Monthly:
		return endOfMonth(start)
	default:
		return start
	}
}

// bucketLabel formats the chart label for a period: "M/d" daily,
// "M/d週" weekly, "yyyy年M月" monthly.
func bucketLabel(start core.Date, g Granularity) string {
	switch g {
	case Weekly:
		return fmt.Sprintf("%d/%d週", start.Month(), start.Day())
	case Monthly:
		return fmt.Sprintf("%d年%d月", start.Year(), start.Month())
	default:
		return fmt.Sprintf("%d/%d", start.Month(), start.Day())
	}
}

// startOfWeek returns the Monday on or before d.
func startOfWeek(d core.Date) core.Date {
	offset := (int(d.Weekday()) + 6) % 7
	return addDays(d, -offset)
}

func endOfMonth(d core.Date) core.Date {
	firstOfNext := core.NewDate(d.Year(), d.Month(), 1).AddDate(0, 1, 0)
	return core.Date{Time: firstOfNext.AddDate(0, 0, -1)}
}

func addDays(d core.Date, n int) core.Date {
	return core.Date{Time: d.AddDate(0, 0, n)}
}
