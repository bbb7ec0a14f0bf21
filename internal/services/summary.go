package services

import (
	"context"
	"fmt"

	"kakeibo/internal/core"
	"kakeibo/internal/report"
)

// Summary is the aggregated view of one period: the headline numbers, the
// spending trend, per-category series and breakdown, and the change against
// the previous period of the same length.
type Summary struct {
	Range       report.RangeKind
	Granularity report.Granularity
	Start       core.Date
	End         core.Date
	Total       core.Money
	Count       int
	Trend       []report.TrendBucket
	Categories  []report.CategoryBucket
	Breakdown   []report.CategoryShare
	Comparison  report.Comparison
}

// Summarize aggregates the user's expenses for the given period. The
// previous period of the same length is loaded too, for the comparison.
func (s *ExpenseService) Summarize(ctx context.Context, userID string, kind report.RangeKind, now core.Date) (Summary, error) {
	current := report.RangeFor(kind, now.Time)
	previous := report.PreviousRange(kind, current)
	granularity := kind.DefaultGranularity()

	expenses, err := s.storage.ListExpensesInRange(ctx, userID, current.Start, current.End)
	if err != nil {
		return Summary{}, fmt.Errorf("load current period: %w", err)
	}
	previousExpenses, err := s.storage.ListExpensesInRange(ctx, userID, previous.Start, previous.End)
	if err != nil {
		return Summary{}, fmt.Errorf("load previous period: %w", err)
	}

	comparison := report.Compare(expenses, previousExpenses)

	return Summary{
		Range:       kind,
		Granularity: granularity,
		Start:       current.Start,
		End:         current.End,
		Total:       comparison.Current,
		Count:       len(expenses),
		Trend:       report.Trend(expenses, granularity),
		Categories:  report.CategorySeries(expenses, granularity),
		Breakdown:   report.Breakdown(expenses),
		Comparison:  comparison,
	}, nil
}
