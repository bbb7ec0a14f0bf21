package http

import (
	"encoding/json"
	"net/http"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/services"
	"kakeibo/internal/validation"
)

// expenseJSON is the wire representation of an expense. The amount is the
// decimal value in yen, not cents.
type expenseJSON struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	CategoryID  int            `json:"category_id"`
	Amount      float64        `json:"amount"`
	Description string         `json:"description,omitempty"`
	Date        string         `json:"date"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Category    *core.Category `json:"category,omitempty"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		UserID:      e.UserID,
		CategoryID:  e.CategoryID,
		Amount:      e.Amount.Float(),
		Description: e.Description,
		Date:        e.Date.String(),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Category:    e.Category,
	}
}

func toExpenseListJSON(expenses []core.Expense) []expenseJSON {
	out := make([]expenseJSON, len(expenses))
	for i, e := range expenses {
		out[i] = toExpenseJSON(e)
	}
	return out
}

type paginationJSON struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type trendBucketJSON struct {
	Label string  `json:"label"`
	Start string  `json:"start"`
	End   string  `json:"end"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type categoryBucketJSON struct {
	Label  string          `json:"label"`
	Start  string          `json:"start"`
	End    string          `json:"end"`
	Totals map[int]float64 `json:"totals"`
	Total  float64         `json:"total"`
}

type categoryShareJSON struct {
	Category   core.Category `json:"category"`
	Total      float64       `json:"total"`
	Count      int           `json:"count"`
	Percentage float64       `json:"percentage"`
}

type comparisonJSON struct {
	Current          float64 `json:"current"`
	Previous         float64 `json:"previous"`
	PercentageChange float64 `json:"percentageChange"`
}

type summaryJSON struct {
	Range       string               `json:"range"`
	Granularity string               `json:"granularity"`
	Start       string               `json:"start"`
	End         string               `json:"end"`
	Total       float64              `json:"total"`
	Count       int                  `json:"count"`
	Trend       []trendBucketJSON    `json:"trend"`
	Categories  []categoryBucketJSON `json:"categories"`
	Breakdown   []categoryShareJSON  `json:"breakdown"`
	Comparison  comparisonJSON       `json:"comparison"`
}

func toSummaryJSON(s services.Summary) summaryJSON {
	out := summaryJSON{
		Range:       string(s.Range),
		Granularity: string(s.Granularity),
		Start:       s.Start.String(),
		End:         s.End.String(),
		Total:       s.Total.Float(),
		Count:       s.Count,
		Trend:       make([]trendBucketJSON, len(s.Trend)),
		Categories:  make([]categoryBucketJSON, len(s.Categories)),
		Breakdown:   make([]categoryShareJSON, len(s.Breakdown)),
		Comparison: comparisonJSON{
			Current:          s.Comparison.Current.Float(),
			Previous:         s.Comparison.Previous.Float(),
			PercentageChange: s.Comparison.PercentageChange,
		},
	}
	for i, b := range s.Trend {
		out.Trend[i] = trendBucketJSON{
			Label: b.Label,
			Start: b.Start.String(),
			End:   b.End.String(),
			Total: b.Total.Float(),
			Count: b.Count,
		}
	}
	for i, b := range s.Categories {
		totals := make(map[int]float64, len(b.Totals))
		for id, m := range b.Totals {
			totals[id] = m.Float()
		}
		out.Categories[i] = categoryBucketJSON{
			Label:  b.Label,
			Start:  b.Start.String(),
			End:    b.End.String(),
			Totals: totals,
			Total:  b.Total.Float(),
		}
	}
	for i, share := range s.Breakdown {
		out.Breakdown[i] = categoryShareJSON{
			Category:   share.Category,
			Total:      share.Total.Float(),
			Count:      share.Count,
			Percentage: share.Percentage,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data})
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	body := map[string]any{"message": message}
	if data != nil {
		body["data"] = data
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, message string, details []validation.FieldIssue) {
	body := map[string]any{"error": message}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

func writeValidationFailed(w http.ResponseWriter, result validation.Result) {
	writeError(w, http.StatusBadRequest, "Validation failed", result.Issues)
}
