package http

import (
	"errors"
	"net/http"
	"strconv"

	"kakeibo/internal/core"
	"kakeibo/internal/report"
	"kakeibo/internal/services"
)

// parseListParams reads the listing query parameters. Unknown categories
// and malformed dates are rejected; page and limit fall back to defaults
// when absent or non-numeric.
func parseListParams(r *http.Request) (services.ListParams, error) {
	q := r.URL.Query()
	var p services.ListParams

	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Limit = n
		}
	}

	if v := q.Get("category"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return p, errors.New("invalid category")
		}
		if _, ok := core.CategoryByID(id); !ok {
			return p, errors.New("invalid category")
		}
		p.CategoryID = id
	}

	if v := q.Get("from"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return p, errors.New("invalid from date")
		}
		p.From = d
	}
	if v := q.Get("to"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return p, errors.New("invalid to date")
		}
		p.To = d
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return p, errors.New("from must not be after to")
	}

	return p, nil
}

// parseRangeKind reads the summary range parameter, defaulting to month.
func parseRangeKind(r *http.Request) (report.RangeKind, error) {
	v := r.URL.Query().Get("range")
	if v == "" {
		return report.RangeMonth, nil
	}
	kind := report.RangeKind(v)
	if !kind.Valid() {
		return kind, errors.New("invalid range, expected today, week or month")
	}
	return kind, nil
}
