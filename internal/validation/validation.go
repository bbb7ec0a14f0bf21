// Package validation rejects malformed expense submissions before they
// reach the network or the database. Validators return structured results
// with field-level issues; they never return errors or panic.
//
// The submission and edit rule sets differ on purpose: the submission form
// caps descriptions at 200 characters and bounds dates to the last year,
// while the edit form allows 500 characters and any parseable date. The
// server re-checks updates with the submission rules.
package validation

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"kakeibo/internal/core"
)

// FieldIssue is one validation failure, addressed to a form field.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects the issues of one validation pass.
type Result struct {
	Issues []FieldIssue
}

// OK reports whether validation passed.
func (r Result) OK() bool {
	return len(r.Issues) == 0
}

func (r *Result) add(field, message string) {
	r.Issues = append(r.Issues, FieldIssue{Field: field, Message: message})
}

// Character limits for the description field. See the package comment for
// why the two forms disagree.
const (
	SubmitDescriptionMax = 200
	EditDescriptionMax   = 500
)

// SubmissionInput is the raw, string-typed form payload.
type SubmissionInput struct {
	Amount      string
	CategoryID  string
	Description string
	Date        string
}

// CheckSubmission validates a new-expense submission against the strict
// rule set: positive amount up to 9,999,999.99, category 1-9, description
// up to 200 characters, date within [today - 1 year, today].
func CheckSubmission(in SubmissionInput, today core.Date) Result {
	var r Result

	amount := strings.TrimSpace(in.Amount)
	if amount == "" {
		r.add("amount", "金額を入力してください")
	} else if cents, err := core.ParseDecimalToCents(amount); err != nil {
		if err == core.ErrAmountTooLarge {
			r.add("amount", "金額は999万円以下で入力してください")
		} else {
			r.add("amount", "有効な金額を入力してください")
		}
	} else if cents > core.MaxAmountCents {
		r.add("amount", "金額は999万円以下で入力してください")
	}

	category := strings.TrimSpace(in.CategoryID)
	if category == "" {
		r.add("category_id", "カテゴリを選択してください")
	} else if id, err := strconv.Atoi(category); err != nil {
		r.add("category_id", "有効なカテゴリを選択してください")
	} else if _, ok := core.CategoryByID(id); !ok {
		r.add("category_id", "有効なカテゴリを選択してください")
	}

	if utf8.RuneCountInString(in.Description) > SubmitDescriptionMax {
		r.add("description", "説明は200文字以下で入力してください")
	}

	if strings.TrimSpace(in.Date) == "" {
		r.add("date", "日付を選択してください")
	} else if d, err := core.ParseDate(in.Date); err != nil {
		r.add("date", "有効な日付を入力してください")
	} else {
		oneYearAgo := core.Date{Time: today.AddDate(-1, 0, 0)}
		if d.After(today) || d.Before(oneYearAgo) {
			r.add("date", "日付は今日から1年前の範囲で選択してください")
		}
	}

	return r
}

// EditInput is the typed edit-form payload.
type EditInput struct {
	Amount      core.Money
	CategoryID  int
	Description string
	Date        core.Date
}

// CheckEdit validates an edit with the looser rule set: positive amount up
// to 9,999,999.99, category 1-9, description up to 500 characters, any
// parseable date. The one-year lookback bound is intentionally absent here.
func CheckEdit(in EditInput) Result {
	var r Result

	switch {
	case in.Amount.Cents <= 0:
		r.add("amount", "金額は0より大きい値を入力してください")
	case in.Amount.Cents > core.MaxAmountCents:
		r.add("amount", "金額は9,999,999円以下で入力してください")
	}

	if _, ok := core.CategoryByID(in.CategoryID); !ok {
		r.add("category_id", "無効なカテゴリです")
	}

	if utf8.RuneCountInString(in.Description) > EditDescriptionMax {
		r.add("description", "メモは500文字以内で入力してください")
	}

	if in.Date.IsZero() {
		r.add("date", "有効な日付を入力してください")
	}

	return r
}
