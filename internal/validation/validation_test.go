package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"kakeibo/internal/core"
)

var today = core.NewDate(2025, 8, 28)

func validSubmission() SubmissionInput {
	return SubmissionInput{
		Amount:      "1500",
		CategoryID:  "1",
		Description: "ランチ",
		Date:        "2025-08-28",
	}
}

func fieldsOf(r Result) []string {
	out := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		out[i] = issue.Field
	}
	return out
}

func TestCheckSubmissionValid(t *testing.T) {
	r := CheckSubmission(validSubmission(), today)
	assert.True(t, r.OK(), "issues: %v", r.Issues)
}

func TestCheckSubmissionAmount(t *testing.T) {
	cases := []struct {
		amount string
		ok     bool
	}{
		{"0", false},
		{"-100", false},
		{"abc", false},
		{"", false},
		{"0.01", true},
		{"9999999.99", true},
		{"10000000", false},
	}
	for _, tc := range cases {
		in := validSubmission()
		in.Amount = tc.amount
		r := CheckSubmission(in, today)
		if tc.ok {
			assert.True(t, r.OK(), "amount %q: %v", tc.amount, r.Issues)
		} else {
			assert.Equal(t, []string{"amount"}, fieldsOf(r), "amount %q", tc.amount)
		}
	}
}

func TestCheckSubmissionCategory(t *testing.T) {
	cases := []struct {
		category string
		ok       bool
	}{
		{"1", true},
		{"9", true},
		{"0", false},
		{"10", false},
		{"", false},
		{"x", false},
	}
	for _, tc := range cases {
		in := validSubmission()
		in.CategoryID = tc.category
		r := CheckSubmission(in, today)
		if tc.ok {
			assert.True(t, r.OK(), "category %q: %v", tc.category, r.Issues)
		} else {
			assert.Equal(t, []string{"category_id"}, fieldsOf(r), "category %q", tc.category)
		}
	}
}

func TestCheckSubmissionDescription(t *testing.T) {
	in := validSubmission()
	in.Description = strings.Repeat("あ", 200)
	assert.True(t, CheckSubmission(in, today).OK(), "200 characters allowed")

	in.Description = strings.Repeat("あ", 201)
	assert.Equal(t, []string{"description"}, fieldsOf(CheckSubmission(in, today)))

	in.Description = ""
	assert.True(t, CheckSubmission(in, today).OK(), "description is optional")
}

func TestCheckSubmissionDateBounds(t *testing.T) {
	cases := []struct {
		date string
		ok   bool
	}{
		{"2025-08-28", true}, // today
		{"2024-08-28", true}, // exactly one year back
		{"2024-08-27", false},
		{"2025-08-29", false}, // future
		{"", false},
		{"28/08/2025", false},
	}
	for _, tc := range cases {
		in := validSubmission()
		in.Date = tc.date
		r := CheckSubmission(in, today)
		if tc.ok {
			assert.True(t, r.OK(), "date %q: %v", tc.date, r.Issues)
		} else {
			assert.Equal(t, []string{"date"}, fieldsOf(r), "date %q", tc.date)
		}
	}
}

func TestCheckSubmissionCollectsAllIssues(t *testing.T) {
	r := CheckSubmission(SubmissionInput{}, today)
	assert.ElementsMatch(t, []string{"amount", "category_id", "date"}, fieldsOf(r))
}

func TestCheckEdit(t *testing.T) {
	valid := EditInput{
		Amount:      core.Money{Cents: 150000},
		CategoryID:  3,
		Description: strings.Repeat("あ", 500),
		Date:        core.NewDate(2020, 1, 1), // old dates allowed on edit
	}
	assert.True(t, CheckEdit(valid).OK())

	bad := valid
	bad.Amount = core.Money{Cents: 0}
	assert.Equal(t, []string{"amount"}, fieldsOf(CheckEdit(bad)))

	bad = valid
	bad.Amount = core.Money{Cents: core.MaxAmountCents + 1}
	assert.Equal(t, []string{"amount"}, fieldsOf(CheckEdit(bad)))

	bad = valid
	bad.CategoryID = 10
	assert.Equal(t, []string{"category_id"}, fieldsOf(CheckEdit(bad)))

	bad = valid
	bad.Description = strings.Repeat("あ", 501)
	assert.Equal(t, []string{"description"}, fieldsOf(CheckEdit(bad)))

	bad = valid
	bad.Date = core.Date{}
	assert.Equal(t, []string{"date"}, fieldsOf(CheckEdit(bad)))
}
