package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-08-28")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2025 || d.Month() != 8 || d.Day() != 28 {
		t.Fatalf("unexpected date %v", d)
	}
	if d.String() != "2025-08-28" {
		t.Fatalf("round trip failed: %q", d.String())
	}

	for _, bad := range []string{"", "2025/08/28", "28-08-2025", "not-a-date"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestDateWithin(t *testing.T) {
	start := NewDate(2025, 1, 1)
	end := NewDate(2025, 1, 31)

	cases := []struct {
		d    Date
		want bool
	}{
		{NewDate(2025, 1, 1), true},  // boundary start
		{NewDate(2025, 1, 31), true}, // boundary end
		{NewDate(2025, 1, 15), true},
		{NewDate(2024, 12, 31), false},
		{NewDate(2025, 2, 1), false},
	}
	for i, tc := range cases {
		if got := tc.d.Within(start, end); got != tc.want {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, got)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: MaxAmountCents + 1}).Validate(); err == nil {
		t.Fatalf("expected error over maximum")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:       NewDate(2025, 1, 1),
		Amount:     Money{Cents: 150000},
		CategoryID: 1,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: Date{Time: time.Time{}}, Amount: Money{Cents: 1}, CategoryID: 1}, // zero date
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 0}, CategoryID: 1},     // zero amount
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, CategoryID: 0},     // no such category
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, CategoryID: 10},    // no such category
	}
	for i, bad := range bads {
		if err := bad.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategoryRegistry(t *testing.T) {
	cats := Categories()
	if len(cats) != 9 {
		t.Fatalf("expected 9 categories, got %d", len(cats))
	}
	for i, c := range cats {
		if c.ID != i+1 {
			t.Fatalf("category %d has ID %d", i, c.ID)
		}
		if c.Name == "" || c.Slug == "" || c.Icon == "" {
			t.Fatalf("category %d incomplete: %+v", i, c)
		}
	}

	if _, ok := CategoryByID(0); ok {
		t.Fatalf("ID 0 should not resolve")
	}
	if _, ok := CategoryByID(10); ok {
		t.Fatalf("ID 10 should not resolve")
	}
	c, ok := CategoryByID(1)
	if !ok || c.Slug != "food" {
		t.Fatalf("unexpected category for ID 1: %+v", c)
	}
}
