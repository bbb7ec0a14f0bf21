package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/amqp"
	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/report"
	"kakeibo/internal/storage"
	"kakeibo/internal/validation"
)

var today = core.NewDate(2025, 8, 28)

type fakePublisher struct {
	events []*amqp.ExpenseEvent
	err    error
}

func (f *fakePublisher) PublishExpenseEvent(ctx context.Context, msg *amqp.ExpenseEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, msg)
	return nil
}

func newTestService(t *testing.T) (*ExpenseService, *fakePublisher) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	publisher := &fakePublisher{}
	return NewExpenseService(repo, publisher, log.New(log.DefaultConfig())), publisher
}

func submission() validation.SubmissionInput {
	return validation.SubmissionInput{
		Amount:      "1500",
		CategoryID:  "1",
		Description: "ランチ",
		Date:        "2025-08-28",
	}
}

func TestCreateExpense(t *testing.T) {
	svc, publisher := newTestService(t)
	ctx := context.Background()

	identity := auth.Identity{UserID: "u1", Email: "u1@example.com"}
	created, result, err := svc.Create(ctx, identity, submission(), today)
	require.NoError(t, err)
	require.True(t, result.OK())

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, int64(150000), created.Amount.Cents)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, amqp.EventExpenseCreated, publisher.events[0].Event)
	assert.Equal(t, created.ID, publisher.events[0].ExpenseID)
}

func TestCreateExpenseRejectsInvalidInput(t *testing.T) {
	svc, publisher := newTestService(t)

	in := submission()
	in.Amount = "0"
	_, result, err := svc.Create(context.Background(),
		auth.Identity{UserID: "u1"}, in, today)
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Empty(t, publisher.events, "rejected input publishes nothing")

	listed, err := svc.List(context.Background(), "u1", ListParams{})
	require.NoError(t, err)
	assert.Zero(t, listed.Total)
}

func TestCreateExpenseFallbackEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, result, err := svc.Create(ctx, auth.Identity{UserID: "u1"}, submission(), today)
	require.NoError(t, err)
	require.True(t, result.OK())

	u, err := svc.storage.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, FallbackEmail, u.Email)
}

func TestCreateExpenseSurvivesPublishFailure(t *testing.T) {
	svc, publisher := newTestService(t)
	publisher.err = errors.New("broker down")

	created, result, err := svc.Create(context.Background(),
		auth.Identity{UserID: "u1", Email: "u1@example.com"}, submission(), today)
	require.NoError(t, err, "publish failures never fail the request")
	require.True(t, result.OK())

	_, err = svc.Get(context.Background(), "u1", created.ID)
	assert.NoError(t, err)
}

func TestGetRejectsMalformedID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "u1", "not-a-uuid")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Get(context.Background(), "u1", "1; DROP TABLE expenses")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateExpense(t *testing.T) {
	svc, publisher := newTestService(t)
	ctx := context.Background()
	identity := auth.Identity{UserID: "u1", Email: "u1@example.com"}

	created, _, err := svc.Create(ctx, identity, submission(), today)
	require.NoError(t, err)

	in := submission()
	in.Amount = "2000"
	in.CategoryID = "4"
	updated, result, err := svc.Update(ctx, "u1", created.ID, in, today)
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, int64(200000), updated.Amount.Cents)
	assert.Equal(t, 4, updated.CategoryID)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, amqp.EventExpenseUpdated, publisher.events[1].Event)
}

func TestUpdateReValidatesWithSubmissionRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	identity := auth.Identity{UserID: "u1", Email: "u1@example.com"}

	created, _, err := svc.Create(ctx, identity, submission(), today)
	require.NoError(t, err)

	// dates older than one year fail the submission rule set
	in := submission()
	in.Date = "2020-01-01"
	_, result, err := svc.Update(ctx, "u1", created.ID, in, today)
	require.NoError(t, err)
	assert.False(t, result.OK())
}

func TestUpdateOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, _, err := svc.Create(ctx,
		auth.Identity{UserID: "u1", Email: "u1@example.com"}, submission(), today)
	require.NoError(t, err)

	_, _, err = svc.Update(ctx, "u2", created.ID, submission(), today)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteExpense(t *testing.T) {
	svc, publisher := newTestService(t)
	ctx := context.Background()
	identity := auth.Identity{UserID: "u1", Email: "u1@example.com"}

	created, _, err := svc.Create(ctx, identity, submission(), today)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", created.ID), core.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "u1", "garbage"), core.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "u1", created.ID))
	_, err = svc.Get(ctx, "u1", created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, amqp.EventExpenseDeleted, publisher.events[1].Event)
}

func TestListDefaultsAndCaps(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	identity := auth.Identity{UserID: "u1", Email: "u1@example.com"}

	for i := 0; i < 25; i++ {
		in := submission()
		_, result, err := svc.Create(ctx, identity, in, today)
		require.NoError(t, err)
		require.True(t, result.OK())
	}

	page, err := svc.List(ctx, "u1", ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.Limit)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Expenses, DefaultPageSize)

	page, err = svc.List(ctx, "u1", ListParams{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Expenses, 5)

	page, err = svc.List(ctx, "u1", ListParams{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Limit)
}

func TestSummarize(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	identity := auth.Identity{UserID: "u1", Email: "u1@example.com"}

	add := func(amount, category, date string) {
		in := submission()
		in.Amount = amount
		in.CategoryID = category
		in.Date = date
		_, result, err := svc.Create(ctx, identity, in, today)
		require.NoError(t, err)
		require.True(t, result.OK(), "issues: %v", result.Issues)
	}

	// August 2025 is the current month
	add("700", "1", "2025-08-05")
	add("300", "3", "2025-08-20")
	// July lands in the previous period
	add("500", "1", "2025-07-10")

	summary, err := svc.Summarize(ctx, "u1", report.RangeMonth, today)
	require.NoError(t, err)

	assert.Equal(t, "2025-08-01", summary.Start.String())
	assert.Equal(t, "2025-08-31", summary.End.String())
	assert.Equal(t, int64(100000), summary.Total.Cents)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, report.Weekly, summary.Granularity)

	require.Len(t, summary.Breakdown, 2)
	assert.Equal(t, int64(70000), summary.Breakdown[0].Total.Cents)
	assert.InDelta(t, 70.0, summary.Breakdown[0].Percentage, 0.001)

	assert.Equal(t, int64(50000), summary.Comparison.Previous.Cents)
	assert.InDelta(t, 100.0, summary.Comparison.PercentageChange, 0.001)
}
