package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *Repository, id string) {
	t.Helper()
	require.NoError(t, repo.EnsureUser(context.Background(), id, id+"@example.com"))
}

func newExpense(userID string, categoryID int, cents int64, date core.Date) core.Expense {
	return core.Expense{
		ID:         uuid.NewString(),
		UserID:     userID,
		CategoryID: categoryID,
		Amount:     core.Money{Cents: cents},
		Date:       date,
	}
}

func TestMigrationsSeedCategories(t *testing.T) {
	repo := newTestRepository(t)

	rows, err := repo.db.Query(
		"SELECT id, name, slug, icon, order_index FROM categories ORDER BY order_index")
	require.NoError(t, err)
	defer rows.Close()

	// the seed must agree with the in-process registry row for row
	var seeded []core.Category
	for rows.Next() {
		var c core.Category
		require.NoError(t, rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Icon, &c.OrderIndex))
		seeded = append(seeded, c)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, core.Categories(), seeded)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureUser(ctx, "u1", "first@example.com"))
	require.NoError(t, repo.EnsureUser(ctx, "u1", "second@example.com"))

	u, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", u.Email, "conflict refreshes the email")
}

func TestCreateAndGetExpense(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")

	in := newExpense("u1", 1, 150000, core.NewDate(2025, 8, 10))
	in.Description = "スーパーで買い物"

	created, err := repo.CreateExpense(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in.ID, created.ID)
	assert.Equal(t, int64(150000), created.Amount.Cents)
	assert.Equal(t, "スーパーで買い物", created.Description)
	assert.Equal(t, "2025-08-10", created.Date.String())
	require.NotNil(t, created.Category)
	assert.Equal(t, "食費", created.Category.Name)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetExpense(ctx, "u1", in.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestGetExpenseOwnership(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedUser(t, repo, "u2")

	e := newExpense("u1", 2, 500, core.NewDate(2025, 8, 1))
	_, err := repo.CreateExpense(ctx, e)
	require.NoError(t, err)

	_, err = repo.GetExpense(ctx, "u2", e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "foreign rows look missing")

	_, err = repo.GetExpense(ctx, "u1", uuid.NewString())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListExpensesFilterAndPaging(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedUser(t, repo, "u2")

	dates := []core.Date{
		core.NewDate(2025, 8, 1),
		core.NewDate(2025, 8, 5),
		core.NewDate(2025, 8, 10),
		core.NewDate(2025, 8, 15),
	}
	for i, d := range dates {
		category := 1
		if i%2 == 1 {
			category = 3
		}
		_, err := repo.CreateExpense(ctx, newExpense("u1", category, int64(100*(i+1)), d))
		require.NoError(t, err)
	}
	_, err := repo.CreateExpense(ctx, newExpense("u2", 1, 999, dates[0]))
	require.NoError(t, err)

	// no filter: newest date first, other users excluded
	expenses, total, err := repo.ListExpenses(ctx, "u1", ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, expenses, 4)
	assert.Equal(t, "2025-08-15", expenses[0].Date.String())
	assert.Equal(t, "2025-08-01", expenses[3].Date.String())

	// category filter
	expenses, total, err = repo.ListExpenses(ctx, "u1", ListFilter{CategoryID: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, e := range expenses {
		assert.Equal(t, 3, e.CategoryID)
	}

	// date range filter, inclusive on both ends
	expenses, total, err = repo.ListExpenses(ctx, "u1", ListFilter{
		From:  core.NewDate(2025, 8, 5),
		To:    core.NewDate(2025, 8, 10),
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// paging keeps the full count
	expenses, total, err = repo.ListExpenses(ctx, "u1", ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, expenses, 2)
	assert.Equal(t, "2025-08-05", expenses[0].Date.String())
}

func TestListExpensesInRange(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")

	for _, d := range []core.Date{
		core.NewDate(2025, 7, 31),
		core.NewDate(2025, 8, 1),
		core.NewDate(2025, 8, 31),
		core.NewDate(2025, 9, 1),
	} {
		_, err := repo.CreateExpense(ctx, newExpense("u1", 1, 100, d))
		require.NoError(t, err)
	}

	expenses, err := repo.ListExpensesInRange(ctx, "u1",
		core.NewDate(2025, 8, 1), core.NewDate(2025, 8, 31))
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, "2025-08-01", expenses[0].Date.String(), "oldest first")
}

func TestUpdateExpense(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedUser(t, repo, "u2")

	e := newExpense("u1", 1, 1000, core.NewDate(2025, 8, 1))
	created, err := repo.CreateExpense(ctx, e)
	require.NoError(t, err)
	require.NoError(t, repo.MarkExported(ctx, e.ID))

	created.CategoryID = 4
	created.Amount = core.Money{Cents: 2500}
	created.Description = "更新済み"
	created.Date = core.NewDate(2025, 8, 2)

	updated, err := repo.UpdateExpense(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.CategoryID)
	assert.Equal(t, int64(2500), updated.Amount.Cents)
	assert.Equal(t, "更新済み", updated.Description)
	assert.Equal(t, "2025-08-02", updated.Date.String())

	pending, err := repo.GetPendingExports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "update re-queues the export")
	assert.Equal(t, e.ID, pending[0].ID)

	foreign := created
	foreign.UserID = "u2"
	_, err = repo.UpdateExpense(ctx, foreign)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteExpense(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedUser(t, repo, "u2")

	e := newExpense("u1", 1, 1000, core.NewDate(2025, 8, 1))
	_, err := repo.CreateExpense(ctx, e)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteExpense(ctx, "u2", e.ID), core.ErrNotFound)

	require.NoError(t, repo.DeleteExpense(ctx, "u1", e.ID))
	_, err = repo.GetExpense(ctx, "u1", e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteExpense(ctx, "u1", e.ID), core.ErrNotFound)
}

func TestExportQueueLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")

	first := newExpense("u1", 1, 100, core.NewDate(2025, 8, 1))
	second := newExpense("u1", 2, 200, core.NewDate(2025, 8, 2))
	_, err := repo.CreateExpense(ctx, first)
	require.NoError(t, err)
	_, err = repo.CreateExpense(ctx, second)
	require.NoError(t, err)

	pending, err := repo.GetPendingExports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2, "new expenses start pending")

	require.NoError(t, repo.MarkExported(ctx, first.ID))
	require.NoError(t, repo.MarkExportError(ctx, second.ID))

	pending, err = repo.GetPendingExports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "neither exported nor errored rows are retried")
}

func TestCreateExpenseRejectsNonPositiveAmount(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")

	_, err := repo.CreateExpense(ctx, newExpense("u1", 1, 0, core.NewDate(2025, 8, 1)))
	assert.Error(t, err, "amount check constraint holds")
}
