package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/storage"
)

type fakeExporter struct {
	rows []core.Expense
	err  error
}

func (f *fakeExporter) AppendExpense(ctx context.Context, e core.Expense) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, e)
	return nil
}

func newTestWorker(t *testing.T) (*ExportWorker, *storage.Repository, *fakeExporter) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	exporter := &fakeExporter{}
	w := NewExportWorker(repo, exporter, 10, log.New(log.DefaultConfig()))
	return w, repo, exporter
}

func seedExpense(t *testing.T, repo *storage.Repository, userID string) core.Expense {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.EnsureUser(ctx, userID, userID+"@example.com"))
	created, err := repo.CreateExpense(ctx, core.Expense{
		ID:         uuid.NewString(),
		UserID:     userID,
		CategoryID: 1,
		Amount:     core.Money{Cents: 150000},
		Date:       core.NewDate(2025, 8, 28),
	})
	require.NoError(t, err)
	return created
}

func TestHandleEventExportsAndMarks(t *testing.T) {
	w, repo, exporter := newTestWorker(t)
	ctx := context.Background()
	expense := seedExpense(t, repo, "u1")

	msg := amqp.NewExpenseEvent(amqp.EventExpenseCreated, expense.ID, "u1")
	require.NoError(t, w.HandleEvent(ctx, msg))

	require.Len(t, exporter.rows, 1)
	assert.Equal(t, expense.ID, exporter.rows[0].ID)

	pending, err := repo.GetPendingExports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "exported row left the queue")
}

func TestHandleEventIgnoresDeletions(t *testing.T) {
	w, _, exporter := newTestWorker(t)

	msg := amqp.NewExpenseEvent(amqp.EventExpenseDeleted, uuid.NewString(), "u1")
	require.NoError(t, w.HandleEvent(context.Background(), msg))
	assert.Empty(t, exporter.rows)
}

func TestHandleEventToleratesVanishedExpense(t *testing.T) {
	w, _, exporter := newTestWorker(t)

	msg := amqp.NewExpenseEvent(amqp.EventExpenseUpdated, uuid.NewString(), "u1")
	require.NoError(t, w.HandleEvent(context.Background(), msg),
		"a row deleted before export is not an error")
	assert.Empty(t, exporter.rows)
}

func TestHandleEventMarksErrorOnExportFailure(t *testing.T) {
	w, repo, exporter := newTestWorker(t)
	ctx := context.Background()
	expense := seedExpense(t, repo, "u1")
	exporter.err = errors.New("quota exceeded")

	msg := amqp.NewExpenseEvent(amqp.EventExpenseCreated, expense.ID, "u1")
	assert.Error(t, w.HandleEvent(ctx, msg))

	pending, err := repo.GetPendingExports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "failed row moved to error state, not retried")
}

func TestProcessPending(t *testing.T) {
	w, repo, exporter := newTestWorker(t)
	ctx := context.Background()

	first := seedExpense(t, repo, "u1")
	second := seedExpense(t, repo, "u2")

	require.NoError(t, w.ProcessPending(ctx))
	assert.Len(t, exporter.rows, 2)

	pending, err := repo.GetPendingExports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// both really exported
	ids := []string{exporter.rows[0].ID, exporter.rows[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}

func TestProcessPendingEmptyQueue(t *testing.T) {
	w, _, exporter := newTestWorker(t)
	require.NoError(t, w.ProcessPending(context.Background()))
	assert.Empty(t, exporter.rows)
}
