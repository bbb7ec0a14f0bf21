// Package worker drains the expense change stream and exports rows to the
// configured Google Sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/storage"
)

// Exporter is the sheet-side half of the export pipeline.
type Exporter interface {
	AppendExpense(ctx context.Context, e core.Expense) error
}

// ExportWorker consumes expense events, loads the current row from storage
// and appends it to the sheet. Deletions only log; the sheet is an
// append-only journal.
type ExportWorker struct {
	storage   *storage.Repository
	exporter  Exporter
	batchSize int
	logger    *log.Logger
}

func NewExportWorker(storage *storage.Repository, exporter Exporter, batchSize int, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes one change notification. The database row is the
// source of truth; the event only says which row to look at.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEvent) error {
	if msg.Event == amqp.EventExpenseDeleted {
		w.logger.InfoContext(ctx, "expense deleted, sheet rows are kept",
			log.FieldExpenseID, msg.ExpenseID)
		return nil
	}

	expense, err := w.storage.GetExpense(ctx, msg.UserID, msg.ExpenseID)
	if errors.Is(err, core.ErrNotFound) {
		// deleted between the event and now, nothing to export
		w.logger.WarnContext(ctx, "expense vanished before export",
			log.FieldExpenseID, msg.ExpenseID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}

	return w.export(ctx, expense)
}

// ProcessPending sweeps rows the event stream missed, for example while
// the broker was down. Errored rows are not retried here.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "processing pending exports", log.FieldCount, len(pending))

	for _, p := range pending {
		expense, err := w.storage.GetExpense(ctx, p.UserID, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "failed to load pending expense",
				log.FieldExpenseID, p.ID, log.FieldError, err)
			if err := w.storage.MarkExportError(ctx, p.ID); err != nil {
				w.logger.ErrorContext(ctx, "failed to mark export error",
					log.FieldExpenseID, p.ID, log.FieldError, err)
			}
			continue
		}
		if err := w.export(ctx, expense); err != nil {
			w.logger.ErrorContext(ctx, "failed to export pending expense",
				log.FieldExpenseID, p.ID, log.FieldError, err)
		}
	}

	return nil
}

// Run consumes pending rows on a fixed interval until the context ends.
// Used alongside the AMQP consumer as a catch-up sweep.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				w.logger.ErrorContext(ctx, "pending sweep failed", log.FieldError, err)
			}
		}
	}
}

func (w *ExportWorker) export(ctx context.Context, expense core.Expense) error {
	if err := w.exporter.AppendExpense(ctx, expense); err != nil {
		if markErr := w.storage.MarkExportError(ctx, expense.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to mark export error",
				log.FieldExpenseID, expense.ID, log.FieldError, markErr)
		}
		return fmt.Errorf("append expense: %w", err)
	}

	if err := w.storage.MarkExported(ctx, expense.ID); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}

	w.logger.InfoContext(ctx, "expense exported",
		log.FieldExpenseID, expense.ID,
		log.FieldUserID, expense.UserID)
	return nil
}
