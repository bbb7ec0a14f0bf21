package client

import (
	"context"
	"fmt"
	"strconv"

	"kakeibo/internal/core"
	"kakeibo/internal/reconcile"
)

// Session keeps a locally cached expense list that responds to edits and
// deletions before the server confirms them. A failed request rolls the
// view back to the last confirmed state and reports through Notify.
type Session struct {
	api     *Client
	overlay *reconcile.Overlay

	// Notify is called with a user-facing message when a staged mutation
	// is rolled back. Optional.
	Notify func(message string)
}

func NewSession(api *Client) *Session {
	return &Session{api: api, overlay: reconcile.New(nil)}
}

// Refresh loads a fresh page from the server, dropping any staged state.
func (s *Session) Refresh(ctx context.Context, opts ListOptions) (Pagination, error) {
	page, err := s.api.List(ctx, opts)
	if err != nil {
		return Pagination{}, err
	}
	expenses := make([]core.Expense, 0, len(page.Expenses))
	for _, e := range page.Expenses {
		converted, err := e.ToCore()
		if err != nil {
			return Pagination{}, err
		}
		expenses = append(expenses, converted)
	}
	s.overlay.Reset(expenses)
	return page.Pagination, nil
}

// View returns the expense list as the user should currently see it,
// including any unconfirmed mutation.
func (s *Session) View() []core.Expense {
	return s.overlay.View()
}

// State exposes the lifecycle of the last staged mutation.
func (s *Session) State() reconcile.State {
	return s.overlay.State()
}

// Update applies the edit locally, then confirms it with the server. On
// rejection the local view reverts and the server's error is returned.
func (s *Session) Update(ctx context.Context, id string, in ExpenseInput) error {
	tentative, err := tentativeExpense(s.overlay.View(), id, in)
	if err != nil {
		return err
	}
	if err := s.overlay.StageUpdate(tentative); err != nil {
		return err
	}

	confirmed, err := s.api.Update(ctx, id, in)
	if err != nil {
		s.rollback(fmt.Sprintf("更新に失敗しました: %v", err))
		return err
	}

	converted, convErr := confirmed.ToCore()
	if convErr != nil {
		s.rollback("サーバー応答を解釈できませんでした")
		return convErr
	}
	return s.overlay.Commit(converted)
}

// Delete removes the expense locally, then confirms with the server.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.overlay.StageDelete(id); err != nil {
		return err
	}

	if err := s.api.Delete(ctx, id); err != nil {
		s.rollback(fmt.Sprintf("削除に失敗しました: %v", err))
		return err
	}
	return s.overlay.CommitDelete()
}

func (s *Session) rollback(message string) {
	if err := s.overlay.Rollback(); err != nil {
		return
	}
	if s.Notify != nil {
		s.Notify(message)
	}
}

// tentativeExpense builds the optimistic record shown while the server
// decides: the current record with the edited fields overlaid.
func tentativeExpense(current []core.Expense, id string, in ExpenseInput) (core.Expense, error) {
	var base *core.Expense
	for i := range current {
		if current[i].ID == id {
			base = &current[i]
			break
		}
	}
	if base == nil {
		return core.Expense{}, core.ErrNotFound
	}

	tentative := *base
	if cents, err := core.ParseDecimalToCents(in.Amount); err == nil {
		tentative.Amount = core.Money{Cents: cents}
	}
	if date, err := core.ParseDate(in.Date); err == nil {
		tentative.Date = date
	}
	if categoryID, err := strconv.Atoi(in.CategoryID); err == nil {
		if category, ok := core.CategoryByID(categoryID); ok {
			tentative.CategoryID = categoryID
			tentative.Category = &category
		}
	}
	tentative.Description = in.Description
	return tentative, nil
}
