// Package services orchestrates expense operations across storage, the
// event stream and the aggregation layer.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"kakeibo/internal/amqp"
	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/storage"
	"kakeibo/internal/validation"
)

// FallbackEmail is stored when the token carries no email claim.
const FallbackEmail = "unknown@example.com"

// Listing page bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// EventPublisher emits expense change notifications. Publishing is best
// effort; failures never fail the originating request.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, msg *amqp.ExpenseEvent) error
}

// ExpenseService owns the expense lifecycle for authenticated users.
type ExpenseService struct {
	storage   *storage.Repository
	publisher EventPublisher
	logger    *log.Logger
}

func NewExpenseService(storage *storage.Repository, publisher EventPublisher, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		storage:   storage,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentService),
	}
}

// Create validates the submission, provisions the user row on first write
// and stores the expense. A non-empty validation result means the input was
// rejected; the error covers infrastructure failures only.
func (s *ExpenseService) Create(ctx context.Context, identity auth.Identity, in validation.SubmissionInput, today core.Date) (core.Expense, validation.Result, error) {
	result := validation.CheckSubmission(in, today)
	if !result.OK() {
		return core.Expense{}, result, nil
	}

	email := identity.Email
	if email == "" {
		email = FallbackEmail
	}
	if err := s.storage.EnsureUser(ctx, identity.UserID, email); err != nil {
		return core.Expense{}, result, fmt.Errorf("ensure user: %w", err)
	}

	expense, err := expenseFromSubmission(identity.UserID, in)
	if err != nil {
		return core.Expense{}, result, err
	}

	created, err := s.storage.CreateExpense(ctx, expense)
	if err != nil {
		return core.Expense{}, result, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, amqp.EventExpenseCreated, created.ID, identity.UserID)
	return created, result, nil
}

// Get returns the user's expense. Malformed IDs short-circuit to
// core.ErrNotFound without touching the database.
func (s *ExpenseService) Get(ctx context.Context, userID, id string) (core.Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Expense{}, core.ErrNotFound
	}
	return s.storage.GetExpense(ctx, userID, id)
}

// ListParams narrows and pages a listing. Zero values mean "all".
type ListParams struct {
	Page       int
	Limit      int
	CategoryID int
	From       core.Date
	To         core.Date
}

// ListResult is one page of expenses plus pagination metadata.
type ListResult struct {
	Expenses   []core.Expense
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// List returns a page of the user's expenses, newest first. The page size
// defaults to 20 and is capped at 100; page numbers start at 1.
func (s *ExpenseService) List(ctx context.Context, userID string, p ListParams) (ListResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}

	expenses, total, err := s.storage.ListExpenses(ctx, userID, storage.ListFilter{
		CategoryID: p.CategoryID,
		From:       p.From,
		To:         p.To,
		Limit:      p.Limit,
		Offset:     (p.Page - 1) * p.Limit,
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list expenses: %w", err)
	}

	totalPages := total / p.Limit
	if total%p.Limit != 0 {
		totalPages++
	}

	return ListResult{
		Expenses:   expenses,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// Update re-validates the raw fields with the submission rules and
// overwrites the expense. Ownership is enforced by the storage query.
func (s *ExpenseService) Update(ctx context.Context, userID, id string, in validation.SubmissionInput, today core.Date) (core.Expense, validation.Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Expense{}, validation.Result{}, core.ErrNotFound
	}

	result := validation.CheckSubmission(in, today)
	if !result.OK() {
		return core.Expense{}, result, nil
	}

	expense, err := expenseFromSubmission(userID, in)
	if err != nil {
		return core.Expense{}, result, err
	}
	expense.ID = id

	updated, err := s.storage.UpdateExpense(ctx, expense)
	if err != nil {
		return core.Expense{}, result, err
	}

	s.publish(ctx, amqp.EventExpenseUpdated, id, userID)
	return updated, result, nil
}

// Delete removes the user's expense and emits a deletion event.
func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return core.ErrNotFound
	}
	if err := s.storage.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}

	s.publish(ctx, amqp.EventExpenseDeleted, id, userID)
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, event, expenseID, userID string) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewExpenseEvent(event, expenseID, userID)
	if err := s.publisher.PublishExpenseEvent(ctx, msg); err != nil {
		// the expense is already persisted, the worker's periodic sweep
		// picks up what the stream misses
		s.logger.ErrorContext(ctx, "failed to publish expense event",
			log.FieldError, err,
			log.FieldEvent, event,
			log.FieldExpenseID, expenseID)
	}
}

func expenseFromSubmission(userID string, in validation.SubmissionInput) (core.Expense, error) {
	// inputs were validated, failures here are programming errors
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse amount: %w", err)
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse date: %w", err)
	}
	categoryID, err := strconv.Atoi(strings.TrimSpace(in.CategoryID))
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse category: %w", err)
	}

	return core.Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      core.Money{Cents: cents},
		Description: in.Description,
		Date:        date,
	}, nil
}
