// Package storage persists users and expenses in SQLite. Category reference
// data is seeded by migration and read through internal/core; the database
// keeps a copy only for referential integrity.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kakeibo/internal/core"

	_ "modernc.org/sqlite"
)

// Export states for the Sheets export queue.
const (
	ExportStatePending  = "pending"
	ExportStateExported = "exported"
	ExportStateError    = "error"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureUser provisions the user row if it does not exist yet. The email is
// refreshed on conflict so a changed address eventually lands in the table.
func (r *Repository) EnsureUser(ctx context.Context, id, email string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, updated_at = datetime('now')`,
		id, email)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// GetUser returns the user row, or core.ErrNotFound.
func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	var u core.User
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, created_at, updated_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt, _ = parseTimestamp(createdAt)
	u.UpdatedAt, _ = parseTimestamp(updatedAt)
	return u, nil
}

// CreateExpense inserts the expense and queues it for export.
func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, category_id, amount_cents, description, date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.CategoryID, e.Amount.Cents, nullableString(e.Description), e.Date.String())
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return r.GetExpense(ctx, e.UserID, e.ID)
}

// GetExpense returns the expense if it exists and belongs to the user.
// A missing row and a foreign row are indistinguishable to the caller.
func (r *Repository) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, category_id, amount_cents, description, date, created_at, updated_at
		FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListFilter narrows and pages an expense listing.
type ListFilter struct {
	CategoryID int // 0 means all categories
	From       core.Date
	To         core.Date
	Limit      int
	Offset     int
}

// ListExpenses returns one page of the user's expenses, newest date first,
// ties broken by creation time, plus the total row count for the filter.
func (r *Repository) ListExpenses(ctx context.Context, userID string, f ListFilter) ([]core.Expense, int, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.CategoryID != 0 {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM expenses WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	query := `
		SELECT id, user_id, category_id, amount_cents, description, date, created_at, updated_at
		FROM expenses WHERE ` + cond + `
		ORDER BY date DESC, created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses, err := collectExpenses(rows)
	if err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

// ListExpensesInRange returns all of the user's expenses with dates in
// [from, to], oldest first. Used by the summary aggregations.
func (r *Repository) ListExpensesInRange(ctx context.Context, userID string, from, to core.Date) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category_id, amount_cents, description, date, created_at, updated_at
		FROM expenses WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, created_at ASC`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses in range: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// UpdateExpense overwrites the expense's mutable fields and re-queues it for
// export. Returns core.ErrNotFound when the row is missing or foreign.
func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET category_id = ?, amount_cents = ?, description = ?, date = ?,
		    export_state = ?, updated_at = datetime('now')
		WHERE id = ? AND user_id = ?`,
		e.CategoryID, e.Amount.Cents, nullableString(e.Description), e.Date.String(),
		ExportStatePending, e.ID, e.UserID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense rows affected: %w", err)
	}
	if affected == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return r.GetExpense(ctx, e.UserID, e.ID)
}

// DeleteExpense removes the expense. Returns core.ErrNotFound when the row
// is missing or foreign.
func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// PendingExport is one row of the Sheets export queue.
type PendingExport struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// GetPendingExports returns up to limit expenses awaiting export, oldest
// first.
func (r *Repository) GetPendingExports(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, created_at FROM expenses
		WHERE export_state = ?
		ORDER BY created_at ASC LIMIT ?`, ExportStatePending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	defer rows.Close()

	var pending []PendingExport
	for rows.Next() {
		var p PendingExport
		var createdAt string
		if err := rows.Scan(&p.ID, &p.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		p.CreatedAt, _ = parseTimestamp(createdAt)
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkExported records a successful export.
func (r *Repository) MarkExported(ctx context.Context, id string) error {
	return r.setExportState(ctx, id, ExportStateExported)
}

// MarkExportError records a failed export attempt. The periodic sweep does
// not retry errored rows; they need operator attention.
func (r *Repository) MarkExportError(ctx context.Context, id string) error {
	return r.setExportState(ctx, id, ExportStateError)
}

func (r *Repository) setExportState(ctx context.Context, id, state string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_state = ? WHERE id = ?`, state, id)
	if err != nil {
		return fmt.Errorf("set export state %s: %w", state, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var description sql.NullString
	var date, createdAt, updatedAt string
	err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Amount.Cents,
		&description, &date, &createdAt, &updatedAt)
	if err != nil {
		return core.Expense{}, err
	}
	e.Description = description.String
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	e.CreatedAt, _ = parseTimestamp(createdAt)
	e.UpdatedAt, _ = parseTimestamp(updatedAt)
	if category, ok := core.CategoryByID(e.CategoryID); ok {
		e.Category = &category
	}
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05", s)
}
