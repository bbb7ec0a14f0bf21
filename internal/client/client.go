// Package client is a typed HTTP client for the expense API, used by the
// command line tool.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/validation"
)

// APIError carries the server's structured error response.
type APIError struct {
	Status  int
	Message string
	Details []validation.FieldIssue
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Expense mirrors the server's wire representation.
type Expense struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	CategoryID  int            `json:"category_id"`
	Amount      float64        `json:"amount"`
	Description string         `json:"description,omitempty"`
	Date        string         `json:"date"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Category    *core.Category `json:"category,omitempty"`
}

// ToCore converts a wire expense to the domain form. Fractional yen are
// rounded to the nearest cent.
func (e Expense) ToCore() (core.Expense, error) {
	date, err := core.ParseDate(e.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse date %q: %w", e.Date, err)
	}
	out := core.Expense{
		ID:          e.ID,
		UserID:      e.UserID,
		CategoryID:  e.CategoryID,
		Amount:      core.Money{Cents: int64(e.Amount*100 + 0.5)},
		Description: e.Description,
		Date:        date,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Category:    e.Category,
	}
	return out, nil
}

// Pagination is the listing metadata block.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ExpensePage is one page of a listing.
type ExpensePage struct {
	Expenses   []Expense
	Pagination Pagination
}

// ExpenseInput is the request payload for creates and updates. All fields
// are strings; the server does the validation.
type ExpenseInput struct {
	Amount      string `json:"amount"`
	CategoryID  string `json:"category_id"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// ListOptions narrows a listing request.
type ListOptions struct {
	Page       int
	Limit      int
	CategoryID int
	From       string
	To         string
}

// Summary mirrors the server's aggregation payload.
type Summary struct {
	Range       string  `json:"range"`
	Granularity string  `json:"granularity"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Total       float64 `json:"total"`
	Count       int     `json:"count"`
	Trend       []struct {
		Label string  `json:"label"`
		Total float64 `json:"total"`
		Count int     `json:"count"`
	} `json:"trend"`
	Breakdown []struct {
		Category   core.Category `json:"category"`
		Total      float64       `json:"total"`
		Count      int           `json:"count"`
		Percentage float64       `json:"percentage"`
	} `json:"breakdown"`
	Comparison struct {
		Current          float64 `json:"current"`
		Previous         float64 `json:"previous"`
		PercentageChange float64 `json:"percentageChange"`
	} `json:"comparison"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Create(ctx context.Context, in ExpenseInput) (Expense, error) {
	var out struct {
		Data Expense `json:"data"`
	}
	err := c.do(ctx, http.MethodPost, "/api/expenses", in, &out)
	return out.Data, err
}

func (c *Client) Get(ctx context.Context, id string) (Expense, error) {
	var out struct {
		Data Expense `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/expenses/"+url.PathEscape(id), nil, &out)
	return out.Data, err
}

func (c *Client) List(ctx context.Context, opts ListOptions) (ExpensePage, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.CategoryID > 0 {
		q.Set("category", strconv.Itoa(opts.CategoryID))
	}
	if opts.From != "" {
		q.Set("from", opts.From)
	}
	if opts.To != "" {
		q.Set("to", opts.To)
	}
	target := "/api/expenses"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var out struct {
		Data       []Expense  `json:"data"`
		Pagination Pagination `json:"pagination"`
	}
	if err := c.do(ctx, http.MethodGet, target, nil, &out); err != nil {
		return ExpensePage{}, err
	}
	return ExpensePage{Expenses: out.Data, Pagination: out.Pagination}, nil
}

func (c *Client) Update(ctx context.Context, id string, in ExpenseInput) (Expense, error) {
	var out struct {
		Data Expense `json:"data"`
	}
	err := c.do(ctx, http.MethodPut, "/api/expenses/"+url.PathEscape(id), in, &out)
	return out.Data, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/expenses/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	var out struct {
		Data []core.Category `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &out)
	return out.Data, err
}

func (c *Client) Summary(ctx context.Context, rangeKind string) (Summary, error) {
	target := "/api/summary"
	if rangeKind != "" {
		target += "?range=" + url.QueryEscape(rangeKind)
	}
	var out struct {
		Data Summary `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, target, nil, &out)
	return out.Data, err
}

func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error   string                  `json:"error"`
			Details []validation.FieldIssue `json:"details"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Details = payload.Details
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
