// Command kakeibo-cli is a terminal client for the expense API. Edits and
// deletions update the local view immediately and roll back with a notice
// when the server rejects them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"kakeibo/internal/auth"
	"kakeibo/internal/client"
	"kakeibo/internal/core"
)

const usage = `usage: kakeibo-cli <command> [flags]

commands:
  list        show expenses
  add         record an expense
  edit        update an expense
  delete      remove an expense
  summary     show aggregated spending
  categories  list categories

environment:
  KAKEIBO_API_URL  server base URL (default http://localhost:8081)
  KAKEIBO_TOKEN    bearer token
  KAKEIBO_USER     issue a local token for this user instead (needs JWT_SECRET)
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	api, err := newClientFromEnv()
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "list":
		err = runList(ctx, api, os.Args[2:])
	case "add":
		err = runAdd(ctx, api, os.Args[2:])
	case "edit":
		err = runEdit(ctx, api, os.Args[2:])
	case "delete":
		err = runDelete(ctx, api, os.Args[2:])
	case "summary":
		err = runSummary(ctx, api, os.Args[2:])
	case "categories":
		err = runCategories(ctx, api)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func newClientFromEnv() (*client.Client, error) {
	baseURL := os.Getenv("KAKEIBO_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8081"
	}

	token := os.Getenv("KAKEIBO_TOKEN")
	if token == "" {
		// local development shortcut, signs a token with the server secret
		user := os.Getenv("KAKEIBO_USER")
		secret := os.Getenv("JWT_SECRET")
		if user == "" || secret == "" {
			return nil, errors.New("set KAKEIBO_TOKEN, or KAKEIBO_USER and JWT_SECRET")
		}
		issued, err := auth.IssueToken(auth.Identity{UserID: user}, []byte(secret), time.Hour)
		if err != nil {
			return nil, fmt.Errorf("issue local token: %w", err)
		}
		token = issued
	}

	return client.New(baseURL, token), nil
}

func runList(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	category := fs.Int("category", 0, "filter by category ID")
	from := fs.String("from", "", "start date (yyyy-MM-dd)")
	to := fs.String("to", "", "end date (yyyy-MM-dd)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	session := client.NewSession(api)
	pagination, err := session.Refresh(ctx, client.ListOptions{
		Page:       *page,
		Limit:      *limit,
		CategoryID: *category,
		From:       *from,
		To:         *to,
	})
	if err != nil {
		return err
	}

	printExpenses(session.View())
	fmt.Printf("page %d/%d (%d expenses)\n", pagination.Page, pagination.TotalPages, pagination.Total)
	return nil
}

func runAdd(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	amount := fs.String("amount", "", "amount in yen")
	category := fs.String("category", "", "category ID (1-9)")
	description := fs.String("description", "", "optional note")
	date := fs.String("date", time.Now().Format(core.DateLayout), "date (yyyy-MM-dd)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := api.Create(ctx, client.ExpenseInput{
		Amount:      *amount,
		CategoryID:  *category,
		Description: *description,
		Date:        *date,
	})
	if err != nil {
		return describeAPIError(err)
	}

	fmt.Printf("recorded %s: ¥%.0f on %s\n", created.ID, created.Amount, created.Date)
	return nil
}

func runEdit(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.String("id", "", "expense ID")
	amount := fs.String("amount", "", "amount in yen")
	category := fs.String("category", "", "category ID (1-9)")
	description := fs.String("description", "", "optional note")
	date := fs.String("date", "", "date (yyyy-MM-dd)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("missing -id")
	}

	session := client.NewSession(api)
	session.Notify = func(msg string) { fmt.Fprintln(os.Stderr, msg) }
	if _, err := session.Refresh(ctx, client.ListOptions{Limit: 100}); err != nil {
		return err
	}

	in, err := fillFromCurrent(session.View(), *id, client.ExpenseInput{
		Amount:      *amount,
		CategoryID:  *category,
		Description: *description,
		Date:        *date,
	})
	if err != nil {
		return err
	}

	if err := session.Update(ctx, *id, in); err != nil {
		return describeAPIError(err)
	}

	fmt.Println("updated")
	printExpenses(session.View())
	return nil
}

func runDelete(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "expense ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("missing -id")
	}

	session := client.NewSession(api)
	session.Notify = func(msg string) { fmt.Fprintln(os.Stderr, msg) }
	if _, err := session.Refresh(ctx, client.ListOptions{Limit: 100}); err != nil {
		return err
	}

	if err := session.Delete(ctx, *id); err != nil {
		return describeAPIError(err)
	}
	fmt.Println("deleted")
	return nil
}

func runSummary(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	rangeKind := fs.String("range", "month", "today, week or month")
	if err := fs.Parse(args); err != nil {
		return err
	}

	summary, err := api.Summary(ctx, *rangeKind)
	if err != nil {
		return describeAPIError(err)
	}

	fmt.Printf("%s (%s - %s)\n", summary.Range, summary.Start, summary.End)
	fmt.Printf("total ¥%.0f across %d expenses\n", summary.Total, summary.Count)

	change := summary.Comparison.PercentageChange
	switch {
	case change > 0:
		fmt.Printf("up %.1f%% from the previous %s\n", change, summary.Range)
	case change < 0:
		fmt.Printf("down %.1f%% from the previous %s\n", -change, summary.Range)
	default:
		fmt.Printf("unchanged from the previous %s\n", summary.Range)
	}

	if len(summary.Trend) > 0 {
		fmt.Println("\ntrend:")
		for _, bucket := range summary.Trend {
			fmt.Printf("  %-12s ¥%.0f (%d)\n", bucket.Label, bucket.Total, bucket.Count)
		}
	}

	if len(summary.Breakdown) > 0 {
		fmt.Println("\nby category:")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, share := range summary.Breakdown {
			fmt.Fprintf(w, "  %s %s\t¥%.0f\t%.1f%%\n",
				share.Category.Icon, share.Category.Name, share.Total, share.Percentage)
		}
		_ = w.Flush()
	}
	return nil
}

func runCategories(ctx context.Context, api *client.Client) error {
	categories, err := api.Categories(ctx)
	if err != nil {
		return describeAPIError(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, c := range categories {
		fmt.Fprintf(w, "%d\t%s %s\t%s\n", c.ID, c.Icon, c.Name, c.Slug)
	}
	return w.Flush()
}

func printExpenses(expenses []core.Expense) {
	if len(expenses) == 0 {
		fmt.Println("no expenses")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range expenses {
		name := ""
		if e.Category != nil {
			name = e.Category.Icon + " " + e.Category.Name
		}
		fmt.Fprintf(w, "%s\t%s\t¥%s\t%s\t%s\n",
			e.ID, e.Date, e.Amount.Decimal(), name, e.Description)
	}
	_ = w.Flush()
}

// fillFromCurrent completes an edit so that omitted flags keep the value
// the expense already has.
func fillFromCurrent(expenses []core.Expense, id string, in client.ExpenseInput) (client.ExpenseInput, error) {
	for _, e := range expenses {
		if e.ID != id {
			continue
		}
		if in.Amount == "" {
			in.Amount = e.Amount.Decimal()
		}
		if in.CategoryID == "" {
			in.CategoryID = strconv.Itoa(e.CategoryID)
		}
		if in.Date == "" {
			in.Date = e.Date.String()
		}
		if in.Description == "" {
			in.Description = e.Description
		}
		return in, nil
	}
	return in, fmt.Errorf("expense %s not found in the current listing", id)
}

// describeAPIError expands validation failures into per-field lines.
func describeAPIError(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Details) == 0 {
		return err
	}
	msg := apiErr.Message
	for _, issue := range apiErr.Details {
		msg += fmt.Sprintf("\n  %s: %s", issue.Field, issue.Message)
	}
	return errors.New(msg)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
