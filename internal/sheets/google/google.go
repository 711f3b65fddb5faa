package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"expensebot/internal/core"
	applog "expensebot/internal/log"
	ports "expensebot/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Column layouts of the two worksheets.
var (
	ExpenseHeader = []string{"Timestamp", "Username", "Amount", "Category", "Description"}
	BudgetHeader  = []string{"Username", "MonthlyBudget", "CategoryBudgets"}
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	budgetsSheet  string
	loc           *time.Location
}

// Ensure interface conformance
var (
	_ ports.ExpenseStore = (*Client)(nil)
	_ ports.BudgetStore  = (*Client)(nil)
)

// Options configures a Client. One of CredentialsJSON or CredentialsFile is
// required unless ClientOptions already carry authentication (or disable it).
type Options struct {
	SpreadsheetID   string
	ExpensesSheet   string // default "ExpenseData"
	BudgetsSheet    string // default "Budgets"
	CredentialsJSON string
	CredentialsFile string
	Location        *time.Location
	ClientOptions   []goption.ClientOption
}

// NewClient creates a Sheets client. The caller owns its lifecycle and should
// call EnsureWorksheets once before serving requests.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	expenses := strings.TrimSpace(opts.ExpensesSheet)
	if expenses == "" {
		expenses = "ExpenseData"
	}
	budgets := strings.TrimSpace(opts.BudgetsSheet)
	if budgets == "" {
		budgets = "Budgets"
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: id,
		expensesSheet: expenses,
		budgetsSheet:  budgets,
		loc:           loc,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	clientOpts := append([]goption.ClientOption(nil), opts.ClientOptions...)

	if len(clientOpts) == 0 {
		var credentialsJSON []byte
		switch {
		case strings.TrimSpace(opts.CredentialsJSON) != "":
			logger(ctx).InfoContext(ctx, "Using inline JSON credentials")
			credentialsJSON = []byte(opts.CredentialsJSON)
		case strings.TrimSpace(opts.CredentialsFile) != "":
			logger(ctx).InfoContext(ctx, "Reading credentials from file", applog.FieldPath, opts.CredentialsFile)
			b, err := os.ReadFile(opts.CredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("read service account file: %w", err)
			}
			credentialsJSON = b
		default:
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
		}
		clientOpts = append(clientOpts,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}

	service, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger(ctx).InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// unavailable marks a failed remote call so callers can match ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStoreUnavailable, op, err)
}

// EnsureWorksheets creates the expenses and budgets worksheets, each with its
// header row, when they do not exist yet.
func (c *Client) EnsureWorksheets(ctx context.Context) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return unavailable("get spreadsheet", err)
	}
	existing := map[string]bool{}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	for _, ws := range []struct {
		title  string
		header []string
	}{
		{c.expensesSheet, ExpenseHeader},
		{c.budgetsSheet, BudgetHeader},
	} {
		if existing[ws.title] {
			continue
		}
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: ws.title}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return unavailable("add sheet "+ws.title, err)
		}
		rng := fmt.Sprintf("%s!A1:%s1", ws.title, columnLetter(len(ws.header)))
		vr := &gsheet.ValueRange{Values: [][]any{toAny(ws.header)}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return unavailable("write header "+rng, err)
		}
		logger(ctx).InfoContext(ctx, "Created worksheet", "sheet", ws.title)
	}
	return nil
}

// FetchAll reads the whole expense table. Rows whose amount is not a
// non-negative number are excluded and logged.
func (c *Client) FetchAll(ctx context.Context) ([]core.ExpenseRecord, error) {
	rng := fmt.Sprintf("%s!A:E", c.expensesSheet)
	values, err := c.readRange(ctx, rng)
	if err != nil {
		return nil, err
	}
	records, issues := parseExpenseRows(values, c.loc)
	for _, is := range issues {
		logger(ctx).WarnContext(ctx, "Skipping malformed expense row", "sheet", c.expensesSheet, applog.FieldRowRef, is.Row, applog.FieldError, is.Err)
	}
	return records, nil
}

// Append adds one expense row and returns the updated range.
func (c *Client) Append(ctx context.Context, r core.ExpenseRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	rng := fmt.Sprintf("%s!A:E", c.expensesSheet)
	vr := &gsheet.ValueRange{Values: [][]any{{
		r.Timestamp,
		cellText(r.Username),
		r.Amount,
		cellText(r.Category),
		cellText(r.Description),
	}}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", unavailable("append "+rng, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// GetBudget returns the budget row matching username, or nil when none does
// or the budgets worksheet has not been created.
func (c *Client) GetBudget(ctx context.Context, username string) (*core.Budget, error) {
	values, err := c.readRange(ctx, fmt.Sprintf("%s!A:C", c.budgetsSheet))
	if isMissingSheet(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_, row := findBudgetRow(values, username)
	if row == nil {
		return nil, nil
	}
	return parseBudgetRow(row)
}

// SetBudget updates the user's row in place or appends a new one. The lookup
// and the write are two calls; concurrent calls for one user may both append.
func (c *Client) SetBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	values, err := c.readRange(ctx, fmt.Sprintf("%s!A:C", c.budgetsSheet))
	if err != nil {
		return err
	}
	cats, err := core.EncodeCategories(b.Categories)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{{cellText(b.Username), b.MonthlyBudget, cats}}}

	if n, _ := findBudgetRow(values, b.Username); n > 0 {
		rng := fmt.Sprintf("%s!A%d:C%d", c.budgetsSheet, n, n)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
			return unavailable("update "+rng, err)
		}
		return nil
	}
	rng := fmt.Sprintf("%s!A:C", c.budgetsSheet)
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return unavailable("append "+rng, err)
	}
	return nil
}

// readRange returns raw numbers for numeric cells and formatted text for dates.
func (c *Client) readRange(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, unavailable("read "+rng, err)
	}
	return resp.Values, nil
}

// isMissingSheet reports the 400 the API returns for a range on an unknown worksheet.
func isMissingSheet(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(gerr.Message, "Unable to parse range")
}

// cellText keeps user text from being interpreted as a formula.
func cellText(s string) string {
	if strings.HasPrefix(s, "=") {
		return "'" + s
	}
	return s
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// columnLetter maps 1..26 to A..Z.
func columnLetter(n int) string {
	return string(rune('A' + n - 1))
}

func logger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentSheets)
}
