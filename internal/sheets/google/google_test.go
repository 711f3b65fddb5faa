package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"expensebot/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the Sheets v4 REST surface used by Client.
type fakeSheets struct {
	mu     sync.Mutex
	sheets map[string][][]interface{}
	calls  []string
	fail   bool
}

func newFakeSheets(titles ...string) *fakeSheets {
	f := &fakeSheets{sheets: map[string][][]interface{}{}}
	for _, t := range titles {
		f.sheets[t] = nil
	}
	return f
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	if f.fail {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"permission denied"}}`))
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	id, rest, _ := strings.Cut(path, "/")
	switch {
	case rest == "" && strings.HasSuffix(id, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.sheets[rq.AddSheet.Properties.Title] = nil
			}
		}
		_ = json.NewEncoder(w).Encode(&gsheet.BatchUpdateSpreadsheetResponse{SpreadsheetId: strings.TrimSuffix(id, ":batchUpdate")})
	case rest == "":
		ss := &gsheet.Spreadsheet{SpreadsheetId: id}
		for title := range f.sheets {
			ss.Sheets = append(ss.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: title}})
		}
		_ = json.NewEncoder(w).Encode(ss)
	case strings.HasPrefix(rest, "values/"):
		rng := strings.TrimPrefix(rest, "values/")
		switch r.Method {
		case http.MethodGet:
			sheet, _, _ := strings.Cut(rng, "!")
			if _, ok := f.sheets[sheet]; !ok {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = fmt.Fprintf(w, `{"error":{"code":400,"message":"Unable to parse range: %s"}}`, rng)
				return
			}
			_ = json.NewEncoder(w).Encode(&gsheet.ValueRange{Range: rng, Values: f.sheets[sheet]})
		case http.MethodPut:
			var vr gsheet.ValueRange
			_ = json.NewDecoder(r.Body).Decode(&vr)
			sheet, row := sheetRow(rng)
			for len(f.sheets[sheet]) < row {
				f.sheets[sheet] = append(f.sheets[sheet], []interface{}{})
			}
			f.sheets[sheet][row-1] = vr.Values[0]
			_ = json.NewEncoder(w).Encode(&gsheet.UpdateValuesResponse{UpdatedRange: rng})
		case http.MethodPost:
			rng = strings.TrimSuffix(rng, ":append")
			sheet, _, _ := strings.Cut(rng, "!")
			var vr gsheet.ValueRange
			_ = json.NewDecoder(r.Body).Decode(&vr)
			f.sheets[sheet] = append(f.sheets[sheet], vr.Values...)
			n := len(f.sheets[sheet])
			_ = json.NewEncoder(w).Encode(&gsheet.AppendValuesResponse{
				Updates: &gsheet.UpdateValuesResponse{UpdatedRange: fmt.Sprintf("%s!A%d:E%d", sheet, n, n)},
			})
		}
	default:
		http.NotFound(w, r)
	}
}

// sheetRow extracts the sheet title and first row number from "Sheet!A3:C3".
func sheetRow(rng string) (string, int) {
	sheet, cells, _ := strings.Cut(rng, "!")
	first, _, _ := strings.Cut(cells, ":")
	n, _ := strconv.Atoi(strings.TrimLeft(first, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	return sheet, n
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := NewClient(context.Background(), Options{
		SpreadsheetID: "sheet-123",
		Location:      time.UTC,
		ClientOptions: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
			goption.WithHTTPClient(srv.Client()),
		},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, Options{}); err == nil {
		t.Fatalf("expected error for missing spreadsheet id")
	}
	if _, err := NewClient(ctx, Options{SpreadsheetID: "x"}); err == nil {
		t.Fatalf("expected error for missing credentials")
	}
	if _, err := NewClient(ctx, Options{SpreadsheetID: "x", CredentialsFile: "/nonexistent/sa.json"}); err == nil {
		t.Fatalf("expected error for unreadable credentials file")
	}
}

func TestEnsureWorksheetsCreatesMissing(t *testing.T) {
	f := newFakeSheets("ExpenseData")
	c := newTestClient(t, f)

	if err := c.EnsureWorksheets(context.Background()); err != nil {
		t.Fatalf("EnsureWorksheets: %v", err)
	}
	rows, ok := f.sheets["Budgets"]
	if !ok || len(rows) != 1 {
		t.Fatalf("expected Budgets sheet with header, got %v", rows)
	}
	if got := toStrings(rows[0]); strings.Join(got, ",") != "Username,MonthlyBudget,CategoryBudgets" {
		t.Fatalf("unexpected header %v", got)
	}
	if len(f.sheets["ExpenseData"]) != 0 {
		t.Fatalf("existing sheet must be left alone")
	}
}

func TestAppendAndFetchAll(t *testing.T) {
	f := newFakeSheets()
	c := newTestClient(t, f)
	ctx := context.Background()
	if err := c.EnsureWorksheets(ctx); err != nil {
		t.Fatalf("EnsureWorksheets: %v", err)
	}

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ref, err := c.Append(ctx, core.NewRecord(at, "alice", 12.5, "Food", "lunch"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "ExpenseData!A2:E2" {
		t.Fatalf("unexpected row ref %q", ref)
	}
	if _, err := c.Append(ctx, core.ExpenseRecord{Username: "alice", Amount: -1, Description: "x"}); err == nil {
		t.Fatalf("expected validation error")
	}

	got, err := c.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %+v", got)
	}
	if got[0].Username != "alice" || got[0].Amount != 12.5 || !got[0].At.Equal(at) {
		t.Fatalf("unexpected record %+v", got[0])
	}
}

func TestBudgetUpsert(t *testing.T) {
	f := newFakeSheets()
	c := newTestClient(t, f)
	ctx := context.Background()
	if err := c.EnsureWorksheets(ctx); err != nil {
		t.Fatalf("EnsureWorksheets: %v", err)
	}

	b, err := c.GetBudget(ctx, "alice")
	if err != nil || b != nil {
		t.Fatalf("expected no budget, got %+v err=%v", b, err)
	}

	if err := c.SetBudget(ctx, core.Budget{Username: "alice", MonthlyBudget: 500, Categories: map[string]float64{"Food": 100}}); err != nil {
		t.Fatalf("SetBudget insert: %v", err)
	}
	if err := c.SetBudget(ctx, core.Budget{Username: "Alice", MonthlyBudget: 750, Categories: map[string]float64{"Food": 150}}); err != nil {
		t.Fatalf("SetBudget update: %v", err)
	}
	if n := len(f.sheets["Budgets"]); n != 2 {
		t.Fatalf("expected header + 1 budget row, got %d rows", n)
	}

	b, err = c.GetBudget(ctx, "ALICE")
	if err != nil || b == nil {
		t.Fatalf("GetBudget: %+v err=%v", b, err)
	}
	if b.MonthlyBudget != 750 || b.Categories["Food"] != 150 {
		t.Fatalf("unexpected budget %+v", b)
	}
}

func TestGetBudgetMissingSheet(t *testing.T) {
	c := newTestClient(t, newFakeSheets("ExpenseData"))
	b, err := c.GetBudget(context.Background(), "alice")
	if err != nil || b != nil {
		t.Fatalf("missing budgets sheet should mean no budget, got %+v err=%v", b, err)
	}
	if _, err := c.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll on empty sheet: %v", err)
	}
}

func TestRemoteFailureIsStoreUnavailable(t *testing.T) {
	f := newFakeSheets("ExpenseData", "Budgets")
	f.fail = true
	c := newTestClient(t, f)
	ctx := context.Background()

	if _, err := c.FetchAll(ctx); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("FetchAll: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := c.Append(ctx, core.NewRecord(time.Now(), "a", 1, "Food", "x")); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("Append: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := c.GetBudget(ctx, "a"); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("GetBudget: expected ErrStoreUnavailable, got %v", err)
	}
	if err := c.EnsureWorksheets(ctx); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("EnsureWorksheets: expected ErrStoreUnavailable, got %v", err)
	}
}
