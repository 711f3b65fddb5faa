package google

import (
	"errors"
	"testing"
	"time"

	"expensebot/internal/core"
)

func TestParseExpenseRowsWithHeader(t *testing.T) {
	values := [][]interface{}{
		{"Timestamp", "Username", "Amount", "Category", "Description"},
		{"2025-03-01 10:00:00", "alice", 12.5, "Food", "lunch"},
		{"2025-03-02 11:00:00", "bob", "abc", "Food", "broken"},
		{},
		{"2025-03-03 09:30:00", "bob", "7", "", "coffee"},
		{"not a date", "carol", 3.0, "Other"},
	}
	got, issues := parseExpenseRows(values, time.UTC)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(got), got)
	}
	if len(issues) != 1 || issues[0].Row != 3 || !errors.Is(issues[0].Err, core.ErrMalformedRecord) {
		t.Fatalf("unexpected issues %+v", issues)
	}
	if got[0].Amount != 12.5 || got[0].At.IsZero() || got[0].Category != "Food" {
		t.Fatalf("unexpected first record %+v", got[0])
	}
	if got[1].CategoryOrDefault() != core.Uncategorized {
		t.Fatalf("expected empty category to aggregate as %q", core.Uncategorized)
	}
	if !got[2].At.IsZero() || got[2].Description != "" {
		t.Fatalf("unparseable timestamp must give zero At, got %+v", got[2])
	}
}

func TestParseExpenseRowsReorderedHeader(t *testing.T) {
	values := [][]interface{}{
		{"Username", "Amount", "Timestamp", "Description", "Category"},
		{"alice", "9.99", "2025-03-01 10:00:00", "book", "Shopping"},
	}
	got, _ := parseExpenseRows(values, time.UTC)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.Username != "alice" || r.Amount != 9.99 || r.Category != "Shopping" || r.Description != "book" {
		t.Fatalf("columns not mapped by header: %+v", r)
	}
}

func TestParseExpenseRowsWithoutHeader(t *testing.T) {
	values := [][]interface{}{
		{"2025-03-01 10:00:00", "alice", 1, "Food", "a"},
		{"2025-03-01 11:00:00", "alice", 2, "Food", "b"},
	}
	got, issues := parseExpenseRows(values, time.UTC)
	if len(got) != 2 || len(issues) != 0 {
		t.Fatalf("expected both rows as data, got %d records %d issues", len(got), len(issues))
	}
}

func TestFindBudgetRow(t *testing.T) {
	values := [][]interface{}{
		{"Username", "MonthlyBudget", "CategoryBudgets"},
		{"alice", 500, `{"Food":100}`},
		{"Bob", "250"},
	}
	tests := []struct {
		user    string
		wantRow int
	}{
		{"alice", 2},
		{"bob", 3},
		{"BOB", 3},
		{"username", 0},
		{"carol", 0},
	}
	for _, tt := range tests {
		n, _ := findBudgetRow(values, tt.user)
		if n != tt.wantRow {
			t.Errorf("findBudgetRow(%q) = %d, want %d", tt.user, n, tt.wantRow)
		}
	}
}

func TestParseBudgetRow(t *testing.T) {
	b, err := parseBudgetRow([]string{"alice", "500", `{"Food":100,"Rent":50.5}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.MonthlyBudget != 500 || b.Categories["Rent"] != 50.5 {
		t.Fatalf("unexpected budget %+v", b)
	}

	b, err = parseBudgetRow([]string{"bob"})
	if err != nil || b.MonthlyBudget != 0 || b.Categories == nil {
		t.Fatalf("short row should decode to an empty budget, got %+v err=%v", b, err)
	}

	if _, err := parseBudgetRow([]string{"bob", "100", "{not json"}); !errors.Is(err, core.ErrMalformedBudgetRecord) {
		t.Fatalf("expected ErrMalformedBudgetRecord, got %v", err)
	}
	if _, err := parseBudgetRow([]string{"bob", "lots"}); !errors.Is(err, core.ErrMalformedBudgetRecord) {
		t.Fatalf("expected ErrMalformedBudgetRecord for bad amount, got %v", err)
	}
}

func TestCellText(t *testing.T) {
	if got := cellText("=SUM(A1)"); got != "'=SUM(A1)" {
		t.Fatalf("formula not escaped: %q", got)
	}
	if got := cellText("lunch"); got != "lunch" {
		t.Fatalf("plain text changed: %q", got)
	}
}
