package bot

import (
	"errors"
	"reflect"
	"testing"

	"expensebot/internal/config"
	"expensebot/internal/core"
	"expensebot/internal/export"
)

var testParser = parser{categories: config.DefaultCategories}

func TestAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr string
	}{
		{"12.50", 12.5, ""},
		{"12,5", 12.5, ""},
		{"$3", 3, ""},
		{"0", 0, msgAmountPositive},
		{"-1", 0, msgAmountPositive},
		{"ten", 0, `"ten" is not a valid amount.`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := amount(tt.in)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("expected %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("amount(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func TestParseListExpenses(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantF     core.Filter
		wantLimit int
		wantErr   bool
	}{
		{"defaults", nil, core.Filter{}, 10, false},
		{"any order", []string{"5", "@bob", "FOOD"}, core.Filter{Category: "Food", Username: "bob"}, 5, false},
		{"zero limit", []string{"0"}, core.Filter{}, 0, true},
		{"two users", []string{"@a", "@b"}, core.Filter{}, 0, true},
		{"two categories", []string{"food", "rent"}, core.Filter{}, 0, true},
		{"unknown token", []string{"yesterday"}, core.Filter{}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, limit, err := testParser.listExpenses(tt.args, 10)
			if tt.wantErr {
				var re replyError
				if !errors.As(err, &re) {
					t.Fatalf("expected a replyError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f != tt.wantF || limit != tt.wantLimit {
				t.Fatalf("got %+v limit %d", f, limit)
			}
		})
	}
}

func TestParseExport(t *testing.T) {
	period, f, format, err := testParser.export([]string{"xlsx", "@carol", "week"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if period != core.PeriodWeek || format != export.FormatXLSX || f.Username != "carol" {
		t.Fatalf("got %s %s %+v", period, format, f)
	}

	period, _, format, err = testParser.export(nil)
	if err != nil || period != core.PeriodAll || format != export.FormatCSV {
		t.Fatalf("defaults: got %s %s %v", period, format, err)
	}
}

func TestParseSplit(t *testing.T) {
	req, err := testParser.split([]string{"40", "@bob", "@carol", "@dave", "rent", "march", "share"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Total != 40 || req.Category != "Rent" || req.Description != "march share" {
		t.Fatalf("unexpected request %+v", req)
	}
	if !reflect.DeepEqual(req.Participants, []string{"bob", "carol", "dave"}) {
		t.Fatalf("unexpected participants %v", req.Participants)
	}

	for _, args := range [][]string{
		{"40", "@bob", "@carol"},
		{"40", "bob", "carol", "dinner"},
		{"0", "@bob", "@carol", "dinner"},
	} {
		if _, err := testParser.split(args); err == nil {
			t.Errorf("split(%v) should fail", args)
		}
	}
}

func TestParseBudget(t *testing.T) {
	b, err := testParser.budget([]string{"300", "food=100", "Health=0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]float64{"Food": 100, "Health": 0}
	if b.MonthlyBudget != 300 || !reflect.DeepEqual(b.Categories, want) {
		t.Fatalf("unexpected budget %+v", b)
	}

	for _, args := range [][]string{nil, {"lots"}, {"10", "=5"}, {"10", "food=x"}} {
		if _, err := testParser.budget(args); err == nil {
			t.Errorf("budget(%v) should fail", args)
		}
	}
}

func TestParseChart(t *testing.T) {
	period, kind, err := testParser.chart([]string{"month", "USER"})
	if err != nil || period != core.PeriodMonth || kind != chartByUser {
		t.Fatalf("got %s %s %v", period, kind, err)
	}
	if _, kind, _ := testParser.chart([]string{"week"}); kind != chartByCategory {
		t.Fatalf("default kind should be category, got %s", kind)
	}
	if _, _, err := testParser.chart([]string{"all"}); err == nil || err.Error() != msgInvalidPeriod {
		t.Fatalf("all is not a chart period, got %v", err)
	}
}
