package core

import (
	"errors"
	"testing"
)

func TestEvaluateThresholds(t *testing.T) {
	budget := &Budget{Username: "alice", MonthlyBudget: 500}
	cases := []struct {
		total float64
		alert bool
	}{
		{499.99, false},
		{500.00, false},
		{500.01, true},
	}
	for _, tc := range cases {
		alerts := Evaluate(SummaryResult{TotalAmount: tc.total}, budget)
		if got := len(alerts) == 1; got != tc.alert {
			t.Fatalf("total %.2f: alert=%v, want %v (%+v)", tc.total, got, tc.alert, alerts)
		}
		if tc.alert && (alerts[0].Scope != ScopeOverall || alerts[0].Spent != tc.total || alerts[0].Limit != 500) {
			t.Fatalf("unexpected alert %+v", alerts[0])
		}
	}
}

func TestEvaluateNoBudget(t *testing.T) {
	if alerts := Evaluate(SummaryResult{TotalAmount: 1e9}, nil); alerts != nil {
		t.Fatalf("expected no alerts, got %+v", alerts)
	}
}

func TestEvaluateCategoryOrderAndAbsence(t *testing.T) {
	month := SummaryResult{
		TotalAmount: 600,
		CategoryTotals: Totals{
			{Name: "Rent", Amount: 300},
			{Name: "Food", Amount: 150},
			{Name: "Health", Amount: 100}, // no category budget
			{Name: "Shopping", Amount: 50},
		},
	}
	budget := &Budget{
		MonthlyBudget: 550,
		Categories: map[string]float64{
			"food":      100, // case-insensitive key
			"Rent":      250,
			"Shopping":  50, // equal, no alert
			"Transport": 0,  // absent from summary, no implicit alert
		},
	}
	alerts := Evaluate(month, budget)
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %+v", alerts)
	}
	if alerts[0].Scope != ScopeOverall {
		t.Fatalf("overall alert must come first: %+v", alerts)
	}
	if alerts[1].Category != "Rent" || alerts[2].Category != "Food" {
		t.Fatalf("category alerts must follow summary order: %+v", alerts)
	}
	if alerts[2].Limit != 100 || alerts[2].Spent != 150 {
		t.Fatalf("unexpected food alert %+v", alerts[2])
	}
}

func TestEvaluateFoldsCategoryCase(t *testing.T) {
	month := SummaryResult{
		TotalAmount: 120,
		CategoryTotals: Totals{
			{Name: "Food", Amount: 60},
			{Name: "food", Amount: 60},
		},
	}
	budget := &Budget{MonthlyBudget: 500, Categories: map[string]float64{"Food": 100}}

	alerts := Evaluate(month, budget)
	if len(alerts) != 1 {
		t.Fatalf("expected one category alert, got %+v", alerts)
	}
	if a := alerts[0]; a.Scope != ScopeCategory || a.Category != "Food" || a.Spent != 120 || a.Limit != 100 {
		t.Fatalf("unexpected alert %+v", a)
	}
}

func TestCategoriesCodec(t *testing.T) {
	in := map[string]float64{"Food": 100}
	cell, err := EncodeCategories(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeCategories(cell)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out["Food"] != 100 {
		t.Fatalf("round trip: got %v", out)
	}

	if cell, _ := EncodeCategories(nil); cell != "{}" {
		t.Fatalf("nil categories encode as %q", cell)
	}
	for _, empty := range []string{"", "  ", "null"} {
		m, err := DecodeCategories(empty)
		if err != nil || m == nil || len(m) != 0 {
			t.Fatalf("%q: got %v, %v", empty, m, err)
		}
	}
	for _, bad := range []string{"{", `{"Food":"lots"}`, `[1,2]`} {
		if _, err := DecodeCategories(bad); !errors.Is(err, ErrMalformedBudgetRecord) {
			t.Fatalf("%q: expected ErrMalformedBudgetRecord, got %v", bad, err)
		}
	}
}
