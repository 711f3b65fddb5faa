package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"expensebot/internal/core"
)

func TestMemoryStoreAppendAndFetch(t *testing.T) {
	ctx := context.Background()
	s := New()
	r := core.NewRecord(time.Now(), "alice", 12.5, "Food", "lunch")

	ref, err := s.Append(ctx, r)
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if _, err := s.Append(ctx, core.ExpenseRecord{Username: "alice", Amount: 0, Description: "x"}); err == nil {
		t.Fatalf("expected validation error for zero amount")
	}

	got, err := s.FetchAll(ctx)
	if err != nil || len(got) != 1 || got[0].Username != "alice" {
		t.Fatalf("unexpected fetch: %+v err=%v", got, err)
	}
	got[0].Username = "mutated"
	again, _ := s.FetchAll(ctx)
	if again[0].Username != "alice" {
		t.Fatalf("FetchAll must return a copy")
	}
}

func TestMemoryStoreBudgetUpsert(t *testing.T) {
	ctx := context.Background()
	s := New()

	b, err := s.GetBudget(ctx, "alice")
	if err != nil || b != nil {
		t.Fatalf("expected no budget, got %+v err=%v", b, err)
	}

	if err := s.SetBudget(ctx, core.Budget{Username: "Alice", MonthlyBudget: 500, Categories: map[string]float64{"Food": 100}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetBudget(ctx, core.Budget{Username: "alice", MonthlyBudget: 600}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(s.budgets) != 1 {
		t.Fatalf("upsert must update in place, have %d rows", len(s.budgets))
	}

	b, err = s.GetBudget(ctx, "ALICE")
	if err != nil || b == nil {
		t.Fatalf("get: %+v err=%v", b, err)
	}
	if b.MonthlyBudget != 600 || len(b.Categories) != 0 {
		t.Fatalf("unexpected budget %+v", b)
	}
	if err := s.SetBudget(ctx, core.Budget{Username: "bob", MonthlyBudget: -1}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	// No file -> empty store
	s := NewFromFiles(dir, time.UTC)
	if got, _ := s.FetchAll(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty store, got %d", len(got))
	}

	content := "# header\n" +
		"2025-03-01 10:00:00,alice,12.50,Food,lunch, with friends\n" +
		"2025-03-02 10:00:00,bob,abc,Food,broken amount\n" +
		"\n" +
		"2025-03-03 10:00:00,bob,3,Rent\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_expenses.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	s = NewFromFiles(dir, time.UTC)
	got, _ := s.FetchAll(context.Background())
	if len(got) != 1 {
		t.Fatalf("expected 1 seeded record, got %+v", got)
	}
	if got[0].Description != "lunch, with friends" || got[0].Amount != 12.5 || got[0].At.IsZero() {
		t.Fatalf("unexpected record %+v", got[0])
	}
}
