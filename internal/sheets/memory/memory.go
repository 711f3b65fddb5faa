package memory

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"expensebot/internal/core"
	ports "expensebot/internal/sheets"
)

var (
	_ ports.ExpenseStore = (*Store)(nil)
	_ ports.BudgetStore  = (*Store)(nil)
)

// Store is the in-memory reference implementation of the row store ports.
type Store struct {
	mu      sync.Mutex
	items   []core.ExpenseRecord
	budgets []core.Budget
}

func New(records ...core.ExpenseRecord) *Store {
	return &Store{items: append([]core.ExpenseRecord(nil), records...)}
}

// NewFromFiles seeds the store from <base>/seed_expenses.txt when present.
// Each line is "timestamp,username,amount,category,description"; blank lines,
// "#" comments and lines that fail to parse are skipped.
func NewFromFiles(base string, loc *time.Location) *Store {
	s := New()
	for i, line := range readLines(filepath.Join(base, "seed_expenses.txt")) {
		r, err := parseSeedLine(line, loc)
		if err != nil {
			slog.Warn("Skipping seed line", "line", i+1, "error", err)
			continue
		}
		s.items = append(s.items, r)
	}
	return s
}

// FetchAll returns a copy of every stored record in insertion order.
func (s *Store) FetchAll(_ context.Context) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExpenseRecord(nil), s.items...), nil
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r core.ExpenseRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	// +1 for the header row a sheet would have
	return fmt.Sprintf("mem:%d", len(s.items)+1), nil
}

func (s *Store) GetBudget(_ context.Context, username string) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.budgetIndex(username); i >= 0 {
		b := copyBudget(s.budgets[i])
		return &b, nil
	}
	return nil, nil
}

func (s *Store) SetBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.budgetIndex(b.Username); i >= 0 {
		s.budgets[i] = copyBudget(b)
		return nil
	}
	s.budgets = append(s.budgets, copyBudget(b))
	return nil
}

func (s *Store) budgetIndex(username string) int {
	for i, b := range s.budgets {
		if strings.EqualFold(b.Username, strings.TrimSpace(username)) {
			return i
		}
	}
	return -1
}

func copyBudget(b core.Budget) core.Budget {
	cats := make(map[string]float64, len(b.Categories))
	for k, v := range b.Categories {
		cats[k] = v
	}
	b.Categories = cats
	return b
}

func parseSeedLine(line string, loc *time.Location) (core.ExpenseRecord, error) {
	parts := strings.SplitN(line, ",", 5)
	if len(parts) != 5 {
		return core.ExpenseRecord{}, fmt.Errorf("%w: want 5 fields, got %d", core.ErrMalformedRecord, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	amount, err := core.ParseAmount(parts[2])
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	at, _ := core.ParseTimestamp(parts[0], loc)
	return core.ExpenseRecord{
		Timestamp:   parts[0],
		At:          at,
		Username:    parts[1],
		Amount:      amount,
		Category:    parts[3],
		Description: parts[4],
	}, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
