package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"expensebot/internal/core"
	applog "expensebot/internal/log"
	ports "expensebot/internal/sheets"

	_ "modernc.org/sqlite"
)

var (
	_ ports.ExpenseStore = (*SQLiteRepository)(nil)
	_ ports.BudgetStore  = (*SQLiteRepository)(nil)
)

// SQLiteRepository keeps the expense and budget tables in a local database
// file. Rows carry the same columns as the spreadsheet layout.
type SQLiteRepository struct {
	db  *sql.DB
	loc *time.Location
}

func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
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

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}
	return &SQLiteRepository{db: db, loc: loc}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements sheets.ExpenseWriter
func (r *SQLiteRepository) Append(ctx context.Context, e core.ExpenseRecord) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (timestamp, username, amount, category, description) VALUES (?, ?, ?, ?, ?)`,
		e.Timestamp, e.Username, e.Amount, e.Category, e.Description)
	if err != nil {
		return "", fmt.Errorf("%w: create expense: %w", core.ErrStoreUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%w: last insert id: %w", core.ErrStoreUnavailable, err)
	}

	applog.FromContext(ctx).WithComponent(applog.ComponentStorage).InfoContext(ctx, "Expense saved to SQLite",
		applog.FieldRowRef, id,
		applog.FieldUsername, e.Username,
		applog.FieldAmount, e.Amount,
		applog.FieldCategory, e.Category)

	return strconv.FormatInt(id, 10), nil
}

// FetchAll implements sheets.ExpenseReader
func (r *SQLiteRepository) FetchAll(ctx context.Context) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT timestamp, username, amount, category, description FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list expenses: %w", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []core.ExpenseRecord
	for rows.Next() {
		var e core.ExpenseRecord
		if err := rows.Scan(&e.Timestamp, &e.Username, &e.Amount, &e.Category, &e.Description); err != nil {
			return nil, fmt.Errorf("%w: scan expense: %w", core.ErrStoreUnavailable, err)
		}
		e.At, _ = core.ParseTimestamp(e.Timestamp, r.loc)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate expenses: %w", core.ErrStoreUnavailable, err)
	}
	return out, nil
}

// GetBudget implements sheets.BudgetStore
func (r *SQLiteRepository) GetBudget(ctx context.Context, username string) (*core.Budget, error) {
	var (
		b    core.Budget
		cats string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT username, monthly_budget, categories FROM budgets WHERE username = ?`, username).
		Scan(&b.Username, &b.MonthlyBudget, &cats)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get budget: %w", core.ErrStoreUnavailable, err)
	}
	if b.Categories, err = core.DecodeCategories(cats); err != nil {
		return nil, fmt.Errorf("budget for %s: %w", b.Username, err)
	}
	return &b, nil
}

// SetBudget implements sheets.BudgetStore. The username column is NOCASE so
// the upsert matches case-insensitively.
func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	cats, err := core.EncodeCategories(b.Categories)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO budgets (username, monthly_budget, categories) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			monthly_budget = excluded.monthly_budget,
			categories = excluded.categories,
			updated_at = CURRENT_TIMESTAMP`,
		b.Username, b.MonthlyBudget, cats)
	if err != nil {
		return fmt.Errorf("%w: set budget: %w", core.ErrStoreUnavailable, err)
	}
	applog.FromContext(ctx).WithComponent(applog.ComponentStorage).InfoContext(ctx, "Budget saved to SQLite", applog.FieldUsername, b.Username, "monthly_budget", b.MonthlyBudget)
	return nil
}
