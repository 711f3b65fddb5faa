package sheets

import (
	"context"

	"expensebot/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseReader reads the whole expense table. Filtering happens in memory.
	ExpenseReader interface {
		FetchAll(ctx context.Context) ([]core.ExpenseRecord, error)
	}

	// ExpenseWriter appends one row. There is no idempotency key: a retried
	// append may store a duplicate row.
	ExpenseWriter interface {
		Append(ctx context.Context, r core.ExpenseRecord) (rowRef string, err error)
	}

	ExpenseStore interface {
		ExpenseReader
		ExpenseWriter
	}

	// BudgetStore keeps one budget row per user, matched case-insensitively.
	BudgetStore interface {
		// GetBudget returns nil, nil when the user has no budget.
		GetBudget(ctx context.Context, username string) (*core.Budget, error)
		// SetBudget updates the user's row in place or appends a new one.
		SetBudget(ctx context.Context, b core.Budget) error
	}
)
