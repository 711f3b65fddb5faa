package backend

import (
	"context"
	"fmt"

	applog "expensebot/internal/log"
	gsheet "expensebot/internal/sheets/google"
	"expensebot/internal/sheets/memory"
	"expensebot/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Expenses: repo,
		Budgets:  repo,
		Cleanup:  repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.NewClient(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		ExpensesSheet:   config.ExpensesSheetName,
		BudgetsSheet:    config.BudgetsSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		Location:        config.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if err := cli.EnsureWorksheets(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare worksheets: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets backend",
		"expenses_sheet", config.ExpensesSheetName,
		"budgets_sheet", config.BudgetsSheetName)

	return &BackendResult{
		Expenses: cli,
		Budgets:  cli,
		Cleanup:  nil, // No cleanup needed for sheets backend
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store := memory.NewFromFiles(dataDir, config.Location)

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Expenses: store,
		Budgets:  store,
		Cleanup:  nil, // No cleanup needed for memory backend
	}, nil
}
