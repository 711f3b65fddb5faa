package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"expensebot/internal/amqp"
	"expensebot/internal/core"
	applog "expensebot/internal/log"
	"expensebot/internal/sheets"

	"golang.org/x/sync/errgroup"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// Options tune an ExpenseService. Zero values select the defaults.
type Options struct {
	Now          func() time.Time // default time.Now
	Location     *time.Location   // default time.Local
	WeekStart    time.Weekday     // default Sunday
	BudgetAlerts bool
	Publisher    EventPublisher // optional
}

// ExpenseService orchestrates the row store and the pure aggregation,
// budget and split logic. Every query re-reads the whole expense table.
type ExpenseService struct {
	expenses     sheets.ExpenseStore
	budgets      sheets.BudgetStore
	publisher    EventPublisher
	clock        func() time.Time
	loc          *time.Location
	weekStart    time.Weekday
	budgetAlerts bool
}

func NewExpenseService(expenses sheets.ExpenseStore, budgets sheets.BudgetStore, opts Options) *ExpenseService {
	s := &ExpenseService{
		expenses:     expenses,
		budgets:      budgets,
		publisher:    opts.Publisher,
		clock:        opts.Now,
		loc:          opts.Location,
		weekStart:    opts.WeekStart,
		budgetAlerts: opts.BudgetAlerts,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Now returns the service clock in the configured location.
func (s *ExpenseService) Now() time.Time {
	return s.clock().In(s.loc)
}

type (
	NewExpense struct {
		Username    string
		Amount      float64
		Category    string
		Description string
	}

	AddResult struct {
		Record core.ExpenseRecord
		RowRef string
		// Alerts covers the overall budget and the added category only.
		Alerts []core.BudgetAlert
	}

	ExpenseList struct {
		Records []core.ExpenseRecord
		Total   float64
	}

	SplitRequest struct {
		Total        float64
		Description  string
		Category     string
		Participants []string
		RequestedBy  string
	}

	BudgetReport struct {
		Budget *core.Budget // nil when the user has none
		Month  core.SummaryResult
		Alerts []core.BudgetAlert
	}
)

// AddExpense stamps and appends one record. When budget alerts are enabled
// the month is re-aggregated for the user and evaluated against the budget;
// a failure there is logged and does not undo the append.
func (s *ExpenseService) AddExpense(ctx context.Context, in NewExpense) (AddResult, error) {
	if in.Amount <= 0 || math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return AddResult{}, fmt.Errorf("%w: amount must be greater than 0", core.ErrInvalidAmount)
	}
	now := s.Now()
	rec := core.NewRecord(now,
		strings.TrimSpace(in.Username),
		in.Amount,
		strings.TrimSpace(in.Category),
		strings.TrimSpace(in.Description))
	if err := rec.Validate(); err != nil {
		return AddResult{}, err
	}

	ref, err := s.expenses.Append(ctx, rec)
	if err != nil {
		return AddResult{}, fmt.Errorf("append expense: %w", err)
	}
	logger(ctx).InfoContext(ctx, "Expense recorded",
		applog.FieldUsername, rec.Username,
		applog.FieldAmount, rec.Amount,
		applog.FieldCategory, rec.Category,
		applog.FieldRowRef, ref)

	res := AddResult{Record: rec, RowRef: ref}
	s.publish(ctx, amqp.NewExpenseEvent(amqp.KindExpenseRecorded, rec.Username, rec.Amount, rec.Category, rec.Description))

	if !s.budgetAlerts {
		return res, nil
	}
	report, err := s.budgetReport(ctx, rec.Username, now)
	if err != nil {
		logger(ctx).WarnContext(ctx, "Budget check failed after append", applog.FieldUsername, rec.Username, applog.FieldError, err)
		return res, nil
	}
	res.Alerts = relevantAlerts(report.Alerts, rec.CategoryOrDefault())
	if len(res.Alerts) > 0 {
		ev := amqp.NewExpenseEvent(amqp.KindBudgetExceeded, rec.Username, rec.Amount, rec.Category, rec.Description)
		ev.Alerts = res.Alerts
		s.publish(ctx, ev)
	}
	return res, nil
}

// ListExpenses returns the most recent matching records, at most limit of
// them (limit <= 0 means all), and their total.
func (s *ExpenseService) ListExpenses(ctx context.Context, f core.Filter, limit int) (ExpenseList, error) {
	records, err := s.fetch(ctx, f)
	if err != nil {
		return ExpenseList{}, err
	}
	sortRecent(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	var total float64
	for _, r := range records {
		total += r.Amount
	}
	return ExpenseList{Records: records, Total: total}, nil
}

// Summary aggregates the current week or month for records matching f.
func (s *ExpenseService) Summary(ctx context.Context, p core.Period, f core.Filter) (core.SummaryResult, error) {
	if p != core.PeriodWeek && p != core.PeriodMonth {
		return core.SummaryResult{}, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, string(p))
	}
	records, err := s.fetch(ctx, f)
	if err != nil {
		return core.SummaryResult{}, err
	}
	return core.Summarize(records, p, s.Now(), s.weekStart)
}

// Export returns every record matching f inside period p, most recent first.
func (s *ExpenseService) Export(ctx context.Context, p core.Period, f core.Filter) ([]core.ExpenseRecord, error) {
	start, err := core.PeriodStart(p, s.Now(), s.weekStart)
	if err != nil {
		return nil, err
	}
	f.From = start
	records, err := s.fetch(ctx, f)
	if err != nil {
		return nil, err
	}
	sortRecent(records)
	return records, nil
}

// Split divides the total across the participants and appends one record per
// participant concurrently. On failure some records may already be stored;
// the error reports how many appends failed.
func (s *ExpenseService) Split(ctx context.Context, req SplitRequest) (core.SplitResult, error) {
	if strings.TrimSpace(req.Description) == "" {
		return core.SplitResult{}, core.ErrEmptyDescription
	}
	res, err := core.Allocate(req.Total, req.Description, req.Participants, s.Now(), strings.TrimSpace(req.Category))
	if err != nil {
		return core.SplitResult{}, err
	}

	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	for _, rec := range res.Records {
		rec := rec
		g.Go(func() error {
			if _, err := s.expenses.Append(ctx, rec); err != nil {
				failed.Add(1)
				logger(ctx).ErrorContext(ctx, "Split append failed", applog.FieldUsername, rec.Username, applog.FieldError, err)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("split: %d of %d appends failed: %w", failed.Load(), len(res.Records), err)
	}

	logger(ctx).InfoContext(ctx, "Expense split",
		applog.FieldUsername, req.RequestedBy,
		applog.FieldAmount, req.Total,
		"participants", len(res.Participants))

	ev := amqp.NewExpenseEvent(amqp.KindExpenseSplit, req.RequestedBy, req.Total, res.Records[0].Category, res.Records[0].Description)
	ev.Participants = res.Participants
	s.publish(ctx, ev)
	return res, nil
}

// SetBudget stores the user's monthly and per-category limits.
func (s *ExpenseService) SetBudget(ctx context.Context, b core.Budget) error {
	b.Username = strings.TrimSpace(b.Username)
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.budgets.SetBudget(ctx, b); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	logger(ctx).InfoContext(ctx, "Budget updated", applog.FieldUsername, b.Username, "monthly_budget", b.MonthlyBudget, "categories", len(b.Categories))
	return nil
}

// BudgetReport compares the user's month-to-date spending with their budget.
func (s *ExpenseService) BudgetReport(ctx context.Context, username string) (BudgetReport, error) {
	return s.budgetReport(ctx, strings.TrimSpace(username), s.Now())
}

func (s *ExpenseService) budgetReport(ctx context.Context, username string, now time.Time) (BudgetReport, error) {
	budget, err := s.budgets.GetBudget(ctx, username)
	if err != nil {
		return BudgetReport{}, fmt.Errorf("get budget: %w", err)
	}
	records, err := s.fetch(ctx, core.Filter{Username: username})
	if err != nil {
		return BudgetReport{}, err
	}
	month, err := core.Summarize(records, core.PeriodMonth, now, s.weekStart)
	if err != nil {
		return BudgetReport{}, err
	}
	return BudgetReport{Budget: budget, Month: month, Alerts: core.Evaluate(month, budget)}, nil
}

func (s *ExpenseService) fetch(ctx context.Context, f core.Filter) ([]core.ExpenseRecord, error) {
	records, err := s.expenses.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	return core.FilterRecords(records, f), nil
}

func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		logger(ctx).ErrorContext(ctx, "Failed to publish expense event",
			applog.FieldEventID, ev.ID,
			applog.FieldEventKind, ev.Kind,
			applog.FieldError, err)
	}
}

// relevantAlerts keeps the overall alert and the one for category.
func relevantAlerts(alerts []core.BudgetAlert, category string) []core.BudgetAlert {
	var out []core.BudgetAlert
	for _, a := range alerts {
		if a.Scope == core.ScopeOverall || strings.EqualFold(a.Category, category) {
			out = append(out, a)
		}
	}
	return out
}

// sortRecent orders by timestamp descending; unparseable timestamps sort last.
func sortRecent(records []core.ExpenseRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].At.After(records[j].At)
	})
}

func logger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentExpense)
}
