package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expensebot/internal/charts"
	"expensebot/internal/core"
	"expensebot/internal/export"
	applog "expensebot/internal/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleAddExpense(ctx context.Context, c command) {
	in, err := b.parser.addExpense(c.args)
	if err != nil {
		b.fail(ctx, c.chatID, "adding your expense", err)
		return
	}
	in.Username = c.user

	res, err := b.expenses.AddExpense(ctx, in)
	if err != nil {
		b.fail(ctx, c.chatID, "adding your expense", err)
		return
	}

	lines := []string{
		"Expense Added",
		"Your expense has been recorded successfully.",
		"",
		"Amount: " + b.money(res.Record.Amount),
		"Category: " + res.Record.Category,
		"Description: " + res.Record.Description,
		"Added By: " + res.Record.Username,
		"Timestamp: " + res.Record.Timestamp,
	}
	if alerts := b.alertLines(res.Alerts); len(alerts) > 0 {
		lines = append(lines, "")
		lines = append(lines, alerts...)
	}
	b.reply(ctx, c.chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleListExpenses(ctx context.Context, c command) {
	f, limit, err := b.parser.listExpenses(c.args, b.opts.ListLimit)
	if err != nil {
		b.fail(ctx, c.chatID, "fetching the expense list", err)
		return
	}

	list, err := b.expenses.ListExpenses(ctx, f, limit)
	if err != nil {
		b.fail(ctx, c.chatID, "fetching the expense list", err)
		return
	}
	if len(list.Records) == 0 {
		b.reply(ctx, c.chatID, msgNoMatches)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent Expenses\nShowing %s%s\n", pluralExpenses(len(list.Records)), describeFilter(f))
	for i, r := range list.Records {
		fmt.Fprintf(&sb, "\n%d. %s - %s\n%s\nBy: %s • Date: %s\n",
			i+1, b.money(r.Amount), r.CategoryOrDefault(), truncate(r.Description, 100), r.Username, r.Timestamp)
	}
	fmt.Fprintf(&sb, "\nTotal: %s", b.money(list.Total))
	b.reply(ctx, c.chatID, sb.String())
}

func (b *Bot) handleSummary(ctx context.Context, c command) {
	period, f, err := b.parser.summary(c.args)
	if err != nil {
		b.fail(ctx, c.chatID, "generating the expense summary", err)
		return
	}

	s, err := b.expenses.Summary(ctx, period, f)
	if err != nil {
		b.fail(ctx, c.chatID, "generating the expense summary", err)
		return
	}
	if s.Empty() {
		b.reply(ctx, c.chatID, fmt.Sprintf("No expenses found for %s%s.", periodPhrase(period), describeFilter(f)))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Expense Summary: %s\n", period.Label())
	fmt.Fprintf(&sb, "Expense summary for %s%s.\n\n", readableDateRange(period, s.StartDate, s.EndDate), describeFilter(f))
	fmt.Fprintf(&sb, "Total Expenses: %s\n", b.money(s.TotalAmount))
	fmt.Fprintf(&sb, "Number of Expenses: %d", s.ExpenseCount)
	if f.Category == "" && len(s.CategoryTotals) > 0 {
		fmt.Fprintf(&sb, "\n\nCategory Breakdown\n%s", b.breakdown(s.CategoryTotals))
	}
	if f.Username == "" && len(s.UserTotals) > 1 {
		fmt.Fprintf(&sb, "\n\nUser Breakdown\n%s", b.breakdown(s.UserTotals))
	}
	b.reply(ctx, c.chatID, sb.String())
}

func (b *Bot) handleExport(ctx context.Context, c command) {
	period, f, format, err := b.parser.export(c.args)
	if err != nil {
		b.fail(ctx, c.chatID, "exporting expenses", err)
		return
	}

	records, err := b.expenses.Export(ctx, period, f)
	if err != nil {
		b.fail(ctx, c.chatID, "exporting expenses", err)
		return
	}
	if len(records) == 0 {
		b.reply(ctx, c.chatID, msgNoMatches)
		return
	}

	data, err := export.Render(format, records)
	if err != nil {
		b.fail(ctx, c.chatID, "exporting expenses", err)
		return
	}

	desc := period.Label()
	if f.Category != "" {
		desc += " - Category: " + f.Category
	}
	if f.Username != "" {
		desc += " - User: " + f.Username
	}
	doc := tgbotapi.NewDocument(c.chatID, tgbotapi.FileBytes{
		Name:  export.FileName(period, format, b.expenses.Now()),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("Exported %d expenses (%s)", len(records), desc)
	b.send(ctx, doc)
	applog.FromContext(ctx).InfoContext(ctx, "Expenses exported",
		applog.FieldPeriod, period,
		"format", format,
		"count", len(records))
}

func (b *Bot) handleSplit(ctx context.Context, c command) {
	req, err := b.parser.split(c.args)
	if err != nil {
		b.fail(ctx, c.chatID, "splitting the expense", err)
		return
	}
	req.RequestedBy = c.user

	res, err := b.expenses.Split(ctx, req)
	if err != nil {
		if len(res.Records) > 0 && errors.Is(err, core.ErrStoreUnavailable) {
			applog.FromContext(ctx).ErrorContext(ctx, "Split partially failed", applog.FieldError, err)
			b.reply(ctx, c.chatID, "There was an error splitting the expense. Some shares may already be recorded; check /listexpenses before retrying.")
			return
		}
		b.fail(ctx, c.chatID, "splitting the expense", err)
		return
	}

	lines := []string{
		"Expense Split",
		fmt.Sprintf("The expense has been split between %d users.", len(res.Participants)),
		"",
		"Total Amount: " + b.money(req.Total),
		"Split Amount: " + b.money(res.PerPerson) + " per person",
		"Category: " + res.Records[0].Category,
		"Description: " + req.Description,
		"Timestamp: " + res.Records[0].Timestamp,
		"Split Between: " + strings.Join(res.Participants, ", "),
	}
	b.reply(ctx, c.chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleSetBudget(ctx context.Context, c command) {
	budget, err := b.parser.budget(c.args)
	if err != nil {
		b.fail(ctx, c.chatID, "updating your budget", err)
		return
	}
	budget.Username = c.user

	if err := b.expenses.SetBudget(ctx, budget); err != nil {
		b.fail(ctx, c.chatID, "updating your budget", err)
		return
	}

	lines := []string{"Budget Updated", "Monthly budget: " + b.money(budget.MonthlyBudget)}
	for _, name := range sortedKeys(budget.Categories) {
		lines = append(lines, fmt.Sprintf("%s: %s", name, b.money(budget.Categories[name])))
	}
	b.reply(ctx, c.chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleBudget(ctx context.Context, c command) {
	report, err := b.expenses.BudgetReport(ctx, c.user)
	if err != nil {
		b.fail(ctx, c.chatID, "reading your budget", err)
		return
	}
	if report.Budget == nil {
		b.reply(ctx, c.chatID, "You have no budget set. "+usageSetBudget)
		return
	}

	lines := []string{
		fmt.Sprintf("Budget for %s (%s)", c.user, readableDateRange(core.PeriodMonth, report.Month.StartDate, report.Month.EndDate)),
		fmt.Sprintf("Monthly: %s of %s", b.money(report.Month.TotalAmount), b.money(report.Budget.MonthlyBudget)),
	}
	for _, name := range sortedKeys(report.Budget.Categories) {
		lines = append(lines, fmt.Sprintf("%s: %s of %s",
			name, b.money(spentIn(report.Month.CategoryTotals, name)), b.money(report.Budget.Categories[name])))
	}
	lines = append(lines, "")
	if len(report.Alerts) == 0 {
		lines = append(lines, "✅ Within budget.")
	} else {
		lines = append(lines, b.alertLines(report.Alerts)...)
	}
	b.reply(ctx, c.chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleChart(ctx context.Context, c command) {
	if b.opts.Charts == nil {
		b.reply(ctx, c.chatID, "Charts are disabled.")
		return
	}
	period, kind, err := b.parser.chart(c.args)
	if err != nil {
		b.fail(ctx, c.chatID, "rendering the chart", err)
		return
	}

	s, err := b.expenses.Summary(ctx, period, core.Filter{})
	if err != nil {
		b.fail(ctx, c.chatID, "rendering the chart", err)
		return
	}

	var png []byte
	if kind == chartByUser {
		png, err = b.opts.Charts.UserBar(s)
	} else {
		png, err = b.opts.Charts.CategoryPie(s)
	}
	if errors.Is(err, charts.ErrNoData) {
		b.reply(ctx, c.chatID, fmt.Sprintf("No expenses found for %s.", periodPhrase(period)))
		return
	}
	if err != nil {
		b.fail(ctx, c.chatID, "rendering the chart", err)
		return
	}

	photo := tgbotapi.NewPhoto(c.chatID, tgbotapi.FileBytes{Name: "chart.png", Bytes: png})
	photo.Caption = fmt.Sprintf("Expenses by %s: %s (%s total)", kind, period.Label(), b.money(s.TotalAmount))
	b.send(ctx, photo)
}

func (b *Bot) handleCategories(ctx context.Context, c command) {
	b.reply(ctx, c.chatID, "Available categories:\n- "+strings.Join(b.opts.Categories, "\n- "))
}

func (b *Bot) handleHelp(ctx context.Context, c command) {
	lines := []string{
		"Expense tracker commands:",
		"/addexpense <amount> <category> <description> - record an expense",
		fmt.Sprintf("/listexpenses [category] [@user] [limit] - recent expenses (limit 1-%d, default %d)", maxListLimit, b.opts.ListLimit),
		"/summary <week|month> [category] [@user] - totals for the period",
		"/exportexpenses [all|week|month] [category] [@user] [csv|xlsx] - download expenses",
		"/splitexpense <amount> @user1 @user2 [@user3..@user5] [category] <description> - split a shared expense",
		"/setbudget <monthly> [Category=amount ...] - set your monthly budget",
		"/budget - compare this month's spending with your budget",
	}
	if b.opts.Charts != nil {
		lines = append(lines, "/chart <week|month> [category|user] - chart of the period")
	}
	lines = append(lines, "/categories - list expense categories")
	b.reply(ctx, c.chatID, strings.Join(lines, "\n"))
}

// fail replies with a message chosen from err and logs the cause. Input
// problems are echoed verbatim and not logged.
func (b *Bot) fail(ctx context.Context, chatID int64, action string, err error) {
	var re replyError
	if errors.As(err, &re) {
		b.reply(ctx, chatID, re.Error())
		return
	}

	logger := applog.FromContext(ctx)
	text := userMessage(action, err)
	if errors.Is(err, core.ErrStoreUnavailable) || text == genericFailure(action) {
		logger.ErrorContext(ctx, "Command failed", applog.FieldError, err)
	} else {
		logger.WarnContext(ctx, "Command rejected", applog.FieldError, err)
	}
	b.reply(ctx, chatID, text)
}

func userMessage(action string, err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return msgAmountPositive
	case errors.Is(err, core.ErrInsufficientParticipants):
		return msgSplitUsers
	case errors.Is(err, core.ErrInvalidPeriod):
		return msgInvalidPeriod
	case errors.Is(err, core.ErrEmptyDescription):
		return "Description cannot be empty."
	case errors.Is(err, core.ErrEmptyUsername):
		return "Could not tell who sent this command."
	case errors.Is(err, core.ErrMalformedBudgetRecord):
		return "Your stored budget could not be read. Set it again with /setbudget."
	case errors.Is(err, core.ErrStoreUnavailable):
		return "The expense sheet is unavailable right now. Please try again later."
	default:
		return genericFailure(action)
	}
}

func genericFailure(action string) string {
	return fmt.Sprintf("There was an error %s. Please try again later.", action)
}
