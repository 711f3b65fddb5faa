// Package bot dispatches Telegram commands to the expense service and renders
// the replies.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"expensebot/internal/core"
	apphttp "expensebot/internal/http"
	applog "expensebot/internal/log"
	"expensebot/internal/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Expenses is the part of services.ExpenseService the commands use.
type Expenses interface {
	Now() time.Time
	AddExpense(ctx context.Context, in services.NewExpense) (services.AddResult, error)
	ListExpenses(ctx context.Context, f core.Filter, limit int) (services.ExpenseList, error)
	Summary(ctx context.Context, p core.Period, f core.Filter) (core.SummaryResult, error)
	Export(ctx context.Context, p core.Period, f core.Filter) ([]core.ExpenseRecord, error)
	Split(ctx context.Context, req services.SplitRequest) (core.SplitResult, error)
	SetBudget(ctx context.Context, b core.Budget) error
	BudgetReport(ctx context.Context, username string) (services.BudgetReport, error)
}

// ChartRenderer is satisfied by *charts.Generator.
type ChartRenderer interface {
	CategoryPie(s core.SummaryResult) ([]byte, error)
	UserBar(s core.SummaryResult) ([]byte, error)
}

type Options struct {
	Categories []string
	Currency   string
	ListLimit  int           // default rows for /listexpenses
	Charts     ChartRenderer // nil disables /chart
	Logger     *applog.Logger
}

type Bot struct {
	sender   Sender
	expenses Expenses
	opts     Options
	parser   parser
	logger   *applog.Logger
	handlers map[string]func(ctx context.Context, c command)
	wg       sync.WaitGroup
}

// command is one parsed chat command.
type command struct {
	chatID int64
	user   string
	args   []string
}

func New(sender Sender, expenses Expenses, opts Options) *Bot {
	if opts.Currency == "" {
		opts.Currency = "$"
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = 10
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	b := &Bot{
		sender:   sender,
		expenses: expenses,
		opts:     opts,
		parser:   parser{categories: opts.Categories},
		logger:   opts.Logger.WithComponent(applog.ComponentBot),
	}
	b.handlers = map[string]func(ctx context.Context, c command){
		"addexpense":     b.handleAddExpense,
		"listexpenses":   b.handleListExpenses,
		"summary":        b.handleSummary,
		"exportexpenses": b.handleExport,
		"splitexpense":   b.handleSplit,
		"setbudget":      b.handleSetBudget,
		"budget":         b.handleBudget,
		"chart":          b.handleChart,
		"categories":     b.handleCategories,
		"help":           b.handleHelp,
		"start":          b.handleHelp,
	}
	return b
}

// Run handles updates until ctx is done or the channel closes, one goroutine
// per update, then waits for in-flight commands.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(context.WithoutCancel(ctx), update)
			}()
		}
	}
}

// HandleWebhook decodes one update posted by Telegram and handles it before
// returning.
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("%w: %v", apphttp.ErrBadUpdate, err)
	}
	b.HandleUpdate(context.WithoutCancel(ctx), update)
	return nil
}

// HandleUpdate dispatches a command message. Other updates are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}

	c := command{
		chatID: msg.Chat.ID,
		user:   senderName(msg.From),
		args:   strings.Fields(msg.CommandArguments()),
	}
	name := strings.ToLower(msg.Command())

	ctx, _ = applog.WithRequestID(applog.NewContext(ctx, b.logger))
	logger := applog.FromContext(ctx).With(
		applog.FieldCommand, name,
		applog.FieldChatID, c.chatID,
		applog.FieldUsername, c.user)
	ctx = applog.NewContext(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Command panicked", applog.FieldError, fmt.Sprint(r))
			b.reply(ctx, c.chatID, "Something went wrong. Please try again later.")
		}
	}()

	start := time.Now()
	handler, ok := b.handlers[name]
	if !ok {
		b.reply(ctx, c.chatID, "Unknown command. Use /help to see available commands.")
		return
	}
	handler(ctx, c)
	logger.DebugContext(ctx, "Command handled", applog.FieldDuration, time.Since(start).Milliseconds())
}

// senderName is the identity stored in the Username column.
func senderName(u *tgbotapi.User) string {
	switch {
	case u == nil:
		return "unknown"
	case u.UserName != "":
		return u.UserName
	case u.FirstName != "":
		return u.FirstName
	default:
		return strconv.FormatInt(u.ID, 10)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to send reply", applog.FieldError, err)
	}
}
