// Package notify forwards expense events to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strings"

	"expensebot/internal/amqp"
	"expensebot/internal/core"
	applog "expensebot/internal/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	sender   Sender
	chatID   int64
	currency string
}

func New(sender Sender, chatID int64, currency string) *Notifier {
	return &Notifier{sender: sender, chatID: chatID, currency: currency}
}

// Handle posts ev to the notification chat. It has the amqp.Handler shape so
// a failed send is nacked and redelivered once.
func (n *Notifier) Handle(ctx context.Context, ev *amqp.ExpenseEvent) error {
	msg := tgbotapi.NewMessage(n.chatID, Format(ev, n.currency))
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send notification %s: %w", ev.ID, err)
	}
	applog.FromContext(ctx).InfoContext(ctx, "Notification sent",
		applog.FieldEventID, ev.ID,
		applog.FieldEventKind, ev.Kind,
		applog.FieldChatID, n.chatID)
	return nil
}

// Format renders a one-message summary of ev.
func Format(ev *amqp.ExpenseEvent, currency string) string {
	money := func(f float64) string { return core.FormatCurrency(currency, f) }
	category := ev.Category
	if category == "" {
		category = core.Uncategorized
	}

	switch ev.Kind {
	case amqp.KindExpenseRecorded:
		return fmt.Sprintf("🧾 %s added %s (%s): %s", ev.Username, money(ev.Amount), category, ev.Description)
	case amqp.KindExpenseSplit:
		return fmt.Sprintf("🍕 %s split %s between %s (%s): %s",
			ev.Username, money(ev.Amount), strings.Join(ev.Participants, ", "), category, ev.Description)
	case amqp.KindBudgetExceeded:
		var b strings.Builder
		fmt.Fprintf(&b, "⚠️ %s is over budget after %s on %s", ev.Username, money(ev.Amount), category)
		for _, a := range ev.Alerts {
			if a.Scope == core.ScopeOverall {
				fmt.Fprintf(&b, "\n- monthly budget %s, spent %s", money(a.Limit), money(a.Spent))
			} else {
				fmt.Fprintf(&b, "\n- %s budget %s, spent %s", a.Category, money(a.Limit), money(a.Spent))
			}
		}
		return b.String()
	default:
		return fmt.Sprintf("%s: %s %s", ev.Kind, ev.Username, money(ev.Amount))
	}
}
