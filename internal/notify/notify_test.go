package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"expensebot/internal/amqp"
	"expensebot/internal/core"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestFormat(t *testing.T) {
	recorded := amqp.NewExpenseEvent(amqp.KindExpenseRecorded, "alice", 12.5, "Food", "lunch")

	split := amqp.NewExpenseEvent(amqp.KindExpenseSplit, "alice", 30, "Split", "dinner (Split 3 ways)")
	split.Participants = []string{"alice", "bob", "carol"}

	exceeded := amqp.NewExpenseEvent(amqp.KindBudgetExceeded, "alice", 20, "", "taxi")
	exceeded.Alerts = []core.BudgetAlert{
		{Scope: core.ScopeOverall, Limit: 100, Spent: 120},
		{Scope: core.ScopeCategory, Category: core.Uncategorized, Limit: 10, Spent: 20},
	}

	tests := []struct {
		name string
		ev   *amqp.ExpenseEvent
		want string
	}{
		{"recorded", recorded, "🧾 alice added $12.50 (Food): lunch"},
		{"split", split, "🍕 alice split $30.00 between alice, bob, carol (Split): dinner (Split 3 ways)"},
		{"budget exceeded", exceeded, "⚠️ alice is over budget after $20.00 on Uncategorized\n- monthly budget $100.00, spent $120.00\n- Uncategorized budget $10.00, spent $20.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.ev, "$"); got != tt.want {
				t.Fatalf("Format() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestHandleSendsToChat(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, -100123, "€")

	ev := amqp.NewExpenseEvent(amqp.KindExpenseRecorded, "bob", 3, "Food", "coffee")
	if err := n.Handle(context.Background(), ev); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("unexpected chattable %T", sender.sent[0])
	}
	if msg.ChatID != -100123 || !strings.Contains(msg.Text, "€3.00") {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestHandleReturnsSendError(t *testing.T) {
	sendErr := errors.New("telegram down")
	n := New(&fakeSender{err: sendErr}, 1, "$")
	err := n.Handle(context.Background(), amqp.NewExpenseEvent(amqp.KindExpenseRecorded, "a", 1, "", "x"))
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}
