package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensebot/internal/core"

	"github.com/google/uuid"
)

// EventKind names what happened to the expense table.
type EventKind string

const (
	KindExpenseRecorded EventKind = "expense.recorded"
	KindExpenseSplit    EventKind = "expense.split"
	KindBudgetExceeded  EventKind = "budget.exceeded"
)

// ExpenseEvent is published after a successful write. Consumers must tolerate
// duplicates since appends carry no idempotency key.
type ExpenseEvent struct {
	ID           string             `json:"id"`
	Kind         EventKind          `json:"kind"`
	Username     string             `json:"username"`
	Amount       float64            `json:"amount"`
	Category     string             `json:"category,omitempty"`
	Description  string             `json:"description,omitempty"`
	Participants []string           `json:"participants,omitempty"`
	Alerts       []core.BudgetAlert `json:"alerts,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

// NewExpenseEvent stamps a new event with a random ID and the current time.
func NewExpenseEvent(kind EventKind, username string, amount float64, category, description string) *ExpenseEvent {
	return &ExpenseEvent{
		ID:          uuid.NewString(),
		Kind:        kind,
		Username:    username,
		Amount:      amount,
		Category:    category,
		Description: description,
		OccurredAt:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event and checks that it carries a known kind.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindExpenseRecorded, KindExpenseSplit, KindBudgetExceeded:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	return &msg, nil
}
