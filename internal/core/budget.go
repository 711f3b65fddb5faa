package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AlertScope tells whether an alert concerns the whole budget or one category.
type AlertScope string

const (
	ScopeOverall  AlertScope = "overall"
	ScopeCategory AlertScope = "category"
)

// BudgetAlert flags spending strictly above a budgeted limit.
type BudgetAlert struct {
	Scope    AlertScope `json:"scope"`
	Category string     `json:"category,omitempty"`
	Limit    float64    `json:"limit"`
	Spent    float64    `json:"spent"`
}

// Evaluate compares a month summary with a budget. A nil budget yields no
// alerts. The overall alert comes first, then category alerts in the order the
// categories appear in the summary. Category totals differing only in case are
// summed against the one limit they share, reported under the first-seen
// spelling. Spending equal to a limit never alerts.
func Evaluate(month SummaryResult, budget *Budget) []BudgetAlert {
	if budget == nil {
		return nil
	}
	var alerts []BudgetAlert
	if month.TotalAmount > budget.MonthlyBudget {
		alerts = append(alerts, BudgetAlert{Scope: ScopeOverall, Limit: budget.MonthlyBudget, Spent: month.TotalAmount})
	}

	var spent []BudgetAlert
	idx := map[string]int{}
	for _, ct := range month.CategoryTotals {
		limit, ok := budget.LimitFor(ct.Name)
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(ct.Name))
		i, seen := idx[key]
		if !seen {
			idx[key] = len(spent)
			spent = append(spent, BudgetAlert{Scope: ScopeCategory, Category: ct.Name, Limit: limit})
			i = len(spent) - 1
		}
		spent[i].Spent += ct.Amount
	}
	for _, a := range spent {
		if a.Spent > a.Limit {
			alerts = append(alerts, a)
		}
	}
	return alerts
}

// EncodeCategories renders per-category limits for the CategoryBudgets cell.
func EncodeCategories(categories map[string]float64) (string, error) {
	if categories == nil {
		categories = map[string]float64{}
	}
	b, err := json.Marshal(categories)
	if err != nil {
		return "", fmt.Errorf("encode category budgets: %w", err)
	}
	return string(b), nil
}

// DecodeCategories parses the CategoryBudgets cell. An empty cell is an empty
// mapping; anything that is not a JSON object of numbers is ErrMalformedBudgetRecord.
func DecodeCategories(cell string) (map[string]float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return map[string]float64{}, nil
	}
	out := map[string]float64{}
	if err := json.Unmarshal([]byte(cell), &out); err != nil {
		return nil, fmt.Errorf("%w: category budgets: %v", ErrMalformedBudgetRecord, err)
	}
	if out == nil {
		out = map[string]float64{}
	}
	return out, nil
}
