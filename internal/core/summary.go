package core

import (
	"fmt"
	"sort"
	"time"
)

// Total is an amount aggregated under a name (category or username).
type Total struct {
	Name   string
	Amount float64
	Count  int
}

// Totals keeps first-seen order.
type Totals []Total

// SummaryResult is derived on every query and never persisted.
type SummaryResult struct {
	Period         Period
	StartDate      time.Time
	EndDate        time.Time
	TotalAmount    float64
	CategoryTotals Totals
	UserTotals     Totals
	ExpenseCount   int
}

// Get returns the amount recorded under name.
func (t Totals) Get(name string) (float64, bool) {
	for _, v := range t {
		if v.Name == name {
			return v.Amount, true
		}
	}
	return 0, false
}

// Sorted returns a copy ordered by descending amount; ties keep first-seen order.
func (t Totals) Sorted() Totals {
	out := append(Totals(nil), t...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out
}

// Empty reports whether the summary matched no records.
func (s SummaryResult) Empty() bool { return s.ExpenseCount == 0 }

// Summarize reduces records already matching the caller's Filter to the totals
// of the period containing now. The period bound is ANDed with that filter.
func Summarize(records []ExpenseRecord, p Period, now time.Time, weekStart time.Weekday) (SummaryResult, error) {
	if p != PeriodWeek && p != PeriodMonth {
		return SummaryResult{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
	start, err := PeriodStart(p, now, weekStart)
	if err != nil {
		return SummaryResult{}, err
	}

	res := SummaryResult{Period: p, StartDate: start, EndDate: now}
	catIdx := map[string]int{}
	userIdx := map[string]int{}
	for _, r := range FilterRecords(records, Filter{From: start}) {
		res.TotalAmount += r.Amount
		res.ExpenseCount++
		res.CategoryTotals = accumulate(res.CategoryTotals, catIdx, r.CategoryOrDefault(), r.Amount)
		res.UserTotals = accumulate(res.UserTotals, userIdx, r.Username, r.Amount)
	}
	return res, nil
}

func accumulate(t Totals, idx map[string]int, name string, amount float64) Totals {
	i, ok := idx[name]
	if !ok {
		idx[name] = len(t)
		return append(t, Total{Name: name, Amount: amount, Count: 1})
	}
	t[i].Amount += amount
	t[i].Count++
	return t
}
