package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"expensebot/internal/core"
)

// truncate shortens s to n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}

// readableDateRange renders "Mar 9 - Mar 12, 2025" for a week and
// "March 2025" for a month.
func readableDateRange(p core.Period, start, end time.Time) string {
	switch p {
	case core.PeriodWeek:
		return start.Format("Jan 2") + " - " + end.Format("Jan 2, 2006")
	case core.PeriodMonth:
		return end.Format("January 2006")
	default:
		return p.Label()
	}
}

// periodPhrase is the lower-case form used in sentences ("this week").
func periodPhrase(p core.Period) string {
	return strings.ToLower(p.Label())
}

// describeFilter renders ` in category "Food" by alice` for present fields.
func describeFilter(f core.Filter) string {
	var b strings.Builder
	if f.Category != "" {
		fmt.Fprintf(&b, " in category %q", f.Category)
	}
	if f.Username != "" {
		fmt.Fprintf(&b, " by %s", f.Username)
	}
	return b.String()
}

func pluralExpenses(n int) string {
	if n == 1 {
		return "1 expense"
	}
	return fmt.Sprintf("%d expenses", n)
}

func (b *Bot) money(f float64) string {
	return core.FormatCurrency(b.opts.Currency, f)
}

// breakdown lists totals largest first, one "name: amount" per line.
func (b *Bot) breakdown(t core.Totals) string {
	lines := make([]string, 0, len(t))
	for _, v := range t.Sorted() {
		lines = append(lines, fmt.Sprintf("%s: %s", v.Name, b.money(v.Amount)))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) alertLines(alerts []core.BudgetAlert) []string {
	lines := make([]string, 0, len(alerts))
	for _, a := range alerts {
		if a.Scope == core.ScopeOverall {
			lines = append(lines, fmt.Sprintf("⚠️ Budget Alert: You've exceeded your monthly budget of %s. Current spending: %s.",
				b.money(a.Limit), b.money(a.Spent)))
			continue
		}
		lines = append(lines, fmt.Sprintf("⚠️ %s Budget Alert: You've exceeded your %s budget of %s. Current %s spending: %s.",
			a.Category, a.Category, b.money(a.Limit), a.Category, b.money(a.Spent)))
	}
	return lines
}

// spentIn returns the month total for category, matched case-insensitively.
func spentIn(t core.Totals, category string) float64 {
	var sum float64
	for _, v := range t {
		if strings.EqualFold(v.Name, category) {
			sum += v.Amount
		}
	}
	return sum
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
