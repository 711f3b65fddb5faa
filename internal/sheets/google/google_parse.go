package google

import (
	"fmt"
	"strings"
	"time"

	"expensebot/internal/core"
)

// rowIssue reports a data row that could not become a record.
type rowIssue struct {
	Row int // 1-based sheet row
	Err error
}

// parseExpenseRows converts a values matrix (as returned by Sheets API) into
// records. When the first row carries the expected header names, columns are
// located by name; otherwise the fixed A:E layout is assumed and the first row
// is data.
func parseExpenseRows(values [][]interface{}, loc *time.Location) ([]core.ExpenseRecord, []rowIssue) {
	if len(values) == 0 {
		return nil, nil
	}
	cols := [5]int{0, 1, 2, 3, 4}
	start := 0
	headers := toStrings(values[0])
	if indexOf(headers, "Amount") >= 0 {
		for i, name := range ExpenseHeader {
			cols[i] = indexOf(headers, name)
		}
		start = 1
	}

	var (
		out    []core.ExpenseRecord
		issues []rowIssue
	)
	for i := start; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		amount, err := core.ParseAmount(safeGet(row, cols[2]))
		if err != nil {
			issues = append(issues, rowIssue{Row: i + 1, Err: err})
			continue
		}
		ts := safeGet(row, cols[0])
		at, _ := core.ParseTimestamp(ts, loc)
		out = append(out, core.ExpenseRecord{
			Timestamp:   ts,
			At:          at,
			Username:    safeGet(row, cols[1]),
			Amount:      amount,
			Category:    safeGet(row, cols[3]),
			Description: safeGet(row, cols[4]),
		})
	}
	return out, issues
}

// findBudgetRow locates the budget row for username (case-insensitive) and
// returns its 1-based row number and cells. A header row is never matched.
func findBudgetRow(values [][]interface{}, username string) (int, []string) {
	username = strings.TrimSpace(username)
	for i, raw := range values {
		row := toStrings(raw)
		if len(row) == 0 || row[0] == "" {
			continue
		}
		if i == 0 && strings.EqualFold(row[0], BudgetHeader[0]) {
			continue
		}
		if strings.EqualFold(row[0], username) {
			return i + 1, row
		}
	}
	return 0, nil
}

// parseBudgetRow decodes [Username, MonthlyBudget, CategoryBudgets].
func parseBudgetRow(row []string) (*core.Budget, error) {
	b := &core.Budget{Username: safeGet(row, 0)}
	if v := safeGet(row, 1); v != "" {
		amount, err := core.ParseAmount(v)
		if err != nil {
			return nil, fmt.Errorf("%w: monthly budget for %s: %v", core.ErrMalformedBudgetRecord, b.Username, err)
		}
		b.MonthlyBudget = amount
	}
	cats, err := core.DecodeCategories(safeGet(row, 2))
	if err != nil {
		return nil, fmt.Errorf("budget for %s: %w", b.Username, err)
	}
	b.Categories = cats
	return b, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
