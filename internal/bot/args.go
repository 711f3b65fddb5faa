package bot

import (
	"fmt"
	"strconv"
	"strings"

	"expensebot/internal/core"
	"expensebot/internal/export"
	"expensebot/internal/services"
)

const (
	maxListLimit  = 25
	maxSplitUsers = 5
)

// Reply texts shared by parsing and error mapping.
const (
	msgAmountPositive = "Amount must be greater than 0."
	msgSplitUsers     = "You need at least 2 different users to split an expense."
	msgInvalidPeriod  = "Invalid period. Use week or month."
	msgNoMatches      = "No expenses found matching your criteria."
)

const (
	usageAddExpense  = "Usage: /addexpense <amount> <category> <description>"
	usageSummary     = "Usage: /summary <week|month> [category] [@user]"
	usageSplit       = "Usage: /splitexpense <amount> @user1 @user2 [@user3..@user5] [category] <description>"
	usageSetBudget   = "Usage: /setbudget <monthly> [Category=amount ...]"
	usageChart       = "Usage: /chart <week|month> [category|user]"
	chartByCategory  = "category"
	chartByUser      = "user"
	budgetPairFormat = "Expected Category=amount, got %q."
)

// replyError is a problem with the user's input. Its text is sent back as is.
type replyError string

func (e replyError) Error() string { return string(e) }

// parser turns command arguments into service requests. Categories are
// matched case-insensitively and replaced by their configured spelling.
type parser struct {
	categories []string
}

func (p parser) category(s string) (string, bool) {
	for _, c := range p.categories {
		if strings.EqualFold(c, s) {
			return c, true
		}
	}
	return "", false
}

func unknownCategory(s string) error {
	return replyError(fmt.Sprintf("Unknown category %q. Use /categories to see the list.", s))
}

// mention strips the leading @ from a username token.
func mention(tok string) (string, bool) {
	if len(tok) > 1 && tok[0] == '@' {
		return tok[1:], true
	}
	return "", false
}

// filterToken applies an @user or category token to f.
func (p parser) filterToken(f *core.Filter, tok string) error {
	if u, ok := mention(tok); ok {
		if f.Username != "" {
			return replyError("Only one @user filter is allowed.")
		}
		f.Username = u
		return nil
	}
	c, ok := p.category(tok)
	if !ok {
		return unknownCategory(tok)
	}
	if f.Category != "" {
		return replyError("Only one category filter is allowed.")
	}
	f.Category = c
	return nil
}

// amount parses a strictly positive amount typed by a user.
func amount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	v, err := core.ParseAmount(strings.TrimPrefix(s, "-"))
	if err != nil {
		return 0, replyError(fmt.Sprintf("%q is not a valid amount.", s))
	}
	if negative || v <= 0 {
		return 0, replyError(msgAmountPositive)
	}
	return v, nil
}

// weekOrMonth parses the period of /summary and /chart.
func weekOrMonth(s string) (core.Period, error) {
	p, err := core.ParsePeriod(s)
	if err != nil || p == core.PeriodAll {
		return "", replyError(msgInvalidPeriod)
	}
	return p, nil
}

func (p parser) addExpense(args []string) (services.NewExpense, error) {
	if len(args) < 3 {
		return services.NewExpense{}, replyError(usageAddExpense)
	}
	amt, err := amount(args[0])
	if err != nil {
		return services.NewExpense{}, err
	}
	category, ok := p.category(args[1])
	if !ok {
		return services.NewExpense{}, unknownCategory(args[1])
	}
	return services.NewExpense{
		Amount:      amt,
		Category:    category,
		Description: strings.Join(args[2:], " "),
	}, nil
}

// listExpenses parses [category] [@user] [limit] in any order.
func (p parser) listExpenses(args []string, defaultLimit int) (core.Filter, int, error) {
	var f core.Filter
	limit := defaultLimit
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			if n < 1 || n > maxListLimit {
				return f, 0, replyError(fmt.Sprintf("Limit must be between 1 and %d.", maxListLimit))
			}
			limit = n
			continue
		}
		if err := p.filterToken(&f, a); err != nil {
			return f, 0, err
		}
	}
	return f, limit, nil
}

func (p parser) summary(args []string) (core.Period, core.Filter, error) {
	var f core.Filter
	if len(args) == 0 {
		return "", f, replyError(usageSummary)
	}
	period, err := weekOrMonth(args[0])
	if err != nil {
		return "", f, err
	}
	for _, a := range args[1:] {
		if err := p.filterToken(&f, a); err != nil {
			return "", f, err
		}
	}
	return period, f, nil
}

// export parses [all|week|month] [category] [@user] [csv|xlsx] in any order.
func (p parser) export(args []string) (core.Period, core.Filter, export.Format, error) {
	var f core.Filter
	period, format := core.PeriodAll, export.FormatCSV
	for _, a := range args {
		if v, err := core.ParsePeriod(a); err == nil {
			period = v
			continue
		}
		if v, err := export.ParseFormat(a); err == nil {
			format = v
			continue
		}
		if err := p.filterToken(&f, a); err != nil {
			return "", f, "", err
		}
	}
	return period, f, format, nil
}

// split parses <amount> @u1 @u2 [@u3..@u5] [category] <description...>. A
// token naming a category is taken as the category only when a description
// follows it.
func (p parser) split(args []string) (services.SplitRequest, error) {
	if len(args) < 4 {
		return services.SplitRequest{}, replyError(usageSplit)
	}
	total, err := amount(args[0])
	if err != nil {
		return services.SplitRequest{}, err
	}

	i := 1
	var users []string
	seen := map[string]bool{}
	for ; i < len(args); i++ {
		u, ok := mention(args[i])
		if !ok {
			break
		}
		if key := strings.ToLower(u); !seen[key] {
			seen[key] = true
			users = append(users, u)
		}
	}
	if i-1 > maxSplitUsers {
		return services.SplitRequest{}, replyError(fmt.Sprintf("You can split an expense between at most %d users.", maxSplitUsers))
	}
	if len(users) < 2 {
		return services.SplitRequest{}, replyError(msgSplitUsers)
	}

	rest := args[i:]
	var category string
	if len(rest) > 1 {
		if c, ok := p.category(rest[0]); ok {
			category = c
			rest = rest[1:]
		}
	}
	if len(rest) == 0 {
		return services.SplitRequest{}, replyError(usageSplit)
	}
	return services.SplitRequest{
		Total:        total,
		Description:  strings.Join(rest, " "),
		Category:     category,
		Participants: users,
	}, nil
}

func (p parser) budget(args []string) (core.Budget, error) {
	if len(args) == 0 {
		return core.Budget{}, replyError(usageSetBudget)
	}
	monthly, err := limit(args[0])
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{MonthlyBudget: monthly, Categories: map[string]float64{}}
	for _, a := range args[1:] {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return core.Budget{}, replyError(fmt.Sprintf(budgetPairFormat, a))
		}
		category, ok := p.category(name)
		if !ok {
			return core.Budget{}, unknownCategory(name)
		}
		v, err := limit(value)
		if err != nil {
			return core.Budget{}, err
		}
		b.Categories[category] = v
	}
	return b, nil
}

// limit parses a budget amount; zero is allowed.
func limit(s string) (float64, error) {
	v, err := core.ParseAmount(s)
	if err != nil {
		return 0, replyError(fmt.Sprintf("%q is not a valid budget amount.", s))
	}
	return v, nil
}

func (p parser) chart(args []string) (core.Period, string, error) {
	if len(args) == 0 {
		return "", "", replyError(usageChart)
	}
	period, err := weekOrMonth(args[0])
	if err != nil {
		return "", "", err
	}
	kind := chartByCategory
	if len(args) > 1 {
		kind = strings.ToLower(args[1])
		if kind != chartByCategory && kind != chartByUser {
			return "", "", replyError(usageChart)
		}
	}
	return period, kind, nil
}
