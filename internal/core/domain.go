package core

import (
	"errors"
	"strings"
	"time"
)

// TimestampLayout is the layout used for the Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Uncategorized is the aggregation bucket for records stored without a category.
const Uncategorized = "Uncategorized"

type (
	// ExpenseRecord is one stored expense row. Identity is positional in the store.
	ExpenseRecord struct {
		Timestamp   string    // raw cell text
		At          time.Time // parsed Timestamp; zero when unparseable
		Username    string
		Amount      float64
		Category    string
		Description string
	}

	// Budget is a per-user monthly ceiling with optional per-category limits.
	Budget struct {
		Username      string
		MonthlyBudget float64
		Categories    map[string]float64
	}
)

var (
	ErrStoreUnavailable         = errors.New("store unavailable")
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrInsufficientParticipants = errors.New("at least 2 distinct participants required")
	ErrInvalidPeriod            = errors.New("invalid period")
	ErrMalformedBudgetRecord    = errors.New("malformed budget record")
	ErrMalformedRecord          = errors.New("malformed expense record")
	ErrEmptyUsername            = errors.New("empty username")
	ErrEmptyDescription         = errors.New("empty description")
)

// NewRecord builds a record stamped at t, formatted in t's location.
func NewRecord(t time.Time, username string, amount float64, category, description string) ExpenseRecord {
	return ExpenseRecord{
		Timestamp:   t.Format(TimestampLayout),
		At:          t.Truncate(time.Second),
		Username:    username,
		Amount:      amount,
		Category:    category,
		Description: description,
	}
}

// Validate checks a record before it is written.
func (r ExpenseRecord) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return ErrEmptyUsername
	}
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// CategoryOrDefault returns the category used for aggregation.
func (r ExpenseRecord) CategoryOrDefault() string {
	if c := strings.TrimSpace(r.Category); c != "" {
		return c
	}
	return Uncategorized
}

// ParseTimestamp parses a stored timestamp. Values without zone information are
// interpreted in loc. The second return value is false when nothing matched.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{TimestampLayout, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02", "1/2/2006 15:04:05", "1/2/2006"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// LimitFor returns the category limit matching name case-insensitively.
func (b Budget) LimitFor(category string) (float64, bool) {
	if v, ok := b.Categories[category]; ok {
		return v, true
	}
	for k, v := range b.Categories {
		if strings.EqualFold(k, category) {
			return v, true
		}
	}
	return 0, false
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Username) == "" {
		return ErrEmptyUsername
	}
	if b.MonthlyBudget < 0 {
		return ErrInvalidAmount
	}
	for _, v := range b.Categories {
		if v < 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}
