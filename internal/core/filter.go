package core

import (
	"strings"
	"time"
)

// Filter is an in-memory predicate over records. Zero fields are ignored and
// the remaining conditions are ANDed.
type Filter struct {
	Category string
	Username string
	From     time.Time // inclusive lower bound on ExpenseRecord.At
}

// Match reports whether r satisfies every present condition.
func (f Filter) Match(r ExpenseRecord) bool {
	if f.Username != "" && !strings.EqualFold(strings.TrimSpace(r.Username), strings.TrimSpace(f.Username)) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(strings.TrimSpace(r.Category), strings.TrimSpace(f.Category)) {
		return false
	}
	if !f.From.IsZero() && (r.At.IsZero() || r.At.Before(f.From)) {
		return false
	}
	return true
}

// FilterRecords returns the records matching f, preserving order.
func FilterRecords(records []ExpenseRecord, f Filter) []ExpenseRecord {
	out := make([]ExpenseRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
