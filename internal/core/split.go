package core

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSplitCategory is used when a split names no category.
const DefaultSplitCategory = "Split"

// SplitResult is the outcome of dividing one amount across participants.
type SplitResult struct {
	Participants []string
	PerPerson    float64 // unrounded share
	Records      []ExpenseRecord
}

// Allocate divides total evenly across the distinct participants and builds one
// record per participant, all stamped at the same time with the same category.
// Stored amounts are rounded to cents; PerPerson keeps the exact quotient.
func Allocate(total float64, description string, participants []string, at time.Time, category string) (SplitResult, error) {
	if total <= 0 {
		return SplitResult{}, fmt.Errorf("%w: split total must be greater than 0", ErrInvalidAmount)
	}
	users := dedupe(participants)
	if len(users) < 2 {
		return SplitResult{}, fmt.Errorf("%w: got %d", ErrInsufficientParticipants, len(users))
	}
	if strings.TrimSpace(category) == "" {
		category = DefaultSplitCategory
	}

	per := total / float64(len(users))
	desc := fmt.Sprintf("%s (Split %d ways)", strings.TrimSpace(description), len(users))
	records := make([]ExpenseRecord, 0, len(users))
	for _, u := range users {
		records = append(records, NewRecord(at, u, RoundCents(per), category, desc))
	}
	return SplitResult{Participants: users, PerPerson: per, Records: records}, nil
}

// dedupe drops blanks and repeated identifiers, keeping first occurrence order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
