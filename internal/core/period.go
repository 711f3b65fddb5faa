package core

import (
	"fmt"
	"strings"
	"time"
)

// Period is an aggregation window anchored at "now".
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod accepts week, month and all (case-insensitive).
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (use week, month or all)", ErrInvalidPeriod, s)
	}
}

// Label is the human form used in replies.
func (p Period) Label() string {
	switch p {
	case PeriodWeek:
		return "This Week"
	case PeriodMonth:
		return "This Month"
	case PeriodAll:
		return "All Time"
	default:
		return string(p)
	}
}

// ParseWeekday parses "sunday", "monday" ... into a time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == s {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid weekday %q", s)
}

// PeriodStart returns midnight of the first day of the period containing now,
// in now's location. Week starts on weekStart. PeriodAll has no lower bound and
// yields the zero time.
func PeriodStart(p Period, now time.Time, weekStart time.Weekday) (time.Time, error) {
	y, m, d := now.Date()
	switch p {
	case PeriodWeek:
		back := (int(now.Weekday()) - int(weekStart) + 7) % 7
		return time.Date(y, m, d-back, 0, 0, 0, 0, now.Location()), nil
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), nil
	case PeriodAll:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
}
