package core

import (
	"errors"
	"testing"
	"time"
)

func TestFilterMatch(t *testing.T) {
	loc := time.UTC
	from := time.Date(2025, 3, 1, 12, 0, 0, 0, loc)
	r := rec(from, "Alice", 10, "food")

	cases := []struct {
		name string
		f    Filter
		want bool
	}{
		{"empty filter", Filter{}, true},
		{"category case-insensitive", Filter{Category: "Food"}, true},
		{"category partial does not match", Filter{Category: "Foo"}, false},
		{"username case-insensitive", Filter{Username: "alice"}, true},
		{"other user", Filter{Username: "bob"}, false},
		{"from exactly at timestamp", Filter{From: from}, true},
		{"from after timestamp", Filter{From: from.Add(time.Second)}, false},
		{"all conditions", Filter{Category: "FOOD", Username: "ALICE", From: from.Add(-time.Hour)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.Match(r); got != tc.want {
				t.Fatalf("Match = %v, want %v", got, tc.want)
			}
		})
	}

	undated := ExpenseRecord{Timestamp: "not a date", Username: "alice", Amount: 1}
	if (Filter{From: from}).Match(undated) {
		t.Fatalf("records without a parseable timestamp must not pass a date bound")
	}
	if !(Filter{Username: "alice"}).Match(undated) {
		t.Fatalf("records without a timestamp still match non-date filters")
	}
}

func TestFilterRecordsExcludesBeforeFrom(t *testing.T) {
	loc := time.UTC
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, loc)
	records := []ExpenseRecord{
		rec(from.Add(-time.Second), "a", 1, "x"),
		rec(from, "a", 2, "x"),
		rec(from.Add(time.Hour), "a", 3, "x"),
	}
	got := FilterRecords(records, Filter{From: from})
	if len(got) != 2 || got[0].Amount != 2 || got[1].Amount != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	cases := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2025-03-01 10:20:30", true, time.Date(2025, 3, 1, 10, 20, 30, 0, loc)},
		{"2025-03-01", true, time.Date(2025, 3, 1, 0, 0, 0, 0, loc)},
		{"2025-03-01T09:20:30Z", true, time.Date(2025, 3, 1, 10, 20, 30, 0, loc)},
		{"", false, time.Time{}},
		{"yesterday", false, time.Time{}},
	}
	for _, tc := range cases {
		got, ok := ParseTimestamp(tc.in, loc)
		if ok != tc.ok {
			t.Fatalf("%q: ok=%v, want %v", tc.in, ok, tc.ok)
		}
		if ok && !got.Equal(tc.want) {
			t.Fatalf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewRecordRoundTripsTimestamp(t *testing.T) {
	loc := time.FixedZone("X", -5*3600)
	at := time.Date(2025, 7, 4, 18, 45, 12, 999, loc)
	r := NewRecord(at, "alice", 12.5, "Food", "lunch")
	if r.Timestamp != "2025-07-04 18:45:12" {
		t.Fatalf("timestamp: %q", r.Timestamp)
	}
	parsed, ok := ParseTimestamp(r.Timestamp, loc)
	if !ok || !parsed.Equal(r.At) {
		t.Fatalf("parsed %v (ok=%v), want %v", parsed, ok, r.At)
	}
}

func TestRecordValidate(t *testing.T) {
	good := rec(time.Now(), "alice", 1, "Food")
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []struct {
		r   ExpenseRecord
		err error
	}{
		{ExpenseRecord{Username: "", Amount: 1, Description: "x"}, ErrEmptyUsername},
		{ExpenseRecord{Username: "a", Amount: 0, Description: "x"}, ErrInvalidAmount},
		{ExpenseRecord{Username: "a", Amount: -5, Description: "x"}, ErrInvalidAmount},
		{ExpenseRecord{Username: "a", Amount: 1, Description: " "}, ErrEmptyDescription},
	}
	for i, tc := range bads {
		if err := tc.r.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.err)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"12", 12, true},
		{"12.34", 12.34, true},
		{"12,34", 12.34, true},
		{"$1,200.50", 1200.5, true},
		{" 0 ", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"", 0, false},
		{"1.234,56", 1234.56, true},
		{"1,234.50", 1234.5, true},
		{"1.234.567", 1234567, true},
		{".5", 0.5, true},
		{"1,234", 0, false},
		{"1e3", 0, false},
		{"1e308", 0, false},
		{"12,3,4", 0, false},
		{"1.2.3", 0, false},
		{"1,2.3,4", 0, false},
		{"12.", 0, false},
		{"+5", 0, false},
		{"2000000000000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !approx(got, tc.out) {
				t.Fatalf("%q: expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if !errors.Is(err, ErrMalformedRecord) {
			t.Fatalf("%q: expected ErrMalformedRecord, got %v", tc.in, err)
		}
	}
	if got := FormatAmount(33.333333); got != "33.33" {
		t.Fatalf("FormatAmount: %q", got)
	}
	if got := FormatCurrency("$", 12.5); got != "$12.50" {
		t.Fatalf("FormatCurrency: %q", got)
	}
}
