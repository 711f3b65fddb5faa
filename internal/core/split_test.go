package core

import (
	"errors"
	"testing"
	"time"
)

func TestAllocate(t *testing.T) {
	at := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

	res, err := Allocate(100, "Dinner", []string{"alice", "bob", "alice"}, at, "Food")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(res.Records) != 2 || len(res.Participants) != 2 {
		t.Fatalf("expected 2 records, got %+v", res)
	}
	if res.PerPerson != 50 {
		t.Fatalf("per person: %v", res.PerPerson)
	}
	for i, r := range res.Records {
		if r.Amount != 50 || r.Category != "Food" || r.Timestamp != "2025-03-12 12:00:00" {
			t.Fatalf("record %d: %+v", i, r)
		}
		if r.Description != "Dinner (Split 2 ways)" {
			t.Fatalf("description: %q", r.Description)
		}
	}
	if res.Records[0].Username != "alice" || res.Records[1].Username != "bob" {
		t.Fatalf("participant order: %+v", res.Participants)
	}

	res, err = Allocate(100, "Taxi", []string{"a", "b", "c"}, at, "")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if res.Records[0].Amount != 33.33 || res.Records[0].Category != DefaultSplitCategory {
		t.Fatalf("rounded record: %+v", res.Records[0])
	}
	if !approx(res.PerPerson*3, 100) {
		t.Fatalf("per person must stay unrounded: %v", res.PerPerson)
	}
}

func TestAllocateErrors(t *testing.T) {
	at := time.Now()
	if _, err := Allocate(10, "x", []string{"alice"}, at, ""); !errors.Is(err, ErrInsufficientParticipants) {
		t.Fatalf("expected ErrInsufficientParticipants, got %v", err)
	}
	if _, err := Allocate(10, "x", []string{"alice", "alice", " "}, at, ""); !errors.Is(err, ErrInsufficientParticipants) {
		t.Fatalf("expected ErrInsufficientParticipants after dedup, got %v", err)
	}
	for _, amt := range []float64{0, -5} {
		if _, err := Allocate(amt, "x", []string{"a", "b"}, at, ""); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%v: expected ErrInvalidAmount, got %v", amt, err)
		}
	}
}
