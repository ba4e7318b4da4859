package services

import (
	"context"
	"errors"
	"testing"

	"budgeter/internal/core"
)

func TestBackfill_ChainsUntilUpToDate(t *testing.T) {
	ctx := context.Background()
	store := seeded([]string{"Date", "Spend"}, []string{"01/01/2021", "20"})
	b := NewBackfill(NewLedgerGateway(store, ref, nil), FixedClock(day(5)))

	s, err := b.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for want := 2; want <= 4; want++ {
		aw, ok := s.(AwaitingAmount)
		if !ok {
			t.Fatalf("state = %#v, want AwaitingAmount", s)
		}
		if !aw.Date.Equal(day(want)) {
			t.Fatalf("asked for %s, want %s", aw.Date, day(want))
		}
		s, err = b.Submit(ctx, aw, "1.50")
		if err != nil {
			t.Fatalf("submit %s: %v", aw.Date, err)
		}
	}
	done, ok := s.(UpToDate)
	if !ok {
		t.Fatalf("final state = %#v", s)
	}
	if done.Ledger.Len() != 4 || done.Recorded == nil || !done.Recorded.Date.Equal(day(4)) {
		t.Fatalf("final = %d records, recorded %+v", done.Ledger.Len(), done.Recorded)
	}
}

func TestBackfill_Start(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]string
		wantDate core.Date // zero means UpToDate
	}{
		{name: "empty ledger asks about yesterday", wantDate: day(4)},
		{name: "header only asks about yesterday", rows: [][]string{{"Date", "Spend"}}, wantDate: day(4)},
		{name: "caught up to yesterday", rows: [][]string{{"Date", "Spend"}, {"04/01/2021", "1"}}},
		{name: "already logged today", rows: [][]string{{"Date", "Spend"}, {"05/01/2021", "1"}}},
		{name: "behind", rows: [][]string{{"Date", "Spend"}, {"02/01/2021", "1"}}, wantDate: day(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seeded(tt.rows...)
			b := NewBackfill(NewLedgerGateway(store, ref, nil), FixedClock(day(5)))
			s, err := b.Start(context.Background())
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			if tt.wantDate.IsEmpty() {
				if _, ok := s.(UpToDate); !ok {
					t.Fatalf("state = %#v, want UpToDate", s)
				}
				return
			}
			aw, ok := s.(AwaitingAmount)
			if !ok || !aw.Date.Equal(tt.wantDate) {
				t.Fatalf("state = %#v, want AwaitingAmount %s", s, tt.wantDate)
			}
		})
	}
}

func TestBackfill_EmptyLedgerSingleEntry(t *testing.T) {
	ctx := context.Background()
	store := seeded()
	b := NewBackfill(NewLedgerGateway(store, ref, nil), FixedClock(day(5)))

	s, _ := b.Start(ctx)
	s, err := b.Step(ctx, s, "12")
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if _, ok := s.(UpToDate); !ok {
		t.Fatalf("state = %#v", s)
	}
	if store.Rows(ref) != 2 {
		t.Fatalf("rows = %d", store.Rows(ref))
	}
}

func TestBackfill_BadInputRepromptsSameDate(t *testing.T) {
	ctx := context.Background()
	store := seeded([]string{"Date", "Spend"}, []string{"01/01/2021", "20"})
	b := NewBackfill(NewLedgerGateway(store, ref, nil), FixedClock(day(5)))

	for _, input := range []string{"lots", "", "-4", "1.2.3", "1,200", "£1,200"} {
		s, err := b.Submit(ctx, AwaitingAmount{Date: day(2)}, input)
		var pe *core.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("input %q: expected ParseError, got %v", input, err)
		}
		if aw, ok := s.(AwaitingAmount); !ok || !aw.Date.Equal(day(2)) {
			t.Fatalf("input %q: state = %#v", input, s)
		}
	}
	if _, appends := store.Calls(); appends != 0 {
		t.Fatal("bad input reached the store")
	}
}

func TestBackfill_PreconditionRederivesDate(t *testing.T) {
	ctx := context.Background()
	store := seeded([]string{"Date", "Spend"}, []string{"01/01/2021", "20"}, []string{"02/01/2021", "3"})
	b := NewBackfill(NewLedgerGateway(store, ref, nil), FixedClock(day(5)))

	// The conversation still thinks 02/01 is missing; another device filled it.
	s, err := b.Submit(ctx, AwaitingAmount{Date: day(2)}, "7")
	var dup *core.DuplicateDateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if aw, ok := s.(AwaitingAmount); !ok || !aw.Date.Equal(day(3)) {
		t.Fatalf("state = %#v, want AwaitingAmount 03/01", s)
	}
}

func TestBackfill_StepOnTerminal(t *testing.T) {
	b := NewBackfill(NewLedgerGateway(seeded(), ref, nil), FixedClock(day(5)))
	done := UpToDate{}
	s, err := b.Step(context.Background(), done, "5")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(UpToDate); !ok {
		t.Fatalf("state = %#v", s)
	}
}

func TestClockToday(t *testing.T) {
	if got := FixedClock(day(9)).Today(); !got.Equal(day(9)) {
		t.Fatalf("today = %s", got)
	}
}
