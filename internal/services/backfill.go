package services

import (
	"context"
	"errors"

	"budgeter/internal/core"
	"budgeter/internal/stats"
)

// State is one step of the fill-missing-days conversation. The concrete
// states are AskingForDate, AwaitingAmount and UpToDate.
type State interface {
	state()
}

type (
	// AskingForDate is the entry state: the next missing date is not yet known.
	AskingForDate struct{}

	// AwaitingAmount waits for the amount spent on Date. Recorded is the
	// record just written when the state was reached by chaining.
	AwaitingAmount struct {
		Date     core.Date
		Recorded *core.Record
	}

	// UpToDate is terminal: there is nothing left to fill before today.
	UpToDate struct {
		Ledger   core.Ledger
		Recorded *core.Record
	}
)

func (AskingForDate) state()  {}
func (AwaitingAmount) state() {}
func (UpToDate) state()       {}

// Backfill drives the conversation against one ledger.
type Backfill struct {
	ledger Ledger
	clock  Clock
}

func NewBackfill(l Ledger, clock Clock) *Backfill {
	return &Backfill{ledger: l, clock: clock}
}

// Start runs the AskingForDate transition: it reads the ledger and asks
// for the first missing date, or reports the ledger up to date.
func (b *Backfill) Start(ctx context.Context) (State, error) {
	l, err := b.ledger.Read(ctx)
	if err != nil {
		return AskingForDate{}, err
	}
	return b.next(l, nil), nil
}

// Submit runs the AwaitingAmount transition with the user's input.
//
// Input that is not an amount leaves the state unchanged and returns a
// *core.ParseError. A valid amount is appended; the result is UpToDate or
// AwaitingAmount for the following missing date. When the append is
// rejected by a precondition the next state is re-derived from a fresh
// read and returned alongside the error.
func (b *Backfill) Submit(ctx context.Context, s AwaitingAmount, input string) (State, error) {
	amount, err := core.ParseAmount(input)
	if err != nil {
		return s, &core.ParseError{Input: input, Err: err}
	}
	l, err := b.ledger.Append(ctx, s.Date, amount)
	if err != nil {
		if core.IsPrecondition(err) {
			if next, rerr := b.Start(ctx); rerr == nil {
				return next, err
			}
			return AskingForDate{}, err
		}
		return s, err
	}
	recorded := core.Record{Date: s.Date, Amount: amount}
	return b.next(l, &recorded), nil
}

// Step dispatches input to the transition for s. AskingForDate ignores the
// input; UpToDate is terminal and returns itself.
func (b *Backfill) Step(ctx context.Context, s State, input string) (State, error) {
	switch st := s.(type) {
	case AskingForDate:
		return b.Start(ctx)
	case AwaitingAmount:
		return b.Submit(ctx, st, input)
	case UpToDate:
		return st, nil
	default:
		return s, errors.New("backfill: unknown state")
	}
}

func (b *Backfill) next(l core.Ledger, recorded *core.Record) State {
	missing := stats.FirstMissingDate(l, b.clock.Today())
	if missing.Compare(b.clock.Today()) >= 0 {
		return UpToDate{Ledger: l, Recorded: recorded}
	}
	return AwaitingAmount{Date: missing, Recorded: recorded}
}
