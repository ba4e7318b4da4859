// Package services orchestrates the ledger: reading and validating the
// remote table, appending with precondition checks, and the backfill
// conversation that fills in missing days.
package services

import (
	"context"
	"errors"
	"fmt"

	"budgeter/internal/core"
	"budgeter/internal/ledger"
	"budgeter/internal/log"
	"budgeter/internal/sheets"
)

// Ledger is what the backfill flow needs from a gateway.
type Ledger interface {
	Read(ctx context.Context) (core.Ledger, error)
	Append(ctx context.Context, d core.Date, a core.Amount) (core.Ledger, error)
}

var _ Ledger = (*LedgerGateway)(nil)

// LedgerGateway reads and appends one user's ledger. Every call reads the
// store afresh; nothing is cached between calls.
type LedgerGateway struct {
	store  sheets.LedgerStore
	ref    string
	logger *log.Logger
}

func NewLedgerGateway(store sheets.LedgerStore, ref string, logger *log.Logger) *LedgerGateway {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerGateway{store: store, ref: ref, logger: logger.WithComponent(log.ComponentLedger)}
}

// Ref returns the spreadsheet reference the gateway works on.
func (g *LedgerGateway) Ref() string {
	return g.ref
}

// Read returns the validated ledger. It fails with *core.FormatError when
// the table breaks the ledger contract and *core.AccessError when the store
// cannot be read.
func (g *LedgerGateway) Read(ctx context.Context) (core.Ledger, error) {
	_, l, err := g.load(ctx)
	return l, err
}

// Append adds one record after the latest one and returns the ledger as
// re-read from the store.
//
// The date must be new and later than every recorded date; otherwise
// *core.DuplicateDateError or *core.OutOfOrderError is returned and nothing
// is written. Because of that check a blind retry of an append that did
// land fails fast rather than writing the day twice.
func (g *LedgerGateway) Append(ctx context.Context, d core.Date, a core.Amount) (core.Ledger, error) {
	row, err := ledger.NewRow(d, a)
	if err != nil {
		return core.Ledger{}, err
	}
	raw, current, err := g.load(ctx)
	if err != nil {
		return core.Ledger{}, err
	}
	if current.Contains(d) {
		return core.Ledger{}, &core.DuplicateDateError{Date: d}
	}
	if latest, ok := current.MaxDate(); ok && d.Compare(latest) < 0 {
		return core.Ledger{}, &core.OutOfOrderError{Date: d, Latest: latest}
	}

	if len(raw) == 0 {
		header := core.DefaultHeader
		if err := g.store.AppendRow(ctx, g.ref, header[:]); err != nil {
			return core.Ledger{}, asAccessError(log.OpAppend, g.ref, err)
		}
		g.logger.InfoContext(ctx, "wrote header to empty ledger")
	}
	if err := g.store.AppendRow(ctx, g.ref, row); err != nil {
		return core.Ledger{}, asAccessError(log.OpAppend, g.ref, err)
	}
	g.logger.InfoContext(ctx, "record appended",
		log.NewFields().WithOperation(log.OpAppend).WithRecord(row[0], row[1]).ToSlice()...)

	updated, err := g.Read(ctx)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("verify after append: %w", err)
	}
	return updated, nil
}

// CheckAccess verifies the credential can edit the ledger.
func (g *LedgerGateway) CheckAccess(ctx context.Context) error {
	if err := g.store.CheckAccess(ctx, g.ref); err != nil {
		return asAccessError(log.OpCheck, g.ref, err)
	}
	return nil
}

func (g *LedgerGateway) load(ctx context.Context) (ledger.Table, core.Ledger, error) {
	raw, err := g.store.ReadAllRows(ctx, g.ref)
	if err != nil {
		return nil, core.Ledger{}, asAccessError(log.OpRead, g.ref, err)
	}
	l, err := ledger.Load(raw)
	if err != nil {
		g.logger.WarnContext(ctx, "ledger failed validation", log.FieldError, err)
		return nil, core.Ledger{}, err
	}
	return raw, l, nil
}

// asAccessError keeps classified errors as they are and wraps anything
// else a store returns as an access failure.
func asAccessError(op, ref string, err error) error {
	var ae *core.AccessError
	if errors.As(err, &ae) || errors.Is(err, core.ErrInvalidReference) {
		return err
	}
	return &core.AccessError{Op: op, Ref: ref, Err: err}
}
