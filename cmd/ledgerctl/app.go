package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"budgeter/internal/backend"
	"budgeter/internal/cli"
	"budgeter/internal/config"
	"budgeter/internal/core"
	"budgeter/internal/log"
	"budgeter/internal/services"
	"budgeter/internal/sheets"
)

// app carries what every subcommand needs. Configuration and the store are
// resolved lazily so `help` works without any environment.
type app struct {
	out    io.Writer
	errOut io.Writer

	cfg    *config.Config
	logger *log.Logger
	store  sheets.LedgerStore
	clock  services.Clock
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

func (a *app) ledgerCommands() []subcommands.Command {
	return []subcommands.Command{
		&verifyCmd{app: a},
		&statsCmd{app: a},
		&appendCmd{app: a},
		&nextCmd{app: a},
	}
}

func (a *app) setup(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if a.cfg == nil {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.logger == nil {
		a.logger = log.New(log.Config{
			Level:  log.ParseLevel(a.cfg.LogLevel),
			Format: a.cfg.LogFormat,
			Output: a.errOut,
		})
	}
	store, err := backend.NewFactory(a.logger).Ledgers(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.store = store
	if a.clock.Location == nil {
		a.clock = services.SystemClock(a.cfg.Location())
	}
	return nil
}

func (a *app) gateway(ctx context.Context, ref string) (*services.LedgerGateway, error) {
	if err := a.setup(ctx); err != nil {
		return nil, err
	}
	if _, err := sheets.SpreadsheetID(ref); err != nil {
		return nil, err
	}
	return services.NewLedgerGateway(a.store, ref, a.logger), nil
}

// fail prints err the way a user wants to read it and returns the exit
// status for it.
func (a *app) fail(err error) subcommands.ExitStatus {
	var fe *core.FormatError
	var ae *core.AccessError
	switch {
	case errors.As(err, &fe):
		fmt.Fprintf(a.errOut, "ledger is not valid: row %d: %s\n", fe.Row, fe.Reason)
	case errors.As(err, &ae):
		fmt.Fprintf(a.errOut, "cannot %s spreadsheet %s: %v\n", ae.Op, ae.Ref, ae.Err)
	default:
		fmt.Fprintln(a.errOut, err)
	}
	return subcommands.ExitFailure
}
