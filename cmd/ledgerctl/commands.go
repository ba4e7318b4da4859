package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"budgeter/internal/core"
	"budgeter/internal/services"
	"budgeter/internal/stats"
)

type verifyCmd struct{ app *app }

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "check that a spreadsheet satisfies the ledger format" }
func (*verifyCmd) Usage() string {
	return `ledgerctl verify <spreadsheet>

  Reads the ledger and reports the first row that breaks the format, if any.
`
}
func (*verifyCmd) SetFlags(*flag.FlagSet) {}

func (c *verifyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	g, err := c.app.gateway(ctx, f.Arg(0))
	if err != nil {
		return c.app.fail(err)
	}
	l, err := g.Read(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out, "ok: %d records\n", l.Len())
	return subcommands.ExitSuccess
}

type statsCmd struct {
	app    *app
	window int
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "print spending statistics for a ledger" }
func (*statsCmd) Usage() string {
	return `ledgerctl stats [-w <days>] <spreadsheet>
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.window, "w", 30, "Trailing window, in records, compared against the one before it.")
}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 || c.window < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	g, err := c.app.gateway(ctx, f.Arg(0))
	if err != nil {
		return c.app.fail(err)
	}
	l, err := g.Read(ctx)
	if err != nil {
		return c.app.fail(err)
	}

	s := stats.Summarize(l, c.window)
	out := c.app.out
	if s.Days == 0 {
		fmt.Fprintln(out, "no records")
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(out, "days:    %d (%s to %s)\n", s.Days, s.First, s.Last)
	fmt.Fprintf(out, "total:   %s\n", s.Total.StringFixed(2))
	if !s.HasAmounts {
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(out, "mean:    %s\n", s.Mean.StringFixed(2))
	fmt.Fprintf(out, "median:  %s\n", s.Median.StringFixed(2))
	fmt.Fprintf(out, "last %d: %s %s", s.Window, s.Recent.Current.StringFixed(2), s.Recent.Trend.Arrow())
	if s.Recent.HasPrevious {
		fmt.Fprintf(out, " (before: %s)", s.Recent.Previous.StringFixed(2))
	}
	fmt.Fprintln(out)
	if p, ok := s.LatestRolling(); ok {
		fmt.Fprintf(out, "7-day:   %s on %s\n", p.Value.StringFixed(2), p.Date)
	}
	return subcommands.ExitSuccess
}

type appendCmd struct{ app *app }

func (*appendCmd) Name() string     { return "append" }
func (*appendCmd) Synopsis() string { return "record the amount spent on a day" }
func (*appendCmd) Usage() string {
	return `ledgerctl append <spreadsheet> <DD/MM/YYYY> <amount>

  The day must be later than every recorded day.
`
}
func (*appendCmd) SetFlags(*flag.FlagSet) {}

func (c *appendCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	d, err := core.ParseDate(f.Arg(1))
	if err != nil {
		fmt.Fprintf(c.app.errOut, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, err := core.ParseAmount(f.Arg(2))
	if err != nil {
		fmt.Fprintf(c.app.errOut, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}
	g, err := c.app.gateway(ctx, f.Arg(0))
	if err != nil {
		return c.app.fail(err)
	}
	l, err := g.Append(ctx, d, a)
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.out, "recorded %s on %s; ledger has %d records\n", a, d, l.Len())
	return subcommands.ExitSuccess
}

type nextCmd struct {
	app   *app
	today string
}

func (*nextCmd) Name() string     { return "next" }
func (*nextCmd) Synopsis() string { return "print the next day missing from a ledger" }
func (*nextCmd) Usage() string {
	return `ledgerctl next [-today <DD/MM/YYYY>] <spreadsheet>
`
}

func (c *nextCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.today, "today", "", "Pretend today is this day instead of the configured time zone's date.")
}

func (c *nextCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	g, err := c.app.gateway(ctx, f.Arg(0))
	if err != nil {
		return c.app.fail(err)
	}
	clock := c.app.clock
	if c.today != "" {
		d, err := core.ParseDate(c.today)
		if err != nil {
			fmt.Fprintf(c.app.errOut, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		clock = services.FixedClock(d)
	}

	st, err := services.NewBackfill(g, clock).Start(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	switch st := st.(type) {
	case services.AwaitingAmount:
		fmt.Fprintln(c.app.out, st.Date)
	default:
		fmt.Fprintln(c.app.out, "up to date")
	}
	return subcommands.ExitSuccess
}
