// Command ledgerctl inspects and edits spending ledgers from the shell,
// using the same store configuration as the bot.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"budgeter/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	a := newApp(os.Stdout, os.Stderr)
	for _, c := range a.ledgerCommands() {
		commander.Register(c, "ledger")
	}
	commander.Register(&tailCmd{app: a}, "events")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
