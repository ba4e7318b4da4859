package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"budgeter/internal/amqp"
	"budgeter/internal/cli"
	"budgeter/internal/config"
	"budgeter/internal/events"
	"budgeter/internal/log"
)

const reconnectAttempts = 5

// eventSource is the part of the AMQP client tail drives.
type eventSource interface {
	Consume(ctx context.Context, handler func(events.Event) error) error
	Reconnect(ctx context.Context, attempts int) error
}

// follow consumes until ctx is done, reconnecting whenever the broker
// drops the delivery channel.
func follow(ctx context.Context, src eventSource, attempts int, handler func(events.Event) error) error {
	for {
		err := src.Consume(ctx, handler)
		if !errors.Is(err, amqp.ErrDeliveriesClosed) {
			return err
		}
		if err := src.Reconnect(ctx, attempts); err != nil {
			return err
		}
	}
}

type tailCmd struct {
	app       *app
	eventType string
}

func (*tailCmd) Name() string     { return "tail" }
func (*tailCmd) Synopsis() string { return "follow events published to the AMQP queue" }
func (*tailCmd) Usage() string {
	return `ledgerctl tail [-type <event type>]

  Consumes the configured AMQP queue and prints each event until interrupted.
  Consumed events are acknowledged, so run it against a dedicated queue.
`
}

func (c *tailCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.eventType, "type", "", "Only print events of this type, e.g. operator.error.")
}

func (c *tailCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		return c.app.fail(err)
	}
	if cfg.AMQPURL == "" {
		fmt.Fprintln(c.app.errOut, "AMQP_URL is not set")
		return subcommands.ExitFailure
	}
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat, Output: c.app.errOut})

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return c.app.fail(err)
	}
	defer client.Close()

	ctx, cancel := cli.SignalContext(ctx, logger)
	defer cancel()
	err = follow(ctx, client, reconnectAttempts, func(e events.Event) error {
		if c.eventType == "" || string(e.Type) == c.eventType {
			fmt.Fprintf(c.app.out, "%s %s user=%d %v\n", e.Time.Format(time.RFC3339), e.Type, e.UserID, e.Payload)
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}
