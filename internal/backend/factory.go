// Package backend builds the stores, publishers and messengers selected by
// configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"budgeter/internal/amqp"
	"budgeter/internal/bot"
	"budgeter/internal/cache"
	"budgeter/internal/config"
	"budgeter/internal/events"
	"budgeter/internal/events/kafka"
	bhttp "budgeter/internal/http"
	"budgeter/internal/log"
	"budgeter/internal/sheets"
	"budgeter/internal/sheets/google"
	"budgeter/internal/sheets/memory"
	"budgeter/internal/storage"
	"budgeter/internal/storage/postgres"
)

// Resources are the collaborators built from configuration. Close releases
// them in reverse order of creation.
type Resources struct {
	Ledgers   sheets.LedgerStore
	Sessions  storage.SessionStore
	Events    events.Publisher
	Messenger bot.Messenger
	// ServiceAccount is the address users share spreadsheets with; empty
	// for the memory ledger.
	ServiceAccount string
	// Caches are swept by a janitor while the process runs.
	Caches []cache.Cleaner

	closers []func() error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ready reports whether the session store answers.
func (r *Resources) Ready(ctx context.Context) error {
	if p, ok := r.Sessions.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger}
}

// Build creates every resource. On failure anything already opened is
// closed before returning.
func (f *Factory) Build(ctx context.Context, cfg *config.Config) (*Resources, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	r := &Resources{}
	steps := []func(context.Context, *config.Config, *Resources) error{
		f.ledgers,
		f.sessions,
		f.events,
		f.messenger,
	}
	for _, step := range steps {
		if err := step(ctx, cfg, r); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	return r, nil
}

// Ledgers builds only the ledger store, for tools that need nothing else.
func (f *Factory) Ledgers(ctx context.Context, cfg *config.Config) (sheets.LedgerStore, error) {
	r := &Resources{}
	if err := f.ledgers(ctx, cfg, r); err != nil {
		return nil, err
	}
	return r.Ledgers, nil
}

func (f *Factory) ledgers(ctx context.Context, cfg *config.Config, r *Resources) error {
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		r.Ledgers = memory.New()
		f.logger.Info("Initialized memory ledger backend")
	case config.BackendSheets:
		creds, err := google.LoadCredentials(cfg.GoogleServiceAccountJSON, credentialsFile(cfg))
		if err != nil {
			return err
		}
		client, err := google.New(ctx, google.Config{
			CredentialsJSON: creds,
			SheetName:       cfg.LedgerSheetName,
			Logger:          f.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		r.Ledgers = client
		r.ServiceAccount = client.ServiceAccount()
		r.Caches = append(r.Caches, client.AccessCache())
	default:
		return fmt.Errorf("unsupported ledger backend: %s", cfg.LedgerBackend)
	}
	return nil
}

func credentialsFile(cfg *config.Config) string {
	if cfg.GoogleServiceAccountFile != "" {
		return cfg.GoogleServiceAccountFile
	}
	return cfg.GoogleApplicationCredentials
}

func (f *Factory) sessions(ctx context.Context, cfg *config.Config, r *Resources) error {
	var store storage.SessionStore
	switch cfg.SessionBackend {
	case config.BackendMemory:
		store = storage.NewMemoryStore()
	case config.BackendSQLite:
		s, err := storage.NewSQLiteStore(cfg.SQLiteDBPath, f.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize SQLite session store: %w", err)
		}
		store = s
	case config.BackendPostgres:
		s, err := postgres.New(ctx, postgres.Config{DSN: cfg.PostgresDSN}, f.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Postgres session store: %w", err)
		}
		store = s
	default:
		return fmt.Errorf("unsupported session backend: %s", cfg.SessionBackend)
	}
	r.Sessions = store
	r.closers = append(r.closers, store.Close)
	return nil
}

func (f *Factory) events(_ context.Context, cfg *config.Config, r *Resources) error {
	var pub events.Publisher
	switch cfg.EventsBackend {
	case config.BackendNone, "":
		pub = events.NewLogPublisher(f.logger)
	case config.BackendAMQP:
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			// Events are best-effort; keep serving without them.
			f.logger.Warn("Failed to initialize AMQP client, falling back to log events", log.FieldError, err)
			pub = events.NewLogPublisher(f.logger)
			break
		}
		f.logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		pub = c
	case config.BackendKafka:
		p, err := kafka.NewPublisher(cfg.Brokers(), cfg.KafkaTopic, f.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Kafka publisher: %w", err)
		}
		pub = p
	default:
		return fmt.Errorf("unsupported events backend: %s", cfg.EventsBackend)
	}
	r.Events = pub
	r.closers = append(r.closers, pub.Close)
	return nil
}

func (f *Factory) messenger(_ context.Context, cfg *config.Config, r *Resources) error {
	if cfg.OutboundWebhookURL == "" {
		r.Messenger = bot.NewLogMessenger(f.logger)
		return nil
	}
	r.Messenger = bhttp.NewWebhookMessenger(cfg.OutboundWebhookURL, f.logger)
	f.logger.Info("Outbound messages go to webhook", "url", cfg.OutboundWebhookURL)
	return nil
}
