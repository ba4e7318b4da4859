package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"budgeter/internal/bot"
	"budgeter/internal/config"
	"budgeter/internal/core"
	"budgeter/internal/events"
	bhttp "budgeter/internal/http"
	"budgeter/internal/log"
	"budgeter/internal/sheets/memory"
	"budgeter/internal/storage"
)

func baseConfig() *config.Config {
	return &config.Config{
		LedgerBackend:  config.BackendMemory,
		SessionBackend: config.BackendMemory,
		EventsBackend:  config.BackendNone,
	}
}

func TestBuild_Memory(t *testing.T) {
	r, err := NewFactory(log.Discard()).Build(context.Background(), baseConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer r.Close()

	if _, ok := r.Ledgers.(*memory.Store); !ok {
		t.Fatalf("ledgers = %T", r.Ledgers)
	}
	if _, ok := r.Sessions.(*storage.MemoryStore); !ok {
		t.Fatalf("sessions = %T", r.Sessions)
	}
	if _, ok := r.Events.(*events.LogPublisher); !ok {
		t.Fatalf("events = %T", r.Events)
	}
	if _, ok := r.Messenger.(*bot.LogMessenger); !ok {
		t.Fatalf("messenger = %T", r.Messenger)
	}
	if r.ServiceAccount != "" || len(r.Caches) != 0 {
		t.Fatalf("memory ledger should not carry an account or caches: %+v", r)
	}
	if err := r.Ready(context.Background()); err != nil {
		t.Fatalf("ready: %v", err)
	}
}

func TestBuild_SQLiteAndWebhook(t *testing.T) {
	cfg := baseConfig()
	cfg.SessionBackend = config.BackendSQLite
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "db", "budgeter.db")
	cfg.OutboundWebhookURL = "http://relay.invalid/send"

	r, err := NewFactory(log.Discard()).Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := r.Sessions.(*storage.SQLiteStore); !ok {
		t.Fatalf("sessions = %T", r.Sessions)
	}
	if _, ok := r.Messenger.(*bhttp.WebhookMessenger); !ok {
		t.Fatalf("messenger = %T", r.Messenger)
	}
	if err := r.Ready(context.Background()); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if err := r.Sessions.Save(context.Background(), core.Session{UserID: 1, ChatID: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "unknown ledger", mutate: func(c *config.Config) { c.LedgerBackend = "excel" }, want: "unsupported ledger backend"},
		{name: "unknown sessions", mutate: func(c *config.Config) { c.SessionBackend = "redis" }, want: "unsupported session backend"},
		{name: "unknown events", mutate: func(c *config.Config) { c.EventsBackend = "nats" }, want: "unsupported events backend"},
		{name: "kafka without brokers", mutate: func(c *config.Config) { c.EventsBackend = config.BackendKafka }, want: "Kafka"},
		{
			name: "sheets without credentials",
			mutate: func(c *config.Config) {
				c.LedgerBackend = config.BackendSheets
				c.GoogleServiceAccountJSON = "invalid-json"
			},
			want: "Google Sheets",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			_, err := NewFactory(log.Discard()).Build(context.Background(), cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBuild_NilConfig(t *testing.T) {
	if _, err := NewFactory(nil).Build(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestResourcesClose_ReverseOrder(t *testing.T) {
	var order []string
	r := &Resources{closers: []func() error{
		func() error { order = append(order, "sessions"); return nil },
		func() error { order = append(order, "events"); return nil },
	}}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "events,sessions" {
		t.Fatalf("order = %v", order)
	}
}
