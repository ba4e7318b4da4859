// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"budgeter/internal/scheduler"
)

// Backend names accepted by the *_BACKEND keys.
const (
	BackendSheets   = "sheets"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNone     = "none"
	BackendAMQP     = "amqp"
	BackendKafka    = "kafka"
)

var (
	ledgerBackends  = []string{BackendSheets, BackendMemory}
	sessionBackends = []string{BackendSQLite, BackendPostgres, BackendMemory}
	eventsBackends  = []string{BackendNone, BackendAMQP, BackendKafka}
)

type Config struct {
	// HTTP server
	Port               string `koanf:"PORT"`
	RateLimitPerMinute int    `koanf:"RATE_LIMIT_PER_MINUTE"`

	// Logging
	LogLevel  string `koanf:"LOG_LEVEL"`
	LogFormat string `koanf:"LOG_FORMAT"`

	// Backend selection
	LedgerBackend  string `koanf:"LEDGER_BACKEND"`
	SessionBackend string `koanf:"SESSION_BACKEND"`
	EventsBackend  string `koanf:"EVENTS_BACKEND"`

	// Sessions
	SQLiteDBPath string `koanf:"SQLITE_DB_PATH"`
	PostgresDSN  string `koanf:"POSTGRES_DSN"`

	// Google Sheets
	GoogleServiceAccountJSON     string `koanf:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile     string `koanf:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleApplicationCredentials string `koanf:"GOOGLE_APPLICATION_CREDENTIALS"`
	LedgerSheetName              string `koanf:"LEDGER_SHEET_NAME"`

	// Events
	AMQPURL      string `koanf:"AMQP_URL"`
	AMQPExchange string `koanf:"AMQP_EXCHANGE"`
	AMQPQueue    string `koanf:"AMQP_QUEUE"`
	KafkaBrokers string `koanf:"KAFKA_BROKERS"`
	KafkaTopic   string `koanf:"KAFKA_TOPIC"`

	// Reminders
	ReminderTime  string        `koanf:"REMINDER_TIME"`
	Timezone      string        `koanf:"TIMEZONE"`
	SchedulerTick time.Duration `koanf:"SCHEDULER_TICK"`

	// Bot
	AdminChatID        int64  `koanf:"ADMIN_CHAT_ID"`
	OutboundWebhookURL string `koanf:"OUTBOUND_WEBHOOK_URL"`
	Currency           string `koanf:"CURRENCY"`
	StatsWindowDays    int    `koanf:"STATS_WINDOW_DAYS"`
}

// Load reads the environment into a Config and fills in defaults for
// anything unset. It fails only when a value cannot be converted to its
// field's type; use Validate for everything else.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Port, "8080")
	setDefault(&c.LogLevel, "INFO")
	setDefault(&c.LogFormat, "text")
	setDefault(&c.LedgerBackend, BackendSheets)
	setDefault(&c.SessionBackend, BackendSQLite)
	setDefault(&c.EventsBackend, BackendNone)
	setDefault(&c.SQLiteDBPath, "./data/budgeter.db")
	setDefault(&c.AMQPExchange, "budgeter")
	setDefault(&c.AMQPQueue, "budgeter.events")
	setDefault(&c.KafkaTopic, "budgeter.events")
	setDefault(&c.ReminderTime, "09:00")
	setDefault(&c.Timezone, "UTC")
	setDefault(&c.Currency, "GBP")
	if c.SchedulerTick == 0 {
		c.SchedulerTick = 30 * time.Second
	}
	if c.StatsWindowDays == 0 {
		c.StatsWindowDays = 30
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// Validate validates the configuration and returns every problem found as
// a single error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if !slices.Contains(ledgerBackends, c.LedgerBackend) {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, ledgerBackends))
	}
	if !slices.Contains(sessionBackends, c.SessionBackend) {
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be one of %v", c.SessionBackend, sessionBackends))
	}
	if !slices.Contains(eventsBackends, c.EventsBackend) {
		errors = append(errors, fmt.Sprintf("invalid events backend '%s': must be one of %v", c.EventsBackend, eventsBackends))
	}

	if c.LedgerBackend == BackendSheets {
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredentials == "" {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" {
			for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleApplicationCredentials} {
				if f == "" {
					continue
				}
				if _, err := os.Stat(f); os.IsNotExist(err) {
					errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", f))
				}
			}
		}
	}

	switch c.SessionBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	}

	switch c.EventsBackend {
	case BackendAMQP:
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil || c.AMQPURL == "" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': required for amqp events backend", c.AMQPURL))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when using amqp events backend")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when using amqp events backend")
		}
	case BackendKafka:
		if len(c.Brokers()) == 0 {
			errors = append(errors, "KAFKA_BROKERS is required when using kafka events backend")
		}
		if c.KafkaTopic == "" {
			errors = append(errors, "Kafka topic cannot be empty when using kafka events backend")
		}
	}

	if _, err := scheduler.ParseTimeOfDay(c.ReminderTime); err != nil {
		errors = append(errors, fmt.Sprintf("invalid reminder time '%s': must be HH:MM", c.ReminderTime))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if c.SchedulerTick < time.Second {
		errors = append(errors, fmt.Sprintf("invalid scheduler tick %v: must be at least 1 second", c.SchedulerTick))
	} else if c.SchedulerTick > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid scheduler tick %v: must be at most 1 hour", c.SchedulerTick))
	}

	if c.OutboundWebhookURL != "" {
		if u, err := url.Parse(c.OutboundWebhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid outbound webhook URL '%s': must be an http(s) URL", c.OutboundWebhookURL))
		}
	}
	if len(c.Currency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be an ISO 4217 code", c.Currency))
	}
	if c.StatsWindowDays < 2 {
		errors = append(errors, fmt.Sprintf("invalid stats window %d: must be at least 2", c.StatsWindowDays))
	} else if c.StatsWindowDays > 366 {
		errors = append(errors, fmt.Sprintf("invalid stats window %d: must be at most 366", c.StatsWindowDays))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Brokers splits KAFKA_BROKERS on commas.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Location returns the configured time zone, or UTC if it does not load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Reminder returns REMINDER_TIME parsed; it falls back to 09:00.
func (c *Config) Reminder() scheduler.TimeOfDay {
	at, err := scheduler.ParseTimeOfDay(c.ReminderTime)
	if err != nil {
		return scheduler.TimeOfDay{Hour: 9}
	}
	return at
}
