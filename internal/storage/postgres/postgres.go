// Package postgres stores sessions in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"budgeter/internal/core"
	"budgeter/internal/log"
	"budgeter/internal/storage"
)

//go:embed 001_sessions.sql
var migrationSQL string

var _ storage.SessionStore = (*Store)(nil)

const (
	selectSession = `SELECT user_id, chat_id, ledger_ref, reminder_enabled, pending_date, step, updated_at
FROM sessions`

	upsertSession = `INSERT INTO sessions (user_id, chat_id, ledger_ref, reminder_enabled, pending_date, step, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (user_id) DO UPDATE SET
    chat_id = EXCLUDED.chat_id,
    ledger_ref = EXCLUDED.ledger_ref,
    reminder_enabled = EXCLUDED.reminder_enabled,
    pending_date = EXCLUDED.pending_date,
    step = EXCLUDED.step,
    updated_at = EXCLUDED.updated_at`
)

// Config holds the pool settings.
type Config struct {
	DSN         string
	MaxPoolSize int
}

type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// New connects, pings and applies the schema.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 5
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{pool: pool, logger: logger.WithComponent(log.ComponentStorage)}
	if _, err := pool.Exec(ctx, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	s.logger.Info("session store ready", "backend", "postgres",
		"host", poolConfig.ConnConfig.Host, "database", poolConfig.ConnConfig.Database)
	return s, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Get(ctx context.Context, userID int64) (core.Session, error) {
	row := s.pool.QueryRow(ctx, selectSession+` WHERE user_id = $1`, userID)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Session{UserID: userID}, nil
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session %d: %w", userID, err)
	}
	return sess, nil
}

func (s *Store) Save(ctx context.Context, sess core.Session) error {
	if err := storage.CheckSession(sess); err != nil {
		return err
	}
	var ref *string
	if sess.LedgerRef != "" {
		ref = &sess.LedgerRef
	}
	var pending *time.Time
	if !sess.PendingDate.IsEmpty() {
		pending = &sess.PendingDate.Time
	}
	_, err := s.pool.Exec(ctx, upsertSession,
		sess.UserID, sess.ChatID, ref, sess.ReminderEnabled, pending, string(sess.Step))
	if err != nil {
		s.logger.LogError(ctx, "save session failed", err, log.OpSave,
			log.NewFields().WithUser(sess.UserID, sess.ChatID))
		return fmt.Errorf("save session %d: %w", sess.UserID, err)
	}
	return nil
}

func (s *Store) ListReminders(ctx context.Context) ([]core.Session, error) {
	rows, err := s.pool.Query(ctx, selectSession+` WHERE reminder_enabled ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []core.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list reminders: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (core.Session, error) {
	var (
		sess    core.Session
		ref     *string
		pending *time.Time
		step    string
	)
	if err := row.Scan(&sess.UserID, &sess.ChatID, &ref, &sess.ReminderEnabled, &pending, &step, &sess.UpdatedAt); err != nil {
		return core.Session{}, err
	}
	if ref != nil {
		sess.LedgerRef = *ref
	}
	if pending != nil {
		sess.PendingDate = core.DateOf(*pending)
	}
	sess.Step = core.Step(step)
	return sess, nil
}
