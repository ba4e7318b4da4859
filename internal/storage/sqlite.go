package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"budgeter/internal/core"
	"budgeter/internal/log"
)

var _ SessionStore = (*SQLiteStore)(nil)

const (
	selectSession = `SELECT user_id, chat_id, ledger_ref, reminder_enabled, pending_date, step, updated_at
FROM sessions`

	upsertSession = `INSERT INTO sessions (user_id, chat_id, ledger_ref, reminder_enabled, pending_date, step, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    chat_id = excluded.chat_id,
    ledger_ref = excluded.ledger_ref,
    reminder_enabled = excluded.reminder_enabled,
    pending_date = excluded.pending_date,
    step = excluded.step,
    updated_at = excluded.updated_at`
)

type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *log.Logger
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// the embedded migrations.
func NewSQLiteStore(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; sqlite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now, logger: logger.WithComponent(log.ComponentStorage)}
	s.logger.Info("session store ready", "backend", "sqlite", "db_path", dbPath)
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Get(ctx context.Context, userID int64) (core.Session, error) {
	row := s.db.QueryRowContext(ctx, selectSession+` WHERE user_id = ?`, userID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{UserID: userID}, nil
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session %d: %w", userID, err)
	}
	return sess, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess core.Session) error {
	if err := checkSession(sess); err != nil {
		return err
	}
	ref := sql.NullString{String: sess.LedgerRef, Valid: sess.LedgerRef != ""}
	_, err := s.db.ExecContext(ctx, upsertSession,
		sess.UserID, sess.ChatID, ref, sess.ReminderEnabled,
		EncodePendingDate(sess.PendingDate), string(sess.Step),
		s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.logger.LogError(ctx, "save session failed", err, log.OpSave,
			log.NewFields().WithUser(sess.UserID, sess.ChatID))
		return fmt.Errorf("save session %d: %w", sess.UserID, err)
	}
	s.logger.DebugContext(ctx, "session saved",
		log.NewFields().WithUser(sess.UserID, sess.ChatID).ToSlice()...)
	return nil
}

func (s *SQLiteStore) ListReminders(ctx context.Context) ([]core.Session, error) {
	rows, err := s.db.QueryContext(ctx, selectSession+` WHERE reminder_enabled = 1 ORDER BY user_id`)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (core.Session, error) {
	var (
		sess    core.Session
		ref     sql.NullString
		pending sql.NullString
		step    string
		updated string
	)
	if err := sc.Scan(&sess.UserID, &sess.ChatID, &ref, &sess.ReminderEnabled, &pending, &step, &updated); err != nil {
		return core.Session{}, err
	}
	d, err := DecodePendingDate(pending)
	if err != nil {
		return core.Session{}, err
	}
	sess.LedgerRef = ref.String
	sess.PendingDate = d
	sess.Step = core.Step(step)
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		sess.UpdatedAt = t
	}
	return sess, nil
}
