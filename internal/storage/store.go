// Package storage persists per-user sessions between messages.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"budgeter/internal/core"
)

// SessionStore keeps one session per user. Get never fails for an unknown
// user: it returns a zero session carrying only the user ID.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (core.Session, error)
	Save(ctx context.Context, s core.Session) error
	// ListReminders returns every session with reminders enabled, by user ID.
	ListReminders(ctx context.Context) ([]core.Session, error)
	Close() error
}

// pendingLayout is how pending dates are stored.
const pendingLayout = time.DateOnly

// EncodePendingDate renders d for storage; the zero date is NULL.
func EncodePendingDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(pendingLayout), Valid: true}
}

// DecodePendingDate is the inverse of EncodePendingDate.
func DecodePendingDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(pendingLayout, s.String)
	if err != nil {
		return core.Date{}, fmt.Errorf("decode pending date %q: %w", s.String, err)
	}
	return core.DateOf(t), nil
}

// checkSession rejects sessions no backend should persist.
func checkSession(s core.Session) error {
	if s.UserID == 0 {
		return fmt.Errorf("save session: missing user id")
	}
	if !s.Step.Valid() {
		return fmt.Errorf("save session %d: unknown step %q", s.UserID, s.Step)
	}
	return nil
}

// CheckSession is checkSession for backends outside this package.
func CheckSession(s core.Session) error {
	return checkSession(s)
}
