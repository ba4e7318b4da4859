package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"budgeter/internal/core"
)

// Both in-tree backends must behave the same.
func stores(t *testing.T) map[string]SessionStore {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "sessions.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]SessionStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestGetUnknownUser(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(context.Background(), 99)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.UserID != 99 || got.HasLedger() || got.Step != core.StepIdle || got.ReminderEnabled {
				t.Fatalf("got %+v, want zero session for user 99", got)
			}
		})
	}
}

func TestSaveAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := core.Session{
				UserID:          7,
				ChatID:          70,
				LedgerRef:       "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
				ReminderEnabled: true,
				PendingDate:     core.NewDate(2021, time.January, 3),
				Step:            core.StepAwaitingAmount,
			}
			if err := s.Save(ctx, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := s.Get(ctx, 7)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.ChatID != 70 || got.LedgerRef != want.LedgerRef || !got.ReminderEnabled ||
				!got.PendingDate.Equal(want.PendingDate) || got.Step != core.StepAwaitingAmount {
				t.Fatalf("got %+v, want %+v", got, want)
			}
			if got.UpdatedAt.IsZero() {
				t.Fatal("UpdatedAt not set")
			}

			// Overwrite clears optional fields.
			want = want.Reset()
			want.LedgerRef = ""
			if err := s.Save(ctx, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, _ = s.Get(ctx, 7)
			if got.HasLedger() || !got.PendingDate.IsEmpty() || got.Step != core.StepIdle {
				t.Fatalf("after reset got %+v", got)
			}
		})
	}
}

func TestSaveRejectsBadSessions(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Save(ctx, core.Session{}); err == nil {
				t.Fatal("expected error without user id")
			}
			if err := s.Save(ctx, core.Session{UserID: 1, Step: "dancing"}); err == nil {
				t.Fatal("expected error for unknown step")
			}
		})
	}
}

func TestListReminders(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, sess := range []core.Session{
				{UserID: 3, ChatID: 3, ReminderEnabled: true},
				{UserID: 1, ChatID: 1, ReminderEnabled: true},
				{UserID: 2, ChatID: 2},
			} {
				if err := s.Save(ctx, sess); err != nil {
					t.Fatalf("save %d: %v", sess.UserID, err)
				}
			}
			got, err := s.ListReminders(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != 2 || got[0].UserID != 1 || got[1].UserID != 3 {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestSQLiteReopenKeepsSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Save(context.Background(), core.Session{UserID: 5, ChatID: 5, LedgerRef: "abc"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(context.Background(), 5)
	if err != nil || got.LedgerRef != "abc" {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestPendingDateEncoding(t *testing.T) {
	if v := EncodePendingDate(core.Date{}); v.Valid {
		t.Fatalf("zero date encoded as %+v", v)
	}
	d := core.NewDate(2024, time.February, 29)
	enc := EncodePendingDate(d)
	if enc.String != "2024-02-29" {
		t.Fatalf("encoded %q", enc.String)
	}
	got, err := DecodePendingDate(enc)
	if err != nil || !got.Equal(d) {
		t.Fatalf("decoded %v, %v", got, err)
	}
	if _, err := DecodePendingDate(sql.NullString{String: "29/02/2024", Valid: true}); err == nil {
		t.Fatal("expected error for wrong layout")
	}
}
