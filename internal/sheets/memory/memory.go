// Package memory is an in-process ledger store used for local runs and
// tests. Each reference holds its own table of rows.
package memory

import (
	"context"
	"strings"
	"sync"

	"budgeter/internal/core"
	"budgeter/internal/ledger"
	ports "budgeter/internal/sheets"
)

var _ ports.LedgerStore = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	sheets  map[string]ledger.Table
	denied  map[string]bool
	reads   int
	appends int

	// Fail, when set, is consulted before every operation; a non-nil
	// return is surfaced as the operation's error.
	Fail func(op, ref string) error
}

func New() *Store {
	return &Store{sheets: map[string]ledger.Table{}, denied: map[string]bool{}}
}

// Seed replaces the rows stored for ref.
func (s *Store) Seed(ref string, t ledger.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[ref] = cloneTable(t)
}

// Deny makes CheckAccess fail for ref.
func (s *Store) Deny(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied[ref] = true
}

// ReadAllRows returns a copy of the rows stored for ref. An unknown
// reference reads as an empty sheet.
func (s *Store) ReadAllRows(_ context.Context, ref string) (ledger.Table, error) {
	if err := s.fail("read", ref); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return cloneTable(s.sheets[ref]), nil
}

// AppendRow writes row after the last non-blank row, like the Sheets
// append endpoint does.
func (s *Store) AppendRow(_ context.Context, ref string, row []string) error {
	if err := s.fail("append", ref); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++
	t := s.sheets[ref]
	end := len(t)
	for end > 0 && blank(t[end-1]) {
		end--
	}
	t = append(t[:end:end], append([]string(nil), row...))
	s.sheets[ref] = t
	return nil
}

// CheckAccess succeeds unless ref was denied.
func (s *Store) CheckAccess(_ context.Context, ref string) error {
	if err := s.fail("check", ref); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.denied[ref] {
		return &core.AccessError{Op: "check", Ref: ref, Err: core.ErrAccessDenied}
	}
	return nil
}

// Rows returns the number of stored rows for ref, header included.
func (s *Store) Rows(ref string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sheets[ref])
}

// Calls returns how many reads and appends reached the store.
func (s *Store) Calls() (reads, appends int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.appends
}

func (s *Store) fail(op, ref string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op, ref)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cloneTable(t ledger.Table) ledger.Table {
	if t == nil {
		return nil
	}
	out := make(ledger.Table, len(t))
	for i, row := range t {
		out[i] = append([]string(nil), row...)
	}
	return out
}
