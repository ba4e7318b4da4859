package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"budgeter/internal/core"
)

var _ SessionStore = (*MemoryStore)(nil)

// MemoryStore keeps sessions in a map. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]core.Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[int64]core.Session{}, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}
	return core.Session{UserID: userID}, nil
}

func (m *MemoryStore) Save(_ context.Context, s core.Session) error {
	if err := checkSession(s); err != nil {
		return err
	}
	s.UpdatedAt = m.now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
	return nil
}

func (m *MemoryStore) ListReminders(_ context.Context) ([]core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Session
	for _, s := range m.sessions {
		if s.ReminderEnabled {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
