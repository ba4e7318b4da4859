// Package events defines the notifications the bot emits for other
// systems: appended records and operator error reports.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgeter/internal/log"
)

// Event types.
const (
	TypeRecordAppended Type = "ledger.record_appended"
	TypeOperatorError  Type = "operator.error"
	TypeReminderSent   Type = "reminder.sent"
)

type Type string

// Event is the JSON envelope every backend publishes.
type Event struct {
	ID      uuid.UUID         `json:"id"`
	Type    Type              `json:"type"`
	UserID  int64             `json:"user_id,omitempty"`
	Time    time.Time         `json:"time"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Publisher delivers events. Publish must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// New builds an event with a fresh ID stamped now.
func New(t Type, userID int64, payload map[string]string) Event {
	return Event{
		ID:      uuid.New(),
		Type:    t,
		UserID:  userID,
		Time:    time.Now().UTC(),
		Payload: payload,
	}
}

// Key is the partition or routing key for the event.
func (e Event) Key() string {
	if e.UserID != 0 {
		return fmt.Sprintf("user-%d", e.UserID)
	}
	return string(e.Type)
}

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal decodes an event produced by Marshal.
func Unmarshal(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.ID == uuid.Nil || e.Type == "" {
		return Event{}, errors.New("decode event: missing id or type")
	}
	return e, nil
}

// LogPublisher writes events to the log. It is the default backend.
type LogPublisher struct {
	logger *log.Logger
}

func NewLogPublisher(logger *log.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.WithComponent(log.ComponentEvents)}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.InfoContext(ctx, "event",
		"event_id", e.ID.String(),
		log.FieldEventType, string(e.Type),
		log.FieldUserID, e.UserID,
		"payload", e.Payload)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error // returned by Publish when set
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns the recorded events, optionally only those of type t.
func (r *Recorder) Events(types ...Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if len(types) == 0 || containsType(types, e.Type) {
			out = append(out, e)
		}
	}
	return out
}

func containsType(types []Type, t Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
