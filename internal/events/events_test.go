package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"budgeter/internal/log"
)

func TestEventRoundTrip(t *testing.T) {
	e := New(TypeRecordAppended, 42, map[string]string{"date": "01/01/2021", "amount": "10.00"})
	if e.ID == uuid.Nil || e.Time.IsZero() {
		t.Fatalf("event not stamped: %+v", e)
	}
	data, err := e.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != e.ID || got.Type != e.Type || got.UserID != 42 || got.Payload["amount"] != "10.00" {
		t.Fatalf("got %+v", got)
	}
	if e.Key() != "user-42" {
		t.Fatalf("key = %q", e.Key())
	}
	if New(TypeOperatorError, 0, nil).Key() != string(TypeOperatorError) {
		t.Fatal("anonymous events key by type")
	}
}

func TestUnmarshalRejectsIncomplete(t *testing.T) {
	for _, in := range []string{`not json`, `{}`, `{"type":"x"}`} {
		if _, err := Unmarshal([]byte(in)); err == nil {
			t.Errorf("Unmarshal(%q) should fail", in)
		}
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	_ = r.Publish(ctx, New(TypeRecordAppended, 1, nil))
	_ = r.Publish(ctx, New(TypeOperatorError, 0, nil))
	if len(r.Events()) != 2 || len(r.Events(TypeOperatorError)) != 1 {
		t.Fatalf("events = %v", r.Events())
	}
	r.Err = errors.New("down")
	if err := r.Publish(ctx, New(TypeReminderSent, 1, nil)); err == nil {
		t.Fatal("expected error")
	}
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(log.Discard())
	if err := p.Publish(context.Background(), New(TypeReminderSent, 3, nil)); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
