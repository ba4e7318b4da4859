package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"budgeter/internal/events"
	"budgeter/internal/log"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, DefaultTopic, log.Discard())

	e := events.New(events.TypeRecordAppended, 9, map[string]string{"date": "02/01/2021"})
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "user-9" {
		t.Fatalf("key = %q", msg.Key)
	}
	got, err := events.Unmarshal(msg.Value)
	if err != nil || got.ID != e.ID {
		t.Fatalf("value = %s (%v)", msg.Value, err)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != string(events.TypeRecordAppended) {
		t.Fatalf("headers = %v", msg.Headers)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Fatalf("close: %v", err)
	}
}

func TestPublishError(t *testing.T) {
	boom := errors.New("leader not available")
	p := newPublisher(&fakeWriter{err: boom}, DefaultTopic, log.Discard())
	if err := p.Publish(context.Background(), events.New(events.TypeOperatorError, 0, nil)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestPublishWithoutLogger(t *testing.T) {
	p := newPublisher(&fakeWriter{err: errors.New("broker down")}, DefaultTopic, nil)
	if err := p.Publish(context.Background(), events.New(events.TypeOperatorError, 0, nil)); err == nil {
		t.Fatal("expected error")
	}
	p = newPublisher(&fakeWriter{}, DefaultTopic, nil)
	if err := p.Publish(context.Background(), events.New(events.TypeOperatorError, 0, nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestNewPublisherRequiresBrokers(t *testing.T) {
	if _, err := NewPublisher(nil, "", log.Discard()); err == nil {
		t.Fatal("expected error")
	}
	p, err := NewPublisher([]string{"localhost:9092"}, "", log.Discard())
	if err != nil || p.topic != DefaultTopic {
		t.Fatalf("publisher = %+v, %v", p, err)
	}
	_ = p.Close()
}
