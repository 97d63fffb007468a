package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

type mockChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
	closed        bool
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	m.exchange, m.key, m.msg = exchange, key, msg
	return m.err
}

func (m *mockChannel) Close() error {
	m.closed = true
	return nil
}

func TestAMQPPublisher_Publish_SendsPersistentJSON(t *testing.T) {
	var buf bytes.Buffer
	ch := &mockChannel{}
	p := newAMQPPublisher(ch, "researchtracker.audit", newTestLogger(&buf))
	fixed := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.Publish(context.Background(), Event{
		Type:     EventUserDeleted,
		ActorID:  "admin-1",
		TargetID: "u1",
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if ch.exchange != "" || ch.key != "researchtracker.audit" {
		t.Errorf("routing = %q/%q", ch.exchange, ch.key)
	}
	if ch.msg.DeliveryMode != amqp.Persistent {
		t.Errorf("DeliveryMode = %d, want persistent", ch.msg.DeliveryMode)
	}
	if ch.msg.ContentType != "application/json" || ch.msg.Type != EventUserDeleted {
		t.Errorf("msg = %+v", ch.msg)
	}

	var got Event
	if err := json.Unmarshal(ch.msg.Body, &got); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if got.TargetID != "u1" || !got.OccurredAt.Equal(fixed) {
		t.Errorf("event = %+v", got)
	}
}

func TestAMQPPublisher_Publish_ReturnsErrorAndLogs(t *testing.T) {
	var buf bytes.Buffer
	ch := &mockChannel{err: errors.New("channel closed")}
	p := newAMQPPublisher(ch, "q", newTestLogger(&buf))

	if err := p.Publish(context.Background(), Event{Type: EventProjectDeleted}); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(buf.String(), "failed to publish audit event") {
		t.Errorf("expected error log, got %s", buf.String())
	}
}

func TestAMQPPublisher_Close(t *testing.T) {
	ch := &mockChannel{}
	p := newAMQPPublisher(ch, "q", slog.Default())
	if err := p.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !ch.closed {
		t.Error("channel should be closed")
	}
}

func TestLogPublisher_Publish(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(newTestLogger(&buf))

	err := p.Publish(context.Background(), Event{
		Type:       EventUserRoleChanged,
		ActorID:    "admin-1",
		TargetID:   "u2",
		Attributes: map[string]string{"new_role": "PI"},
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log is not JSON: %v", err)
	}
	if entry["type"] != EventUserRoleChanged || entry["target_id"] != "u2" || entry["new_role"] != "PI" {
		t.Errorf("log entry = %v", entry)
	}
}
