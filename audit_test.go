package portalauth

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAuditDispatcherDelivers(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)

	d.Emit(context.Background(), AuditEvent{EventType: auditEventLoginSuccess, Success: true})

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventLoginSuccess || !event.Success {
			t.Fatalf("event = %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	d.Close()
}

func TestAuditDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(64)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 64, DropIfFull: true}, sink)

	const events = 32
	for i := 0; i < events; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventLogout})
	}
	d.Close()

	delivered := 0
	for {
		select {
		case <-sink.Events():
			delivered++
			if delivered == events {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("delivered %d of %d after close", delivered, events)
		}
	}
}

// blockingSink stalls delivery so the dispatcher's buffer fills up.
type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(ctx context.Context, event AuditEvent) {
	<-s.release
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// Fill the worker and the single buffer slot, then overflow.
	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventLogout})
		if time.Now().After(deadline) {
			t.Fatal("no events dropped under back-pressure")
		}
	}

	close(sink.release)
	d.Close()
}

func TestAuditDisabledDispatcherIsNil(t *testing.T) {
	if d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{}); d != nil {
		t.Fatal("disabled audit must not start a dispatcher")
	}

	// Nil dispatcher methods are safe.
	var d *auditDispatcher
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		EventType: auditEventLoginFailure,
		Email:     "alice@example.com",
		Error:     string(auditErrInvalidCredentials),
	})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLogout, Success: true})

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		lines++
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line %d not JSON: %v", lines, err)
		}
	}
	if lines != 2 {
		t.Fatalf("lines = %d, want 2", lines)
	}
}

func TestEngineAuditEmission(t *testing.T) {
	sink := NewChannelSink(16)
	backend := &fakeBackend{
		LoginFn: func(ctx context.Context, email, password string) (*LoginOutcome, error) {
			return nil, ErrInvalidCredentials
		},
	}
	backend.t = t

	engine, err := New().
		WithConfig(defaultConfig()).
		WithRedis(newTestRedis(t)).
		WithBackend(backend).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	ctx = WithUserAgent(ctx, "test-agent")
	if _, err := engine.Login(ctx, "alice@example.com", "wrong-pw", false); err == nil {
		t.Fatal("expected login failure")
	}

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventLoginFailure {
			t.Fatalf("event type = %q", event.EventType)
		}
		if event.Success {
			t.Fatal("failure event marked successful")
		}
		if event.Error != string(auditErrInvalidCredentials) {
			t.Fatalf("error code = %q", event.Error)
		}
		if event.IP != "203.0.113.9" || event.UserAgent != "test-agent" {
			t.Fatalf("caller info = %q / %q", event.IP, event.UserAgent)
		}
		if !strings.Contains(event.Email, "@") {
			t.Fatalf("email = %q", event.Email)
		}
	case <-time.After(time.Second):
		t.Fatal("audit event not delivered")
	}
}
