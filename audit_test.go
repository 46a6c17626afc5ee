package goAuthFlow

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []AuditEvent
}

func (s *blockingSink) Emit(_ context.Context, ev AuditEvent) {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, ev)
	s.mu.Unlock()
}

type panicSink struct {
	mu    sync.Mutex
	calls int
}

func (s *panicSink) Emit(_ context.Context, ev AuditEvent) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if ev.EventType == "boom" {
		panic("sink failure")
	}
}

func TestAuditDispatcherDisabled(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, nil, nil)
	if d != nil {
		t.Fatalf("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatalf("nil dispatcher must report zero drops")
	}
}

func TestAuditDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink, nil)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventOTPRequested})
	}
	d.Close()

	if n := len(sink.Events()); n != 5 {
		t.Fatalf("expected 5 delivered events, got %d", n)
	}
	d.Emit(context.Background(), AuditEvent{EventType: auditEventFlowReset})
	if n := len(sink.Events()); n != 5 {
		t.Fatalf("events after Close must be ignored, got %d", n)
	}
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, nil)

	// The worker holds at most one event while blocked and the queue one more.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventOTPVerified})
	}
	if d.Dropped() < 8 {
		t.Fatalf("expected at least 8 drops, got %d", d.Dropped())
	}
	close(sink.release)
	d.Close()

	sink.mu.Lock()
	delivered := len(sink.got)
	sink.mu.Unlock()
	if uint64(delivered)+d.Dropped() != 10 {
		t.Fatalf("delivered %d + dropped %d != 10", delivered, d.Dropped())
	}
}

func TestAuditDispatcherSurvivesSinkPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := &panicSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink, zap.New(core))

	d.Emit(context.Background(), AuditEvent{EventType: "boom"})
	d.Emit(context.Background(), AuditEvent{EventType: auditEventFlowReset})
	d.Close()

	sink.mu.Lock()
	calls := sink.calls
	sink.mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected both events delivered, got %d", calls)
	}
	if d.Dropped() != 1 {
		t.Fatalf("expected the panicking event counted as dropped, got %d", d.Dropped())
	}
	if logs.FilterMessage("audit sink panicked").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := ZapSink{Logger: zap.New(core)}

	sink.Emit(context.Background(), AuditEvent{
		EventType:  auditEventPasswordLogin,
		Timestamp:  time.Now(),
		Identifier: "a***@example.com",
		Success:    true,
	})
	sink.Emit(context.Background(), AuditEvent{
		EventType: auditEventOTPVerified,
		Success:   false,
		Error:     string(CodeInvalidOTP),
		Metadata:  map[string]string{"attempt": "2"},
	})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("unexpected levels: %v %v", entries[0].Level, entries[1].Level)
	}
	fields := entries[1].ContextMap()
	if fields["error"] != string(CodeInvalidOTP) || fields["meta.attempt"] != "2" {
		t.Fatalf("unexpected fields: %v", fields)
	}

	ZapSink{}.Emit(context.Background(), AuditEvent{})
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventFlowReset, Variant: "login", Step: "identifier"})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventOTPResent, Variant: "signup", Step: "otp"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.EventType != auditEventOTPResent || ev.Step != "otp" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
