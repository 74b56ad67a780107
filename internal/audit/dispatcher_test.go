package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type gateSink struct {
	gate chan struct{}
	seen atomic.Int64
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
	s.seen.Add(1)
}

type panicSink struct{}

func (panicSink) Emit(context.Context, Event) { panic("boom") }

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher must report zero counters")
	}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "session_created"})
	}
	d.Close()

	if got := d.Delivered(); got != 10 {
		t.Fatalf("expected 10 delivered, got %d", got)
	}
	if got := len(sink.Events()); got != 10 {
		t.Fatalf("expected 10 events in sink, got %d", got)
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: "x"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink and tiny buffer")
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherBlockingHonoursContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	// one event held by the sink, one in the buffer
	d.Emit(context.Background(), Event{EventType: "a"})
	d.Emit(context.Background(), Event{EventType: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Emit(ctx, Event{EventType: "c"})
	if time.Since(start) > time.Second {
		t.Fatal("Emit must return once ctx is done")
	}
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, panicSink{})
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Emit(context.Background(), Event{EventType: "y"})
	d.Close()

	if got := d.SinkPanics(); got != 2 {
		t.Fatalf("expected 2 recovered panics, got %d", got)
	}
}

func TestEmitAfterCloseIsIgnored(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	d.Close()

	d.Emit(context.Background(), Event{EventType: "late"})
	if len(sink.Events()) != 0 {
		t.Fatal("events emitted after Close must be ignored")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "identity_resolved", UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "token_rejected", Error: "expired"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.EventType != "identity_resolved" || e.UserID != "u1" || !e.Success {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestZapSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{
		EventType: "rate_limited",
		IP:        "1.2.3.4",
		Metadata:  map[string]string{"operation": "login"},
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Message != "rate_limited" || entries[0].LoggerName != "audit" {
		t.Fatalf("unexpected entry: %+v", entries[0].Entry)
	}
	fields := entries[0].ContextMap()
	if fields["ip"] != "1.2.3.4" || fields["meta.operation"] != "login" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}
