package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"turbowheel/server/logging"
)

func TestMemorySinkRetainsAndResets(t *testing.T) {
	sink := NewMemory()

	if err := sink.Write(logging.Event{Type: "a", Seq: 1}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Write(logging.Event{Type: "b", Seq: 2}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	events := sink.Events()
	if len(events) != 2 || events[0].Type != "a" || events[1].Seq != 2 {
		t.Fatalf("unexpected events: %+v", events)
	}

	// The returned slice is a copy.
	events[0].Type = "mutated"
	if sink.Events()[0].Type != "a" {
		t.Fatalf("Events leaked the internal slice")
	}

	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected no events after reset")
	}
}

func TestConsoleSinkFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)

	err := sink.Write(logging.Event{
		Type:     "session.finalized",
		Seq:      12,
		Severity: logging.SeverityInfo,
		Actor:    logging.EntityRef{ID: "channel-3", Kind: logging.EntityKindSession},
		Payload:  map[string]int{"score": 500},
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	line := buf.String()
	for _, want := range []string{"[session.finalized]", "seq=12", "actor=session:channel-3", "severity=info", `payload={"score":500}`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in output, got %q", want, line)
		}
	}
}

func TestJSONSinkEmitsNDJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)

	events := []logging.Event{
		{Type: "a", Seq: 1, Time: time.UnixMilli(1700000000000), Severity: logging.SeverityInfo},
		{Type: "b", Seq: 2, Time: time.UnixMilli(1700000001000), Severity: logging.SeverityWarn},
	}
	for _, event := range events {
		if err := sink.Write(event); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	for i, line := range lines {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		if decoded["type"] != string(events[i].Type) {
			t.Fatalf("line %d: expected type %q, got %v", i, events[i].Type, decoded["type"])
		}
	}
}

func TestJSONSinkFlushesOnInterval(t *testing.T) {
	var buf safeBuffer
	sink := NewJSON(&buf, 10*time.Millisecond)
	defer sink.Close(context.Background())

	if err := sink.Write(logging.Event{Type: "a", Seq: 1, Time: time.Now()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if buf.Len() > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected the periodic flush to surface the event")
}

// safeBuffer guards a bytes.Buffer against the periodic flush goroutine.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}
