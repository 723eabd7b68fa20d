package sinks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"virtual-space/server/logging"
	"virtual-space/server/logging/sinks"
)

func TestJSONSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := sinks.NewJSONSink(&buf, 0)

	for _, eventType := range []logging.EventType{logging.EventChatSent, logging.EventParticipantLeft} {
		if err := sink.Write(logging.Event{Type: eventType, Actor: logging.ParticipantRef("p1")}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if decoded["type"] != string(logging.EventChatSent) {
		t.Fatalf("unexpected type in line: %v", decoded)
	}
}

func TestJSONSinkCloseStopsFlusher(t *testing.T) {
	baseline := runtime.NumGoroutine()

	var opened []*sinks.JSONSink
	for i := 0; i < 8; i++ {
		opened = append(opened, sinks.NewJSONSink(io.Discard, time.Millisecond))
	}
	for _, sink := range opened {
		if err := sink.Close(context.Background()); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > baseline {
		if time.Now().After(deadline) {
			t.Fatalf("flusher goroutines did not exit: %d running, baseline %d", runtime.NumGoroutine(), baseline)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJSONSinkCloseIsIdempotent(t *testing.T) {
	sink := sinks.NewJSONSink(io.Discard, time.Second)
	for i := 0; i < 3; i++ {
		if err := sink.Close(context.Background()); err != nil {
			t.Fatalf("close %d failed: %v", i, err)
		}
	}
}
