package sinks_test

import (
	"bytes"
	"strings"
	"testing"

	"virtual-space/server/logging"
	"virtual-space/server/logging/sinks"
)

func TestConsoleSinkRendersEventFields(t *testing.T) {
	var buf bytes.Buffer
	sink := sinks.NewConsoleSink(&buf)

	err := sink.Write(logging.Event{
		Type:     logging.EventInteractionDelivered,
		Actor:    logging.ParticipantRef("p1"),
		Targets:  []logging.EntityRef{logging.ParticipantRef("p2")},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryInteraction,
		Payload:  map[string]any{"object": "piano"},
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	line := buf.String()
	for _, want := range []string{
		"[interaction_delivered]",
		"info",
		"actor=participant:p1",
		"category=interaction",
		"targets=participant:p2",
		`payload={"object":"piano"}`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("console line missing %q: %s", want, line)
		}
	}
}

func TestConsoleSinkOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	sink := sinks.NewConsoleSink(&buf)

	if err := sink.Write(logging.Event{Type: logging.EventParticipantLeft, Actor: logging.ParticipantRef("p1")}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	line := buf.String()
	if strings.Contains(line, "targets=") || strings.Contains(line, "payload=") || strings.Contains(line, "category=") {
		t.Fatalf("console line renders absent fields: %s", line)
	}
}
