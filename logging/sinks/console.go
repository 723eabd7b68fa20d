package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"virtual-space/server/logging"
)

// ConsoleSink renders events as single human-readable lines, one per event.
type ConsoleSink struct {
	logger *log.Logger
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags)}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	var line strings.Builder
	fmt.Fprintf(&line, "[%s] %s actor=%s", event.Type, event.Severity, refString(event.Actor))
	if event.Category != "" {
		fmt.Fprintf(&line, " category=%s", event.Category)
	}
	if len(event.Targets) > 0 {
		refs := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			refs = append(refs, refString(target))
		}
		fmt.Fprintf(&line, " targets=%s", strings.Join(refs, ","))
	}
	if event.Payload != nil {
		if data, err := json.Marshal(event.Payload); err == nil {
			fmt.Fprintf(&line, " payload=%s", data)
		}
	}
	s.logger.Print(line.String())
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func refString(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}
