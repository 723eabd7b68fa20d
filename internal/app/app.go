package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	server "virtual-space/server"
	servernet "virtual-space/server/internal/net"
	"virtual-space/server/logging"
	loggingSinks "virtual-space/server/logging/sinks"
)

// Run wires configuration, the structured log router, the hub, and the HTTP
// surface together, then serves until the context is cancelled.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.MinimumSeverity = parseSeverity(cfg.LogSeverity)
	logCfg.EnabledSinks = splitSinks(cfg.LogSinks)

	var namedSinks []logging.NamedSink
	if logCfg.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout)})
	}
	if logCfg.HasSink("json") && cfg.LogJSONPath != "" {
		file, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json log: %w", err)
		}
		namedSinks = append(namedSinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSONSink(file, 2*time.Second)})
	}

	router := logging.NewRouter(logging.SystemClock{}, logCfg, namedSinks)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			log.Printf("failed to close logging router: %v", cerr)
		}
	}()

	hubCfg := server.HubConfig{
		Thresholds: server.Thresholds{
			Interaction: cfg.InteractionThreshold,
			Video:       cfg.VideoThreshold,
		},
		ThrottleWindow:   cfg.ThrottleWindow,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
		SpawnX:           cfg.SpawnX,
		SpawnY:           cfg.SpawnY,
	}

	hub := server.NewHub(hubCfg, server.NewEventBus(), router, logging.SystemClock{})
	go hub.RunReaper(ctx, cfg.ReaperInterval)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Logger:     log.Default(),
		OutboxSize: cfg.OutboxSize,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("server listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func parseSeverity(value string) logging.Severity {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return logging.SeverityDebug
	case "warn":
		return logging.SeverityWarn
	case "error":
		return logging.SeverityError
	default:
		return logging.SeverityInfo
	}
}

func splitSinks(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
