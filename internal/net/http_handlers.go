package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	server "virtual-space/server"
	"virtual-space/server/internal/net/ws"
)

type HTTPHandlerConfig struct {
	Logger     *log.Logger
	OutboxSize int
}

// NewHTTPHandler assembles the server's full HTTP surface: the websocket
// endpoint plus health, diagnostics, and metrics.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		hubCfg := hub.Config()
		participants := hub.Registry().DiagnosticsSnapshot()
		sort.Slice(participants, func(i, j int) bool {
			return participants[i].ID < participants[j].ID
		})

		payload := struct {
			Status        string                          `json:"status"`
			ServerTime    int64                           `json:"serverTime"`
			Participants  []server.DiagnosticsParticipant `json:"participants"`
			Names         []string                        `json:"names"`
			ThrottleMs    int64                           `json:"throttleMillis"`
			InteractRange float64                         `json:"interactionThreshold"`
			VideoRange    float64                         `json:"videoThreshold"`
			Telemetry     server.TelemetrySnapshot        `json:"telemetry"`
		}{
			Status:       "ok",
			ServerTime:   time.Now().UnixMilli(),
			Participants: participants,
			Names: lo.Map(participants, func(p server.DiagnosticsParticipant, _ int) string {
				return p.Name
			}),
			ThrottleMs:    hubCfg.ThrottleWindow.Milliseconds(),
			InteractRange: hubCfg.Thresholds.Interaction,
			VideoRange:    hubCfg.Thresholds.Video,
			Telemetry:     hub.Telemetry(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.Handle("/metrics", promhttp.Handler())

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{
		Logger:     logger,
		OutboxSize: cfg.OutboxSize,
	})
	mux.HandleFunc("/ws", wsHandler.ServeHTTP)

	return mux
}
