package server

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricBroadcasts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "virtualspace",
		Name:      "broadcasts_total",
		Help:      "Bus publishes grouped by event type.",
	}, []string{"event"})
	metricMovesThrottled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "virtualspace",
		Name:      "moves_throttled_total",
		Help:      "Move intents rejected by the movement throttle.",
	})
	metricParticipants = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "virtualspace",
		Name:      "participants",
		Help:      "Currently connected participants.",
	})
	metricVideoPairs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "virtualspace",
		Name:      "video_pairs",
		Help:      "Currently video-eligible participant pairs.",
	})
)

func init() {
	prometheus.MustRegister(metricBroadcasts, metricMovesThrottled, metricParticipants, metricVideoPairs)
}

type telemetryCounters struct {
	broadcasts            atomic.Uint64
	movesApplied          atomic.Uint64
	movesThrottled        atomic.Uint64
	chatMessages          atomic.Uint64
	interactionsDelivered atomic.Uint64
	interactionsGated     atomic.Uint64
	videoPairsFormed      atomic.Uint64
	videoPairsDropped     atomic.Uint64
}

type TelemetrySnapshot struct {
	Broadcasts            uint64 `json:"broadcasts"`
	MovesApplied          uint64 `json:"movesApplied"`
	MovesThrottled        uint64 `json:"movesThrottled"`
	ChatMessages          uint64 `json:"chatMessages"`
	InteractionsDelivered uint64 `json:"interactionsDelivered"`
	InteractionsGated     uint64 `json:"interactionsGated"`
	VideoPairsFormed      uint64 `json:"videoPairsFormed"`
	VideoPairsDropped     uint64 `json:"videoPairsDropped"`
}

func newTelemetryCounters() *telemetryCounters {
	return &telemetryCounters{}
}

func (t *telemetryCounters) RecordBroadcast(event EventType) {
	t.broadcasts.Add(1)
	metricBroadcasts.WithLabelValues(string(event)).Inc()
}

func (t *telemetryCounters) RecordMoveApplied() {
	t.movesApplied.Add(1)
}

func (t *telemetryCounters) RecordMoveThrottled() {
	t.movesThrottled.Add(1)
	metricMovesThrottled.Inc()
}

func (t *telemetryCounters) RecordChatMessage() {
	t.chatMessages.Add(1)
}

// RecordInteraction tracks one interaction intent: how many eligible
// recipients it reached, or that it was fully gated when none were in range.
func (t *telemetryCounters) RecordInteraction(delivered int) {
	if delivered > 0 {
		t.interactionsDelivered.Add(uint64(delivered))
	} else {
		t.interactionsGated.Add(1)
	}
}

func (t *telemetryCounters) RecordVideoPairFormed() {
	t.videoPairsFormed.Add(1)
}

func (t *telemetryCounters) RecordVideoPairDropped() {
	t.videoPairsDropped.Add(1)
}

func (t *telemetryCounters) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		Broadcasts:            t.broadcasts.Load(),
		MovesApplied:          t.movesApplied.Load(),
		MovesThrottled:        t.movesThrottled.Load(),
		ChatMessages:          t.chatMessages.Load(),
		InteractionsDelivered: t.interactionsDelivered.Load(),
		InteractionsGated:     t.interactionsGated.Load(),
		VideoPairsFormed:      t.videoPairsFormed.Load(),
		VideoPairsDropped:     t.videoPairsDropped.Load(),
	}
}
