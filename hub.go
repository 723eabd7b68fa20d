package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"virtual-space/server/logging"
)

type HubConfig struct {
	Thresholds       Thresholds
	ThrottleWindow   time.Duration
	HeartbeatTimeout time.Duration
	SpawnX           float64
	SpawnY           float64
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		Thresholds:       DefaultThresholds(),
		ThrottleWindow:   DefaultThrottleWindow,
		HeartbeatTimeout: 6 * time.Second,
		SpawnX:           400,
		SpawnY:           300,
	}
}

// Hub is the synchronization coordinator. It owns the only write path into
// the registry, gates movement through the throttle, derives the proximity
// relations after every state change, and fans results out over the bus.
//
// The hub mutex serializes every compound mutate-then-broadcast sequence, so
// one participant's admitted moves always reach subscribers in submission
// order and a move can never interleave with a leave for the same id. Bus
// handlers are enqueue-only and never block, which keeps broadcasting safe
// while the mutex is held.
type Hub struct {
	mu         sync.Mutex
	cfg        HubConfig
	registry   *Registry
	throttle   *MovementThrottle
	bus        *EventBus
	telemetry  *telemetryCounters
	publisher  logging.Publisher
	clock      logging.Clock
	nextChatID atomic.Uint64
	videoPairs map[Pair]struct{}
}

func NewHub(cfg HubConfig, bus *EventBus, publisher logging.Publisher, clock logging.Clock) *Hub {
	if bus == nil {
		bus = NewEventBus()
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	if clock == nil {
		clock = logging.SystemClock{}
	}
	if cfg.Thresholds.Interaction <= 0 {
		cfg.Thresholds.Interaction = DefaultInteractionThreshold
	}
	if cfg.Thresholds.Video <= 0 {
		cfg.Thresholds.Video = DefaultVideoThreshold
	}
	return &Hub{
		cfg:        cfg,
		registry:   NewRegistry(),
		throttle:   NewMovementThrottle(cfg.ThrottleWindow),
		bus:        bus,
		telemetry:  newTelemetryCounters(),
		publisher:  publisher,
		clock:      clock,
		videoPairs: make(map[Pair]struct{}),
	}
}

func (h *Hub) Bus() *EventBus      { return h.bus }
func (h *Hub) Registry() *Registry { return h.registry }
func (h *Hub) Config() HubConfig   { return h.cfg }

func (h *Hub) Telemetry() TelemetrySnapshot {
	return h.telemetry.Snapshot()
}

// Join registers a participant and announces the full updated snapshot to
// every subscriber, the joiner included. It either fully succeeds or leaves
// no trace: a duplicate id or an invalid name never becomes visible to
// anyone.
func (h *Hub) Join(id, name string, avatar int, x, y float64) (Participant, map[string]Participant, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Participant{}, nil, fmt.Errorf("%w: empty display name", ErrValidation)
	}
	if !validAvatarKind(avatar) {
		return Participant{}, nil, fmt.Errorf("%w: avatar kind %d", ErrValidation, avatar)
	}
	if x == 0 && y == 0 {
		x, y = h.cfg.SpawnX, h.cfg.SpawnY
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	participant, err := h.registry.Join(id, trimmed, avatar, x, y, now)
	if err != nil {
		return Participant{}, nil, err
	}

	snapshot := h.registry.Snapshot()
	h.bus.Publish(EventJoined, joinedMessage{
		Type:       string(EventJoined),
		ID:         id,
		Players:    snapshot,
		ServerTime: now.UnixMilli(),
	}, Only(id))
	h.broadcastSnapshotLocked(snapshot)
	h.refreshVideoPairsLocked(snapshot)

	h.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventParticipantJoined,
		Actor:    logging.ParticipantRef(id),
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  map[string]any{"name": trimmed, "avatar": avatar},
	})
	return participant, snapshot, nil
}

// Move applies a position update. Moves beyond the per-participant rate are
// dropped without error: the client keeps rendering locally and the next
// admitted move carries an absolute position, so only broadcast volume is
// lost.
func (h *Hub) Move(id string, x, y float64, direction Direction, moving bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	if !h.throttle.Admit(id, now) {
		h.telemetry.RecordMoveThrottled()
		h.publisher.Publish(context.Background(), logging.Event{
			Type:     logging.EventMoveThrottled,
			Actor:    logging.ParticipantRef(id),
			Severity: logging.SeverityDebug,
			Category: logging.CategoryMovement,
		})
		return nil
	}

	participant, err := h.registry.ApplyMove(id, x, y, direction, moving, now)
	if err != nil {
		// The admission above minted a limiter for an id that does not
		// exist; release it so ghosts never accumulate throttle state.
		h.throttle.Forget(id)
		return err
	}
	h.telemetry.RecordMoveApplied()
	h.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventMoveApplied,
		Actor:    logging.ParticipantRef(id),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMovement,
		Payload:  map[string]any{"x": participant.X, "y": participant.Y},
	})

	snapshot := h.registry.Snapshot()
	h.broadcastSnapshotLocked(snapshot)
	h.refreshVideoPairsLocked(snapshot)
	return nil
}

// Chat validates and broadcasts one canonical message to every subscriber.
// Senders recognize their own messages by comparing sender ids client-side;
// the server never emits per-recipient variants.
func (h *Hub) Chat(senderID, text string) (ChatMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ChatMessage{}, fmt.Errorf("%w: empty chat text", ErrValidation)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := h.registry.Snapshot()
	sender, ok := snapshot[senderID]
	if !ok {
		return ChatMessage{}, fmt.Errorf("%w: %s", ErrUnknownParticipant, senderID)
	}

	msg := ChatMessage{
		ID:         fmt.Sprintf("msg-%d", h.nextChatID.Add(1)),
		SenderID:   senderID,
		SenderName: sender.Name,
		Text:       trimmed,
		Timestamp:  h.clock.Now().UnixMilli(),
	}
	h.bus.Publish(EventChatMessage, chatBroadcastMessage{Type: string(EventChatMessage), ChatMessage: msg}, AllSubscribers())
	h.telemetry.RecordChatMessage()
	h.telemetry.RecordBroadcast(EventChatMessage)

	h.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventChatSent,
		Actor:    logging.ParticipantRef(senderID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryChat,
		Payload:  map[string]any{"id": msg.ID},
	})
	return msg, nil
}

// Interact delivers the interaction payload only to participants currently
// within the interaction radius of the actor. The object payload belongs to
// the world content layer and passes through untouched.
func (h *Hub) Interact(actorID string, object ObjectRef) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := h.registry.Snapshot()
	if _, ok := snapshot[actorID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, actorID)
	}

	relations := ComputeRelations(snapshot, h.cfg.Thresholds)
	recipients := relations.InteractionPartners(actorID)

	delivered := 0
	if len(recipients) > 0 {
		payload := interactionMessage{
			Type:       string(EventInteraction),
			PlayerID:   actorID,
			ObjectData: object,
		}
		delivered = h.bus.Publish(EventInteraction, payload, Only(recipients...))
		h.telemetry.RecordBroadcast(EventInteraction)
	}
	h.telemetry.RecordInteraction(delivered)

	targets := make([]logging.EntityRef, 0, len(recipients))
	for _, id := range recipients {
		targets = append(targets, logging.ParticipantRef(id))
	}
	h.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventInteractionDelivered,
		Actor:    logging.ParticipantRef(actorID),
		Targets:  targets,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryInteraction,
		Payload:  map[string]any{"object": object.ID, "recipients": len(recipients)},
	})
	return nil
}

// Leave removes a participant and tells the remaining subscribers. Safe to
// call repeatedly and for unknown ids; once it returns, any in-flight move or
// interact for the id fails with ErrUnknownParticipant instead of
// resurrecting the record.
func (h *Hub) Leave(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.registry.Leave(id) {
		return
	}
	h.throttle.Forget(id)

	h.bus.Publish(EventPlayerLeft, playerLeftMessage{Type: string(EventPlayerLeft), ID: id}, AllSubscribers())
	h.telemetry.RecordBroadcast(EventPlayerLeft)

	snapshot := h.registry.Snapshot()
	h.refreshVideoPairsLocked(snapshot)
	metricParticipants.Set(float64(len(snapshot)))

	h.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventParticipantLeft,
		Actor:    logging.ParticipantRef(id),
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
	})
}

// NotifySubscriberDropped records that a transport shed a subscriber without a
// clean leave, typically because its outbox overflowed.
func (h *Hub) NotifySubscriberDropped(id, reason string) {
	h.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventSubscriberDropped,
		Actor:    logging.ParticipantRef(id),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySession,
		Payload:  map[string]any{"reason": reason},
	})
}

// Heartbeat refreshes the participant's liveness record and acks over the bus
// to the sender only.
func (h *Hub) Heartbeat(id string, clientSent int64) bool {
	now := h.clock.Now()
	rtt, ok := h.registry.Heartbeat(id, now, clientSent)
	if !ok {
		return false
	}
	ack := heartbeatMessage{
		Type:       string(EventHeartbeat),
		ServerTime: now.UnixMilli(),
		ClientTime: clientSent,
		RTTMillis:  rtt.Milliseconds(),
	}
	h.bus.Publish(EventHeartbeat, ack, Only(id))
	return true
}

// ReapIdle disconnects every participant whose heartbeat went silent for
// longer than the configured timeout and returns their ids.
func (h *Hub) ReapIdle(now time.Time) []string {
	stale := h.registry.Stale(now, h.cfg.HeartbeatTimeout)
	for _, id := range stale {
		h.Leave(id)
	}
	return stale
}

// RunReaper drives ReapIdle on a fixed interval until the context ends.
func (h *Hub) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.ReapIdle(now)
		}
	}
}

// Snapshot returns the current authoritative participant mapping.
func (h *Hub) Snapshot() map[string]Participant {
	return h.registry.Snapshot()
}

// VideoPartners reports the participants currently video-eligible with id.
// The relation is a pure function of the live snapshot; pairs appear and
// disappear purely as a function of distance, with no join/leave protocol.
func (h *Hub) VideoPartners(id string) []string {
	snapshot := h.registry.Snapshot()
	relations := ComputeRelations(snapshot, h.cfg.Thresholds)
	return relations.VideoPartners(id)
}

func (h *Hub) broadcastSnapshotLocked(snapshot map[string]Participant) {
	msg := playerUpdateMessage{
		Type:       string(EventPlayerUpdate),
		Players:    snapshot,
		ServerTime: h.clock.Now().UnixMilli(),
	}
	h.bus.Publish(EventPlayerUpdate, msg, AllSubscribers())
	h.telemetry.RecordBroadcast(EventPlayerUpdate)
	metricParticipants.Set(float64(len(snapshot)))
}

// refreshVideoPairsLocked diffs the video relation against the previous
// recomputation so pair formation and teardown can be logged and counted.
func (h *Hub) refreshVideoPairsLocked(snapshot map[string]Participant) {
	relations := ComputeRelations(snapshot, h.cfg.Thresholds)
	current := relations.VideoEligible

	for pair := range current {
		if _, ok := h.videoPairs[pair]; !ok {
			h.telemetry.RecordVideoPairFormed()
			h.logVideoTransition(logging.EventVideoPairFormed, pair)
		}
	}
	for pair := range h.videoPairs {
		if _, ok := current[pair]; !ok {
			h.telemetry.RecordVideoPairDropped()
			h.logVideoTransition(logging.EventVideoPairDropped, pair)
		}
	}
	h.videoPairs = current
	metricVideoPairs.Set(float64(len(current)))
}

func (h *Hub) logVideoTransition(eventType logging.EventType, pair Pair) {
	h.publisher.Publish(context.Background(), logging.Event{
		Type:     eventType,
		Actor:    logging.ParticipantRef(pair.A),
		Targets:  []logging.EntityRef{logging.ParticipantRef(pair.B)},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryVideo,
	})
}
