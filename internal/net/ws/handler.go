package ws

import (
	"encoding/json"
	"errors"
	"log"
	nethttp "net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	server "virtual-space/server"
)

type HandlerConfig struct {
	Logger     *log.Logger
	OutboxSize int
}

// Handler upgrades connections and runs one session per participant.
type Handler struct {
	hub        *server.Hub
	logger     *log.Logger
	upgrader   websocket.Upgrader
	outboxSize int
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:        hub,
		logger:     logger,
		upgrader:   upgrader,
		outboxSize: cfg.OutboxSize,
	}
}

// ServeHTTP runs the full connection lifecycle: upgrade, wait for the client's
// join frame, pump intents into the hub, and tear everything down when the
// read side ends. The connection id is server-assigned; the client learns it
// from the joined ack.
func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	id := uuid.NewString()
	sess := newSession(id, conn, h.outboxSize, h.logger)
	go sess.writeLoop()

	bus := h.hub.Bus()
	joined := false

	defer func() {
		bus.Drop(id)
		if joined {
			h.hub.Leave(id)
		}
		sess.close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", id, err)
			continue
		}

		switch msg.Type {
		case "join":
			if joined {
				continue
			}
			// Register handlers before joining so the joiner sees its
			// own playerUpdate and receives the targeted joined ack.
			h.subscribe(bus, id, sess)
			if _, _, err := h.hub.Join(id, msg.Name, msg.Avatar, msg.X, msg.Y); err != nil {
				bus.Drop(id)
				if errors.Is(err, server.ErrValidation) {
					sess.closeWithPolicyViolation("invalid join")
				} else {
					sess.closeWithPolicyViolation("join rejected")
				}
				return
			}
			joined = true

		case "playerMove":
			if !joined {
				continue
			}
			direction, _ := server.ParseDirection(msg.Direction)
			if err := h.hub.Move(id, msg.X, msg.Y, direction, msg.Moving); err != nil {
				h.logger.Printf("move ignored for %s: %v", id, err)
			}

		case "chatMessage":
			if !joined {
				continue
			}
			if _, err := h.hub.Chat(id, msg.Text); err != nil {
				h.logger.Printf("chat rejected for %s: %v", id, err)
			}

		case "interaction":
			if !joined {
				continue
			}
			var object server.ObjectRef
			if msg.ObjectData != nil {
				object = *msg.ObjectData
			}
			if err := h.hub.Interact(id, object); err != nil {
				h.logger.Printf("interaction rejected for %s: %v", id, err)
			}

		case "heartbeat":
			if !joined {
				continue
			}
			if !h.hub.Heartbeat(id, msg.SentAt) {
				// Record is gone, likely reaped for idleness; shed the
				// connection instead of serving a ghost.
				sess.closeWithPolicyViolation("unknown participant")
				return
			}

		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, id)
		}
	}
}

// subscribe wires every server-to-client event into the session outbox. The
// handlers marshal once and enqueue; on overflow the session is shed
// asynchronously so the publisher never blocks.
func (h *Handler) subscribe(bus *server.EventBus, id string, sess *session) {
	forward := func(event server.EventType, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Printf("failed to marshal %s for %s: %v", event, id, err)
			return
		}
		if !sess.enqueue(data) {
			h.logger.Printf("outbox full for %s, dropping connection", id)
			h.hub.NotifySubscriberDropped(id, "outbox overflow")
			go sess.close()
		}
	}

	for _, event := range []server.EventType{
		server.EventJoined,
		server.EventPlayerUpdate,
		server.EventPlayerLeft,
		server.EventChatMessage,
		server.EventInteraction,
		server.EventHeartbeat,
	} {
		bus.Subscribe(id, event, forward)
	}
}
