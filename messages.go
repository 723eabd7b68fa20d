package server

// ObjectRef describes the world object an interaction targets. The world
// content layer owns its shape; the server passes it through untouched.
type ObjectRef struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Type       string         `json:"type,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ChatMessage is the canonical, immutable record of one chat intent. The
// server emits exactly one per accepted intent; the own/other split is a
// client-side comparison against the sender id.
type ChatMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

// Server-to-client messages. Type tags mirror the event names the client
// listens on.

type joinedMessage struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	Players    map[string]Participant `json:"players"`
	ServerTime int64                  `json:"serverTime"`
}

type playerUpdateMessage struct {
	Type       string                 `json:"type"`
	Players    map[string]Participant `json:"players"`
	ServerTime int64                  `json:"serverTime"`
}

type playerLeftMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type chatBroadcastMessage struct {
	Type string `json:"type"`
	ChatMessage
}

type interactionMessage struct {
	Type       string    `json:"type"`
	PlayerID   string    `json:"playerId"`
	ObjectData ObjectRef `json:"objectData"`
}

type heartbeatMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}
