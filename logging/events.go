package logging

import "time"

type EventType string

// Event types emitted by the session core.
const (
	EventParticipantJoined    EventType = "participant_joined"
	EventParticipantLeft      EventType = "participant_left"
	EventMoveApplied          EventType = "move_applied"
	EventMoveThrottled        EventType = "move_throttled"
	EventChatSent             EventType = "chat_sent"
	EventInteractionDelivered EventType = "interaction_delivered"
	EventVideoPairFormed      EventType = "video_pair_formed"
	EventVideoPairDropped     EventType = "video_pair_dropped"
	EventSubscriberDropped    EventType = "subscriber_dropped"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

type EntityKind string

const (
	EntityKindUnknown     EntityKind = "unknown"
	EntityKindParticipant EntityKind = "participant"
	EntityKindObject      EntityKind = "object"
	EntityKindSystem      EntityKind = "system"
)

const (
	CategorySession     = "session"
	CategoryMovement    = "movement"
	CategoryChat        = "chat"
	CategoryInteraction = "interaction"
	CategoryVideo       = "video"
)

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// ParticipantRef builds an EntityRef for a participant id.
func ParticipantRef(id string) EntityRef {
	return EntityRef{ID: id, Kind: EntityKindParticipant}
}

type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

func (e Event) WithExtra(key string, value any) Event {
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}
