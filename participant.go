package server

import (
	"time"
)

// Participant is the authoritative state record for one connected user.
type Participant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Avatar    int       `json:"avatar"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Direction Direction `json:"direction"`
	Moving    bool      `json:"moving"`
}

type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"

	defaultDirection Direction = DirectionDown
)

// Avatar kinds are a small fixed range shared with the client's sprite sheets.
const (
	minAvatarKind = 1
	maxAvatarKind = 4
)

// ParseDirection validates a direction string received from the client.
func ParseDirection(value string) (Direction, bool) {
	switch Direction(value) {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return Direction(value), true
	default:
		return "", false
	}
}

// validAvatarKind reports whether the avatar index maps to a known sprite set.
func validAvatarKind(kind int) bool {
	return kind >= minAvatarKind && kind <= maxAvatarKind
}

type participantState struct {
	Participant
	lastMoveAccepted time.Time
	lastHeartbeat    time.Time
	lastRTT          time.Duration
}

func (s *participantState) snapshot() Participant {
	return s.Participant
}
