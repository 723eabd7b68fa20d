package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultThrottleWindow matches the 100ms emit interval the client already
// honors, so a well-behaved client is never throttled.
const DefaultThrottleWindow = 100 * time.Millisecond

// MovementThrottle admits at most one move per participant per window.
// Rejected moves are dropped rather than coalesced; the next admitted move
// carries an absolute position, so nothing drifts.
type MovementThrottle struct {
	mu       sync.Mutex
	window   time.Duration
	limiters map[string]*rate.Limiter
}

func NewMovementThrottle(window time.Duration) *MovementThrottle {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	return &MovementThrottle{
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Admit reports whether a move from the participant may enter the broadcast
// pipeline at the given time. The first move after registration is always
// admitted.
func (t *MovementThrottle) Admit(participantID string, now time.Time) bool {
	return t.limiter(participantID).AllowN(now, 1)
}

// Forget releases throttle state for a departed participant.
func (t *MovementThrottle) Forget(participantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.limiters, participantID)
}

func (t *MovementThrottle) limiter(participantID string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if lim, ok := t.limiters[participantID]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Every(t.window), 1)
	t.limiters[participantID] = lim
	return lim
}
