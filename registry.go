package server

import (
	"fmt"
	"sync"
	"time"
)

// Registry owns every live participant record. All mutation happens under one
// mutex; readers only ever see point-in-time copies produced by Snapshot.
type Registry struct {
	mu           sync.Mutex
	participants map[string]*participantState
}

func NewRegistry() *Registry {
	return &Registry{participants: make(map[string]*participantState)}
}

// Join inserts a fresh record for id. The new participant starts stationary,
// facing down, at the supplied spawn coordinates.
func (r *Registry) Join(id, name string, avatar int, x, y float64, now time.Time) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[id]; ok {
		return Participant{}, fmt.Errorf("%w: %s", ErrDuplicateParticipant, id)
	}

	state := &participantState{
		Participant: Participant{
			ID:        id,
			Name:      name,
			Avatar:    avatar,
			X:         x,
			Y:         y,
			Direction: defaultDirection,
			Moving:    false,
		},
		lastHeartbeat: now,
	}
	r.participants[id] = state
	return state.snapshot(), nil
}

// ApplyMove updates position, facing, and movement flag for an existing
// participant. Coordinates are trusted as-is; collision against map geometry
// is resolved client-side before the intent is ever sent.
func (r *Registry) ApplyMove(id string, x, y float64, direction Direction, moving bool, now time.Time) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.participants[id]
	if !ok {
		return Participant{}, fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
	}

	state.X = x
	state.Y = y
	if direction != "" {
		state.Direction = direction
	}
	state.Moving = moving
	state.lastMoveAccepted = now
	return state.snapshot(), nil
}

// Leave removes the record for id and reports whether it existed. Removing an
// absent id is a no-op, so the call is safe to repeat.
func (r *Registry) Leave(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[id]; !ok {
		return false
	}
	delete(r.participants, id)
	return true
}

// Snapshot returns a consistent copy of every live record keyed by id.
func (r *Registry) Snapshot() map[string]Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]Participant, len(r.participants))
	for id, state := range r.participants {
		snapshot[id] = state.snapshot()
	}
	return snapshot
}

// Heartbeat records the most recent heartbeat time and, when the client
// included its own send time, derives a round-trip estimate.
func (r *Registry) Heartbeat(id string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.participants[id]
	if !ok {
		return 0, false
	}

	state.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			state.lastRTT = rtt
		}
	}

	return state.lastRTT, true
}

// Stale returns the ids of participants whose last heartbeat is older than
// the cutoff.
func (r *Registry) Stale(now time.Time, timeout time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []string
	for id, state := range r.participants {
		if now.Sub(state.lastHeartbeat) > timeout {
			stale = append(stale, id)
		}
	}
	return stale
}

// Count reports the number of live participants.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

type DiagnosticsParticipant struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}

// DiagnosticsSnapshot exposes heartbeat data for the diagnostics endpoint.
func (r *Registry) DiagnosticsSnapshot() []DiagnosticsParticipant {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := make([]DiagnosticsParticipant, 0, len(r.participants))
	for _, state := range r.participants {
		participants = append(participants, DiagnosticsParticipant{
			ID:            state.ID,
			Name:          state.Name,
			LastHeartbeat: state.lastHeartbeat.UnixMilli(),
			RTTMillis:     state.lastRTT.Milliseconds(),
		})
	}
	return participants
}
