package server

import "errors"

// Rejections are local to the offending operation: they never mutate state,
// never trigger a broadcast, and never take the hub down. Throttled moves are
// deliberately not part of this taxonomy; they are dropped without surfacing
// an error to the sender.
var (
	// ErrDuplicateParticipant rejects a join whose id is already active.
	ErrDuplicateParticipant = errors.New("duplicate participant")

	// ErrUnknownParticipant rejects an operation referencing an id that is
	// not (or no longer) registered.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrValidation rejects malformed client input, such as a
	// whitespace-only display name or empty chat text.
	ErrValidation = errors.New("validation failed")
)
