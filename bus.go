package server

import "sync"

// EventType enumerates every event the bus can carry. Dispatch always goes
// through these constants; there are no free-form event names.
type EventType string

const (
	EventJoined       EventType = "joined"
	EventPlayerUpdate EventType = "playerUpdate"
	EventPlayerLeft   EventType = "playerLeft"
	EventChatMessage  EventType = "chatMessage"
	EventInteraction  EventType = "interaction"
	EventHeartbeat    EventType = "heartbeat"
)

// Handler consumes one event delivery. Handlers run on the publisher's
// goroutine and must not block; transports enqueue into a buffered outbox and
// shed the connection on overflow instead of stalling the caller.
type Handler func(event EventType, payload any)

// Targets selects which subscribers a publish reaches.
type Targets struct {
	all bool
	ids map[string]struct{}
}

// AllSubscribers addresses every registered subscriber.
func AllSubscribers() Targets {
	return Targets{all: true}
}

// Only addresses an explicit subscriber set.
func Only(ids ...string) Targets {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Targets{ids: set}
}

func (t Targets) includes(id string) bool {
	if t.all {
		return true
	}
	_, ok := t.ids[id]
	return ok
}

type busSubscriber struct {
	id       string
	handlers map[EventType]Handler
}

// EventBus is the in-process fan-out transport between the hub and connected
// sessions. Deliveries for a single publish happen in subscriber-registration
// order, exactly once per targeted subscriber that has a handler for the
// event.
type EventBus struct {
	mu   sync.Mutex
	subs []*busSubscriber
	byID map[string]*busSubscriber
}

func NewEventBus() *EventBus {
	return &EventBus{byID: make(map[string]*busSubscriber)}
}

// Subscribe registers a handler for one event. A subscriber's position in the
// delivery order is fixed by its first Subscribe call; later calls for other
// events reuse it. Re-subscribing an event replaces the previous handler.
func (b *EventBus) Subscribe(subscriberID string, event EventType, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[subscriberID]
	if !ok {
		sub = &busSubscriber{id: subscriberID, handlers: make(map[EventType]Handler)}
		b.byID[subscriberID] = sub
		b.subs = append(b.subs, sub)
	}
	sub.handlers[event] = handler
}

// Unsubscribe removes the handler for one event. Removing a handler that was
// never registered is a no-op.
func (b *EventBus) Unsubscribe(subscriberID string, event EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[subscriberID]
	if !ok {
		return
	}
	delete(sub.handlers, event)
	if len(sub.handlers) == 0 {
		b.dropLocked(subscriberID)
	}
}

// Drop removes a subscriber and every handler it registered.
func (b *EventBus) Drop(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropLocked(subscriberID)
}

func (b *EventBus) dropLocked(subscriberID string) {
	if _, ok := b.byID[subscriberID]; !ok {
		return
	}
	delete(b.byID, subscriberID)
	for i, sub := range b.subs {
		if sub.id == subscriberID {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
}

// Publish delivers payload to every targeted subscriber holding a handler for
// the event. The subscriber list is snapshotted under the lock, so a
// concurrent subscribe or unsubscribe never disturbs an in-flight fan-out; a
// subscriber without a handler for the event is silently skipped.
func (b *EventBus) Publish(event EventType, payload any, targets Targets) int {
	b.mu.Lock()
	deliveries := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if !targets.includes(sub.id) {
			continue
		}
		if handler, ok := sub.handlers[event]; ok {
			deliveries = append(deliveries, handler)
		}
	}
	b.mu.Unlock()

	for _, handler := range deliveries {
		handler(event, payload)
	}
	return len(deliveries)
}

// SubscriberCount reports how many subscribers are currently registered.
func (b *EventBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
