package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a match event.
type EventType string

const (
	// Card economy events
	EventCardChanged   EventType = "CARD_CHANGED" // Amount carries the hand slot index
	EventHandChanged   EventType = "HAND_CHANGED"
	EventCardPlayed    EventType = "CARD_PLAYED"
	EventDeckShuffled  EventType = "DECK_SHUFFLED"
	EventCardNotInHand EventType = "CARD_NOT_IN_HAND"

	// Lifecycle events
	EventMatchStarted EventType = "MATCH_STARTED"
	EventMatchEnded   EventType = "MATCH_ENDED"
	EventMatchReset   EventType = "MATCH_RESET"

	// Entity events
	EventEntitySpawned   EventType = "ENTITY_SPAWNED"
	EventEntityDamaged   EventType = "ENTITY_DAMAGED"
	EventEntityDestroyed EventType = "ENTITY_DESTROYED"

	// Combat events
	EventTargetAcquired      EventType = "TARGET_ACQUIRED"
	EventTargetLost          EventType = "TARGET_LOST"
	EventProjectileLaunched  EventType = "PROJECTILE_LAUNCHED"
	EventProjectileDestroyed EventType = "PROJECTILE_DESTROYED"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type      EventType
	MatchID   string
	TargetID  string // entity handle, card ID or player ID the event is about
	SourceID  string // entity or card that caused it
	PlayerID  string // player the event belongs to
	Amount    int    // damage, slot index, score...
	Data      string // free-form payload such as a card name or a message
	Timestamp time.Time
	Metadata  map[string]string
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

type untypedListener struct {
	handle   int
	callback Listener
}

// EventBus provides a synchronous publish/subscribe implementation with type
// filtering. Publishing with no subscribers is a no-op. Listeners run in
// subscription order and may subscribe or unsubscribe from inside a callback.
type EventBus struct {
	mu             sync.RWMutex
	listeners      []untypedListener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
	matchID        string
	now            func() time.Time
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		typedListeners: make(map[EventType][]TypedListener),
		now:            time.Now,
	}
}

// SetMatchID stamps every published event with the given match ID.
func (bus *EventBus) SetMatchID(matchID string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.matchID = matchID
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners = append(bus.listeners, untypedListener{handle: handle, callback: listener})
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle,
// whether it was registered typed or untyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, l := range bus.listeners {
		if l.handle == handle {
			bus.listeners = append(bus.listeners[:i:i], bus.listeners[i+1:]...)
			return
		}
	}
	for eventType, listeners := range bus.typedListeners {
		for i, l := range listeners {
			if l.Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i:i], listeners[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	if bus == nil {
		return
	}
	bus.mu.RLock()
	all := append([]untypedListener(nil), bus.listeners...)
	typed := append([]TypedListener(nil), bus.typedListeners[event.Type]...)
	if event.MatchID == "" {
		event.MatchID = bus.matchID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = bus.now()
	}
	bus.mu.RUnlock()

	for _, l := range all {
		l.callback(event)
	}
	for _, l := range typed {
		l.Callback(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, targetID, sourceID, playerID string) Event {
	return Event{
		Type:     eventType,
		TargetID: targetID,
		SourceID: sourceID,
		PlayerID: playerID,
		Metadata: make(map[string]string),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, targetID, sourceID, playerID string, amount int) Event {
	evt := NewEvent(eventType, targetID, sourceID, playerID)
	evt.Amount = amount
	return evt
}
