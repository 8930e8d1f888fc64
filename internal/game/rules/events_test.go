package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusSubscribeTyped(t *testing.T) {
	bus := NewEventBus()

	changed := 0
	ended := 0

	h1 := bus.SubscribeTyped(EventCardChanged, func(e Event) { changed++ })
	h2 := bus.SubscribeTyped(EventMatchEnded, func(e Event) { ended++ })

	bus.Publish(NewEventWithAmount(EventCardChanged, "card-1", "", "left", 2))
	assert.Equal(t, 1, changed)
	assert.Equal(t, 0, ended)

	bus.Publish(NewEvent(EventMatchEnded, "", "", ""))
	assert.Equal(t, 1, ended)

	bus.Unsubscribe(h1)
	bus.Publish(NewEvent(EventCardChanged, "card-2", "", "left"))
	assert.Equal(t, 1, changed)

	bus.Unsubscribe(h2)
	bus.Publish(NewEvent(EventMatchEnded, "", "", ""))
	assert.Equal(t, 1, ended)
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	bus.SetMatchID("match-1")

	var seen []Event
	bus.Subscribe(func(e Event) { seen = append(seen, e) })

	bus.Publish(NewEvent(EventHandChanged, "", "", "left"))
	bus.Publish(NewEvent(EventProjectileDestroyed, "", "", ""))

	assert.Len(t, seen, 2)
	assert.Equal(t, "match-1", seen[0].MatchID)
	assert.False(t, seen[0].Timestamp.IsZero())
}

func TestEventBusWithoutListeners(t *testing.T) {
	bus := NewEventBus()
	assert.NotPanics(t, func() {
		bus.Publish(NewEvent(EventMatchEnded, "", "", ""))
	})

	var nilBus *EventBus
	assert.NotPanics(t, func() {
		nilBus.Publish(NewEvent(EventMatchEnded, "", "", ""))
	})
}

func TestEventBusListenerMaySubscribe(t *testing.T) {
	bus := NewEventBus()
	inner := 0
	bus.SubscribeTyped(EventMatchStarted, func(e Event) {
		bus.SubscribeTyped(EventMatchEnded, func(Event) { inner++ })
	})

	bus.Publish(NewEvent(EventMatchStarted, "", "", ""))
	bus.Publish(NewEvent(EventMatchEnded, "", "", ""))
	assert.Equal(t, 1, inner)
}

func TestEventBusOrder(t *testing.T) {
	bus := NewEventBus()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(func(Event) { order = append(order, i) })
	}
	bus.Publish(NewEvent(EventHandChanged, "", "", ""))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
