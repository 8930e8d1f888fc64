package watchers

import (
	"github.com/clonesclash/clash-server-go/internal/game/rules"
)

// CardsPlayedWatcher tracks cards played by players.
type CardsPlayedWatcher struct {
	*rules.BaseWatcher
	played map[string][]string // playerID -> card names in play order
}

// NewCardsPlayedWatcher creates a new cards played watcher.
func NewCardsPlayedWatcher() *CardsPlayedWatcher {
	w := &CardsPlayedWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeMatch),
		played:      make(map[string][]string),
	}
	w.SetKey("CardsPlayedWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *CardsPlayedWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventCardPlayed || event.PlayerID == "" {
		return
	}
	name := event.Data
	if name == "" {
		name = event.TargetID
	}
	w.played[event.PlayerID] = append(w.played[event.PlayerID], name)
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *CardsPlayedWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.played = make(map[string][]string)
}

// GetPlayed returns the names of the cards a player has played.
func (w *CardsPlayedWatcher) GetPlayed(playerID string) []string {
	return append([]string(nil), w.played[playerID]...)
}

// GetCount returns the number of cards played by a player.
func (w *CardsPlayedWatcher) GetCount(playerID string) int {
	return len(w.played[playerID])
}

// EntitiesDestroyedWatcher counts destroyed entities per owner.
type EntitiesDestroyedWatcher struct {
	*rules.BaseWatcher
	byOwner map[string]int
}

// NewEntitiesDestroyedWatcher creates a new entities destroyed watcher.
func NewEntitiesDestroyedWatcher() *EntitiesDestroyedWatcher {
	w := &EntitiesDestroyedWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeMatch),
		byOwner:     make(map[string]int),
	}
	w.SetKey("EntitiesDestroyedWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *EntitiesDestroyedWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventEntityDestroyed || event.PlayerID == "" {
		return
	}
	w.byOwner[event.PlayerID]++
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *EntitiesDestroyedWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.byOwner = make(map[string]int)
}

// GetAmountByOwner returns how many of an owner's entities were destroyed.
func (w *EntitiesDestroyedWatcher) GetAmountByOwner(ownerID string) int {
	return w.byOwner[ownerID]
}

// GetTotalAmount returns the total number of destroyed entities.
func (w *EntitiesDestroyedWatcher) GetTotalAmount() int {
	total := 0
	for _, count := range w.byOwner {
		total += count
	}
	return total
}

// DamageDealtWatcher sums damage dealt per player. The player is the owner
// of the damage source.
type DamageDealtWatcher struct {
	*rules.BaseWatcher
	dealt map[string]int
}

// NewDamageDealtWatcher creates a new damage watcher.
func NewDamageDealtWatcher() *DamageDealtWatcher {
	w := &DamageDealtWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeMatch),
		dealt:       make(map[string]int),
	}
	w.SetKey("DamageDealtWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *DamageDealtWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventEntityDamaged || event.PlayerID == "" || event.Amount <= 0 {
		return
	}
	w.dealt[event.PlayerID] += event.Amount
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *DamageDealtWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.dealt = make(map[string]int)
}

// GetDamage returns the total damage dealt by a player.
func (w *DamageDealtWatcher) GetDamage(playerID string) int {
	return w.dealt[playerID]
}

// RegisterDefaults adds the standard match watchers to a registry.
func RegisterDefaults(registry *rules.WatcherRegistry) (*CardsPlayedWatcher, *EntitiesDestroyedWatcher, *DamageDealtWatcher) {
	cards := NewCardsPlayedWatcher()
	destroyed := NewEntitiesDestroyedWatcher()
	damage := NewDamageDealtWatcher()
	registry.AddWatcher(cards)
	registry.AddWatcher(destroyed)
	registry.AddWatcher(damage)
	return cards, destroyed, damage
}
