package rules

import (
	"sort"
	"sync"
)

// WatcherScope defines the scope of a watcher's tracking.
type WatcherScope int

const (
	// WatcherScopeMatch tracks events for the entire match.
	WatcherScopeMatch WatcherScope = iota
	// WatcherScopePlayer tracks events for a specific player.
	WatcherScopePlayer
	// WatcherScopeEntity tracks events for a specific entity.
	WatcherScopeEntity
)

// String returns the string representation of the watcher scope.
func (ws WatcherScope) String() string {
	switch ws {
	case WatcherScopeMatch:
		return "MATCH"
	case WatcherScopePlayer:
		return "PLAYER"
	case WatcherScopeEntity:
		return "ENTITY"
	default:
		return "UNKNOWN"
	}
}

// Watcher observes match events and accumulates statistics or conditions.
type Watcher interface {
	// Watch is called for every event published on the match bus.
	Watch(event Event)

	// Reset clears the watcher's condition and state (a new match begins).
	Reset()

	// ConditionMet returns true if the condition this watcher tracks has been met.
	ConditionMet() bool

	// GetScope returns the scope of this watcher.
	GetScope() WatcherScope

	// GetKey returns a unique key for this watcher instance.
	GetKey() string
}

// BaseWatcher provides a base implementation for watchers.
type BaseWatcher struct {
	scope     WatcherScope
	playerID  string
	condition bool
	key       string
}

// NewBaseWatcher creates a new base watcher with the specified scope.
func NewBaseWatcher(scope WatcherScope) *BaseWatcher {
	return &BaseWatcher{scope: scope}
}

// GetScope returns the watcher's scope.
func (bw *BaseWatcher) GetScope() WatcherScope {
	return bw.scope
}

// SetPlayerID sets the player a PLAYER scoped watcher follows.
func (bw *BaseWatcher) SetPlayerID(id string) {
	bw.playerID = id
}

// GetPlayerID returns the followed player.
func (bw *BaseWatcher) GetPlayerID() string {
	return bw.playerID
}

// ConditionMet returns whether the condition has been met.
func (bw *BaseWatcher) ConditionMet() bool {
	return bw.condition
}

// SetCondition sets the condition flag.
func (bw *BaseWatcher) SetCondition(condition bool) {
	bw.condition = condition
}

// Reset clears the condition.
func (bw *BaseWatcher) Reset() {
	bw.condition = false
}

// GetKey returns the unique key for this watcher.
func (bw *BaseWatcher) GetKey() string {
	return bw.key
}

// SetKey sets the unique key for this watcher.
func (bw *BaseWatcher) SetKey(key string) {
	bw.key = key
}

// WatcherRegistry manages the watchers of a match.
type WatcherRegistry struct {
	mu       sync.RWMutex
	watchers map[string]Watcher
	byScope  map[WatcherScope][]Watcher
}

// NewWatcherRegistry creates a new watcher registry.
func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{
		watchers: make(map[string]Watcher),
		byScope:  make(map[WatcherScope][]Watcher),
	}
}

// AddWatcher adds a watcher to the registry. A watcher with an existing key
// replaces the previous one.
func (wr *WatcherRegistry) AddWatcher(watcher Watcher) {
	if watcher == nil {
		return
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	key := watcher.GetKey()
	if old, ok := wr.watchers[key]; ok {
		wr.removeFromScope(old, key)
	}
	wr.watchers[key] = watcher
	scope := watcher.GetScope()
	wr.byScope[scope] = append(wr.byScope[scope], watcher)
}

// RemoveWatcher removes a watcher from the registry.
func (wr *WatcherRegistry) RemoveWatcher(key string) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	watcher, ok := wr.watchers[key]
	if !ok {
		return
	}
	delete(wr.watchers, key)
	wr.removeFromScope(watcher, key)
}

func (wr *WatcherRegistry) removeFromScope(watcher Watcher, key string) {
	scope := watcher.GetScope()
	watchers := wr.byScope[scope]
	for i, w := range watchers {
		if w.GetKey() == key {
			wr.byScope[scope] = append(watchers[:i:i], watchers[i+1:]...)
			return
		}
	}
}

// GetWatcher retrieves a watcher by key.
func (wr *WatcherRegistry) GetWatcher(key string) Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	return wr.watchers[key]
}

// GetWatchersByScope returns all watchers for a given scope.
func (wr *WatcherRegistry) GetWatchersByScope(scope WatcherScope) []Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	return append([]Watcher(nil), wr.byScope[scope]...)
}

// ResetWatchers resets all watchers.
func (wr *WatcherRegistry) ResetWatchers() {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	for _, watcher := range wr.watchers {
		watcher.Reset()
	}
}

// NotifyWatchers forwards an event to every watcher in key order.
func (wr *WatcherRegistry) NotifyWatchers(event Event) {
	wr.mu.RLock()
	keys := make([]string, 0, len(wr.watchers))
	for key := range wr.watchers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	watchers := make([]Watcher, 0, len(keys))
	for _, key := range keys {
		watchers = append(watchers, wr.watchers[key])
	}
	wr.mu.RUnlock()

	for _, watcher := range watchers {
		watcher.Watch(event)
	}
}
