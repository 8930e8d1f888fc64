package game

import (
	"time"

	"github.com/clonesclash/clash-server-go/internal/game/rules"
)

// GameNotification represents a notification that can be sent to spectators.
type GameNotification struct {
	Type      string                 `json:"type"`                // e.g. "MATCH_STARTED", "CARD_PLAYED", "STATE_UPDATE"
	MatchID   string                 `json:"match_id"`
	PlayerID  string                 `json:"player_id,omitempty"` // empty for broadcast
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NotificationHandler is a function that handles match notifications.
type NotificationHandler func(notification GameNotification)

// forwarded lists the bus events spectators are told about.
var forwarded = map[rules.EventType]bool{
	rules.EventMatchStarted:    true,
	rules.EventMatchEnded:      true,
	rules.EventMatchReset:      true,
	rules.EventCardPlayed:      true,
	rules.EventEntitySpawned:   true,
	rules.EventEntityDestroyed: true,
}

// forwardEvent turns selected bus events into notifications.
func (m *Match) forwardEvent(evt rules.Event) {
	if m.notify == nil || !forwarded[evt.Type] {
		return
	}
	data := map[string]interface{}{
		"target": evt.TargetID,
		"amount": evt.Amount,
	}
	if evt.Data != "" {
		data["message"] = evt.Data
	}
	m.emit(string(evt.Type), evt.PlayerID, data)
}

// emit hands a notification to the handler on its own goroutine, so the
// handler may call back into the match.
func (m *Match) emit(kind, playerID string, data map[string]interface{}) {
	handler := m.notify
	if handler == nil {
		return
	}
	go handler(GameNotification{
		Type:      kind,
		MatchID:   m.ID,
		PlayerID:  playerID,
		Timestamp: m.clock.Now(),
		Data:      data,
	})
}
