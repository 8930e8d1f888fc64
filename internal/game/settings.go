package game

import (
	"time"

	"github.com/clonesclash/clash-server-go/internal/game/cards"
)

// Player IDs. The left side is the computer in a single-player match.
const (
	PlayerLeft  = "left"
	PlayerRight = "right"
)

// Settings tunes a match.
type Settings struct {
	HandSize           int
	MatchStartSeconds  float64
	// DirectionThreshold is how far from parallel an aiming weapon may be.
	// Zero would never fire, so it is treated as unset.
	DirectionThreshold float64
	RestartDelay       time.Duration

	// FixedStep is the slow cadence: aggro candidate queries and movement.
	FixedStep time.Duration
	// TickInterval is how often a real-time driver advances the match.
	TickInterval     time.Duration
	SnapshotInterval time.Duration
	AIPlayInterval   time.Duration

	// Seed feeds the match RNG. Zero seeds from the wall clock.
	Seed uint64

	LeftName  string
	RightName string
}

// DefaultSettings returns the stock match configuration.
func DefaultSettings() Settings {
	return Settings{
		HandSize:           cards.DefaultHandSize,
		MatchStartSeconds:  180,
		DirectionThreshold: 0.1,
		RestartDelay:       3 * time.Second,
		FixedStep:          20 * time.Millisecond,
		TickInterval:       16 * time.Millisecond,
		SnapshotInterval:   time.Second,
		AIPlayInterval:     4 * time.Second,
		LeftName:           "Computer",
		RightName:          "Player",
	}
}

// withDefaults fills zero values from DefaultSettings.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.HandSize <= 0 {
		s.HandSize = d.HandSize
	}
	if s.MatchStartSeconds <= 0 {
		s.MatchStartSeconds = d.MatchStartSeconds
	}
	if s.DirectionThreshold <= 0 {
		s.DirectionThreshold = d.DirectionThreshold
	}
	if s.RestartDelay <= 0 {
		s.RestartDelay = d.RestartDelay
	}
	if s.FixedStep <= 0 {
		s.FixedStep = d.FixedStep
	}
	if s.TickInterval <= 0 {
		s.TickInterval = d.TickInterval
	}
	if s.SnapshotInterval <= 0 {
		s.SnapshotInterval = d.SnapshotInterval
	}
	if s.AIPlayInterval <= 0 {
		s.AIPlayInterval = d.AIPlayInterval
	}
	if s.LeftName == "" {
		s.LeftName = d.LeftName
	}
	if s.RightName == "" {
		s.RightName = d.RightName
	}
	return s
}
