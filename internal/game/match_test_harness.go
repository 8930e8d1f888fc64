package game

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/clonesclash/clash-server-go/internal/game/cards"
	"github.com/clonesclash/clash-server-go/internal/game/rules"
	"github.com/clonesclash/clash-server-go/internal/game/world"
	"go.uber.org/zap/zaptest"
)

// MatchTestHarness drives a match on a manual clock for tests.
type MatchTestHarness struct {
	t     *testing.T
	match *Match
	clock *rules.ManualClock
}

// NewMatchTestHarness creates a seeded match on a manual clock and starts
// it with the default deck on both sides.
func NewMatchTestHarness(t *testing.T, settings Settings, opts ...MatchOption) *MatchTestHarness {
	t.Helper()
	clock := rules.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if settings.Seed == 0 {
		settings.Seed = 42
	}
	base := []MatchOption{
		WithClock(clock),
		WithRand(rand.New(rand.NewPCG(settings.Seed, settings.Seed^0x9e3779b97f4a7c15))),
	}
	m := NewMatch("test-match", settings, zaptest.NewLogger(t), append(base, opts...)...)
	t.Cleanup(m.Close)

	deck, err := cards.DefaultLibrary().Deck(cards.DefaultDeckName)
	if err != nil {
		t.Fatalf("failed to load default deck: %v", err)
	}
	if err := m.InitGame(deck, deck); err != nil {
		t.Fatalf("failed to init game: %v", err)
	}
	return &MatchTestHarness{t: t, match: m, clock: clock}
}

// Match returns the match under test.
func (h *MatchTestHarness) Match() *Match {
	return h.match
}

// Clock returns the manual clock driving the match.
func (h *MatchTestHarness) Clock() *rules.ManualClock {
	return h.clock
}

// Player returns a player or fails the test.
func (h *MatchTestHarness) Player(id string) *Player {
	h.t.Helper()
	p, ok := h.match.Player(id)
	if !ok {
		h.t.Fatalf("unknown player %q", id)
	}
	return p
}

// SetStructureHP overwrites the HP of a player's three structures.
func (h *MatchTestHarness) SetStructureHP(playerID string, hq, top, bottom int) {
	h.t.Helper()
	p := h.Player(playerID)

	h.match.mu.Lock()
	defer h.match.mu.Unlock()
	p.HQ.HP = hq
	p.TopOutpost.HP = top
	p.BottomOutpost.HP = bottom
}

// SpawnUnit places a unit directly on the field, bypassing the hand.
func (h *MatchTestHarness) SpawnUnit(owner, name string, stats cards.UnitStats, at world.Vec3) *world.Entity {
	h.match.mu.Lock()
	defer h.match.mu.Unlock()
	return h.match.field.spawn(owner, name, stats, at)
}

// Step advances the match by dt in one step.
func (h *MatchTestHarness) Step(dt time.Duration) {
	h.match.Step(dt)
}

// RunFor advances the match in tick-sized steps until d has elapsed.
func (h *MatchTestHarness) RunFor(d time.Duration) {
	tick := h.match.settings.TickInterval
	for elapsed := time.Duration(0); elapsed < d; elapsed += tick {
		h.match.Step(tick)
	}
}

// EntityCount returns the number of live entities on the field.
func (h *MatchTestHarness) EntityCount() int {
	h.match.mu.Lock()
	defer h.match.mu.Unlock()
	return h.match.field.reg.Len()
}
