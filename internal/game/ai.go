package game

import (
	"math/rand/v2"

	"github.com/clonesclash/clash-server-go/internal/game/world"
	"go.uber.org/zap"
)

// RandomOpponent plays a uniformly random hand card whenever it gets a
// turn. It drops the card in front of a structure under attack, or at a
// random spot on its own half when none is.
type RandomOpponent struct {
	playerID string
	rng      *rand.Rand
	logger   *zap.Logger
}

// NewRandomOpponent creates an opponent for playerID.
func NewRandomOpponent(playerID string, rng *rand.Rand, logger *zap.Logger) *RandomOpponent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RandomOpponent{playerID: playerID, rng: rng, logger: logger}
}

// PlayerID returns the player this opponent controls.
func (ai *RandomOpponent) PlayerID() string {
	return ai.playerID
}

// Act plays one card for p. The match lock must be held.
func (ai *RandomOpponent) Act(m *Match, p *Player) {
	if p.Cards == nil {
		return
	}
	card := p.Cards.GetRandomCardFromHand()
	if card == nil {
		return
	}
	at := ai.placement(p.ID)
	if opp := m.oppositeLocked(p); opp != nil {
		if s, ok := m.field.mostThreatened(p.ID, opp.ID); ok {
			at = defence(p.ID, s.Position)
		}
	}
	if err := m.playLocked(p, card, at); err != nil {
		ai.logger.Warn("random opponent failed to play",
			zap.String("player_id", p.ID),
			zap.String("card", card.Name()),
			zap.Error(err))
	}
}

// placement picks a point between the front line and the own HQ.
func (ai *RandomOpponent) placement(playerID string) world.Vec3 {
	depth := 5 + ai.rng.Float64()*(hqOffsetX-10)
	lateral := (ai.rng.Float64()*2 - 1) * (FieldHalfWidth - 5)
	return world.Vec3{X: side(playerID) * depth, Z: lateral}
}

// defence is a point just in front of a structure, towards the centre line.
func defence(playerID string, structure world.Vec3) world.Vec3 {
	at := structure
	at.X -= side(playerID) * defenceOffset
	at.Y = 0
	return at
}
