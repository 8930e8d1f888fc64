package targeting

import (
	"math"

	"github.com/clonesclash/clash-server-go/internal/game/rules"
	"github.com/clonesclash/clash-server-go/internal/game/world"
	"go.uber.org/zap"
)

// Aggro selects and keeps the attack target of one entity.
//
// Evaluate runs every tick and is cheap: it re-validates the current target
// and, when there is none, picks the nearest eligible entry of a cached
// candidate list. RefreshCandidates runs on a slower fixed cadence and is
// the only place that issues a spatial query.
type Aggro struct {
	self      world.Handle
	world     world.World
	threshold float64
	bus       *rules.EventBus
	logger    *zap.Logger

	target     world.Handle
	candidates []world.Handle
	disabled   bool
}

// NewAggro creates the aggro state for self. A missing entity or world is
// logged and yields a disabled selector that never picks a target.
// directionThreshold is clamped to [0, 1].
func NewAggro(self world.Handle, w world.World, directionThreshold float64, bus *rules.EventBus, logger *zap.Logger) *Aggro {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggro{
		self:      self,
		world:     w,
		threshold: directionThreshold,
		bus:       bus,
		logger:    logger,
	}
	if w == nil || self.IsZero() {
		logger.Warn("aggro disabled, missing entity or world",
			zap.Stringer("entity", self),
			zap.Bool("has_world", w != nil))
		a.disabled = true
		return a
	}
	if directionThreshold < 0 || directionThreshold > 1 {
		logger.Warn("direction threshold out of range, clamping",
			zap.Stringer("entity", self),
			zap.Float64("direction_threshold", directionThreshold))
		a.threshold = math.Max(0, math.Min(1, directionThreshold))
	}
	return a
}

// Eligible reports whether attacker may pick candidate as a target: the
// candidate must be alive and either be a building or match the attacker's
// ground/air capability.
func Eligible(attacker, candidate *world.Entity) bool {
	if attacker == nil || !candidate.Alive() {
		return false
	}
	return (attacker.AttacksGroundUnits && !candidate.IsAirUnit) ||
		(attacker.AttacksAirUnits && candidate.IsAirUnit) ||
		candidate.IsBuilding
}

// Evaluate runs the per-tick target pass.
func (a *Aggro) Evaluate() {
	if a.disabled {
		return
	}
	self, ok := a.world.Get(a.self)
	if !ok {
		a.Clear()
		return
	}

	if !a.target.IsZero() {
		t, ok := a.world.Get(a.target)
		if !ok || t.HP <= 0 {
			a.Clear()
		}
	}

	if !a.target.IsZero() || len(a.candidates) == 0 {
		return
	}

	var (
		best     world.Handle
		bestDist = math.Inf(1)
	)
	for _, h := range a.candidates {
		c, ok := a.world.Get(h)
		if !ok || !Eligible(self, c) {
			continue
		}
		// Strict comparison keeps the first candidate on ties.
		if d := self.Position.HorizontalDistance(c.Position); d < bestDist {
			best = h
			bestDist = d
		}
	}
	if best.IsZero() {
		return
	}

	a.target = best
	a.logger.Debug("target acquired",
		zap.Stringer("entity", a.self),
		zap.Stringer("target", best),
		zap.Float64("distance", bestDist))
	a.publish(rules.EventTargetAcquired, best)
}

// RefreshCandidates re-queries the entities around self. It does nothing
// while a target is held.
func (a *Aggro) RefreshCandidates() {
	if a.disabled || !a.target.IsZero() {
		return
	}
	self, ok := a.world.Get(a.self)
	if !ok {
		a.candidates = nil
		return
	}

	bottom, top := world.CapsulePoints(self.Position)
	hits := a.world.OverlapCapsule(bottom, top, self.AggroRange, world.EntityMask)

	candidates := a.candidates[:0]
	for _, h := range hits {
		if h == a.self {
			continue
		}
		e, ok := a.world.Get(h)
		if !ok || e.Owner == self.Owner {
			continue
		}
		candidates = append(candidates, h)
	}
	a.candidates = candidates
}

// IsInSights reports whether a weapon on self can fire at target. Weapons
// that do not aim always can. An aiming weapon needs the horizontal facing
// and the horizontal direction to the target to be parallel within the
// direction threshold; facing directly away also passes.
func (a *Aggro) IsInSights(target *world.Entity, directional bool) bool {
	if !directional {
		return true
	}
	if target == nil || a.disabled {
		return false
	}
	self, ok := a.world.Get(a.self)
	if !ok {
		return false
	}
	forward := self.Forward.Horizontal().Normalized()
	toTarget := target.Position.Sub(self.Position).Horizontal().Normalized()
	return math.Abs(forward.Dot(toTarget)) > 1-a.threshold
}

// GetEnemiesInRange queries, without caching, every entity owned by
// enemyPlayer within radius of self.
func (a *Aggro) GetEnemiesInRange(enemyPlayer string, radius float64) []world.Handle {
	if a.disabled {
		return nil
	}
	self, ok := a.world.Get(a.self)
	if !ok {
		return nil
	}
	bottom, top := world.CapsulePoints(self.Position)
	var enemies []world.Handle
	for _, h := range a.world.OverlapCapsule(bottom, top, radius, world.EntityMask) {
		if e, ok := a.world.Get(h); ok && e.Owner == enemyPlayer {
			enemies = append(enemies, h)
		}
	}
	return enemies
}

// Target returns the current target handle, zero when there is none.
func (a *Aggro) Target() world.Handle {
	return a.target
}

// TargetEntity resolves the current target if it is still alive.
func (a *Aggro) TargetEntity() (*world.Entity, bool) {
	if a.disabled || a.target.IsZero() {
		return nil, false
	}
	e, ok := a.world.Get(a.target)
	if !ok || e.HP <= 0 {
		return nil, false
	}
	return e, true
}

// Candidates returns a copy of the cached candidate list.
func (a *Aggro) Candidates() []world.Handle {
	return append([]world.Handle(nil), a.candidates...)
}

// Disabled reports whether the selector was built without its collaborators.
func (a *Aggro) Disabled() bool {
	return a.disabled
}

// Clear drops the current target.
func (a *Aggro) Clear() {
	if a.target.IsZero() {
		return
	}
	lost := a.target
	a.target = world.Handle{}
	a.publish(rules.EventTargetLost, lost)
}

func (a *Aggro) publish(t rules.EventType, target world.Handle) {
	if a.bus == nil {
		return
	}
	owner := ""
	if self, ok := a.world.Get(a.self); ok {
		owner = self.Owner
	}
	a.bus.Publish(rules.NewEvent(t, target.String(), a.self.String(), owner))
}
