package combat

import (
	"time"

	"github.com/clonesclash/clash-server-go/internal/game/rules"
	"github.com/clonesclash/clash-server-go/internal/game/world"
)

// Weapon is the attack profile of a unit or building.
type Weapon struct {
	Damage      int
	AreaDamage  int
	AreaRadius  float64
	Range       float64
	Cooldown    time.Duration
	Directional bool
	// ShellSpeed overrides DefaultShellSpeed for area weapons when positive.
	ShellSpeed float64

	remaining time.Duration
}

// IsArea reports whether the weapon fires shells.
func (w *Weapon) IsArea() bool {
	return w.AreaDamage > 0 && w.AreaRadius > 0
}

// Tick counts the cooldown down.
func (w *Weapon) Tick(dt time.Duration) {
	if w.remaining > 0 {
		w.remaining -= dt
		if w.remaining < 0 {
			w.remaining = 0
		}
	}
}

// Ready reports whether the weapon may fire.
func (w *Weapon) Ready() bool {
	return w.remaining <= 0
}

// Fire starts the cooldown.
func (w *Weapon) Fire() {
	w.remaining = w.Cooldown
}

// InRange reports whether target is within reach of attacker. Collider
// radii of both sides count towards the reach; height does not.
func (w *Weapon) InRange(attacker, target *world.Entity) bool {
	if attacker == nil || target == nil {
		return false
	}
	gap := attacker.Position.HorizontalDistance(target.Position) - attacker.Radius - target.Radius
	return gap <= w.Range
}

// Strike applies direct damage from attacker to target and reports the
// damage dealt. Friendly and neutral targets take nothing.
func Strike(attacker, target *world.Entity, damage int, bus *rules.EventBus) int {
	if attacker == nil || !world.IsEnemy(attacker.Owner, target) {
		return 0
	}
	applied := target.TakeDamage(damage)
	if applied > 0 && bus != nil {
		evt := rules.NewEventWithAmount(rules.EventEntityDamaged, target.Handle.String(), attacker.Handle.String(), attacker.Owner, applied)
		evt.Metadata["owner"] = target.Owner
		bus.Publish(evt)
	}
	return applied
}
