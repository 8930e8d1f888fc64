package game

import (
	"math"
	"time"

	"github.com/clonesclash/clash-server-go/internal/game/cards"
	"github.com/clonesclash/clash-server-go/internal/game/combat"
	"github.com/clonesclash/clash-server-go/internal/game/rules"
	"github.com/clonesclash/clash-server-go/internal/game/targeting"
	"github.com/clonesclash/clash-server-go/internal/game/world"
	"go.uber.org/zap"
)

// Field layout. The left player defends negative X.
const (
	FieldHalfLength = 45.0
	FieldHalfWidth  = 25.0
	hqOffsetX       = 40.0
	outpostOffsetX  = 30.0
	outpostOffsetZ  = 15.0
	airAltitude     = 6.0
	// turnRate is how fast units rotate towards their target, in radians per second.
	turnRate = 3.0

	// threatRadius is how close enemies get before a structure needs help.
	threatRadius  = 12.0
	defenceOffset = 4.0
)

var (
	hqStats = cards.UnitStats{
		HP: 2000, Radius: 2.5, AggroRange: 11, AttackRange: 9, AttackDamage: 50,
		AttackCooldown: time.Second, IsBuilding: true, AttacksGround: true, AttacksAir: true,
	}
	outpostStats = cards.UnitStats{
		HP: 1000, Radius: 1.5, AggroRange: 10, AttackRange: 8, AttackDamage: 40,
		AttackCooldown: time.Second, IsBuilding: true, AttacksGround: true, AttacksAir: true,
	}
)

type unit struct {
	entity *world.Entity
	aggro  *targeting.Aggro
	weapon *combat.Weapon
	speed  float64
}

// battlefield runs units, buildings and shells of one match. It stands in
// for the engine side: movement, attack execution and despawning.
type battlefield struct {
	reg       *world.Registry
	bus       *rules.EventBus
	logger    *zap.Logger
	threshold float64

	units  []*unit
	shells []*combat.Shell
}

func newBattlefield(bus *rules.EventBus, threshold float64, logger *zap.Logger) *battlefield {
	return &battlefield{
		reg:       world.NewRegistry(),
		bus:       bus,
		logger:    logger,
		threshold: threshold,
	}
}

// side returns -1 for the left player and +1 for the right one.
func side(playerID string) float64 {
	if playerID == PlayerLeft {
		return -1
	}
	return 1
}

// spawnStructures places HQ and outposts for a player.
func (b *battlefield) spawnStructures(p *Player) {
	s := side(p.ID)
	p.HQ = b.spawn(p.ID, "HQ", hqStats, world.Vec3{X: s * hqOffsetX})
	p.TopOutpost = b.spawn(p.ID, "Top Outpost", outpostStats, world.Vec3{X: s * outpostOffsetX, Z: outpostOffsetZ})
	p.BottomOutpost = b.spawn(p.ID, "Bottom Outpost", outpostStats, world.Vec3{X: s * outpostOffsetX, Z: -outpostOffsetZ})
}

// spawnCard places the units of a played card around at.
func (b *battlefield) spawnCard(owner string, def *cards.CardDefinition, at world.Vec3) []*world.Entity {
	if def == nil {
		return nil
	}
	n := def.Stats.Units()
	spawned := make([]*world.Entity, 0, n)
	for i := 0; i < n; i++ {
		offset := float64(i) - float64(n-1)/2
		pos := at.Add(world.Vec3{Z: offset * 1.5})
		spawned = append(spawned, b.spawn(owner, def.Name, def.Stats, pos))
	}
	return spawned
}

func (b *battlefield) spawn(owner, name string, stats cards.UnitStats, pos world.Vec3) *world.Entity {
	pos = clampToOwnHalf(owner, pos)
	if stats.IsAirUnit {
		pos.Y = airAltitude
	} else {
		pos.Y = 0
	}

	e := &world.Entity{
		Name:               name,
		Owner:              owner,
		Position:           pos,
		Forward:            world.Vec3{X: -side(owner)},
		Radius:             stats.Radius,
		Layer:              world.LayerEntity,
		HP:                 stats.HP,
		MaxHP:              stats.HP,
		IsAirUnit:          stats.IsAirUnit,
		IsBuilding:         stats.IsBuilding,
		AttacksGroundUnits: stats.AttacksGround,
		AttacksAirUnits:    stats.AttacksAir,
		AggroRange:         stats.AggroRange,
		AreaAttackDamage:   stats.AreaAttackDamage,
	}
	h := b.reg.Spawn(e)

	u := &unit{
		entity: e,
		aggro:  targeting.NewAggro(h, b.reg, b.threshold, b.bus, b.logger),
		weapon: &combat.Weapon{
			Damage:      stats.AttackDamage,
			AreaDamage:  stats.AreaAttackDamage,
			AreaRadius:  stats.AreaRadius,
			Range:       stats.AttackRange,
			Cooldown:    stats.AttackCooldown,
			Directional: stats.Directional,
			ShellSpeed:  stats.ShellSpeed,
		},
		speed: stats.Speed,
	}
	if stats.IsBuilding {
		u.speed = 0
	}
	b.units = append(b.units, u)

	evt := rules.NewEventWithAmount(rules.EventEntitySpawned, h.String(), "", owner, e.HP)
	evt.Data = name
	b.bus.Publish(evt)
	return e
}

func clampToOwnHalf(owner string, pos world.Vec3) world.Vec3 {
	s := side(owner)
	x := pos.X * s
	x = math.Max(0, math.Min(FieldHalfLength, x))
	pos.X = x * s
	pos.Z = math.Max(-FieldHalfWidth, math.Min(FieldHalfWidth, pos.Z))
	return pos
}

// fixedUpdate is the slow pass: candidate queries, steering and movement.
func (b *battlefield) fixedUpdate(dt time.Duration) {
	for _, u := range b.units {
		if !u.entity.Alive() {
			continue
		}
		u.aggro.RefreshCandidates()

		target, hasTarget := u.aggro.TargetEntity()
		if hasTarget {
			u.turnTowards(target.Position, dt)
			if u.weapon.InRange(u.entity, target) {
				continue
			}
		}
		if u.speed <= 0 {
			continue
		}

		dest, ok := b.objective(u, target, hasTarget)
		if !ok {
			continue
		}
		dest.Y = u.entity.Position.Y
		if !hasTarget {
			u.turnTowards(dest, dt)
		}
		u.entity.Position = u.entity.Position.MoveTowards(dest, u.speed*dt.Seconds())
	}
}

// objective picks where a unit walks to: its target, or else the nearest
// enemy structure still standing.
func (b *battlefield) objective(u *unit, target *world.Entity, hasTarget bool) (world.Vec3, bool) {
	if hasTarget {
		return target.Position, true
	}
	var (
		best     world.Vec3
		bestDist = math.Inf(1)
		found    bool
	)
	b.reg.Each(func(e *world.Entity) {
		if !e.IsBuilding || !e.Alive() || !world.IsEnemy(u.entity.Owner, e) {
			return
		}
		if d := u.entity.Position.HorizontalDistance(e.Position); d < bestDist {
			best, bestDist, found = e.Position, d, true
		}
	})
	if found && bestDist <= u.weapon.Range+u.entity.Radius {
		return world.Vec3{}, false
	}
	return best, found
}

func (u *unit) turnTowards(point world.Vec3, dt time.Duration) {
	desired := point.Sub(u.entity.Position).Horizontal()
	if desired.Length() == 0 {
		return
	}
	current := u.entity.Forward.Horizontal()
	if current.Length() == 0 {
		u.entity.Forward = desired.Normalized()
		return
	}
	from := math.Atan2(current.Z, current.X)
	to := math.Atan2(desired.Z, desired.X)
	diff := math.Remainder(to-from, 2*math.Pi)
	maxStep := turnRate * dt.Seconds()
	if math.Abs(diff) > maxStep {
		diff = math.Copysign(maxStep, diff)
	}
	angle := from + diff
	u.entity.Forward = world.Vec3{X: math.Cos(angle), Z: math.Sin(angle)}
}

// update is the per-tick pass: target validation, attacks, shells and
// despawning. It returns the entities destroyed during the tick.
func (b *battlefield) update(dt time.Duration) []*world.Entity {
	for _, u := range b.units {
		if !u.entity.Alive() {
			continue
		}
		u.aggro.Evaluate()
		u.weapon.Tick(dt)

		target, ok := u.aggro.TargetEntity()
		if !ok || !u.weapon.Ready() || !u.weapon.InRange(u.entity, target) {
			continue
		}
		if !u.aggro.IsInSights(target, u.weapon.Directional) {
			continue
		}
		b.attack(u, target)
		u.weapon.Fire()
	}

	live := b.shells[:0]
	for _, s := range b.shells {
		s.Advance(dt)
		if !s.Retired() {
			live = append(live, s)
		}
	}
	for i := len(live); i < len(b.shells); i++ {
		b.shells[i] = nil
	}
	b.shells = live

	return b.reap()
}

func (b *battlefield) attack(u *unit, target *world.Entity) {
	if !u.weapon.IsArea() {
		combat.Strike(u.entity, target, u.weapon.Damage, b.bus)
		return
	}
	shell := combat.NewShell(b.reg, u.weapon.AreaRadius, b.bus, b.logger)
	shell.Init(u.entity)
	if u.weapon.ShellSpeed > 0 {
		shell.SetSpeed(u.weapon.ShellSpeed)
	}
	impact := target.Position
	impact.Y = 0
	shell.Launch(impact)
	b.shells = append(b.shells, shell)
}

// mostThreatened returns the standing structure of owner with the most
// units of enemy around it.
func (b *battlefield) mostThreatened(owner, enemy string) (*world.Entity, bool) {
	var (
		best *world.Entity
		most int
	)
	for _, u := range b.units {
		if u.entity.Owner != owner || !u.entity.IsBuilding || !u.entity.Alive() {
			continue
		}
		if n := len(u.aggro.GetEnemiesInRange(enemy, threatRadius)); n > most {
			best, most = u.entity, n
		}
	}
	return best, best != nil
}

// reap despawns dead entities and clears every aggro pointing at them.
func (b *battlefield) reap() []*world.Entity {
	dead := b.reg.ReapDead()
	if len(dead) == 0 {
		return nil
	}

	gone := make(map[world.Handle]struct{}, len(dead))
	for _, e := range dead {
		gone[e.Handle] = struct{}{}
		evt := rules.NewEvent(rules.EventEntityDestroyed, e.Handle.String(), "", e.Owner)
		evt.Data = e.Name
		b.bus.Publish(evt)
	}

	alive := b.units[:0]
	for _, u := range b.units {
		if _, ok := gone[u.entity.Handle]; ok {
			u.aggro.Clear()
			continue
		}
		if _, ok := gone[u.aggro.Target()]; ok {
			u.aggro.Clear()
		}
		alive = append(alive, u)
	}
	for i := len(alive); i < len(b.units); i++ {
		b.units[i] = nil
	}
	b.units = alive
	return dead
}

// unitFor finds the runtime wrapper of an entity.
func (b *battlefield) unitFor(h world.Handle) *unit {
	for _, u := range b.units {
		if u.entity.Handle == h {
			return u
		}
	}
	return nil
}

func (b *battlefield) shellCount() int {
	return len(b.shells)
}
