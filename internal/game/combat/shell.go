package combat

import (
	"time"

	"github.com/clonesclash/clash-server-go/internal/game/rules"
	"github.com/clonesclash/clash-server-go/internal/game/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultShellSpeed is the travel speed of a shell in units per second.
	DefaultShellSpeed = 20.0
	// DefaultShellLifetime retires shells that never hit anything.
	DefaultShellLifetime = 5 * time.Second
)

// Collision describes what a shell touched.
type Collision struct {
	Layer  world.Layer
	Entity world.Handle // zero for terrain
}

// Shell is an area-damage projectile. Its owner and damage are captured from
// the creator at Init; the first qualifying collision damages every enemy in
// the blast radius once and retires the shell.
type Shell struct {
	ID string

	world  world.World
	radius float64
	bus    *rules.EventBus
	logger *zap.Logger

	owner  string
	damage int
	source world.Handle

	position    world.Vec3
	destination world.Vec3
	speed       float64
	launched    bool

	age      time.Duration
	lifetime time.Duration

	retired     bool
	onDestroyed []func(*Shell)
}

// NewShell creates a shell with the given blast radius. Until Init is
// called it is inert: it retires on impact without dealing damage.
func NewShell(w world.World, radius float64, bus *rules.EventBus, logger *zap.Logger) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shell{
		ID:       uuid.NewString(),
		world:    w,
		radius:   radius,
		bus:      bus,
		logger:   logger,
		speed:    DefaultShellSpeed,
		lifetime: DefaultShellLifetime,
	}
}

// Init captures owner, damage and start position from creator.
func (s *Shell) Init(creator *world.Entity) {
	if creator == nil {
		s.logger.Warn("shell has no creator, it will deal no damage",
			zap.String("shell_id", s.ID))
		return
	}
	s.owner = creator.Owner
	s.damage = creator.AreaAttackDamage
	s.source = creator.Handle
	s.position = creator.Position
}

// SetSpeed overrides the travel speed.
func (s *Shell) SetSpeed(speed float64) {
	if speed > 0 {
		s.speed = speed
	}
}

// SetLifetime overrides the maximum flight time.
func (s *Shell) SetLifetime(d time.Duration) {
	if d > 0 {
		s.lifetime = d
	}
}

// Launch sends the shell towards a point on the ground.
func (s *Shell) Launch(destination world.Vec3) {
	if s.retired {
		return
	}
	s.destination = destination
	s.launched = true
	if s.bus != nil {
		evt := rules.NewEventWithAmount(rules.EventProjectileLaunched, s.ID, s.source.String(), s.owner, s.damage)
		s.bus.Publish(evt)
	}
}

// OnDestroyed registers a callback run once when the shell retires.
func (s *Shell) OnDestroyed(fn func(*Shell)) {
	if fn != nil && !s.retired {
		s.onDestroyed = append(s.onDestroyed, fn)
	}
}

// Advance moves the shell by dt. Reaching the destination counts as a
// ground impact. It returns the entities damaged during this step.
func (s *Shell) Advance(dt time.Duration) []world.Handle {
	if s.retired {
		return nil
	}
	s.age += dt
	if s.launched {
		s.position = s.position.MoveTowards(s.destination, s.speed*dt.Seconds())
		if s.position == s.destination {
			return s.Impact(Collision{Layer: world.LayerGround})
		}
	}
	if s.age >= s.lifetime {
		s.logger.Debug("shell expired",
			zap.String("shell_id", s.ID),
			zap.Duration("age", s.age))
		s.retire()
	}
	return nil
}

// Impact resolves a collision. Collisions outside the impact layers and
// collisions with friendly entities are ignored. Once the shell has
// detonated every further call is a no-op, so no entity is damaged twice.
func (s *Shell) Impact(c Collision) []world.Handle {
	if s.retired || !world.ProjectileImpactMask.Contains(c.Layer) {
		return nil
	}
	if s.world != nil && !c.Entity.IsZero() {
		if e, ok := s.world.Get(c.Entity); ok && !world.IsEnemy(s.owner, e) {
			return nil
		}
	}

	var damaged []world.Handle
	if s.world != nil && s.damage > 0 && s.owner != "" {
		seen := make(map[world.Handle]struct{})
		for _, h := range s.world.OverlapSphere(s.position, s.radius, world.EntityMask) {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}

			e, ok := s.world.Get(h)
			if !ok || !e.Alive() || !world.IsEnemy(s.owner, e) {
				continue
			}
			applied := e.TakeDamage(s.damage)
			damaged = append(damaged, h)
			s.publishDamage(e, applied)
		}
	}

	s.logger.Debug("shell detonated",
		zap.String("shell_id", s.ID),
		zap.String("owner", s.owner),
		zap.Stringer("position", s.position),
		zap.Int("hits", len(damaged)))
	s.retire()
	return damaged
}

func (s *Shell) publishDamage(target *world.Entity, amount int) {
	if s.bus == nil {
		return
	}
	evt := rules.NewEventWithAmount(rules.EventEntityDamaged, target.Handle.String(), s.source.String(), s.owner, amount)
	evt.Metadata["owner"] = target.Owner
	evt.Metadata["projectile"] = s.ID
	s.bus.Publish(evt)
}

func (s *Shell) retire() {
	s.retired = true
	if s.bus != nil {
		s.bus.Publish(rules.NewEvent(rules.EventProjectileDestroyed, s.ID, s.source.String(), s.owner))
	}
	callbacks := s.onDestroyed
	s.onDestroyed = nil
	for _, fn := range callbacks {
		fn(s)
	}
}

// Retired reports whether the shell has detonated or expired.
func (s *Shell) Retired() bool { return s.retired }

// Position returns the current position.
func (s *Shell) Position() world.Vec3 { return s.position }

// Owner returns the player the shell fights for.
func (s *Shell) Owner() string { return s.owner }

// Damage returns the area damage captured at Init.
func (s *Shell) Damage() int { return s.damage }
