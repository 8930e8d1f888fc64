package world

import "fmt"

// Layer classifies what an object in the world is for collision purposes.
type Layer uint32

const (
	// LayerGround is terrain; projectiles explode on it.
	LayerGround Layer = 1 << iota
	// LayerEntity is any attackable unit or building.
	LayerEntity
	// LayerProjectile is in-flight ordnance. Never a query result.
	LayerProjectile
)

// LayerMask selects a set of layers.
type LayerMask uint32

const (
	// EntityMask restricts spatial queries to attackable entities.
	EntityMask = LayerMask(LayerEntity)
	// ProjectileImpactMask lists the layers a projectile detonates on.
	ProjectileImpactMask = LayerMask(LayerGround | LayerEntity)
)

// Contains reports whether l is part of the mask.
func (m LayerMask) Contains(l Layer) bool {
	return uint32(m)&uint32(l) != 0
}

// Handle identifies an entity in a Registry. The zero Handle never refers to
// an entity, and a handle goes stale once its entity is despawned.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the empty handle.
func (h Handle) IsZero() bool {
	return h.generation == 0
}

func (h Handle) String() string {
	if h.IsZero() {
		return "entity-none"
	}
	return fmt.Sprintf("entity-%d.%d", h.index, h.generation)
}

// Less orders handles by slot then generation.
func (h Handle) Less(o Handle) bool {
	if h.index != o.index {
		return h.index < o.index
	}
	return h.generation < o.generation
}

// Entity is a unit or building on the battlefield.
type Entity struct {
	Handle   Handle
	Name     string
	Owner    string // player ID, empty for neutral objects
	Position Vec3
	Forward  Vec3
	Radius   float64
	Layer    Layer

	HP    int
	MaxHP int

	IsAirUnit          bool
	IsBuilding         bool
	AttacksGroundUnits bool
	AttacksAirUnits    bool

	AggroRange       float64
	AreaAttackDamage int
}

// Alive reports whether the entity still has health.
func (e *Entity) Alive() bool {
	return e != nil && e.HP > 0
}

// TakeDamage lowers HP by amount, never below zero, and returns the damage
// actually applied.
func (e *Entity) TakeDamage(amount int) int {
	if e == nil || amount <= 0 || e.HP <= 0 {
		return 0
	}
	if amount > e.HP {
		amount = e.HP
	}
	e.HP -= amount
	return amount
}

// IsEnemy reports whether target belongs to a player other than owner.
// Neutral owners and neutral targets are never enemies.
func IsEnemy(owner string, target *Entity) bool {
	if owner == "" || target == nil || target.Owner == "" {
		return false
	}
	return target.Owner != owner
}
