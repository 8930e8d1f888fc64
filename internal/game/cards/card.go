package cards

import (
	"time"

	"github.com/google/uuid"
)

// UnitStats describes what a card spawns when played.
type UnitStats struct {
	HP               int           `yaml:"hp" json:"hp" validate:"gt=0"`
	Speed            float64       `yaml:"speed" json:"speed" validate:"gte=0"`
	Radius           float64       `yaml:"radius" json:"radius" validate:"gte=0"`
	AggroRange       float64       `yaml:"aggro_range" json:"aggro_range" validate:"gte=0"`
	AttackRange      float64       `yaml:"attack_range" json:"attack_range" validate:"gte=0"`
	AttackDamage     int           `yaml:"attack_damage" json:"attack_damage" validate:"gte=0"`
	AreaAttackDamage int           `yaml:"area_attack_damage" json:"area_attack_damage" validate:"gte=0"`
	AreaRadius       float64       `yaml:"area_radius" json:"area_radius" validate:"gte=0"`
	ShellSpeed       float64       `yaml:"shell_speed" json:"shell_speed" validate:"gte=0"` // 0 keeps the default
	AttackCooldown   time.Duration `yaml:"attack_cooldown" json:"attack_cooldown" validate:"gte=0"`
	IsAirUnit        bool          `yaml:"is_air_unit" json:"is_air_unit"`
	IsBuilding       bool          `yaml:"is_building" json:"is_building"`
	AttacksGround    bool          `yaml:"attacks_ground" json:"attacks_ground"`
	AttacksAir       bool          `yaml:"attacks_air" json:"attacks_air"`
	Directional      bool          `yaml:"directional" json:"directional"`
	Count            int           `yaml:"count" json:"count" validate:"gte=0,lte=10"` // units spawned per play, 0 means 1
}

// AreaAttack reports whether the unit fires area shells.
func (s UnitStats) AreaAttack() bool {
	return s.AreaAttackDamage > 0 && s.AreaRadius > 0
}

// Units returns how many units one play spawns.
func (s UnitStats) Units() int {
	if s.Count <= 0 {
		return 1
	}
	return s.Count
}

// CardDefinition is the immutable template a card is created from.
type CardDefinition struct {
	Name       string    `yaml:"name" json:"name" validate:"required"`
	PrefabName string    `yaml:"prefab" json:"prefab,omitempty"`
	Cost       int       `yaml:"cost" json:"cost" validate:"gte=0"`
	Stats      UnitStats `yaml:"stats" json:"stats"`
}

// Card is one instance of a definition inside a player's economy. Two cards
// with the same definition are still distinct cards.
type Card struct {
	ID         string
	Definition *CardDefinition
}

// NewCard creates a card instance with a fresh ID.
func NewCard(def *CardDefinition) *Card {
	return &Card{ID: uuid.NewString(), Definition: def}
}

// Name returns the definition name, or "" for a card with no definition.
func (c *Card) Name() string {
	if c == nil || c.Definition == nil {
		return ""
	}
	return c.Definition.Name
}
