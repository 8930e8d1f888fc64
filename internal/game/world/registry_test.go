package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHandles(t *testing.T) {
	t.Run("spawn and resolve", func(t *testing.T) {
		r := NewRegistry()
		e := &Entity{Name: "knight", HP: 10, Layer: LayerEntity}
		h := r.Spawn(e)

		assert.False(t, h.IsZero())
		assert.Equal(t, h, e.Handle)
		got, ok := r.Get(h)
		require.True(t, ok)
		assert.Same(t, e, got)
		assert.True(t, r.IsAlive(h))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("stale handle after despawn and reuse", func(t *testing.T) {
		r := NewRegistry()
		first := r.Spawn(&Entity{Name: "a", HP: 1})
		require.True(t, r.Despawn(first))

		second := r.Spawn(&Entity{Name: "b", HP: 1})
		assert.NotEqual(t, first, second)
		assert.False(t, r.Exists(first))
		assert.True(t, r.Exists(second))
		assert.False(t, r.Despawn(first))
	})

	t.Run("zero handle resolves to nothing", func(t *testing.T) {
		r := NewRegistry()
		_, ok := r.Get(Handle{})
		assert.False(t, ok)
		assert.False(t, r.IsAlive(Handle{}))
	})

	t.Run("dead entity exists but is not alive", func(t *testing.T) {
		r := NewRegistry()
		h := r.Spawn(&Entity{HP: 0})
		assert.True(t, r.Exists(h))
		assert.False(t, r.IsAlive(h))
	})
}

func TestRegistryReapDead(t *testing.T) {
	r := NewRegistry()
	alive := r.Spawn(&Entity{Name: "alive", HP: 5})
	dead := r.Spawn(&Entity{Name: "dead", HP: 0})

	reaped := r.ReapDead()
	require.Len(t, reaped, 1)
	assert.Equal(t, "dead", reaped[0].Name)
	assert.True(t, r.Exists(alive))
	assert.False(t, r.Exists(dead))
}

func TestTakeDamageClampsAtZero(t *testing.T) {
	e := &Entity{HP: 10}
	assert.Equal(t, 4, e.TakeDamage(4))
	assert.Equal(t, 6, e.HP)
	assert.Equal(t, 6, e.TakeDamage(100))
	assert.Equal(t, 0, e.HP)
	assert.Equal(t, 0, e.TakeDamage(5))
	assert.False(t, e.Alive())
}

func TestIsEnemy(t *testing.T) {
	tests := []struct {
		name   string
		owner  string
		target *Entity
		want   bool
	}{
		{"different owners", "left", &Entity{Owner: "right"}, true},
		{"same owner", "left", &Entity{Owner: "left"}, false},
		{"neutral source", "", &Entity{Owner: "right"}, false},
		{"neutral target", "left", &Entity{Owner: ""}, false},
		{"nil target", "left", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEnemy(tt.owner, tt.target))
		})
	}
}

func TestSpatialQueries(t *testing.T) {
	r := NewRegistry()
	ground := r.Spawn(&Entity{Name: "ground", Position: Vec3{X: 3}, Layer: LayerEntity})
	air := r.Spawn(&Entity{Name: "air", Position: Vec3{X: 3, Y: 8}, Layer: LayerEntity})
	far := r.Spawn(&Entity{Name: "far", Position: Vec3{X: 30}, Layer: LayerEntity})
	terrain := r.Spawn(&Entity{Name: "rock", Position: Vec3{X: 1}, Layer: LayerGround})

	t.Run("capsule reaches flying units", func(t *testing.T) {
		bottom, top := CapsulePoints(Vec3{})
		hits := r.OverlapCapsule(bottom, top, 5, EntityMask)
		assert.Equal(t, []Handle{ground, air}, hits)
		assert.NotContains(t, hits, far)
		assert.NotContains(t, hits, terrain)
	})

	t.Run("sphere is bounded vertically", func(t *testing.T) {
		hits := r.OverlapSphere(Vec3{}, 5, EntityMask)
		assert.Equal(t, []Handle{ground}, hits)
	})

	t.Run("collider radius widens the hit", func(t *testing.T) {
		e, _ := r.Get(far)
		e.Radius = 26
		hits := r.OverlapSphere(Vec3{}, 5, EntityMask)
		assert.Contains(t, hits, far)
	})
}

func TestVecHelpers(t *testing.T) {
	a := Vec3{X: 0, Y: 10, Z: 0}
	b := Vec3{X: 3, Y: 0, Z: 4}
	assert.InDelta(t, 5.0, a.HorizontalDistance(b), 1e-9)
	assert.Equal(t, Vec3{}, Vec3{}.Normalized())
	assert.InDelta(t, 1.0, b.Normalized().Length(), 1e-9)

	moved := Vec3{}.MoveTowards(Vec3{X: 10}, 2)
	assert.InDelta(t, 2.0, moved.X, 1e-9)
	assert.Equal(t, Vec3{X: 10}, Vec3{X: 9}.MoveTowards(Vec3{X: 10}, 2))
}
