package world

type slot struct {
	generation uint32
	entity     *Entity
}

// Registry owns every entity of a match and hands out generational handles.
// It is not safe for concurrent use; a match drives it from a single goroutine.
type Registry struct {
	slots []slot
	free  []uint32
	count int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		slots: make([]slot, 0, 64),
		free:  make([]uint32, 0, 16),
	}
}

// Spawn stores e and returns its handle. e.Handle is updated as well.
func (r *Registry) Spawn(e *Entity) Handle {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{})
	}

	s := &r.slots[idx]
	s.generation++
	s.entity = e
	r.count++

	h := Handle{index: idx, generation: s.generation}
	e.Handle = h
	return h
}

// Get resolves a handle. Stale and zero handles resolve to nothing.
func (r *Registry) Get(h Handle) (*Entity, bool) {
	if h.IsZero() || int(h.index) >= len(r.slots) {
		return nil, false
	}
	s := r.slots[h.index]
	if s.generation != h.generation || s.entity == nil {
		return nil, false
	}
	return s.entity, true
}

// Exists reports whether h still refers to a spawned entity.
func (r *Registry) Exists(h Handle) bool {
	_, ok := r.Get(h)
	return ok
}

// IsAlive reports whether h refers to a spawned entity with health left.
func (r *Registry) IsAlive(h Handle) bool {
	e, ok := r.Get(h)
	return ok && e.HP > 0
}

// Despawn removes the entity behind h. It returns false for stale handles.
func (r *Registry) Despawn(h Handle) bool {
	if !r.Exists(h) {
		return false
	}
	s := &r.slots[h.index]
	s.entity = nil
	r.free = append(r.free, h.index)
	r.count--
	return true
}

// Len returns the number of spawned entities.
func (r *Registry) Len() int {
	return r.count
}

// Each visits spawned entities in slot order.
func (r *Registry) Each(fn func(*Entity)) {
	for i := range r.slots {
		if e := r.slots[i].entity; e != nil {
			fn(e)
		}
	}
}

// ReapDead despawns every entity whose health reached zero and returns them.
func (r *Registry) ReapDead() []*Entity {
	var dead []*Entity
	for i := range r.slots {
		e := r.slots[i].entity
		if e != nil && e.HP <= 0 {
			dead = append(dead, e)
		}
	}
	for _, e := range dead {
		r.Despawn(e.Handle)
	}
	return dead
}
