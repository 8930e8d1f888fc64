package world

// Vertical extent of aggro capsules. Tall enough to reach flying units.
const (
	CapsuleFloor   = -1.0
	CapsuleCeiling = 20.0
)

// SpatialQuery answers proximity questions. Results only contain entities
// whose layer is part of mask, in a stable order.
type SpatialQuery interface {
	OverlapCapsule(bottom, top Vec3, radius float64, mask LayerMask) []Handle
	OverlapSphere(center Vec3, radius float64, mask LayerMask) []Handle
}

// Lookup resolves handles to entities.
type Lookup interface {
	Get(h Handle) (*Entity, bool)
}

// World is the view of a match that combat code needs.
type World interface {
	Lookup
	SpatialQuery
}

// CapsulePoints returns the end points of a vertical capsule through pos
// spanning every height an entity can occupy.
func CapsulePoints(pos Vec3) (bottom, top Vec3) {
	bottom = Vec3{X: pos.X, Y: CapsuleFloor, Z: pos.Z}
	top = Vec3{X: pos.X, Y: CapsuleCeiling, Z: pos.Z}
	return bottom, top
}

// OverlapCapsule returns entities whose collider touches the capsule.
// Brute force over the registry.
func (r *Registry) OverlapCapsule(bottom, top Vec3, radius float64, mask LayerMask) []Handle {
	var hits []Handle
	r.Each(func(e *Entity) {
		if !mask.Contains(e.Layer) {
			return
		}
		if distanceToSegment(e.Position, bottom, top) <= radius+e.Radius {
			hits = append(hits, e.Handle)
		}
	})
	return hits
}

// OverlapSphere returns entities whose collider touches the sphere.
func (r *Registry) OverlapSphere(center Vec3, radius float64, mask LayerMask) []Handle {
	var hits []Handle
	r.Each(func(e *Entity) {
		if !mask.Contains(e.Layer) {
			return
		}
		if e.Position.Distance(center) <= radius+e.Radius {
			hits = append(hits, e.Handle)
		}
	})
	return hits
}
