package world

import (
	"fmt"
	"math"
)

// Vec3 is a position or direction in world space. Y is the vertical axis.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Length returns the euclidean length of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns v scaled to unit length. The zero vector stays zero.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Horizontal drops the vertical component.
func (v Vec3) Horizontal() Vec3 {
	return Vec3{X: v.X, Z: v.Z}
}

// Distance returns the euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	return v.Sub(o).Length()
}

// HorizontalDistance returns the distance between v and o ignoring Y.
func (v Vec3) HorizontalDistance(o Vec3) float64 {
	return v.Sub(o).Horizontal().Length()
}

// MoveTowards moves v toward target by at most maxDelta.
func (v Vec3) MoveTowards(target Vec3, maxDelta float64) Vec3 {
	delta := target.Sub(v)
	dist := delta.Length()
	if dist <= maxDelta || dist == 0 {
		return target
	}
	return v.Add(delta.Scale(maxDelta / dist))
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// distanceToSegment returns the distance from p to the segment [a, b].
func distanceToSegment(p, a, b Vec3) float64 {
	ab := b.Sub(a)
	denom := ab.Dot(ab)
	if denom == 0 {
		return p.Distance(a)
	}
	t := p.Sub(a).Dot(ab) / denom
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Distance(a.Add(ab.Scale(t)))
}
