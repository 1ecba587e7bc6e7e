package physics

import "github.com/jakecoffman/cp"

// ContactPoint is one contact of an arbiter, in world coordinates.
type ContactPoint struct {
	PointA, PointB Vector
	Distance       float64
}

// Arbiter is a view of the engine's per-pair collision state. It is valid
// only for the duration of the callback it was passed to; afterwards every
// accessor returns zero values.
type Arbiter struct {
	handle  *cp.Arbiter
	world   *World
	swapped bool
	removal bool
}

// World returns the world that owns the colliding shapes.
func (a *Arbiter) World() *World {
	if a == nil {
		return nil
	}
	return a.world
}

// Shapes returns the colliding shapes in the order the handler was
// registered with.
func (a *Arbiter) Shapes() (*Shape, *Shape) {
	if a == nil || a.handle == nil {
		return nil, nil
	}
	ha, hb := a.handle.Shapes()
	sa, sb := a.world.mustShape(ha), a.world.mustShape(hb)
	if a.swapped {
		return sb, sa
	}
	return sa, sb
}

// Bodies returns the bodies of Shapes. A shape on the static body yields the
// world's static body view.
func (a *Arbiter) Bodies() (*Body, *Body) {
	sa, sb := a.Shapes()
	if sa == nil || sb == nil {
		return nil, nil
	}
	return sa.body, sb.body
}

// Normal is the collision normal pointing from the first shape to the
// second.
func (a *Arbiter) Normal() Vector {
	if a == nil || a.handle == nil {
		return Vector{}
	}
	n := a.handle.Normal()
	if a.swapped {
		return n.Neg()
	}
	return n
}

// IsFirstContact reports whether this is the first step the shapes touch.
func (a *Arbiter) IsFirstContact() bool {
	return a != nil && a.handle != nil && a.handle.IsFirstContact()
}

// IsRemoval reports whether the separate callback is running because a
// shape was removed from the world rather than moved apart.
func (a *Arbiter) IsRemoval() bool {
	return a != nil && a.handle != nil && a.removal
}

// TotalImpulse is only meaningful from PostSolve.
func (a *Arbiter) TotalImpulse() Vector {
	if a == nil || a.handle == nil {
		return Vector{}
	}
	return a.handle.TotalImpulse()
}

// Count is the number of contact points.
func (a *Arbiter) Count() int {
	if a == nil || a.handle == nil {
		return 0
	}
	return a.handle.Count()
}

// ContactPoints returns the contact points, with PointA on the first shape.
func (a *Arbiter) ContactPoints() []ContactPoint {
	if a == nil || a.handle == nil {
		return nil
	}
	set := a.handle.ContactPointSet()
	points := make([]ContactPoint, 0, set.Count)
	for i := 0; i < set.Count; i++ {
		p := set.Points[i]
		pt := ContactPoint{PointA: p.PointA, PointB: p.PointB, Distance: p.Distance}
		if a.swapped {
			pt.PointA, pt.PointB = pt.PointB, pt.PointA
		}
		points = append(points, pt)
	}
	return points
}

// Ignore makes the engine skip the pair until the shapes separate. Returning
// false from Begin has the same effect.
func (a *Arbiter) Ignore() {
	if a == nil || a.handle == nil {
		return
	}
	a.handle.Ignore()
}
