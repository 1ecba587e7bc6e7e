package physics

import (
	"fmt"

	"github.com/jakecoffman/cp"
)

// BodyType mirrors the engine's body simulation modes.
type BodyType int

const (
	Dynamic BodyType = iota
	Kinematic
	Static
)

func (t BodyType) String() string {
	switch t {
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	case Static:
		return "static"
	}
	return fmt.Sprintf("BodyType(%d)", int(t))
}

// Body owns one engine body handle.
type Body struct {
	entity
	handle *cp.Body
}

// NewBody creates a dynamic body.
func NewBody(mass, moment float64) *Body {
	return &Body{entity: entity{owned: true}, handle: cp.NewBody(mass, moment)}
}

// NewKinematicBody creates a body that is moved by velocity only.
func NewKinematicBody() *Body {
	return &Body{entity: entity{owned: true}, handle: cp.NewKinematicBody()}
}

// NewStaticBody creates an extra static body. Unlike the world's own static
// body it must be added to a world like any other body.
func NewStaticBody() *Body {
	return &Body{entity: entity{owned: true}, handle: cp.NewStaticBody()}
}

// viewBody wraps an engine-owned handle without taking ownership.
func viewBody(h *cp.Body) *Body {
	return &Body{handle: h}
}

func (b *Body) String() string {
	if b == nil {
		return "body(nil)"
	}
	if b.handle == nil {
		return fmt.Sprintf("body %p (freed)", b)
	}
	return fmt.Sprintf("%s body %p", b.Type(), b)
}

// Free releases the handle. It fails with ErrInWorld while the body is added
// and is a no-op for views and already freed bodies.
func (b *Body) Free() error {
	if b == nil {
		return nil
	}
	ok, err := b.release()
	if err != nil {
		return fmt.Errorf("free %s: %w", b, err)
	}
	if ok {
		b.handle = nil
	}
	return nil
}

// Type reports how the engine simulates the body.
func (b *Body) Type() BodyType {
	if b == nil || b.handle == nil {
		return Dynamic
	}
	switch b.handle.GetType() {
	case cp.BODY_KINEMATIC:
		return Kinematic
	case cp.BODY_STATIC:
		return Static
	}
	return Dynamic
}

// Position is the body origin in world coordinates.
func (b *Body) Position() Vector {
	if b == nil || b.handle == nil {
		return Vector{}
	}
	return b.handle.Position()
}

// SetPosition moves the body. Shapes on static bodies need a reindex.
func (b *Body) SetPosition(p Vector) {
	if b == nil || b.handle == nil {
		return
	}
	b.handle.SetPosition(p)
}

// Velocity is the linear velocity.
func (b *Body) Velocity() Vector {
	if b == nil || b.handle == nil {
		return Vector{}
	}
	return b.handle.Velocity()
}

// SetVelocity sets the linear velocity.
func (b *Body) SetVelocity(v Vector) {
	if b == nil || b.handle == nil {
		return
	}
	b.handle.SetVelocityVector(v)
}

// Angle is the rotation in radians.
func (b *Body) Angle() float64 {
	if b == nil || b.handle == nil {
		return 0
	}
	return b.handle.Angle()
}

// SetAngle sets the rotation in radians.
func (b *Body) SetAngle(a float64) {
	if b == nil || b.handle == nil {
		return
	}
	b.handle.SetAngle(a)
}

// SetAngularVelocity sets the rotation rate in radians per second.
func (b *Body) SetAngularVelocity(w float64) {
	if b == nil || b.handle == nil {
		return
	}
	b.handle.SetAngularVelocity(w)
}

// Sleeping reports whether the engine has put the body to sleep.
func (b *Body) Sleeping() bool {
	return b != nil && b.handle != nil && b.handle.IsSleeping()
}

// Mass returns the body mass.
func (b *Body) Mass() float64 {
	if b == nil || b.handle == nil {
		return 0
	}
	return b.handle.Mass()
}

// ApplyImpulseAtWorldPoint applies an impulse at a point in world coordinates.
func (b *Body) ApplyImpulseAtWorldPoint(impulse, point Vector) {
	if b == nil || b.handle == nil {
		return
	}
	b.handle.ApplyImpulseAtWorldPoint(impulse, point)
}

// ApplyForceAtWorldPoint accumulates a force for the next step.
func (b *Body) ApplyForceAtWorldPoint(force, point Vector) {
	if b == nil || b.handle == nil {
		return
	}
	b.handle.ApplyForceAtWorldPoint(force, point)
}

// LocalToWorld converts a point from body to world coordinates.
func (b *Body) LocalToWorld(p Vector) Vector {
	if b == nil || b.handle == nil {
		return p
	}
	return b.handle.LocalToWorld(p)
}

// WorldToLocal converts a point from world to body coordinates.
func (b *Body) WorldToLocal(p Vector) Vector {
	if b == nil || b.handle == nil {
		return p
	}
	return b.handle.WorldToLocal(p)
}

// MomentForCircle returns the moment of inertia of a hollow circle; pass
// inner radius 0 for a solid one.
func MomentForCircle(mass, innerRadius, outerRadius float64, offset Vector) float64 {
	return cp.MomentForCircle(mass, innerRadius, outerRadius, offset)
}

// MomentForBox returns the moment of inertia of a solid box.
func MomentForBox(mass, width, height float64) float64 {
	return cp.MomentForBox(mass, width, height)
}

// MomentForSegment returns the moment of inertia of a rounded segment.
func MomentForSegment(mass float64, a, b Vector, radius float64) float64 {
	return cp.MomentForSegment(mass, a, b, radius)
}

// MomentForPoly returns the moment of inertia of a convex polygon.
func MomentForPoly(mass float64, verts []Vector, offset Vector, radius float64) float64 {
	return cp.MomentForPoly(mass, len(verts), verts, offset, radius)
}
