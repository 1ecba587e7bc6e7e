package physics

import (
	"fmt"

	"github.com/jakecoffman/cp"
)

// ShapeKind identifies the geometry a Shape was built with.
type ShapeKind int

const (
	CircleShape ShapeKind = iota + 1
	SegmentShape
	PolyShape
)

func (k ShapeKind) String() string {
	switch k {
	case CircleShape:
		return "circle"
	case SegmentShape:
		return "segment"
	case PolyShape:
		return "poly"
	}
	return fmt.Sprintf("ShapeKind(%d)", int(k))
}

// Filter is the engine's collision filter: shapes in the same non-zero group
// never collide, and two shapes collide only if each one's categories match
// the other's mask.
type Filter struct {
	Group      uint
	Categories uint
	Mask       uint
}

// FilterAll matches every shape.
var FilterAll = Filter{Categories: ^uint(0), Mask: ^uint(0)}

// LayerFilter builds a filter whose categories and mask are both layers.
func LayerFilter(layers, group uint) Filter {
	return Filter{Group: group, Categories: layers, Mask: layers}
}

func (f Filter) native() cp.ShapeFilter {
	return cp.ShapeFilter{Group: f.Group, Categories: f.Categories, Mask: f.Mask}
}

// Shape owns one engine shape handle and shares the Body it is attached to.
type Shape struct {
	entity
	handle *cp.Shape
	kind   ShapeKind
	body   *Body

	collisionType CollisionType
	filter        Filter

	radius float64
	offset Vector
	a, b   Vector
	verts  []Vector
}

func mustAttach(kind string, body *Body) {
	if body == nil {
		panic("physics: new " + kind + ": nil body")
	}
	if body.handle == nil {
		panic("physics: new " + kind + ": body freed")
	}
}

// NewCircle attaches a circle of the given radius to body, centred at offset
// in body coordinates.
func NewCircle(body *Body, radius float64, offset Vector) *Shape {
	mustAttach("circle", body)
	return &Shape{
		entity: entity{owned: true},
		handle: cp.NewCircle(body.handle, radius, offset),
		kind:   CircleShape,
		body:   body,
		filter: FilterAll,
		radius: radius,
		offset: offset,
	}
}

// NewSegment attaches a line segment with rounded ends of the given radius.
func NewSegment(body *Body, a, b Vector, radius float64) *Shape {
	mustAttach("segment", body)
	return &Shape{
		entity: entity{owned: true},
		handle: cp.NewSegment(body.handle, a, b, radius),
		kind:   SegmentShape,
		body:   body,
		filter: FilterAll,
		radius: radius,
		a:      a,
		b:      b,
	}
}

// NewBox attaches an axis-aligned box centred on the body.
func NewBox(body *Body, width, height, radius float64) *Shape {
	mustAttach("box", body)
	hw, hh := width/2, height/2
	return &Shape{
		entity: entity{owned: true},
		handle: cp.NewBox(body.handle, width, height, radius),
		kind:   PolyShape,
		body:   body,
		filter: FilterAll,
		radius: radius,
		verts:  []Vector{{X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}, {X: -hw, Y: -hh}},
	}
}

// NewPoly attaches a convex polygon. Vertices are in body coordinates and must
// be wound counter-clockwise.
func NewPoly(body *Body, verts []Vector, radius float64) *Shape {
	mustAttach("poly", body)
	owned := append([]Vector(nil), verts...)
	return &Shape{
		entity: entity{owned: true},
		handle: cp.NewPolyShapeRaw(body.handle, len(owned), owned, radius),
		kind:   PolyShape,
		body:   body,
		filter: FilterAll,
		radius: radius,
		verts:  owned,
	}
}

func (s *Shape) String() string {
	if s == nil {
		return "shape(nil)"
	}
	if s.handle == nil {
		return fmt.Sprintf("%s shape %p (freed)", s.kind, s)
	}
	return fmt.Sprintf("%s shape %p", s.kind, s)
}

// Kind reports the geometry the shape was built with.
func (s *Shape) Kind() ShapeKind {
	if s == nil {
		return 0
	}
	return s.kind
}

// Body returns the body wrapper the shape is attached to.
func (s *Shape) Body() *Body {
	if s == nil {
		return nil
	}
	return s.body
}

// SetBody moves a shape that is not in a world to another body. The engine
// cannot rebind a shape, so the handle is rebuilt from the cached geometry
// and the material, filter and collision type are carried over.
func (s *Shape) SetBody(b *Body) error {
	if s == nil {
		return ErrNilEntity
	}
	if b == nil {
		return ErrNilBody
	}
	if s.handle == nil || b.handle == nil {
		return ErrFreed
	}
	if s.world != nil {
		return fmt.Errorf("set body of %s: %w", s, ErrInWorld)
	}
	old := s.handle
	var h *cp.Shape
	switch s.kind {
	case CircleShape:
		h = cp.NewCircle(b.handle, s.radius, s.offset)
	case SegmentShape:
		h = cp.NewSegment(b.handle, s.a, s.b, s.radius)
	default:
		h = cp.NewPolyShapeRaw(b.handle, len(s.verts), s.verts, s.radius)
	}
	h.SetSensor(old.Sensor())
	h.SetFriction(old.Friction())
	h.SetElasticity(old.Elasticity())
	h.SetFilter(s.filter.native())
	h.SetCollisionType(s.collisionType)
	s.handle = h
	s.body = b
	return nil
}

// Free releases the handle. It fails with ErrInWorld while the shape is added.
func (s *Shape) Free() error {
	if s == nil {
		return nil
	}
	ok, err := s.release()
	if err != nil {
		return fmt.Errorf("free %s: %w", s, err)
	}
	if ok {
		s.handle = nil
	}
	return nil
}

// CollisionType selects the collision handler pair the shape takes part in.
func (s *Shape) CollisionType() CollisionType {
	if s == nil {
		return 0
	}
	return s.collisionType
}

// SetCollisionType changes the shape's collision type.
func (s *Shape) SetCollisionType(t CollisionType) {
	if s == nil || s.handle == nil {
		return
	}
	s.handle.SetCollisionType(t)
	s.collisionType = t
}

// Filter returns the shape's collision filter.
func (s *Shape) Filter() Filter {
	if s == nil {
		return Filter{}
	}
	return s.filter
}

// SetFilter changes the shape's collision filter.
func (s *Shape) SetFilter(f Filter) {
	if s == nil || s.handle == nil {
		return
	}
	s.handle.SetFilter(f.native())
	s.filter = f
}

// Sensor reports whether the shape only detects contacts without
// responding to them.
func (s *Shape) Sensor() bool {
	if s == nil || s.handle == nil {
		return false
	}
	return s.handle.Sensor()
}

// SetSensor turns collision response off or back on.
func (s *Shape) SetSensor(sensor bool) {
	if s == nil || s.handle == nil {
		return
	}
	s.handle.SetSensor(sensor)
}

// Friction returns the friction coefficient.
func (s *Shape) Friction() float64 {
	if s == nil || s.handle == nil {
		return 0
	}
	return s.handle.Friction()
}

// SetFriction sets the friction coefficient.
func (s *Shape) SetFriction(u float64) {
	if s == nil || s.handle == nil {
		return
	}
	s.handle.SetFriction(u)
}

// Elasticity returns the restitution coefficient.
func (s *Shape) Elasticity() float64 {
	if s == nil || s.handle == nil {
		return 0
	}
	return s.handle.Elasticity()
}

// SetElasticity sets the restitution coefficient.
func (s *Shape) SetElasticity(e float64) {
	if s == nil || s.handle == nil {
		return
	}
	s.handle.SetElasticity(e)
}

// Radius is the circle radius, or the rounding radius of segments and polys.
func (s *Shape) Radius() float64 {
	if s == nil {
		return 0
	}
	return s.radius
}

// Offset is the centre of a circle in body coordinates.
func (s *Shape) Offset() Vector {
	if s == nil {
		return Vector{}
	}
	return s.offset
}

// Endpoints returns the segment endpoints in body coordinates.
func (s *Shape) Endpoints() (Vector, Vector) {
	if s == nil {
		return Vector{}, Vector{}
	}
	return s.a, s.b
}

// Verts returns a copy of the polygon vertices in body coordinates.
func (s *Shape) Verts() []Vector {
	if s == nil {
		return nil
	}
	return append([]Vector(nil), s.verts...)
}
