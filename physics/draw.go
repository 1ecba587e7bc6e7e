package physics

import "github.com/jakecoffman/cp"

// Color is an RGBA colour with components in [0, 1].
type Color = cp.FColor

// Draw flags select what DebugDraw renders.
const (
	DrawShapes          uint = cp.DRAW_SHAPES
	DrawConstraints     uint = cp.DRAW_CONSTRAINTS
	DrawCollisionPoints uint = cp.DRAW_COLLISION_POINTS
)

// Drawer receives the primitives of a debug rendering. Shapes are reported
// as wrappers; engine handles never reach it.
type Drawer interface {
	DrawCircle(pos Vector, angle, radius float64, outline, fill Color)
	DrawSegment(a, b Vector, fill Color)
	DrawFatSegment(a, b Vector, radius float64, outline, fill Color)
	DrawPolygon(verts []Vector, radius float64, outline, fill Color)
	DrawDot(size float64, pos Vector, fill Color)

	Flags() uint
	OutlineColor() Color
	ShapeColor(s *Shape) Color
	ConstraintColor() Color
	CollisionPointColor() Color
}

// DebugDraw renders every shape, constraint and contact through d. The world
// is locked while d runs.
func (w *World) DebugDraw(d Drawer) {
	if w == nil || w.closed || d == nil {
		return
	}
	defer w.enter()()
	cp.DrawSpace(w.space, &drawAdapter{world: w, d: d, flags: d.Flags()})
}

// drawAdapter turns engine draw calls into Drawer calls. The engine asks for
// a colour before drawing each shape, constraint or contact, which tells the
// adapter which flag the following primitives belong to.
type drawAdapter struct {
	world   *World
	d       Drawer
	flags   uint
	current uint
}

func (a *drawAdapter) on() bool {
	return a.flags&a.current != 0
}

func (a *drawAdapter) DrawCircle(pos Vector, angle, radius float64, outline, fill cp.FColor, _ interface{}) {
	if a.on() {
		a.d.DrawCircle(pos, angle, radius, outline, fill)
	}
}

func (a *drawAdapter) DrawSegment(p, q Vector, fill cp.FColor, _ interface{}) {
	if a.on() {
		a.d.DrawSegment(p, q, fill)
	}
}

func (a *drawAdapter) DrawFatSegment(p, q Vector, radius float64, outline, fill cp.FColor, _ interface{}) {
	if a.on() {
		a.d.DrawFatSegment(p, q, radius, outline, fill)
	}
}

func (a *drawAdapter) DrawPolygon(count int, verts []Vector, radius float64, outline, fill cp.FColor, _ interface{}) {
	if a.on() {
		a.d.DrawPolygon(verts[:count], radius, outline, fill)
	}
}

func (a *drawAdapter) DrawDot(size float64, pos Vector, fill cp.FColor, _ interface{}) {
	if a.on() {
		a.d.DrawDot(size, pos, fill)
	}
}

func (a *drawAdapter) Flags() uint {
	return a.flags
}

func (a *drawAdapter) OutlineColor() cp.FColor {
	return a.d.OutlineColor()
}

func (a *drawAdapter) ShapeColor(h *cp.Shape, _ interface{}) cp.FColor {
	a.current = DrawShapes
	return a.d.ShapeColor(a.world.mustShape(h))
}

func (a *drawAdapter) ConstraintColor() cp.FColor {
	a.current = DrawConstraints
	return a.d.ConstraintColor()
}

func (a *drawAdapter) CollisionPointColor() cp.FColor {
	a.current = DrawCollisionPoints
	return a.d.CollisionPointColor()
}

func (a *drawAdapter) Data() interface{} {
	return nil
}
