// Package debugdraw rasterizes a physics world into an image for inspection
// and golden tests.
package debugdraw

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/colornames"
	"golang.org/x/image/vector"

	"github.com/milk9111/physbridge/physics"
)

const (
	lineWidth    = 1.0
	circleSteps  = 24
	defaultScale = 1.0
)

// Drawer implements physics.Drawer over an *image.RGBA. World coordinates are
// y-up; the view centre maps to the middle of the image.
type Drawer struct {
	img    *image.RGBA
	ras    *vector.Rasterizer
	center physics.Vector
	scale  float64
	flags  uint
}

// New returns a drawer over a width by height image showing every layer.
func New(width, height int) *Drawer {
	d := &Drawer{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		ras:   vector.NewRasterizer(width, height),
		scale: defaultScale,
		flags: physics.DrawShapes | physics.DrawConstraints | physics.DrawCollisionPoints,
	}
	d.ras.DrawOp = draw.Over
	return d
}

// Image returns the target image.
func (d *Drawer) Image() *image.RGBA {
	return d.img
}

// SetView sets the world point drawn at the image centre and the pixels per
// world unit.
func (d *Drawer) SetView(center physics.Vector, scale float64) {
	if scale <= 0 {
		scale = defaultScale
	}
	d.center = center
	d.scale = scale
}

// SetFlags selects what World.DebugDraw renders.
func (d *Drawer) SetFlags(flags uint) {
	d.flags = flags
}

// Clear fills the image with c.
func (d *Drawer) Clear(c color.Color) {
	draw.Draw(d.img, d.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (d *Drawer) toScreen(v physics.Vector) (float32, float32) {
	b := d.img.Bounds()
	x := float64(b.Dx())/2 + (v.X-d.center.X)*d.scale
	y := float64(b.Dy())/2 - (v.Y-d.center.Y)*d.scale
	return float32(x), float32(y)
}

func (d *Drawer) fill(pts [][2]float32, c color.NRGBA) {
	if len(pts) < 3 || c.A == 0 {
		return
	}
	b := d.img.Bounds()
	d.ras.Reset(b.Dx(), b.Dy())
	d.ras.DrawOp = draw.Over
	d.ras.MoveTo(pts[0][0], pts[0][1])
	for _, p := range pts[1:] {
		d.ras.LineTo(p[0], p[1])
	}
	d.ras.ClosePath()
	d.ras.Draw(d.img, b, image.NewUniform(c), image.Point{})
}

// line strokes a segment as a quad of the given pixel width.
func (d *Drawer) line(a, b physics.Vector, width float32, c color.NRGBA) {
	ax, ay := d.toScreen(a)
	bx, by := d.toScreen(b)
	dx, dy := bx-ax, by-ay
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		dx, dy, length = 1, 0, 1
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	d.fill([][2]float32{
		{ax + nx, ay + ny},
		{bx + nx, by + ny},
		{bx - nx, by - ny},
		{ax - nx, ay - ny},
	}, c)
}

func (d *Drawer) circlePoints(pos physics.Vector, radius float64) [][2]float32 {
	pts := make([][2]float32, 0, circleSteps)
	for i := 0; i < circleSteps; i++ {
		th := float64(i) * (2 * math.Pi / circleSteps)
		pts = append(pts, [2]float32{})
		pts[i][0], pts[i][1] = d.toScreen(physics.Vector{X: pos.X + math.Cos(th)*radius, Y: pos.Y + math.Sin(th)*radius})
	}
	return pts
}

func (d *Drawer) outline(pts [][2]float32, c color.NRGBA) {
	for i := range pts {
		j := (i + 1) % len(pts)
		d.strokeScreen(pts[i], pts[j], c)
	}
}

func (d *Drawer) strokeScreen(a, b [2]float32, c color.NRGBA) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*lineWidth/2, dx/length*lineWidth/2
	d.fill([][2]float32{
		{a[0] + nx, a[1] + ny},
		{b[0] + nx, b[1] + ny},
		{b[0] - nx, b[1] - ny},
		{a[0] - nx, a[1] - ny},
	}, c)
}

func (d *Drawer) DrawCircle(pos physics.Vector, angle, radius float64, outline, fill physics.Color) {
	pts := d.circlePoints(pos, radius)
	d.fill(pts, fcolorToNRGBA(fill))
	d.outline(pts, fcolorToNRGBA(outline))
	// angle indicator
	tip := physics.Vector{X: pos.X + math.Cos(angle)*radius, Y: pos.Y + math.Sin(angle)*radius}
	d.line(pos, tip, lineWidth, fcolorToNRGBA(outline))
}

func (d *Drawer) DrawSegment(a, b physics.Vector, fill physics.Color) {
	d.line(a, b, lineWidth, fcolorToNRGBA(fill))
}

func (d *Drawer) DrawFatSegment(a, b physics.Vector, radius float64, outline, fill physics.Color) {
	width := float32(2 * radius * d.scale)
	if width < lineWidth {
		width = lineWidth
	}
	d.line(a, b, width, fcolorToNRGBA(fill))
	if radius > 0 {
		d.DrawCircle(a, 0, radius, outline, fill)
		d.DrawCircle(b, 0, radius, outline, fill)
	}
}

func (d *Drawer) DrawPolygon(verts []physics.Vector, radius float64, outline, fill physics.Color) {
	if len(verts) == 0 {
		return
	}
	pts := make([][2]float32, len(verts))
	for i, v := range verts {
		pts[i][0], pts[i][1] = d.toScreen(v)
	}
	d.fill(pts, fcolorToNRGBA(fill))
	d.outline(pts, fcolorToNRGBA(outline))
	if radius > 0 {
		for _, v := range verts {
			d.DrawCircle(v, 0, radius, outline, fill)
		}
	}
}

func (d *Drawer) DrawDot(size float64, pos physics.Vector, fill physics.Color) {
	x, y := d.toScreen(pos)
	h := float32(size / 2)
	d.fill([][2]float32{{x - h, y - h}, {x + h, y - h}, {x + h, y + h}, {x - h, y + h}}, fcolorToNRGBA(fill))
}

func (d *Drawer) Flags() uint {
	return d.flags
}

func (d *Drawer) OutlineColor() physics.Color {
	return rgbaToFColor(colornames.Lime)
}

// ShapeColor picks the fill by shape state: sensors, static and sleeping
// bodies each get their own colour.
func (d *Drawer) ShapeColor(s *physics.Shape) physics.Color {
	switch {
	case s == nil:
		return rgbaToFColor(colornames.White)
	case s.Sensor():
		return rgbaToFColor(colornames.Gold)
	case s.Body().Type() == physics.Static:
		return rgbaToFColor(colornames.Lightskyblue)
	case s.Body().Sleeping():
		return rgbaToFColor(colornames.Slategray)
	}
	return rgbaToFColor(colornames.Orchid)
}

func (d *Drawer) ConstraintColor() physics.Color {
	return rgbaToFColor(colornames.Silver)
}

func (d *Drawer) CollisionPointColor() physics.Color {
	return rgbaToFColor(colornames.Red)
}

func fcolorToNRGBA(c physics.Color) color.NRGBA {
	clamp := func(v float32) uint8 {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return uint8(v * 255)
	}
	return color.NRGBA{R: clamp(c.R), G: clamp(c.G), B: clamp(c.B), A: clamp(c.A)}
}

func rgbaToFColor(c color.RGBA) physics.Color {
	return physics.Color{R: float32(c.R) / 255, G: float32(c.G) / 255, B: float32(c.B) / 255, A: float32(c.A) / 255}
}
