package debugdraw

import (
	"image/color"
	"testing"

	"golang.org/x/image/colornames"

	"github.com/milk9111/physbridge/physics"
)

func TestDrawWorld(t *testing.T) {
	w := physics.NewWorld()
	defer w.Close()

	ground := physics.NewSegment(w.StaticBody(), physics.Vector{X: -80, Y: -50}, physics.Vector{X: 80, Y: -50}, 2)
	w.Add(ground)
	body := physics.NewBody(1, physics.MomentForBox(1, 20, 20))
	body.SetPosition(physics.Vector{X: 30, Y: 30})
	w.Add(body)
	w.Add(physics.NewBox(body, 20, 20, 0))

	d := New(200, 200)
	d.Clear(colornames.Black)
	w.DebugDraw(d)

	img := d.Image()
	black := color.RGBAModel.Convert(colornames.Black)
	if img.At(130, 70) == black {
		t.Fatalf("box centre should be painted")
	}
	if img.At(5, 5) != black {
		t.Fatalf("empty corner should stay background, got %v", img.At(5, 5))
	}
	if img.At(100, 150) == black {
		t.Fatalf("ground segment should be painted")
	}
}

func TestView(t *testing.T) {
	d := New(100, 50)
	if x, y := d.toScreen(physics.Vector{}); x != 50 || y != 25 {
		t.Fatalf("origin should map to the centre, got %v,%v", x, y)
	}
	d.SetView(physics.Vector{X: 10, Y: 10}, 2)
	if x, y := d.toScreen(physics.Vector{X: 10, Y: 15}); x != 50 || y != 15 {
		t.Fatalf("y-up view transform: got %v,%v", x, y)
	}
	d.SetView(physics.Vector{}, 0)
	if d.scale != defaultScale {
		t.Fatalf("non-positive scale should reset to default")
	}
	if d.Flags()&physics.DrawShapes == 0 {
		t.Fatalf("shapes should be drawn by default")
	}
}

func TestDrawFlags(t *testing.T) {
	w := physics.NewWorld()
	defer w.Close()
	ground := physics.NewSegment(w.StaticBody(), physics.Vector{X: -80, Y: -50}, physics.Vector{X: 80, Y: -50}, 2)
	w.Add(ground)

	d := New(200, 200)
	d.Clear(colornames.Black)
	d.SetFlags(physics.DrawConstraints)
	w.DebugDraw(d)

	black := color.RGBAModel.Convert(colornames.Black)
	if d.Image().At(100, 150) != black {
		t.Fatalf("shapes are off, ground should not be painted")
	}
}
