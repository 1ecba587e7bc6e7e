package physics

import (
	"errors"
	"math"
	"testing"
)

func TestSegmentQueryEmptyWorld(t *testing.T) {
	w := newTestWorld(t)
	calls := 0
	w.SegmentQuery(Vector{X: -100}, Vector{X: 100}, 5, FilterAll, func(*Shape, float64, Vector) { calls++ })
	if calls != 0 {
		t.Fatalf("expected no callbacks, got %d", calls)
	}
	if s, info := w.SegmentQueryFirst(Vector{X: -100}, Vector{X: 100}, 5, FilterAll); s != nil || info != (SegmentInfo{}) {
		t.Fatalf("expected empty result, got %v %+v", s, info)
	}
}

func TestSegmentQueries(t *testing.T) {
	w := newTestWorld(t)
	ground := newGround(t, w)
	_, ball := newBall(t, w, Vector{Y: 5})
	ground.SetFilter(LayerFilter(1, 0))
	ball.SetFilter(LayerFilter(1, 0))

	cases := []struct {
		name   string
		a, b   Vector
		filter Filter
		first  *Shape
		hits   int
	}{
		{"through_ball_and_ground", Vector{Y: 10}, Vector{Y: -1}, FilterAll, ball, 2},
		{"ground_only", Vector{X: 5, Y: 1}, Vector{X: 5, Y: -1}, FilterAll, ground, 1},
		{"miss", Vector{X: 50, Y: 1}, Vector{X: 60, Y: 1}, FilterAll, nil, 0},
		{"filtered_out", Vector{Y: 10}, Vector{Y: -1}, Filter{Categories: 4, Mask: 4}, nil, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			seen := map[*Shape]bool{}
			w.SegmentQuery(c.a, c.b, 0, c.filter, func(s *Shape, alpha float64, _ Vector) {
				if alpha < 0 || alpha > 1 {
					t.Errorf("alpha out of range: %v", alpha)
				}
				seen[s] = true
			})
			if len(seen) != c.hits {
				t.Fatalf("expected %d hits, got %d", c.hits, len(seen))
			}

			s, info := w.SegmentQueryFirst(c.a, c.b, 0, c.filter)
			if s != c.first {
				t.Fatalf("first hit: expected %v, got %v", c.first, s)
			}
			if s == ball && math.Abs(info.Point.Y-6) > 1e-6 {
				t.Fatalf("ball hit point: got %v", info.Point)
			}
			if s == ball && info.Normal.Y <= 0 {
				t.Fatalf("ball hit normal should face the ray, got %v", info.Normal)
			}
		})
	}
}

func TestPointQueries(t *testing.T) {
	w := newTestWorld(t)
	ground := newGround(t, w)
	_, ball := newBall(t, w, Vector{Y: 5})

	s, info := w.PointQueryNearest(Vector{Y: 5}, DefaultPointQueryDistance, FilterAll)
	if s != ball {
		t.Fatalf("expected ball, got %v", s)
	}
	if info.Distance >= 0 {
		t.Fatalf("point inside the ball should have negative distance, got %v", info.Distance)
	}

	s, _ = w.PointQueryNearest(Vector{X: 8, Y: 0.5}, 1, FilterAll)
	if s != ground {
		t.Fatalf("expected ground, got %v", s)
	}
	if s, info := w.PointQueryNearest(Vector{X: 500}, 1, FilterAll); s != nil || info != (PointInfo{}) {
		t.Fatalf("expected no result, got %v %+v", s, info)
	}

	var found []*Shape
	w.PointQuery(Vector{Y: 2.5}, 3, FilterAll, func(s *Shape, _ PointInfo) { found = append(found, s) })
	if len(found) != 2 {
		t.Fatalf("expected both shapes within range, got %d", len(found))
	}
}

func TestBBQuery(t *testing.T) {
	w := newTestWorld(t)
	newGround(t, w)
	_, ball := newBall(t, w, Vector{Y: 5})

	var found []*Shape
	w.BBQuery(BB{L: -2, B: 3, R: 2, T: 7}, FilterAll, func(s *Shape) { found = append(found, s) })
	if len(found) != 1 || found[0] != ball {
		t.Fatalf("expected only the ball, got %v", found)
	}
}

func TestQueryCallbackDeferredRemove(t *testing.T) {
	w := newTestWorld(t)
	newGround(t, w)
	_, ball := newBall(t, w, Vector{Y: 5})

	var lockedErr error
	w.BBQuery(BB{L: -2, B: 3, R: 2, T: 7}, FilterAll, func(s *Shape) {
		lockedErr = w.Remove(s)
		if err := w.FreeLater(s); err != nil {
			t.Errorf("free later: %v", err)
		}
	})
	if !errors.Is(lockedErr, ErrWorldLocked) {
		t.Fatalf("expected ErrWorldLocked inside a query, got %v", lockedErr)
	}
	w.Flush()
	if w.Contains(ball) || !ball.Freed() {
		t.Fatalf("ball should be removed and freed after the query")
	}
}
