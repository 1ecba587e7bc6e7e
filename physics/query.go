package physics

import (
	"math"

	"github.com/jakecoffman/cp"
)

// DefaultPointQueryDistance bounds PointQueryNearest callers that have no
// better limit.
const DefaultPointQueryDistance = 100.0

// SegmentInfo describes where a segment query hit a shape.
type SegmentInfo struct {
	Point  Vector
	Normal Vector
	// Alpha is the fraction along the segment, in [0, 1].
	Alpha float64
}

// PointInfo describes the nearest point on a shape.
type PointInfo struct {
	Point    Vector
	Distance float64
	Gradient Vector
}

// SegmentQuery calls fn for every shape that intersects the segment from a
// to b swept by radius. Order is up to the engine. fn runs with the world
// locked; use the deferred API to change it.
func (w *World) SegmentQuery(a, b Vector, radius float64, filter Filter, fn func(s *Shape, alpha float64, normal Vector)) {
	if w == nil || w.closed || fn == nil {
		return
	}
	w.space.SegmentQuery(a, b, radius, filter.native(), func(h *cp.Shape, _, normal Vector, alpha float64, _ interface{}) {
		defer w.enter()()
		fn(w.mustShape(h), alpha, normal)
	}, nil)
}

// SegmentQueryFirst returns the first shape hit along the segment, or nil and
// a zero SegmentInfo.
func (w *World) SegmentQueryFirst(a, b Vector, radius float64, filter Filter) (*Shape, SegmentInfo) {
	if w == nil || w.closed {
		return nil, SegmentInfo{}
	}
	info := w.space.SegmentQueryFirst(a, b, radius, filter.native())
	if info.Shape == nil {
		return nil, SegmentInfo{}
	}
	return w.mustShape(info.Shape), SegmentInfo{Point: info.Point, Normal: info.Normal, Alpha: info.Alpha}
}

// PointQueryNearest returns the shape closest to p within maxDistance, or
// nil and a zero PointInfo. A negative distance means p is inside the shape.
func (w *World) PointQueryNearest(p Vector, maxDistance float64, filter Filter) (*Shape, PointInfo) {
	if w == nil || w.closed {
		return nil, PointInfo{}
	}
	info := w.space.PointQueryNearest(p, maxDistance, filter.native())
	if info == nil || info.Shape == nil {
		return nil, PointInfo{}
	}
	return w.mustShape(info.Shape), PointInfo{Point: info.Point, Distance: info.Distance, Gradient: info.Gradient}
}

// PointQuery calls fn for every shape within maxDistance of p, sensors
// included. The engine has no such query, so candidates come from a bounding
// box query and are measured one by one.
func (w *World) PointQuery(p Vector, maxDistance float64, filter Filter, fn func(s *Shape, info PointInfo)) {
	if w == nil || w.closed || fn == nil {
		return
	}
	bb := cp.NewBBForCircle(p, math.Max(maxDistance, 0))
	w.space.BBQuery(bb, filter.native(), func(h *cp.Shape, _ interface{}) {
		info := h.PointQuery(p)
		if info.Distance > maxDistance {
			return
		}
		defer w.enter()()
		fn(w.mustShape(h), PointInfo{Point: info.Point, Distance: info.Distance, Gradient: info.Gradient})
	}, nil)
}

// BBQuery calls fn for every shape whose bounding box overlaps bb.
func (w *World) BBQuery(bb BB, filter Filter, fn func(s *Shape)) {
	if w == nil || w.closed || fn == nil {
		return
	}
	w.space.BBQuery(bb, filter.native(), func(h *cp.Shape, _ interface{}) {
		defer w.enter()()
		fn(w.mustShape(h))
	}, nil)
}
