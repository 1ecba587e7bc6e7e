package physics

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"
)

// CollisionHandler holds the optional callbacks for one pair of collision
// types. A nil phase keeps the engine's default behaviour for that phase.
//
// Begin and PreSolve decide whether the pair is processed: returning false
// makes the engine ignore it until the shapes separate (Begin) or for the
// current step (PreSolve).
type CollisionHandler struct {
	Begin     func(arb *Arbiter, w *World) bool
	PreSolve  func(arb *Arbiter, w *World) bool
	PostSolve func(arb *Arbiter, w *World)
	Separate  func(arb *Arbiter, w *World)
}

func (h CollisionHandler) empty() bool {
	return h.Begin == nil && h.PreSolve == nil && h.PostSolve == nil && h.Separate == nil
}

// collisionPair is unordered: the engine keeps one handler for (a, b) and
// (b, a).
type collisionPair struct {
	a, b CollisionType
}

func pairOf(a, b CollisionType) collisionPair {
	if b < a {
		a, b = b, a
	}
	return collisionPair{a: a, b: b}
}

// collisionDispatch is the record threaded through the engine's user data.
// It carries the World so trampolines never rebuild it from the space.
type collisionDispatch struct {
	world   *World
	handler CollisionHandler
	native  *cp.CollisionHandler

	// defaults are the engine callbacks present before the record was
	// installed.
	defaults cp.CollisionHandler

	// swapped is set when the handler was registered as (b, a) relative to
	// the engine's own ordering of the pair.
	swapped bool
}

// AddCollisionHandler installs h for shapes with collision types a and b,
// replacing any handler already registered for the pair in either order.
// Arbiters passed to h order their shapes as (a, b).
func (w *World) AddCollisionHandler(a, b CollisionType, h CollisionHandler) error {
	if w == nil || w.closed {
		return ErrClosed
	}
	if w.callbacks > 0 {
		return fmt.Errorf("add collision handler %d/%d: %w", a, b, ErrWorldLocked)
	}
	pair := pairOf(a, b)
	native := w.space.NewCollisionHandler(a, b)

	d := &collisionDispatch{world: w, handler: h, native: native}
	if old, ok := w.handlers[pair]; ok {
		d.defaults = old.defaults
	} else {
		d.defaults = *native
	}
	d.swapped = native.TypeA != a

	native.BeginFunc = d.defaults.BeginFunc
	native.PreSolveFunc = d.defaults.PreSolveFunc
	native.PostSolveFunc = d.defaults.PostSolveFunc
	native.SeparateFunc = d.defaults.SeparateFunc
	if h.Begin != nil {
		native.BeginFunc = beginTrampoline
	}
	if h.PreSolve != nil {
		native.PreSolveFunc = preSolveTrampoline
	}
	if h.PostSolve != nil {
		native.PostSolveFunc = postSolveTrampoline
	}
	if h.Separate != nil {
		native.SeparateFunc = separateTrampoline
	}
	native.UserData = d
	w.handlers[pair] = d

	w.log.Debug("collision handler registered",
		zap.Uint("type_a", uint(a)),
		zap.Uint("type_b", uint(b)),
		zap.Bool("empty", h.empty()))
	return nil
}

// RemoveCollisionHandler restores the engine defaults for the pair. It
// reports whether a handler was registered.
func (w *World) RemoveCollisionHandler(a, b CollisionType) (bool, error) {
	if w == nil || w.closed {
		return false, ErrClosed
	}
	if w.callbacks > 0 {
		return false, fmt.Errorf("remove collision handler %d/%d: %w", a, b, ErrWorldLocked)
	}
	pair := pairOf(a, b)
	if _, ok := w.handlers[pair]; !ok {
		return false, nil
	}
	w.removeHandler(pair)
	return true, nil
}

// HasCollisionHandler reports whether a handler is registered for the pair.
func (w *World) HasCollisionHandler(a, b CollisionType) bool {
	if w == nil {
		return false
	}
	_, ok := w.handlers[pairOf(a, b)]
	return ok
}

func (w *World) removeHandler(pair collisionPair) {
	d := w.handlers[pair]
	delete(w.handlers, pair)
	d.native.BeginFunc = d.defaults.BeginFunc
	d.native.PreSolveFunc = d.defaults.PreSolveFunc
	d.native.PostSolveFunc = d.defaults.PostSolveFunc
	d.native.SeparateFunc = d.defaults.SeparateFunc
	d.native.UserData = d.defaults.UserData
}

// dispatchOf recovers the record from callback data. The engine passes the
// handler itself instead of its user data to post-solve callbacks.
func dispatchOf(data interface{}) *collisionDispatch {
	if h, ok := data.(*cp.CollisionHandler); ok && h != nil {
		data = h.UserData
	}
	d, ok := data.(*collisionDispatch)
	if !ok || d == nil {
		panic(fmt.Sprintf("physics: collision user data is %T, not a dispatch record", data))
	}
	return d
}

func (d *collisionDispatch) view(arb *cp.Arbiter) (*Arbiter, func()) {
	done := d.world.enter()
	a := &Arbiter{handle: arb, world: d.world, swapped: d.swapped, removal: d.world.removing > 0}
	return a, func() {
		a.handle = nil
		done()
	}
}

func beginTrampoline(arb *cp.Arbiter, _ *cp.Space, data interface{}) bool {
	d := dispatchOf(data)
	a, done := d.view(arb)
	defer done()
	return d.handler.Begin(a, d.world)
}

func preSolveTrampoline(arb *cp.Arbiter, _ *cp.Space, data interface{}) bool {
	d := dispatchOf(data)
	a, done := d.view(arb)
	defer done()
	return d.handler.PreSolve(a, d.world)
}

func postSolveTrampoline(arb *cp.Arbiter, _ *cp.Space, data interface{}) {
	d := dispatchOf(data)
	a, done := d.view(arb)
	defer done()
	d.handler.PostSolve(a, d.world)
}

func separateTrampoline(arb *cp.Arbiter, _ *cp.Space, data interface{}) {
	d := dispatchOf(data)
	a, done := d.view(arb)
	defer done()
	d.handler.Separate(a, d.world)
}
