package physics

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type opKind int

const (
	opAdd opKind = iota + 1
	opRemove
	opFree
	opFunc
)

func (k opKind) String() string {
	switch k {
	case opAdd:
		return "add"
	case opRemove:
		return "remove"
	case opFree:
		return "free"
	case opFunc:
		return "func"
	}
	return fmt.Sprintf("opKind(%d)", int(k))
}

type pendingOp struct {
	kind      opKind
	entity    Entity
	key       any
	fn        func(*World)
	cancelled bool

	// detaches is set when the op counts toward its bodies' detaching totals.
	detaches bool
}

// deferredQueue holds work requested while the world is locked. Entity ops
// are keyed by wrapper so repeated requests collapse into one.
type deferredQueue struct {
	queue   []*pendingOp
	pending map[Entity]*pendingOp
	keys    map[any]*pendingOp

	// detaching counts shape and constraint removals queued per body.
	detaching map[*Body]int

	scheduled bool
	draining  bool
}

func (q *deferredQueue) init() {
	q.queue = nil
	q.pending = make(map[Entity]*pendingOp)
	q.keys = make(map[any]*pendingOp)
	q.detaching = make(map[*Body]int)
}

func (q *deferredQueue) reset() {
	for _, op := range q.queue {
		op.cancelled = true
	}
	q.init()
}

func (q *deferredQueue) pendingFor(e Entity) *pendingOp {
	if q.pending == nil {
		return nil
	}
	return q.pending[e]
}

func (q *deferredQueue) len() int {
	n := 0
	for _, op := range q.queue {
		if !op.cancelled {
			n++
		}
	}
	return n
}

func (q *deferredQueue) markDetaching(op *pendingOp, delta int) {
	var bodies []*Body
	switch v := op.entity.(type) {
	case *Shape:
		bodies = []*Body{v.body}
	case *Constraint:
		bodies = []*Body{v.a, v.b}
	}
	op.detaches = delta > 0
	for _, b := range bodies {
		if n := q.detaching[b] + delta; n > 0 {
			q.detaching[b] = n
		} else {
			delete(q.detaching, b)
		}
	}
}

// AddLater schedules e to be added once the world is unlocked. A shape or
// constraint may be scheduled right after the bodies it needs.
func (w *World) AddLater(e Entity) error {
	if err := w.checkLater(e); err != nil {
		return fmt.Errorf("add later %s: %w", e, err)
	}
	if op := w.deferred.pendingFor(e); op != nil {
		if op.kind == opAdd {
			return nil
		}
		return fmt.Errorf("add later %s: %w", e, ErrPendingMutation)
	}
	if err := w.canAdd(e, true); err != nil {
		return fmt.Errorf("add later %s: %w", e, err)
	}
	w.enqueue(&pendingOp{kind: opAdd, entity: e})
	return nil
}

// RemoveLater schedules e to be removed once the world is unlocked.
func (w *World) RemoveLater(e Entity) error {
	if err := w.checkLater(e); err != nil {
		return fmt.Errorf("remove later %s: %w", e, err)
	}
	if op := w.deferred.pendingFor(e); op != nil {
		if op.kind == opRemove || op.kind == opFree {
			return nil
		}
		return fmt.Errorf("remove later %s: %w", e, ErrPendingMutation)
	}
	if err := w.canRemove(e, w.detachingFor(e)); err != nil {
		return fmt.Errorf("remove later %s: %w", e, err)
	}
	op := &pendingOp{kind: opRemove, entity: e}
	w.enqueue(op)
	w.deferred.markDetaching(op, 1)
	return nil
}

// FreeLater schedules e to be removed, if added, and then freed. A pending
// removal is upgraded in place.
func (w *World) FreeLater(e Entity) error {
	if err := w.checkLater(e); err != nil {
		return fmt.Errorf("free later %s: %w", e, err)
	}
	if b, ok := e.(*Body); ok && (b == w.static || !b.owned) {
		return fmt.Errorf("free later %s: %w", e, ErrStaticBody)
	}
	if op := w.deferred.pendingFor(e); op != nil {
		switch op.kind {
		case opRemove:
			op.kind = opFree
			return nil
		case opFree:
			return nil
		}
		return fmt.Errorf("free later %s: %w", e, ErrPendingMutation)
	}
	if e.base().world != nil {
		if err := w.canRemove(e, w.detachingFor(e)); err != nil {
			return fmt.Errorf("free later %s: %w", e, err)
		}
		op := &pendingOp{kind: opFree, entity: e}
		w.enqueue(op)
		w.deferred.markDetaching(op, 1)
		return nil
	}
	w.enqueue(&pendingOp{kind: opFree, entity: e})
	return nil
}

// AddPostStepCallback schedules fn to run once the world is unlocked. Only
// the first callback registered for a non-nil key runs; later ones are
// dropped and reported with false.
func (w *World) AddPostStepCallback(key any, fn func(*World)) bool {
	if w == nil || w.closed || fn == nil {
		return false
	}
	if key != nil {
		if _, ok := w.deferred.keys[key]; ok {
			return false
		}
	}
	op := &pendingOp{kind: opFunc, key: key, fn: fn}
	if key != nil {
		w.deferred.keys[key] = op
	}
	w.enqueue(op)
	return true
}

// Pending returns the number of queued operations.
func (w *World) Pending() int {
	if w == nil {
		return 0
	}
	return w.deferred.len()
}

// Flush runs queued operations now. It fails while a callback is running;
// queued work then runs when the engine unlocks.
func (w *World) Flush() error {
	if w == nil || w.closed {
		return ErrClosed
	}
	if w.callbacks > 0 {
		return ErrWorldLocked
	}
	if w.deferred.draining {
		return nil
	}
	return w.drain()
}

// Clear schedules every shape, constraint and body to be removed and freed,
// in that order. Pending adds are cancelled. The static body is kept, and
// any other work already queued still runs.
func (w *World) Clear() error {
	if w == nil || w.closed {
		return ErrClosed
	}
	for e, op := range w.deferred.pending {
		if op.kind == opAdd {
			op.cancelled = true
			delete(w.deferred.pending, e)
		}
	}

	var errs error
	w.space.EachShape(func(h *cp.Shape) {
		defer w.enter()()
		errs = multierr.Append(errs, w.FreeLater(w.mustShape(h)))
	})
	w.space.EachConstraint(func(h *cp.Constraint) {
		defer w.enter()()
		errs = multierr.Append(errs, w.FreeLater(w.mustConstraint(h)))
	})
	w.space.EachBody(func(h *cp.Body) {
		defer w.enter()()
		errs = multierr.Append(errs, w.FreeLater(w.mustBody(h)))
	})
	return errs
}

func (w *World) checkLater(e Entity) error {
	if w == nil || w.closed {
		return ErrClosed
	}
	if isNil(e) {
		return ErrNilEntity
	}
	if e.base().freed {
		return ErrFreed
	}
	return nil
}

func (w *World) detachingFor(e Entity) int {
	if b, ok := e.(*Body); ok {
		return w.deferred.detaching[b]
	}
	return 0
}

func (w *World) enqueue(op *pendingOp) {
	q := &w.deferred
	q.queue = append(q.queue, op)
	if op.entity != nil {
		q.pending[op.entity] = op
	}
	w.schedule()
}

// schedule registers the engine post-step callback if queued work has none.
func (w *World) schedule() {
	q := &w.deferred
	if w.closed || q.scheduled || q.draining || w.removing > 0 || len(q.queue) == 0 {
		return
	}
	q.scheduled = true
	w.space.AddPostStepCallback(w.postStep, w, nil)
}

// postStep is the single engine post-step callback. The engine drops
// callbacks registered while its own list runs, so the world drains its queue
// until empty instead of scheduling more. Shape removal unlocks the engine
// too; work found then waits for endRemoval to schedule it again.
func (w *World) postStep(_ *cp.Space, _, _ interface{}) {
	w.deferred.scheduled = false
	if w.closed || w.deferred.draining || w.removing > 0 {
		return
	}
	if err := w.drain(); err != nil {
		w.log.Warn("deferred operations failed", zap.Error(err))
	}
}

func (w *World) drain() error {
	q := &w.deferred
	q.draining = true
	defer func() { q.draining = false }()

	var errs error
	for len(q.queue) > 0 && !w.closed {
		op := q.queue[0]
		q.queue[0] = nil
		q.queue = q.queue[1:]
		if op.cancelled {
			continue
		}
		if op.entity != nil {
			delete(q.pending, op.entity)
		}
		if op.key != nil {
			delete(q.keys, op.key)
		}
		if err := w.run(op); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	q.queue = nil
	return errs
}

func (w *World) run(op *pendingOp) error {
	e := op.entity
	switch op.kind {
	case opAdd:
		if err := w.canAdd(e, false); err != nil {
			return fmt.Errorf("deferred add %s: %w", e, err)
		}
		w.addNow(e)
	case opRemove, opFree:
		if op.detaches {
			w.deferred.markDetaching(op, -1)
		}
		if e.base().world == w {
			if err := w.canRemove(e, 0); err != nil {
				return fmt.Errorf("deferred %s %s: %w", op.kind, e, err)
			}
			w.removeNow(e)
		}
		if op.kind == opFree {
			if err := free(e); err != nil {
				return fmt.Errorf("deferred free %s: %w", e, err)
			}
		}
	case opFunc:
		op.fn(w)
	}
	return nil
}

func free(e Entity) error {
	switch v := e.(type) {
	case *Body:
		return v.Free()
	case *Shape:
		return v.Free()
	case *Constraint:
		return v.Free()
	}
	return nil
}
