// Package physics wraps a Chipmunk space so callers never handle raw engine
// pointers. The World owns every handle added to it, maps handles reported by
// the engine back to their wrappers, dispatches collision callbacks, and
// routes mutations requested from inside callbacks through post-step work.
package physics

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"
)

// Settings are the space-wide solver parameters applied at construction.
type Settings struct {
	Gravity    Vector
	Iterations uint

	// SleepTimeThreshold enables sleeping when finite and positive.
	SleepTimeThreshold float64

	// Damping is the fraction of velocity bodies keep after one second.
	// 1 disables damping; 0 leaves the engine default.
	Damping float64

	// SpatialHashDim switches the dynamic index to a spatial hash when > 0.
	SpatialHashDim   float64
	SpatialHashCount int
}

// DefaultSettings matches the engine's own defaults.
func DefaultSettings() Settings {
	return Settings{Iterations: 10, Damping: 1}
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(log *zap.Logger) Option {
	return func(w *World) {
		if log != nil {
			w.log = log
		}
	}
}

// WithSettings applies solver settings to the new space.
func WithSettings(s Settings) Option {
	return func(w *World) {
		w.settings = s
	}
}

// World owns the Chipmunk space, the static body and the bodies, shapes and
// constraints currently added to it. A World is not safe for concurrent use.
type World struct {
	space    *cp.Space
	static   *Body
	log      *zap.Logger
	settings Settings

	bodies      *registry[*cp.Body, *Body]
	shapes      *registry[*cp.Shape, *Shape]
	constraints *registry[*cp.Constraint, *Constraint]

	// attached counts shapes and constraint ends per body.
	attached map[*Body]int

	handlers map[collisionPair]*collisionDispatch
	deferred deferredQueue

	callbacks int
	stepping  bool
	closed    bool

	// removing is set while the engine removes a shape. Removal unlocks the
	// engine, which would otherwise run post-step work mid-removal.
	removing int
}

// NewWorld creates a space and its static body.
func NewWorld(opts ...Option) *World {
	w := &World{
		log:         zap.NewNop(),
		settings:    DefaultSettings(),
		bodies:      newRegistry[*cp.Body, *Body]("body"),
		shapes:      newRegistry[*cp.Shape, *Shape]("shape"),
		constraints: newRegistry[*cp.Constraint, *Constraint]("constraint"),
		attached:    make(map[*Body]int),
		handlers:    make(map[collisionPair]*collisionDispatch),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.deferred.init()

	space := cp.NewSpace()
	if w.settings.Iterations > 0 {
		space.Iterations = w.settings.Iterations
	}
	space.SetGravity(w.settings.Gravity)
	if w.settings.Damping > 0 {
		space.SetDamping(w.settings.Damping)
	}
	if w.settings.SleepTimeThreshold > 0 {
		space.SleepTimeThreshold = w.settings.SleepTimeThreshold
	}
	if w.settings.SpatialHashDim > 0 && w.settings.SpatialHashCount > 0 {
		space.UseSpatialHash(w.settings.SpatialHashDim, w.settings.SpatialHashCount)
	}
	w.space = space
	w.static = viewBody(space.StaticBody)
	w.static.world = w
	return w
}

// StaticBody returns the world's built-in static body. It is never added or
// removed and its handle is owned by the engine.
func (w *World) StaticBody() *Body {
	if w == nil {
		return nil
	}
	return w.static
}

// Settings returns the settings the world was created with.
func (w *World) Settings() Settings {
	if w == nil {
		return Settings{}
	}
	return w.settings
}

// Bodies returns the added bodies in insertion order.
func (w *World) Bodies() []*Body {
	if w == nil {
		return nil
	}
	return w.bodies.values()
}

// Shapes returns the added shapes in insertion order.
func (w *World) Shapes() []*Shape {
	if w == nil {
		return nil
	}
	return w.shapes.values()
}

// Constraints returns the added constraints in insertion order.
func (w *World) Constraints() []*Constraint {
	if w == nil {
		return nil
	}
	return w.constraints.values()
}

// Contains reports whether e is currently added to this world.
func (w *World) Contains(e Entity) bool {
	if w == nil || isNil(e) {
		return false
	}
	switch v := e.(type) {
	case *Body:
		return v.handle != nil && w.bodies.contains(v.handle)
	case *Shape:
		return v.handle != nil && w.shapes.contains(v.handle)
	case *Constraint:
		return v.handle != nil && w.constraints.contains(v.handle)
	}
	return false
}

// Locked reports whether a callback is running, in which case only the
// deferred API may change the world.
func (w *World) Locked() bool {
	return w != nil && w.callbacks > 0
}

// Damping returns the space's current velocity damping.
func (w *World) Damping() float64 {
	if w == nil || w.closed {
		return 0
	}
	return w.space.Damping()
}

// SetDamping changes the fraction of velocity bodies keep after one second.
func (w *World) SetDamping(d float64) error {
	if w == nil || w.closed {
		return ErrClosed
	}
	if d < 0 {
		return fmt.Errorf("set damping %v: %w", d, ErrInvalidSetting)
	}
	w.space.SetDamping(d)
	w.settings.Damping = d
	return nil
}

// Step advances the simulation by dt. Collision callbacks and post-step work
// run synchronously before it returns.
func (w *World) Step(dt float64) {
	if w == nil || w.closed {
		return
	}
	if w.stepping || w.callbacks > 0 || w.deferred.draining {
		panic("physics: step called from inside a callback")
	}
	w.stepping = true
	defer func() { w.stepping = false }()
	w.space.Step(dt)
}

// Add adds a body, shape or constraint.
func (w *World) Add(e Entity) error {
	switch v := e.(type) {
	case *Body:
		return w.AddBody(v)
	case *Shape:
		return w.AddShape(v)
	case *Constraint:
		return w.AddConstraint(v)
	}
	return ErrNilEntity
}

// Remove removes a body, shape or constraint.
func (w *World) Remove(e Entity) error {
	switch v := e.(type) {
	case *Body:
		return w.RemoveBody(v)
	case *Shape:
		return w.RemoveShape(v)
	case *Constraint:
		return w.RemoveConstraint(v)
	}
	return ErrNilEntity
}

func (w *World) checkMutable(e Entity) error {
	if w.closed {
		return ErrClosed
	}
	if isNil(e) {
		return ErrNilEntity
	}
	if w.callbacks > 0 {
		return ErrWorldLocked
	}
	if e.base().freed {
		return ErrFreed
	}
	if w.deferred.pendingFor(e) != nil {
		return ErrPendingMutation
	}
	return nil
}

// canAdd validates an add request. Deferred adds pass pending so a shape may
// be queued right after its body.
func (w *World) canAdd(e Entity, pendingAdds bool) error {
	if b, ok := e.(*Body); ok && (b == w.static || !b.owned) {
		return ErrStaticBody
	}
	if e.base().world != nil {
		return ErrAlreadyAdded
	}
	hasBody := func(b *Body) bool {
		if b == w.static || b.world == w {
			return true
		}
		if op := w.deferred.pendingFor(b); pendingAdds && op != nil && op.kind == opAdd {
			return true
		}
		return false
	}
	switch v := e.(type) {
	case *Shape:
		if !hasBody(v.body) {
			return ErrBodyNotAdded
		}
	case *Constraint:
		if !hasBody(v.a) || !hasBody(v.b) {
			return ErrBodyNotAdded
		}
	}
	return nil
}

// canRemove validates a remove request. detaching is the number of the
// body's shapes and constraint ends already queued for removal.
func (w *World) canRemove(e Entity, detaching int) error {
	if b, ok := e.(*Body); ok && b == w.static {
		return ErrStaticBody
	}
	if e.base().world != w {
		return ErrNotFound
	}
	if b, ok := e.(*Body); ok && w.attached[b]-detaching > 0 {
		return ErrInUse
	}
	return nil
}

// AddBody adds a body. It fails for the static body and for bodies already
// in a world.
func (w *World) AddBody(b *Body) error {
	if err := w.checkAdd(b); err != nil {
		return err
	}
	w.addNow(b)
	return nil
}

// AddShape adds a shape whose body is the static body or already added.
func (w *World) AddShape(s *Shape) error {
	if err := w.checkAdd(s); err != nil {
		return err
	}
	w.addNow(s)
	return nil
}

// AddConstraint adds a constraint whose bodies are both in the world.
func (w *World) AddConstraint(c *Constraint) error {
	if err := w.checkAdd(c); err != nil {
		return err
	}
	w.addNow(c)
	return nil
}

// RemoveBody removes a body. Its shapes and constraints must go first.
func (w *World) RemoveBody(b *Body) error {
	if err := w.checkRemove(b); err != nil {
		return err
	}
	w.removeNow(b)
	return nil
}

// RemoveShape removes a shape from the world without freeing it.
func (w *World) RemoveShape(s *Shape) error {
	if err := w.checkRemove(s); err != nil {
		return err
	}
	w.removeNow(s)
	return nil
}

// RemoveConstraint removes a constraint from the world without freeing it.
func (w *World) RemoveConstraint(c *Constraint) error {
	if err := w.checkRemove(c); err != nil {
		return err
	}
	w.removeNow(c)
	return nil
}

func (w *World) checkAdd(e Entity) error {
	if w == nil {
		return ErrClosed
	}
	if err := w.checkMutable(e); err != nil {
		return fmt.Errorf("add %s: %w", e, err)
	}
	if err := w.canAdd(e, false); err != nil {
		return fmt.Errorf("add %s: %w", e, err)
	}
	return nil
}

func (w *World) checkRemove(e Entity) error {
	if w == nil {
		return ErrClosed
	}
	if err := w.checkMutable(e); err != nil {
		return fmt.Errorf("remove %s: %w", e, err)
	}
	if err := w.canRemove(e, 0); err != nil {
		return fmt.Errorf("remove %s: %w", e, err)
	}
	return nil
}

// addNow registers the handle with the engine, then records the wrapper.
func (w *World) addNow(e Entity) {
	switch v := e.(type) {
	case *Body:
		w.space.AddBody(v.handle)
		w.bodies.insert(v.handle, v)
	case *Shape:
		w.space.AddShape(v.handle)
		w.shapes.insert(v.handle, v)
		w.attached[v.body]++
	case *Constraint:
		w.space.AddConstraint(v.handle)
		w.constraints.insert(v.handle, v)
		w.attached[v.a]++
		w.attached[v.b]++
	}
	e.base().world = w
	w.log.Debug("entity added", zap.Stringer("entity", e))
}

// removeNow removes the handle from the engine, then erases the wrapper.
func (w *World) removeNow(e Entity) {
	w.removing++
	defer w.endRemoval()

	switch v := e.(type) {
	case *Body:
		if w.attached[v] > 0 {
			panic(fmt.Sprintf("physics: remove %s: %d shapes or constraints still attached", v, w.attached[v]))
		}
		w.space.RemoveBody(v.handle)
		w.bodies.erase(v.handle)
		delete(w.attached, v)
	case *Shape:
		w.space.RemoveShape(v.handle)
		w.shapes.erase(v.handle)
		w.detach(v.body)
	case *Constraint:
		w.space.RemoveConstraint(v.handle)
		w.constraints.erase(v.handle)
		w.detach(v.a)
		w.detach(v.b)
	}
	e.base().world = nil
	w.log.Debug("entity removed", zap.Stringer("entity", e))
}

// ReindexShape refreshes the spatial index entry of an added shape. Call it
// after moving a static body; dynamic shapes are reindexed every step.
// Cached contacts of the shape are dropped and its separate callbacks run
// with IsRemoval set.
func (w *World) ReindexShape(s *Shape) error {
	if err := w.checkReindex(s); err != nil {
		return fmt.Errorf("reindex %s: %w", s, err)
	}
	if s.world != w {
		return fmt.Errorf("reindex %s: %w", s, ErrNotFound)
	}
	w.reinsert(s)
	return nil
}

// ReindexShapesForBody reindexes every added shape attached to b.
func (w *World) ReindexShapesForBody(b *Body) error {
	if err := w.checkReindex(b); err != nil {
		return fmt.Errorf("reindex shapes of %s: %w", b, err)
	}
	if b != w.static && b.world != w {
		return fmt.Errorf("reindex shapes of %s: %w", b, ErrNotFound)
	}
	for _, s := range w.shapes.values() {
		if s.body == b {
			w.reinsert(s)
		}
	}
	return nil
}

// ReindexStatic reindexes every shape attached to a static body, including
// the world's own.
func (w *World) ReindexStatic() error {
	if err := w.checkReindex(w.StaticBody()); err != nil {
		return fmt.Errorf("reindex static: %w", err)
	}
	for _, s := range w.shapes.values() {
		if s.body.Type() == Static {
			w.reinsert(s)
		}
	}
	return nil
}

func (w *World) checkReindex(e Entity) error {
	if w == nil || w.closed {
		return ErrClosed
	}
	if isNil(e) {
		return ErrNilEntity
	}
	if w.callbacks > 0 || w.removing > 0 {
		return ErrWorldLocked
	}
	return nil
}

// reinsert removes the shape from the engine and adds it back so the index
// picks up its body's current transform. Registry order is unchanged.
func (w *World) reinsert(s *Shape) {
	w.removing++
	w.space.RemoveShape(s.handle)
	w.space.AddShape(s.handle)
	w.endRemoval()
	w.log.Debug("shape reindexed", zap.Stringer("shape", s))
}

// endRemoval re-arms post-step work that was skipped while the engine was
// removing a shape.
func (w *World) endRemoval() {
	w.removing--
	if w.removing == 0 {
		w.schedule()
	}
}

func (w *World) detach(b *Body) {
	if n := w.attached[b]; n > 1 {
		w.attached[b] = n - 1
		return
	}
	delete(w.attached, b)
}

// Close detaches every shape, then every constraint, then every body from the
// engine and drops all handler records. Wrappers survive and may be added to
// another world. The static body handle is left to the engine.
func (w *World) Close() error {
	if w == nil || w.closed {
		return nil
	}
	if w.callbacks > 0 || w.stepping || w.removing > 0 {
		return fmt.Errorf("close world: %w", ErrWorldLocked)
	}
	pending := w.deferred.len()
	w.deferred.reset()
	w.closed = true
	for pair := range w.handlers {
		w.removeHandler(pair)
	}

	shapes, constraints, bodies := w.shapes.values(), w.constraints.values(), w.bodies.values()
	for _, s := range shapes {
		w.removeNow(s)
	}
	for _, c := range constraints {
		w.removeNow(c)
	}
	for _, b := range bodies {
		w.removeNow(b)
	}
	w.log.Debug("world closed",
		zap.Int("cancelled", pending),
		zap.Int("shapes", len(shapes)),
		zap.Int("constraints", len(constraints)),
		zap.Int("bodies", len(bodies)))
	return nil
}

func (w *World) lookupBody(h *cp.Body) (*Body, error) {
	if h != nil && h == w.static.handle {
		return w.static, nil
	}
	return w.bodies.lookup(h)
}

func (w *World) mustBody(h *cp.Body) *Body {
	b, err := w.lookupBody(h)
	if err != nil {
		panic("physics: resolve body: " + err.Error())
	}
	return b
}

func (w *World) mustShape(h *cp.Shape) *Shape {
	s, err := w.shapes.lookup(h)
	if err != nil {
		panic("physics: resolve shape: " + err.Error())
	}
	return s
}

func (w *World) mustConstraint(h *cp.Constraint) *Constraint {
	c, err := w.constraints.lookup(h)
	if err != nil {
		panic("physics: resolve constraint: " + err.Error())
	}
	return c
}

// enter marks user code running inside an engine traversal.
func (w *World) enter() func() {
	w.callbacks++
	return func() { w.callbacks-- }
}
