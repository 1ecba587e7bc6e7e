package physics

import "github.com/jakecoffman/cp"

// Vector, BB and CollisionType are the engine's value types. They carry no
// handle identity, so they are shared with callers as-is.
type (
	Vector        = cp.Vector
	BB            = cp.BB
	CollisionType = cp.CollisionType
)

// Entity is a Body, Shape or Constraint wrapper.
type Entity interface {
	String() string
	base() *entity
}

// entity holds the ownership and membership state shared by every wrapper.
type entity struct {
	owned bool
	freed bool
	world *World
}

func (e *entity) base() *entity { return e }

// World returns the world the entity is currently added to, or nil.
func (e *entity) World() *World {
	if e == nil {
		return nil
	}
	return e.world
}

// Freed reports whether the wrapper has released its handle.
func (e *entity) Freed() bool {
	return e != nil && e.freed
}

// Owned reports whether the wrapper releases its handle on Free. Views of
// engine-owned handles (the world's static body) are not owned.
func (e *entity) Owned() bool {
	return e != nil && e.owned
}

// release marks the wrapper freed. Views and wrappers still in a world are
// rejected before any handle is touched.
func (e *entity) release() (bool, error) {
	if !e.owned || e.freed {
		return false, nil
	}
	if e.world != nil {
		return false, ErrInWorld
	}
	e.freed = true
	return true, nil
}

func isNil(e Entity) bool {
	switch v := e.(type) {
	case nil:
		return true
	case *Body:
		return v == nil
	case *Shape:
		return v == nil
	case *Constraint:
		return v == nil
	}
	return false
}
