package physics

import "errors"

var (
	ErrNilEntity       = errors.New("physics: entity is nil")
	ErrNilBody         = errors.New("physics: body is nil")
	ErrNotRegistered   = errors.New("physics: handle not registered")
	ErrNotFound        = errors.New("physics: entity not in world")
	ErrAlreadyAdded    = errors.New("physics: entity already added to a world")
	ErrStaticBody      = errors.New("physics: static body belongs to the world")
	ErrBodyNotAdded    = errors.New("physics: body not in world")
	ErrInUse           = errors.New("physics: body still has shapes or constraints in world")
	ErrInWorld         = errors.New("physics: entity still in a world")
	ErrFreed           = errors.New("physics: entity freed")
	ErrWorldLocked     = errors.New("physics: world locked by callback, use the deferred api")
	ErrPendingMutation = errors.New("physics: mutation already pending for entity")
	ErrClosed          = errors.New("physics: world closed")
	ErrInvalidSetting  = errors.New("physics: invalid setting")
)
