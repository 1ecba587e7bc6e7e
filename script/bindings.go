package script

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/milk9111/physbridge/config"
	"github.com/milk9111/physbridge/logging"
	"github.com/milk9111/physbridge/physics"
)

type binding struct {
	typeA, typeB physics.CollisionType
	path         string
}

// registry is the part of a World that Bindings drives.
type registry interface {
	AddCollisionHandler(a, b physics.CollisionType, h physics.CollisionHandler) error
	RemoveCollisionHandler(a, b physics.CollisionType) (bool, error)
}

// Bindings keeps scripted handlers registered on a World. Pairs that share a
// script share one Handler.
type Bindings struct {
	world    registry
	log      *zap.Logger
	bindings []binding
	handlers map[string]*Handler
}

// Bind loads every script and registers it for its pair. On failure nothing
// stays registered.
func Bind(w *physics.World, cfgs []config.HandlerConfig, log *zap.Logger) (*Bindings, error) {
	return bind(w, cfgs, log)
}

func bind(w registry, cfgs []config.HandlerConfig, log *zap.Logger) (*Bindings, error) {
	log = logging.OrNop(log)
	b := &Bindings{world: w, log: log.Named("script"), handlers: make(map[string]*Handler)}
	for _, c := range cfgs {
		path := filepath.Clean(c.Script)
		if _, ok := b.handlers[path]; !ok {
			h, err := Load(path, b.log)
			if err != nil {
				b.Close()
				return nil, err
			}
			b.handlers[path] = h
		}
		bd := binding{typeA: physics.CollisionType(c.TypeA), typeB: physics.CollisionType(c.TypeB), path: path}
		if err := w.AddCollisionHandler(bd.typeA, bd.typeB, b.handlers[path].CollisionHandler()); err != nil {
			b.Close()
			return nil, fmt.Errorf("script: bind %s: %w", path, err)
		}
		b.bindings = append(b.bindings, bd)
	}
	b.log.Info("collision scripts bound", zap.Int("pairs", len(b.bindings)), zap.Int("scripts", len(b.handlers)))
	return b, nil
}

// Scripts returns the bound script paths, sorted.
func (b *Bindings) Scripts() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.handlers))
	for p := range b.handlers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Handler returns the loaded handler for path.
func (b *Bindings) Handler(path string) (*Handler, bool) {
	if b == nil {
		return nil, false
	}
	h, ok := b.handlers[filepath.Clean(path)]
	return h, ok
}

// Reload recompiles path and re-registers every pair bound to it. It must be
// called between steps. A script that fails to compile, or a pair that fails
// to re-register, leaves the previous version in place on every pair. Reload reports false for paths that are not bound.
func (b *Bindings) Reload(path string) (bool, error) {
	if b == nil {
		return false, nil
	}
	path = filepath.Clean(path)
	old, ok := b.handlers[path]
	if !ok {
		return false, nil
	}
	h, err := Load(path, b.log)
	if err != nil {
		b.log.Warn("script reload failed, keeping previous version", zap.String("script", path), zap.Error(err))
		return true, err
	}
	var rebound []binding
	for _, bd := range b.bindings {
		if bd.path != path {
			continue
		}
		if err := b.world.AddCollisionHandler(bd.typeA, bd.typeB, h.CollisionHandler()); err != nil {
			b.restore(rebound, old)
			h.Close()
			return true, fmt.Errorf("script: rebind %s: %w", path, err)
		}
		rebound = append(rebound, bd)
	}
	b.handlers[path] = h
	old.Close()
	b.log.Info("script reloaded", zap.String("script", path))
	return true, nil
}

// restore points pairs already moved to a new handler back at h.
func (b *Bindings) restore(pairs []binding, h *Handler) {
	for _, bd := range pairs {
		if err := b.world.AddCollisionHandler(bd.typeA, bd.typeB, h.CollisionHandler()); err != nil {
			b.log.Warn("restore collision handler", zap.String("script", bd.path), zap.Error(err))
		}
	}
}

// Close unregisters every pair and releases the interpreters.
func (b *Bindings) Close() {
	if b == nil {
		return
	}
	for _, bd := range b.bindings {
		if _, err := b.world.RemoveCollisionHandler(bd.typeA, bd.typeB); err != nil {
			b.log.Debug("remove collision handler", zap.Error(err))
		}
	}
	for _, h := range b.handlers {
		h.Close()
	}
	b.bindings = nil
	b.handlers = make(map[string]*Handler)
}
