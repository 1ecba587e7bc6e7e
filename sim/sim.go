// Package sim hosts a physics world configured from a config file, with
// scripted collision handlers that reload when their files change.
package sim

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/milk9111/physbridge/config"
	"github.com/milk9111/physbridge/logging"
	"github.com/milk9111/physbridge/physics"
	"github.com/milk9111/physbridge/script"
	"github.com/milk9111/physbridge/watch"
)

// maxCatchUp bounds the steps one Advance call may take.
const maxCatchUp = 8

// Host owns a world, its script bindings and an optional file watcher.
type Host struct {
	cfg      *config.Config
	log      *zap.Logger
	ownsLog  bool
	world    *physics.World
	bindings *script.Bindings
	watcher  *watch.Watcher

	accum float64
	steps uint64
}

// Option configures a Host.
type Option func(*Host)

// WithLogger uses log instead of building one from the config.
func WithLogger(log *zap.Logger) Option {
	return func(h *Host) {
		h.log = log
	}
}

// New validates cfg and builds a Host from it. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) (*Host, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &Host{cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		log, err := logging.New(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("sim: logger: %w", err)
		}
		h.log = log
		h.ownsLog = true
	}

	h.world = physics.NewWorld(
		physics.WithLogger(h.log.Named("physics")),
		physics.WithSettings(cfg.World.Settings()),
	)

	bindings, err := script.Bind(h.world, cfg.Handlers, h.log)
	if err != nil {
		h.world.Close()
		return nil, err
	}
	h.bindings = bindings

	if cfg.Watch.Enabled {
		dirs := cfg.Watch.Dirs
		if len(dirs) == 0 {
			dirs = scriptDirs(cfg.Handlers)
		}
		w, err := watch.New(dirs...)
		if err != nil {
			h.bindings.Close()
			h.world.Close()
			return nil, fmt.Errorf("sim: watch: %w", err)
		}
		h.watcher = w
	}

	h.log.Info("sim ready",
		zap.Int("handlers", len(cfg.Handlers)),
		zap.Bool("watch", h.watcher != nil),
		zap.Float64("time_step", cfg.World.TimeStep))
	return h, nil
}

func scriptDirs(handlers []config.HandlerConfig) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, hc := range handlers {
		d := filepath.Dir(filepath.Clean(hc.Script))
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// World returns the hosted world.
func (h *Host) World() *physics.World {
	return h.world
}

// Bindings returns the scripted collision handlers.
func (h *Host) Bindings() *script.Bindings {
	return h.bindings
}

// Steps is the number of world steps taken so far.
func (h *Host) Steps() uint64 {
	return h.steps
}

// Step applies pending script reloads and advances the world by one fixed
// step.
func (h *Host) Step() {
	h.Reload()
	h.world.Step(h.cfg.World.TimeStep)
	h.steps++
}

// Advance runs as many fixed steps as fit in elapsed seconds plus the
// remainder carried from earlier calls, capped at maxCatchUp. It returns the
// number of steps taken.
func (h *Host) Advance(elapsed float64) int {
	if elapsed <= 0 {
		return 0
	}
	dt := h.cfg.World.TimeStep
	h.accum += elapsed
	n := 0
	for h.accum >= dt && n < maxCatchUp {
		h.Step()
		h.accum -= dt
		n++
	}
	if n == maxCatchUp && h.accum >= dt {
		h.log.Debug("sim falling behind, dropping time", zap.Float64("dropped", h.accum))
		h.accum = 0
	}
	return n
}

// Reload drains file change events and reloads the affected scripts. It
// returns the number of scripts reloaded.
func (h *Host) Reload() int {
	if h.watcher == nil {
		return 0
	}
	n := 0
	for {
		select {
		case path, ok := <-h.watcher.Events:
			if !ok {
				return n
			}
			bound, err := h.bindings.Reload(path)
			if bound && err == nil {
				n++
			}
		case err, ok := <-h.watcher.Errors:
			if ok {
				h.log.Warn("script watch error", zap.Error(err))
			}
		default:
			return n
		}
	}
}

// Close stops watching, unbinds scripts and closes the world.
func (h *Host) Close() error {
	var errs error
	if h.watcher != nil {
		errs = multierr.Append(errs, h.watcher.Close())
		h.watcher = nil
	}
	h.bindings.Close()
	errs = multierr.Append(errs, h.world.Close())
	h.log.Info("sim closed", zap.Uint64("steps", h.steps))
	if h.ownsLog {
		_ = h.log.Sync()
	}
	return errs
}
