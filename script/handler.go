// Package script runs collision handlers written in tengo or Lua.
//
// A script defines any of the functions begin, pre_solve, post_solve and
// separate. Each receives an arbiter object:
//
//	type_a, type_b   collision types, in registration order
//	normal           [x, y]
//	first_contact    bool
//	removal          bool
//	count            number of contact points
//	remove_a()       schedule the first shape for removal and free
//	remove_b()       same for the second shape
//
// begin and pre_solve may return false to reject the pair; any other result
// accepts it. Top-level statements run once at load, so variables they
// declare keep their values from one callback to the next.
package script

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/milk9111/physbridge/logging"
	"github.com/milk9111/physbridge/physics"
)

// ErrUnsupported reports a script extension with no backend.
var ErrUnsupported = errors.New("script: unsupported script type")

// Phase names a collision callback a script may define.
type Phase string

const (
	Begin     Phase = "begin"
	PreSolve  Phase = "pre_solve"
	PostSolve Phase = "post_solve"
	Separate  Phase = "separate"
)

var phases = []Phase{Begin, PreSolve, PostSolve, Separate}

// arbiterView is the per-callback data handed to a script.
type arbiterView struct {
	typeA, typeB uint
	normal       physics.Vector
	firstContact bool
	removal      bool
	count        int
	removeA      func() bool
	removeB      func() bool
}

func viewOf(arb *physics.Arbiter, w *physics.World, log *zap.Logger) arbiterView {
	a, b := arb.Shapes()
	free := func(s *physics.Shape) func() bool {
		return func() bool {
			if err := w.FreeLater(s); err != nil {
				log.Debug("script remove rejected", zap.Stringer("shape", s), zap.Error(err))
				return false
			}
			return true
		}
	}
	v := arbiterView{
		normal:       arb.Normal(),
		firstContact: arb.IsFirstContact(),
		removal:      arb.IsRemoval(),
		count:        arb.Count(),
		removeA:      free(a),
		removeB:      free(b),
	}
	if a != nil {
		v.typeA = uint(a.CollisionType())
	}
	if b != nil {
		v.typeB = uint(b.CollisionType())
	}
	return v
}

type backend interface {
	defines(p Phase) bool
	call(p Phase, arb arbiterView) (bool, error)
	close()
}

// Handler is a loaded collision script.
type Handler struct {
	path    string
	backend backend
	log     *zap.Logger
}

// Load compiles the script at path. The extension picks the language.
func Load(path string, log *zap.Logger) (*Handler, error) {
	log = logging.OrNop(log)
	path = filepath.Clean(path)

	var (
		be  backend
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tengo":
		be, err = loadTengo(path)
	case ".lua":
		be, err = loadLua(path)
	default:
		return nil, fmt.Errorf("load %s: %w", path, ErrUnsupported)
	}
	if err != nil {
		return nil, fmt.Errorf("script: load %s: %w", path, err)
	}

	h := &Handler{path: path, backend: be, log: log.With(zap.String("script", path))}
	h.log.Debug("script loaded", zap.Strings("phases", h.Phases()))
	return h, nil
}

// Path returns the cleaned script path.
func (h *Handler) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}

// Phases lists the phases the script defines.
func (h *Handler) Phases() []string {
	if h == nil {
		return nil
	}
	var out []string
	for _, p := range phases {
		if h.backend.defines(p) {
			out = append(out, string(p))
		}
	}
	return out
}

// CollisionHandler adapts the script. Phases the script leaves out stay nil
// so the engine defaults apply.
func (h *Handler) CollisionHandler() physics.CollisionHandler {
	var ch physics.CollisionHandler
	if h == nil {
		return ch
	}
	if h.backend.defines(Begin) {
		ch.Begin = func(arb *physics.Arbiter, w *physics.World) bool {
			return h.run(Begin, arb, w)
		}
	}
	if h.backend.defines(PreSolve) {
		ch.PreSolve = func(arb *physics.Arbiter, w *physics.World) bool {
			return h.run(PreSolve, arb, w)
		}
	}
	if h.backend.defines(PostSolve) {
		ch.PostSolve = func(arb *physics.Arbiter, w *physics.World) {
			h.run(PostSolve, arb, w)
		}
	}
	if h.backend.defines(Separate) {
		ch.Separate = func(arb *physics.Arbiter, w *physics.World) {
			h.run(Separate, arb, w)
		}
	}
	return ch
}

// run answers true when the script fails, matching the engine default.
func (h *Handler) run(p Phase, arb *physics.Arbiter, w *physics.World) bool {
	ok, err := h.backend.call(p, viewOf(arb, w, h.log))
	if err != nil {
		h.log.Warn("script phase failed", zap.String("phase", string(p)), zap.Error(err))
		return true
	}
	return ok
}

// Close releases interpreter state.
func (h *Handler) Close() {
	if h == nil || h.backend == nil {
		return
	}
	h.backend.close()
}
