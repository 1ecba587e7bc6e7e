package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/milk9111/physbridge/config"
	"github.com/milk9111/physbridge/physics"
)

const (
	ballType   physics.CollisionType = 1
	groundType physics.CollisionType = 2
)

// newScene builds a zero-gravity world with a ball overlapping the ground
// and moving into it.
func newScene(t *testing.T) (*physics.World, *physics.Body, *physics.Shape) {
	t.Helper()
	w := physics.NewWorld()
	t.Cleanup(func() { w.Close() })

	ground := physics.NewSegment(w.StaticBody(), physics.Vector{X: -10}, physics.Vector{X: 10}, 0)
	ground.SetCollisionType(groundType)
	if err := w.Add(ground); err != nil {
		t.Fatalf("add ground: %v", err)
	}

	body := physics.NewBody(1, physics.MomentForCircle(1, 0, 1, physics.Vector{}))
	body.SetPosition(physics.Vector{Y: 0.5})
	body.SetVelocity(physics.Vector{Y: -10})
	ball := physics.NewCircle(body, 1, physics.Vector{})
	ball.SetCollisionType(ballType)
	if err := w.Add(body); err != nil {
		t.Fatalf("add body: %v", err)
	}
	if err := w.Add(ball); err != nil {
		t.Fatalf("add ball: %v", err)
	}
	return w, body, ball
}

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

var scripts = map[string]map[string]string{
	"tengo": {
		"veto": `
begin := func(arb) {
	return arb.type_a != 1
}
`,
		"accept": `
begin := func(arb) {
	return true
}
`,
		"remove": `
post_solve := func(arb) {
	if arb.type_a == 1 && arb.count > 0 {
		arb.remove_a()
	}
}
`,
		"broken": `
begin := func(arb) {
	return arb.count()
}
`,
		"counter": `
hits := 0
begin := func(arb) {
	hits += 1
	return hits < 2
}
`,
	},
	"lua": {
		"veto": `
function begin(arb)
	return arb.type_a ~= 1
end
`,
		"accept": `
function begin(arb)
	return true
end
`,
		"remove": `
function post_solve(arb)
	if arb.type_a == 1 and arb.count > 0 then
		arb.remove_a()
	end
end
`,
		"broken": `
function begin(arb)
	error("boom")
end
`,
		"counter": `
hits = 0
function begin(arb)
	hits = hits + 1
	return hits < 2
end
`,
	},
}

func TestScriptedHandlers(t *testing.T) {
	for lang, srcs := range scripts {
		t.Run(lang, func(t *testing.T) {
			dir := t.TempDir()
			load := func(name string) *Handler {
				h, err := Load(writeScript(t, dir, name+"."+lang, srcs[name]), zaptest.NewLogger(t))
				if err != nil {
					t.Fatalf("load %s: %v", name, err)
				}
				t.Cleanup(h.Close)
				return h
			}

			t.Run("veto", func(t *testing.T) {
				w, body, _ := newScene(t)
				h := load("veto")
				if got := h.Phases(); len(got) != 1 || got[0] != "begin" {
					t.Fatalf("expected only begin, got %v", got)
				}
				ch := h.CollisionHandler()
				if ch.PreSolve != nil || ch.PostSolve != nil || ch.Separate != nil {
					t.Fatalf("undefined phases must stay nil")
				}
				w.AddCollisionHandler(ballType, groundType, ch)
				w.Step(1.0 / 60)
				if vy := body.Velocity().Y; vy > -9 {
					t.Fatalf("vetoed pair should not be solved, vy=%v", vy)
				}
			})

			t.Run("accept", func(t *testing.T) {
				w, body, _ := newScene(t)
				w.AddCollisionHandler(ballType, groundType, load("accept").CollisionHandler())
				w.Step(1.0 / 60)
				if vy := body.Velocity().Y; vy < -9 {
					t.Fatalf("accepted pair should be solved, vy=%v", vy)
				}
			})

			t.Run("remove", func(t *testing.T) {
				w, _, ball := newScene(t)
				w.AddCollisionHandler(ballType, groundType, load("remove").CollisionHandler())
				w.Step(1.0 / 60)
				if w.Contains(ball) || !ball.Freed() {
					t.Fatalf("remove_a should free the ball after the step")
				}
			})

			t.Run("state_persists", func(t *testing.T) {
				h := load("counter")
				for i, want := range []bool{true, false, false} {
					got, err := h.backend.call(Begin, arbiterView{typeA: 1, typeB: 2})
					if err != nil {
						t.Fatalf("call %d: %v", i, err)
					}
					if got != want {
						t.Fatalf("call %d: expected %v, got %v", i, want, got)
					}
				}
			})

			t.Run("runtime_error_accepts", func(t *testing.T) {
				w, body, _ := newScene(t)
				w.AddCollisionHandler(ballType, groundType, load("broken").CollisionHandler())
				w.Step(1.0 / 60)
				if vy := body.Velocity().Y; vy < -9 {
					t.Fatalf("a failing script should fall back to accepting, vy=%v", vy)
				}
			})
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(writeScript(t, dir, "x.py", "pass"), nil); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := Load(writeScript(t, dir, "bad.tengo", "begin := func(arb) {"), nil); err == nil {
		t.Fatalf("expected a tengo compile error")
	}
	if _, err := Load(writeScript(t, dir, "bad.lua", "function begin(arb"), nil); err == nil {
		t.Fatalf("expected a lua syntax error")
	}
	if _, err := Load(filepath.Join(dir, "missing.lua"), nil); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestBindingsReload(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "pair.tengo", scripts["tengo"]["veto"])

	w, body, _ := newScene(t)
	b, err := Bind(w, []config.HandlerConfig{
		{TypeA: uint(ballType), TypeB: uint(groundType), Script: path},
		{TypeA: 3, TypeB: 4, Script: path},
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer b.Close()

	if got := b.Scripts(); len(got) != 1 {
		t.Fatalf("pairs sharing a script should share one handler, got %v", got)
	}
	if !w.HasCollisionHandler(3, 4) {
		t.Fatalf("second pair should be registered")
	}

	writeScript(t, dir, "pair.tengo", "begin := func(arb) {")
	if ok, err := b.Reload(path); !ok || err == nil {
		t.Fatalf("broken reload should report the error, got %v, %v", ok, err)
	}
	w.Step(1.0 / 60)
	if vy := body.Velocity().Y; vy > -9 {
		t.Fatalf("previous version should stay active, vy=%v", vy)
	}

	writeScript(t, dir, "pair.tengo", scripts["tengo"]["accept"])
	if ok, err := b.Reload(path); !ok || err != nil {
		t.Fatalf("reload: %v, %v", ok, err)
	}
	// Separate first so the engine forgets the earlier rejection.
	body.SetPosition(physics.Vector{Y: 50})
	w.Step(1.0 / 60)
	body.SetPosition(physics.Vector{Y: 0.5})
	body.SetVelocity(physics.Vector{Y: -10})
	w.Step(1.0 / 60)
	if vy := body.Velocity().Y; vy < -9 {
		t.Fatalf("reloaded script should accept the pair, vy=%v", vy)
	}

	if ok, _ := b.Reload(filepath.Join(dir, "other.tengo")); ok {
		t.Fatalf("unbound path should report false")
	}

	b.Close()
	if w.HasCollisionHandler(ballType, groundType) {
		t.Fatalf("Close should unregister every pair")
	}
}

// refusingWorld fails registration for one collision type.
type refusingWorld struct {
	*physics.World
	refuse physics.CollisionType
}

func (r *refusingWorld) AddCollisionHandler(a, b physics.CollisionType, h physics.CollisionHandler) error {
	if r.refuse != 0 && (a == r.refuse || b == r.refuse) {
		return errors.New("refused")
	}
	return r.World.AddCollisionHandler(a, b, h)
}

func TestReloadRollsBackOnRebindFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "pair.tengo", scripts["tengo"]["veto"])

	w, body, _ := newScene(t)
	reg := &refusingWorld{World: w}
	b, err := bind(reg, []config.HandlerConfig{
		{TypeA: uint(ballType), TypeB: uint(groundType), Script: path},
		{TypeA: 3, TypeB: 4, Script: path},
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer b.Close()
	old, _ := b.Handler(path)

	writeScript(t, dir, "pair.tengo", scripts["tengo"]["accept"])
	reg.refuse = 3
	if ok, err := b.Reload(path); !ok || err == nil {
		t.Fatalf("failed rebind should report the error, got %v, %v", ok, err)
	}
	if h, _ := b.Handler(path); h != old {
		t.Fatalf("failed rebind should keep the previous handler")
	}

	w.Step(1.0 / 60)
	if vy := body.Velocity().Y; vy > -9 {
		t.Fatalf("first pair should be back on the previous version, vy=%v", vy)
	}
}

func TestBindFailureUnregisters(t *testing.T) {
	dir := t.TempDir()
	good := writeScript(t, dir, "good.lua", scripts["lua"]["accept"])
	w, _, _ := newScene(t)
	_, err := Bind(w, []config.HandlerConfig{
		{TypeA: 1, TypeB: 2, Script: good},
		{TypeA: 3, TypeB: 4, Script: filepath.Join(dir, "missing.lua")},
	}, nil)
	if err == nil {
		t.Fatalf("expected bind error")
	}
	if w.HasCollisionHandler(1, 2) {
		t.Fatalf("failed Bind should leave nothing registered")
	}
}
