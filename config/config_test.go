package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.World.Iterations != 10 {
		t.Fatalf("expected 10 iterations, got %d", cfg.World.Iterations)
	}
	if cfg.World.Gravity.Y != -100 {
		t.Fatalf("expected default gravity -100, got %v", cfg.World.Gravity)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected console logging, got %q", cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFormats(t *testing.T) {
	cases := []struct {
		name string
		file string
		body string
	}{
		{"yaml", "world.yaml", `
world:
  gravity: {x: 1, y: -50}
  iterations: 20
  damping: 0.9
logging:
  format: json
handlers:
  - type_a: 1
    type_b: 2
    script: scripts/ball.tengo
watch:
  enabled: true
  dirs: [scripts]
`},
		{"toml", "world.toml", `
[world]
iterations = 20
damping = 0.9
[world.gravity]
x = 1.0
y = -50.0

[logging]
format = "json"

[[handlers]]
type_a = 1
type_b = 2
script = "scripts/ball.tengo"

[watch]
enabled = true
dirs = ["scripts"]
`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, c.file)
			if err := os.WriteFile(path, []byte(c.body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.World.Iterations != 20 || cfg.World.Gravity != (Vec2{X: 1, Y: -50}) {
				t.Fatalf("world section not decoded: %+v", cfg.World)
			}
			if cfg.World.TimeStep <= 0 {
				t.Fatalf("unset fields should keep defaults, got time step %v", cfg.World.TimeStep)
			}
			if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
				t.Fatalf("logging section: %+v", cfg.Logging)
			}
			if len(cfg.Handlers) != 1 {
				t.Fatalf("expected one handler, got %d", len(cfg.Handlers))
			}
			if want := filepath.Join(dir, "scripts", "ball.tengo"); cfg.Handlers[0].Script != want {
				t.Fatalf("script path should resolve to %s, got %s", want, cfg.Handlers[0].Script)
			}
			if !cfg.Watch.Enabled || cfg.Watch.Dirs[0] != filepath.Join(dir, "scripts") {
				t.Fatalf("watch section: %+v", cfg.Watch)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}

			s := cfg.World.Settings()
			if s.Iterations != 20 || s.Gravity.X != 1 || s.Gravity.Y != -50 || s.Damping != 0.9 {
				t.Fatalf("settings: %+v", s)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("world: [unterminated"), 0o644)
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "config: parse") {
		t.Fatalf("expected parse error, got %v", err)
	}

	ini := filepath.Join(dir, "world.ini")
	os.WriteFile(ini, []byte("x=1"), 0o644)
	if _, err := Load(ini); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"iterations", func(c *Config) { c.World.Iterations = 0 }, "world.iterations"},
		{"time_step", func(c *Config) { c.World.TimeStep = 0 }, "world.time_step"},
		{"sleep", func(c *Config) { c.World.SleepTimeThreshold = -1 }, "sleep_time_threshold"},
		{"damping", func(c *Config) { c.World.Damping = 0 }, "world.damping"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"missing_script", func(c *Config) {
			c.Handlers = []HandlerConfig{{TypeA: 1, TypeB: 2}}
		}, "script is required"},
		{"duplicate_pair", func(c *Config) {
			c.Handlers = []HandlerConfig{
				{TypeA: 1, TypeB: 2, Script: "a.tengo"},
				{TypeA: 2, TypeB: 1, Script: "b.lua"},
			}
		}, "already bound"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			c.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Fatalf("expected error containing %q, got %v", c.want, err)
			}
		})
	}
}
