// Package config loads physbridge settings from YAML or TOML files layered
// over embedded defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/physbridge/physics"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrUnknownFormat reports a config file extension other than yaml or toml.
var ErrUnknownFormat = errors.New("config: unknown format")

// Config is the full physbridge configuration.
type Config struct {
	World    WorldConfig     `yaml:"world" toml:"world"`
	Logging  LoggingConfig   `yaml:"logging" toml:"logging"`
	Handlers []HandlerConfig `yaml:"handlers" toml:"handlers"`
	Watch    WatchConfig     `yaml:"watch" toml:"watch"`
}

type Vec2 struct {
	X float64 `yaml:"x" toml:"x"`
	Y float64 `yaml:"y" toml:"y"`
}

// WorldConfig maps onto physics.Settings plus the fixed time step.
type WorldConfig struct {
	Gravity            Vec2              `yaml:"gravity" toml:"gravity"`
	Iterations         int               `yaml:"iterations" toml:"iterations"`
	SleepTimeThreshold float64           `yaml:"sleep_time_threshold" toml:"sleep_time_threshold"`
	Damping            float64           `yaml:"damping" toml:"damping"` // velocity fraction kept per second
	TimeStep           float64           `yaml:"time_step" toml:"time_step"` // seconds per fixed step
	SpatialHash        SpatialHashConfig `yaml:"spatial_hash" toml:"spatial_hash"`
}

// SpatialHashConfig switches the space to a spatial hash index when both
// fields are positive.
type SpatialHashConfig struct {
	Dim   float64 `yaml:"dim" toml:"dim"`
	Count int     `yaml:"count" toml:"count"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "json" or "console"
}

// HandlerConfig binds a collision handler script to a pair of collision
// types.
type HandlerConfig struct {
	TypeA  uint   `yaml:"type_a" toml:"type_a"`
	TypeB  uint   `yaml:"type_b" toml:"type_b"`
	Script string `yaml:"script" toml:"script"`
}

type WatchConfig struct {
	Enabled bool     `yaml:"enabled" toml:"enabled"`
	Dirs    []string `yaml:"dirs" toml:"dirs"`
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultYAML, cfg); err != nil {
		panic("config: embedded defaults: " + err.Error())
	}
	return cfg
}

// Load reads path over the defaults. The format follows the extension.
// Relative script paths and watch directories are resolved against the
// file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes data in the given format ("yaml" or "toml") over the
// defaults.
func Parse(data []byte, format string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case "toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	return cfg, nil
}

func formatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func (c *Config) resolve(dir string) {
	for i := range c.Handlers {
		if p := c.Handlers[i].Script; p != "" && !filepath.IsAbs(p) {
			c.Handlers[i].Script = filepath.Join(dir, p)
		}
	}
	for i, d := range c.Watch.Dirs {
		if !filepath.IsAbs(d) {
			c.Watch.Dirs[i] = filepath.Join(dir, d)
		}
	}
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var errs error
	w := c.World
	if w.Iterations <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("config: world.iterations must be positive, got %d", w.Iterations))
	}
	if w.SleepTimeThreshold < 0 || math.IsNaN(w.SleepTimeThreshold) {
		errs = multierr.Append(errs, fmt.Errorf("config: world.sleep_time_threshold must not be negative"))
	}
	if w.Damping <= 0 || w.Damping > 1 || math.IsNaN(w.Damping) {
		errs = multierr.Append(errs, fmt.Errorf("config: world.damping must be in (0, 1], got %v", w.Damping))
	}
	if w.TimeStep <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("config: world.time_step must be positive"))
	}
	if w.SpatialHash.Dim < 0 || w.SpatialHash.Count < 0 {
		errs = multierr.Append(errs, fmt.Errorf("config: world.spatial_hash must not be negative"))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = multierr.Append(errs, fmt.Errorf("config: logging.format %q: %w", c.Logging.Format, ErrUnknownFormat))
	}

	seen := make(map[[2]uint]int)
	for i, h := range c.Handlers {
		if h.Script == "" {
			errs = multierr.Append(errs, fmt.Errorf("config: handlers[%d]: script is required", i))
		}
		key := [2]uint{min(h.TypeA, h.TypeB), max(h.TypeA, h.TypeB)}
		if j, ok := seen[key]; ok {
			errs = multierr.Append(errs, fmt.Errorf("config: handlers[%d]: pair %d/%d already bound by handlers[%d]", i, h.TypeA, h.TypeB, j))
			continue
		}
		seen[key] = i
	}
	return errs
}

// Settings converts the world section for physics.NewWorld.
func (w WorldConfig) Settings() physics.Settings {
	s := physics.Settings{
		Gravity:            physics.Vector{X: w.Gravity.X, Y: w.Gravity.Y},
		SleepTimeThreshold: w.SleepTimeThreshold,
		Damping:            w.Damping,
		SpatialHashDim:     w.SpatialHash.Dim,
		SpatialHashCount:   w.SpatialHash.Count,
	}
	if w.Iterations > 0 {
		s.Iterations = uint(w.Iterations)
	}
	return s
}
