package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/integrators"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.NumX != 20 || cfg.NumY != 20 {
		t.Errorf("expected 20x20 grid, got %dx%d", cfg.NumX, cfg.NumY)
	}
	if cfg.PinMode != "top_corners" {
		t.Errorf("expected top corners, got %s", cfg.PinMode)
	}
	if cfg.Integrator != "euler" {
		t.Errorf("expected euler, got %s", cfg.Integrator)
	}
}

func TestBuild(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumX, cfg.NumY = 3, 2
	cfg.Springs.Set(cloth.Shear, SpringConfig{Stiffness: 4, Damping: 0.4})
	ground := -1.0
	cfg.Colliders.Ground = &ground
	cfg.Colliders.Ellipsoids = []EllipsoidConfig{{Center: [3]float64{0, -2, 0}, Radii: [3]float64{1, 0.5, 1}}}

	c, err := cfg.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if c.NumParticles() != 12 {
		t.Errorf("expected 12 particles, got %d", c.NumParticles())
	}
	if c.Coefficients(cloth.Shear) != (cloth.Coefficients{Stiffness: 4, Damping: 0.4}) {
		t.Errorf("shear coefficients not applied: %+v", c.Coefficients(cloth.Shear))
	}
	if !c.Pinned(0) || !c.Pinned(3) || c.Pinned(11) {
		t.Error("expected top corners pinned")
	}
	if c.Method() != integrators.ExplicitEuler {
		t.Errorf("expected euler, got %s", c.Method())
	}
	if len(c.Colliders()) != 2 {
		t.Errorf("expected 2 colliders, got %d", len(c.Colliders()))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative grid", func(c *Config) { c.NumX = -1 }},
		{"zero spacing", func(c *Config) { c.Spacing = 0 }},
		{"zero mass", func(c *Config) { c.Mass = 0 }},
		{"zero max speed", func(c *Config) { c.MaxSpeed = 0 }},
		{"negative damping", func(c *Config) { c.Springs.Bend.Damping = -1 }},
		{"unknown pin mode", func(c *Config) { c.PinMode = "sideways" }},
		{"unknown integrator", func(c *Config) { c.Integrator = "leapfrog" }},
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"negative sample_every", func(c *Config) { c.SampleEvery = -1 }},
		{"stretch ratio", func(c *Config) { c.Stretch.MaxRatio = 0.9 }},
		{"flat ellipsoid", func(c *Config) {
			c.Colliders.Ellipsoids = []EllipsoidConfig{{Radii: [3]float64{1, 0, 1}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, dynamo.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if _, err := cfg.Build(); err == nil {
				t.Error("expected build to fail")
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloth.yaml")

	cfg := GetPreset("drape")
	cfg.Springs.Structure.Stiffness = 12.5
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Springs.Structure.Stiffness != 12.5 {
		t.Errorf("expected stiffness 12.5, got %f", loaded.Springs.Structure.Stiffness)
	}
	if loaded.Integrator != "verlet" {
		t.Errorf("expected verlet, got %s", loaded.Integrator)
	}
	if len(loaded.Colliders.Ellipsoids) != 1 || loaded.Colliders.Ellipsoids[0] != cfg.Colliders.Ellipsoids[0] {
		t.Errorf("ellipsoid lost in round trip: %+v", loaded.Colliders.Ellipsoids)
	}
}

func TestParsePartialDocument(t *testing.T) {
	doc := []byte(`
num_x: 5
num_y: 4
gravity: [0, -9.8, 0]
integrator: rk4
springs:
  structure: {stiffness: 40, damping: 0.2}
colliders:
  ground: -0.5
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if cfg.NumX != 5 || cfg.NumY != 4 {
		t.Errorf("grid not read: %dx%d", cfg.NumX, cfg.NumY)
	}
	if cfg.Gravity != [3]float64{0, -9.8, 0} {
		t.Errorf("gravity not read: %v", cfg.Gravity)
	}
	if cfg.Springs.Structure.Stiffness != 40 {
		t.Errorf("structure stiffness not read: %v", cfg.Springs.Structure)
	}
	if cfg.Springs.Shear != DefaultConfig().Springs.Shear {
		t.Errorf("shear should keep defaults, got %+v", cfg.Springs.Shear)
	}
	if cfg.Spacing != DefaultSpacing {
		t.Errorf("spacing should keep default, got %f", cfg.Spacing)
	}
	if cfg.Colliders.Ground == nil || *cfg.Colliders.Ground != -0.5 {
		t.Error("ground not read")
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	for _, doc := range []string{"num_x: [1, 2]", "dt: -1", "integrator: midpoint"} {
		if _, err := Parse([]byte(doc)); !errors.Is(err, dynamo.ErrInvalidConfig) {
			t.Errorf("%q: expected ErrInvalidConfig, got %v", doc, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("trampoline")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.PinMode != "four_corners" {
		t.Errorf("expected four corners, got %s", cfg.PinMode)
	}

	cfg.NumX = 99
	cfg.Colliders.Ellipsoids = append(cfg.Colliders.Ellipsoids, EllipsoidConfig{})
	if again := GetPreset("trampoline"); again.NumX == 99 || len(again.Colliders.Ellipsoids) != 0 {
		t.Error("GetPreset must return an independent copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsBuild(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d names, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}

	for _, name := range names {
		cfg := GetPreset(name)
		if _, err := cfg.Build(); err != nil {
			t.Errorf("preset %s does not build: %v", name, err)
		}
		if err := cfg.RunConfig().Validate(); err != nil {
			t.Errorf("preset %s run config invalid: %v", name, err)
		}
	}
}
