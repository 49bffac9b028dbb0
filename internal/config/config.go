package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/integrators"
	"github.com/san-kum/clothsim/internal/sim"
)

const (
	DefaultNumX        = 20
	DefaultNumY        = 20
	DefaultSpacing     = 0.1
	DefaultMass        = 1.0
	DefaultMaxSpeed    = 10.0
	DefaultDt          = 0.016
	DefaultDuration    = 10.0
	DefaultSampleEvery = 10
)

type Config struct {
	NumX               int            `yaml:"num_x"`
	NumY               int            `yaml:"num_y"`
	Spacing            float64        `yaml:"spacing"`
	Mass               float64        `yaml:"mass"`
	Gravity            [3]float64     `yaml:"gravity,flow"`
	MaxSpeed           float64        `yaml:"max_speed"`
	Springs            SpringsConfig  `yaml:"springs"`
	PinMode            string         `yaml:"pin_mode"`
	Integrator         string         `yaml:"integrator"`
	Dt                 float64        `yaml:"dt"`
	Duration           float64        `yaml:"duration"`
	Stretch            StretchConfig  `yaml:"stretch"`
	Biphasic           BiphasicConfig `yaml:"biphasic"`
	Colliders          ColliderConfig `yaml:"colliders"`
	PauseOnInstability bool           `yaml:"pause_on_instability"`
	SampleEvery        int            `yaml:"sample_every"`
}

type SpringsConfig struct {
	Structure SpringConfig `yaml:"structure"`
	Shear     SpringConfig `yaml:"shear"`
	Bend      SpringConfig `yaml:"bend"`
}

type SpringConfig struct {
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
}

type StretchConfig struct {
	Iterations int     `yaml:"iterations"`
	MaxRatio   float64 `yaml:"max_ratio"`
}

type BiphasicConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	Scale     float64 `yaml:"scale"`
}

type ColliderConfig struct {
	Ellipsoids []EllipsoidConfig `yaml:"ellipsoids,omitempty"`
	// Ground, when set, is the height of a horizontal floor.
	Ground *float64 `yaml:"ground,omitempty"`
}

type EllipsoidConfig struct {
	Center [3]float64 `yaml:"center,flow"`
	Radii  [3]float64 `yaml:"radii,flow"`
}

// DefaultConfig is a 20x20 cloth hanging from its top corners with soft
// springs.
func DefaultConfig() *Config {
	return &Config{
		NumX:     DefaultNumX,
		NumY:     DefaultNumY,
		Spacing:  DefaultSpacing,
		Mass:     DefaultMass,
		Gravity:  [3]float64(cloth.DefaultGravity),
		MaxSpeed: DefaultMaxSpeed,
		Springs: SpringsConfig{
			Structure: SpringConfig{Stiffness: 3.0, Damping: 0.02},
			Shear:     SpringConfig{Stiffness: 1.0, Damping: 0.01},
			Bend:      SpringConfig{Stiffness: 0.5, Damping: 0.005},
		},
		PinMode:    cloth.PinTopCorners.String(),
		Integrator: integrators.ExplicitEuler.String(),
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Stretch:    StretchConfig{Iterations: 0, MaxRatio: 1.1},
		Biphasic: BiphasicConfig{
			Threshold: cloth.DefaultBiphasic().Threshold,
			Scale:     cloth.DefaultBiphasic().Scale,
		},
		SampleEvery: DefaultSampleEvery,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the run parameters and names. Physical parameters are
// checked again by cloth.New when the cloth is built.
func (c *Config) Validate() error {
	var problems []string

	if c.NumX < 0 || c.NumY < 0 {
		problems = append(problems, fmt.Sprintf("grid %dx%d", c.NumX, c.NumY))
	}
	if !(c.Spacing > 0) {
		problems = append(problems, fmt.Sprintf("spacing=%g", c.Spacing))
	}
	if !(c.Mass > 0) {
		problems = append(problems, fmt.Sprintf("mass=%g", c.Mass))
	}
	if !(c.MaxSpeed > 0) {
		problems = append(problems, fmt.Sprintf("max_speed=%g", c.MaxSpeed))
	}
	for _, t := range cloth.SpringTypes() {
		s := c.Springs.Get(t)
		if s.Stiffness < 0 || s.Damping < 0 {
			problems = append(problems, fmt.Sprintf("springs.%s k=%g c=%g", t, s.Stiffness, s.Damping))
		}
	}
	if _, err := cloth.ParsePinMode(c.PinMode); err != nil {
		problems = append(problems, fmt.Sprintf("pin_mode=%q", c.PinMode))
	}
	if _, err := integrators.ParseMethod(c.Integrator); err != nil {
		problems = append(problems, fmt.Sprintf("integrator=%q", c.Integrator))
	}
	if !(c.Dt > 0) {
		problems = append(problems, fmt.Sprintf("dt=%g", c.Dt))
	}
	if !(c.Duration > 0) {
		problems = append(problems, fmt.Sprintf("duration=%g", c.Duration))
	}
	if c.SampleEvery < 0 {
		problems = append(problems, fmt.Sprintf("sample_every=%d", c.SampleEvery))
	}
	if c.Stretch.Iterations < 0 || c.Stretch.MaxRatio < 1 {
		problems = append(problems, fmt.Sprintf("stretch iterations=%d max_ratio=%g", c.Stretch.Iterations, c.Stretch.MaxRatio))
	}
	for i, e := range c.Colliders.Ellipsoids {
		if !(e.Radii[0] > 0 && e.Radii[1] > 0 && e.Radii[2] > 0) {
			problems = append(problems, fmt.Sprintf("colliders.ellipsoids[%d] radii=%v", i, e.Radii))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", dynamo.ErrInvalidConfig, strings.Join(problems, ", "))
	}
	return nil
}

// Get returns the coefficients of one spring category.
func (s SpringsConfig) Get(t cloth.SpringType) SpringConfig {
	switch t {
	case cloth.Shear:
		return s.Shear
	case cloth.Bend:
		return s.Bend
	}
	return s.Structure
}

// Set replaces the coefficients of one spring category.
func (s *SpringsConfig) Set(t cloth.SpringType, sc SpringConfig) {
	switch t {
	case cloth.Shear:
		s.Shear = sc
	case cloth.Bend:
		s.Bend = sc
	default:
		s.Structure = sc
	}
}

// Options translates the config into cloth construction options.
func (c *Config) Options() ([]cloth.Option, error) {
	method, err := integrators.ParseMethod(c.Integrator)
	if err != nil {
		return nil, err
	}
	pin, err := cloth.ParsePinMode(c.PinMode)
	if err != nil {
		return nil, err
	}

	opts := []cloth.Option{
		cloth.WithGravity(mgl64.Vec3(c.Gravity)),
		cloth.WithMaxSpeed(c.MaxSpeed),
		cloth.WithPinMode(pin),
		cloth.WithIntegrator(method),
		cloth.WithStretchLimit(c.Stretch.Iterations, c.Stretch.MaxRatio),
		cloth.WithBiphasic(cloth.Biphasic{
			Enabled:   c.Biphasic.Enabled,
			Threshold: c.Biphasic.Threshold,
			Scale:     c.Biphasic.Scale,
		}),
	}

	for _, t := range cloth.SpringTypes() {
		s := c.Springs.Get(t)
		opts = append(opts, cloth.WithSpring(t, s.Stiffness, s.Damping))
	}

	for _, e := range c.Colliders.Ellipsoids {
		col, err := cloth.NewEllipsoid(mgl64.Vec3(e.Center), mgl64.Vec3(e.Radii))
		if err != nil {
			return nil, err
		}
		opts = append(opts, cloth.WithCollider(col))
	}
	if c.Colliders.Ground != nil {
		opts = append(opts, cloth.WithCollider(cloth.Plane{Height: *c.Colliders.Ground}))
	}
	return opts, nil
}

// Build validates the config and constructs the cloth it describes.
func (c *Config) Build() (*cloth.Cloth, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	return cloth.New(c.NumX, c.NumY, c.Spacing, c.Mass, opts...)
}

// RunConfig returns the headless runner settings.
func (c *Config) RunConfig() sim.Config {
	return sim.Config{
		Dt:                c.Dt,
		Duration:          c.Duration,
		SampleEvery:       c.SampleEvery,
		StopOnInstability: c.PauseOnInstability,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Colliders.Ellipsoids = append([]EllipsoidConfig(nil), c.Colliders.Ellipsoids...)
	if c.Colliders.Ground != nil {
		g := *c.Colliders.Ground
		out.Colliders.Ground = &g
	}
	return &out
}
