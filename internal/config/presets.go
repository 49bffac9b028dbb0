package config

import (
	"sort"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/integrators"
)

var Presets = map[string]*Config{
	"hanging": DefaultConfig(),
	"trampoline": with(func(c *Config) {
		c.PinMode = cloth.PinFourCorners.String()
		c.Gravity = [3]float64{0, -0.05, 0}
		c.Stretch = StretchConfig{Iterations: 1, MaxRatio: 1.1}
	}),
	"drape": with(func(c *Config) {
		c.NumX, c.NumY = 16, 16
		c.PinMode = cloth.PinNone.String()
		c.Integrator = integrators.Verlet.String()
		c.Gravity = [3]float64{0, -0.05, 0}
		c.Stretch = StretchConfig{Iterations: 2, MaxRatio: 1.1}
		c.Colliders.Ellipsoids = []EllipsoidConfig{
			{Center: [3]float64{0.8, -0.6, -0.8}, Radii: [3]float64{0.5, 0.3, 0.5}},
		}
		c.Duration = 20
	}),
	"stiff": with(func(c *Config) {
		c.Springs = SpringsConfig{
			Structure: SpringConfig{Stiffness: cloth.DefaultStructureStiffness, Damping: cloth.DefaultStructureDamping},
			Shear:     SpringConfig{Stiffness: cloth.DefaultShearStiffness, Damping: cloth.DefaultShearDamping},
			Bend:      SpringConfig{Stiffness: cloth.DefaultBendStiffness, Damping: cloth.DefaultBendDamping},
		}
		c.MaxSpeed = cloth.DefaultMaxSpeed
		c.Integrator = integrators.RK4.String()
		c.Dt = 0.005
		c.Stretch = StretchConfig{Iterations: 1, MaxRatio: 1.1}
	}),
	"flag": with(func(c *Config) {
		c.NumX, c.NumY = 24, 12
		c.Gravity = [3]float64{0.02, -0.00981, 0.01}
		c.Biphasic.Enabled = true
	}),
}

func with(edit func(*Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
