package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// scalar params addressable by dotted name, used by sweeps and --set.
var params = map[string]func(*Config) *float64{
	"spacing":            func(c *Config) *float64 { return &c.Spacing },
	"mass":               func(c *Config) *float64 { return &c.Mass },
	"max_speed":          func(c *Config) *float64 { return &c.MaxSpeed },
	"dt":                 func(c *Config) *float64 { return &c.Dt },
	"duration":           func(c *Config) *float64 { return &c.Duration },
	"gravity":            func(c *Config) *float64 { return &c.Gravity[1] },
	"stretch.max_ratio":  func(c *Config) *float64 { return &c.Stretch.MaxRatio },
	"biphasic.threshold": func(c *Config) *float64 { return &c.Biphasic.Threshold },
	"biphasic.scale":     func(c *Config) *float64 { return &c.Biphasic.Scale },
}

func init() {
	for _, t := range cloth.SpringTypes() {
		params[t.String()+".stiffness"] = func(c *Config) *float64 { return &c.Springs.field(t).Stiffness }
		params[t.String()+".damping"] = func(c *Config) *float64 { return &c.Springs.field(t).Damping }
	}
}

func (s *SpringsConfig) field(t cloth.SpringType) *SpringConfig {
	switch t {
	case cloth.Shear:
		return &s.Shear
	case cloth.Bend:
		return &s.Bend
	default:
		return &s.Structure
	}
}

// ParamNames lists the names accepted by Param and SetParam.
func ParamNames() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Param reads a scalar field by name. "gravity" is the vertical component.
func (c *Config) Param(name string) (float64, error) {
	get, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("unknown parameter %q: %w", name, dynamo.ErrInvalidConfig)
	}
	return *get(c), nil
}

// SetParam writes a scalar field by name without validating the result.
func (c *Config) SetParam(name string, v float64) error {
	get, ok := params[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q: %w", name, dynamo.ErrInvalidConfig)
	}
	*get(c) = v
	return nil
}

// ApplyAssignments applies "name=value" pairs in order and validates the
// result.
func (c *Config) ApplyAssignments(pairs []string) error {
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("expected name=value, got %q: %w", pair, dynamo.ErrInvalidConfig)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%s: %w", pair, dynamo.ErrInvalidConfig)
		}
		if err := c.SetParam(strings.TrimSpace(name), v); err != nil {
			return err
		}
	}
	return c.Validate()
}
