package cloth

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/integrators"
)

// Engine defaults.
const (
	DefaultMaxSpeed = 20.0

	DefaultStructureStiffness = 75.0
	DefaultStructureDamping   = 0.5
	DefaultShearStiffness     = 50.0
	DefaultShearDamping       = 0.3
	DefaultBendStiffness      = 10.0
	DefaultBendDamping        = 0.1
)

// DefaultGravity is scaled for grids with decimetre spacing and unit
// particle mass.
var DefaultGravity = mgl64.Vec3{0, -0.00981, 0}

// DefaultCoefficients returns the per-category stiffness and damping.
func DefaultCoefficients() [numSpringTypes]Coefficients {
	return [numSpringTypes]Coefficients{
		Structure: {Stiffness: DefaultStructureStiffness, Damping: DefaultStructureDamping},
		Shear:     {Stiffness: DefaultShearStiffness, Damping: DefaultShearDamping},
		Bend:      {Stiffness: DefaultBendStiffness, Damping: DefaultBendDamping},
	}
}

// Option customizes a Cloth at construction. Values are validated by New.
type Option func(*Cloth)

func WithGravity(g mgl64.Vec3) Option {
	return func(c *Cloth) { c.gravity = g }
}

func WithMaxSpeed(s float64) Option {
	return func(c *Cloth) { c.maxSpeed = s }
}

func WithSpring(t SpringType, stiffness, damping float64) Option {
	return func(c *Cloth) {
		if t >= 0 && t < numSpringTypes {
			c.coeffs[t] = Coefficients{Stiffness: stiffness, Damping: damping}
		}
	}
}

func WithPinMode(p PinMode) Option {
	return func(c *Cloth) { c.pinMode = p }
}

func WithIntegrator(m integrators.Method) Option {
	return func(c *Cloth) { c.method = m }
}

func WithStretchLimit(iterations int, maxRatio float64) Option {
	return func(c *Cloth) { c.stretch = StretchLimit{Iterations: iterations, MaxRatio: maxRatio} }
}

func WithCollider(col Collider) Option {
	return func(c *Cloth) { c.colliders = append(c.colliders, col) }
}

func WithBiphasic(b Biphasic) Option {
	return func(c *Cloth) { c.biphasic = b }
}

func WithThresholds(t Thresholds) Option {
	return func(c *Cloth) { c.thresholds = t }
}
