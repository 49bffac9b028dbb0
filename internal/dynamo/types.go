package dynamo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ForceFunc returns the net force on every particle for the given
// positions and velocities. Implementations must not mutate their inputs.
type ForceFunc func(x, v []mgl64.Vec3) []mgl64.Vec3

// Integrator advances positions and velocities by dt. Pinned entries are
// returned unchanged and the input slices are never written.
type Integrator interface {
	Integrate(x, v []mgl64.Vec3, dt, mass float64, pinned []bool, force ForceFunc) ([]mgl64.Vec3, []mgl64.Vec3)
}

// Resetter is implemented by integrators that keep state between steps.
type Resetter interface {
	Reset()
}

// PositionHistory is implemented by integrators whose velocity is implied
// by a stored previous position. Collision projection overwrites it so a
// correction does not turn into velocity on the next step.
type PositionHistory interface {
	SetPrevious(i int, p mgl64.Vec3)
}

// Clone returns a copy of a vector slice.
func Clone(s []mgl64.Vec3) []mgl64.Vec3 {
	c := make([]mgl64.Vec3, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every component is finite.
func IsValid(s []mgl64.Vec3) bool {
	for _, v := range s {
		for _, c := range v {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	return true
}

// IsFinite reports whether a single vector is finite.
func IsFinite(v mgl64.Vec3) bool {
	return IsValid([]mgl64.Vec3{v})
}

// Flatten packs vectors as x0, y0, z0, x1, ...
func Flatten(s []mgl64.Vec3) []float64 {
	out := make([]float64, 0, len(s)*3)
	for _, v := range s {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}
