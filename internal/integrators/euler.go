package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// Euler is the semi-implicit Euler scheme: the position update uses the
// already advanced velocity.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Integrate(x, v []mgl64.Vec3, dt, mass float64, pinned []bool, force dynamo.ForceFunc) ([]mgl64.Vec3, []mgl64.Vec3) {
	xOut := dynamo.Clone(x)
	vOut := dynamo.Clone(v)

	f := force(x, v)
	for i := range x {
		if isPinned(pinned, i) {
			continue
		}
		a := f[i].Mul(1 / mass)
		vOut[i] = v[i].Add(a.Mul(dt))
		xOut[i] = x[i].Add(vOut[i].Mul(dt))
	}

	return xOut, vOut
}

func isPinned(pinned []bool, i int) bool {
	return i < len(pinned) && pinned[i]
}
