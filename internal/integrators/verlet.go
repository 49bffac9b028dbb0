package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// VerletIntegrator is position Verlet with a central-difference velocity estimate.
// It remembers the positions from the previous call; Reset must be called
// whenever the particle set changes.
type VerletIntegrator struct {
	prev        []mgl64.Vec3
	initialized bool
}

func NewVerlet() *VerletIntegrator {
	return &VerletIntegrator{}
}

func (vl *VerletIntegrator) Integrate(x, v []mgl64.Vec3, dt, mass float64, pinned []bool, force dynamo.ForceFunc) ([]mgl64.Vec3, []mgl64.Vec3) {
	n := len(x)
	if !vl.initialized || len(vl.prev) != n {
		vl.prev = make([]mgl64.Vec3, n)
		for i := range x {
			vl.prev[i] = x[i].Sub(v[i].Mul(dt))
		}
		vl.initialized = true
	}

	xOut := dynamo.Clone(x)
	vOut := dynamo.Clone(v)

	f := force(x, v)
	dt2 := dt * dt
	for i := 0; i < n; i++ {
		if isPinned(pinned, i) {
			continue
		}
		a := f[i].Mul(1 / mass)
		next := x[i].Mul(2).Sub(vl.prev[i]).Add(a.Mul(dt2))
		vOut[i] = next.Sub(vl.prev[i]).Mul(1 / (2 * dt))
		xOut[i] = next
	}

	copy(vl.prev, x)
	return xOut, vOut
}

// Reset drops the position history.
func (vl *VerletIntegrator) Reset() {
	vl.initialized = false
	vl.prev = nil
}

// SetPrevious overwrites the remembered position of particle i. It is a
// no-op before the first step.
func (vl *VerletIntegrator) SetPrevious(i int, p mgl64.Vec3) {
	if !vl.initialized || i < 0 || i >= len(vl.prev) {
		return
	}
	vl.prev[i] = p
}

// Previous returns a copy of the position history, or nil before the
// first step.
func (vl *VerletIntegrator) Previous() []mgl64.Vec3 {
	if !vl.initialized {
		return nil
	}
	return dynamo.Clone(vl.prev)
}
