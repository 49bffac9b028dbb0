package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// RK4Integrator is the classic fourth-order Runge-Kutta scheme over the coupled
// system dX/dt = V, dV/dt = F/m.
type RK4Integrator struct {
	k1x, k1v, k2x, k2v []mgl64.Vec3
	k3x, k3v, k4x, k4v []mgl64.Vec3
	sx, sv             []mgl64.Vec3
}

func NewRK4() *RK4Integrator {
	return &RK4Integrator{}
}

func (r *RK4Integrator) ensureScratch(n int) {
	if len(r.k1x) != n {
		r.k1x, r.k1v = make([]mgl64.Vec3, n), make([]mgl64.Vec3, n)
		r.k2x, r.k2v = make([]mgl64.Vec3, n), make([]mgl64.Vec3, n)
		r.k3x, r.k3v = make([]mgl64.Vec3, n), make([]mgl64.Vec3, n)
		r.k4x, r.k4v = make([]mgl64.Vec3, n), make([]mgl64.Vec3, n)
		r.sx, r.sv = make([]mgl64.Vec3, n), make([]mgl64.Vec3, n)
	}
}

// stage records the derivative at the scratch state (sx, sv).
func (r *RK4Integrator) stage(kx, kv []mgl64.Vec3, invMass float64, force dynamo.ForceFunc) {
	f := force(r.sx, r.sv)
	for i := range r.sx {
		kx[i] = r.sv[i]
		kv[i] = f[i].Mul(invMass)
	}
}

// advance sets the scratch state to (x, v) + h*(kx, kv). Pinned entries
// stay at their start values so the force model sees them fixed.
func (r *RK4Integrator) advance(x, v, kx, kv []mgl64.Vec3, h float64, pinned []bool) {
	for i := range x {
		if isPinned(pinned, i) {
			r.sx[i], r.sv[i] = x[i], v[i]
			continue
		}
		r.sx[i] = x[i].Add(kx[i].Mul(h))
		r.sv[i] = v[i].Add(kv[i].Mul(h))
	}
}

func (r *RK4Integrator) Integrate(x, v []mgl64.Vec3, dt, mass float64, pinned []bool, force dynamo.ForceFunc) ([]mgl64.Vec3, []mgl64.Vec3) {
	n := len(x)
	r.ensureScratch(n)
	invMass := 1 / mass

	copy(r.sx, x)
	copy(r.sv, v)
	r.stage(r.k1x, r.k1v, invMass, force)

	r.advance(x, v, r.k1x, r.k1v, 0.5*dt, pinned)
	r.stage(r.k2x, r.k2v, invMass, force)

	r.advance(x, v, r.k2x, r.k2v, 0.5*dt, pinned)
	r.stage(r.k3x, r.k3v, invMass, force)

	r.advance(x, v, r.k3x, r.k3v, dt, pinned)
	r.stage(r.k4x, r.k4v, invMass, force)

	xOut := dynamo.Clone(x)
	vOut := dynamo.Clone(v)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		if isPinned(pinned, i) {
			continue
		}
		dx := r.k1x[i].Add(r.k2x[i].Mul(2)).Add(r.k3x[i].Mul(2)).Add(r.k4x[i])
		dv := r.k1v[i].Add(r.k2v[i].Mul(2)).Add(r.k3v[i].Mul(2)).Add(r.k4v[i])
		xOut[i] = x[i].Add(dx.Mul(dt6))
		vOut[i] = v[i].Add(dv.Mul(dt6))
	}

	return xOut, vOut
}
