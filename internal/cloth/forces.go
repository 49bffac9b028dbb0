package cloth

import (
	"github.com/go-gl/mathgl/mgl64"
)

// degenerateLength is the spring length below which the direction is
// undefined and the spring is skipped for that evaluation.
const degenerateLength = 1e-7

// Biphasic stiffens a spring once it is stretched past Threshold times its
// rest length. Disabled by default.
type Biphasic struct {
	Enabled   bool
	Threshold float64
	Scale     float64
}

// DefaultBiphasic returns the stiffening curve with the usual constants,
// switched off.
func DefaultBiphasic() Biphasic {
	return Biphasic{Threshold: 1.1, Scale: 2.0}
}

// ForceModel evaluates gravity and spring-damper forces. It only reads its
// fields, so one model may be evaluated any number of times per step.
type ForceModel struct {
	Springs  []Spring
	Pinned   []bool
	Mass     float64
	Gravity  mgl64.Vec3
	Biphasic Biphasic
}

// Forces returns the net force on each particle. Pinned particles always
// receive zero force.
func (fm *ForceModel) Forces(x, v []mgl64.Vec3) []mgl64.Vec3 {
	f := make([]mgl64.Vec3, len(x))

	weight := fm.Gravity.Mul(fm.Mass)
	for i := range x {
		if fm.pinned(i) {
			continue
		}
		f[i] = weight
	}

	for _, s := range fm.Springs {
		pinnedA, pinnedB := fm.pinned(s.P1), fm.pinned(s.P2)
		if pinnedA && pinnedB {
			continue
		}

		delta := x[s.P1].Sub(x[s.P2])
		dist := delta.Len()
		if dist < degenerateLength {
			continue
		}
		dir := delta.Mul(1 / dist)

		k := s.Stiffness
		if fm.Biphasic.Enabled && dist > s.RestLength*fm.Biphasic.Threshold {
			k *= fm.Biphasic.Scale
		}

		springMag := -k * (dist - s.RestLength)
		// damping opposes the relative velocity along the spring axis
		dampMag := -s.Damping * v[s.P1].Sub(v[s.P2]).Dot(dir)
		force := dir.Mul(springMag + dampMag)

		if !pinnedA {
			f[s.P1] = f[s.P1].Add(force)
		}
		if !pinnedB {
			f[s.P2] = f[s.P2].Sub(force)
		}
	}

	return f
}

func (fm *ForceModel) pinned(i int) bool {
	return i < len(fm.Pinned) && fm.Pinned[i]
}
