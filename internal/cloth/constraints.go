package cloth

import (
	"github.com/go-gl/mathgl/mgl64"
)

// StretchLimit configures the Provot position correction. Springs longer
// than MaxRatio times their rest length are shortened back to that length,
// Iterations times per step. Zero iterations disables it.
type StretchLimit struct {
	Iterations int
	MaxRatio   float64
}

// ClampVelocities rescales every velocity faster than maxSpeed down to
// maxSpeed, keeping its direction. It modifies v in place.
func ClampVelocities(v []mgl64.Vec3, maxSpeed float64) {
	for i := range v {
		speed := v[i].Len()
		if speed > maxSpeed {
			v[i] = v[i].Mul(maxSpeed / speed)
		}
	}
}

// LimitStretch runs one Gauss-Seidel pass of the stretch limit over x in
// place. Free endpoints share the correction; a spring with one pinned end
// moves only the free one.
func LimitStretch(x []mgl64.Vec3, springs []Spring, pinned []bool, maxRatio float64) {
	for _, s := range springs {
		pinnedA := s.P1 < len(pinned) && pinned[s.P1]
		pinnedB := s.P2 < len(pinned) && pinned[s.P2]
		if pinnedA && pinnedB {
			continue
		}

		delta := x[s.P1].Sub(x[s.P2])
		dist := delta.Len()
		limit := s.RestLength * maxRatio
		if dist <= limit || dist < degenerateLength {
			continue
		}

		correction := delta.Mul((dist - limit) / dist)
		switch {
		case pinnedA:
			x[s.P2] = x[s.P2].Add(correction)
		case pinnedB:
			x[s.P1] = x[s.P1].Sub(correction)
		default:
			half := correction.Mul(0.5)
			x[s.P1] = x[s.P1].Sub(half)
			x[s.P2] = x[s.P2].Add(half)
		}
	}
}
