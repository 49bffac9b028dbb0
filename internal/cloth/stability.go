package cloth

import (
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultMaxExtensionRatio      = 3.0
	DefaultMaxVelocityChangeRatio = 5.0
	DefaultMinSignificantSpeed    = 0.01
)

// Thresholds tune the instability detectors.
type Thresholds struct {
	MaxExtensionRatio      float64
	MaxVelocityChangeRatio float64
	MinSignificantSpeed    float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxExtensionRatio:      DefaultMaxExtensionRatio,
		MaxVelocityChangeRatio: DefaultMaxVelocityChangeRatio,
		MinSignificantSpeed:    DefaultMinSignificantSpeed,
	}
}

// Stability is the result of one diagnostic pass.
type Stability struct {
	Overextended bool
	VelocityJump bool
}

func (s Stability) Unstable() bool {
	return s.Overextended || s.VelocityJump
}

// Overextended reports whether any spring is longer than ratio times its
// rest length.
func Overextended(x []mgl64.Vec3, springs []Spring, ratio float64) bool {
	for _, s := range springs {
		if x[s.P1].Sub(x[s.P2]).Len() > s.RestLength*ratio {
			return true
		}
	}
	return false
}

// MaxStretchRatio returns the largest current/rest length ratio.
func MaxStretchRatio(x []mgl64.Vec3, springs []Spring) float64 {
	worst := 0.0
	for _, s := range springs {
		if s.RestLength <= 0 {
			continue
		}
		if r := x[s.P1].Sub(x[s.P2]).Len() / s.RestLength; r > worst {
			worst = r
		}
	}
	return worst
}

// VelocityMonitor compares each particle's speed with the speed it had at
// the previous check. The first check only records speeds.
type VelocityMonitor struct {
	thresholds Thresholds
	prev       []float64
	primed     bool
}

func NewVelocityMonitor(t Thresholds) *VelocityMonitor {
	return &VelocityMonitor{thresholds: t}
}

// Check reports whether any unpinned particle sped up by more than the
// configured ratio. Speeds are recorded for the next call either way.
func (m *VelocityMonitor) Check(v []mgl64.Vec3, pinned []bool) bool {
	if !m.primed || len(m.prev) != len(v) {
		m.record(v)
		m.primed = true
		return false
	}

	jump := false
	for i := range v {
		if i < len(pinned) && pinned[i] {
			continue
		}
		prevSpeed := m.prev[i]
		if prevSpeed > m.thresholds.MinSignificantSpeed && v[i].Len()/prevSpeed > m.thresholds.MaxVelocityChangeRatio {
			jump = true
			break
		}
	}

	m.record(v)
	return jump
}

// Reset forgets the recorded speeds.
func (m *VelocityMonitor) Reset() {
	m.prev = nil
	m.primed = false
}

func (m *VelocityMonitor) record(v []mgl64.Vec3) {
	if len(m.prev) != len(v) {
		m.prev = make([]float64, len(v))
	}
	for i := range v {
		m.prev[i] = v[i].Len()
	}
}
