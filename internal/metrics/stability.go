package metrics

import (
	"math"

	"github.com/san-kum/clothsim/internal/sim"
)

// Stability is the fraction of observed steps on which neither
// instability detector fired.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f sim.Frame) {
	s.samples++
	if f.Stability.Unstable() {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// InstabilityCount counts steps flagged unstable.
type InstabilityCount struct {
	count int
}

func NewInstabilityCount() *InstabilityCount { return &InstabilityCount{} }

func (c *InstabilityCount) Name() string { return "instabilities" }
func (c *InstabilityCount) Observe(f sim.Frame) {
	if f.Stability.Unstable() {
		c.count++
	}
}
func (c *InstabilityCount) Value() float64 { return float64(c.count) }
func (c *InstabilityCount) Reset()         { c.count = 0 }

// MaxStretch is the worst spring extension ratio seen during the run.
type MaxStretch struct {
	worst float64
}

func NewMaxStretch() *MaxStretch { return &MaxStretch{} }

func (m *MaxStretch) Name() string { return "max_stretch" }

func (m *MaxStretch) Observe(f sim.Frame) {
	m.worst = math.Max(m.worst, f.Cloth.MaxStretchRatio())
}

func (m *MaxStretch) Value() float64 { return m.worst }
func (m *MaxStretch) Reset()         { m.worst = 0 }

// Standard returns a fresh set of every metric in this package.
func Standard() []sim.Metric {
	return []sim.Metric{
		NewKineticEnergy(),
		NewTotalEnergy(),
		NewEnergyDrift(),
		NewMaxStretch(),
		NewInstabilityCount(),
		NewStability(),
	}
}
