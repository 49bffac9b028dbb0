package metrics

import (
	"math"

	"github.com/san-kum/clothsim/internal/sim"
)

// Energy averages one energy quantity over the observed steps.
type Energy struct {
	name    string
	measure func(sim.Frame) float64
	samples int
	sum     float64
}

// NewKineticEnergy tracks the mean kinetic energy of the free particles.
func NewKineticEnergy() *Energy {
	return &Energy{
		name:    "kinetic_energy",
		measure: func(f sim.Frame) float64 { return f.Cloth.KineticEnergy() },
	}
}

// NewTotalEnergy tracks the mean of kinetic, gravitational and elastic
// energy combined.
func NewTotalEnergy() *Energy {
	return &Energy{name: "total_energy", measure: totalEnergy}
}

func totalEnergy(f sim.Frame) float64 {
	c := f.Cloth
	return c.KineticEnergy() + c.GravitationalEnergy() + c.ElasticEnergy()
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f sim.Frame) {
	e.sum += e.measure(f)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *Energy) Reset() {
	e.sum = 0
	e.samples = 0
}

// EnergyDrift is the largest relative change of total energy from the
// first observed step. Damped cloth is expected to drift downward; large
// values on a lightly damped cloth point at the integrator.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f sim.Frame) {
	energy := totalEnergy(f)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

// Current returns the total energy at the latest observation.
func (e *EnergyDrift) Current() float64 {
	return e.currentEnergy
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
