package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// Frame is what metrics and observers see after each step. Cloth is the
// live instance and must not be retained or mutated.
type Frame struct {
	Step      int
	Time      float64
	Cloth     *cloth.Cloth
	Stability cloth.Stability
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f Frame)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(f Frame)

func (fn ObserverFunc) OnStep(f Frame) { fn(f) }

type Config struct {
	Dt       float64
	Duration float64
	// SampleEvery records a sample (and a snapshot when RecordFrames is
	// set) every N steps. Zero means every step.
	SampleEvery       int
	RecordFrames      bool
	StopOnInstability bool
}

func (c Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("dt=%g: %w", c.Dt, dynamo.ErrInvalidTimeStep)
	}
	if !(c.Duration > 0) {
		return dynamo.Bounds("duration", c.Duration)
	}
	if c.SampleEvery < 0 {
		return dynamo.Bounds("sample_every", float64(c.SampleEvery))
	}
	return nil
}

// Steps is the number of whole steps that fit in Duration.
func (c Config) Steps() int {
	return int(c.Duration/c.Dt + 1e-9)
}

func (c Config) sampleEvery() int {
	if c.SampleEvery < 1 {
		return 1
	}
	return c.SampleEvery
}

// Sample is one row of the energy and stretch time series.
type Sample struct {
	Step                int
	Time                float64
	KineticEnergy       float64
	GravitationalEnergy float64
	ElasticEnergy       float64
	MaxStretch          float64
	Unstable            bool
}

func (s Sample) TotalEnergy() float64 {
	return s.KineticEnergy + s.GravitationalEnergy + s.ElasticEnergy
}

// Snapshot holds particle positions at one sampled step.
type Snapshot struct {
	Step      int
	Time      float64
	Positions []mgl64.Vec3
}

// Instability records a step at which a detector fired.
type Instability struct {
	Step         int
	Time         float64
	Overextended bool
	VelocityJump bool
}

type Result struct {
	Width, Height int
	Samples       []Sample
	Frames        []Snapshot
	Instabilities []Instability
	Metrics       map[string]float64
	Errors        []error
	StepsTaken    int
}

// Times returns the sample times.
func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Time
	}
	return out
}

// Series extracts one named column from the samples. Known names are
// kinetic, gravitational, elastic, total and stretch.
func (r *Result) Series(name string) ([]float64, error) {
	var pick func(Sample) float64
	switch name {
	case "kinetic":
		pick = func(s Sample) float64 { return s.KineticEnergy }
	case "gravitational":
		pick = func(s Sample) float64 { return s.GravitationalEnergy }
	case "elastic":
		pick = func(s Sample) float64 { return s.ElasticEnergy }
	case "total":
		pick = Sample.TotalEnergy
	case "stretch":
		pick = func(s Sample) float64 { return s.MaxStretch }
	default:
		return nil, fmt.Errorf("unknown series %q: %w", name, dynamo.ErrInvalidConfig)
	}
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = pick(s)
	}
	return out, nil
}

// SeriesNames lists the columns accepted by Series.
func SeriesNames() []string {
	return []string{"kinetic", "gravitational", "elastic", "total", "stretch"}
}

// Unstable reports whether any instability was recorded.
func (r *Result) Unstable() bool {
	return len(r.Instabilities) > 0
}

// Err returns the first recorded error, if any.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}
