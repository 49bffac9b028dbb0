package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// Simulator runs a cloth headless for a fixed duration.
type Simulator struct {
	cloth     *cloth.Cloth
	metrics   []Metric
	observers []Observer
}

func New(c *cloth.Cloth) *Simulator {
	return &Simulator{
		cloth:     c,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) Cloth() *cloth.Cloth    { return s.cloth }

// Run steps the cloth from its current state. On cancellation the partial
// result is returned with an error wrapping ErrContextCanceled. Numerical
// failures end the run early and are recorded in Result.Errors.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	every := cfg.sampleEvery()
	result := &Result{
		Width:         s.cloth.Width(),
		Height:        s.cloth.Height(),
		Samples:       make([]Sample, 0, steps/every+2),
		Instabilities: make([]Instability, 0),
		Metrics:       make(map[string]float64),
		Errors:        make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	c := s.cloth
	start := c.Steps()
	s.record(result, cfg, cloth.Stability{})

	last := start
	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			s.collect(result)
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		if err := c.Step(cfg.Dt); err != nil {
			result.Errors = append(result.Errors, &dynamo.SimulationError{Step: start + i, Time: c.Time(), Wrapped: err})
			break
		}
		result.StepsTaken++

		st := c.CheckStability()
		frame := Frame{Step: c.Steps(), Time: c.Time(), Cloth: c, Stability: st}
		for _, m := range s.metrics {
			m.Observe(frame)
		}
		for _, obs := range s.observers {
			obs.OnStep(frame)
		}

		if !c.IsValid() {
			result.Errors = append(result.Errors, &dynamo.SimulationError{Step: c.Steps(), Time: c.Time(), Wrapped: dynamo.ErrInvalidState})
			s.record(result, cfg, st)
			last = c.Steps()
			break
		}

		if st.Unstable() {
			result.Instabilities = append(result.Instabilities, Instability{
				Step:         c.Steps(),
				Time:         c.Time(),
				Overextended: st.Overextended,
				VelocityJump: st.VelocityJump,
			})
			if cfg.StopOnInstability {
				result.Errors = append(result.Errors, &dynamo.SimulationError{Step: c.Steps(), Time: c.Time(), Wrapped: dynamo.ErrUnstable})
				s.record(result, cfg, st)
				last = c.Steps()
				break
			}
		}

		if i%every == 0 {
			s.record(result, cfg, st)
			last = c.Steps()
		}
	}

	if last != c.Steps() {
		s.record(result, cfg, cloth.Stability{})
	}

	s.collect(result)
	return result, nil
}

func (s *Simulator) record(result *Result, cfg Config, st cloth.Stability) {
	c := s.cloth
	result.Samples = append(result.Samples, Sample{
		Step:                c.Steps(),
		Time:                c.Time(),
		KineticEnergy:       c.KineticEnergy(),
		GravitationalEnergy: c.GravitationalEnergy(),
		ElasticEnergy:       c.ElasticEnergy(),
		MaxStretch:          c.MaxStretchRatio(),
		Unstable:            st.Unstable(),
	})
	if cfg.RecordFrames {
		result.Frames = append(result.Frames, Snapshot{Step: c.Steps(), Time: c.Time(), Positions: c.Positions()})
	}
}

func (s *Simulator) collect(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
