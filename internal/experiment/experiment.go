package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/metrics"
	"github.com/san-kum/clothsim/internal/sim"
)

// Experiment is one headless run of a configured cloth.
type Experiment struct {
	name      string
	cfg       *config.Config
	run       sim.Config
	simulator *sim.Simulator
	elapsed   time.Duration
}

func New(name string, cfg *config.Config) *Experiment {
	return &Experiment{name: name, cfg: cfg, run: cfg.RunConfig()}
}

// RecordFrames keeps a position snapshot alongside every sample.
func (e *Experiment) RecordFrames(on bool) { e.run.RecordFrames = on }

// Setup builds the cloth and attaches metrics. With no metrics given the
// standard set is used.
func (e *Experiment) Setup(ms ...sim.Metric) error {
	c, err := e.cfg.Build()
	if err != nil {
		return err
	}
	if len(ms) == 0 {
		ms = metrics.Standard()
	}
	e.simulator = sim.New(c)
	for _, m := range ms {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment %s not set up", e.name)
	}
	start := time.Now()
	result, err := e.simulator.Run(ctx, e.run)
	e.elapsed = time.Since(start)
	return result, err
}

func (e *Experiment) Name() string              { return e.name }
func (e *Experiment) Config() *config.Config    { return e.cfg }
func (e *Experiment) RunConfig() sim.Config     { return e.run }
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

// Elapsed is the wall time of the last Run.
func (e *Experiment) Elapsed() time.Duration { return e.elapsed }
