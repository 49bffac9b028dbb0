package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// DefaultMaxSubsteps bounds the work done by one Advance call.
const DefaultMaxSubsteps = 64

// Driver decouples wall-clock frames from the fixed simulation step. Each
// Advance adds elapsed real time to an accumulator and drains it in whole
// steps of Dt.
type Driver struct {
	cloth *cloth.Cloth
	dt    float64

	accumulator        float64
	simTime            float64
	paused             bool
	pauseOnInstability bool
	maxSubsteps        int

	last          cloth.Stability
	unstableSteps int
	dropped       float64
}

func NewDriver(c *cloth.Cloth, dt float64) (*Driver, error) {
	d := &Driver{cloth: c, maxSubsteps: DefaultMaxSubsteps}
	if err := d.SetDt(dt); err != nil {
		return nil, err
	}
	return d, nil
}

// Advance consumes elapsed seconds of real time and returns the number of
// steps taken. Time beyond MaxSubsteps steps is dropped rather than
// carried into the next frame.
func (d *Driver) Advance(elapsed float64) (int, error) {
	if d.paused || !(elapsed > 0) || math.IsInf(elapsed, 0) {
		return 0, nil
	}
	d.accumulator += elapsed

	n := 0
	for d.accumulator >= d.dt {
		if n >= d.maxSubsteps {
			d.dropped += d.accumulator
			d.accumulator = 0
			break
		}
		if err := d.cloth.Step(d.dt); err != nil {
			return n, &dynamo.SimulationError{Step: d.cloth.Steps(), Time: d.simTime, Wrapped: err}
		}
		d.accumulator -= d.dt
		d.simTime += d.dt
		n++

		st := d.cloth.CheckStability()
		d.last = st
		if !st.Unstable() {
			continue
		}
		d.unstableSteps++
		if d.pauseOnInstability {
			d.paused = true
			d.accumulator = 0
			break
		}
	}
	return n, nil
}

// StepOnce takes a single step regardless of the pause flag.
func (d *Driver) StepOnce() error {
	if err := d.cloth.Step(d.dt); err != nil {
		return &dynamo.SimulationError{Step: d.cloth.Steps(), Time: d.simTime, Wrapped: err}
	}
	d.simTime += d.dt
	d.last = d.cloth.CheckStability()
	if d.last.Unstable() {
		d.unstableSteps++
	}
	return nil
}

func (d *Driver) SetDt(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("dt=%g: %w", dt, dynamo.ErrInvalidTimeStep)
	}
	d.dt = dt
	return nil
}

func (d *Driver) SetMaxSubsteps(n int) error {
	if n < 1 {
		return dynamo.Bounds("max_substeps", float64(n))
	}
	d.maxSubsteps = n
	return nil
}

func (d *Driver) SetPauseOnInstability(on bool) { d.pauseOnInstability = on }
func (d *Driver) Pause()                        { d.paused = true }
func (d *Driver) Resume()                       { d.paused = false }
func (d *Driver) Toggle()                       { d.paused = !d.paused }

// Reset rebuilds the cloth and clears all timing state. The pause flag is
// kept.
func (d *Driver) Reset() {
	d.cloth.Reset()
	d.accumulator = 0
	d.simTime = 0
	d.last = cloth.Stability{}
	d.unstableSteps = 0
	d.dropped = 0
}

func (d *Driver) Cloth() *cloth.Cloth            { return d.cloth }
func (d *Driver) Dt() float64                    { return d.dt }
func (d *Driver) Paused() bool                   { return d.paused }
func (d *Driver) PauseOnInstability() bool       { return d.pauseOnInstability }
func (d *Driver) SimTime() float64               { return d.simTime }
func (d *Driver) Accumulated() float64           { return d.accumulator }
func (d *Driver) LastStability() cloth.Stability { return d.last }
func (d *Driver) UnstableSteps() int             { return d.unstableSteps }
func (d *Driver) DroppedTime() float64           { return d.dropped }
