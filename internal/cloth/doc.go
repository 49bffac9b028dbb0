// Package cloth implements a mass-spring cloth: a rectangular particle grid
// joined by structural, shear and bend springs.
//
// A [Cloth] owns the particles, the springs, the pin flags and the active
// integrator. Each [Cloth.Step] evaluates the [ForceModel] through the
// integrator, clamps velocities, applies the optional stretch limit and
// collision projection, and commits the result without touching pinned
// particles.
//
//	c, err := cloth.New(20, 20, 0.1, 1.0,
//	    cloth.WithPinMode(cloth.PinTopCorners),
//	    cloth.WithIntegrator(integrators.Verlet),
//	)
//	for i := 0; i < 100; i++ {
//	    _ = c.Step(0.016)
//	}
//	positions := c.Positions()
//
// # Stability
//
// The engine never corrects instability on its own. [Cloth.CheckStability]
// reports overextended springs and velocity jumps so the caller can pause,
// shrink dt or reset.
//
// # Thread Safety
//
// A Cloth is not safe for concurrent use. Independent instances may be
// stepped from different goroutines.
package cloth
