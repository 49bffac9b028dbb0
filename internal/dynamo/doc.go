// Package dynamo provides core primitives shared by the cloth engine.
//
// The package defines the contracts between the force model, the
// integrators and the simulation runner:
//
//   - [ForceFunc]: force evaluation over a position/velocity snapshot
//   - [Integrator]: advances (X, V) by one time step
//   - [Resetter]: integrators that carry history across steps
//   - [PositionHistory]: integrators whose history can be corrected
//
// # Example
//
//	integ := integrators.New(integrators.RK4)
//	x, v = integ.Integrate(x, v, dt, mass, pinned, forces)
//
// # Thread Safety
//
// Integrators with history are NOT thread-safe. Each cloth instance owns
// its integrator exclusively; use [ParallelFor] to step independent
// instances concurrently.
package dynamo
