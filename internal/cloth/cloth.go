package cloth

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/integrators"
)

// Particle is a read-only snapshot of one point mass.
type Particle struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Mass     float64
	Pinned   bool
}

// Cloth is the simulation state container.
type Cloth struct {
	numX, numY int
	spacing    float64
	mass       float64
	gravity    mgl64.Vec3
	maxSpeed   float64
	coeffs     [numSpringTypes]Coefficients
	biphasic   Biphasic
	stretch    StretchLimit
	colliders  []Collider
	thresholds Thresholds
	pinMode    PinMode
	method     integrators.Method

	x, v       []mgl64.Vec3
	pinned     []bool
	springs    []Spring
	integrator dynamo.Integrator
	monitor    *VelocityMonitor

	steps  int
	time   float64
	lastDt float64
}

// New builds a numX by numY cell cloth with the given spacing and
// per-particle mass.
func New(numX, numY int, spacing, mass float64, opts ...Option) (*Cloth, error) {
	c := &Cloth{
		numX:       numX,
		numY:       numY,
		spacing:    spacing,
		mass:       mass,
		gravity:    DefaultGravity,
		maxSpeed:   DefaultMaxSpeed,
		coeffs:     DefaultCoefficients(),
		biphasic:   DefaultBiphasic(),
		stretch:    StretchLimit{Iterations: 0, MaxRatio: 1.0},
		thresholds: DefaultThresholds(),
		pinMode:    PinNone,
		method:     integrators.ExplicitEuler,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	c.integrator = integrators.New(c.method)
	c.monitor = NewVelocityMonitor(c.thresholds)
	if err := c.build(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cloth) validate() error {
	if !(c.mass > 0) || math.IsInf(c.mass, 0) {
		return dynamo.Bounds("mass", c.mass)
	}
	if !dynamo.IsFinite(c.gravity) {
		return fmt.Errorf("gravity %v: %w", c.gravity, dynamo.ErrParameterBounds)
	}
	if !(c.maxSpeed > 0) {
		return dynamo.Bounds("max_speed", c.maxSpeed)
	}
	for _, t := range SpringTypes() {
		if err := checkCoefficients(t, c.coeffs[t]); err != nil {
			return err
		}
	}
	if err := checkStretch(c.stretch); err != nil {
		return err
	}
	if err := checkBiphasic(c.biphasic); err != nil {
		return err
	}
	if c.pinMode < PinNone || c.pinMode > PinTopCorners {
		return fmt.Errorf("pin mode %d: %w", int(c.pinMode), dynamo.ErrInvalidConfig)
	}
	return checkMethod(c.method)
}

func checkMethod(m integrators.Method) error {
	if !m.Valid() {
		return fmt.Errorf("integrator %s: %w", m, dynamo.ErrInvalidConfig)
	}
	return nil
}

func checkCoefficients(t SpringType, co Coefficients) error {
	if !(co.Stiffness >= 0) || math.IsInf(co.Stiffness, 0) {
		return dynamo.Bounds(t.String()+".stiffness", co.Stiffness)
	}
	if !(co.Damping >= 0) || math.IsInf(co.Damping, 0) {
		return dynamo.Bounds(t.String()+".damping", co.Damping)
	}
	return nil
}

func checkStretch(s StretchLimit) error {
	if s.Iterations < 0 {
		return dynamo.Bounds("stretch.iterations", float64(s.Iterations))
	}
	if !(s.MaxRatio >= 1) || math.IsInf(s.MaxRatio, 0) {
		return dynamo.Bounds("stretch.max_ratio", s.MaxRatio)
	}
	return nil
}

func checkBiphasic(b Biphasic) error {
	if !b.Enabled {
		return nil
	}
	if !(b.Threshold > 0) {
		return dynamo.Bounds("biphasic.threshold", b.Threshold)
	}
	if !(b.Scale > 0) {
		return dynamo.Bounds("biphasic.scale", b.Scale)
	}
	return nil
}

// build discards all particle, spring and history state and recreates the
// mesh from the current parameters.
func (c *Cloth) build() error {
	mesh, err := BuildMesh(c.numX, c.numY, c.spacing, c.coeffs)
	if err != nil {
		return err
	}

	c.x = mesh.Positions
	c.v = make([]mgl64.Vec3, len(mesh.Positions))
	c.springs = mesh.Springs
	c.pinned = cornerPins(c.pinMode, c.numX, c.numY)

	if r, ok := c.integrator.(dynamo.Resetter); ok {
		r.Reset()
	}
	c.monitor.Reset()
	c.steps, c.time, c.lastDt = 0, 0, 0
	return nil
}

// Reset rebuilds the mesh at rest with the current parameters and pin
// mode. Custom pins and integrator history are dropped.
func (c *Cloth) Reset() {
	// parameters were validated when set, so the rebuild cannot fail
	_ = c.build()
}

// ForceModel returns a force model bound to the live spring and pin state.
func (c *Cloth) ForceModel() *ForceModel {
	return &ForceModel{
		Springs:  c.springs,
		Pinned:   c.pinned,
		Mass:     c.mass,
		Gravity:  c.gravity,
		Biphasic: c.biphasic,
	}
}

// Step advances the cloth by dt. A non-positive dt leaves the state
// untouched and returns ErrInvalidTimeStep.
func (c *Cloth) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("dt=%g: %w", dt, dynamo.ErrInvalidTimeStep)
	}

	fm := c.ForceModel()
	x, v := c.integrator.Integrate(c.x, c.v, dt, c.mass, c.pinned, fm.Forces)

	ClampVelocities(v, c.maxSpeed)

	for i := 0; i < c.stretch.Iterations; i++ {
		LimitStretch(x, c.springs, c.pinned, c.stretch.MaxRatio)
	}

	c.collide(x, v)

	for i := range c.x {
		if c.pinned[i] {
			continue
		}
		c.x[i] = x[i]
		c.v[i] = v[i]
	}

	c.steps++
	c.time += dt
	c.lastDt = dt
	return nil
}

func (c *Cloth) collide(x, v []mgl64.Vec3) {
	if len(c.colliders) == 0 {
		return
	}
	history, _ := c.integrator.(dynamo.PositionHistory)

	for _, col := range c.colliders {
		for i := range x {
			if c.pinned[i] {
				continue
			}
			p, hit := col.Project(x[i])
			if !hit {
				continue
			}
			x[i] = p
			v[i] = mgl64.Vec3{}
			if history != nil {
				history.SetPrevious(i, p)
			}
		}
	}
}

// CheckStability runs both instability detectors. The velocity detector
// compares against the previous call, so call it once per step.
func (c *Cloth) CheckStability() Stability {
	return Stability{
		Overextended: c.SpringLengthUnstable(),
		VelocityJump: c.VelocityUnstable(),
	}
}

// SpringLengthUnstable reports whether any spring is stretched past the
// extension threshold.
func (c *Cloth) SpringLengthUnstable() bool {
	return Overextended(c.x, c.springs, c.thresholds.MaxExtensionRatio)
}

// VelocityUnstable reports whether any free particle's speed jumped since
// the last call. The first call reports false.
func (c *Cloth) VelocityUnstable() bool {
	return c.monitor.Check(c.v, c.pinned)
}

// Setters. Each takes effect from the next Step.

func (c *Cloth) SetStiffness(t SpringType, k float64) error {
	if t < 0 || t >= numSpringTypes {
		return fmt.Errorf("spring type %d: %w", int(t), dynamo.ErrInvalidConfig)
	}
	co := Coefficients{Stiffness: k, Damping: c.coeffs[t].Damping}
	if err := checkCoefficients(t, co); err != nil {
		return err
	}
	c.coeffs[t] = co
	for i := range c.springs {
		if c.springs[i].Type == t {
			c.springs[i].Stiffness = k
		}
	}
	return nil
}

func (c *Cloth) SetDamping(t SpringType, d float64) error {
	if t < 0 || t >= numSpringTypes {
		return fmt.Errorf("spring type %d: %w", int(t), dynamo.ErrInvalidConfig)
	}
	co := Coefficients{Stiffness: c.coeffs[t].Stiffness, Damping: d}
	if err := checkCoefficients(t, co); err != nil {
		return err
	}
	c.coeffs[t] = co
	for i := range c.springs {
		if c.springs[i].Type == t {
			c.springs[i].Damping = d
		}
	}
	return nil
}

func (c *Cloth) SetGravity(g mgl64.Vec3) error {
	if !dynamo.IsFinite(g) {
		return fmt.Errorf("gravity %v: %w", g, dynamo.ErrParameterBounds)
	}
	c.gravity = g
	return nil
}

func (c *Cloth) SetMass(m float64) error {
	if !(m > 0) || math.IsInf(m, 0) {
		return dynamo.Bounds("mass", m)
	}
	c.mass = m
	return nil
}

func (c *Cloth) SetMaxSpeed(s float64) error {
	if !(s > 0) {
		return dynamo.Bounds("max_speed", s)
	}
	c.maxSpeed = s
	return nil
}

// SetPinMode replaces all pins with the corner pattern.
func (c *Cloth) SetPinMode(p PinMode) error {
	if p < PinNone || p > PinTopCorners {
		return fmt.Errorf("pin mode %d: %w", int(p), dynamo.ErrInvalidConfig)
	}
	c.pinMode = p
	c.pinned = cornerPins(p, c.numX, c.numY)
	return nil
}

// SetPinned pins or releases a single particle.
func (c *Cloth) SetPinned(i int, pinned bool) error {
	if err := c.checkIndex(i); err != nil {
		return err
	}
	c.pinned[i] = pinned
	return nil
}

// SetIntegrator switches the integration scheme. Selecting the active
// method keeps its history.
func (c *Cloth) SetIntegrator(m integrators.Method) error {
	if err := checkMethod(m); err != nil {
		return err
	}
	if m == c.method && c.integrator != nil {
		return nil
	}
	c.method = m
	c.integrator = integrators.New(m)
	return nil
}

func (c *Cloth) SetStretchLimit(iterations int, maxRatio float64) error {
	s := StretchLimit{Iterations: iterations, MaxRatio: maxRatio}
	if err := checkStretch(s); err != nil {
		return err
	}
	c.stretch = s
	return nil
}

func (c *Cloth) SetBiphasic(b Biphasic) error {
	if err := checkBiphasic(b); err != nil {
		return err
	}
	c.biphasic = b
	return nil
}

func (c *Cloth) AddCollider(col Collider) {
	c.colliders = append(c.colliders, col)
}

func (c *Cloth) ClearColliders() {
	c.colliders = nil
}

// MoveParticle places particle i at p with zero velocity. It is meant for
// driving pinned handles.
func (c *Cloth) MoveParticle(i int, p mgl64.Vec3) error {
	if err := c.checkIndex(i); err != nil {
		return err
	}
	if !dynamo.IsFinite(p) {
		return fmt.Errorf("position %v: %w", p, dynamo.ErrParameterBounds)
	}
	c.x[i] = p
	c.v[i] = mgl64.Vec3{}
	c.syncHistory(i)
	return nil
}

// SetParticleVelocity overwrites the velocity of particle i.
func (c *Cloth) SetParticleVelocity(i int, vel mgl64.Vec3) error {
	if err := c.checkIndex(i); err != nil {
		return err
	}
	if !dynamo.IsFinite(vel) {
		return fmt.Errorf("velocity %v: %w", vel, dynamo.ErrParameterBounds)
	}
	c.v[i] = vel
	c.syncHistory(i)
	return nil
}

// syncHistory keeps a history-based integrator consistent with an
// externally set position or velocity.
func (c *Cloth) syncHistory(i int) {
	h, ok := c.integrator.(dynamo.PositionHistory)
	if !ok || c.lastDt <= 0 {
		return
	}
	h.SetPrevious(i, c.x[i].Sub(c.v[i].Mul(c.lastDt)))
}

func (c *Cloth) checkIndex(i int) error {
	if i < 0 || i >= len(c.x) {
		return fmt.Errorf("particle %d of %d: %w", i, len(c.x), dynamo.ErrParameterBounds)
	}
	return nil
}

func (c *Cloth) checkSpring(i int) error {
	if i < 0 || i >= len(c.springs) {
		return fmt.Errorf("spring %d of %d: %w", i, len(c.springs), dynamo.ErrParameterBounds)
	}
	return nil
}

// Readers.

// Width is the number of particles per row.
func (c *Cloth) Width() int { return c.numX + 1 }

// Height is the number of rows.
func (c *Cloth) Height() int { return c.numY + 1 }

func (c *Cloth) NumParticles() int            { return len(c.x) }
func (c *Cloth) NumSprings() int              { return len(c.springs) }
func (c *Cloth) Mass() float64                { return c.mass }
func (c *Cloth) Gravity() mgl64.Vec3          { return c.gravity }
func (c *Cloth) MaxSpeed() float64            { return c.maxSpeed }
func (c *Cloth) PinMode() PinMode             { return c.pinMode }
func (c *Cloth) Method() integrators.Method   { return c.method }
func (c *Cloth) StretchLimit() StretchLimit   { return c.stretch }
func (c *Cloth) Biphasic() Biphasic           { return c.biphasic }
func (c *Cloth) Thresholds() Thresholds       { return c.thresholds }
func (c *Cloth) Steps() int                   { return c.steps }
func (c *Cloth) Time() float64                { return c.time }
func (c *Cloth) Spacing() float64             { return c.spacing }
func (c *Cloth) Colliders() []Collider        { return append([]Collider(nil), c.colliders...) }
func (c *Cloth) Dimensions() (numX, numY int) { return c.numX, c.numY }

// Coefficients returns the category-wide stiffness and damping.
func (c *Cloth) Coefficients(t SpringType) Coefficients {
	if t < 0 || t >= numSpringTypes {
		return Coefficients{}
	}
	return c.coeffs[t]
}

// Positions returns a copy of all particle positions.
func (c *Cloth) Positions() []mgl64.Vec3 { return dynamo.Clone(c.x) }

// Velocities returns a copy of all particle velocities.
func (c *Cloth) Velocities() []mgl64.Vec3 { return dynamo.Clone(c.v) }

// FlatPositions returns positions packed as x0, y0, z0, x1, ...
func (c *Cloth) FlatPositions() []float64 { return dynamo.Flatten(c.x) }

// FlatVelocities returns velocities packed as x0, y0, z0, x1, ...
func (c *Cloth) FlatVelocities() []float64 { return dynamo.Flatten(c.v) }

// Pinned reports whether particle i is pinned.
func (c *Cloth) Pinned(i int) bool {
	return i >= 0 && i < len(c.pinned) && c.pinned[i]
}

// Particle returns a snapshot of particle i.
func (c *Cloth) Particle(i int) (Particle, error) {
	if err := c.checkIndex(i); err != nil {
		return Particle{}, err
	}
	return Particle{Position: c.x[i], Velocity: c.v[i], Mass: c.mass, Pinned: c.pinned[i]}, nil
}

// Particles returns snapshots of every particle.
func (c *Cloth) Particles() []Particle {
	out := make([]Particle, len(c.x))
	for i := range c.x {
		out[i] = Particle{Position: c.x[i], Velocity: c.v[i], Mass: c.mass, Pinned: c.pinned[i]}
	}
	return out
}

// Springs returns a copy of the spring set.
func (c *Cloth) Springs() []Spring {
	return append([]Spring(nil), c.springs...)
}

// RestLength returns the construction-time length of spring i.
func (c *Cloth) RestLength(i int) (float64, error) {
	if err := c.checkSpring(i); err != nil {
		return 0, err
	}
	return c.springs[i].RestLength, nil
}

// CurrentLength returns the live length of spring i.
func (c *Cloth) CurrentLength(i int) (float64, error) {
	if err := c.checkSpring(i); err != nil {
		return 0, err
	}
	s := c.springs[i]
	return c.x[s.P1].Sub(c.x[s.P2]).Len(), nil
}

// MaxStretchRatio returns the largest current/rest length ratio.
func (c *Cloth) MaxStretchRatio() float64 {
	return MaxStretchRatio(c.x, c.springs)
}

// KineticEnergy is the total 1/2 m v² over free particles.
func (c *Cloth) KineticEnergy() float64 {
	e := 0.0
	for i, v := range c.v {
		if c.pinned[i] {
			continue
		}
		e += 0.5 * c.mass * v.Dot(v)
	}
	return e
}

// GravitationalEnergy is -m g·x summed over free particles.
func (c *Cloth) GravitationalEnergy() float64 {
	e := 0.0
	for i, x := range c.x {
		if c.pinned[i] {
			continue
		}
		e -= c.mass * c.gravity.Dot(x)
	}
	return e
}

// ElasticEnergy is 1/2 k stretch² summed over all springs.
func (c *Cloth) ElasticEnergy() float64 {
	e := 0.0
	for _, s := range c.springs {
		stretch := c.x[s.P1].Sub(c.x[s.P2]).Len() - s.RestLength
		e += 0.5 * s.Stiffness * stretch * stretch
	}
	return e
}

// IsValid reports whether the state is free of NaN and Inf.
func (c *Cloth) IsValid() bool {
	return dynamo.IsValid(c.x) && dynamo.IsValid(c.v)
}
