package cloth

import (
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/integrators"
)

var earthGravity = mgl64.Vec3{0, -9.8, 0}

var noOption Option = func(*Cloth) {}

func mustCloth(numX, numY int, spacing, mass float64, opts ...Option) *Cloth {
	c, err := New(numX, numY, spacing, mass, opts...)
	Expect(err).NotTo(HaveOccurred())
	return c
}

func stepN(c *Cloth, n int, dt float64) {
	for i := 0; i < n; i++ {
		Expect(c.Step(dt)).To(Succeed())
	}
}

var _ = Describe("Cloth", func() {
	Describe("construction", func() {
		It("lays out the grid and reports its shape", func() {
			c := mustCloth(4, 3, 0.1, 1)
			Expect(c.Width()).To(Equal(5))
			Expect(c.Height()).To(Equal(4))
			Expect(c.NumParticles()).To(Equal(20))

			counts := SpringCounts(4, 3)
			Expect(c.NumSprings()).To(Equal(counts[Structure] + counts[Shear] + counts[Bend]))
			Expect(c.FlatPositions()).To(HaveLen(60))
			Expect(c.FlatVelocities()).To(HaveLen(60))
		})

		It("accepts a single-particle grid", func() {
			c := mustCloth(0, 0, 0, 1)
			Expect(c.NumParticles()).To(Equal(1))
			Expect(c.NumSprings()).To(BeZero())
		})

		It("pins the requested corners", func() {
			c := mustCloth(3, 2, 0.1, 1, WithPinMode(PinFourCorners))
			for i := 0; i < c.NumParticles(); i++ {
				Expect(c.Pinned(i)).To(Equal(i == 0 || i == 3 || i == 8 || i == 11), "particle %d", i)
			}

			Expect(c.SetPinMode(PinTopCorners)).To(Succeed())
			Expect(c.Pinned(0)).To(BeTrue())
			Expect(c.Pinned(3)).To(BeTrue())
			Expect(c.Pinned(8)).To(BeFalse())
		})

		DescribeTable("rejects invalid parameters",
			func(numX, numY int, spacing, mass float64, target error, opt Option) {
				_, err := New(numX, numY, spacing, mass, opt)
				Expect(err).To(MatchError(target))
			},
			Entry("zero mass", 2, 2, 0.1, 0.0, dynamo.ErrParameterBounds, noOption),
			Entry("negative mass", 2, 2, 0.1, -1.0, dynamo.ErrParameterBounds, noOption),
			Entry("negative grid", -1, 2, 0.1, 1.0, dynamo.ErrInvalidConfig, noOption),
			Entry("negative spacing", 2, 2, -0.1, 1.0, dynamo.ErrInvalidConfig, noOption),
			Entry("zero spacing", 2, 2, 0.0, 1.0, dynamo.ErrInvalidConfig, noOption),
			Entry("zero max speed", 2, 2, 0.1, 1.0, dynamo.ErrParameterBounds, WithMaxSpeed(0)),
			Entry("negative stiffness", 2, 2, 0.1, 1.0, dynamo.ErrParameterBounds, WithSpring(Bend, -1, 0)),
			Entry("stretch ratio below one", 2, 2, 0.1, 1.0, dynamo.ErrParameterBounds, WithStretchLimit(1, 0.5)),
			Entry("unknown pin mode", 2, 2, 0.1, 1.0, dynamo.ErrInvalidConfig, WithPinMode(PinMode(7))),
			Entry("unknown integrator", 2, 2, 0.1, 1.0, dynamo.ErrInvalidConfig, WithIntegrator(integrators.Method(9))),
		)
	})

	Describe("stepping", func() {
		It("keeps a fully pinned, force-free 2x2 grid motionless", func() {
			c := mustCloth(1, 1, 1.0, 1,
				WithPinMode(PinFourCorners),
				WithGravity(mgl64.Vec3{}),
				WithSpring(Structure, 0, 0),
				WithSpring(Shear, 0, 0),
				WithSpring(Bend, 0, 0),
			)
			before := c.Positions()

			stepN(c, 250, 0.01)

			Expect(c.Positions()).To(Equal(before))
			for _, v := range c.Velocities() {
				Expect(v).To(Equal(mgl64.Vec3{}))
			}
		})

		It("matches semi-implicit Euler for a free particle", func() {
			c := mustCloth(0, 0, 1.0, 1, WithGravity(earthGravity))
			x0 := c.Positions()[0]

			Expect(c.Step(0.1)).To(Succeed())

			p, err := c.Particle(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Velocity.ApproxEqualThreshold(mgl64.Vec3{0, -0.98, 0}, 1e-12)).To(BeTrue())
			Expect(p.Position.ApproxEqualThreshold(x0.Add(mgl64.Vec3{0, -0.098, 0}), 1e-12)).To(BeTrue())
			Expect(c.Steps()).To(Equal(1))
			Expect(c.Time()).To(BeNumerically("~", 0.1, 1e-15))
		})

		It("clamps speed to the configured limit", func() {
			c := mustCloth(0, 0, 1.0, 1, WithGravity(mgl64.Vec3{}), WithMaxSpeed(5))
			Expect(c.SetParticleVelocity(0, mgl64.Vec3{10, 0, 0})).To(Succeed())

			Expect(c.Step(0.01)).To(Succeed())

			Expect(c.Velocities()[0]).To(Equal(mgl64.Vec3{5, 0, 0}))
		})

		It("rejects a non-positive time step without touching state", func() {
			c := mustCloth(2, 2, 0.1, 1, WithGravity(earthGravity))
			before := c.Positions()

			Expect(c.Step(0)).To(MatchError(dynamo.ErrInvalidTimeStep))
			Expect(c.Step(-0.01)).To(MatchError(dynamo.ErrInvalidTimeStep))
			Expect(c.Positions()).To(Equal(before))
			Expect(c.Steps()).To(BeZero())
		})

		DescribeTable("never moves pinned particles",
			func(m integrators.Method) {
				c := mustCloth(6, 6, 0.1, 1,
					WithPinMode(PinTopCorners),
					WithGravity(earthGravity),
					WithIntegrator(m),
					WithStretchLimit(2, 1.1),
				)
				pins := []int{0, 6}
				before := c.Particles()

				for step := 0; step < 100; step++ {
					Expect(c.Step(0.005)).To(Succeed())
					for _, i := range pins {
						p, _ := c.Particle(i)
						Expect(p.Position).To(Equal(before[i].Position))
						Expect(p.Velocity).To(Equal(before[i].Velocity))
					}
				}
				Expect(c.IsValid()).To(BeTrue())
			},
			Entry("euler", integrators.ExplicitEuler),
			Entry("rk4", integrators.RK4),
			Entry("verlet", integrators.Verlet),
		)

		It("never recomputes rest lengths", func() {
			c := mustCloth(5, 5, 0.1, 1, WithPinMode(PinTopCorners), WithGravity(earthGravity))
			rest := make([]float64, c.NumSprings())
			for i := range rest {
				l, err := c.RestLength(i)
				Expect(err).NotTo(HaveOccurred())
				rest[i] = l
			}

			stepN(c, 200, 0.005)

			moved := false
			for i := range rest {
				Expect(c.RestLength(i)).To(Equal(rest[i]))
				if l, _ := c.CurrentLength(i); l != rest[i] {
					moved = true
				}
			}
			Expect(moved).To(BeTrue())
		})

		It("rejects spring indices outside the mesh", func() {
			c := mustCloth(2, 2, 0.1, 1)
			for _, i := range []int{-1, c.NumSprings()} {
				_, err := c.RestLength(i)
				Expect(err).To(MatchError(dynamo.ErrParameterBounds))
				_, err = c.CurrentLength(i)
				Expect(err).To(MatchError(dynamo.ErrParameterBounds))
			}
		})

		It("loses kinetic energy when only damping acts", func() {
			c := mustCloth(3, 3, 0.1, 1,
				WithGravity(mgl64.Vec3{}),
				WithSpring(Structure, 0, 0.5),
				WithSpring(Shear, 0, 0.3),
				WithSpring(Bend, 0, 0.1),
			)
			for i := 0; i < c.NumParticles(); i++ {
				f := float64(i)
				Expect(c.SetParticleVelocity(i, mgl64.Vec3{0.3 * f, -0.2 * (f - 7), 0.1 * (f - 3) * (f - 9)})).To(Succeed())
			}

			prev := c.KineticEnergy()
			Expect(prev).To(BeNumerically(">", 0))
			for step := 0; step < 300; step++ {
				Expect(c.Step(0.01)).To(Succeed())
				ke := c.KineticEnergy()
				Expect(ke).To(BeNumerically("<=", prev*(1+1e-12)))
				prev = ke
			}
		})
	})

	Describe("stretch limit", func() {
		It("bounds spring extension under heavy load", func() {
			loose := mustCloth(6, 6, 0.1, 1, WithPinMode(PinTopCorners), WithGravity(mgl64.Vec3{0, -40, 0}))
			limited := mustCloth(6, 6, 0.1, 1, WithPinMode(PinTopCorners), WithGravity(mgl64.Vec3{0, -40, 0}),
				WithStretchLimit(8, 1.1))

			stepN(loose, 150, 0.005)
			stepN(limited, 150, 0.005)

			Expect(limited.MaxStretchRatio()).To(BeNumerically("<", loose.MaxStretchRatio()))
		})
	})

	Describe("collision", func() {
		It("keeps particles outside an ellipsoid", func() {
			center := mgl64.Vec3{0.25, -0.4, -0.25}
			radii := mgl64.Vec3{0.3, 0.2, 0.3}
			e, err := NewEllipsoid(center, radii)
			Expect(err).NotTo(HaveOccurred())

			c := mustCloth(5, 5, 0.1, 1, WithGravity(earthGravity), WithCollider(e), WithIntegrator(integrators.Verlet))

			for step := 0; step < 150; step++ {
				Expect(c.Step(0.005)).To(Succeed())
				for _, p := range c.Positions() {
					local := p.Sub(center)
					r2 := local[0]*local[0]/(radii[0]*radii[0]) +
						local[1]*local[1]/(radii[1]*radii[1]) +
						local[2]*local[2]/(radii[2]*radii[2])
					Expect(r2).To(BeNumerically(">=", 1-1e-9))
				}
			}
		})

		It("rests on a ground plane", func() {
			c := mustCloth(2, 2, 0.1, 1, WithGravity(earthGravity), WithCollider(Plane{Height: -0.05}))

			stepN(c, 100, 0.01)

			for _, p := range c.Positions() {
				Expect(p[1]).To(BeNumerically(">=", -0.05))
			}
			Expect(c.Colliders()).To(HaveLen(1))
			c.ClearColliders()
			Expect(c.Colliders()).To(BeEmpty())
		})
	})

	Describe("stability diagnostics", func() {
		It("flags an overextended spring", func() {
			c := mustCloth(2, 2, 0.1, 1)
			Expect(c.SpringLengthUnstable()).To(BeFalse())

			Expect(c.MoveParticle(0, mgl64.Vec3{-1, 0, 0})).To(Succeed())
			Expect(c.SpringLengthUnstable()).To(BeTrue())
			Expect(c.CheckStability().Unstable()).To(BeTrue())
		})

		It("flags a velocity jump only after the first check", func() {
			c := mustCloth(2, 2, 0.1, 1, WithGravity(mgl64.Vec3{}))
			Expect(c.SetParticleVelocity(4, mgl64.Vec3{0.1, 0, 0})).To(Succeed())
			Expect(c.VelocityUnstable()).To(BeFalse())

			Expect(c.SetParticleVelocity(4, mgl64.Vec3{1, 0, 0})).To(Succeed())
			Expect(c.VelocityUnstable()).To(BeTrue())
			Expect(c.VelocityUnstable()).To(BeFalse())
		})
	})

	Describe("parameter changes", func() {
		It("re-syncs spring coefficients by category", func() {
			c := mustCloth(3, 3, 0.1, 1)
			Expect(c.SetStiffness(Shear, 5)).To(Succeed())
			Expect(c.SetDamping(Bend, 0.01)).To(Succeed())

			for _, s := range c.Springs() {
				switch s.Type {
				case Shear:
					Expect(s.Stiffness).To(Equal(5.0))
				case Bend:
					Expect(s.Damping).To(Equal(0.01))
				case Structure:
					Expect(s.Stiffness).To(Equal(DefaultStructureStiffness))
				}
			}
			Expect(c.Coefficients(Shear).Stiffness).To(Equal(5.0))
		})

		It("rejects out-of-range values and keeps the old ones", func() {
			c := mustCloth(2, 2, 0.1, 1)
			Expect(c.SetStiffness(Structure, -1)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(c.SetMass(0)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(c.SetMaxSpeed(-2)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(c.SetPinned(99, true)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(c.Coefficients(Structure).Stiffness).To(Equal(DefaultStructureStiffness))
			Expect(c.Mass()).To(Equal(1.0))
		})

		It("drives a pinned handle", func() {
			c := mustCloth(3, 3, 0.1, 1, WithGravity(earthGravity))
			Expect(c.SetPinned(5, true)).To(Succeed())
			target := mgl64.Vec3{0.1, 0.5, -0.1}
			Expect(c.MoveParticle(5, target)).To(Succeed())

			stepN(c, 20, 0.01)

			p, _ := c.Particle(5)
			Expect(p.Position).To(Equal(target))
			Expect(p.Pinned).To(BeTrue())
		})

		It("switches integrators mid-run", func() {
			c := mustCloth(4, 4, 0.1, 1, WithPinMode(PinTopCorners), WithGravity(earthGravity))
			stepN(c, 20, 0.005)

			Expect(c.SetIntegrator(integrators.Verlet)).To(Succeed())
			Expect(c.Method()).To(Equal(integrators.Verlet))
			stepN(c, 20, 0.005)

			Expect(c.SetIntegrator(integrators.RK4)).To(Succeed())
			stepN(c, 20, 0.005)
			Expect(c.IsValid()).To(BeTrue())

			Expect(c.SetIntegrator(integrators.Method(9))).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(c.Method()).To(Equal(integrators.RK4))
		})

		It("resets to the rest mesh", func() {
			c := mustCloth(3, 3, 0.1, 1, WithPinMode(PinTopCorners), WithGravity(earthGravity))
			rest := c.Positions()
			Expect(c.SetPinned(7, true)).To(Succeed())

			stepN(c, 50, 0.01)
			Expect(c.Positions()).NotTo(Equal(rest))

			c.Reset()
			Expect(c.Positions()).To(Equal(rest))
			Expect(c.Steps()).To(BeZero())
			Expect(c.Time()).To(BeZero())
			Expect(c.KineticEnergy()).To(BeZero())
			Expect(c.Pinned(7)).To(BeFalse())
			Expect(c.Pinned(0)).To(BeTrue())
		})
	})
})
