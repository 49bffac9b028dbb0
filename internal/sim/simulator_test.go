package sim

import (
	"context"
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
)

func hangingCloth() *cloth.Cloth {
	c, err := cloth.New(4, 4, 0.1, 1,
		cloth.WithPinMode(cloth.PinTopCorners),
		cloth.WithGravity(mgl64.Vec3{0, -9.8, 0}),
	)
	Expect(err).NotTo(HaveOccurred())
	return c
}

// tornCloth has one free particle dragged far out of the mesh, so the
// stretch detector fires on the first step.
func tornCloth() *cloth.Cloth {
	c := hangingCloth()
	Expect(c.MoveParticle(12, mgl64.Vec3{10, 0, 0})).To(Succeed())
	return c
}

type countingMetric struct {
	count int
	steps []int
}

func (m *countingMetric) Name() string { return "count" }
func (m *countingMetric) Observe(f Frame) {
	m.count++
	m.steps = append(m.steps, f.Step)
}
func (m *countingMetric) Value() float64 { return float64(m.count) }
func (m *countingMetric) Reset() {
	m.count = 0
	m.steps = nil
}

var _ = Describe("Simulator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("samples every step by default", func() {
		s := New(hangingCloth())
		res, err := s.Run(ctx, Config{Dt: 0.01, Duration: 0.1})
		Expect(err).NotTo(HaveOccurred())

		Expect(res.StepsTaken).To(Equal(10))
		Expect(res.Samples).To(HaveLen(11))
		Expect(res.Samples[0].Step).To(Equal(0))
		Expect(res.Samples[10].Step).To(Equal(10))
		Expect(res.Times()[10]).To(BeNumerically("~", 0.1, 1e-12))
		Expect(res.Width).To(Equal(5))
		Expect(res.Height).To(Equal(5))
		Expect(res.Err()).NotTo(HaveOccurred())
	})

	It("thins samples and always keeps the final state", func() {
		s := New(hangingCloth())
		res, err := s.Run(ctx, Config{Dt: 0.01, Duration: 0.1, SampleEvery: 3, RecordFrames: true})
		Expect(err).NotTo(HaveOccurred())

		steps := make([]int, len(res.Samples))
		for i, smp := range res.Samples {
			steps[i] = smp.Step
		}
		Expect(steps).To(Equal([]int{0, 3, 6, 9, 10}))
		Expect(res.Frames).To(HaveLen(5))
		Expect(res.Frames[4].Positions).To(HaveLen(25))
	})

	It("feeds metrics and observers once per step", func() {
		s := New(hangingCloth())
		m := &countingMetric{}
		s.AddMetric(m)

		seen := 0
		s.AddObserver(ObserverFunc(func(f Frame) {
			seen++
			Expect(f.Cloth).To(BeIdenticalTo(s.Cloth()))
		}))

		res, err := s.Run(ctx, Config{Dt: 0.01, Duration: 0.2})
		Expect(err).NotTo(HaveOccurred())
		Expect(m.count).To(Equal(20))
		Expect(seen).To(Equal(20))
		Expect(m.steps[0]).To(Equal(1))
		Expect(res.Metrics).To(HaveKeyWithValue("count", 20.0))
	})

	It("exposes named series", func() {
		s := New(hangingCloth())
		res, err := s.Run(ctx, Config{Dt: 0.01, Duration: 0.05})
		Expect(err).NotTo(HaveOccurred())

		for _, name := range SeriesNames() {
			series, err := res.Series(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(series).To(HaveLen(len(res.Samples)))
		}
		_, err = res.Series("momentum")
		Expect(err).To(MatchError(dynamo.ErrInvalidConfig))

		kinetic, _ := res.Series("kinetic")
		Expect(kinetic[0]).To(BeZero())
		Expect(kinetic[len(kinetic)-1]).To(BeNumerically(">", 0))
	})

	DescribeTable("rejects invalid configs",
		func(cfg Config, target error) {
			_, err := New(hangingCloth()).Run(ctx, cfg)
			Expect(err).To(MatchError(target))
		},
		Entry("zero dt", Config{Dt: 0, Duration: 1}, dynamo.ErrInvalidTimeStep),
		Entry("negative dt", Config{Dt: -0.1, Duration: 1}, dynamo.ErrInvalidTimeStep),
		Entry("zero duration", Config{Dt: 0.1, Duration: 0}, dynamo.ErrParameterBounds),
		Entry("negative sampling", Config{Dt: 0.1, Duration: 1, SampleEvery: -1}, dynamo.ErrParameterBounds),
	)

	It("stops on cancellation with a partial result", func() {
		cctx, cancel := context.WithCancel(ctx)
		s := New(hangingCloth())
		s.AddObserver(ObserverFunc(func(f Frame) {
			if f.Step == 5 {
				cancel()
			}
		}))

		res, err := s.Run(cctx, Config{Dt: 0.01, Duration: 1})
		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(res.StepsTaken).To(Equal(5))
	})

	It("records instabilities and keeps going by default", func() {
		res, err := New(tornCloth()).Run(ctx, Config{Dt: 0.01, Duration: 0.05})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StepsTaken).To(Equal(5))
		Expect(res.Unstable()).To(BeTrue())
		Expect(res.Instabilities[0].Step).To(Equal(1))
		Expect(res.Instabilities[0].Overextended).To(BeTrue())
	})

	It("halts on the first instability when asked", func() {
		res, err := New(tornCloth()).Run(ctx, Config{Dt: 0.01, Duration: 0.05, StopOnInstability: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StepsTaken).To(Equal(1))
		Expect(res.Err()).To(MatchError(dynamo.ErrUnstable))

		var simErr *dynamo.SimulationError
		Expect(errors.As(res.Err(), &simErr)).To(BeTrue())
		Expect(simErr.Step).To(Equal(1))
		Expect(res.Samples[len(res.Samples)-1].Unstable).To(BeTrue())
	})
})

var _ = Describe("Driver", func() {
	It("drains whole steps and carries the remainder", func() {
		d, err := NewDriver(hangingCloth(), 0.01)
		Expect(err).NotTo(HaveOccurred())

		n, err := d.Advance(0.035)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))
		Expect(d.SimTime()).To(BeNumerically("~", 0.03, 1e-12))
		Expect(d.Accumulated()).To(BeNumerically("~", 0.005, 1e-12))

		n, _ = d.Advance(0.006)
		Expect(n).To(Equal(1))
		Expect(d.Cloth().Steps()).To(Equal(4))
	})

	It("does nothing while paused", func() {
		d, _ := NewDriver(hangingCloth(), 0.01)
		d.Pause()
		n, err := d.Advance(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
		Expect(d.Accumulated()).To(BeZero())

		d.Toggle()
		Expect(d.Paused()).To(BeFalse())
		Expect(d.StepOnce()).To(Succeed())
		Expect(d.Cloth().Steps()).To(Equal(1))
	})

	It("caps substeps and drops the backlog", func() {
		d, _ := NewDriver(hangingCloth(), 0.01)
		Expect(d.SetMaxSubsteps(4)).To(Succeed())

		n, _ := d.Advance(1)
		Expect(n).To(Equal(4))
		Expect(d.Accumulated()).To(BeZero())
		Expect(d.DroppedTime()).To(BeNumerically("~", 0.96, 1e-9))
	})

	It("pauses itself on instability when enabled", func() {
		d, _ := NewDriver(tornCloth(), 0.01)
		d.SetPauseOnInstability(true)

		n, err := d.Advance(0.1)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(d.Paused()).To(BeTrue())
		Expect(d.LastStability().Overextended).To(BeTrue())
		Expect(d.UnstableSteps()).To(Equal(1))

		d.Reset()
		Expect(d.SimTime()).To(BeZero())
		Expect(d.Cloth().Steps()).To(BeZero())
		Expect(d.Cloth().SpringLengthUnstable()).To(BeFalse())
	})

	It("rejects bad settings", func() {
		_, err := NewDriver(hangingCloth(), 0)
		Expect(err).To(MatchError(dynamo.ErrInvalidTimeStep))

		d, _ := NewDriver(hangingCloth(), 0.01)
		Expect(d.SetMaxSubsteps(0)).To(MatchError(dynamo.ErrParameterBounds))
		Expect(d.SetDt(-1)).To(MatchError(dynamo.ErrInvalidTimeStep))
		Expect(d.Dt()).To(Equal(0.01))
	})
})

var _ = Describe("Ensemble", func() {
	It("runs members independently", func() {
		e := NewEnsemble(hangingCloth(), hangingCloth(), hangingCloth())
		Expect(e.Len()).To(Equal(3))
		m := &countingMetric{}
		e.Member(1).AddMetric(m)

		results, err := e.Run(context.Background(), Config{Dt: 0.01, Duration: 0.1})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for _, r := range results {
			Expect(r.StepsTaken).To(Equal(10))
		}
		Expect(results[0].Samples).To(Equal(results[2].Samples))
		Expect(results[1].Metrics).To(HaveKeyWithValue("count", 10.0))
		Expect(results[0].Metrics).NotTo(HaveKey("count"))
	})
})
