package transport_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/beamline/internal/beamline"
	"github.com/san-kum/beamline/internal/elements"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
	"github.com/san-kum/beamline/internal/physics"
	"github.com/san-kum/beamline/internal/transport"
)

// cancelOnLoss cancels a context once it has seen limit losses.
type cancelOnLoss struct {
	limit, seen int
	cancel      context.CancelFunc
}

func (c *cancelOnLoss) OnSnapshot(*particle.Particle, int, optics.PhaseSpace) {}
func (c *cancelOnLoss) OnLoss(*particle.Particle, int, optics.LossReason) {
	c.seen++
	if c.seen == c.limit {
		c.cancel()
	}
}

type survivors struct{ n, seen float64 }

func (s *survivors) Name() string { return "survivors" }
func (s *survivors) Observe(p *particle.Particle) {
	s.seen++
	if !p.Lost() {
		s.n++
	}
}
func (s *survivors) Value() float64 { return s.n }
func (s *survivors) Reset()         { s.n, s.seen = 0, 0 }

func fodo() *beamline.BeamLine {
	ref, err := physics.NewReferenceFromKinetic(physics.Proton, 15)
	Expect(err).NotTo(HaveOccurred())

	bl := beamline.New(ref)
	for _, e := range []elements.Element{
		elements.NewSource("S", optics.PhaseSpace{0.003, 0.002, 0.003, 0.002, 0.001, 0.001}),
		elements.NewDrift("D1", 0.5),
		elements.NewQuadrupole("QF", 0.1, 6),
		elements.NewDrift("D2", 0.5),
		elements.NewCircularAperture("A", 0.004),
		elements.NewQuadrupole("QD", 0.1, -6),
		elements.NewDrift("D3", 0.5),
	} {
		Expect(bl.Append(e)).To(Succeed())
	}
	Expect(bl.Build()).To(Succeed())
	return bl
}

func finals(ps []*particle.Particle) []optics.PhaseSpace {
	out := make([]optics.PhaseSpace, len(ps))
	for i, p := range ps {
		if s, ok := p.Final(); ok {
			out[i] = s.State
		}
	}
	return out
}

var _ = Describe("TrackEnsemble", func() {
	var (
		bl  *beamline.BeamLine
		ctx context.Context
	)

	BeforeEach(func() {
		bl = fodo()
		ctx = context.Background()
	})

	It("delivers every particle in id order", func() {
		src, err := transport.SourceFor(bl, 42)
		Expect(err).NotTo(HaveOccurred())

		var ids []uint64
		tr := transport.New(bl)
		res, err := tr.TrackEnsemble(ctx, 100, src, nil, func(p *particle.Particle) error {
			ids = append(ids, p.ID)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Tracked).To(Equal(100))
		Expect(res.Stats.Total).To(Equal(100))
		Expect(ids).To(HaveLen(100))
		for i, id := range ids {
			Expect(id).To(Equal(uint64(i + 1)))
		}
	})

	It("loses some particles at the aperture", func() {
		src, err := transport.SourceFor(bl, 7)
		Expect(err).NotTo(HaveOccurred())

		ens := particle.NewEnsemble()
		res, err := transport.New(bl).TrackEnsemble(ctx, 500, src, ens, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats.Lost).To(BeNumerically(">", 0))
		Expect(res.Stats.Lost).To(BeNumerically("<", 500))
		Expect(res.Stats.ByElement).To(HaveKey(4))
		Expect(ens.Survivors()).To(HaveLen(500 - res.Stats.Lost))
	})

	It("gives the same result on several workers", func() {
		serial := particle.NewEnsemble()
		src, _ := transport.SourceFor(bl, 99)
		_, err := transport.New(bl).TrackEnsemble(ctx, 300, src, serial, nil)
		Expect(err).NotTo(HaveOccurred())

		parallel := particle.NewEnsemble()
		src, _ = transport.SourceFor(bl, 99)
		tr := transport.New(bl)
		tr.Workers = 4
		_, err = tr.TrackEnsemble(ctx, 300, src, parallel, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(finals(parallel.Particles())).To(Equal(finals(serial.Particles())))
		Expect(parallel.LossStats()).To(Equal(serial.LossStats()))
	})

	It("reports metrics", func() {
		tr := transport.New(bl)
		tr.AddMetric(&survivors{})
		res, err := tr.TrackEnsemble(ctx, 10, transport.Fixed{}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Metrics).To(HaveKeyWithValue("survivors", 10.0))
	})

	It("stops on cancellation", func() {
		cctx, cancel := context.WithCancel(ctx)
		delivered := 0
		_, err := transport.New(bl).TrackEnsemble(cctx, 50, transport.Fixed{}, nil, func(*particle.Particle) error {
			delivered++
			if delivered == 3 {
				cancel()
			}
			return nil
		})
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(delivered).To(Equal(3))
	})

	It("discards a batch interrupted by cancellation", func() {
		ref, err := physics.NewReferenceFromKinetic(physics.Proton, 15)
		Expect(err).NotTo(HaveOccurred())
		closed := beamline.New(ref)
		Expect(closed.Append(elements.NewSource("S", optics.PhaseSpace{}))).To(Succeed())
		Expect(closed.Append(elements.NewCircularAperture("A", 1e-9))).To(Succeed())
		Expect(closed.Build()).To(Succeed())

		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		tr := transport.New(closed)
		tr.Workers = 2
		tr.AddObserver(&cancelOnLoss{limit: 3, cancel: cancel})

		ens := particle.NewEnsemble()
		delivered := 0
		res, err := tr.TrackEnsemble(cctx, 1000, transport.Fixed{1}, ens, func(*particle.Particle) error {
			delivered++
			return nil
		})
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(delivered).To(BeZero())
		Expect(res.Tracked).To(BeZero())
		Expect(res.Stats.Total).To(BeZero())
		Expect(res.Stats.Transmission()).To(BeZero())
		Expect(ens.Len()).To(BeZero())
	})

	It("stops on a sink error", func() {
		boom := errors.New("disk full")
		_, err := transport.New(bl).TrackEnsemble(ctx, 5, transport.Fixed{}, nil, func(*particle.Particle) error {
			return boom
		})
		Expect(err).To(MatchError(boom))
	})

	It("rejects a negative count", func() {
		_, err := transport.New(bl).TrackEnsemble(ctx, -1, transport.Fixed{}, nil, nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("GaussianSource", func() {
	It("is reproducible for a seed", func() {
		sigma := optics.PhaseSpace{1, 1, 1, 1, 1, 1}
		a := transport.NewGaussianSource(sigma, 3)
		b := transport.NewGaussianSource(sigma, 3)
		for i := 0; i < 10; i++ {
			Expect(a.Sample()).To(Equal(b.Sample()))
		}
	})

	It("leaves zero-width components at the mean", func() {
		g := transport.NewGaussianSource(optics.PhaseSpace{1}, 1)
		g.Mean[optics.Delta] = 0.5
		v := g.Sample()
		Expect(v[optics.Y]).To(BeZero())
		Expect(v[optics.Delta]).To(Equal(0.5))
	})
})
