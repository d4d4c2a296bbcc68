package elements

import (
	"math"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// Quadrupole has a signed field gradient: positive focuses in x and
// defocuses in y. FocusQuadrupole and DefocusQuadrupole kinds take the
// magnitude of the configured gradient and apply the sign themselves.
type Quadrupole struct {
	base
	Gradient float64 // T/m
}

func init() {
	spec := func(k Kind) Spec {
		return Spec{Kind: k, Required: []string{"Length", "Gradient"}, Optional: []string{"Roll"}}
	}
	register(spec(KindFocusQuadrupole), func(name string, r *paramReader) Element {
		return newQuadFromParams(name, KindFocusQuadrupole, r)
	})
	register(spec(KindDefocusQuadrupole), func(name string, r *paramReader) Element {
		return newQuadFromParams(name, KindDefocusQuadrupole, r)
	})
}

func newQuadFromParams(name string, kind Kind, r *paramReader) *Quadrupole {
	l := r.positive("Length", r.required("Length"))
	g := math.Abs(r.required("Gradient"))
	if kind == KindDefocusQuadrupole {
		g = -g
	}
	return &Quadrupole{base: newBase(name, kind, l, r.optional("Roll", 0)), Gradient: g}
}

// NewQuadrupole chooses the kind from the sign of gradient.
func NewQuadrupole(name string, length, gradient float64) *Quadrupole {
	kind := KindFocusQuadrupole
	if gradient < 0 {
		kind = KindDefocusQuadrupole
	}
	return &Quadrupole{base: newBase(name, kind, length, 0), Gradient: gradient}
}

// Strength returns k = G/Brho in 1/m^2.
func (q *Quadrupole) Strength(brho float64) float64 {
	return q.Gradient / brho
}

func (q *Quadrupole) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return q.transfer(ref, func(ref *physics.Reference) (*mat.Dense, error) {
		k := q.Strength(ref.Rigidity())
		m := optics.DriftMatrix(q.length, ref.Beta(), ref.Gamma())
		optics.SetBlock(m, optics.X, optics.X, planeBlock(k, q.length))
		optics.SetBlock(m, optics.Y, optics.Y, planeBlock(-k, q.length))
		return m, nil
	})
}

func (q *Quadrupole) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	return applyLinear(q, ref, v)
}

// planeBlock is the 2x2 map of a plane with focusing strength k over l.
func planeBlock(k, l float64) [2][2]float64 {
	switch {
	case k > 0:
		w := math.Sqrt(k)
		c, s := math.Cos(w*l), math.Sin(w*l)
		return [2][2]float64{{c, s / w}, {-w * s, c}}
	case k < 0:
		w := math.Sqrt(-k)
		c, s := math.Cosh(w*l), math.Sinh(w*l)
		return [2][2]float64{{c, s / w}, {w * s, c}}
	default:
		return [2][2]float64{{1, l}, {0, 1}}
	}
}

// Composite is an ordered group of elements treated as one beamline
// element: quadrupole doublets and triplets.
type Composite struct {
	base
	Parts []Element
}

func init() {
	register(Spec{
		Kind:     KindQuadDoublet,
		Required: []string{"Length1", "Gradient1", "Gap", "Length2", "Gradient2"},
		Optional: []string{"Roll"},
	}, func(name string, r *paramReader) Element {
		q1 := NewQuadrupole(name+".Q1", r.positive("Length1", r.required("Length1")), r.required("Gradient1"))
		gap := NewDrift(name+".D1", r.nonNegative("Gap", r.required("Gap")))
		q2 := NewQuadrupole(name+".Q2", r.positive("Length2", r.required("Length2")), r.required("Gradient2"))
		return newComposite(name, KindQuadDoublet, r.optional("Roll", 0), q1, gap, q2)
	})
	register(Spec{
		Kind:     KindQuadTriplet,
		Required: []string{"Length1", "Gradient1", "Gap1", "Length2", "Gradient2", "Gap2", "Length3", "Gradient3"},
		Optional: []string{"Roll"},
	}, func(name string, r *paramReader) Element {
		q1 := NewQuadrupole(name+".Q1", r.positive("Length1", r.required("Length1")), r.required("Gradient1"))
		d1 := NewDrift(name+".D1", r.nonNegative("Gap1", r.required("Gap1")))
		q2 := NewQuadrupole(name+".Q2", r.positive("Length2", r.required("Length2")), r.required("Gradient2"))
		d2 := NewDrift(name+".D2", r.nonNegative("Gap2", r.required("Gap2")))
		q3 := NewQuadrupole(name+".Q3", r.positive("Length3", r.required("Length3")), r.required("Gradient3"))
		return newComposite(name, KindQuadTriplet, r.optional("Roll", 0), q1, d1, q2, d2, q3)
	})
}

func newComposite(name string, kind Kind, roll float64, parts ...Element) *Composite {
	total := 0.0
	for _, p := range parts {
		total += p.Length()
	}
	return &Composite{base: newBase(name, kind, total, roll), Parts: parts}
}

// NewQuadDoublet builds a doublet of two quadrupoles separated by gap.
func NewQuadDoublet(name string, l1, g1, gap, l2, g2 float64) *Composite {
	return newComposite(name, KindQuadDoublet, 0,
		NewQuadrupole(name+".Q1", l1, g1),
		NewDrift(name+".D1", gap),
		NewQuadrupole(name+".Q2", l2, g2),
	)
}

func (c *Composite) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return c.transfer(ref, func(ref *physics.Reference) (*mat.Dense, error) {
		m := optics.Identity()
		for _, p := range c.Parts {
			pm, err := p.TransferMatrix(ref)
			if err != nil {
				return nil, err
			}
			m = optics.Mul(pm, m)
		}
		return m, nil
	})
}

func (c *Composite) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	var err error
	for _, p := range c.Parts {
		v, err = p.Apply(ref, v)
		if err != nil {
			return v, err
		}
	}
	return c.rolled(v), nil
}
