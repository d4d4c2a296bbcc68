package elements

import (
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// Octupole is treated as a thin third-order kick at its centre. Its field
// description holds inside the bore only, so particles with r > Bore at the
// kick fail the expansion check. The linearised matrix is a drift.
type Octupole struct {
	base
	Strength float64 // T/m^3
	Bore     float64 // m
}

func init() {
	register(Spec{Kind: KindOctupole, Required: []string{"Length", "Strength", "Bore"}, Optional: []string{"Roll"}}, func(name string, r *paramReader) Element {
		return &Octupole{
			base:     newBase(name, KindOctupole, r.positive("Length", r.required("Length")), r.optional("Roll", 0)),
			Strength: r.required("Strength"),
			Bore:     r.positive("Bore", r.required("Bore")),
		}
	})
}

func NewOctupole(name string, length, strength, bore float64) *Octupole {
	return &Octupole{base: newBase(name, KindOctupole, length, 0), Strength: strength, Bore: bore}
}

func (o *Octupole) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return o.transfer(ref, func(ref *physics.Reference) (*mat.Dense, error) {
		return optics.DriftMatrix(o.length, ref.Beta(), ref.Gamma()), nil
	})
}

func (o *Octupole) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	brho := ref.Rigidity()
	if brho <= 0 {
		return v, &optics.ComputationError{Element: o.name, Rigidity: brho, Wrapped: optics.ErrRigidityUndefined}
	}
	half := optics.DriftMatrix(o.length/2, ref.Beta(), ref.Gamma())
	v = optics.MulVec(half, v)

	eps := v.Radius() / o.Bore
	if eps > 1 {
		return v, &optics.ExpansionError{Element: o.name, Parameter: eps, Limit: 1}
	}

	x, y := v[optics.X], v[optics.Y]
	kl := o.Strength / brho * o.length / 6
	v[optics.XP] -= kl * (x*x*x - 3*x*y*y)
	v[optics.YP] += kl * (3*x*x*y - y*y*y)

	return o.rolled(optics.MulVec(half, v)), nil
}
