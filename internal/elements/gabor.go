package elements

import (
	"math"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// GaborLens focuses with the space-charge field of a uniform column of
// confined electrons. The field is linear in r only inside the column, so a
// particle outside PlasmaRadius at the entrance or exit fails the expansion
// check.
type GaborLens struct {
	base
	ElectronDensity float64 // 1/m^3
	PlasmaRadius    float64 // m
}

func init() {
	register(Spec{Kind: KindGaborLens, Required: []string{"Length", "ElectronDensity", "PlasmaRadius"}, Optional: []string{"Roll"}}, func(name string, r *paramReader) Element {
		return &GaborLens{
			base:            newBase(name, KindGaborLens, r.positive("Length", r.required("Length")), r.optional("Roll", 0)),
			ElectronDensity: r.nonNegative("ElectronDensity", r.required("ElectronDensity")),
			PlasmaRadius:    r.positive("PlasmaRadius", r.required("PlasmaRadius")),
		}
	})
}

func NewGaborLens(name string, length, density, radius float64) *GaborLens {
	return &GaborLens{base: newBase(name, KindGaborLens, length, 0), ElectronDensity: density, PlasmaRadius: radius}
}

// Strength returns the focusing strength k in 1/m^2; negative values
// defocus (negatively charged beams).
func (g *GaborLens) Strength(ref *physics.Reference) float64 {
	beta := ref.Beta()
	mc2 := ref.Species.Mass * physics.MeVToJoule
	q := ref.Species.Charge * physics.ElementaryCharge
	return q * physics.ElementaryCharge * g.ElectronDensity /
		(2 * physics.VacuumPermittivity * ref.Gamma() * mc2 * beta * beta)
}

// FocalLength in the thin-lens limit.
func (g *GaborLens) FocalLength(ref *physics.Reference) float64 {
	k := g.Strength(ref)
	if k == 0 {
		return math.Inf(1)
	}
	return 1 / (k * g.length)
}

func (g *GaborLens) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return g.transfer(ref, func(ref *physics.Reference) (*mat.Dense, error) {
		k := g.Strength(ref)
		m := optics.DriftMatrix(g.length, ref.Beta(), ref.Gamma())
		optics.SetBlock(m, optics.X, optics.X, planeBlock(k, g.length))
		optics.SetBlock(m, optics.Y, optics.Y, planeBlock(k, g.length))
		return m, nil
	})
}

func (g *GaborLens) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	if err := g.check(v); err != nil {
		return v, err
	}
	out, err := applyLinear(g, ref, v)
	if err != nil {
		return v, err
	}
	if err := g.check(out); err != nil {
		return out, err
	}
	return out, nil
}

func (g *GaborLens) check(v optics.PhaseSpace) error {
	eps := v.Radius() / g.PlasmaRadius
	if eps > 1 {
		return &optics.ExpansionError{Element: g.name, Parameter: eps, Limit: 1}
	}
	return nil
}
