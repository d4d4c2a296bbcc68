package elements

import (
	"math"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// SectorDipole bends the reference trajectory by Angle over an arc of
// length Length in the horizontal plane. The field needed to do so scales
// with the rigidity; the geometry does not.
type SectorDipole struct {
	base
	Angle float64
}

func init() {
	register(Spec{Kind: KindSectorDipole, Required: []string{"Length", "Angle"}, Optional: []string{"Roll"}}, func(name string, r *paramReader) Element {
		return &SectorDipole{
			base:  newBase(name, KindSectorDipole, r.positive("Length", r.required("Length")), r.optional("Roll", 0)),
			Angle: r.required("Angle"),
		}
	})
}

func NewSectorDipole(name string, length, angle float64) *SectorDipole {
	return &SectorDipole{base: newBase(name, KindSectorDipole, length, 0), Angle: angle}
}

// Radius of curvature, infinite for a zero bend.
func (d *SectorDipole) Radius() float64 {
	if d.Angle == 0 {
		return math.Inf(1)
	}
	return d.length / d.Angle
}

// Field returns the dipole field in T required for the given rigidity.
func (d *SectorDipole) Field(brho float64) float64 {
	return brho * d.Angle / d.length
}

func (d *SectorDipole) Exit(entrance optics.Placement) optics.Placement {
	if d.Angle == 0 {
		return d.base.Exit(entrance)
	}
	p := entrance.ArcAdvance(d.Radius(), d.Angle)
	if d.roll != 0 {
		p = p.Advance(0, optics.RotationZ(d.roll))
	}
	return p
}

func (d *SectorDipole) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return d.transfer(ref, func(ref *physics.Reference) (*mat.Dense, error) {
		beta, gamma := ref.Beta(), ref.Gamma()
		if d.Angle == 0 {
			return optics.DriftMatrix(d.length, beta, gamma), nil
		}
		rho := d.Radius()
		c, s := math.Cos(d.Angle), math.Sin(d.Angle)
		m := optics.DriftMatrix(d.length, beta, gamma)

		optics.SetBlock(m, optics.X, optics.X, [2][2]float64{
			{c, rho * s},
			{-s / rho, c},
		})
		m.Set(optics.X, optics.Delta, rho*(1-c)/beta)
		m.Set(optics.XP, optics.Delta, s/beta)
		m.Set(optics.Z, optics.X, -s/beta)
		m.Set(optics.Z, optics.XP, -rho*(1-c)/beta)
		m.Set(optics.Z, optics.Delta, d.length/(beta*beta*gamma*gamma)-(d.length-rho*s)/(beta*beta))
		return m, nil
	})
}

func (d *SectorDipole) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	return applyLinear(d, ref, v)
}
