package elements

import (
	"math"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// Solenoid with a uniform longitudinal field. The transverse planes are
// coupled.
type Solenoid struct {
	base
	Field float64 // T
}

func init() {
	register(Spec{Kind: KindSolenoid, Required: []string{"Length", "Field"}, Optional: []string{"Roll"}}, func(name string, r *paramReader) Element {
		return &Solenoid{
			base:  newBase(name, KindSolenoid, r.positive("Length", r.required("Length")), r.optional("Roll", 0)),
			Field: r.required("Field"),
		}
	})
}

func NewSolenoid(name string, length, field float64) *Solenoid {
	return &Solenoid{base: newBase(name, KindSolenoid, length, 0), Field: field}
}

func (s *Solenoid) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return s.transfer(ref, func(ref *physics.Reference) (*mat.Dense, error) {
		m := optics.DriftMatrix(s.length, ref.Beta(), ref.Gamma())
		k := s.Field / (2 * ref.Rigidity())
		if k == 0 {
			return m, nil
		}
		c, sn := math.Cos(k*s.length), math.Sin(k*s.length)
		rows := [4][4]float64{
			{c * c, sn * c / k, sn * c, sn * sn / k},
			{-k * sn * c, c * c, -k * sn * sn, sn * c},
			{-sn * c, -sn * sn / k, c * c, sn * c / k},
			{k * sn * sn, -sn * c, -k * sn * c, c * c},
		}
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				m.Set(i, j, rows[i][j])
			}
		}
		return m, nil
	})
}

func (s *Solenoid) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	return applyLinear(s, ref, v)
}
