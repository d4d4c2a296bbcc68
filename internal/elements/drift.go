package elements

import (
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// Drift is a field-free region.
type Drift struct {
	base
}

func init() {
	register(Spec{Kind: KindDrift, Required: []string{"Length"}, Optional: []string{"Roll"}}, func(name string, r *paramReader) Element {
		l := r.nonNegative("Length", r.required("Length"))
		return &Drift{base: newBase(name, KindDrift, l, r.optional("Roll", 0))}
	})
	register(Spec{Kind: KindFacility, Optional: []string{"Roll"}}, func(name string, r *paramReader) Element {
		return &Facility{base: newBase(name, KindFacility, 0, r.optional("Roll", 0))}
	})
}

func NewDrift(name string, length float64) *Drift {
	return &Drift{base: newBase(name, KindDrift, length, 0)}
}

func (d *Drift) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return d.transfer(ref, func(ref *physics.Reference) (*mat.Dense, error) {
		return optics.DriftMatrix(d.length, ref.Beta(), ref.Gamma()), nil
	})
}

func (d *Drift) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	return applyLinear(d, ref, v)
}

// Facility is a zero-length marker: a named interface in the beamline where
// a snapshot is recorded. A non-zero roll still rotates the frame.
type Facility struct {
	base
}

func NewFacility(name string, roll float64) *Facility {
	return &Facility{base: newBase(name, KindFacility, 0, roll)}
}

func (f *Facility) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return f.transfer(ref, func(*physics.Reference) (*mat.Dense, error) {
		return optics.Identity(), nil
	})
}

func (f *Facility) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	return applyLinear(f, ref, v)
}
