package elements

import (
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// Source is the first element of every beamline. It has zero length and an
// identity transfer matrix; its parameters describe the rms widths of the
// generated beam in each phase-space component.
type Source struct {
	base
	Sigma optics.PhaseSpace
}

var sourceParams = [optics.Dim]string{"SigmaX", "SigmaXp", "SigmaY", "SigmaYp", "SigmaZ", "SigmaDelta"}

func init() {
	register(Spec{Kind: KindSource, Optional: append(sourceParams[:], "Roll")}, func(name string, r *paramReader) Element {
		return newSource(name, r)
	})
}

func newSource(name string, r *paramReader) *Source {
	s := &Source{base: newBase(name, KindSource, 0, r.optional("Roll", 0))}
	for i, p := range sourceParams {
		s.Sigma[i] = r.nonNegative(p, r.optional(p, 0))
	}
	return s
}

// NewSource returns a source with the given rms widths.
func NewSource(name string, sigma optics.PhaseSpace) *Source {
	return &Source{base: newBase(name, KindSource, 0, 0), Sigma: sigma}
}

func (s *Source) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return s.transfer(ref, func(*physics.Reference) (*mat.Dense, error) {
		return optics.Identity(), nil
	})
}

func (s *Source) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	return applyLinear(s, ref, v)
}
