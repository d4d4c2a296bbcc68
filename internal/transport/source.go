package transport

import (
	"errors"
	"math/rand"

	"github.com/san-kum/beamline/internal/beamline"
	"github.com/san-kum/beamline/internal/optics"
)

// GaussianSource draws uncorrelated Gaussian phase-space vectors around
// Mean with rms widths Sigma. It is not safe for concurrent use.
type GaussianSource struct {
	Mean  optics.PhaseSpace
	Sigma optics.PhaseSpace
	rng   *rand.Rand
}

func NewGaussianSource(sigma optics.PhaseSpace, seed int64) *GaussianSource {
	return &GaussianSource{Sigma: sigma, rng: rand.New(rand.NewSource(seed))}
}

// SourceFor samples with the widths configured on the line's Source.
func SourceFor(bl *beamline.BeamLine, seed int64) (*GaussianSource, error) {
	src := bl.Source()
	if src == nil {
		return nil, errors.New("transport: beamline has no source")
	}
	return NewGaussianSource(src.Sigma, seed), nil
}

func (g *GaussianSource) Sample() optics.PhaseSpace {
	var v optics.PhaseSpace
	for i := range v {
		v[i] = g.Mean[i]
		if g.Sigma[i] > 0 {
			v[i] += g.Sigma[i] * g.rng.NormFloat64()
		}
	}
	return v
}

// Fixed returns the same vector every time.
type Fixed optics.PhaseSpace

func (f Fixed) Sample() optics.PhaseSpace { return optics.PhaseSpace(f) }
