package elements

import (
	"math"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// DefaultExpansionLimit bounds k r for the RF cavity field expansion.
const DefaultExpansionLimit = 0.5

// RFCavity is a cylindrical pillbox cavity in the TM010 mode, modelled as a
// thin accelerating gap at its centre between two half-length drifts. The
// on-axis field is E0 cos(wt + Phase); off axis the Bessel functions are
// replaced by their expansion to second order in k r, which bounds the
// radius at which the transform can be used.
type RFCavity struct {
	base
	Gradient       float64 // MV/m
	Frequency      float64 // Hz
	Phase          float64 // rad
	ExpansionLimit float64
}

func init() {
	register(Spec{
		Kind:     KindRFCavity,
		Required: []string{"Length", "Gradient", "Frequency"},
		Optional: []string{"Phase", "ExpansionLimit", "Roll"},
	}, func(name string, r *paramReader) Element {
		return &RFCavity{
			base:           newBase(name, KindRFCavity, r.positive("Length", r.required("Length")), r.optional("Roll", 0)),
			Gradient:       r.required("Gradient"),
			Frequency:      r.positive("Frequency", r.required("Frequency")),
			Phase:          r.optional("Phase", 0),
			ExpansionLimit: r.positive("ExpansionLimit", r.optional("ExpansionLimit", DefaultExpansionLimit)),
		}
	})
}

func NewRFCavity(name string, length, gradient, frequency, phase float64) *RFCavity {
	return &RFCavity{
		base:           newBase(name, KindRFCavity, length, 0),
		Gradient:       gradient,
		Frequency:      frequency,
		Phase:          phase,
		ExpansionLimit: DefaultExpansionLimit,
	}
}

// WaveNumber returns k = w/c in 1/m.
func (c *RFCavity) WaveNumber() float64 {
	return 2 * math.Pi * c.Frequency / physics.SpeedOfLight
}

// TransitTimeFactor for a reference particle of velocity beta c.
func (c *RFCavity) TransitTimeFactor(beta float64) float64 {
	theta := c.WaveNumber() * c.length / (2 * beta)
	if theta == 0 {
		return 1
	}
	return math.Sin(theta) / theta
}

// kick returns the dimensionless energy gain amplitude q V T / (p0 c).
func (c *RFCavity) kick(ref *physics.Reference) float64 {
	v := c.Gradient * c.length
	return ref.Species.Charge * v * c.TransitTimeFactor(ref.Beta()) / ref.Momentum
}

func (c *RFCavity) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return c.transfer(ref, func(ref *physics.Reference) (*mat.Dense, error) {
		beta, gamma := ref.Beta(), ref.Gamma()
		half := optics.DriftMatrix(c.length/2, beta, gamma)
		g, k := c.kick(ref), c.WaveNumber()
		s := math.Sin(c.Phase)

		gap := optics.Identity()
		gap.Set(optics.XP, optics.X, -g*k*s/(2*beta))
		gap.Set(optics.YP, optics.Y, -g*k*s/(2*beta))
		gap.Set(optics.Delta, optics.Z, g*k*s/beta)

		return optics.Mul(half, optics.Mul(gap, half)), nil
	})
}

// Apply uses the full phase dependence of the gap kick and the truncated
// radial expansion. It fails with an *optics.ExpansionError when k r at the
// gap exceeds ExpansionLimit.
func (c *RFCavity) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	if !ref.Defined() {
		return v, &optics.ComputationError{Element: c.name, Wrapped: optics.ErrRigidityUndefined}
	}
	beta, gamma := ref.Beta(), ref.Gamma()
	half := optics.DriftMatrix(c.length/2, beta, gamma)

	v = optics.MulVec(half, v)

	k := c.WaveNumber()
	eps := k * v.Radius()
	if eps > c.ExpansionLimit {
		return v, &optics.ExpansionError{Element: c.name, Parameter: eps, Limit: c.ExpansionLimit}
	}

	g := c.kick(ref)
	psi := c.Phase - k*v[optics.Z]/beta
	j0 := 1 - eps*eps/4
	j1 := 1 - eps*eps/8

	radial := -g * k * math.Sin(psi) * j1 / (2 * beta)
	v[optics.XP] += radial * v[optics.X]
	v[optics.YP] += radial * v[optics.Y]
	v[optics.Delta] += g * (j0*math.Cos(psi) - math.Cos(c.Phase))

	return c.rolled(optics.MulVec(half, v)), nil
}
