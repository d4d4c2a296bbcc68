package physics

import (
	"fmt"
	"log/slog"
	"math"
)

// Reference is the nominal particle of a run. All tracked coordinates are
// offsets from its trajectory. RrIn and RrOut hold the lab-frame position of
// the reference particle at the entrance and exit of each element and are
// filled in when a beamline lays out its geometry.
type Reference struct {
	Species       Species
	KineticEnergy float64 // MeV
	Momentum      float64 // MeV/c

	RrIn  [][3]float64
	RrOut [][3]float64
}

// NewReferenceFromKinetic builds a reference particle from its kinetic
// energy in MeV.
func NewReferenceFromKinetic(s Species, kinetic float64) (*Reference, error) {
	if kinetic <= 0 || math.IsNaN(kinetic) || math.IsInf(kinetic, 0) {
		return nil, fmt.Errorf("kinetic energy must be positive, got %g", kinetic)
	}
	if s.Mass <= 0 || s.Charge == 0 {
		return nil, fmt.Errorf("species %q needs positive mass and non-zero charge", s.Name)
	}
	e := kinetic + s.Mass
	p := math.Sqrt(e*e - s.Mass*s.Mass)
	return &Reference{Species: s, KineticEnergy: kinetic, Momentum: p}, nil
}

// NewReferenceFromMomentum builds a reference particle from its momentum in
// MeV/c.
func NewReferenceFromMomentum(s Species, momentum float64) (*Reference, error) {
	if momentum <= 0 || math.IsNaN(momentum) || math.IsInf(momentum, 0) {
		return nil, fmt.Errorf("momentum must be positive, got %g", momentum)
	}
	if s.Mass <= 0 || s.Charge == 0 {
		return nil, fmt.Errorf("species %q needs positive mass and non-zero charge", s.Name)
	}
	e := math.Sqrt(momentum*momentum + s.Mass*s.Mass)
	return &Reference{Species: s, KineticEnergy: e - s.Mass, Momentum: momentum}, nil
}

// Defined reports whether the reference carries a usable momentum.
func (r *Reference) Defined() bool {
	return r != nil && r.Momentum > 0 && r.Species.Charge != 0
}

// Rigidity returns the magnetic rigidity Brho in T m, or 0 when the
// reference is undefined.
func (r *Reference) Rigidity() float64 {
	if !r.Defined() {
		return 0
	}
	return r.Momentum / (rigidityFactor * math.Abs(r.Species.Charge))
}

// TotalEnergy in MeV.
func (r *Reference) TotalEnergy() float64 {
	return r.KineticEnergy + r.Species.Mass
}

func (r *Reference) Gamma() float64 {
	return r.TotalEnergy() / r.Species.Mass
}

func (r *Reference) Beta() float64 {
	return r.Momentum / r.TotalEnergy()
}

// Velocity in m/s.
func (r *Reference) Velocity() float64 {
	return r.Beta() * SpeedOfLight
}

// ResetGeometry clears the recorded interface positions.
func (r *Reference) ResetGeometry() {
	r.RrIn = r.RrIn[:0]
	r.RrOut = r.RrOut[:0]
}

// RecordInterface appends the entrance and exit position of the next
// element.
func (r *Reference) RecordInterface(in, out [3]float64) {
	r.RrIn = append(r.RrIn, in)
	r.RrOut = append(r.RrOut, out)
}

func (r *Reference) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("species", r.Species.Name),
		slog.Float64("kinetic_mev", r.KineticEnergy),
		slog.Float64("momentum_mev", r.Momentum),
		slog.Float64("brho_tm", r.Rigidity()),
	)
}
