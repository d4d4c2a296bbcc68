package optics

import (
	"math"
)

// Phase-space component indices.
const (
	X = iota
	XP
	Y
	YP
	Z
	Delta
)

// Dim is the phase-space dimension.
const Dim = 6

// PhaseSpace is (x [m], x' [rad], y [m], y' [rad], z [m], delta). z is the
// longitudinal offset from the reference particle and delta = dE/(p0 c).
type PhaseSpace [Dim]float64

func (v PhaseSpace) IsValid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (v PhaseSpace) Norm() float64 {
	sum := 0.0
	for _, c := range v {
		sum += c * c
	}
	return math.Sqrt(sum)
}

func (v PhaseSpace) Add(o PhaseSpace) PhaseSpace {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

func (v PhaseSpace) Sub(o PhaseSpace) PhaseSpace {
	for i := range v {
		v[i] -= o[i]
	}
	return v
}

func (v PhaseSpace) Scale(f float64) PhaseSpace {
	for i := range v {
		v[i] *= f
	}
	return v
}

// Radius returns the transverse distance from the reference trajectory.
func (v PhaseSpace) Radius() float64 {
	return math.Hypot(v[X], v[Y])
}

func (v PhaseSpace) Slice() []float64 {
	s := make([]float64, Dim)
	copy(s, v[:])
	return s
}

// LossReason records why tracking of a particle stopped early.
type LossReason uint8

const (
	NotLost LossReason = iota
	ApertureLoss
	ExpansionFailure
	InvalidState
)

func (r LossReason) String() string {
	switch r {
	case NotLost:
		return "none"
	case ApertureLoss:
		return "aperture"
	case ExpansionFailure:
		return "expansion"
	case InvalidState:
		return "invalid_state"
	default:
		return "unknown"
	}
}

// LabCoordinates is a phase-space point in the laboratory frame: position
// [m], unit direction of motion, and the longitudinal and energy components
// carried through unchanged.
type LabCoordinates struct {
	Position  [3]float64
	Direction [3]float64
	Z         float64
	Delta     float64
}
