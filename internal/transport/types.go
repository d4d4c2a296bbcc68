package transport

import (
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
)

// Sampler draws initial phase-space vectors at the source.
type Sampler interface {
	Sample() optics.PhaseSpace
}

// Sink receives tracked particles in id order.
type Sink func(p *particle.Particle) error

// Metric summarises finished particles into one number.
type Metric interface {
	Name() string
	Observe(p *particle.Particle)
	Value() float64
	Reset()
}

// Observer sees every snapshot and loss as it happens. Calls are
// serialised even when tracking runs on several workers.
type Observer interface {
	OnSnapshot(p *particle.Particle, index int, v optics.PhaseSpace)
	OnLoss(p *particle.Particle, index int, reason optics.LossReason)
}

// Result summarises one ensemble pass.
type Result struct {
	Tracked int
	Stats   particle.LossStats
	Metrics map[string]float64
}
