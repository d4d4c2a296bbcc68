package metrics

import "github.com/san-kum/beamline/internal/particle"

type Metric interface {
	Name() string
	Observe(p *particle.Particle)
	Value() float64
	Reset()
}

// Default returns the metrics recorded for every run.
func Default() []Metric {
	return []Metric{
		NewTransmission(),
		NewMaxEnvelope(),
		NewMeanEnergyDeviation(),
	}
}
