package metrics

import (
	"math"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
)

// MaxEnvelope is the largest transverse radius reached by any observed
// particle anywhere along the line.
type MaxEnvelope struct {
	name string
	max  float64
}

func NewMaxEnvelope() *MaxEnvelope {
	return &MaxEnvelope{name: "max_envelope"}
}

func (m *MaxEnvelope) Name() string { return m.name }

func (m *MaxEnvelope) Observe(p *particle.Particle) {
	for _, s := range p.Trajectory() {
		m.max = math.Max(m.max, s.State.Radius())
	}
}

func (m *MaxEnvelope) Value() float64 { return m.max }
func (m *MaxEnvelope) Reset()         { m.max = 0 }

// MeanEnergyDeviation averages the final delta of the surviving particles.
type MeanEnergyDeviation struct {
	name    string
	sum     float64
	samples int
}

func NewMeanEnergyDeviation() *MeanEnergyDeviation {
	return &MeanEnergyDeviation{
		name: "mean_delta",
	}
}

func (m *MeanEnergyDeviation) Name() string {
	return m.name
}

func (m *MeanEnergyDeviation) Observe(p *particle.Particle) {
	if p.Lost() {
		return
	}
	if s, ok := p.Final(); ok {
		m.sum += s.State[optics.Delta]
		m.samples++
	}
}

func (m *MeanEnergyDeviation) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanEnergyDeviation) Reset() {
	m.sum = 0
	m.samples = 0
}
