package metrics

import (
	"github.com/san-kum/beamline/internal/particle"
)

// Transmission is the fraction of observed particles that reached the end
// of the line.
type Transmission struct {
	name     string
	survived int
	samples  int
}

func NewTransmission() *Transmission {
	return &Transmission{
		name: "transmission",
	}
}

func (m *Transmission) Name() string {
	return m.name
}

func (m *Transmission) Observe(p *particle.Particle) {
	m.samples++
	if !p.Lost() {
		m.survived++
	}
}

func (m *Transmission) Value() float64 {
	if m.samples == 0 {
		return 1.0
	}
	return float64(m.survived) / float64(m.samples)
}

func (m *Transmission) Reset() {
	m.survived = 0
	m.samples = 0
}

// LossesAt counts particles lost at one element.
type LossesAt struct {
	name  string
	index int
	count int
}

func NewLossesAt(name string, index int) *LossesAt {
	return &LossesAt{name: "losses_" + name, index: index}
}

func (m *LossesAt) Name() string { return m.name }

func (m *LossesAt) Observe(p *particle.Particle) {
	if p.Lost() && p.LossIndex() == m.index {
		m.count++
	}
}

func (m *LossesAt) Value() float64 { return float64(m.count) }
func (m *LossesAt) Reset()         { m.count = 0 }
