package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
	"github.com/san-kum/beamline/internal/physics"
)

func newParticle(t *testing.T, lost bool, states ...optics.PhaseSpace) *particle.Particle {
	t.Helper()
	p := particle.New(1, physics.Proton)
	if err := p.Start("S", 0, states[0]); err != nil {
		t.Fatal(err)
	}
	for i, v := range states[1:] {
		if err := p.Advance("D", i+1, v, float64(i+1)); err != nil {
			t.Fatal(err)
		}
	}
	if lost {
		p.MarkLost(len(states), optics.ApertureLoss)
	}
	return p
}

func TestTransmission(t *testing.T) {
	m := NewTransmission()
	if m.Value() != 1.0 {
		t.Errorf("expected 1 with no samples, got %f", m.Value())
	}

	m.Observe(newParticle(t, false, optics.PhaseSpace{}))
	m.Observe(newParticle(t, true, optics.PhaseSpace{}))
	m.Observe(newParticle(t, false, optics.PhaseSpace{}))
	m.Observe(newParticle(t, true, optics.PhaseSpace{}))

	if math.Abs(m.Value()-0.5) > 1e-12 {
		t.Errorf("expected transmission 0.5, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 1.0 {
		t.Error("expected reset transmission to be 1")
	}
}

func TestLossesAt(t *testing.T) {
	m := NewLossesAt("A", 2)
	m.Observe(newParticle(t, true, optics.PhaseSpace{}, optics.PhaseSpace{}))
	m.Observe(newParticle(t, true, optics.PhaseSpace{}))
	if m.Value() != 1 {
		t.Errorf("expected 1 loss at index 2, got %f", m.Value())
	}
	if m.Name() != "losses_A" {
		t.Errorf("unexpected name %q", m.Name())
	}
}

func TestMaxEnvelope(t *testing.T) {
	m := NewMaxEnvelope()
	m.Observe(newParticle(t, false, optics.PhaseSpace{0.003, 0, 0.004}, optics.PhaseSpace{0.001}))
	m.Observe(newParticle(t, true, optics.PhaseSpace{0.002}))

	if math.Abs(m.Value()-0.005) > 1e-12 {
		t.Errorf("expected max radius 0.005, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero envelope after reset")
	}
}

func TestMeanEnergyDeviation(t *testing.T) {
	m := NewMeanEnergyDeviation()
	m.Observe(newParticle(t, false, optics.PhaseSpace{}, optics.PhaseSpace{0, 0, 0, 0, 0, 0.002}))
	m.Observe(newParticle(t, false, optics.PhaseSpace{0, 0, 0, 0, 0, 0.004}))
	m.Observe(newParticle(t, true, optics.PhaseSpace{0, 0, 0, 0, 0, 1}))

	if math.Abs(m.Value()-0.003) > 1e-12 {
		t.Errorf("expected mean delta 0.003, got %f", m.Value())
	}
}

func TestDefault(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Default() {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %q", m.Name())
		}
		seen[m.Name()] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 default metrics, got %d", len(seen))
	}
}
