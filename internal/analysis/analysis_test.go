package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
	"github.com/san-kum/beamline/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func track(t *testing.T, id uint64, states ...optics.PhaseSpace) *particle.Particle {
	t.Helper()
	p := particle.New(id, physics.Proton)
	require.NoError(t, p.Start("S", 0, states[0]))
	for i, v := range states[1:] {
		require.NoError(t, p.Advance("D", i+1, v, float64(i+1)))
	}
	return p
}

func TestMomentsAt(t *testing.T) {
	ps := []*particle.Particle{
		track(t, 1, optics.PhaseSpace{0.001, 0.001}, optics.PhaseSpace{0.002, 0.001}),
		track(t, 2, optics.PhaseSpace{-0.001, -0.001}, optics.PhaseSpace{-0.002, -0.001}),
		track(t, 3, optics.PhaseSpace{0.001, -0.001}),
		track(t, 4, optics.PhaseSpace{-0.001, 0.001}),
	}

	m, ok := MomentsAt(ps, 0)
	require.True(t, ok)
	assert.Equal(t, 4, m.Count)
	assert.Equal(t, "S", m.Location)
	assert.InDelta(t, 0, m.X.Mean, 1e-15)
	assert.InDelta(t, 0.001, m.X.RMS, 1e-12)
	assert.InDelta(t, 0.001, m.X.RMSAngle, 1e-12)
	// The four corners are uncorrelated, so eps = sigma_x sigma_x'.
	assert.InDelta(t, 1e-6, m.X.Emittance, 1e-15)
	assert.InDelta(t, 0.001, m.X.Max, 1e-15)

	m, ok = MomentsAt(ps, 1)
	require.True(t, ok)
	assert.Equal(t, 2, m.Count)
	assert.Equal(t, 1.0, m.Path)
	// Two points on a line have zero area.
	assert.InDelta(t, 0, m.X.Emittance, 1e-12)

	_, ok = MomentsAt(ps, 5)
	assert.False(t, ok)
}

func TestEnvelope(t *testing.T) {
	ps := []*particle.Particle{
		track(t, 1, optics.PhaseSpace{0.001}, optics.PhaseSpace{0.003}),
	}
	env := Envelope(ps, 4)
	require.Len(t, env, 2)
	assert.Equal(t, 1, env[1].Index)
	assert.Equal(t, 0.0, env[1].X.RMS)
	assert.InDelta(t, 0.003, env[1].X.Mean, 1e-15)
}

func TestPortrait(t *testing.T) {
	var ps []*particle.Particle
	for i := 0; i < 20; i++ {
		a := float64(i) / 20 * 2 * math.Pi
		ps = append(ps, track(t, uint64(i+1), optics.PhaseSpace{math.Cos(a), math.Sin(a)}))
	}

	p := PortraitAt(ps, 0, optics.X, optics.XP)
	assert.Len(t, p.Xs, 20)

	out := PortraitToASCII(p, 40, 20)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 20)
	assert.Contains(t, out, "•")
	assert.Contains(t, out, "│")

	assert.Empty(t, PortraitToASCII(&Portrait{}, 40, 20))
}
