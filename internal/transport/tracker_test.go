package transport

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/san-kum/beamline/internal/beamline"
	"github.com/san-kum/beamline/internal/elements"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
	"github.com/san-kum/beamline/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protonLine(t *testing.T, elems ...elements.Element) *beamline.BeamLine {
	t.Helper()
	ref, err := physics.NewReferenceFromKinetic(physics.Proton, 15)
	require.NoError(t, err)
	bl := beamline.New(ref)
	require.NoError(t, bl.Append(elements.NewSource("S", optics.PhaseSpace{})))
	for _, e := range elems {
		require.NoError(t, bl.Append(e))
	}
	require.NoError(t, bl.Build())
	return bl
}

func TestDriftScenario(t *testing.T) {
	bl := protonLine(t, elements.NewDrift("D", 1))
	p, err := TrackOne(bl, optics.PhaseSpace{0, 0.001, 0, 0, 0, 0})
	require.NoError(t, err)

	require.Equal(t, 2, p.Len())
	assert.False(t, p.Lost())
	final, _ := p.Final()
	assert.InDelta(t, 0.001, final.State[optics.X], 1e-12)
	assert.Equal(t, "D", final.Location)
	assert.Equal(t, 1.0, final.Path)
}

func TestApertureScenario(t *testing.T) {
	bl := protonLine(t, elements.NewCircularAperture("A", 0.01))

	lost, err := TrackOne(bl, optics.PhaseSpace{0.02, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.True(t, lost.Lost())
	assert.Equal(t, 1, lost.LossIndex())
	assert.Equal(t, optics.ApertureLoss, lost.LossReason())
	assert.Equal(t, 1, lost.Len())

	kept, err := TrackOne(bl, optics.PhaseSpace{0.005, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.False(t, kept.Lost())
	assert.Equal(t, 2, kept.Len())
}

func TestApertureEdge(t *testing.T) {
	bl := protonLine(t, elements.NewCircularAperture("A", 0.01))
	tests := []struct {
		name string
		x    float64
		lost bool
	}{
		{"inside", 0.0099999, false},
		{"edge", 0.01, false},
		{"outside", 0.0100001, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := TrackOne(bl, optics.PhaseSpace{tt.x, 0, 0, 0, 0, 0})
			require.NoError(t, err)
			assert.Equal(t, tt.lost, p.Lost())
		})
	}
}

func TestOrdering(t *testing.T) {
	bl := protonLine(t,
		elements.NewDrift("D1", 0.5),
		elements.NewQuadrupole("QF", 0.1, 8),
		elements.NewFacility("M", 0),
		elements.NewDrift("D2", 0.5),
		elements.NewQuadrupole("QD", 0.1, -8),
		elements.NewDrift("D3", 0.5),
	)
	p, err := TrackOne(bl, optics.PhaseSpace{0.001, 0.0005, -0.001, 0, 0, 0.001})
	require.NoError(t, err)

	traj := p.Trajectory()
	require.Len(t, traj, bl.Len())
	for i := 1; i < len(traj); i++ {
		assert.GreaterOrEqual(t, traj[i].Path, traj[i-1].Path)
		assert.Equal(t, i, traj[i].Index)
	}
	// The marker records a snapshot identical to the one before it.
	assert.Equal(t, traj[2].State, traj[3].State)
	assert.InDelta(t, bl.TotalLength(), traj[len(traj)-1].Path, 1e-12)
}

func TestZeroLengthRoll(t *testing.T) {
	params := elements.Params{}
	params.Set("Roll", strconv.FormatFloat(math.Pi, 'g', -1, 64))
	roll, err := elements.New(elements.KindFacility, "R", params)
	require.NoError(t, err)

	bl := protonLine(t, roll)
	p, err := TrackOne(bl, optics.PhaseSpace{0.001, 0, 0, 0, 0, 0})
	require.NoError(t, err)

	final, _ := p.Final()
	assert.Equal(t, "R", final.Location)
	assert.Zero(t, final.Path)
	assert.InDelta(t, -0.001, final.State[optics.X], 1e-15)
}

func TestExpansionLoss(t *testing.T) {
	bl := protonLine(t, elements.NewDrift("D", 0.1), elements.NewOctupole("O", 0.1, 100, 0.02))
	p, err := TrackOne(bl, optics.PhaseSpace{0.03, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.True(t, p.Lost())
	assert.Equal(t, 2, p.LossIndex())
	assert.Equal(t, optics.ExpansionFailure, p.LossReason())
	assert.Equal(t, 2, p.Len())
}

func TestInvalidStateLoss(t *testing.T) {
	bl := protonLine(t, elements.NewDrift("D", 1))
	p, err := TrackOne(bl, optics.PhaseSpace{math.NaN(), 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.True(t, p.Lost())
	assert.Equal(t, 0, p.LossIndex())
	assert.Equal(t, optics.InvalidState, p.LossReason())
	assert.Zero(t, p.Len())
}

func TestRigidityUndefined(t *testing.T) {
	bl := beamline.New(nil)
	require.NoError(t, bl.Append(elements.NewSource("S", optics.PhaseSpace{})))
	require.NoError(t, bl.Build())

	_, err := TrackOne(bl, optics.PhaseSpace{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, optics.ErrRigidityUndefined))
}

func TestTrackContinues(t *testing.T) {
	bl := protonLine(t, elements.NewDrift("D1", 1), elements.NewDrift("D2", 1))
	tr := New(bl)

	p := particle.New(5, physics.Proton)
	assert.ErrorIs(t, tr.Track(p), particle.ErrNotStarted)

	require.NoError(t, p.Start("S", 0, optics.PhaseSpace{0, 0.001}))
	require.NoError(t, p.Advance("D1", 1, optics.PhaseSpace{0.001, 0.001}, 1))
	require.NoError(t, tr.Track(p))

	require.Equal(t, 3, p.Len())
	final, _ := p.Final()
	assert.InDelta(t, 0.002, final.State[optics.X], 1e-12)
	assert.Equal(t, 2.0, final.Path)
}

type countingObserver struct {
	snapshots int
	losses    map[optics.LossReason]int
}

func (c *countingObserver) OnSnapshot(*particle.Particle, int, optics.PhaseSpace) { c.snapshots++ }
func (c *countingObserver) OnLoss(_ *particle.Particle, _ int, r optics.LossReason) {
	c.losses[r]++
}

func TestObserver(t *testing.T) {
	bl := protonLine(t, elements.NewDrift("D", 1), elements.NewCircularAperture("A", 0.01))
	tr := New(bl)
	obs := &countingObserver{losses: map[optics.LossReason]int{}}
	tr.AddObserver(obs)

	_, err := tr.TrackOne(1, optics.PhaseSpace{0, 0.02, 0, 0, 0, 0})
	require.NoError(t, err)
	_, err = tr.TrackOne(2, optics.PhaseSpace{})
	require.NoError(t, err)

	assert.Equal(t, 2+3, obs.snapshots)
	assert.Equal(t, 1, obs.losses[optics.ApertureLoss])
}
