package particle

import (
	"sync"
	"testing"

	"github.com/san-kum/beamline/internal/elements"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line is a fixed list of bound elements.
type line []elements.Element

func (l line) At(i int) elements.Element {
	if i < 0 || i >= len(l) {
		return nil
	}
	return l[i]
}

func newLine() line {
	src := elements.NewSource("S", optics.PhaseSpace{})
	d := elements.NewDrift("D", 2)
	src.Bind(0, optics.Placement{})
	d.Bind(1, d.Exit(optics.Placement{}))
	return line{src, d}
}

func TestParticleLifecycle(t *testing.T) {
	p := New(7, physics.Proton)
	assert.Equal(t, -1, p.LossIndex())

	err := p.Advance("D", 1, optics.PhaseSpace{}, 1)
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, p.Start("S", 0, optics.PhaseSpace{0.001}))
	assert.ErrorIs(t, p.Start("S", 0, optics.PhaseSpace{}), ErrStarted)

	require.NoError(t, p.Advance("D", 1, optics.PhaseSpace{0.002}, 2))
	assert.ErrorIs(t, p.Advance("D", 1, optics.PhaseSpace{}, 1), ErrPathDecreasing)

	p.MarkLost(2, optics.ApertureLoss)
	p.MarkLost(3, optics.InvalidState)
	assert.True(t, p.Lost())
	assert.Equal(t, 2, p.LossIndex())
	assert.Equal(t, optics.ApertureLoss, p.LossReason())

	assert.ErrorIs(t, p.Advance("A", 2, optics.PhaseSpace{}, 3), ErrLost)
	assert.Equal(t, 2, p.Len())

	last, ok := p.Final()
	require.True(t, ok)
	assert.Equal(t, "D", last.Location)
	assert.Equal(t, 2.0, last.Path)

	_, err = p.Snapshot(5)
	assert.Error(t, err)
}

func TestTrajectoryIsACopy(t *testing.T) {
	p := New(1, physics.Proton)
	require.NoError(t, p.Start("S", 0, optics.PhaseSpace{1}))

	traj := p.Trajectory()
	traj[0].State[0] = 99
	s, err := p.Snapshot(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.State[0])

	_, ok := New(2, physics.Proton).Final()
	assert.False(t, ok)
}

func TestFrameRoundTrip(t *testing.T) {
	bl := newLine()
	p := New(1, physics.Proton)
	require.NoError(t, p.Start("S", 0, optics.PhaseSpace{0.001, 0.001, 0, 0, 0, 0}))
	require.NoError(t, p.Advance("D", 1, optics.PhaseSpace{0.003, 0.001, 0, 0, 0, 0}, 2))

	lab, err := p.ToLabFrame(bl)
	require.NoError(t, err)
	require.Len(t, lab, 2)
	assert.InDelta(t, 2.0, lab[1].Position[2], 1e-12)
	assert.InDelta(t, 0.003, lab[1].Position[0], 1e-12)

	local, err := p.ToLocalFrame(bl, lab)
	require.NoError(t, err)
	for i, s := range p.Trajectory() {
		for k := range s.State {
			assert.InDelta(t, s.State[k], local[i][k], 1e-12)
		}
	}

	_, err = p.ToLocalFrame(bl, lab[:1])
	assert.Error(t, err)

	orphan := New(2, physics.Proton)
	require.NoError(t, orphan.Start("X", 9, optics.PhaseSpace{}))
	_, err = orphan.ToLabFrame(bl)
	assert.Error(t, err)
}

func TestRestore(t *testing.T) {
	traj := []Snapshot{
		{Location: "S", Index: 0},
		{Location: "D", Index: 1, Path: 1, State: optics.PhaseSpace{1, 2, 3, 4, 5, 6}},
	}
	p := Restore(4, physics.Electron, traj, true, 1, optics.ExpansionFailure)
	assert.Equal(t, traj, p.Trajectory())
	assert.True(t, p.Lost())
	assert.Equal(t, optics.ExpansionFailure, p.LossReason())
}

func TestEnsemble(t *testing.T) {
	ens := NewEnsemble()
	a := ens.New(physics.Proton)
	b := ens.New(physics.Proton)
	assert.Equal(t, uint64(1), a.ID)
	assert.Equal(t, uint64(2), b.ID)
	assert.Same(t, b, ens.Last())

	c := New(0, physics.Proton)
	ens.Add(c)
	assert.Equal(t, uint64(3), c.ID)

	a.MarkLost(4, optics.ApertureLoss)
	c.MarkLost(4, optics.ApertureLoss)

	st := ens.LossStats()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.Lost)
	assert.Equal(t, map[int]int{4: 2}, st.ByElement)
	assert.Equal(t, 2, st.ByReason[optics.ApertureLoss])
	assert.InDelta(t, 1.0/3, st.Transmission(), 1e-12)

	surv := ens.Survivors()
	require.Len(t, surv, 1)
	assert.Same(t, b, surv[0])

	ens.Reset()
	assert.Equal(t, 0, ens.Len())
	assert.Nil(t, ens.Last())
	assert.Equal(t, uint64(1), ens.New(physics.Proton).ID)
	assert.Zero(t, NewEnsemble().LossStats().Transmission())
}

func TestEnsembleConcurrentAdd(t *testing.T) {
	ens := NewEnsemble()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ens.New(physics.Proton)
		}()
	}
	wg.Wait()

	ps := ens.Particles()
	require.Len(t, ps, 50)
	for i, p := range ps {
		assert.Equal(t, uint64(i+1), p.ID)
	}
}

func TestEnsembleReserve(t *testing.T) {
	e := NewEnsemble()
	first := e.Reserve(3)
	assert.Equal(t, uint64(1), first)
	assert.Zero(t, e.Len())
	assert.Zero(t, e.LossStats().Total)

	p := e.New(physics.Proton)
	assert.Equal(t, uint64(4), p.ID)

	lost := New(9, physics.Proton)
	lost.MarkLost(2, optics.ApertureLoss)
	st := StatsOf([]*Particle{p, lost})
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Lost)
	assert.Equal(t, 1, st.ByElement[2])
	assert.InDelta(t, 0.5, st.Transmission(), 1e-15)
}
