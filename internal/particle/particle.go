package particle

import (
	"errors"
	"fmt"

	"github.com/san-kum/beamline/internal/elements"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
)

var (
	ErrLost           = errors.New("particle: lost")
	ErrStarted        = errors.New("particle: already started")
	ErrNotStarted     = errors.New("particle: not started")
	ErrPathDecreasing = errors.New("particle: path length decreasing")
)

// Snapshot is the state of a particle at one interface.
type Snapshot struct {
	State    optics.PhaseSpace
	Location string
	Index    int
	Path     float64
}

type Particle struct {
	ID      uint64
	Species physics.Species

	states    []optics.PhaseSpace
	locations []string
	indices   []int
	paths     []float64

	lost       bool
	lossIndex  int
	lossReason optics.LossReason
}

func New(id uint64, species physics.Species) *Particle {
	return &Particle{ID: id, Species: species, lossIndex: -1}
}

// Start records the source snapshot at path length 0.
func (p *Particle) Start(location string, index int, v optics.PhaseSpace) error {
	if len(p.states) > 0 {
		return ErrStarted
	}
	p.push(location, index, v, 0)
	return nil
}

// Advance appends the snapshot reached at the exit of element index.
func (p *Particle) Advance(location string, index int, v optics.PhaseSpace, path float64) error {
	switch {
	case p.lost:
		return ErrLost
	case len(p.states) == 0:
		return ErrNotStarted
	case path < p.paths[len(p.paths)-1]:
		return fmt.Errorf("%w: %g after %g", ErrPathDecreasing, path, p.paths[len(p.paths)-1])
	}
	p.push(location, index, v, path)
	return nil
}

func (p *Particle) push(location string, index int, v optics.PhaseSpace, path float64) {
	p.states = append(p.states, v)
	p.locations = append(p.locations, location)
	p.indices = append(p.indices, index)
	p.paths = append(p.paths, path)
}

// MarkLost terminates the particle at element index. Only the first call
// has an effect.
func (p *Particle) MarkLost(index int, reason optics.LossReason) {
	if p.lost {
		return
	}
	p.lost = true
	p.lossIndex = index
	p.lossReason = reason
}

func (p *Particle) Lost() bool                    { return p.lost }
func (p *Particle) LossIndex() int                { return p.lossIndex }
func (p *Particle) LossReason() optics.LossReason { return p.lossReason }
func (p *Particle) Len() int                      { return len(p.states) }

func (p *Particle) Snapshot(i int) (Snapshot, error) {
	if i < 0 || i >= len(p.states) {
		return Snapshot{}, fmt.Errorf("particle %d: snapshot %d out of range [0,%d)", p.ID, i, len(p.states))
	}
	return Snapshot{State: p.states[i], Location: p.locations[i], Index: p.indices[i], Path: p.paths[i]}, nil
}

// Final returns the last recorded snapshot.
func (p *Particle) Final() (Snapshot, bool) {
	if len(p.states) == 0 {
		return Snapshot{}, false
	}
	s, _ := p.Snapshot(len(p.states) - 1)
	return s, true
}

// Trajectory returns a copy of every recorded snapshot in order.
func (p *Particle) Trajectory() []Snapshot {
	out := make([]Snapshot, len(p.states))
	for i := range p.states {
		out[i] = Snapshot{State: p.states[i], Location: p.locations[i], Index: p.indices[i], Path: p.paths[i]}
	}
	return out
}

// Restore rebuilds a particle from decoded snapshots without the path
// checks applied while tracking.
func Restore(id uint64, species physics.Species, traj []Snapshot, lost bool, lossIndex int, reason optics.LossReason) *Particle {
	p := New(id, species)
	for _, s := range traj {
		p.push(s.Location, s.Index, s.State, s.Path)
	}
	if lost {
		p.MarkLost(lossIndex, reason)
	}
	return p
}

// Line is the part of a beamline needed for frame transforms.
type Line interface {
	At(i int) elements.Element
}

// ToLabFrame transforms every snapshot to laboratory coordinates with the
// placement of the element it was recorded at.
func (p *Particle) ToLabFrame(bl Line) ([]optics.LabCoordinates, error) {
	out := make([]optics.LabCoordinates, len(p.states))
	for i, v := range p.states {
		e := bl.At(p.indices[i])
		if e == nil {
			return nil, fmt.Errorf("particle %d: snapshot %d refers to missing element %d", p.ID, i, p.indices[i])
		}
		out[i] = e.ToLab(v)
	}
	return out, nil
}

// ToLocalFrame is the inverse of ToLabFrame for lab coordinates aligned
// with this particle's snapshots.
func (p *Particle) ToLocalFrame(bl Line, lab []optics.LabCoordinates) ([]optics.PhaseSpace, error) {
	if len(lab) != len(p.states) {
		return nil, fmt.Errorf("particle %d: %d lab points for %d snapshots", p.ID, len(lab), len(p.states))
	}
	out := make([]optics.PhaseSpace, len(lab))
	for i, l := range lab {
		e := bl.At(p.indices[i])
		if e == nil {
			return nil, fmt.Errorf("particle %d: snapshot %d refers to missing element %d", p.ID, i, p.indices[i])
		}
		out[i] = e.ToLocal(l)
	}
	return out, nil
}
