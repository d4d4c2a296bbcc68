package particle

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
)

// Ensemble owns the particles of one run. It is safe for concurrent use.
type Ensemble struct {
	mu        sync.Mutex
	particles []*Particle
	nextID    uint64
}

func NewEnsemble() *Ensemble {
	return &Ensemble{nextID: 1}
}

// New creates a particle with the next free id and adds it.
func (e *Ensemble) New(species physics.Species) *Particle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.nextID == 0 {
		e.nextID = 1
	}
	p := New(e.nextID, species)
	e.nextID++
	e.particles = append(e.particles, p)
	return p
}

// Reserve claims n consecutive ids without adding particles and returns
// the first of them.
func (e *Ensemble) Reserve(n int) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.nextID == 0 {
		e.nextID = 1
	}
	first := e.nextID
	e.nextID += uint64(max(n, 0))
	return first
}

// Add adopts p. A zero id is replaced by the next free one.
func (e *Ensemble) Add(p *Particle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.nextID == 0 {
		e.nextID = 1
	}
	if p.ID == 0 {
		p.ID = e.nextID
	}
	if p.ID >= e.nextID {
		e.nextID = p.ID + 1
	}
	e.particles = append(e.particles, p)
}

// Last returns the most recently added particle.
func (e *Ensemble) Last() *Particle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.particles) == 0 {
		return nil
	}
	return e.particles[len(e.particles)-1]
}

func (e *Ensemble) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.particles)
}

// Particles returns the particles ordered by id.
func (e *Ensemble) Particles() []*Particle {
	e.mu.Lock()
	out := make([]*Particle, len(e.particles))
	copy(out, e.particles)
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Survivors returns the particles that were not lost, ordered by id.
func (e *Ensemble) Survivors() []*Particle {
	var out []*Particle
	for _, p := range e.Particles() {
		if !p.Lost() {
			out = append(out, p)
		}
	}
	return out
}

// Reset drops every particle and restarts ids at 1.
func (e *Ensemble) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.particles = nil
	e.nextID = 1
}

// LossStats counts lost particles by element index and by reason.
type LossStats struct {
	Total     int
	Lost      int
	ByElement map[int]int
	ByReason  map[optics.LossReason]int
}

func (e *Ensemble) LossStats() LossStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return StatsOf(e.particles)
}

// StatsOf counts the losses among ps.
func StatsOf(ps []*Particle) LossStats {
	st := LossStats{
		Total:     len(ps),
		ByElement: make(map[int]int),
		ByReason:  make(map[optics.LossReason]int),
	}
	for _, p := range ps {
		if !p.Lost() {
			continue
		}
		st.Lost++
		st.ByElement[p.LossIndex()]++
		st.ByReason[p.LossReason()]++
	}
	return st
}

// Transmission is the surviving fraction, 0 for an empty ensemble.
func (s LossStats) Transmission() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Total-s.Lost) / float64(s.Total)
}

func (s LossStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("total", s.Total),
		slog.Int("lost", s.Lost),
		slog.Float64("transmission", s.Transmission()),
	}
	for _, r := range []optics.LossReason{optics.ApertureLoss, optics.ExpansionFailure, optics.InvalidState} {
		if n := s.ByReason[r]; n > 0 {
			attrs = append(attrs, slog.Int(r.String(), n))
		}
	}
	return slog.GroupValue(attrs...)
}
