package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/san-kum/beamline/internal/beamline"
	"github.com/san-kum/beamline/internal/elements"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
	"github.com/san-kum/beamline/internal/physics"
)

type Tracker struct {
	line      *beamline.BeamLine
	logger    *slog.Logger
	metrics   []Metric
	observers []Observer
	obsMu     sync.Mutex

	// Workers is the number of goroutines used by TrackEnsemble.
	Workers int
}

func New(bl *beamline.BeamLine) *Tracker {
	return &Tracker{line: bl, logger: slog.Default(), Workers: 1}
}

func (t *Tracker) AddMetric(m Metric)     { t.metrics = append(t.metrics, m) }
func (t *Tracker) AddObserver(o Observer) { t.observers = append(t.observers, o) }

func (t *Tracker) SetLogger(l *slog.Logger) {
	if l != nil {
		t.logger = l
	}
}

// TrackOne tracks a new particle from the source with the given initial
// state.
func TrackOne(bl *beamline.BeamLine, initial optics.PhaseSpace) (*particle.Particle, error) {
	return New(bl).TrackOne(1, initial)
}

// TrackOne creates particle id at the source and tracks it to the end of
// the line or its loss.
func (t *Tracker) TrackOne(id uint64, initial optics.PhaseSpace) (*particle.Particle, error) {
	var p *particle.Particle
	err := t.line.View(func(ref *physics.Reference, elems []elements.Element) error {
		p = particle.New(id, ref.Species)
		return t.run(ref, elems, p, initial)
	})
	return p, err
}

// Track continues p from the element after its last snapshot.
func (t *Tracker) Track(p *particle.Particle) error {
	if p.Len() == 0 {
		return particle.ErrNotStarted
	}
	return t.line.View(func(ref *physics.Reference, elems []elements.Element) error {
		return t.run(ref, elems, p, optics.PhaseSpace{})
	})
}

func (t *Tracker) run(ref *physics.Reference, elems []elements.Element, p *particle.Particle, initial optics.PhaseSpace) error {
	if !ref.Defined() {
		return &optics.ComputationError{Element: "reference", Wrapped: optics.ErrRigidityUndefined}
	}
	if len(elems) == 0 {
		return beamline.ErrEmpty
	}

	start := 0
	var v optics.PhaseSpace
	path := 0.0
	if last, ok := p.Final(); ok {
		start = last.Index + 1
		v = last.State
		path = last.Path
	} else {
		v = initial
	}

	for i := start; i < len(elems) && !p.Lost(); i++ {
		e := elems[i]
		started := p.Len() > 0
		if e.Kind() == elements.KindSource && started {
			continue
		}

		if !e.Transmits(v) {
			t.lose(p, i, optics.ApertureLoss)
			break
		}

		out, err := e.Apply(ref, v)
		if err != nil {
			if errors.Is(err, optics.ErrExpansionFailure) {
				t.lose(p, i, optics.ExpansionFailure)
				break
			}
			return fmt.Errorf("particle %d at %s: %w", p.ID, e.Name(), err)
		}
		if !out.IsValid() {
			t.lose(p, i, optics.InvalidState)
			break
		}

		path += e.Length()
		if started {
			err = p.Advance(e.Name(), i, out, path)
		} else {
			err = p.Start(e.Name(), i, out)
		}
		if err != nil {
			return err
		}
		v = out
		t.snapshot(p, i, out)
	}
	return nil
}

func (t *Tracker) lose(p *particle.Particle, index int, reason optics.LossReason) {
	p.MarkLost(index, reason)
	if len(t.observers) == 0 {
		return
	}
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for _, o := range t.observers {
		o.OnLoss(p, index, reason)
	}
}

func (t *Tracker) snapshot(p *particle.Particle, index int, v optics.PhaseSpace) {
	if len(t.observers) == 0 {
		return
	}
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for _, o := range t.observers {
		o.OnSnapshot(p, index, v)
	}
}
