package beamline

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/san-kum/beamline/internal/elements"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
)

var (
	ErrBuilt    = errors.New("beamline: already built")
	ErrNotBuilt = errors.New("beamline: not built")
	ErrEmpty    = errors.New("beamline: no elements")
)

// BeamLine is an ordered sequence of elements. Tracking holds the read lock
// through [BeamLine.View]; changing the reference takes the write lock so no
// pass ever sees a half-updated reference.
type BeamLine struct {
	mu        sync.RWMutex
	ref       *physics.Reference
	elems     []elements.Element
	positions []float64
	built     bool
}

func New(ref *physics.Reference) *BeamLine {
	return &BeamLine{ref: ref}
}

// Append adds e to the end of the line. The first element must be a source
// and no later element may be.
func (b *BeamLine) Append(e elements.Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return ErrBuilt
	}
	switch {
	case len(b.elems) == 0 && e.Kind() != elements.KindSource:
		return &optics.ConfigurationError{Element: e.Name(), Reason: "first element must be a Source, got " + e.Kind().String()}
	case len(b.elems) > 0 && e.Kind() == elements.KindSource:
		return &optics.ConfigurationError{Element: e.Name(), Reason: "beamline already has a Source"}
	}
	l := e.Length()
	if l < 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return &optics.ConfigurationError{Element: e.Name(), Parameter: "Length", Reason: fmt.Sprintf("invalid length %g", l)}
	}
	b.elems = append(b.elems, e)
	return nil
}

// Build freezes the line and lays out its geometry.
func (b *BeamLine) Build() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return ErrBuilt
	}
	if len(b.elems) == 0 {
		return ErrEmpty
	}

	b.positions = make([]float64, len(b.elems))
	s := 0.0
	for i, e := range b.elems {
		s += e.Length()
		b.positions[i] = s
	}
	b.layout()
	b.built = true
	return nil
}

// layout binds each element to its exit placement and records the
// reference interfaces. Caller holds the write lock.
func (b *BeamLine) layout() {
	if b.ref != nil {
		b.ref.ResetGeometry()
	}
	entrance := optics.Placement{}
	for i, e := range b.elems {
		exit := e.Exit(entrance)
		e.Bind(i, exit)
		if b.ref != nil {
			b.ref.RecordInterface(entrance.Origin, exit.Origin)
		}
		entrance = exit
	}
}

func (b *BeamLine) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.elems)
}

// At returns the element at index i, or nil if out of range.
func (b *BeamLine) At(i int) elements.Element {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i < 0 || i >= len(b.elems) {
		return nil
	}
	return b.elems[i]
}

// Elements returns a copy of the element list.
func (b *BeamLine) Elements() []elements.Element {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]elements.Element, len(b.elems))
	copy(out, b.elems)
	return out
}

func (b *BeamLine) TotalLength() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.positions) == 0 {
		return 0
	}
	return b.positions[len(b.positions)-1]
}

// Position returns the cumulative path length at the exit of element i.
func (b *BeamLine) Position(i int) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.built {
		return 0, ErrNotBuilt
	}
	if i < 0 || i >= len(b.positions) {
		return 0, fmt.Errorf("beamline: index %d out of range [0,%d)", i, len(b.positions))
	}
	return b.positions[i], nil
}

// IndexAt returns the index of the element occupying path length s, that is
// the first element whose exit lies at or beyond s. It returns -1 past the
// end of the line.
func (b *BeamLine) IndexAt(s float64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := sort.SearchFloat64s(b.positions, s)
	if i >= len(b.positions) {
		return -1
	}
	return i
}

// Find returns the first element named name.
func (b *BeamLine) Find(name string) (elements.Element, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.elems {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// Source returns the line's source element.
func (b *BeamLine) Source() *elements.Source {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.elems) == 0 {
		return nil
	}
	s, _ := b.elems[0].(*elements.Source)
	return s
}

func (b *BeamLine) Reference() *physics.Reference {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ref
}

// SetReference replaces the reference particle. Element matrices are cached
// by rigidity, so the next pass recomputes them for the new reference.
func (b *BeamLine) SetReference(ref *physics.Reference) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ref = ref
	if b.built {
		b.layout()
	}
}

// View runs fn with the reference and elements while holding the read lock.
// Tracking passes run inside View.
func (b *BeamLine) View(fn func(ref *physics.Reference, elems []elements.Element) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.built {
		return ErrNotBuilt
	}
	return fn(b.ref, b.elems)
}

// Prepare computes every element's transfer matrix for the current
// reference, failing on the first element that cannot.
func (b *BeamLine) Prepare() error {
	return b.View(func(ref *physics.Reference, elems []elements.Element) error {
		for _, e := range elems {
			if _, err := e.TransferMatrix(ref); err != nil {
				return err
			}
		}
		return nil
	})
}
