package elements

import (
	"sync"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// Element is one optical element of a beamline.
type Element interface {
	Name() string
	Index() int
	Length() float64
	Kind() Kind
	// Roll is the rotation of the exit frame about the beam axis.
	Roll() float64
	Placement() optics.Placement

	// Exit returns the exit-plane placement given the entrance placement.
	Exit(entrance optics.Placement) optics.Placement

	// Bind fixes the element's index and exit placement in its beamline. It
	// is called once by the beamline builder.
	Bind(index int, p optics.Placement)

	// TransferMatrix returns the (linearised) 6x6 map from entrance to exit
	// for ref. The result is the caller's own copy.
	TransferMatrix(ref *physics.Reference) (*mat.Dense, error)

	// Apply transforms v from the entrance to the exit of the element.
	Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error)

	// Transmits reports whether v lies inside the element's physical
	// aperture. Only apertures ever return false.
	Transmits(v optics.PhaseSpace) bool

	ToLocal(lab optics.LabCoordinates) optics.PhaseSpace
	ToLab(v optics.PhaseSpace) optics.LabCoordinates
}

type base struct {
	name      string
	kind      Kind
	index     int
	length    float64
	roll      float64
	placement optics.Placement
	cache     *matrixCache
}

func newBase(name string, kind Kind, length, roll float64) base {
	return base{name: name, kind: kind, index: -1, length: length, roll: roll, cache: &matrixCache{}}
}

func (b *base) Name() string                     { return b.name }
func (b *base) Index() int                       { return b.index }
func (b *base) Length() float64                  { return b.length }
func (b *base) Kind() Kind                       { return b.kind }
func (b *base) Roll() float64                    { return b.roll }
func (b *base) Placement() optics.Placement      { return b.placement }
func (b *base) Transmits(optics.PhaseSpace) bool { return true }

func (b *base) Bind(index int, p optics.Placement) {
	b.index = index
	b.placement = p
}

func (b *base) Exit(entrance optics.Placement) optics.Placement {
	var rot mat.Matrix
	if b.roll != 0 {
		rot = optics.RotationZ(b.roll)
	}
	return entrance.Advance(b.length, rot)
}

func (b *base) ToLocal(lab optics.LabCoordinates) optics.PhaseSpace {
	return b.placement.ToLocal(lab)
}

func (b *base) ToLab(v optics.PhaseSpace) optics.LabCoordinates {
	return b.placement.ToLab(v)
}

// transfer resolves the rigidity, consults the cache and appends the exit
// roll to the body matrix. It returns a copy of the cached matrix.
func (b *base) transfer(ref *physics.Reference, body func(*physics.Reference) (*mat.Dense, error)) (*mat.Dense, error) {
	brho := ref.Rigidity()
	if brho <= 0 {
		return nil, &optics.ComputationError{Element: b.name, Rigidity: brho, Wrapped: optics.ErrRigidityUndefined}
	}
	m, err := b.cache.get(keyFor(ref), func() (*mat.Dense, error) {
		m, err := body(ref)
		if err != nil {
			return nil, &optics.ComputationError{Element: b.name, Rigidity: brho, Wrapped: err}
		}
		if b.roll != 0 {
			m = optics.Mul(optics.RollMatrix(b.roll), m)
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(m), nil
}

// rolled applies the exit roll to a vector produced by a non-linear body
// transform.
func (b *base) rolled(v optics.PhaseSpace) optics.PhaseSpace {
	if b.roll == 0 {
		return v
	}
	return optics.MulVec(optics.RollMatrix(b.roll), v)
}

// applyLinear is the default Apply: v' = M v.
func applyLinear(e Element, ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	m, err := e.TransferMatrix(ref)
	if err != nil {
		return v, err
	}
	return optics.MulVec(m, v), nil
}

// cacheKey holds every reference quantity a transfer matrix may depend
// on. Two references with equal rigidity but different species or energy
// have different keys.
type cacheKey struct {
	brho     float64
	momentum float64
	mass     float64
	charge   float64
}

func keyFor(ref *physics.Reference) cacheKey {
	return cacheKey{
		brho:     ref.Rigidity(),
		momentum: ref.Momentum,
		mass:     ref.Species.Mass,
		charge:   ref.Species.Charge,
	}
}

// matrixCache memoizes one matrix per reference. Writers hold the lock
// exclusively so a reader never observes a partially built matrix.
type matrixCache struct {
	mu  sync.RWMutex
	key cacheKey
	m   *mat.Dense
}

func (c *matrixCache) get(key cacheKey, compute func() (*mat.Dense, error)) (*mat.Dense, error) {
	c.mu.RLock()
	if c.m != nil && c.key == key {
		m := c.m
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m != nil && c.key == key {
		return c.m, nil
	}
	m, err := compute()
	if err != nil {
		return nil, err
	}
	c.m = m
	c.key = key
	return m, nil
}

// Cached reports the rigidity the element's matrix was last computed for,
// or 0 if none has been computed.
func (b *base) Cached() float64 {
	b.cache.mu.RLock()
	defer b.cache.mu.RUnlock()
	if b.cache.m == nil {
		return 0
	}
	return b.cache.key.brho
}
