package elements

import (
	"fmt"
	"strings"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// Shape of an aperture's transmission region.
type Shape int

const (
	Circular Shape = iota
	Elliptical
	Rectangular
)

func (s Shape) String() string {
	switch s {
	case Circular:
		return "circular"
	case Elliptical:
		return "elliptical"
	case Rectangular:
		return "rectangular"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

func parseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "circular", "circle":
		return Circular, nil
	case "elliptical", "ellipse":
		return Elliptical, nil
	case "rectangular", "rectangle":
		return Rectangular, nil
	}
	return 0, fmt.Errorf("unknown aperture shape %q", s)
}

// Aperture removes particles whose transverse position lies outside its
// transmission region. The boundary is inclusive: a particle exactly on the
// edge is transmitted.
//
// For a circular aperture only A is used (the radius). For elliptical
// apertures A and B are the semi-axes in x and y; for rectangular apertures
// they are the half-width and half-height.
type Aperture struct {
	base
	Shape Shape
	A, B  float64
}

func init() {
	register(Spec{
		Kind:     KindAperture,
		Required: []string{"Radius | RadiusX,RadiusY | HalfWidth,HalfHeight"},
		Optional: []string{"Shape", "Length", "Roll"},
	}, newAperture)
}

func newAperture(name string, r *paramReader) Element {
	shape, err := parseShape(r.text("Shape", "circular"))
	if err != nil {
		r.fail("Shape", err.Error(), nil)
	}
	a := &Aperture{
		base:  newBase(name, KindAperture, r.nonNegative("Length", r.optional("Length", 0)), r.optional("Roll", 0)),
		Shape: shape,
	}
	switch shape {
	case Circular:
		a.A = r.positive("Radius", r.required("Radius"))
		a.B = a.A
	case Elliptical:
		a.A = r.positive("RadiusX", r.required("RadiusX"))
		a.B = r.positive("RadiusY", r.required("RadiusY"))
	case Rectangular:
		a.A = r.positive("HalfWidth", r.required("HalfWidth"))
		a.B = r.positive("HalfHeight", r.required("HalfHeight"))
	}
	return a
}

// NewCircularAperture returns a zero-length circular aperture.
func NewCircularAperture(name string, radius float64) *Aperture {
	return &Aperture{base: newBase(name, KindAperture, 0, 0), Shape: Circular, A: radius, B: radius}
}

func NewEllipticalAperture(name string, rx, ry float64) *Aperture {
	return &Aperture{base: newBase(name, KindAperture, 0, 0), Shape: Elliptical, A: rx, B: ry}
}

func NewRectangularAperture(name string, halfWidth, halfHeight float64) *Aperture {
	return &Aperture{base: newBase(name, KindAperture, 0, 0), Shape: Rectangular, A: halfWidth, B: halfHeight}
}

func (a *Aperture) Transmits(v optics.PhaseSpace) bool {
	x, y := v[optics.X], v[optics.Y]
	switch a.Shape {
	case Circular:
		return x*x+y*y <= a.A*a.A
	case Elliptical:
		u, w := x/a.A, y/a.B
		return u*u+w*w <= 1
	case Rectangular:
		return x >= -a.A && x <= a.A && y >= -a.B && y <= a.B
	}
	return false
}

// TransferMatrix of an aperture is that of a drift of its length.
func (a *Aperture) TransferMatrix(ref *physics.Reference) (*mat.Dense, error) {
	return a.transfer(ref, func(ref *physics.Reference) (*mat.Dense, error) {
		return optics.DriftMatrix(a.length, ref.Beta(), ref.Gamma()), nil
	})
}

func (a *Aperture) Apply(ref *physics.Reference, v optics.PhaseSpace) (optics.PhaseSpace, error) {
	return applyLinear(a, ref, v)
}
