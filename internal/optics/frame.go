package optics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Placement locates an element's exit-plane frame in the lab. Rotation maps
// local axes onto lab axes; a nil Rotation is the identity.
type Placement struct {
	Origin   [3]float64
	Rotation *mat.Dense
}

// NewPlacement copies rot so later changes to it do not leak into the
// placement.
func NewPlacement(origin [3]float64, rot mat.Matrix) Placement {
	p := Placement{Origin: origin}
	if rot != nil {
		p.Rotation = mat.DenseCopyOf(rot)
	}
	return p
}

func (p Placement) rotation() mat.Matrix {
	if p.Rotation == nil {
		return eye3()
	}
	return p.Rotation
}

// ToLab expresses a local phase-space vector in the lab frame. The local
// position lies on the exit plane (local s = 0).
func (p Placement) ToLab(v PhaseSpace) LabCoordinates {
	pos := mat.NewVecDense(3, []float64{v[X], v[Y], 0})
	dir := mat.NewVecDense(3, []float64{v[XP], v[YP], 1})
	dir.ScaleVec(1/mat.Norm(dir, 2), dir)

	rot := p.rotation()
	var labPos, labDir mat.VecDense
	labPos.MulVec(rot, pos)
	labDir.MulVec(rot, dir)

	var out LabCoordinates
	for i := 0; i < 3; i++ {
		out.Position[i] = labPos.AtVec(i) + p.Origin[i]
		out.Direction[i] = labDir.AtVec(i)
	}
	out.Z = v[Z]
	out.Delta = v[Delta]
	return out
}

// ToLocal is the inverse of ToLab. A lab position off the exit plane is
// carried along its direction of motion back onto the plane.
func (p Placement) ToLocal(lab LabCoordinates) PhaseSpace {
	rel := mat.NewVecDense(3, []float64{
		lab.Position[0] - p.Origin[0],
		lab.Position[1] - p.Origin[1],
		lab.Position[2] - p.Origin[2],
	})
	dir := mat.NewVecDense(3, lab.Direction[:])

	rotT := p.rotation().T()
	var pos, d mat.VecDense
	pos.MulVec(rotT, rel)
	d.MulVec(rotT, dir)

	var v PhaseSpace
	dz := d.AtVec(2)
	if dz == 0 {
		v[X], v[Y] = pos.AtVec(0), pos.AtVec(1)
		v[XP], v[YP] = math.Inf(1), math.Inf(1)
	} else {
		v[XP] = d.AtVec(0) / dz
		v[YP] = d.AtVec(1) / dz
		v[X] = pos.AtVec(0) - pos.AtVec(2)*v[XP]
		v[Y] = pos.AtVec(1) - pos.AtVec(2)*v[YP]
	}
	v[Z] = lab.Z
	v[Delta] = lab.Delta
	return v
}

// Advance returns the placement reached by moving a distance l along the
// local z axis and then applying the local rotation rot.
func (p Placement) Advance(l float64, rot mat.Matrix) Placement {
	step := mat.NewVecDense(3, []float64{0, 0, l})
	var d mat.VecDense
	d.MulVec(p.rotation(), step)

	next := Placement{}
	for i := 0; i < 3; i++ {
		next.Origin[i] = p.Origin[i] + d.AtVec(i)
	}
	if rot == nil {
		next.Rotation = mat.DenseCopyOf(p.rotation())
	} else {
		next.Rotation = Mul(p.rotation(), rot)
	}
	return next
}

// ArcAdvance moves along a circular arc of radius rho bending by angle in
// the local x-z plane.
func (p Placement) ArcAdvance(rho, angle float64) Placement {
	chord := mat.NewVecDense(3, []float64{
		-rho * (1 - math.Cos(angle)),
		0,
		rho * math.Sin(angle),
	})
	var d mat.VecDense
	d.MulVec(p.rotation(), chord)

	next := Placement{Rotation: Mul(p.rotation(), RotationY(-angle))}
	for i := 0; i < 3; i++ {
		next.Origin[i] = p.Origin[i] + d.AtVec(i)
	}
	return next
}

func eye3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// RotationY rotates about the vertical axis.
func RotationY(a float64) *mat.Dense {
	c, s := math.Cos(a), math.Sin(a)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

// RotationX rotates about the horizontal transverse axis.
func RotationX(a float64) *mat.Dense {
	c, s := math.Cos(a), math.Sin(a)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

// RotationZ rotates about the beam axis.
func RotationZ(a float64) *mat.Dense {
	c, s := math.Cos(a), math.Sin(a)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}
