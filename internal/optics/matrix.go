package optics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Identity returns a new 6x6 identity matrix.
func Identity() *mat.Dense {
	m := mat.NewDense(Dim, Dim, nil)
	for i := 0; i < Dim; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// DriftMatrix is the transfer matrix of a field-free region of length l for
// a reference particle with the given beta and gamma.
func DriftMatrix(l, beta, gamma float64) *mat.Dense {
	m := Identity()
	m.Set(X, XP, l)
	m.Set(Y, YP, l)
	if beta > 0 && gamma > 0 {
		m.Set(Z, Delta, l/(beta*beta*gamma*gamma))
	}
	return m
}

// SetBlock writes a 2x2 block at (row, col).
func SetBlock(m *mat.Dense, row, col int, a [2][2]float64) {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			m.Set(row+i, col+j, a[i][j])
		}
	}
}

// RollMatrix rotates the transverse coordinates by angle about the z axis.
func RollMatrix(angle float64) *mat.Dense {
	m := Identity()
	if angle == 0 {
		return m
	}
	c, s := math.Cos(angle), math.Sin(angle)
	m.Set(X, X, c)
	m.Set(X, Y, s)
	m.Set(Y, X, -s)
	m.Set(Y, Y, c)
	m.Set(XP, XP, c)
	m.Set(XP, YP, s)
	m.Set(YP, XP, -s)
	m.Set(YP, YP, c)
	return m
}

// Mul returns a·b as a new matrix.
func Mul(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

// MulVec applies m to v.
func MulVec(m mat.Matrix, v PhaseSpace) PhaseSpace {
	in := mat.NewVecDense(Dim, v.Slice())
	var out mat.VecDense
	out.MulVec(m, in)
	var r PhaseSpace
	for i := 0; i < Dim; i++ {
		r[i] = out.AtVec(i)
	}
	return r
}

// IsIdentity reports whether m is the identity within tol.
func IsIdentity(m mat.Matrix, tol float64) bool {
	return mat.EqualApprox(m, Identity(), tol)
}
