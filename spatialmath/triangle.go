package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrDegenerateTriangle is returned for triangles whose vertices are collinear.
var ErrDegenerateTriangle = errors.New("degenerate triangle: vertices are collinear")

// TriangleFrame is the set of quantities derived from a triangle that every Delaunay predicate
// needs. It is recomputed for each check and never stored.
type TriangleFrame struct {
	P0, P1, P2 r3.Vector

	// VA and VB are the base edges P1-P0 and P2-P0.
	VA, VB r3.Vector
	// NU is the unnormalized normal VA x VB, N its unit vector.
	NU, N r3.Vector
	// A and B place the circumcenter in the edge basis: H = P0 + A*VA + B*VB.
	A, B float64
	// H is the circumcenter and LP1H the circumradius |H-P0|.
	H    r3.Vector
	LP1H float64

	nu2 float64
}

// NewTriangleFrame computes the frame of triangle (p0, p1, p2). The degeneracy test is an exact
// comparison of |VA x VB|^2 with zero.
func NewTriangleFrame(p0, p1, p2 r3.Vector) (*TriangleFrame, error) {
	va := p1.Sub(p0)
	vb := p2.Sub(p0)
	nu := va.Cross(vb)
	nu2 := nu.Norm2()
	if nu2 == 0 {
		return nil, ErrDegenerateTriangle
	}

	va2 := va.Norm2()
	vb2 := vb.Norm2()
	vab := va.Dot(vb)
	a := vb2 * (va2 - vab) / (2 * nu2)
	b := va2 * (vb2 - vab) / (2 * nu2)
	h := p0.Add(va.Mul(a)).Add(vb.Mul(b))

	return &TriangleFrame{
		P0:   p0,
		P1:   p1,
		P2:   p2,
		VA:   va,
		VB:   vb,
		NU:   nu,
		N:    nu.Mul(1 / math.Sqrt(nu2)),
		A:    a,
		B:    b,
		H:    h,
		LP1H: h.Sub(p0).Norm(),
		nu2:  nu2,
	}, nil
}

// Points returns the vertices in order.
func (f *TriangleFrame) Points() [3]r3.Vector {
	return [3]r3.Vector{f.P0, f.P1, f.P2}
}

// Area returns the triangle area.
func (f *TriangleFrame) Area() float64 {
	return math.Sqrt(f.nu2) / 2
}

// Area2 returns the squared triangle area.
func (f *TriangleFrame) Area2() float64 {
	return f.nu2 / 4
}

// PlaneDistance returns the signed distance of p from the triangle plane, positive on the side
// N points to.
func (f *TriangleFrame) PlaneDistance(p r3.Vector) float64 {
	return f.N.Dot(p.Sub(f.P0))
}

// Project returns the orthogonal projection of p onto the triangle plane.
func (f *TriangleFrame) Project(p r3.Vector) r3.Vector {
	return p.Sub(f.N.Mul(f.PlaneDistance(p)))
}

// Barycentric returns the barycentric coordinates of the projection of p with respect to
// P0, P1 and P2.
func (f *TriangleFrame) Barycentric(p r3.Vector) [3]float64 {
	w := p.Sub(f.P0)
	b1 := w.Cross(f.VB).Dot(f.NU) / f.nu2
	b2 := f.VA.Cross(w).Dot(f.NU) / f.nu2
	return [3]float64{1 - b1 - b2, b1, b2}
}

// Cosines returns the cosine of the interior angle at P0, P1 and P2. The frame guarantees
// non-zero edge lengths.
func (f *TriangleFrame) Cosines() [3]float64 {
	e01 := f.P1.Sub(f.P0)
	e02 := f.P2.Sub(f.P0)
	e12 := f.P2.Sub(f.P1)
	cosAt := func(u, v r3.Vector) float64 {
		return u.Dot(v) / (u.Norm() * v.Norm())
	}
	return [3]float64{
		cosAt(e01, e02),
		cosAt(e01.Mul(-1), e12),
		cosAt(e02.Mul(-1), e12.Mul(-1)),
	}
}
