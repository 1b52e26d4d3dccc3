package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateVolume is returned when a fourth point is coplanar with a triangle.
var ErrDegenerateVolume = errors.New("degenerate tetrahedron: signed volume within tolerance of zero")

// TetraVolume returns the signed volume of the tetrahedron (f.P0, f.P1, f.P2, p3), positive when
// p3 lies on the side the frame normal points to.
func TetraVolume(f *TriangleFrame, p3 r3.Vector) float64 {
	return f.NU.Dot(p3.Sub(f.P0)) / 6
}

// TetraCircumsphere returns the center M of the sphere through the triangle's vertices and p3,
// and lambda, the signed offset of M from the triangle circumcenter along the unit normal:
// M = H + lambda*N. The squared radius of that sphere is LP1H^2 + lambda^2.
func TetraCircumsphere(f *TriangleFrame, p3 r3.Vector, tol Tolerances) (r3.Vector, float64, error) {
	det := TetraVolume(f, p3)
	if math.Abs(det) <= tol.Volume {
		return r3.Vector{}, 0, ErrDegenerateVolume
	}
	// |H + l*N - p3|^2 = LP1H^2 + l^2 solved for l.
	hp3 := f.H.Sub(p3)
	lambda := (hp3.Norm2() - f.LP1H*f.LP1H) / (2 * f.N.Dot(p3.Sub(f.P0)))
	return f.H.Add(f.N.Mul(lambda)), lambda, nil
}

// SphereAt returns the center and squared radius of the member of the triangle's sphere pencil
// whose center is offset lambda along the normal.
func SphereAt(f *TriangleFrame, lambda float64) (r3.Vector, float64) {
	return f.H.Add(f.N.Mul(lambda)), f.LP1H*f.LP1H + lambda*lambda
}

// EdgeCircumsphereHT returns the circumcenter H of triangle (p0, p1, p2) and T, the derivative of
// H when p1 slides along the edge direction (p1-p0)/|p1-p0|. Relaxation uses T to predict how the
// circumcenter reacts to edge length changes.
func EdgeCircumsphereHT(p0, p1, p2 r3.Vector) (r3.Vector, r3.Vector, error) {
	f, err := NewTriangleFrame(p0, p1, p2)
	if err != nil {
		return r3.Vector{}, r3.Vector{}, err
	}
	u := f.VA.Normalize()
	du := u.Cross(f.VB)

	// Rows are the gradients of the three circumcenter constraints
	// VA.H = (|p1|^2-|p0|^2)/2, VB.H = (|p2|^2-|p0|^2)/2 and NU.H = NU.p0.
	system := mat.NewDense(3, 3, []float64{
		f.VA.X, f.VA.Y, f.VA.Z,
		f.VB.X, f.VB.Y, f.VB.Z,
		f.NU.X, f.NU.Y, f.NU.Z,
	})
	rhs := mat.NewVecDense(3, []float64{
		u.Dot(p1.Sub(f.H)),
		0,
		du.Dot(p0.Sub(f.H)),
	})
	var dh mat.VecDense
	// An ill-conditioned solve still yields a result; only a singular system is fatal here.
	var cond mat.Condition
	if err := dh.SolveVec(system, rhs); err != nil && !errors.As(err, &cond) {
		return r3.Vector{}, r3.Vector{}, errors.Wrap(ErrDegenerateTriangle, err.Error())
	}
	return f.H, r3.Vector{X: dh.AtVec(0), Y: dh.AtVec(1), Z: dh.AtVec(2)}, nil
}
