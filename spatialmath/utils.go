// Package spatialmath is the geometric predicate library of the DeLink kernel: triangle frames,
// circumspheres, intersections, point location and sliver detection.
//
// Every predicate is a pure function. Degenerate inputs are reported through errors or boolean
// results, never through NaN coordinates.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// floatEpsilon is the tolerance below which a length is treated as zero when no caller supplied
// tolerance applies.
const floatEpsilon = 1e-12

// Tolerances are the epsilons shared by the intersection and location predicates.
type Tolerances struct {
	// EdgeInside (EDGI_EPS) is the barycentric margin inside a triangle edge within which a hit
	// is snapped onto the edge.
	EdgeInside float64
	// EdgeOutside (EDGO_EPS) is the barycentric margin outside a triangle edge within which a
	// hit still counts as on the edge. It is smaller than EdgeInside.
	EdgeOutside float64
	// Intersection (ITL_EPS) bounds |cos| between a segment and a plane below which they are
	// parallel.
	Intersection float64
	// Volume (VOL_EPS) bounds the signed tetrahedron volume below which four points are coplanar.
	Volume float64
	// Sliver bounds the normalized triple product of three edge vectors below which a
	// tetrahedron is a sliver.
	Sliver float64
}

// DefaultTolerances returns the tolerances the mesher runs with unless configured otherwise.
func DefaultTolerances() Tolerances {
	return Tolerances{
		EdgeInside:   1e-3,
		EdgeOutside:  1e-5,
		Intersection: 1e-6,
		Volume:       1e-12,
		Sliver:       1e-2,
	}
}

// PlaneNormal returns the unnormalized normal (p1-p0)x(p2-p0) of the plane through three points.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	return p1.Sub(p0).Cross(p2.Sub(p0))
}

// ClosestPointSegmentPoint returns the point on segment [segA, segB] closest to query.
func ClosestPointSegmentPoint(segA, segB, query r3.Vector) r3.Vector {
	ab := segB.Sub(segA)
	denom := ab.Norm2()
	if denom == 0 {
		return segA
	}
	t := query.Sub(segA).Dot(ab) / denom
	t = math.Max(0, math.Min(1, t))
	return segA.Add(ab.Mul(t))
}

// R3VectorAlmostEqual compares two vectors component wise within epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) <= epsilon && math.Abs(a.Y-b.Y) <= epsilon && math.Abs(a.Z-b.Z) <= epsilon
}
