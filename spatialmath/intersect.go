package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// IntersectionClass is the outcome of a segment against triangle test. Values 0 to 2 name the
// edge hit, identified by the index of the vertex opposite to it.
type IntersectionClass int

const (
	// EdgeOpposite0 is a hit on edge (1,2).
	EdgeOpposite0 IntersectionClass = iota
	// EdgeOpposite1 is a hit on edge (2,0).
	EdgeOpposite1
	// EdgeOpposite2 is a hit on edge (0,1).
	EdgeOpposite2
	// IntersectInterior is a hit strictly inside the triangle.
	IntersectInterior
	// IntersectNone means the segment misses the triangle.
	IntersectNone
)

func (c IntersectionClass) String() string {
	switch c {
	case EdgeOpposite0:
		return "edge(1,2)"
	case EdgeOpposite1:
		return "edge(2,0)"
	case EdgeOpposite2:
		return "edge(0,1)"
	case IntersectInterior:
		return "interior"
	case IntersectNone:
		return "none"
	}
	return "unknown"
}

// SegmentTriangleIntersection intersects the segment origin ± halfLength*dir (dir must be a unit
// vector) with the triangle. Hits within tol.EdgeInside inside an edge, or tol.EdgeOutside outside
// it, snap onto that edge.
func SegmentTriangleIntersection(f *TriangleFrame, origin, dir r3.Vector, halfLength float64, tol Tolerances) IntersectionClass {
	cos := f.N.Dot(dir)
	if math.Abs(cos) <= tol.Intersection {
		return IntersectNone
	}
	t := f.N.Dot(f.P0.Sub(origin)) / cos
	if math.Abs(t) > halfLength {
		return IntersectNone
	}
	bary := f.Barycentric(origin.Add(dir.Mul(t)))

	edge := -1
	for i, b := range bary {
		if b <= -tol.EdgeOutside {
			return IntersectNone
		}
		if b < tol.EdgeInside && (edge < 0 || b < bary[edge]) {
			edge = i
		}
	}
	if edge < 0 {
		return IntersectInterior
	}
	return IntersectionClass(edge)
}

// SegmentPlaneIntersection intersects segment seg[0]->seg[1] with the plane through the three
// plane points. It fails on an ill-defined plane, a zero length segment, a segment within
// tol.Intersection of parallel, or a hit outside the segment.
func SegmentPlaneIntersection(plane [3]r3.Vector, seg [2]r3.Vector, tol Tolerances) (r3.Vector, bool) {
	e1 := plane[1].Sub(plane[0])
	e2 := plane[2].Sub(plane[0])
	nu := e1.Cross(e2)
	nuLen := nu.Norm()
	if nuLen <= floatEpsilon || nuLen <= tol.Intersection*e1.Norm()*e2.Norm() {
		return r3.Vector{}, false
	}
	n := nu.Mul(1 / nuLen)

	d := seg[1].Sub(seg[0])
	length := d.Norm()
	if length <= floatEpsilon {
		return r3.Vector{}, false
	}
	dir := d.Mul(1 / length)

	cos := n.Dot(dir)
	if math.Abs(cos) <= tol.Intersection {
		return r3.Vector{}, false
	}
	t := n.Dot(plane[0].Sub(seg[0])) / cos
	if t < 0 || t > length {
		return r3.Vector{}, false
	}
	return seg[0].Add(dir.Mul(t)), true
}

// TriangleLocation classifies a point projected onto a triangle's plane.
type TriangleLocation int

const (
	// OnVertex0 is at vertex 0.
	OnVertex0 TriangleLocation = iota
	// OnVertex1 is at vertex 1.
	OnVertex1
	// OnVertex2 is at vertex 2.
	OnVertex2
	// OnEdge12 is on edge (1,2).
	OnEdge12
	// OnEdge20 is on edge (2,0).
	OnEdge20
	// OnEdge01 is on edge (0,1).
	OnEdge01
	// Inside is strictly inside.
	Inside
	// OutsideVertex0 is beyond vertex 0.
	OutsideVertex0
	// OutsideVertex1 is beyond vertex 1.
	OutsideVertex1
	// OutsideVertex2 is beyond vertex 2.
	OutsideVertex2
	// OutsideEdge12 is beyond edge (1,2).
	OutsideEdge12
	// OutsideEdge20 is beyond edge (2,0).
	OutsideEdge20
	// OutsideEdge01 is beyond edge (0,1).
	OutsideEdge01
)

var triangleLocationNames = [...]string{
	"vertex0", "vertex1", "vertex2",
	"edge(1,2)", "edge(2,0)", "edge(0,1)",
	"inside",
	"outside-vertex0", "outside-vertex1", "outside-vertex2",
	"outside-edge(1,2)", "outside-edge(2,0)", "outside-edge(0,1)",
}

func (loc TriangleLocation) String() string {
	if loc < 0 || int(loc) >= len(triangleLocationNames) {
		return "unknown"
	}
	return triangleLocationNames[loc]
}

// OnTriangle reports whether the location is a vertex, an edge or the interior.
func (loc TriangleLocation) OnTriangle() bool {
	return loc >= OnVertex0 && loc <= Inside
}

// PointInTriangle projects p onto the triangle plane and classifies the projection. It uses the
// same two epsilon scheme as SegmentTriangleIntersection. The projection is returned as well.
func PointInTriangle(f *TriangleFrame, p r3.Vector, tol Tolerances) (TriangleLocation, r3.Vector) {
	q := f.Project(p)
	bary := f.Barycentric(q)

	var outside, on []int
	for i, b := range bary {
		switch {
		case b <= -tol.EdgeOutside:
			outside = append(outside, i)
		case b < tol.EdgeInside:
			on = append(on, i)
		}
	}
	// third is the index that is neither i nor j.
	third := func(i, j int) int {
		return 3 - i - j
	}

	switch len(outside) {
	case 0:
	case 1:
		return OutsideEdge12 + TriangleLocation(outside[0]), q
	default:
		return OutsideVertex0 + TriangleLocation(third(outside[0], outside[1])), q
	}

	switch len(on) {
	case 0:
		return Inside, q
	case 1:
		return OnEdge12 + TriangleLocation(on[0]), q
	case 2:
		return OnVertex0 + TriangleLocation(third(on[0], on[1])), q
	default:
		best := 0
		for i := range bary {
			if bary[i] > bary[best] {
				best = i
			}
		}
		return OnVertex0 + TriangleLocation(best), q
	}
}
