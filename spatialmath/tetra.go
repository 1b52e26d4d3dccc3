package spatialmath

import (
	"iter"
	"math"

	"github.com/golang/geo/r3"
)

// SliverScore is a binary sliver detector for tetrahedron (p1, p2, p3, p4). It returns 1 when, at
// any vertex, the three unit edge vectors leaving it are within tol.Sliver of coplanar (or an edge
// has zero length), and 0 otherwise.
func SliverScore(p1, p2, p3, p4 r3.Vector, tol Tolerances) float64 {
	pts := [4]r3.Vector{p1, p2, p3, p4}
	for i := range pts {
		var edges [3]r3.Vector
		k := 0
		for j := range pts {
			if j == i {
				continue
			}
			e := pts[j].Sub(pts[i])
			norm := e.Norm()
			if norm <= floatEpsilon {
				return 1
			}
			edges[k] = e.Mul(1 / norm)
			k++
		}
		if math.Abs(edges[0].Dot(edges[1].Cross(edges[2]))) <= tol.Sliver {
			return 1
		}
	}
	return 0
}

// Barycenter returns the arithmetic mean of the points, or the zero vector for no points.
func Barycenter(pts ...r3.Vector) r3.Vector {
	if len(pts) == 0 {
		return r3.Vector{}
	}
	var sum r3.Vector
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(pts)))
}

// Barycenter3 returns the barycenter of a triangle.
func Barycenter3(p0, p1, p2 r3.Vector) r3.Vector {
	return p0.Add(p1).Add(p2).Mul(1. / 3)
}

// Barycenter4 returns the barycenter of a tetrahedron.
func Barycenter4(p0, p1, p2, p3 r3.Vector) r3.Vector {
	return p0.Add(p1).Add(p2).Add(p3).Mul(0.25)
}

// BarycenterSeq returns the barycenter of every point yielded by seq. The boolean is false when
// seq is empty.
func BarycenterSeq(seq iter.Seq[r3.Vector]) (r3.Vector, bool) {
	var sum r3.Vector
	n := 0
	for p := range seq {
		sum = sum.Add(p)
		n++
	}
	if n == 0 {
		return r3.Vector{}, false
	}
	return sum.Mul(1 / float64(n)), true
}
