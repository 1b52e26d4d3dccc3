// Package pointcloud holds the points referenced by the octree and the Delaunay checks.
//
// Points live in a Pool and are addressed by PointID handles. Nothing else in the module owns
// coordinates: the octree and the predicates only ever borrow them through a Store.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point pool.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	inited bool // just to prevent someone creating the wrong way
}

// NewMetaData returns an empty envelope.
func NewMetaData() MetaData {
	return MetaData{
		MinX:   math.MaxFloat64,
		MinY:   math.MaxFloat64,
		MinZ:   math.MaxFloat64,
		MaxX:   -math.MaxFloat64,
		MaxY:   -math.MaxFloat64,
		MaxZ:   -math.MaxFloat64,
		inited: true,
	}
}

// Empty reports whether no point was ever merged.
func (meta *MetaData) Empty() bool {
	return !meta.inited || meta.MinX > meta.MaxX
}

// Merge grows the envelope so that it contains p.
func (meta *MetaData) Merge(p r3.Vector) {
	if !meta.inited {
		*meta = NewMetaData()
	}

	if p.X > meta.MaxX {
		meta.MaxX = p.X
	}
	if p.Y > meta.MaxY {
		meta.MaxY = p.Y
	}
	if p.Z > meta.MaxZ {
		meta.MaxZ = p.Z
	}

	if p.X < meta.MinX {
		meta.MinX = p.X
	}
	if p.Y < meta.MinY {
		meta.MinY = p.Y
	}
	if p.Z < meta.MinZ {
		meta.MinZ = p.Z
	}
}

// BoundingBox returns the closed envelope [min, max] of every point merged so far.
func (meta *MetaData) BoundingBox() (r3.Vector, r3.Vector) {
	return r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}, r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ}
}

// HalfOpenBox returns a box [min, max) that strictly contains the envelope, grown by margin
// (a fraction of the largest extent) on every side. An octree built over it accepts every
// merged point.
func (meta *MetaData) HalfOpenBox(margin float64) (r3.Vector, r3.Vector) {
	lo, hi := meta.BoundingBox()
	extent := hi.Sub(lo)
	pad := math.Max(extent.X, math.Max(extent.Y, extent.Z)) * margin
	if pad == 0 {
		pad = 1
	}
	grow := r3.Vector{X: pad, Y: pad, Z: pad}
	return lo.Sub(grow), hi.Add(grow)
}
