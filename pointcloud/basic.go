package pointcloud

import (
	"github.com/golang/geo/r3"
)

// Pool is the arena that owns point coordinates. Handles are indices into the arena and stay
// valid for the pool's lifetime; points are never removed, only moved.
type Pool struct {
	points []r3.Vector
	meta   MetaData
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return NewPoolWithPrealloc(0)
}

// NewPoolWithPrealloc returns an empty, preallocated pool.
func NewPoolWithPrealloc(size int) *Pool {
	return &Pool{
		points: make([]r3.Vector, 0, size),
		meta:   NewMetaData(),
	}
}

// NewPoolFromVectors returns a pool holding the given points, in order, so that the handle of
// vs[i] is PointID(i).
func NewPoolFromVectors(vs ...r3.Vector) *Pool {
	pool := NewPoolWithPrealloc(len(vs))
	for _, v := range vs {
		pool.Add(v)
	}
	return pool
}

// Add appends a point and returns its handle.
func (pool *Pool) Add(p r3.Vector) PointID {
	pool.points = append(pool.points, p)
	pool.meta.Merge(p)
	return PointID(len(pool.points) - 1)
}

// Size returns the number of points in the pool.
func (pool *Pool) Size() int {
	return len(pool.points)
}

// MetaData returns the envelope of every position any point has occupied.
func (pool *Pool) MetaData() MetaData {
	return pool.meta
}

// At returns the coordinates of the point. It panics on a handle the pool never issued.
func (pool *Pool) At(id PointID) r3.Vector {
	return pool.points[id]
}

// Set moves the point. The metadata envelope only ever grows.
func (pool *Pool) Set(id PointID, p r3.Vector) {
	pool.points[id] = p
	pool.meta.Merge(p)
}

// Iterate calls fn for every point in handle order. If fn returns false, iteration stops.
func (pool *Pool) Iterate(fn func(id PointID, p r3.Vector) bool) {
	for i, p := range pool.points {
		if !fn(PointID(i), p) {
			return
		}
	}
}

// IDs returns every handle issued by the pool.
func (pool *Pool) IDs() []PointID {
	ids := make([]PointID, len(pool.points))
	for i := range ids {
		ids[i] = PointID(i)
	}
	return ids
}
