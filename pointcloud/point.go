package pointcloud

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// PointID is a non-owning handle to a point stored in a Store. Two handles are the same point
// only if they are equal; equal coordinates do not make two points the same.
type PointID int

// NoPoint is the handle that refers to no point at all.
const NoPoint PointID = -1

// Valid reports whether the handle refers to a point.
func (id PointID) Valid() bool {
	return id >= 0
}

func (id PointID) String() string {
	if !id.Valid() {
		return "pt(none)"
	}
	return fmt.Sprintf("pt(%d)", int(id))
}

// Store resolves point handles to coordinates.
type Store interface {
	// At returns the current coordinates of the point.
	At(id PointID) r3.Vector
}

// MutableStore is a Store whose points can be moved.
type MutableStore interface {
	Store
	// Set overwrites the coordinates of the point.
	Set(id PointID, p r3.Vector)
}

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}
