// Package octree implements the spatial index of the kernel: an octree over quantized
// coordinates whose leaves are non-owning handles into an external point store. Every
// point sits in the shallowest slot that separates it from all other points, and deleting
// points collapses nodes that no longer need to exist.
package octree

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/delink/logging"
	pc "go.viam.com/delink/pointcloud"
)

// MaxSupportedDepth is the deepest quantization the index supports, in bits per axis.
const MaxSupportedDepth = 30

// ErrReentrant is returned when the index is used from inside one of its own callbacks.
var ErrReentrant = errors.New("octree: nested call from inside a find or delete callback")

// IntegrityError reports a point that cannot be placed in the index because it lies outside
// the declared bounding box. It indicates a broken caller contract and should end the run.
type IntegrityError struct {
	Point  pc.PointID
	Coords r3.Vector
	Min    r3.Vector
	Max    r3.Vector
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("octree integrity violation: %s: %v at %v, box [%v, %v)", e.Reason, e.Point, e.Coords, e.Min, e.Max)
}

// IsIntegrityError reports whether err is or wraps an *IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// Each slot in a node is either empty, holds a single point handle, or owns a child node.
const (
	slotEmpty = slotKind(iota)
	slotPoint
	slotChild
)

type slotKind uint8

type slot struct {
	kind  slotKind
	point pc.PointID
	child *node
}

type node struct {
	slots [8]slot
}

// cell is a quantized coordinate, one value per axis.
type cell [3]int64

// index is the child slot of c in a node that discriminates on bit.
func (c cell) index(bit int) int {
	return int((c[0]>>bit)&1 | ((c[1]>>bit)&1)<<1 | ((c[2]>>bit)&1)<<2)
}

// Octree indexes points of a store. It is not safe for concurrent use.
type Octree struct {
	store    pc.Store
	bbmin    r3.Vector
	bbmax    r3.Vector
	step     r3.Vector
	maxDepth int
	cells    int64

	root slot
	size int
	busy bool

	logger logging.Logger
}

// New creates an empty index over the half-open box [bbmin, bbmax) with maxDepth bits of
// resolution per axis. A nil logger logs through logging.Global.
func New(store pc.Store, bbmin, bbmax r3.Vector, maxDepth int, logger logging.Logger) (*Octree, error) {
	if store == nil {
		return nil, errors.New("octree: a point store is required")
	}
	if maxDepth < 1 || maxDepth > MaxSupportedDepth {
		return nil, errors.Errorf("octree: max depth %d outside [1, %d]", maxDepth, MaxSupportedDepth)
	}
	for _, v := range []float64{bbmin.X, bbmin.Y, bbmin.Z, bbmax.X, bbmax.Y, bbmax.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Errorf("octree: bounding box [%v, %v] is not finite", bbmin, bbmax)
		}
	}
	if !(bbmin.X < bbmax.X && bbmin.Y < bbmax.Y && bbmin.Z < bbmax.Z) {
		return nil, errors.Errorf("octree: bounding box [%v, %v] is empty", bbmin, bbmax)
	}
	if logger == nil {
		logger = logging.Global().Sublogger("octree")
	}

	cells := int64(1) << maxDepth
	return &Octree{
		store:    store,
		bbmin:    bbmin,
		bbmax:    bbmax,
		step:     bbmax.Sub(bbmin).Mul(1 / float64(cells)),
		maxDepth: maxDepth,
		cells:    cells,
		logger:   logger,
	}, nil
}

// Size returns the number of points in the index.
func (t *Octree) Size() int {
	return t.size
}

// Empty reports whether the index holds no points.
func (t *Octree) Empty() bool {
	return t.root.kind == slotEmpty
}

// Bounds returns the bounding box the index was created with.
func (t *Octree) Bounds() (r3.Vector, r3.Vector) {
	return t.bbmin, t.bbmax
}

// MaxDepth returns the quantization depth in bits per axis.
func (t *Octree) MaxDepth() int {
	return t.maxDepth
}

// Step returns the size of one grid cell on each axis.
func (t *Octree) Step() r3.Vector {
	return t.step
}

// InBox reports whether p can be placed in the index.
func (t *Octree) InBox(p r3.Vector) bool {
	_, ok := t.quantize(p)
	return ok
}

func quantizeAxis(c, lo, step float64) float64 {
	return math.Floor((c - lo) / step)
}

// quantize returns the cell of p, and false when p falls outside the grid.
func (t *Octree) quantize(p r3.Vector) (cell, bool) {
	var q cell
	for a, v := range [3]float64{
		quantizeAxis(p.X, t.bbmin.X, t.step.X),
		quantizeAxis(p.Y, t.bbmin.Y, t.step.Y),
		quantizeAxis(p.Z, t.bbmin.Z, t.step.Z),
	} {
		if !(v >= 0 && v < float64(t.cells)) {
			return cell{}, false
		}
		q[a] = int64(v)
	}
	return q, true
}

// quantizeClamped returns the cell of p with every axis clamped onto the grid.
func (t *Octree) quantizeClamped(p r3.Vector) cell {
	var q cell
	for a, v := range [3]float64{
		quantizeAxis(p.X, t.bbmin.X, t.step.X),
		quantizeAxis(p.Y, t.bbmin.Y, t.step.Y),
		quantizeAxis(p.Z, t.bbmin.Z, t.step.Z),
	} {
		switch {
		case v < 0:
			q[a] = 0
		case v >= float64(t.cells):
			q[a] = t.cells - 1
		default:
			q[a] = int64(v)
		}
	}
	return q
}

func (t *Octree) integrityError(id pc.PointID, reason string) *IntegrityError {
	err := &IntegrityError{
		Point:  id,
		Coords: t.store.At(id),
		Min:    t.bbmin,
		Max:    t.bbmax,
		Reason: reason,
	}
	t.logger.Errorw("index integrity violated", "point", id, "coords", err.Coords, "reason", reason)
	return err
}

// TreeStats summarizes the shape of the index.
type TreeStats struct {
	Nodes  int
	Points int
	// Depth is the number of node levels below the root slot.
	Depth int
	// SinglePointNodes counts nodes holding exactly one point and no children. Collapse on
	// deletion keeps it at zero.
	SinglePointNodes int
	// EmptyNodes counts nodes without any occupied slot.
	EmptyNodes int
}

// Stats walks the index and reports its shape.
func (t *Octree) Stats() TreeStats {
	var stats TreeStats
	var walk func(s *slot, level int)
	walk = func(s *slot, level int) {
		switch s.kind {
		case slotPoint:
			stats.Points++
		case slotChild:
			stats.Nodes++
			if level > stats.Depth {
				stats.Depth = level
			}
			points, children := s.child.occupancy()
			if points == 1 && children == 0 {
				stats.SinglePointNodes++
			}
			if points == 0 && children == 0 {
				stats.EmptyNodes++
			}
			for i := range s.child.slots {
				walk(&s.child.slots[i], level+1)
			}
		}
	}
	walk(&t.root, 1)
	t.logger.Debugw("octree stats", "nodes", stats.Nodes, "points", stats.Points, "depth", stats.Depth)
	return stats
}

// occupancy counts point and child slots of n.
func (n *node) occupancy() (points, children int) {
	for _, s := range n.slots {
		switch s.kind {
		case slotPoint:
			points++
		case slotChild:
			children++
		}
	}
	return points, children
}
