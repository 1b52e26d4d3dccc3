package octree

import (
	"github.com/golang/geo/r3"

	pc "go.viam.com/delink/pointcloud"
)

// query carries the state of one find or delete traversal through the recursion.
type query struct {
	lo, hi  r3.Vector
	fn      func(pc.PointID) bool
	stopped bool
	deleted int
}

func (q *query) contains(p r3.Vector) bool {
	return p.X >= q.lo.X && p.X <= q.hi.X &&
		p.Y >= q.lo.Y && p.Y <= q.hi.Y &&
		p.Z >= q.lo.Z && p.Z <= q.hi.Z
}

// Find calls fn for every point inside the closed box [lo, hi], in octant order. The walk
// stops early when fn returns false. fn must not call back into the index.
func (t *Octree) Find(lo, hi r3.Vector, fn func(pc.PointID) bool) error {
	if t.busy {
		return ErrReentrant
	}
	qlo, qhi, ok := t.queryCells(lo, hi)
	if !ok {
		return nil
	}
	t.busy = true
	defer func() { t.busy = false }()

	t.findSlot(&query{lo: lo, hi: hi, fn: fn}, &t.root, t.maxDepth-1, qlo, qhi)
	return nil
}

// Points returns every indexed point in octant order.
func (t *Octree) Points() []pc.PointID {
	ids := make([]pc.PointID, 0, t.size)
	if t.busy {
		return ids
	}
	t.busy = true
	defer func() { t.busy = false }()

	var walk func(s *slot)
	walk = func(s *slot) {
		switch s.kind {
		case slotPoint:
			ids = append(ids, s.point)
		case slotChild:
			for i := range s.child.slots {
				walk(&s.child.slots[i])
			}
		}
	}
	walk(&t.root)
	return ids
}

// Delete removes every point inside the closed box [lo, hi] for which fn returns true, and
// returns how many were removed. Nodes left with a single point or nothing collapse into
// their parent slot.
func (t *Octree) Delete(lo, hi r3.Vector, fn func(pc.PointID) bool) (int, error) {
	if t.busy {
		return 0, ErrReentrant
	}
	return t.delete(lo, hi, fn), nil
}

// Remove deletes a single point by handle. It reports false when the point is not indexed.
func (t *Octree) Remove(id pc.PointID) bool {
	if t.busy || !id.Valid() {
		return false
	}
	return t.remove(id)
}

func (t *Octree) remove(id pc.PointID) bool {
	p := t.store.At(id)
	return t.delete(p, p, func(other pc.PointID) bool { return other == id }) > 0
}

func (t *Octree) delete(lo, hi r3.Vector, fn func(pc.PointID) bool) int {
	qlo, qhi, ok := t.queryCells(lo, hi)
	if !ok {
		return 0
	}
	t.busy = true
	defer func() { t.busy = false }()

	q := &query{lo: lo, hi: hi, fn: fn}
	t.deleteSlot(q, &t.root, t.maxDepth-1, qlo, qhi)
	t.size -= q.deleted
	if q.deleted > 0 {
		t.logger.Debugw("deleted points", "count", q.deleted, "remaining", t.size)
	}
	return q.deleted
}

// queryCells quantizes a query box, clamped to the grid. It fails for boxes that miss the
// index entirely.
func (t *Octree) queryCells(lo, hi r3.Vector) (cell, cell, bool) {
	if !(lo.X <= hi.X && lo.Y <= hi.Y && lo.Z <= hi.Z) {
		return cell{}, cell{}, false
	}
	if hi.X < t.bbmin.X || hi.Y < t.bbmin.Y || hi.Z < t.bbmin.Z ||
		lo.X >= t.bbmax.X || lo.Y >= t.bbmax.Y || lo.Z >= t.bbmax.Z {
		return cell{}, cell{}, false
	}
	return t.quantizeClamped(lo), t.quantizeClamped(hi), true
}

// clip restricts the cell range [lo, hi] to child idx of a node that discriminates on bit.
// lo and hi agree on every bit above bit.
func clip(lo, hi cell, bit, idx int) (cell, cell, bool) {
	for a := 0; a < 3; a++ {
		want := int64(idx>>a) & 1
		lb := (lo[a] >> bit) & 1
		hb := (hi[a] >> bit) & 1
		if lb == hb {
			if lb != want {
				return cell{}, cell{}, false
			}
			continue
		}
		mid := (hi[a] >> bit) << bit
		if want == 0 {
			hi[a] = mid - 1
		} else {
			lo[a] = mid
		}
	}
	return lo, hi, true
}

func (t *Octree) findSlot(q *query, s *slot, bit int, lo, hi cell) {
	switch s.kind {
	case slotPoint:
		if q.contains(t.store.At(s.point)) && !q.fn(s.point) {
			q.stopped = true
		}
	case slotChild:
		for idx := range s.child.slots {
			clo, chi, ok := clip(lo, hi, bit, idx)
			if !ok {
				continue
			}
			t.findSlot(q, &s.child.slots[idx], bit-1, clo, chi)
			if q.stopped {
				return
			}
		}
	}
}

// deleteSlot runs the delete traversal below s and rewrites s when what remains below it
// fits in the slot itself.
func (t *Octree) deleteSlot(q *query, s *slot, bit int, lo, hi cell) {
	switch s.kind {
	case slotPoint:
		if q.contains(t.store.At(s.point)) && q.fn(s.point) {
			*s = slot{kind: slotEmpty, point: pc.NoPoint}
			q.deleted++
		}
	case slotChild:
		before := q.deleted
		n := s.child
		for idx := range n.slots {
			clo, chi, ok := clip(lo, hi, bit, idx)
			if !ok {
				continue
			}
			t.deleteSlot(q, &n.slots[idx], bit-1, clo, chi)
		}
		if q.deleted == before {
			return
		}
		points, children := n.occupancy()
		switch {
		case children > 0 || points > 1:
		case points == 1:
			for _, cs := range n.slots {
				if cs.kind == slotPoint {
					*s = slot{kind: slotPoint, point: cs.point}
					break
				}
			}
			t.logger.Debugw("collapsed node", "point", s.point, "bit", bit)
		default:
			*s = slot{kind: slotEmpty, point: pc.NoPoint}
			t.logger.Debugw("collapsed empty node", "bit", bit)
		}
	}
}
