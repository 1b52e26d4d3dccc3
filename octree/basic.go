package octree

import (
	pc "go.viam.com/delink/pointcloud"
)

// Insert adds the point to the index. When a point with the same quantized coordinates is
// already present, nothing is inserted and that point is returned with collided set.
func (t *Octree) Insert(id pc.PointID) (pc.PointID, bool, error) {
	if t.busy {
		return pc.NoPoint, false, ErrReentrant
	}
	return t.insert(id, false)
}

// Exchange behaves like Insert, except that a point with the same quantized coordinates is
// replaced by id and returned as displaced.
func (t *Octree) Exchange(id pc.PointID) (pc.PointID, bool, error) {
	if t.busy {
		return pc.NoPoint, false, ErrReentrant
	}
	return t.insert(id, true)
}

func (t *Octree) insert(id pc.PointID, exchange bool) (pc.PointID, bool, error) {
	q, ok := t.quantize(t.store.At(id))
	if !ok {
		return pc.NoPoint, false, t.integrityError(id, "point outside bounding box")
	}

	s := &t.root
	bit := t.maxDepth - 1
	for {
		switch s.kind {
		case slotEmpty:
			s.kind = slotPoint
			s.point = id
			t.size++
			return pc.NoPoint, false, nil
		case slotChild:
			if bit < 0 {
				return pc.NoPoint, false, t.integrityError(id, "max depth exhausted")
			}
			s = &s.child.slots[q.index(bit)]
			bit--
		case slotPoint:
			other := s.point
			oq, ok := t.quantize(t.store.At(other))
			if !ok {
				return pc.NoPoint, false, t.integrityError(other, "indexed point left the bounding box")
			}
			if oq == q {
				if exchange {
					s.point = id
				}
				return other, true, nil
			}
			if err := t.split(s, bit, other, oq, id, q); err != nil {
				return pc.NoPoint, false, err
			}
			t.size++
			return pc.NoPoint, false, nil
		}
	}
}

// split turns the point slot s into a chain of nodes deep enough to hold both points in
// different slots.
func (t *Octree) split(s *slot, bit int, other pc.PointID, oq cell, id pc.PointID, q cell) error {
	top := bit
	for {
		if bit < 0 {
			return t.integrityError(id, "max depth exhausted")
		}
		n := &node{}
		s.kind = slotChild
		s.child = n
		s.point = pc.NoPoint

		oi, ni := oq.index(bit), q.index(bit)
		if oi != ni {
			n.slots[oi] = slot{kind: slotPoint, point: other}
			n.slots[ni] = slot{kind: slotPoint, point: id}
			t.logger.Debugw("split cell", "points", []pc.PointID{other, id}, "nodes", top-bit+1, "bit", bit)
			return nil
		}
		s = &n.slots[oi]
		bit--
	}
}
