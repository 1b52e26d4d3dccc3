package octree

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	pc "go.viam.com/delink/pointcloud"
)

// move is one point taken out of the index for relocation.
type move struct {
	id       pc.PointID
	original r3.Vector
}

// MovePoints translates the given points by delta. The move is all or nothing: if any moved
// point leaves the bounding box or lands in the cell of another point, every point is put back
// where it was and 0 is returned. Points that are not indexed and invalid handles are ignored.
func (t *Octree) MovePoints(ids []pc.PointID, delta r3.Vector) (int, error) {
	store, err := t.mutableStore()
	if err != nil {
		return 0, err
	}
	moves := make([]move, 0, len(ids))
	for _, id := range ids {
		if !id.Valid() {
			continue
		}
		original := store.At(id)
		if t.remove(id) {
			moves = append(moves, move{id: id, original: original})
		}
	}
	return t.reinsert(store, moves, delta)
}

// MoveRegion translates every point inside the closed box [lo, hi] by delta, with the same
// all or nothing semantics as MovePoints.
func (t *Octree) MoveRegion(lo, hi, delta r3.Vector) (int, error) {
	store, err := t.mutableStore()
	if err != nil {
		return 0, err
	}
	var moves []move
	t.delete(lo, hi, func(id pc.PointID) bool {
		moves = append(moves, move{id: id, original: store.At(id)})
		return true
	})
	return t.reinsert(store, moves, delta)
}

func (t *Octree) mutableStore() (pc.MutableStore, error) {
	if t.busy {
		return nil, ErrReentrant
	}
	store, ok := t.store.(pc.MutableStore)
	if !ok {
		return nil, errors.New("octree: relocation needs a mutable point store")
	}
	return store, nil
}

func (t *Octree) reinsert(store pc.MutableStore, moves []move, delta r3.Vector) (int, error) {
	for i, m := range moves {
		target := m.original.Add(delta)
		store.Set(m.id, target)

		reason := ""
		if !t.InBox(target) {
			reason = "out of bounding box"
		} else {
			conflict, collided, err := t.insert(m.id, false)
			switch {
			case err != nil:
				return 0, multierr.Combine(err, t.rollback(store, moves, i))
			case collided:
				reason = "conflicts with " + conflict.String()
			}
		}
		if reason != "" {
			t.logger.Debugw("rolling back relocation", "point", m.id, "target", target, "reason", reason)
			return 0, t.rollback(store, moves, i)
		}
	}
	return len(moves), nil
}

// rollback undoes a relocation that failed at moves[failed]: points reinserted so far are
// taken out again, and every point returns to its original coordinates and cell.
func (t *Octree) rollback(store pc.MutableStore, moves []move, failed int) error {
	for _, m := range moves[:failed] {
		t.remove(m.id)
	}
	var errs error
	for _, m := range moves {
		store.Set(m.id, m.original)
		conflict, collided, err := t.insert(m.id, false)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if collided {
			errs = multierr.Append(errs, errors.Errorf("octree: cannot restore %v, cell taken by %v", m.id, conflict))
		}
	}
	return errs
}
