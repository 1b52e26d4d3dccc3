// Package delaunay implements the Delaunay test engine used by an advancing front mesher.
// Given a candidate triangle it searches the octree for points inside the triangle's
// smallest circumsphere, classifies what it finds, and decides whether some sphere of the
// pencil through the triangle is empty.
package delaunay

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/delink/logging"
	"go.viam.com/delink/octree"
	pc "go.viam.com/delink/pointcloud"
	"go.viam.com/delink/spatialmath"
)

// Verdict is the outcome of a Delaunay check.
type Verdict int

const (
	// Delaunay means an empty circumsphere exists.
	Delaunay Verdict = iota
	// NotDelaunay means every circumsphere considered contains another point.
	NotDelaunay
	// Degenerate means the candidate has no usable circumsphere and should be skipped.
	Degenerate
)

func (v Verdict) String() string {
	switch v {
	case Delaunay:
		return "delaunay"
	case NotDelaunay:
		return "not-delaunay"
	case Degenerate:
		return "degenerate"
	}
	return "unknown"
}

// Connectivity tells whether the mesh under construction already has an edge between two
// points.
type Connectivity interface {
	Connected(a, b pc.PointID) bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func(a, b pc.PointID) bool

// Connected calls f(a, b).
func (f ConnectivityFunc) Connected(a, b pc.PointID) bool {
	return f(a, b)
}

// Candidate is a point together with the offset, along the triangle normal, of the center of
// the sphere through the triangle and that point.
type Candidate struct {
	Point  pc.PointID
	Lambda float64
}

// Valid reports whether the candidate holds a point.
func (c Candidate) Valid() bool {
	return c.Point.Valid()
}

var noCandidate = Candidate{Point: pc.NoPoint}

// TriangleCheck is the result of CheckDelTri.
type TriangleCheck struct {
	Verdict  Verdict
	Triangle [3]pc.PointID
	// Frame is nil for degenerate triangles.
	Frame *spatialmath.TriangleFrame

	// Front holds the found point with the largest positive lambda, Back the one with the
	// most negative lambda.
	Front Candidate
	Back  Candidate

	// NearConnected and NearUnconnected hold points within the near plane band, split by
	// whether the mesh joins them to a vertex of the triangle.
	NearConnected   []pc.PointID
	NearUnconnected []pc.PointID
	// Flip holds connected points off the plane band, whose edges a flip would replace.
	Flip []pc.PointID
	// ToRemove holds unconnected near points that project onto the triangle.
	ToRemove []pc.PointID

	Found      int
	FrontCount int
	BackCount  int
	NearCount  int

	SecondSphere bool
	// Blocker is a point found inside the second sphere, if any.
	Blocker pc.PointID
}

// TetraCheck is the result of CheckDelTet.
type TetraCheck struct {
	Verdict Verdict
	Center  r3.Vector
	Radius  float64
	// Sliver is 1 when the tetrahedron is a sliver and 0 otherwise.
	Sliver     float64
	Disturbing []pc.PointID
}

// Quality is the outcome of CheckQualityTri.
type Quality int

const (
	// QualityOK means the triangle is admissible.
	QualityOK Quality = iota
	// QualityTooLarge means the squared area exceeds the configured limit.
	QualityTooLarge
	// QualityTooSharp means some interior angle is too small.
	QualityTooSharp
	// QualityDegenerate means the triangle has no area.
	QualityDegenerate
)

func (q Quality) String() string {
	switch q {
	case QualityOK:
		return "ok"
	case QualityTooLarge:
		return "too-large"
	case QualityTooSharp:
		return "too-sharp"
	case QualityDegenerate:
		return "degenerate"
	}
	return "unknown"
}

// Checker runs Delaunay and quality checks against the points of an octree.
type Checker struct {
	tree   *octree.Octree
	store  pc.Store
	cfg    Config
	tol    spatialmath.Tolerances
	logger logging.Logger
}

// NewChecker returns a checker over tree, whose points live in store.
func NewChecker(tree *octree.Octree, store pc.Store, cfg Config, logger logging.Logger) (*Checker, error) {
	if tree == nil || store == nil {
		return nil, errors.New("delaunay: checker needs an octree and a point store")
	}
	if err := cfg.Validate("delaunay"); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Global().Sublogger("delaunay")
	}
	return &Checker{
		tree:   tree,
		store:  store,
		cfg:    cfg,
		tol:    cfg.Tolerances(),
		logger: logger,
	}, nil
}

// Config returns the constants the checker runs with.
func (c *Checker) Config() Config {
	return c.cfg
}

// findInSphere calls fn for each point strictly inside the sphere that is not one of skip.
func (c *Checker) findInSphere(center r3.Vector, radius float64, skip []pc.PointID, fn func(pc.PointID, r3.Vector) bool) error {
	if radius <= 0 {
		return nil
	}
	half := r3.Vector{X: radius, Y: radius, Z: radius}
	r2 := radius * radius
	err := c.tree.Find(center.Sub(half), center.Add(half), func(id pc.PointID) bool {
		if lo.Contains(skip, id) {
			return true
		}
		p := c.store.At(id)
		if p.Sub(center).Norm2() >= r2 {
			return true
		}
		return fn(id, p)
	})
	return errors.Wrap(err, "sphere search failed")
}

// CheckDelTri decides whether triangle (a, b, c) has an empty circumsphere. conn may be nil,
// in which case no point counts as connected.
func (c *Checker) CheckDelTri(a, b, cc pc.PointID, conn Connectivity) (*TriangleCheck, error) {
	res := &TriangleCheck{
		Triangle: [3]pc.PointID{a, b, cc},
		Front:    noCandidate,
		Back:     noCandidate,
		Blocker:  pc.NoPoint,
	}
	frame, err := spatialmath.NewTriangleFrame(c.store.At(a), c.store.At(b), c.store.At(cc))
	if err != nil {
		res.Verdict = Degenerate
		return res, nil
	}
	res.Frame = frame

	vertices := res.Triangle[:]
	connected := func(id pc.PointID) bool {
		if conn == nil {
			return false
		}
		return lo.SomeBy(vertices, func(v pc.PointID) bool { return conn.Connected(v, id) })
	}
	nearBand := c.cfg.PlaneNearEps * frame.LP1H

	err = c.findInSphere(frame.H, frame.LP1H-c.cfg.SphereShrinkEps, vertices, func(id pc.PointID, p r3.Vector) bool {
		res.Found++
		isConnected := connected(id)
		_, lambda, err := spatialmath.TetraCircumsphere(frame, p, c.tol)
		if err != nil || lambda == 0 || math.Abs(frame.PlaneDistance(p)) < nearBand {
			res.NearCount++
			if isConnected {
				res.NearConnected = append(res.NearConnected, id)
			} else {
				res.NearUnconnected = append(res.NearUnconnected, id)
			}
			return true
		}
		if isConnected {
			res.Flip = append(res.Flip, id)
		}
		if lambda > 0 {
			res.FrontCount++
			if !res.Front.Valid() || lambda > res.Front.Lambda {
				res.Front = Candidate{Point: id, Lambda: lambda}
			}
		} else {
			res.BackCount++
			if !res.Back.Valid() || lambda < res.Back.Lambda {
				res.Back = Candidate{Point: id, Lambda: lambda}
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	res.ToRemove = lo.Filter(res.NearUnconnected, func(id pc.PointID, _ int) bool {
		loc, _ := spatialmath.PointInTriangle(frame, c.store.At(id), c.tol)
		return loc.OnTriangle()
	})

	res.Verdict, err = c.decide(res)
	if err != nil {
		return nil, err
	}
	c.logger.Debugw("triangle checked", "triangle", res.Triangle, "verdict", res.Verdict,
		"found", res.Found, "near", res.NearCount, "second_sphere", res.SecondSphere)
	return res, nil
}

func (c *Checker) decide(res *TriangleCheck) (Verdict, error) {
	switch {
	case res.Found == 0:
		return Delaunay, nil
	case res.NearCount > 0:
		return NotDelaunay, nil
	case res.Front.Valid() && res.Back.Valid():
		return NotDelaunay, nil
	}
	best := res.Front
	if !best.Valid() {
		best = res.Back
	}
	// With the equator sphere mode on, a one sided result is rejected without looking at the
	// larger sphere, which also suppresses the flips it would allow.
	if c.cfg.EquatorSphere || math.Abs(best.Lambda) >= c.cfg.LambdaMax*res.Frame.LP1H {
		return NotDelaunay, nil
	}

	res.SecondSphere = true
	lambda := best.Lambda + math.Copysign(c.cfg.SphereShrinkEps, best.Lambda)
	center, r2 := spatialmath.SphereAt(res.Frame, lambda)
	err := c.findInSphere(center, math.Sqrt(r2)-c.cfg.SphereShrinkEps, res.Triangle[:], func(id pc.PointID, _ r3.Vector) bool {
		res.Blocker = id
		return false
	})
	if err != nil {
		return NotDelaunay, err
	}
	if res.Blocker.Valid() {
		return NotDelaunay, nil
	}
	return Delaunay, nil
}

// CheckDelEdge looks for points inside the smallest sphere around edge (a, b). The one
// nearest to the segment is removed from the octree and returned.
func (c *Checker) CheckDelEdge(a, b pc.PointID) (pc.PointID, bool, error) {
	pa, pb := c.store.At(a), c.store.At(b)
	center := pa.Add(pb).Mul(0.5)
	radius := pb.Sub(pa).Norm()/2 - c.cfg.SphereShrinkEps

	type hit struct {
		id   pc.PointID
		dist float64
	}
	var hits []hit
	err := c.findInSphere(center, radius, []pc.PointID{a, b}, func(id pc.PointID, p r3.Vector) bool {
		closest := spatialmath.ClosestPointSegmentPoint(pa, pb, p)
		hits = append(hits, hit{id: id, dist: closest.Sub(p).Norm2()})
		return true
	})
	if err != nil {
		return pc.NoPoint, false, err
	}
	if len(hits) == 0 {
		return pc.NoPoint, false, nil
	}
	nearest := lo.MinBy(hits, func(x, y hit) bool { return x.dist < y.dist })
	if !c.tree.Remove(nearest.id) {
		return pc.NoPoint, false, errors.Errorf("delaunay: cannot remove %v from the octree", nearest.id)
	}
	c.logger.Debugw("edge encroached", "edge", [2]pc.PointID{a, b}, "removed", nearest.id, "hits", len(hits))
	return nearest.id, true, nil
}

// CheckQualityTri rates triangle (a, b, c) by area and smallest angle, independently of the
// Delaunay property.
func (c *Checker) CheckQualityTri(a, b, cc pc.PointID) Quality {
	frame, err := spatialmath.NewTriangleFrame(c.store.At(a), c.store.At(b), c.store.At(cc))
	if err != nil {
		return QualityDegenerate
	}
	if c.cfg.MaxArea2 != 0 && frame.Area2() > c.cfg.MaxArea2 {
		return QualityTooLarge
	}
	cosines := frame.Cosines()
	if lo.SomeBy(cosines[:], func(cos float64) bool { return cos > c.cfg.MaxCos }) {
		return QualityTooSharp
	}
	return QualityOK
}

// CheckDelTet tests the circumsphere of tetrahedron (a, b, c, d) for emptiness and scores it
// for slivers.
func (c *Checker) CheckDelTet(a, b, cc, d pc.PointID) (*TetraCheck, error) {
	res := &TetraCheck{Verdict: Degenerate}
	p0, p1, p2, p3 := c.store.At(a), c.store.At(b), c.store.At(cc), c.store.At(d)
	frame, err := spatialmath.NewTriangleFrame(p0, p1, p2)
	if err != nil {
		return res, nil
	}
	center, lambda, err := spatialmath.TetraCircumsphere(frame, p3, c.tol)
	if err != nil {
		return res, nil
	}
	res.Center = center
	res.Radius = math.Sqrt(frame.LP1H*frame.LP1H + lambda*lambda)
	res.Sliver = spatialmath.SliverScore(p0, p1, p2, p3, c.tol)

	err = c.findInSphere(center, res.Radius-c.cfg.SphereShrinkEps, []pc.PointID{a, b, cc, d}, func(id pc.PointID, _ r3.Vector) bool {
		res.Disturbing = append(res.Disturbing, id)
		return true
	})
	if err != nil {
		return nil, err
	}
	res.Verdict = Delaunay
	if len(res.Disturbing) > 0 {
		res.Verdict = NotDelaunay
	}
	return res, nil
}
