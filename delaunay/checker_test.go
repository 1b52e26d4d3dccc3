package delaunay

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/delink/logging"
	"go.viam.com/delink/octree"
	pc "go.viam.com/delink/pointcloud"
)

var (
	origin = r3.Vector{}
	unitX  = r3.Vector{X: 1}
	unitY  = r3.Vector{Y: 1}
	unitZ  = r3.Vector{Z: 1}
)

func newChecker(t *testing.T, cfg Config, pts ...r3.Vector) (*Checker, *octree.Octree, *pc.Pool) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	pool := pc.NewPoolFromVectors(pts...)
	tree, err := octree.New(pool, r3.Vector{X: -2, Y: -2, Z: -2}, r3.Vector{X: 3, Y: 3, Z: 3}, 12, logger)
	test.That(t, err, test.ShouldBeNil)
	for _, id := range pool.IDs() {
		_, collided, err := tree.Insert(id)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, collided, test.ShouldBeFalse)
	}
	checker, err := NewChecker(tree, pool, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	return checker, tree, pool
}

func TestNewChecker(t *testing.T) {
	pool := pc.NewPool()
	tree, err := octree.New(pool, origin, r3.Vector{X: 1, Y: 1, Z: 1}, 4, nil)
	test.That(t, err, test.ShouldBeNil)

	_, err = NewChecker(nil, pool, DefaultConfig(), nil)
	test.That(t, err, test.ShouldNotBeNil)

	cfg := DefaultConfig()
	cfg.VolumeEps = -1
	_, err = NewChecker(tree, pool, cfg, nil)
	test.That(t, err, test.ShouldNotBeNil)

	checker, err := NewChecker(tree, pool, DefaultConfig(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, checker.Config(), test.ShouldResemble, DefaultConfig())
}

func TestCheckDelTri(t *testing.T) {
	t.Run("empty sphere is delaunay", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY)
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, Delaunay)
		test.That(t, res.Found, test.ShouldEqual, 0)
		test.That(t, res.SecondSphere, test.ShouldBeFalse)
		test.That(t, res.Frame.LP1H, test.ShouldAlmostEqual, 0.7071067811865476)
	})

	t.Run("near plane point breaks it", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY, r3.Vector{X: .3, Y: .3, Z: .01})
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, NotDelaunay)
		test.That(t, res.Found, test.ShouldEqual, 1)
		test.That(t, res.NearCount, test.ShouldEqual, 1)
		test.That(t, res.NearUnconnected, test.ShouldResemble, []pc.PointID{3})
		test.That(t, res.NearConnected, test.ShouldBeEmpty)
		test.That(t, res.ToRemove, test.ShouldResemble, []pc.PointID{3})
		test.That(t, res.SecondSphere, test.ShouldBeFalse)
	})

	t.Run("connected near point", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY, r3.Vector{X: .3, Y: .3, Z: .01})
		conn := ConnectivityFunc(func(a, b pc.PointID) bool {
			return (a == 0 && b == 3) || (a == 3 && b == 0)
		})
		res, err := checker.CheckDelTri(0, 1, 2, conn)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, NotDelaunay)
		test.That(t, res.NearConnected, test.ShouldResemble, []pc.PointID{3})
		test.That(t, res.NearUnconnected, test.ShouldBeEmpty)
		test.That(t, res.ToRemove, test.ShouldBeEmpty)
	})

	t.Run("near point off the triangle is not removed", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY, r3.Vector{X: .9, Y: .9, Z: .001})
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, NotDelaunay)
		test.That(t, res.NearUnconnected, test.ShouldResemble, []pc.PointID{3})
		test.That(t, res.ToRemove, test.ShouldBeEmpty)
	})

	t.Run("collinear triangle is degenerate", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, r3.Vector{X: 2})
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, Degenerate)
		test.That(t, res.Frame, test.ShouldBeNil)
	})

	t.Run("one sided point passes the second sphere", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY, r3.Vector{X: .3, Y: .3, Z: .3})
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, Delaunay)
		test.That(t, res.SecondSphere, test.ShouldBeTrue)
		test.That(t, res.Back.Point, test.ShouldEqual, pc.PointID(3))
		test.That(t, res.Back.Lambda, test.ShouldAlmostEqual, -0.55)
		test.That(t, res.Front.Valid(), test.ShouldBeFalse)
		test.That(t, res.BackCount, test.ShouldEqual, 1)
		test.That(t, res.Flip, test.ShouldBeEmpty)
	})

	t.Run("point below the plane passes the second sphere", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY, r3.Vector{X: .3, Y: .3, Z: -.3})
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, Delaunay)
		test.That(t, res.SecondSphere, test.ShouldBeTrue)
		test.That(t, res.Front.Point, test.ShouldEqual, pc.PointID(3))
		test.That(t, res.Front.Lambda, test.ShouldAlmostEqual, 0.55)
		test.That(t, res.Back.Valid(), test.ShouldBeFalse)
		test.That(t, res.FrontCount, test.ShouldEqual, 1)
	})

	t.Run("second sphere above the plane finds a blocker", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY,
			r3.Vector{X: .3, Y: .3, Z: -.3},
			r3.Vector{X: .5, Y: .5, Z: 1},
		)
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Found, test.ShouldEqual, 1)
		test.That(t, res.Front.Point, test.ShouldEqual, pc.PointID(3))
		test.That(t, res.SecondSphere, test.ShouldBeTrue)
		test.That(t, res.Blocker, test.ShouldEqual, pc.PointID(4))
		test.That(t, res.Verdict, test.ShouldEqual, NotDelaunay)
	})

	t.Run("second sphere picks the farthest center", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY,
			r3.Vector{X: .3, Y: .3, Z: .3},
			r3.Vector{X: .5, Y: .5, Z: .6},
		)
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Found, test.ShouldEqual, 2)
		test.That(t, res.BackCount, test.ShouldEqual, 2)
		test.That(t, res.Back.Point, test.ShouldEqual, pc.PointID(3))
		test.That(t, res.Verdict, test.ShouldEqual, Delaunay)
	})

	t.Run("second sphere finds a blocker", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY,
			r3.Vector{X: .3, Y: .3, Z: .3},
			r3.Vector{X: .5, Y: .5, Z: -1},
		)
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Found, test.ShouldEqual, 1)
		test.That(t, res.SecondSphere, test.ShouldBeTrue)
		test.That(t, res.Blocker, test.ShouldEqual, pc.PointID(4))
		test.That(t, res.Verdict, test.ShouldEqual, NotDelaunay)
	})

	t.Run("points on both sides", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY,
			r3.Vector{X: .3, Y: .3, Z: .3},
			r3.Vector{X: .3, Y: .3, Z: -.3},
		)
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, NotDelaunay)
		test.That(t, res.Front.Point, test.ShouldEqual, pc.PointID(4))
		test.That(t, res.Front.Lambda, test.ShouldAlmostEqual, 0.55)
		test.That(t, res.Back.Point, test.ShouldEqual, pc.PointID(3))
		test.That(t, res.SecondSphere, test.ShouldBeFalse)
	})

	t.Run("connected points are flip candidates", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY, r3.Vector{X: .3, Y: .3, Z: .3})
		conn := ConnectivityFunc(func(a, b pc.PointID) bool { return b == 3 && a == 1 })
		res, err := checker.CheckDelTri(0, 1, 2, conn)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Flip, test.ShouldResemble, []pc.PointID{3})
	})

	t.Run("equator sphere mode skips the second sphere", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EquatorSphere = true
		checker, _, _ := newChecker(t, cfg, origin, unitX, unitY, r3.Vector{X: .3, Y: .3, Z: .3})
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, NotDelaunay)
		test.That(t, res.SecondSphere, test.ShouldBeFalse)
	})

	t.Run("lambda beyond the limit", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LambdaMax = 0.5
		checker, _, _ := newChecker(t, cfg, origin, unitX, unitY, r3.Vector{X: .3, Y: .3, Z: .3})
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, NotDelaunay)
		test.That(t, res.SecondSphere, test.ShouldBeFalse)
	})

	t.Run("points outside the sphere are ignored", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY,
			r3.Vector{X: 1, Y: 1, Z: 0},
			r3.Vector{X: 1.1, Y: 1.1, Z: .2},
		)
		res, err := checker.CheckDelTri(0, 1, 2, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, Delaunay)
		test.That(t, res.Found, test.ShouldEqual, 0)
	})
}

func TestCheckDelEdge(t *testing.T) {
	checker, tree, _ := newChecker(t, DefaultConfig(), origin, unitX,
		r3.Vector{X: .5, Y: .3, Z: .1},
		r3.Vector{X: .5, Y: .1, Z: 0},
		r3.Vector{X: .5, Y: .6, Z: 0},
	)

	id, ok, err := checker.CheckDelEdge(0, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, pc.PointID(3))
	test.That(t, tree.Size(), test.ShouldEqual, 4)

	id, ok, err = checker.CheckDelEdge(0, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, pc.PointID(2))

	id, ok, err = checker.CheckDelEdge(0, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, id, test.ShouldEqual, pc.NoPoint)
	test.That(t, tree.Size(), test.ShouldEqual, 3)
}

func TestCheckQualityTri(t *testing.T) {
	checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY, r3.Vector{Y: .01}, r3.Vector{X: 2})
	test.That(t, checker.CheckQualityTri(0, 1, 2), test.ShouldEqual, QualityOK)
	test.That(t, checker.CheckQualityTri(0, 1, 3), test.ShouldEqual, QualityTooSharp)
	test.That(t, checker.CheckQualityTri(0, 1, 4), test.ShouldEqual, QualityDegenerate)

	cfg := DefaultConfig()
	cfg.MaxArea2 = 0.01
	checker, _, _ = newChecker(t, cfg, origin, unitX, unitY, r3.Vector{X: .1, Y: .1})
	test.That(t, checker.CheckQualityTri(0, 1, 2), test.ShouldEqual, QualityTooLarge)
	test.That(t, checker.CheckQualityTri(0, 3, 2), test.ShouldNotEqual, QualityTooLarge)
	test.That(t, QualityTooSharp.String(), test.ShouldEqual, "too-sharp")
}

func TestCheckDelTet(t *testing.T) {
	t.Run("empty circumsphere", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY, unitZ, r3.Vector{X: 2, Y: 2, Z: 2})
		res, err := checker.CheckDelTet(0, 1, 2, 3)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, Delaunay)
		test.That(t, res.Center.X, test.ShouldAlmostEqual, .5)
		test.That(t, res.Center.Y, test.ShouldAlmostEqual, .5)
		test.That(t, res.Center.Z, test.ShouldAlmostEqual, .5)
		test.That(t, res.Radius, test.ShouldAlmostEqual, 0.8660254037844386)
		test.That(t, res.Sliver, test.ShouldEqual, 0.)
	})

	t.Run("point inside", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY, unitZ, r3.Vector{X: .4, Y: .4, Z: .4})
		res, err := checker.CheckDelTet(0, 1, 2, 3)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, NotDelaunay)
		test.That(t, res.Disturbing, test.ShouldResemble, []pc.PointID{4})
	})

	t.Run("flat tetrahedron", func(t *testing.T) {
		checker, _, _ := newChecker(t, DefaultConfig(), origin, unitX, unitY, r3.Vector{X: 1, Y: 1})
		res, err := checker.CheckDelTet(0, 1, 2, 3)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Verdict, test.ShouldEqual, Degenerate)
	})
}

func TestVerdictString(t *testing.T) {
	test.That(t, Delaunay.String(), test.ShouldEqual, "delaunay")
	test.That(t, NotDelaunay.String(), test.ShouldEqual, "not-delaunay")
	test.That(t, Degenerate.String(), test.ShouldEqual, "degenerate")
}
