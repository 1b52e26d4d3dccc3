package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/delink/config"
	"go.viam.com/delink/delaunay"
	"go.viam.com/delink/logging"
	"go.viam.com/delink/octree"
	pc "go.viam.com/delink/pointcloud"
)

// BuildOctree indexes every point of pool. The domain comes from the config, or from the
// bounding box of the points when the config has none. It returns the number of points that
// were left out because another point already occupies their cell.
func BuildOctree(cfg *config.Config, pool *pc.Pool, logger logging.Logger) (*octree.Octree, int, error) {
	bbmin, bbmax, ok := cfg.Octree.Bounds()
	if !ok {
		meta := pool.MetaData()
		bbmin, bbmax = meta.HalfOpenBox(cfg.Octree.Margin)
	}
	tree, err := octree.New(pool, bbmin, bbmax, cfg.Octree.MaxDepth, logger.Sublogger("octree"))
	if err != nil {
		return nil, 0, err
	}

	duplicates := 0
	for _, id := range pool.IDs() {
		conflict, collided, err := tree.Insert(id)
		if err != nil {
			return nil, 0, err
		}
		if collided {
			duplicates++
			logger.Warnw("point shares a cell with an indexed point, skipping", "point", id, "indexed", conflict)
		}
	}
	logger.Infow("octree built", "points", tree.Size(), "duplicates", duplicates, "min", bbmin, "max", bbmax)
	return tree, duplicates, nil
}

func checkIndices(tris []Triangle, pool *pc.Pool) error {
	if bad, found := lo.Find(tris, func(tri Triangle) bool {
		return lo.SomeBy(tri[:], func(id pc.PointID) bool { return int(id) >= pool.Size() })
	}); found {
		return errors.Errorf("triangle %v references a point beyond the %d points read", bad, pool.Size())
	}
	return nil
}

// Report summarizes a check run.
type Report struct {
	Points     int
	Duplicates int
	Triangles  int

	Verdicts map[delaunay.Verdict]int
	Quality  map[delaunay.Quality]int
	// Disturbing holds, per non degenerate triangle, the number of points found inside its
	// smallest circumsphere.
	Disturbing   []float64
	SecondSphere int
	ToRemove     int

	Tree octree.TreeStats
}

// RunCheck runs the Delaunay and quality checks over every triangle.
func RunCheck(cfg *config.Config, pool *pc.Pool, tris []Triangle, logger logging.Logger) (*Report, error) {
	if err := checkIndices(tris, pool); err != nil {
		return nil, err
	}
	tree, duplicates, err := BuildOctree(cfg, pool, logger)
	if err != nil {
		return nil, err
	}
	checker, err := delaunay.NewChecker(tree, pool, cfg.Delaunay, logger.Sublogger("delaunay"))
	if err != nil {
		return nil, err
	}

	report := &Report{
		Points:     pool.Size(),
		Duplicates: duplicates,
		Triangles:  len(tris),
		Verdicts:   map[delaunay.Verdict]int{},
		Quality:    map[delaunay.Quality]int{},
	}
	edges := NewEdgeSet(tris)
	for _, tri := range tris {
		res, err := checker.CheckDelTri(tri[0], tri[1], tri[2], edges)
		if err != nil {
			return nil, errors.Wrapf(err, "checking triangle %v", tri)
		}
		report.Verdicts[res.Verdict]++
		if res.Verdict != delaunay.Degenerate {
			report.Disturbing = append(report.Disturbing, float64(res.Found))
		}
		if res.SecondSphere {
			report.SecondSphere++
		}
		report.ToRemove += len(res.ToRemove)
		report.Quality[checker.CheckQualityTri(tri[0], tri[1], tri[2])]++
	}
	report.Tree = tree.Stats()
	return report, nil
}

// DisturbingSummary returns the mean, 90th percentile and maximum number of points found
// inside the triangles' circumspheres.
func (r *Report) DisturbingSummary() (mean, p90, maxFound float64, err error) {
	data := stats.Float64Data(r.Disturbing)
	if mean, err = stats.Mean(data); err != nil {
		return 0, 0, 0, err
	}
	if p90, err = stats.Percentile(data, 90); err != nil {
		return 0, 0, 0, err
	}
	if maxFound, err = stats.Max(data); err != nil {
		return 0, 0, 0, err
	}
	return mean, p90, maxFound, nil
}

// String renders the report as a table.
func (r *Report) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"points", r.Points})
	t.AppendRow(table.Row{"duplicate points", r.Duplicates})
	t.AppendRow(table.Row{"triangles", r.Triangles})
	for _, v := range []delaunay.Verdict{delaunay.Delaunay, delaunay.NotDelaunay, delaunay.Degenerate} {
		t.AppendRow(table.Row{v.String(), r.Verdicts[v]})
	}
	t.AppendRow(table.Row{"second sphere searches", r.SecondSphere})
	t.AppendRow(table.Row{"points to remove", r.ToRemove})
	for _, q := range []delaunay.Quality{delaunay.QualityOK, delaunay.QualityTooLarge, delaunay.QualityTooSharp, delaunay.QualityDegenerate} {
		t.AppendRow(table.Row{"quality " + q.String(), r.Quality[q]})
	}
	if mean, p90, maxFound, err := r.DisturbingSummary(); err == nil {
		t.AppendRow(table.Row{"disturbing points (mean/p90/max)", fmt.Sprintf("%.2f / %.0f / %.0f", mean, p90, maxFound)})
	}
	t.AppendRow(table.Row{"octree nodes", r.Tree.Nodes})
	t.AppendRow(table.Row{"octree depth", r.Tree.Depth})
	return t.Render()
}

// RecoverEdges checks every boundary edge of tris for encroaching points. Encroaching points
// are removed from the octree, nearest first, until each edge is clear. It returns the removed
// points per edge.
func RecoverEdges(cfg *config.Config, pool *pc.Pool, tris []Triangle, logger logging.Logger) (map[[2]pc.PointID][]pc.PointID, error) {
	if err := checkIndices(tris, pool); err != nil {
		return nil, err
	}
	tree, _, err := BuildOctree(cfg, pool, logger)
	if err != nil {
		return nil, err
	}
	checker, err := delaunay.NewChecker(tree, pool, cfg.Delaunay, logger.Sublogger("delaunay"))
	if err != nil {
		return nil, err
	}

	removed := map[[2]pc.PointID][]pc.PointID{}
	for _, edge := range BoundaryEdges(tris) {
		for {
			id, ok, err := checker.CheckDelEdge(edge[0], edge[1])
			if err != nil {
				return nil, errors.Wrapf(err, "recovering edge %v", edge)
			}
			if !ok {
				break
			}
			removed[edge] = append(removed[edge], id)
		}
	}
	logger.Infow("edge recovery done", "edges", len(removed), "remaining_points", tree.Size())
	return removed, nil
}
