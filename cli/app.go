// Package cli contains the delink command line tool, which runs the kernel over point and
// triangle files.
package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"go.viam.com/delink/config"
	"go.viam.com/delink/logging"
	pc "go.viam.com/delink/pointcloud"
)

const (
	// Flags.
	configFlag    = "config"
	debugFlag     = "debug"
	pointsFlag    = "points"
	trianglesFlag = "triangles"
)

type runContext struct {
	cfg    *config.Config
	logger logging.Logger
}

// NewApp returns the delink application writing its reports to out.
func NewApp(out io.Writer) *cli.App {
	rc := &runContext{}

	pointsInput := &cli.StringFlag{
		Name:     pointsFlag,
		Aliases:  []string{"p"},
		Usage:    "read points from `FILE` (.xyz, .txt, .pcd or .las)",
		Required: true,
	}
	trianglesInput := &cli.StringFlag{
		Name:     trianglesFlag,
		Aliases:  []string{"t"},
		Usage:    "read triangles from `FILE`, three point indices per line",
		Required: true,
	}

	return &cli.App{
		Name:   "delink",
		Usage:  "octree indexed Delaunay checks over point sets",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlag,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			return rc.setup(c)
		},
		After: func(c *cli.Context) error {
			if rc.logger == nil {
				return nil
			}
			//nolint:errcheck
			rc.logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "run Delaunay and quality checks on every triangle",
				UsageText: "delink check --points <file> --triangles <file>",
				Flags:     []cli.Flag{pointsInput, trianglesInput},
				Action: func(c *cli.Context) error {
					pool, tris, err := readInputs(c, rc.logger)
					if err != nil {
						return err
					}
					report, err := RunCheck(rc.cfg, pool, tris, rc.logger)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, report.String())
					return nil
				},
			},
			{
				Name:      "edges",
				Usage:     "remove points encroaching on the boundary edges of the triangles",
				UsageText: "delink edges --points <file> --triangles <file>",
				Flags:     []cli.Flag{pointsInput, trianglesInput},
				Action: func(c *cli.Context) error {
					pool, tris, err := readInputs(c, rc.logger)
					if err != nil {
						return err
					}
					removed, err := RecoverEdges(rc.cfg, pool, tris, rc.logger)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, renderRemoved(removed))
					return nil
				},
			},
			{
				Name:      "stats",
				Usage:     "index the points and print the shape of the octree",
				UsageText: "delink stats --points <file>",
				Flags:     []cli.Flag{pointsInput},
				Action: func(c *cli.Context) error {
					pool, err := pc.NewFromFile(c.String(pointsFlag), rc.logger)
					if err != nil {
						return err
					}
					tree, duplicates, err := BuildOctree(rc.cfg, pool, rc.logger)
					if err != nil {
						return err
					}
					stats := tree.Stats()
					t := table.NewWriter()
					t.AppendHeader(table.Row{"Metric", "Value"})
					t.AppendRow(table.Row{"points", stats.Points})
					t.AppendRow(table.Row{"duplicate points", duplicates})
					t.AppendRow(table.Row{"nodes", stats.Nodes})
					t.AppendRow(table.Row{"depth", stats.Depth})
					t.AppendRow(table.Row{"max depth", tree.MaxDepth()})
					fmt.Fprintln(c.App.Writer, t.Render())
					return nil
				},
			},
		},
	}
}

func (rc *runContext) setup(c *cli.Context) error {
	rc.cfg = config.Default()
	if path := c.String(configFlag); path != "" {
		cfg, err := config.Read(path, nil)
		if err != nil {
			return err
		}
		rc.cfg = cfg
	}
	rc.logger = logging.NewLogger("delink")
	rc.logger.SetLevel(rc.cfg.Level())
	if c.Bool(debugFlag) {
		rc.logger.SetLevel(logging.DEBUG)
	}
	logging.ReplaceGlobal(rc.logger)
	rc.logger.Debugw("configuration", "config", rc.cfg.String())
	return nil
}

func readInputs(c *cli.Context, logger logging.Logger) (*pc.Pool, []Triangle, error) {
	pool, err := pc.NewFromFile(c.String(pointsFlag), logger)
	if err != nil {
		return nil, nil, err
	}
	tris, err := ReadTrianglesFile(c.String(trianglesFlag))
	if err != nil {
		return nil, nil, err
	}
	return pool, tris, nil
}

func renderRemoved(removed map[[2]pc.PointID][]pc.PointID) string {
	edges := make([][2]pc.PointID, 0, len(removed))
	for edge := range removed {
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Edge", "Removed points"})
	for _, edge := range edges {
		t.AppendRow(table.Row{fmt.Sprintf("%v-%v", edge[0], edge[1]), fmt.Sprint(removed[edge])})
	}
	return t.Render()
}
