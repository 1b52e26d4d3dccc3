package cli

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	pc "go.viam.com/delink/pointcloud"
)

// Triangle is three point handles in winding order.
type Triangle [3]pc.PointID

// ReadTrianglesFile reads triangles from the named file, see ReadTriangles.
func ReadTrianglesFile(fn string) (tris []Triangle, err error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return ReadTriangles(f)
}

// ReadTriangles reads one triangle per line as three zero based point indices separated by
// whitespace. Blank lines and lines starting with # are skipped.
func ReadTriangles(in io.Reader) ([]Triangle, error) {
	var tris []Triangle
	scanner := bufio.NewScanner(in)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, errors.Errorf("line %d: want 3 point indices, got %d", line, len(fields))
		}
		var tri Triangle
		for i, field := range fields {
			v, err := strconv.Atoi(field)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			if v < 0 {
				return nil, errors.Errorf("line %d: negative point index %d", line, v)
			}
			tri[i] = pc.PointID(v)
		}
		tris = append(tris, tri)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tris, nil
}

type edgeKey [2]pc.PointID

func newEdgeKey(a, b pc.PointID) edgeKey {
	if b < a {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// EdgeSet is the set of undirected edges of a triangle list. It serves as the connectivity of
// the mesh handed to the Delaunay checks.
type EdgeSet map[edgeKey]struct{}

// NewEdgeSet collects the edges of tris.
func NewEdgeSet(tris []Triangle) EdgeSet {
	edges := EdgeSet{}
	for _, tri := range tris {
		for i := range tri {
			edges[newEdgeKey(tri[i], tri[(i+1)%3])] = struct{}{}
		}
	}
	return edges
}

// Connected reports whether a and b share an edge.
func (edges EdgeSet) Connected(a, b pc.PointID) bool {
	_, ok := edges[newEdgeKey(a, b)]
	return ok
}

// BoundaryEdges returns the edges used by exactly one triangle, in order of first use.
func BoundaryEdges(tris []Triangle) [][2]pc.PointID {
	uses := map[edgeKey]int{}
	var order []edgeKey
	for _, tri := range tris {
		for i := range tri {
			key := newEdgeKey(tri[i], tri[(i+1)%3])
			if uses[key] == 0 {
				order = append(order, key)
			}
			uses[key]++
		}
	}
	var boundary [][2]pc.PointID
	for _, key := range order {
		if uses[key] == 1 {
			boundary = append(boundary, [2]pc.PointID(key))
		}
	}
	return boundary
}
