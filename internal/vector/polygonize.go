package vector

import (
	"fmt"

	"github.com/ctessum/geom"

	"wetland-mapper/internal/morph"
	"wetland-mapper/internal/raster"
)

// Polygonize converts every 4-connected component of cells equal to target
// into one polygon feature whose rings follow the exact cell edges, in
// world coordinates. DN carries the target value. Rotated grids are not
// supported.
func Polygonize(g *raster.Grid, target int32) (Collection, error) {
	if g.Def.Rotation != 0 {
		return Collection{}, fmt.Errorf("polygonize: rotated grid: %w", raster.ErrGridMismatch)
	}
	labels, sizes := morph.Label(g, target, morph.Conn4)

	out := Collection{CRS: g.Def.CRS, Features: make([]Feature, 0, len(sizes))}
	for comp := range sizes {
		rings := traceRings(g.Def, labels, int32(comp))
		out.Features = append(out.Features, Feature{Geom: rings, DN: int(target)})
	}
	return out, nil
}

// edge is a directed boundary segment between grid vertices, oriented so
// the component interior lies to its right (grid coordinates, y down).
type edge struct {
	fromX, fromY int
	toX, toY     int
	used         bool
}

// traceRings collects the boundary edges of one labeled component and
// stitches them into closed rings: one exterior ring plus one ring per hole.
// Rings come out conventionally oriented, exteriors counterclockwise and
// holes clockwise in world coordinates.
func traceRings(def raster.GridDef, labels []int32, comp int32) geom.Polygon {
	w, h := def.Width, def.Height
	in := func(x, y int) bool {
		return x >= 0 && x < w && y >= 0 && y < h && labels[y*w+x] == comp
	}

	var edges []edge
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if labels[y*w+x] != comp {
				continue
			}
			if !in(x, y-1) {
				edges = append(edges, edge{x, y, x + 1, y, false})
			}
			if !in(x+1, y) {
				edges = append(edges, edge{x + 1, y, x + 1, y + 1, false})
			}
			if !in(x, y+1) {
				edges = append(edges, edge{x + 1, y + 1, x, y + 1, false})
			}
			if !in(x-1, y) {
				edges = append(edges, edge{x, y + 1, x, y, false})
			}
		}
	}

	// Index outgoing edges by start vertex. A vertex where the component
	// touches itself diagonally carries two.
	vkey := func(x, y int) int { return y*(w+1) + x }
	starts := make(map[int][]int, len(edges))
	for i, e := range edges {
		starts[vkey(e.fromX, e.fromY)] = append(starts[vkey(e.fromX, e.fromY)], i)
	}

	var poly geom.Polygon
	for first := range edges {
		if edges[first].used {
			continue
		}
		var ring []geom.Point
		cur := first
		for {
			e := &edges[cur]
			e.used = true
			wx, wy := def.CellCorner(e.fromX, e.fromY)
			ring = append(ring, geom.Point{X: wx, Y: wy})

			cands := starts[vkey(e.toX, e.toY)]
			next := -1
			bestRank := 4
			dx, dy := e.toX-e.fromX, e.toY-e.fromY
			for _, ci := range cands {
				if edges[ci].used {
					continue
				}
				cdx, cdy := edges[ci].toX-edges[ci].fromX, edges[ci].toY-edges[ci].fromY
				// Prefer the sharpest turn toward the interior (right in
				// grid coords) so pinch vertices split into simple rings.
				var rank int
				switch {
				case cdx == -dy && cdy == dx: // right turn
					rank = 0
				case cdx == dx && cdy == dy: // straight
					rank = 1
				default: // left turn
					rank = 2
				}
				if rank < bestRank {
					bestRank, next = rank, ci
				}
			}
			if next < 0 {
				break // ring closed
			}
			cur = next
		}
		// Tracing with the interior to the right walks exteriors clockwise
		// in world coordinates (the y axis flips between grid and world);
		// reverse for conventional orientation.
		for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
			ring[i], ring[j] = ring[j], ring[i]
		}
		poly = append(poly, ring)
	}
	return poly
}
