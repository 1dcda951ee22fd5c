// Package river builds the near/far buffer polygons around the river-line
// network that gate woody-floodplain detection.
package river

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// Buffers holds the two offset polygon sets derived from the river network:
// Near at the search distance and Far at the floodplain extent.
type Buffers struct {
	CRS  string
	Near []geom.Polygon
	Far  []geom.Polygon
}

// Params are the two buffer distances. They key the persisted buffer cache.
type Params struct {
	NearDist float64
	FarDist  float64
}

// Build buffers every line at both distances.
func Build(lines []geom.LineString, crs string, p Params) (Buffers, error) {
	if p.NearDist <= 0 || p.FarDist <= 0 {
		return Buffers{}, fmt.Errorf("river buffers: non-positive distance (near %g, far %g)",
			p.NearDist, p.FarDist)
	}
	near, err := BufferLines(lines, p.NearDist)
	if err != nil {
		return Buffers{}, fmt.Errorf("near buffer: %w", err)
	}
	far, err := BufferLines(lines, p.FarDist)
	if err != nil {
		return Buffers{}, fmt.Errorf("far buffer: %w", err)
	}
	return Buffers{CRS: crs, Near: near, Far: far}, nil
}

// BufferLines offsets each line by dist on both sides with flat caps.
// Joins are approximated: each segment contributes an oriented rectangle
// and each interior vertex a square patch, and the pieces are unioned, so
// outer bends get squared-off bevel-like joins rather than exact arcs.
func BufferLines(lines []geom.LineString, dist float64) ([]geom.Polygon, error) {
	var pieces []geom.Polygon
	for _, ls := range lines {
		for i := 0; i+1 < len(ls); i++ {
			q, ok := segmentQuad(ls[i], ls[i+1], dist)
			if ok {
				pieces = append(pieces, q)
			}
		}
		for i := 1; i+1 < len(ls); i++ {
			pieces = append(pieces, vertexPatch(ls[i], dist))
		}
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("no buffer geometry produced from %d lines", len(lines))
	}

	var union geom.Polygonal = pieces[0]
	for _, p := range pieces[1:] {
		union = union.Union(p)
	}
	return union.Polygons(), nil
}

// segmentQuad returns the rectangle of half-width dist around one segment.
// Zero-length segments produce nothing.
func segmentQuad(a, b geom.Point, dist float64) (geom.Polygon, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil, false
	}
	// Unit normal, counterclockwise winding.
	nx, ny := -dy/length*dist, dx/length*dist
	return geom.Polygon{{
		{X: a.X - nx, Y: a.Y - ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: a.X + nx, Y: a.Y + ny},
	}}, true
}

// vertexPatch covers the join gap at an interior vertex.
func vertexPatch(p geom.Point, dist float64) geom.Polygon {
	return geom.Polygon{{
		{X: p.X - dist, Y: p.Y - dist},
		{X: p.X + dist, Y: p.Y - dist},
		{X: p.X + dist, Y: p.Y + dist},
		{X: p.X - dist, Y: p.Y + dist},
	}}
}
