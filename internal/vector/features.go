// Package vector converts between binary raster regions and polygon
// feature sets, and provides the polygon selection/clipping operations used
// to gate woody candidates against river buffers.
package vector

import "github.com/ctessum/geom"

// Feature is one polygon (possibly multi-ring) with the integer attribute
// carried through from the source raster value, conventionally called DN.
type Feature struct {
	Geom geom.Polygon
	DN   int
}

// Collection is a set of features sharing a coordinate reference.
type Collection struct {
	CRS      string
	Features []Feature
}

// Area returns the summed area of all features.
func (c Collection) Area() float64 {
	total := 0.0
	for _, f := range c.Features {
		total += f.Geom.Area()
	}
	return total
}
