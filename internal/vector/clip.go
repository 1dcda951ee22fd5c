package vector

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// spatialPoly adapts a polygon for r-tree indexing.
type spatialPoly struct {
	geom.Polygon
}

func indexPolys(polys []geom.Polygon) *rtree.Rtree {
	tree := rtree.NewTree(25, 50)
	for _, p := range polys {
		tree.Insert(spatialPoly{p})
	}
	return tree
}

// SelectIntersecting keeps the features whose geometry intersects any of
// the selector polygons with positive area.
func SelectIntersecting(c Collection, selector []geom.Polygon) Collection {
	tree := indexPolys(selector)
	out := Collection{CRS: c.CRS}
	for _, f := range c.Features {
		for _, cand := range tree.SearchIntersect(f.Geom.Bounds()) {
			sp := cand.(spatialPoly)
			isect := f.Geom.Intersection(sp.Polygon)
			if isect != nil && isect.Area() > 0 {
				out.Features = append(out.Features, f)
				break
			}
		}
	}
	return out
}

// ClipTo intersects every feature with the region polygons, dropping
// features that fall entirely outside. No clipped vertex lies outside the
// region.
func ClipTo(c Collection, region []geom.Polygon) Collection {
	tree := indexPolys(region)
	out := Collection{CRS: c.CRS}
	for _, f := range c.Features {
		var clipped geom.Polygon
		for _, cand := range tree.SearchIntersect(f.Geom.Bounds()) {
			sp := cand.(spatialPoly)
			isect := f.Geom.Intersection(sp.Polygon)
			if isect == nil {
				continue
			}
			for _, p := range isect.Polygons() {
				clipped = append(clipped, p...)
			}
		}
		if len(clipped) > 0 && clipped.Area() > 0 {
			out.Features = append(out.Features, Feature{Geom: clipped, DN: f.DN})
		}
	}
	return out
}
