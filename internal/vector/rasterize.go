package vector

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"

	"wetland-mapper/internal/raster"
)

// Rasterize burns the collection's polygons into a new grid with the given
// geometry: a cell is set to burn when the polygon covers at least half of
// it. Polygonized masks have rings exactly on cell edges, so rasterizing
// them back reproduces the original foreground cell-for-cell.
func Rasterize(c Collection, def raster.GridDef, burn int32) (*raster.Grid, error) {
	if def.Rotation != 0 {
		return nil, fmt.Errorf("rasterize: rotated grid: %w", raster.ErrGridMismatch)
	}
	out := raster.NewGrid(def, raster.NoDataNone)
	halfCell := def.CellSize * def.CellSize / 2

	for _, f := range c.Features {
		b := f.Geom.Bounds()
		if b == nil {
			continue
		}
		x0 := int(math.Floor((b.Min.X - def.OriginX) / def.CellSize))
		x1 := int(math.Ceil((b.Max.X - def.OriginX) / def.CellSize))
		y0 := int(math.Floor((def.OriginY - b.Max.Y) / def.CellSize))
		y1 := int(math.Ceil((def.OriginY - b.Min.Y) / def.CellSize))
		if x0 < 0 {
			x0 = 0
		}
		if y0 < 0 {
			y0 = 0
		}
		if x1 > def.Width {
			x1 = def.Width
		}
		if y1 > def.Height {
			y1 = def.Height
		}

		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				if out.At(x, y) == burn {
					continue
				}
				cell := cellSquare(def, x, y)
				isect := cell.Intersection(f.Geom)
				if isect != nil && isect.Area() >= halfCell {
					out.Set(x, y, burn)
				}
			}
		}
	}
	return out, nil
}

// cellSquare returns cell (x, y) as a counterclockwise world-coordinate
// polygon.
func cellSquare(def raster.GridDef, x, y int) geom.Polygon {
	x0, y0 := def.CellCorner(x, y)
	x1, y1 := def.CellCorner(x+1, y+1)
	return geom.Polygon{{
		{X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0},
	}}
}
