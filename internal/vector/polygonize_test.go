package vector

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wetland-mapper/internal/raster"
)

func testDef(w, h int) raster.GridDef {
	return raster.GridDef{CRS: "EPSG:32633", OriginY: float64(h), CellSize: 1, Width: w, Height: h}
}

func maskFromRows(t *testing.T, rows ...string) *raster.Grid {
	t.Helper()
	g := raster.NewGrid(testDef(len(rows[0]), len(rows)), raster.NoDataNone)
	for y, row := range rows {
		for x, c := range row {
			if c == '1' {
				g.Set(x, y, 1)
			}
		}
	}
	return g
}

func TestPolygonizeSingleCell(t *testing.T) {
	g := maskFromRows(t,
		"000",
		"010",
		"000",
	)
	c, err := Polygonize(g, 1)
	require.NoError(t, err)
	require.Len(t, c.Features, 1)
	assert.Equal(t, 1, c.Features[0].DN)
	assert.Len(t, c.Features[0].Geom, 1, "one ring")
	assert.InDelta(t, 1.0, c.Features[0].Geom.Area(), 1e-9)

	// Cell (1,1) of a 3x3 grid with the origin at the top-left corner
	// spans world x [1,2], y [1,2].
	b := c.Features[0].Geom.Bounds()
	assert.Equal(t, geom.Point{X: 1, Y: 1}, b.Min)
	assert.Equal(t, geom.Point{X: 2, Y: 2}, b.Max)
}

func TestPolygonizeComponentsAndHoles(t *testing.T) {
	g := maskFromRows(t,
		"11100",
		"10100",
		"11100",
		"00001",
	)
	c, err := Polygonize(g, 1)
	require.NoError(t, err)
	require.Len(t, c.Features, 2, "ring and lone cell are separate components")

	var donut, lone Feature
	for _, f := range c.Features {
		if len(f.Geom) == 2 {
			donut = f
		} else {
			lone = f
		}
	}
	require.Len(t, donut.Geom, 2, "exterior plus hole")
	assert.InDelta(t, 8.0, donut.Geom.Area(), 1e-9)
	assert.InDelta(t, 1.0, lone.Geom.Area(), 1e-9)
	assert.InDelta(t, 9.0, c.Area(), 1e-9)
}

func TestPolygonizeRejectsRotatedGrid(t *testing.T) {
	def := testDef(2, 2)
	def.Rotation = 0.1
	_, err := Polygonize(raster.NewGrid(def, raster.NoDataNone), 1)
	require.ErrorIs(t, err, raster.ErrGridMismatch)
}

func TestPolygonizeRasterizeRoundTrip(t *testing.T) {
	g := maskFromRows(t,
		"0110000",
		"0111100",
		"0101100",
		"0111100",
		"0000010",
	)
	c, err := Polygonize(g, 1)
	require.NoError(t, err)

	back, err := Rasterize(c, g.Def, 1)
	require.NoError(t, err)
	assert.Equal(t, g.Data, back.Data)
}

func TestRasterizeHalfCellRule(t *testing.T) {
	def := testDef(3, 1)
	c := Collection{CRS: def.CRS, Features: []Feature{{
		// Covers all of cell 0 and 40% of cell 1.
		Geom: geom.Polygon{{
			{X: 0, Y: 0}, {X: 1.4, Y: 0}, {X: 1.4, Y: 1}, {X: 0, Y: 1},
		}},
		DN: 1,
	}}}
	out, err := Rasterize(c, def, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), out.At(0, 0))
	assert.Equal(t, int32(0), out.At(1, 0), "40%% coverage is below the half-cell rule")
	assert.Equal(t, int32(0), out.At(2, 0))
}

func TestRasterizeClampsToGrid(t *testing.T) {
	def := testDef(2, 2)
	c := Collection{CRS: def.CRS, Features: []Feature{{
		Geom: geom.Polygon{{
			{X: -5, Y: -5}, {X: 10, Y: -5}, {X: 10, Y: 10}, {X: -5, Y: 10},
		}},
		DN: 1,
	}}}
	out, err := Rasterize(c, def, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, out.CountValue(1))
}
