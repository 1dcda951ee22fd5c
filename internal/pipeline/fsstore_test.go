package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wetland-mapper/internal/raster"
	"wetland-mapper/internal/vector"
)

func TestFSStoreGridRoundTrip(t *testing.T) {
	s := NewFSStore(t.TempDir(), "EPSG:32633", 255)

	def := raster.GridDef{
		CRS: "EPSG:25832", OriginX: 100.5, OriginY: 250, CellSize: 2.5,
		Width: 3, Height: 2,
	}
	g := raster.NewGrid(def, 255)
	g.Set(0, 0, 1)
	g.Set(2, 1, 3)
	require.NoError(t, s.StoreGrid("out/mask.tif", g))

	assert.True(t, s.HasGrid("out/mask.tif"))
	assert.FileExists(t, filepath.Join(s.Root, "out", "mask.tfw"))
	assert.FileExists(t, filepath.Join(s.Root, "out", "mask.prj"))

	got, err := s.LoadGrid("out/mask.tif")
	require.NoError(t, err)
	assert.Equal(t, g.Data, got.Data)
	assert.Equal(t, "EPSG:25832", got.Def.CRS, "CRS restored from the .prj sidecar")
	assert.InDelta(t, def.OriginX, got.Def.OriginX, 1e-9)
	assert.InDelta(t, def.OriginY, got.Def.OriginY, 1e-9)
	assert.InDelta(t, def.CellSize, got.Def.CellSize, 1e-9)
	assert.Equal(t, def.Width, got.Def.Width)
	assert.Equal(t, def.Height, got.Def.Height)
	assert.Equal(t, int32(255), got.NoData, "nodata restored from the aux sidecar")
}

func TestFSStoreGridNoDataSidecar(t *testing.T) {
	// The store-level input nodata must not leak into derived grids whose
	// legitimate values can collide with it, e.g. a temporal-sum count equal
	// to the nodata code.
	s := NewFSStore(t.TempDir(), "EPSG:32633", 2)
	def := raster.GridDef{CRS: "x", OriginY: 1, CellSize: 1, Width: 3, Height: 1}
	sum := raster.NewGrid(def, raster.NoDataNone)
	sum.Set(0, 0, 2)
	require.NoError(t, s.StoreGrid("mid/sum.tif", sum))

	got, err := s.LoadGrid("mid/sum.tif")
	require.NoError(t, err)
	assert.Equal(t, raster.NoDataNone, got.NoData)
	assert.False(t, got.IsNoData(got.At(0, 0)), "count of 2 is data, not nodata")

	// An external grid without the sidecar falls back to the store default.
	require.NoError(t, os.Remove(filepath.Join(s.Root, "mid", "sum.tif.aux.xml")))
	got, err = s.LoadGrid("mid/sum.tif")
	require.NoError(t, err)
	assert.Equal(t, int32(2), got.NoData)
	assert.True(t, got.IsNoData(got.At(0, 0)))
}

func TestFSStorePartialArtifactsStayInvisible(t *testing.T) {
	s := NewFSStore(t.TempDir(), "EPSG:32633", raster.NoDataNone)
	def := raster.GridDef{CRS: "x", OriginY: 1, CellSize: 1, Width: 1, Height: 1}
	require.NoError(t, s.StoreGrid("out/mask.tif", raster.NewGrid(def, raster.NoDataNone)))
	require.True(t, s.HasGrid("out/mask.tif"))

	// A TIFF missing its world file cannot be loaded and must not make a
	// resumed run skip the stage that produces it.
	require.NoError(t, os.Remove(filepath.Join(s.Root, "out", "mask.tfw")))
	assert.False(t, s.HasGrid("out/mask.tif"))

	c := vector.Collection{Features: []vector.Feature{{
		Geom: geom.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}},
		DN:   1,
	}}}
	require.NoError(t, s.StoreVectors("out/m.shp", c))
	require.True(t, s.HasVectors("out/m.shp"))

	require.NoError(t, os.Remove(filepath.Join(s.Root, "out", "m.dbf")))
	assert.False(t, s.HasVectors("out/m.shp"), "shapefile without its .dbf is incomplete")
}

func TestFSStoreGridRejectsOutOfRange(t *testing.T) {
	s := NewFSStore(t.TempDir(), "EPSG:32633", raster.NoDataNone)
	g := raster.NewGrid(raster.GridDef{CRS: "x", CellSize: 1, Width: 1, Height: 1}, raster.NoDataNone)
	g.Set(0, 0, -1)
	require.Error(t, s.StoreGrid("bad.tif", g))
	assert.False(t, s.HasGrid("bad.tif"), "nothing written on failure")
}

func TestFSStoreFloatGridRoundTrip(t *testing.T) {
	s := NewFSStore(t.TempDir(), "EPSG:32633", raster.NoDataNone)
	f := raster.NewFloatGrid(raster.GridDef{CRS: "x", OriginY: 2, CellSize: 1, Width: 2, Height: 2})
	f.Data = []float64{0, 0.5, 0.75, 1}
	require.NoError(t, s.StoreFloatGrid("out/freq.gob", f))

	got, err := s.LoadFloatGrid("out/freq.gob")
	require.NoError(t, err)
	assert.Equal(t, f.Def, got.Def)
	assert.Equal(t, f.Data, got.Data)
}

func TestFSStoreListGrids(t *testing.T) {
	s := NewFSStore(t.TempDir(), "EPSG:32633", raster.NoDataNone)
	g := raster.NewGrid(raster.GridDef{CRS: "x", OriginY: 1, CellSize: 1, Width: 1, Height: 1}, raster.NoDataNone)
	require.NoError(t, s.StoreGrid("in/b.tif", g))
	require.NoError(t, s.StoreGrid("in/a.tif", g))
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root, "in", "nested"), 0o755))

	names, err := s.ListGrids("in")
	require.NoError(t, err)
	// Sidecars and subdirectories are skipped.
	assert.Equal(t, []string{"in/a.tif", "in/b.tif"}, names)

	_, err = s.ListGrids("absent")
	require.Error(t, err)
}

func TestFSStoreVectorRoundTrip(t *testing.T) {
	s := NewFSStore(t.TempDir(), "EPSG:32633", raster.NoDataNone)
	c := vector.Collection{
		CRS: "EPSG:25832",
		Features: []vector.Feature{
			{
				Geom: geom.Polygon{{
					{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 3}, {X: 0, Y: 3},
				}},
				DN: 7,
			},
			{
				Geom: geom.Polygon{{
					{X: 10, Y: 10}, {X: 11, Y: 10}, {X: 11, Y: 11}, {X: 10, Y: 11},
				}},
				DN: 42,
			},
		},
	}
	require.NoError(t, s.StoreVectors("shp/ponds.shp", c))
	assert.True(t, s.HasVectors("shp/ponds.shp"))

	// The DN attribute must survive DBF storage, which pads field values
	// with spaces.
	got, err := s.LoadVectors("shp/ponds.shp")
	require.NoError(t, err)
	require.Len(t, got.Features, 2)
	assert.Equal(t, 7, got.Features[0].DN)
	assert.Equal(t, 42, got.Features[1].DN)
	assert.InDelta(t, 12.0, got.Features[0].Geom.Area(), 1e-9)
	assert.Equal(t, "EPSG:25832", got.CRS)
}

func TestFSStoreLineRoundTrip(t *testing.T) {
	s := NewFSStore(t.TempDir(), "EPSG:32633", raster.NoDataNone)
	lines := []geom.LineString{
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}},
		{{X: 3, Y: 3}, {X: 4, Y: 4}},
	}
	require.NoError(t, s.StoreLines("rivers.shp", lines, ""))

	got, crs, err := s.LoadLines("rivers.shp")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, lines[0][0].X, got[0][0].X)
	assert.Equal(t, lines[0][2].Y, got[0][2].Y)
	assert.Equal(t, "EPSG:32633", crs, "empty CRS falls back to the store default")
}
