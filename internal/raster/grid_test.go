package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDef(w, h int) GridDef {
	return GridDef{
		CRS:      "EPSG:32633",
		OriginX:  0,
		OriginY:  float64(h),
		CellSize: 1,
		Width:    w,
		Height:   h,
	}
}

func TestCheckSameGeometry(t *testing.T) {
	a := NewGrid(testDef(4, 4), NoDataNone)
	b := NewGrid(testDef(4, 4), NoDataNone)
	require.NoError(t, CheckSameGeometry("test", a, b))

	c := NewGrid(testDef(4, 5), NoDataNone)
	err := CheckSameGeometry("test", a, c)
	require.ErrorIs(t, err, ErrGridMismatch)

	d := NewGrid(testDef(4, 4), NoDataNone)
	d.Def.CRS = "EPSG:4326"
	require.ErrorIs(t, CheckSameGeometry("test", a, d), ErrGridMismatch)

	require.ErrorIs(t, CheckSameGeometry("test"), ErrEmptyInputSet)
}

func TestCheckBinary(t *testing.T) {
	g := NewGrid(testDef(2, 2), NoDataNone)
	g.Set(0, 0, 1)
	require.NoError(t, CheckBinary("test", g))

	g.Set(1, 1, 7)
	require.ErrorIs(t, CheckBinary("test", g), ErrInvalidMaskDomain)

	// Nodata cells are allowed.
	n := NewGrid(testDef(2, 2), 255)
	n.Set(0, 1, 255)
	require.NoError(t, CheckBinary("test", n))
}

func TestSelectAndApplyMask(t *testing.T) {
	g := NewGrid(testDef(3, 1), NoDataNone)
	g.Set(0, 0, 100)
	g.Set(1, 0, 200)
	g.Set(2, 0, 100)

	sel := Select(g, 100)
	assert.Equal(t, []int32{1, 0, 1}, sel.Data)

	mask := NewGrid(testDef(3, 1), NoDataNone)
	mask.Set(0, 0, 1)
	masked, err := ApplyMask(g, mask)
	require.NoError(t, err)
	assert.Equal(t, []int32{100, 0, 0}, masked.Data)

	// Input untouched.
	assert.Equal(t, []int32{100, 200, 100}, g.Data)
}

func TestOr(t *testing.T) {
	a := NewGrid(testDef(2, 1), NoDataNone)
	a.Set(0, 0, 1)
	b := NewGrid(testDef(2, 1), NoDataNone)
	b.Set(1, 0, 1)

	or, err := Or(a, b)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 1}, or.Data)
}
