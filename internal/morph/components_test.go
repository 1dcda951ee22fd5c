package morph

import (
	"testing"

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

func TestThresholdZeroIsIdentity(t *testing.T) {
	m := maskFromRows(t,
		"10010",
		"00110",
		"00000",
	)
	for _, fill := range []bool{false, true} {
		f := ComponentFilter{Target: 1, Threshold: 0, Connectivity: Conn4, FillGaps: fill}
		out, err := f.Apply(m)
		require.NoError(t, err)
		assert.Equal(t, m.Data, out.Data, "fill_gaps=%v", fill)
	}
}

func TestSinglePixelKeepAndRemove(t *testing.T) {
	m := maskFromRows(t,
		"00000",
		"00000",
		"00100",
		"00000",
		"00000",
	)

	keep := ComponentFilter{Target: 1, Threshold: 0, Connectivity: Conn4}
	out, err := keep.Apply(m)
	require.NoError(t, err)
	assert.Equal(t, int32(1), out.At(2, 2))

	remove := ComponentFilter{Target: 1, Threshold: 1, Connectivity: Conn4}
	out, err = remove.Apply(m)
	require.NoError(t, err)
	assert.Equal(t, int32(0), out.At(2, 2))
}

func TestRemoveSmallClustersKeepsLarge(t *testing.T) {
	m := maskFromRows(t,
		"1100010",
		"1100000",
		"0000001",
	)
	f := ComponentFilter{Target: 1, Threshold: 1, Connectivity: Conn4}
	out, err := f.Apply(m)
	require.NoError(t, err)
	// The 4-cell block survives, both singletons go.
	assert.Equal(t, 4, out.CountValue(1))
	assert.Equal(t, int32(1), out.At(0, 0))
	assert.Equal(t, int32(0), out.At(5, 0))
	assert.Equal(t, int32(0), out.At(6, 2))
}

func TestFillGapsFillsSmallHoles(t *testing.T) {
	m := maskFromRows(t,
		"11111",
		"11011",
		"11111",
	)
	f := ComponentFilter{Target: 1, Threshold: 1, Connectivity: Conn4, FillGaps: true}
	out, err := f.Apply(m)
	require.NoError(t, err)
	assert.Equal(t, int32(1), out.At(2, 1), "hole filled")
	assert.Equal(t, 15, out.CountValue(1))

	// A big background region is untouched.
	big := maskFromRows(t,
		"11111",
		"10001",
		"10001",
		"11111",
	)
	out, err = f.Apply(big)
	require.NoError(t, err)
	assert.Equal(t, int32(0), out.At(1, 1), "large hole stays")
	assert.Equal(t, int32(0), out.At(2, 2))
}

func TestConnectivityRule(t *testing.T) {
	// Two cells touching only diagonally.
	m := maskFromRows(t,
		"10",
		"01",
	)
	_, sizes4 := Label(m, 1, Conn4)
	assert.Len(t, sizes4, 2)

	_, sizes8 := Label(m, 1, Conn8)
	require.Len(t, sizes8, 1)
	assert.Equal(t, 2, sizes8[0])

	// Under 8-connectivity the pair survives a threshold of 1.
	f8 := ComponentFilter{Target: 1, Threshold: 1, Connectivity: Conn8}
	out, err := f8.Apply(m)
	require.NoError(t, err)
	assert.Equal(t, 2, out.CountValue(1))

	f4 := ComponentFilter{Target: 1, Threshold: 1, Connectivity: Conn4}
	out, err = f4.Apply(m)
	require.NoError(t, err)
	assert.Equal(t, 0, out.CountValue(1))
}

func TestInvalidMaskDomain(t *testing.T) {
	g := raster.NewGrid(testDef(2, 1), raster.NoDataNone)
	g.Set(0, 0, 3)
	f := ComponentFilter{Target: 1, Threshold: 1, Connectivity: Conn4}
	_, err := f.Apply(g)
	require.ErrorIs(t, err, raster.ErrInvalidMaskDomain)

	_, err = ComponentFilter{Target: 0, Threshold: 1}.Apply(g)
	require.ErrorIs(t, err, raster.ErrInvalidMaskDomain)
}

func TestLabelComponentSizes(t *testing.T) {
	m := maskFromRows(t,
		"110",
		"100",
		"001",
	)
	labels, sizes := Label(m, 1, Conn4)
	require.Len(t, sizes, 2)
	assert.ElementsMatch(t, []int{3, 1}, sizes)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[3])
	assert.NotEqual(t, labels[0], labels[8])
}
