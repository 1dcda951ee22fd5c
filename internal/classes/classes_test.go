package classes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wetland-mapper/internal/raster"
)

func testPartition() Partition {
	return Partition{
		Wetland:    []int32{2, 5, 7},
		Woody:      3,
		NonWetland: []int32{1, 4, 6},
		Artificial: 5,
	}
}

func TestPartitionValidate(t *testing.T) {
	require.NoError(t, testPartition().Validate())

	bad := testPartition()
	bad.NonWetland = append(bad.NonWetland, 5) // overlaps wetland
	require.ErrorIs(t, bad.Validate(), raster.ErrUnsupportedClassDomain)

	bad = testPartition()
	bad.Woody = 2 // overlaps wetland
	require.ErrorIs(t, bad.Validate(), raster.ErrUnsupportedClassDomain)

	bad = testPartition()
	bad.Artificial = 1 // not a wetland class
	require.ErrorIs(t, bad.Validate(), raster.ErrUnsupportedClassDomain)

	bad = testPartition()
	bad.Wetland = nil
	require.ErrorIs(t, bad.Validate(), raster.ErrUnsupportedClassDomain)
}

func TestReclassBands(t *testing.T) {
	p := testPartition()

	cases := []struct{ in, want int32 }{
		{2, 100}, {5, 101}, {7, 102}, // wetland priority order
		{3, 103},                     // woody follows the last wetland band
		{1, 200}, {4, 201}, {6, 202}, // non-wetland order
	}
	for _, c := range cases {
		got, err := p.Reclass(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "class %d", c.in)
	}

	_, err := p.Reclass(42)
	require.ErrorIs(t, err, raster.ErrUnsupportedClassDomain)

	assert.Equal(t, int32(103), p.WoodyReclass())
	assert.Equal(t, int32(100), p.PondReclass())
	assert.Equal(t, int32(101), p.ArtificialReclass())
}

// The encoding must be injective and strictly separate favored-on-tie
// codes (wetland, woody) from disfavored ones (non-wetland).
func TestReclassOrderingInvariant(t *testing.T) {
	p := testPartition()
	seen := make(map[int32]int32)
	all := append(append([]int32{}, p.Wetland...), p.Woody)
	for _, c := range all {
		r, err := p.Reclass(c)
		require.NoError(t, err)
		assert.Less(t, r, NonWetlandBase, "favored class %d", c)
		if prev, dup := seen[r]; dup {
			t.Fatalf("codes %d and %d both reclassify to %d", prev, c, r)
		}
		seen[r] = c
	}
	for _, c := range p.NonWetland {
		r, err := p.Reclass(c)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r, NonWetlandBase, "disfavored class %d", c)
		if prev, dup := seen[r]; dup {
			t.Fatalf("codes %d and %d both reclassify to %d", prev, c, r)
		}
		seen[r] = c
	}
}

func TestReclassGrid(t *testing.T) {
	p := testPartition()
	g := raster.NewGrid(raster.GridDef{CRS: "x", CellSize: 1, Width: 3, Height: 1}, 255)
	g.Set(0, 0, 2)
	g.Set(1, 0, 255) // nodata passes through
	g.Set(2, 0, 1)

	out, err := ReclassGrid(g, p)
	require.NoError(t, err)
	assert.Equal(t, []int32{100, 255, 200}, out.Data)
	assert.Equal(t, []int32{2, 255, 1}, g.Data, "input must not be mutated")

	g.Set(1, 0, 99)
	_, err = ReclassGrid(g, p)
	require.ErrorIs(t, err, raster.ErrUnsupportedClassDomain)
}
