// Package raster provides the categorical grid model shared by every
// pipeline stage: integer and floating-point grids carrying their spatial
// reference, plus the pixel-algebra primitives (binarization, temporal
// aggregation, modal reduction) that the delineation stages compose.
package raster

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for the fatal condition kinds the pipeline distinguishes.
var (
	// ErrGridMismatch reports geometry/CRS/dimension disagreement between
	// grids combined in one operation.
	ErrGridMismatch = errors.New("grid geometry mismatch")
	// ErrUnsupportedClassDomain reports a class code outside the configured
	// wetland/non-wetland partition, or overlapping partition sets.
	ErrUnsupportedClassDomain = errors.New("unsupported class domain")
	// ErrEmptyInputSet reports an operation over zero input grids.
	ErrEmptyInputSet = errors.New("empty input set")
	// ErrInvalidMaskDomain reports non-binary input to a binary-only
	// operation. This is a programming/configuration error, not a data error.
	ErrInvalidMaskDomain = errors.New("invalid mask domain")
)

// NoDataNone marks a grid without a designated nodata value.
const NoDataNone int32 = math.MinInt32

// GridDef is the spatial reference of a grid: coordinate reference
// identifier, affine transform (top-left origin, square cells, optional
// rotation) and dimensions. Grids may only be combined when their defs are
// identical.
type GridDef struct {
	CRS      string
	OriginX  float64 // world X of the top-left corner
	OriginY  float64 // world Y of the top-left corner
	CellSize float64
	Rotation float64
	Width    int
	Height   int
}

// Equal reports whether two defs describe the same geometry and reference.
func (d GridDef) Equal(o GridDef) bool {
	return d.CRS == o.CRS &&
		d.OriginX == o.OriginX && d.OriginY == o.OriginY &&
		d.CellSize == o.CellSize && d.Rotation == o.Rotation &&
		d.Width == o.Width && d.Height == o.Height
}

// Cells returns the total cell count.
func (d GridDef) Cells() int { return d.Width * d.Height }

// CellCorner returns the world coordinate of the top-left corner of cell
// (x, y). Passing x = Width or y = Height yields the grid's far edges, so the
// function also maps grid vertices.
func (d GridDef) CellCorner(x, y int) (float64, float64) {
	return d.OriginX + float64(x)*d.CellSize, d.OriginY - float64(y)*d.CellSize
}

// CellCenter returns the world coordinate of the center of cell (x, y).
func (d GridDef) CellCenter(x, y int) (float64, float64) {
	return d.OriginX + (float64(x)+0.5)*d.CellSize, d.OriginY - (float64(y)+0.5)*d.CellSize
}

// Grid is a rectangular array of int32 cell values (class codes, binary
// flags, counts) in row-major order with an optional nodata value.
// Stages never mutate a grid they received; they allocate a new one.
type Grid struct {
	Def    GridDef
	NoData int32
	Data   []int32
}

// NewGrid allocates a zero-filled grid with the given geometry.
func NewGrid(def GridDef, nodata int32) *Grid {
	return &Grid{Def: def, NoData: nodata, Data: make([]int32, def.Cells())}
}

// At returns the value at column x, row y.
func (g *Grid) At(x, y int) int32 { return g.Data[y*g.Def.Width+x] }

// Set writes the value at column x, row y.
func (g *Grid) Set(x, y int, v int32) { g.Data[y*g.Def.Width+x] = v }

// IsNoData reports whether v is the grid's designated nodata value.
func (g *Grid) IsNoData(v int32) bool { return g.NoData != NoDataNone && v == g.NoData }

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := NewGrid(g.Def, g.NoData)
	copy(c.Data, g.Data)
	return c
}

// CountValue returns the number of cells equal to v.
func (g *Grid) CountValue(v int32) int {
	n := 0
	for _, c := range g.Data {
		if c == v {
			n++
		}
	}
	return n
}

// FloatGrid is a rectangular array of float64 cell values (frequencies),
// row-major, sharing the Grid geometry conventions.
type FloatGrid struct {
	Def  GridDef
	Data []float64
}

// NewFloatGrid allocates a zero-filled float grid.
func NewFloatGrid(def GridDef) *FloatGrid {
	return &FloatGrid{Def: def, Data: make([]float64, def.Cells())}
}

// At returns the value at column x, row y.
func (g *FloatGrid) At(x, y int) float64 { return g.Data[y*g.Def.Width+x] }

// Set writes the value at column x, row y.
func (g *FloatGrid) Set(x, y int, v float64) { g.Data[y*g.Def.Width+x] = v }

// CheckSameGeometry verifies that every grid shares the first grid's def.
// The name identifies the calling stage in the error.
func CheckSameGeometry(name string, grids ...*Grid) error {
	if len(grids) == 0 {
		return fmt.Errorf("%s: %w", name, ErrEmptyInputSet)
	}
	ref := grids[0].Def
	for i, g := range grids[1:] {
		if !g.Def.Equal(ref) {
			return fmt.Errorf("%s: grid %d: %w", name, i+1, ErrGridMismatch)
		}
	}
	return nil
}

// CheckBinary verifies that every cell is 0, 1 or nodata.
func CheckBinary(name string, g *Grid) error {
	for i, v := range g.Data {
		if v != 0 && v != 1 && !g.IsNoData(v) {
			return fmt.Errorf("%s: cell %d holds %d: %w", name, i, v, ErrInvalidMaskDomain)
		}
	}
	return nil
}

// Select returns a binary mask set where g equals code. Nodata cells map
// to 0.
func Select(g *Grid, code int32) *Grid {
	out := NewGrid(g.Def, g.NoData)
	for i, v := range g.Data {
		if v == code {
			out.Data[i] = 1
		}
	}
	return out
}

// ApplyMask zeroes every cell of g where mask is not 1. Nodata in g passes
// through untouched.
func ApplyMask(g, mask *Grid) (*Grid, error) {
	if err := CheckSameGeometry("apply mask", g, mask); err != nil {
		return nil, err
	}
	if err := CheckBinary("apply mask", mask); err != nil {
		return nil, err
	}
	out := NewGrid(g.Def, g.NoData)
	for i, v := range g.Data {
		switch {
		case g.IsNoData(v):
			out.Data[i] = v
		case mask.Data[i] == 1:
			out.Data[i] = v
		}
	}
	return out, nil
}

// Or returns the pixelwise logical OR of binary masks.
func Or(masks ...*Grid) (*Grid, error) {
	if err := CheckSameGeometry("mask or", masks...); err != nil {
		return nil, err
	}
	for _, m := range masks {
		if err := CheckBinary("mask or", m); err != nil {
			return nil, err
		}
	}
	out := NewGrid(masks[0].Def, masks[0].NoData)
	for _, m := range masks {
		for i, v := range m.Data {
			if v == 1 {
				out.Data[i] = 1
			}
		}
	}
	return out, nil
}
