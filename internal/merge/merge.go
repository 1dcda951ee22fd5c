// Package merge combines the subtype masks and the river mask into the two
// final products: the unified wetland/non-wetland mask and the
// differentiated wetland-type grid.
package merge

import (
	"fmt"

	"wetland-mapper/internal/morph"
	"wetland-mapper/internal/raster"
)

// Differentiated wetland-type codes.
const (
	CodePond       int32 = 1
	CodeWetland    int32 = 2 // generic wetland
	CodeArtificial int32 = 3
	CodeRiver      int32 = 4
)

// Inputs are the five masks, all on identical geometry.
type Inputs struct {
	FirstPass  *raster.Grid
	Ponds      *raster.Grid
	Artificial *raster.Grid
	Woody      *raster.Grid
	River      *raster.Grid
}

func (in Inputs) masks() []*raster.Grid {
	return []*raster.Grid{in.FirstPass, in.Ponds, in.Artificial, in.Woody, in.River}
}

// Unified ORs all five masks and fills seam holes at or below holeFill
// pixels, producing the primary wetland/non-wetland mask.
func Unified(in Inputs, holeFill int) (*raster.Grid, error) {
	mask, err := raster.Or(in.masks()...)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	fill := morph.ComponentFilter{Target: 1, Threshold: holeFill, Connectivity: morph.Conn4, FillGaps: true}
	mask, err = fill.Apply(mask)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	return mask, nil
}

// Differentiated builds the wetland-type grid from the hole-filled unified
// mask: every unified cell starts as generic wetland, then the subtype
// overwrites run in fixed order — artificial, pond, river — with the last
// write winning. The resulting precedence is river over pond over
// artificial over generic.
func Differentiated(unified *raster.Grid, in Inputs) (*raster.Grid, error) {
	if err := raster.CheckSameGeometry("differentiate", append([]*raster.Grid{unified}, in.masks()...)...); err != nil {
		return nil, err
	}
	out := raster.NewGrid(unified.Def, raster.NoDataNone)
	for i, v := range unified.Data {
		if v == 1 {
			out.Data[i] = CodeWetland
		}
	}
	overwrite := func(mask *raster.Grid, code int32) {
		for i, v := range mask.Data {
			if v == 1 {
				out.Data[i] = code
			}
		}
	}
	overwrite(in.Artificial, CodeArtificial)
	overwrite(in.Ponds, CodePond)
	overwrite(in.River, CodeRiver)
	return out, nil
}
