package subtype

import (
	"fmt"

	"wetland-mapper/internal/morph"
	"wetland-mapper/internal/raster"
	"wetland-mapper/internal/river"
	"wetland-mapper/internal/vector"
)

// WoodyParams configures woody-floodplain extraction.
type WoodyParams struct {
	Code       int32 // reclassified woody code
	MinCluster int
	MaxHole    int
}

// ExtractWoody detects woody floodplain wetlands. Candidates come from the
// unmasked mode grid (woody is a non-wetland class, so the first-pass mask
// would erase it): small clusters are removed, small holes filled, and the
// remaining patches polygonized. Patches that intersect the near river
// buffer are kept and clipped to the far buffer, rasterized back against
// the reference geometry, and gap-filled once more. The clipped candidate
// polygons are returned alongside the mask.
func ExtractWoody(modeUnmasked *raster.Grid, buf river.Buffers, p WoodyParams) (*raster.Grid, vector.Collection, error) {
	mask := raster.Select(modeUnmasked, p.Code)

	remove := morph.ComponentFilter{Target: 1, Threshold: p.MinCluster, Connectivity: morph.Conn4}
	mask, err := remove.Apply(mask)
	if err != nil {
		return nil, vector.Collection{}, fmt.Errorf("woody floodplain: %w", err)
	}
	fill := morph.ComponentFilter{Target: 1, Threshold: p.MaxHole, Connectivity: morph.Conn4, FillGaps: true}
	mask, err = fill.Apply(mask)
	if err != nil {
		return nil, vector.Collection{}, fmt.Errorf("woody floodplain: %w", err)
	}

	candidates, err := vector.Polygonize(mask, 1)
	if err != nil {
		return nil, vector.Collection{}, fmt.Errorf("woody floodplain: %w", err)
	}
	nearRiver := vector.SelectIntersecting(candidates, buf.Near)
	clipped := vector.ClipTo(nearRiver, buf.Far)

	out, err := vector.Rasterize(clipped, modeUnmasked.Def, 1)
	if err != nil {
		return nil, vector.Collection{}, fmt.Errorf("woody floodplain: %w", err)
	}
	out, err = fill.Apply(out)
	if err != nil {
		return nil, vector.Collection{}, fmt.Errorf("woody floodplain: %w", err)
	}
	return out, clipped, nil
}
