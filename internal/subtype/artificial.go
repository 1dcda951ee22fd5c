package subtype

import (
	"fmt"

	"wetland-mapper/internal/morph"
	"wetland-mapper/internal/raster"
)

// ArtificialParams configures artificial-wetland extraction.
type ArtificialParams struct {
	Code       int32 // reclassified artificial-wetland code
	MinCluster int
	MaxHole    int
}

// ExtractArtificial selects the artificial-wetland code from the masked
// mode grid, removes small clusters and fills holes. No recursive
// smoothing.
func ExtractArtificial(mode *raster.Grid, p ArtificialParams) (*raster.Grid, error) {
	mask := raster.Select(mode, p.Code)

	remove := morph.ComponentFilter{Target: 1, Threshold: p.MinCluster, Connectivity: morph.Conn4}
	mask, err := remove.Apply(mask)
	if err != nil {
		return nil, fmt.Errorf("artificial wetlands: %w", err)
	}
	fill := morph.ComponentFilter{Target: 1, Threshold: p.MaxHole, Connectivity: morph.Conn4, FillGaps: true}
	mask, err = fill.Apply(mask)
	if err != nil {
		return nil, fmt.Errorf("artificial wetlands: %w", err)
	}
	return mask, nil
}
