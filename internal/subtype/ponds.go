// Package subtype extracts the differentiated wetland subtypes (ponds,
// artificial wetlands, woody floodplain wetlands) from the masked modal
// classification. Each extractor is a fixed composition of the component
// filter, smoothing, and for woody detection, river-buffer gating.
package subtype

import (
	"fmt"

	"wetland-mapper/internal/morph"
	"wetland-mapper/internal/raster"
)

// PondParams configures pond extraction.
type PondParams struct {
	Code       int32 // reclassified pond code
	MinCluster int   // clusters at or below this size are removed
	MaxHole    int   // holes at or below this size are filled
	KernelSize int   // radius of the recursive smoothing kernel
}

// smoothingPasses is the fixed depth of the recursive pond smoothing.
const smoothingPasses = 3

// ExtractPonds selects the pond code from the masked mode grid, removes
// small clusters, fills holes, and applies the recursive smoothing pass:
// the mask is convolved three times in sequence with a small circular
// kernel, each pass re-convolving the previous boolean output and
// thresholding at kernelCount/KernelSize — the divisor is the kernel-size
// parameter, not two, which smooths more gently than the first-pass
// consensus and is deliberate. The three pass masks are ORed together and
// small clusters are removed once more.
func ExtractPonds(mode *raster.Grid, p PondParams) (*raster.Grid, error) {
	if p.KernelSize <= 0 {
		return nil, fmt.Errorf("ponds: kernel size %d", p.KernelSize)
	}
	mask := raster.Select(mode, p.Code)

	remove := morph.ComponentFilter{Target: 1, Threshold: p.MinCluster, Connectivity: morph.Conn4}
	mask, err := remove.Apply(mask)
	if err != nil {
		return nil, fmt.Errorf("ponds: %w", err)
	}
	fill := morph.ComponentFilter{Target: 1, Threshold: p.MaxHole, Connectivity: morph.Conn4, FillGaps: true}
	mask, err = fill.Apply(mask)
	if err != nil {
		return nil, fmt.Errorf("ponds: %w", err)
	}

	k := morph.Circular(p.KernelSize)
	threshold := float64(k.Count) / float64(p.KernelSize)
	passes := make([]*raster.Grid, 0, smoothingPasses)
	cur := mask
	for i := 0; i < smoothingPasses; i++ {
		cur = morph.ConvolveThreshold(cur, k, threshold)
		passes = append(passes, cur)
	}
	smoothed, err := raster.Or(passes...)
	if err != nil {
		return nil, fmt.Errorf("ponds: %w", err)
	}

	out, err := remove.Apply(smoothed)
	if err != nil {
		return nil, fmt.Errorf("ponds: %w", err)
	}
	return out, nil
}
