package morph

import "wetland-mapper/internal/raster"

// Smoother derives the first-pass wetland mask from the temporal sum grid:
// convolution at several circular kernel radii, a consensus vote across the
// kernels, then component cleanup.
type Smoother struct {
	Radii        []int // ordered kernel radii
	MinClusterPx int   // foreground clusters at or below this size are removed
	MaxHolePx    int   // background holes at or below this size are filled
}

// Consensus convolves the sum grid with each configured kernel, thresholds
// every pass at half the kernel's cell count, and keeps pixels passing in
// at least len(Radii)-1 kernels. Tolerating one dissenting kernel makes the
// vote robust to any single kernel's boundary artifacts.
func (s Smoother) Consensus(sum *raster.Grid) *raster.Grid {
	votes := make([]int, sum.Def.Cells())
	for _, r := range s.Radii {
		k := Circular(r)
		pass := ConvolveThreshold(sum, k, float64(k.Count)/2)
		for i, v := range pass.Data {
			if v == 1 {
				votes[i]++
			}
		}
	}
	need := len(s.Radii) - 1
	if need < 1 {
		need = 1
	}
	out := raster.NewGrid(sum.Def, raster.NoDataNone)
	for i, n := range votes {
		if n >= need {
			out.Data[i] = 1
		}
	}
	return out
}

// FirstPass produces the persisted first-pass wetland mask: consensus vote,
// small-cluster removal, then small-hole filling.
func (s Smoother) FirstPass(sum *raster.Grid) (*raster.Grid, error) {
	mask := s.Consensus(sum)

	remove := ComponentFilter{Target: 1, Threshold: s.MinClusterPx, Connectivity: Conn4}
	mask, err := remove.Apply(mask)
	if err != nil {
		return nil, err
	}
	fill := ComponentFilter{Target: 1, Threshold: s.MaxHolePx, Connectivity: Conn4, FillGaps: true}
	return fill.Apply(mask)
}
