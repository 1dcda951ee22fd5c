package raster

import (
	"fmt"
	"runtime"
	"sync"
)

// Mode reduces a stack of reclassified grids to the per-pixel most frequent
// code and its count. Ties at maximum frequency resolve to the smallest
// code; the reclassification bands are arranged so this favors wetland over
// non-wetland codes. Nodata values are skipped; a pixel that is nodata in
// every year stays nodata with count 0.
//
// The reduction is pixel-independent, so rows are split across workers.
func Mode(stack []*Grid) (mode, count *Grid, err error) {
	if len(stack) == 0 {
		return nil, nil, fmt.Errorf("modal: %w", ErrEmptyInputSet)
	}
	if err := CheckSameGeometry("modal", stack...); err != nil {
		return nil, nil, err
	}

	def := stack[0].Def
	nodata := stack[0].NoData
	mode = NewGrid(def, nodata)
	count = NewGrid(def, NoDataNone)

	workers := runtime.NumCPU()
	if workers > def.Height {
		workers = def.Height
	}
	if workers < 1 {
		workers = 1
	}
	rowsPer := (def.Height + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		y0, y1 := w*rowsPer, (w+1)*rowsPer
		if y1 > def.Height {
			y1 = def.Height
		}
		if y0 >= y1 {
			break
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			modeRows(stack, mode, count, nodata, y0, y1)
		}(y0, y1)
	}
	wg.Wait()
	return mode, count, nil
}

// modeRows reduces rows [y0, y1). T is small, so occurrences are counted by
// rescanning the column values instead of allocating per-pixel maps.
func modeRows(stack []*Grid, mode, count *Grid, nodata int32, y0, y1 int) {
	w := mode.Def.Width
	t := len(stack)
	vals := make([]int32, t)
	for y := y0; y < y1; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			n := 0
			for _, g := range stack {
				v := g.Data[i]
				if g.IsNoData(v) {
					continue
				}
				vals[n] = v
				n++
			}
			if n == 0 {
				mode.Data[i] = nodata
				count.Data[i] = 0
				continue
			}
			best, bestCount := vals[0], 0
			for j := 0; j < n; j++ {
				c := 0
				for k := 0; k < n; k++ {
					if vals[k] == vals[j] {
						c++
					}
				}
				if c > bestCount || (c == bestCount && vals[j] < best) {
					best, bestCount = vals[j], c
				}
			}
			mode.Data[i] = best
			count.Data[i] = int32(bestCount)
		}
	}
}
