package morph

import (
	"image"

	"gocv.io/x/gocv"

	"wetland-mapper/internal/raster"
)

// Convolve slides the kernel over the grid and returns the per-cell sum of
// covered values. The boundary is zero-padded, so output geometry matches
// the input. Nodata cells contribute zero.
func Convolve(g *raster.Grid, k Kernel) *raster.FloatGrid {
	w, h := g.Def.Width, g.Def.Height

	src := gocv.NewMatWithSize(h, w, gocv.MatTypeCV32F)
	defer src.Close()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := g.At(x, y)
			if g.IsNoData(v) {
				continue
			}
			src.SetFloatAt(y, x, float32(v))
		}
	}

	km := gocv.NewMatWithSize(k.Size, k.Size, gocv.MatTypeCV32F)
	defer km.Close()
	for dy := 0; dy < k.Size; dy++ {
		for dx := 0; dx < k.Size; dx++ {
			if k.Stencil[dy*k.Size+dx] {
				km.SetFloatAt(dy, dx, 1)
			}
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	// Symmetric binary kernel, so correlation and convolution coincide.
	gocv.Filter2D(src, &dst, gocv.MatTypeCV32F, km, image.Pt(-1, -1), 0, gocv.BorderConstant)

	out := raster.NewFloatGrid(g.Def)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(x, y, float64(dst.GetFloatAt(y, x)))
		}
	}
	return out
}

// ConvolveThreshold convolves and keeps cells whose kernel sum reaches the
// threshold, producing a binary mask.
func ConvolveThreshold(g *raster.Grid, k Kernel, threshold float64) *raster.Grid {
	conv := Convolve(g, k)
	out := raster.NewGrid(g.Def, raster.NoDataNone)
	for i, v := range conv.Data {
		if v >= threshold {
			out.Data[i] = 1
		}
	}
	return out
}
