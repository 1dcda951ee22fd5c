// Package morph implements the morphological primitives of the pipeline:
// discrete circular kernels, kernel convolution, multi-kernel consensus
// smoothing, and the connected-component size filter used everywhere as the
// noise-removal primitive.
package morph

import "math"

// Kernel is a binary circular stencil of side 2*Radius+1.
type Kernel struct {
	Radius  int
	Size    int
	Stencil []bool // row-major, Size*Size
	Count   int    // number of set cells
}

// circleMargin widens the inclusion radius so rasterized circles keep their
// diagonal cells.
const circleMargin = 0.4

// Circular builds the discrete circular kernel of integer radius r: a cell
// is set when its Euclidean distance from the center is at most r+0.4, the
// four cardinal cells exactly at distance r are always set, and so is the
// center.
func Circular(r int) Kernel {
	size := 2*r + 1
	k := Kernel{Radius: r, Size: size, Stencil: make([]bool, size*size)}
	set := func(dx, dy int) {
		i := (dy+r)*size + (dx + r)
		if !k.Stencil[i] {
			k.Stencil[i] = true
			k.Count++
		}
	}
	limit := float64(r) + circleMargin
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if math.Hypot(float64(dx), float64(dy)) <= limit {
				set(dx, dy)
			}
		}
	}
	// Cross-shaped axis completion and center.
	set(0, 0)
	set(r, 0)
	set(-r, 0)
	set(0, r)
	set(0, -r)
	return k
}

// At reports whether the stencil cell at offset (dx, dy) from center is set.
func (k Kernel) At(dx, dy int) bool {
	return k.Stencil[(dy+k.Radius)*k.Size+(dx+k.Radius)]
}
