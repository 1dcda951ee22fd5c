package raster

import "fmt"

// Binarizer maps a categorical land-cover grid to a wetland/non-wetland
// mask: wetland classes become 1, non-wetland classes become 0, nodata
// passes through. The two class sets must be disjoint; that is validated
// once at construction, before any grid is touched.
type Binarizer struct {
	wetland    map[int32]struct{}
	nonWetland map[int32]struct{}
}

// NewBinarizer validates the class partition and returns a binarizer.
func NewBinarizer(wetland, nonWetland []int32) (*Binarizer, error) {
	b := &Binarizer{
		wetland:    make(map[int32]struct{}, len(wetland)),
		nonWetland: make(map[int32]struct{}, len(nonWetland)),
	}
	for _, c := range wetland {
		b.wetland[c] = struct{}{}
	}
	for _, c := range nonWetland {
		if _, ok := b.wetland[c]; ok {
			return nil, fmt.Errorf("binarizer: class %d in both partitions: %w",
				c, ErrUnsupportedClassDomain)
		}
		b.nonWetland[c] = struct{}{}
	}
	if len(b.wetland) == 0 || len(b.nonWetland) == 0 {
		return nil, fmt.Errorf("binarizer: empty class partition: %w", ErrUnsupportedClassDomain)
	}
	return b, nil
}

// Apply produces the binary mask for one year's categorical grid. A cell
// value outside both partitions that is not nodata is fatal.
func (b *Binarizer) Apply(g *Grid) (*Grid, error) {
	out := NewGrid(g.Def, g.NoData)
	for i, v := range g.Data {
		switch {
		case g.IsNoData(v):
			out.Data[i] = v
		default:
			if _, ok := b.wetland[v]; ok {
				out.Data[i] = 1
				continue
			}
			if _, ok := b.nonWetland[v]; ok {
				out.Data[i] = 0
				continue
			}
			return nil, fmt.Errorf("binarize: class %d at cell (%d,%d): %w",
				v, i%g.Def.Width, i/g.Def.Width, ErrUnsupportedClassDomain)
		}
	}
	return out, nil
}
