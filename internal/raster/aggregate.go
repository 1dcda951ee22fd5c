package raster

import "fmt"

// Sum stacks T binary masks into a pixelwise count grid. Nodata cells
// contribute nothing. All masks must share geometry.
func Sum(masks []*Grid) (*Grid, error) {
	if len(masks) == 0 {
		return nil, fmt.Errorf("temporal sum: %w", ErrEmptyInputSet)
	}
	if err := CheckSameGeometry("temporal sum", masks...); err != nil {
		return nil, err
	}
	for i, m := range masks {
		if err := CheckBinary(fmt.Sprintf("temporal sum: mask %d", i), m); err != nil {
			return nil, err
		}
	}
	out := NewGrid(masks[0].Def, NoDataNone)
	for _, m := range masks {
		for i, v := range m.Data {
			if v == 1 && !m.IsNoData(v) {
				out.Data[i]++
			}
		}
	}
	return out, nil
}

// Frequency divides a sum grid by the number of classified years, giving
// per-cell wetland frequency in [0, 1].
func Frequency(sum *Grid, years int) (*FloatGrid, error) {
	if years <= 0 {
		return nil, fmt.Errorf("frequency: %d years: %w", years, ErrEmptyInputSet)
	}
	out := NewFloatGrid(sum.Def)
	t := float64(years)
	for i, v := range sum.Data {
		out.Data[i] = float64(v) / t
	}
	return out, nil
}
