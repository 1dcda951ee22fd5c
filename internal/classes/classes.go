// Package classes defines the land-cover class partition and the tie-break
// reclassification applied before modal aggregation.
//
// A statistical mode that breaks ties by smallest value would otherwise
// favor whichever non-wetland class happens to carry the smallest raw code.
// Reclassifying wetland and woody codes into a band strictly below every
// non-wetland code makes the tie-break resolve toward wetland classes.
package classes

import (
	"fmt"

	"wetland-mapper/internal/raster"
)

// Category identifies which side of the partition a class code falls on.
type Category int

const (
	// Wetland classes are totally ordered by priority.
	Wetland Category = iota
	// Woody is the single woody land-cover class.
	Woody
	// NonWetland classes are the remaining codes, woody excluded.
	NonWetland
)

// Reclassification bands. Wetland codes map into [WetlandBase, ...],
// the woody class to the next value after the last wetland band, and
// non-wetland codes into [NonWetlandBase, ...). Every favored-on-tie code is
// therefore strictly below NonWetlandBase.
const (
	WetlandBase    int32 = 100
	NonWetlandBase int32 = 200
)

// Partition is the configured three-way split of the class domain:
// wetland classes ordered by priority, exactly one woody class, and the
// remaining non-wetland classes in configured order. Artificial names which
// wetland class is the artificial-wetland subtype; the pond subtype is the
// highest-priority wetland class by convention.
type Partition struct {
	Wetland    []int32
	Woody      int32
	NonWetland []int32 // excludes the woody class
	Artificial int32
}

// Validate checks the partition invariants eagerly, before any grid is
// processed: non-empty disjoint sets, woody outside both lists, and the
// artificial code present among the wetland classes. The wetland band must
// also stay below NonWetlandBase.
func (p Partition) Validate() error {
	if len(p.Wetland) == 0 {
		return fmt.Errorf("partition: no wetland classes: %w", raster.ErrUnsupportedClassDomain)
	}
	if int32(len(p.Wetland))+1 > NonWetlandBase-WetlandBase {
		return fmt.Errorf("partition: %d wetland classes overflow the reclass band: %w",
			len(p.Wetland), raster.ErrUnsupportedClassDomain)
	}
	seen := make(map[int32]Category, len(p.Wetland)+len(p.NonWetland)+1)
	for _, c := range p.Wetland {
		if _, ok := seen[c]; ok {
			return fmt.Errorf("partition: duplicate class %d: %w", c, raster.ErrUnsupportedClassDomain)
		}
		seen[c] = Wetland
	}
	if _, ok := seen[p.Woody]; ok {
		return fmt.Errorf("partition: woody class %d overlaps wetland list: %w",
			p.Woody, raster.ErrUnsupportedClassDomain)
	}
	seen[p.Woody] = Woody
	for _, c := range p.NonWetland {
		if cat, ok := seen[c]; ok {
			return fmt.Errorf("partition: class %d already categorized as %d: %w",
				c, cat, raster.ErrUnsupportedClassDomain)
		}
		seen[c] = NonWetland
	}
	if cat, ok := seen[p.Artificial]; !ok || cat != Wetland {
		return fmt.Errorf("partition: artificial class %d is not a wetland class: %w",
			p.Artificial, raster.ErrUnsupportedClassDomain)
	}
	return nil
}

// Category returns the category of a raw class code.
func (p Partition) Category(code int32) (Category, bool) {
	for _, c := range p.Wetland {
		if c == code {
			return Wetland, true
		}
	}
	if code == p.Woody {
		return Woody, true
	}
	for _, c := range p.NonWetland {
		if c == code {
			return NonWetland, true
		}
	}
	return 0, false
}

// Reclass maps a raw class code into its tie-break band.
func (p Partition) Reclass(code int32) (int32, error) {
	for i, c := range p.Wetland {
		if c == code {
			return WetlandBase + int32(i), nil
		}
	}
	if code == p.Woody {
		return p.WoodyReclass(), nil
	}
	for j, c := range p.NonWetland {
		if c == code {
			return NonWetlandBase + int32(j), nil
		}
	}
	return 0, fmt.Errorf("reclass: class %d: %w", code, raster.ErrUnsupportedClassDomain)
}

// WoodyReclass returns the reclassified woody code: the first value after
// the wetland band.
func (p Partition) WoodyReclass() int32 {
	return WetlandBase + int32(len(p.Wetland))
}

// PondReclass returns the reclassified code of the pond subtype (the
// highest-priority wetland class).
func (p Partition) PondReclass() int32 { return WetlandBase }

// ArtificialReclass returns the reclassified code of the artificial-wetland
// subtype.
func (p Partition) ArtificialReclass() int32 {
	for i, c := range p.Wetland {
		if c == p.Artificial {
			return WetlandBase + int32(i)
		}
	}
	// Validate guarantees membership; unreachable after validation.
	return -1
}

// AllNonWetland returns the full non-wetland list, woody included, as the
// binarizer's zero set.
func (p Partition) AllNonWetland() []int32 {
	out := make([]int32, 0, len(p.NonWetland)+1)
	out = append(out, p.NonWetland...)
	out = append(out, p.Woody)
	return out
}

// ReclassGrid remaps one year's categorical grid into tie-break bands.
// Nodata passes through; any other unknown code is fatal.
func ReclassGrid(g *raster.Grid, p Partition) (*raster.Grid, error) {
	out := raster.NewGrid(g.Def, g.NoData)
	for i, v := range g.Data {
		if g.IsNoData(v) {
			out.Data[i] = v
			continue
		}
		r, err := p.Reclass(v)
		if err != nil {
			return nil, fmt.Errorf("cell (%d,%d): %w", i%g.Def.Width, i/g.Def.Width, err)
		}
		out.Data[i] = r
	}
	return out, nil
}
