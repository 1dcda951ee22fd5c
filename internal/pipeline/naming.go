package pipeline

import (
	"fmt"
	"path"
	"strings"
)

// Output directory suffixes, appended to the input directory name to form
// sibling directories.
const (
	DirBinary          = "_binary"
	DirReclass         = "_reclass"
	DirIntermediateTif = "_intermediate-tifs"
	DirIntermediateShp = "_intermediate-shapefiles"
	DirFinalTif        = "_final-tifs"
	DirFinalShp        = "_final-shapefiles"
)

// ArtifactName composes the output naming convention
// {prefix}{years_covered}_{stage-tag}{running_date}.{ext}.
func ArtifactName(prefix, years, tag, date, ext string) string {
	return fmt.Sprintf("%s%s_%s%s.%s", prefix, years, tag, date, ext)
}

// layout resolves store-relative artifact names for one run.
type layout struct {
	base   string // input directory name, the stem of every sibling dir
	prefix string
	years  string
	date   string
}

func newLayout(c Config) layout {
	return layout{
		base:   strings.TrimSuffix(c.InputDir, "/"),
		prefix: c.Prefix,
		years:  c.YearsCovered,
		date:   c.RunningDate,
	}
}

func (l layout) dir(suffix string) string { return l.base + suffix }

// artifact names a tagged product in the directory with the given suffix.
func (l layout) artifact(suffix, tag, ext string) string {
	return path.Join(l.dir(suffix), ArtifactName(l.prefix, l.years, tag, l.date, ext))
}

// perYear names a per-year derivative of an annual input grid.
func (l layout) perYear(suffix, inputName, tag string) string {
	stem := strings.TrimSuffix(path.Base(inputName), path.Ext(inputName))
	return path.Join(l.dir(suffix), stem+"_"+tag+".tif")
}

// buffer names a cached river buffer for one distance.
func (l layout) buffer(dist float64) string {
	return path.Join(l.dir(DirIntermediateShp), fmt.Sprintf("river_buffer_%g.shp", dist))
}
