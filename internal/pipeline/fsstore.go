package pipeline

import (
	"encoding/gob"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"golang.org/x/image/tiff"

	"wetland-mapper/internal/raster"
	"wetland-mapper/internal/vector"
)

// FSStore persists artifacts under Root. Integer grids are written as
// Gray16 TIFFs with ESRI world-file (.tfw), .prj and GDAL-style .aux.xml
// nodata sidecars; float grids as gob blobs (no library in the stack writes
// float rasters); vectors as shapefiles. Every write goes to a temporary
// file first and is renamed into place, sidecars before the file the Has*
// checks key on, so an aborted stage never leaves a partial artifact
// discoverable by later stages. Directories are created on demand.
type FSStore struct {
	Root   string
	CRS    string // stamped into .prj sidecars
	NoData int32  // nodata of external grids carrying no .aux.xml sidecar
}

// NewFSStore returns a file-backed store rooted at root.
func NewFSStore(root, crs string, nodata int32) *FSStore {
	return &FSStore{Root: root, CRS: crs, NoData: nodata}
}

func (s *FSStore) path(name string) string { return filepath.Join(s.Root, filepath.FromSlash(name)) }

func sidecar(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// LoadGrid reads a TIFF and its sidecars. The grid's nodata comes from the
// .aux.xml sidecar when present; external grids without one get the store's
// configured input nodata.
func (s *FSStore) LoadGrid(name string) (*raster.Grid, error) {
	fp := s.path(name)
	f, err := os.Open(fp)
	if err != nil {
		return nil, fmt.Errorf("load grid %s: %w", name, err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load grid %s: %w", name, err)
	}

	b := img.Bounds()
	def := raster.GridDef{CRS: s.CRS, CellSize: 1, Width: b.Dx(), Height: b.Dy()}
	if err := readWorldFile(sidecar(fp, ".tfw"), &def); err != nil {
		return nil, fmt.Errorf("load grid %s: %w", name, err)
	}
	if prj, err := os.ReadFile(sidecar(fp, ".prj")); err == nil {
		def.CRS = strings.TrimSpace(string(prj))
	}
	nodata := s.NoData
	if nd, ok, err := readAux(fp + ".aux.xml"); err != nil {
		return nil, fmt.Errorf("load grid %s: %w", name, err)
	} else if ok {
		nodata = nd
	}

	g := raster.NewGrid(def, nodata)
	for y := 0; y < def.Height; y++ {
		for x := 0; x < def.Width; x++ {
			c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			g.Set(x, y, int32(c.Y))
		}
	}
	return g, nil
}

// StoreGrid writes a TIFF with world, projection and nodata sidecars.
// Values must fit uint16. The sidecars land first and the TIFF is renamed
// into place last, so HasGrid only turns true for a complete artifact.
func (s *FSStore) StoreGrid(name string, g *raster.Grid) error {
	img := image.NewGray16(image.Rect(0, 0, g.Def.Width, g.Def.Height))
	for y := 0; y < g.Def.Height; y++ {
		for x := 0; x < g.Def.Width; x++ {
			v := g.At(x, y)
			if v < 0 || v > math.MaxUint16 {
				return fmt.Errorf("store grid %s: value %d at (%d,%d) out of uint16 range",
					name, v, x, y)
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}

	fp := s.path(name)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return fmt.Errorf("store grid %s: %w", name, err)
	}
	if err := writeWorldFile(sidecar(fp, ".tfw"), g.Def); err != nil {
		return fmt.Errorf("store grid %s: %w", name, err)
	}
	crs := g.Def.CRS
	if crs == "" {
		crs = s.CRS
	}
	err := writeAtomic(sidecar(fp, ".prj"), func(f *os.File) error {
		_, werr := f.WriteString(crs + "\n")
		return werr
	})
	if err != nil {
		return fmt.Errorf("store grid %s: %w", name, err)
	}
	if err := writeAux(fp+".aux.xml", g.NoData); err != nil {
		return fmt.Errorf("store grid %s: %w", name, err)
	}
	err = writeAtomic(fp, func(f *os.File) error {
		return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	})
	if err != nil {
		return fmt.Errorf("store grid %s: %w", name, err)
	}
	return nil
}

// floatBlob is the gob payload of a float grid.
type floatBlob struct {
	Def  raster.GridDef
	Data []float64
}

// LoadFloatGrid reads a gob-encoded float grid.
func (s *FSStore) LoadFloatGrid(name string) (*raster.FloatGrid, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("load float grid %s: %w", name, err)
	}
	defer f.Close()
	var blob floatBlob
	if err := gob.NewDecoder(f).Decode(&blob); err != nil {
		return nil, fmt.Errorf("load float grid %s: %w", name, err)
	}
	return &raster.FloatGrid{Def: blob.Def, Data: blob.Data}, nil
}

// StoreFloatGrid writes a gob-encoded float grid.
func (s *FSStore) StoreFloatGrid(name string, g *raster.FloatGrid) error {
	fp := s.path(name)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return fmt.Errorf("store float grid %s: %w", name, err)
	}
	err := writeAtomic(fp, func(f *os.File) error {
		return gob.NewEncoder(f).Encode(floatBlob{Def: g.Def, Data: g.Data})
	})
	if err != nil {
		return fmt.Errorf("store float grid %s: %w", name, err)
	}
	return nil
}

// HasGrid reports whether a grid artifact exists and is usable: a TIFF
// without its world file cannot be loaded and does not count.
func (s *FSStore) HasGrid(name string) bool {
	fp := s.path(name)
	if _, err := os.Stat(fp); err != nil {
		return false
	}
	ext := strings.ToLower(filepath.Ext(fp))
	if ext == ".tif" || ext == ".tiff" {
		if _, err := os.Stat(sidecar(fp, ".tfw")); err != nil {
			return false
		}
	}
	return true
}

// ListGrids returns the sorted TIFF names directly under dir.
func (s *FSStore) ListGrids(dir string) ([]string, error) {
	entries, err := os.ReadDir(s.path(dir))
	if err != nil {
		return nil, fmt.Errorf("list grids %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".tif" || ext == ".tiff" {
			names = append(names, dir+"/"+e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// shpPolyRow is the shapefile row layout: one polygon with its DN.
type shpPolyRow struct {
	geom.Polygon
	DN int
}

// LoadVectors reads a polygon shapefile.
func (s *FSStore) LoadVectors(name string) (vector.Collection, error) {
	fp := s.path(name)
	d, err := shp.NewDecoder(fp)
	if err != nil {
		return vector.Collection{}, fmt.Errorf("load vectors %s: %w", name, err)
	}
	defer d.Close()

	out := vector.Collection{CRS: readPrj(fp)}
	for {
		g, fields, more := d.DecodeRowFields("DN")
		if !more {
			break
		}
		// DBF attributes come back space-padded.
		dn, err := strconv.Atoi(strings.TrimSpace(fields["DN"]))
		if err != nil {
			return vector.Collection{}, fmt.Errorf("load vectors %s: DN %q: %w", name, fields["DN"], err)
		}
		switch gg := g.(type) {
		case geom.Polygon:
			out.Features = append(out.Features, vector.Feature{Geom: gg, DN: dn})
		case geom.Polygonal:
			for _, p := range gg.Polygons() {
				out.Features = append(out.Features, vector.Feature{Geom: p, DN: dn})
			}
		}
	}
	if err := d.Error(); err != nil {
		return vector.Collection{}, fmt.Errorf("load vectors %s: %w", name, err)
	}
	return out, nil
}

// StoreVectors writes a polygon shapefile with a DN attribute column.
func (s *FSStore) StoreVectors(name string, c vector.Collection) error {
	fp := s.path(name)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return fmt.Errorf("store vectors %s: %w", name, err)
	}
	tmp := sidecar(fp, ".tmp.shp")
	e, err := shp.NewEncoder(tmp, shpPolyRow{})
	if err != nil {
		return fmt.Errorf("store vectors %s: %w", name, err)
	}
	for _, f := range c.Features {
		if err := e.Encode(shpPolyRow{Polygon: f.Geom, DN: f.DN}); err != nil {
			e.Close()
			return fmt.Errorf("store vectors %s: %w", name, err)
		}
	}
	e.Close()

	crs := c.CRS
	if crs == "" {
		crs = s.CRS
	}
	err = writeAtomic(sidecar(fp, ".prj"), func(f *os.File) error {
		_, werr := f.WriteString(crs + "\n")
		return werr
	})
	if err != nil {
		return fmt.Errorf("store vectors %s: %w", name, err)
	}
	// The .shp goes last: HasVectors keys on it, so the artifact appears
	// only once its companions are in place.
	for _, ext := range []string{".shx", ".dbf", ".shp"} {
		if err := os.Rename(sidecar(tmp, ext), sidecar(fp, ext)); err != nil {
			return fmt.Errorf("store vectors %s: %w", name, err)
		}
	}
	return nil
}

// HasVectors reports whether a complete vector artifact exists: the .shp
// with its .shx and .dbf companions.
func (s *FSStore) HasVectors(name string) bool {
	fp := s.path(name)
	if _, err := os.Stat(fp); err != nil {
		return false
	}
	for _, ext := range []string{".shx", ".dbf"} {
		if _, err := os.Stat(sidecar(fp, ext)); err != nil {
			return false
		}
	}
	return true
}

// shpLineRow is the river-network row layout.
type shpLineRow struct {
	geom.LineString
	ID int
}

// LoadLines reads a line shapefile, flattening multi-part geometries.
func (s *FSStore) LoadLines(name string) ([]geom.LineString, string, error) {
	fp := s.path(name)
	d, err := shp.NewDecoder(fp)
	if err != nil {
		return nil, "", fmt.Errorf("load lines %s: %w", name, err)
	}
	defer d.Close()

	var lines []geom.LineString
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		switch gg := g.(type) {
		case geom.LineString:
			lines = append(lines, gg)
		case geom.MultiLineString:
			lines = append(lines, gg...)
		}
	}
	if err := d.Error(); err != nil {
		return nil, "", fmt.Errorf("load lines %s: %w", name, err)
	}
	return lines, readPrj(fp), nil
}

// StoreLines writes a line shapefile.
func (s *FSStore) StoreLines(name string, lines []geom.LineString, crs string) error {
	fp := s.path(name)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return fmt.Errorf("store lines %s: %w", name, err)
	}
	tmp := sidecar(fp, ".tmp.shp")
	e, err := shp.NewEncoder(tmp, shpLineRow{})
	if err != nil {
		return fmt.Errorf("store lines %s: %w", name, err)
	}
	for i, ls := range lines {
		if err := e.Encode(shpLineRow{LineString: ls, ID: i}); err != nil {
			e.Close()
			return fmt.Errorf("store lines %s: %w", name, err)
		}
	}
	e.Close()
	if crs == "" {
		crs = s.CRS
	}
	err = writeAtomic(sidecar(fp, ".prj"), func(f *os.File) error {
		_, werr := f.WriteString(crs + "\n")
		return werr
	})
	if err != nil {
		return fmt.Errorf("store lines %s: %w", name, err)
	}
	for _, ext := range []string{".shx", ".dbf", ".shp"} {
		if err := os.Rename(sidecar(tmp, ext), sidecar(fp, ext)); err != nil {
			return fmt.Errorf("store lines %s: %w", name, err)
		}
	}
	return nil
}

// writeAtomic writes through a temporary file and renames into place.
func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// writeWorldFile writes the six-line ESRI world file for a grid.
func writeWorldFile(path string, def raster.GridDef) error {
	return writeAtomic(path, func(f *os.File) error {
		cx, cy := def.CellCenter(0, 0)
		_, err := fmt.Fprintf(f, "%g\n%g\n%g\n%g\n%g\n%g\n",
			def.CellSize, def.Rotation, def.Rotation, -def.CellSize, cx, cy)
		return err
	})
}

// readWorldFile fills the affine part of a grid def from a world file.
func readWorldFile(path string, def *raster.GridDef) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fields := strings.Fields(string(raw))
	if len(fields) < 6 {
		return fmt.Errorf("world file %s: %d lines, want 6", path, len(fields))
	}
	vals := make([]float64, 6)
	for i, s := range fields[:6] {
		if vals[i], err = strconv.ParseFloat(s, 64); err != nil {
			return fmt.Errorf("world file %s: %w", path, err)
		}
	}
	def.CellSize = vals[0]
	def.Rotation = vals[1]
	def.OriginX = vals[4] - def.CellSize/2
	def.OriginY = vals[5] + def.CellSize/2
	return nil
}

// pamDataset mirrors the GDAL .aux.xml sidecar layout, carrying per-band
// nodata.
type pamDataset struct {
	XMLName xml.Name  `xml:"PAMDataset"`
	Bands   []pamBand `xml:"PAMRasterBand"`
}

type pamBand struct {
	Band        int     `xml:"band,attr"`
	NoDataValue *string `xml:"NoDataValue"`
}

// writeAux records a grid's nodata in a .aux.xml sidecar. A grid without
// nodata still gets a sidecar (with no NoDataValue element), so loads can
// tell "no nodata" apart from an external grid that never carried one.
func writeAux(path string, nodata int32) error {
	pam := pamDataset{Bands: []pamBand{{Band: 1}}}
	if nodata != raster.NoDataNone {
		v := strconv.Itoa(int(nodata))
		pam.Bands[0].NoDataValue = &v
	}
	return writeAtomic(path, func(f *os.File) error {
		enc := xml.NewEncoder(f)
		enc.Indent("", "  ")
		return enc.Encode(pam)
	})
}

// readAux returns the nodata recorded in a .aux.xml sidecar. ok is false
// when no sidecar exists; a sidecar without a NoDataValue element means the
// grid has none.
func readAux(path string) (nodata int32, ok bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false, nil
	}
	var pam pamDataset
	if err := xml.Unmarshal(raw, &pam); err != nil {
		return 0, false, fmt.Errorf("aux sidecar %s: %w", path, err)
	}
	for _, b := range pam.Bands {
		if b.NoDataValue != nil {
			// GDAL writes nodata as a float.
			v, err := strconv.ParseFloat(strings.TrimSpace(*b.NoDataValue), 64)
			if err != nil {
				return 0, false, fmt.Errorf("aux sidecar %s: %w", path, err)
			}
			return int32(v), true, nil
		}
	}
	return raster.NoDataNone, true, nil
}

// readPrj returns the CRS string from a .prj sidecar, empty when absent.
func readPrj(path string) string {
	raw, err := os.ReadFile(sidecar(path, ".prj"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
