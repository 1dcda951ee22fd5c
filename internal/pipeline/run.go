package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ctessum/geom"
	"github.com/rs/zerolog"

	"wetland-mapper/internal/classes"
	"wetland-mapper/internal/merge"
	"wetland-mapper/internal/morph"
	"wetland-mapper/internal/raster"
	"wetland-mapper/internal/river"
	"wetland-mapper/internal/subtype"
	"wetland-mapper/internal/vector"
)

// Runner executes the delineation stages in dependency order against a
// store. Every stage reads its inputs fresh from the store and persists its
// outputs before the next stage begins, so a run can be suspended and
// resumed at any stage boundary: a stage whose outputs all already exist is
// skipped unless Force is set. Cancellation is stage-granular.
type Runner struct {
	Cfg   Config
	Store Store
	Log   zerolog.Logger
	Force bool

	lay    layout
	inputs []string // annual grid names, discovered once
}

// stage is one resumable pipeline step.
type stage struct {
	name    string
	outputs []string
	run     func(context.Context) error
}

// Run validates the configuration and executes all stages.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Cfg.Validate(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	r.lay = newLayout(r.Cfg)

	var err error
	r.inputs, err = r.Store.ListGrids(r.Cfg.InputDir)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if len(r.inputs) == 0 {
		return fmt.Errorf("run: no annual grids in %s: %w", r.Cfg.InputDir, raster.ErrEmptyInputSet)
	}
	if len(r.inputs) != r.Cfg.YearsClassified {
		return fmt.Errorf("run: found %d annual grids, years_classified is %d",
			len(r.inputs), r.Cfg.YearsClassified)
	}

	for _, st := range r.stages() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !r.Force && r.done(st) {
			r.Log.Info().Str("stage", st.name).Msg("outputs exist, skipping")
			continue
		}
		start := time.Now()
		r.Log.Info().Str("stage", st.name).Msg("starting")
		if err := st.run(ctx); err != nil {
			return fmt.Errorf("stage %s: %w", st.name, err)
		}
		r.Log.Info().Str("stage", st.name).Dur("elapsed", time.Since(start)).Msg("finished")
	}
	return nil
}

// done reports whether every stage output already exists in the store.
func (r *Runner) done(st stage) bool {
	for _, out := range st.outputs {
		if !r.Store.HasGrid(out) && !r.Store.HasVectors(out) {
			return false
		}
	}
	return len(st.outputs) > 0
}

func (r *Runner) stages() []stage {
	l := r.lay
	return []stage{
		{"binarize", r.binaryNames(), r.stageBinarize},
		{"aggregate", []string{l.artifact(DirIntermediateTif, "sum", "tif"),
			l.artifact(DirIntermediateTif, "freq", "gob")}, r.stageAggregate},
		{"smooth", []string{l.artifact(DirIntermediateTif, "firstpass", "tif")}, r.stageSmooth},
		{"reclassify", r.reclassNames(), r.stageReclassify},
		{"modal", []string{l.artifact(DirIntermediateTif, "mode", "tif"),
			l.artifact(DirIntermediateTif, "mode-freq", "tif"),
			l.artifact(DirIntermediateTif, "mode-masked", "tif")}, r.stageModal},
		{"river-buffers", []string{l.buffer(r.Cfg.RiverSearchDistance),
			l.buffer(r.Cfg.FloodplainExtent),
			l.artifact(DirIntermediateTif, "river", "tif")}, r.stageBuffers},
		{"ponds", []string{l.artifact(DirIntermediateTif, "ponds", "tif"),
			l.artifact(DirIntermediateShp, "ponds", "shp")}, r.stagePonds},
		{"artificial", []string{l.artifact(DirIntermediateTif, "artificial", "tif"),
			l.artifact(DirIntermediateShp, "artificial", "shp")}, r.stageArtificial},
		{"woody", []string{l.artifact(DirIntermediateTif, "woody", "tif"),
			l.artifact(DirIntermediateShp, "woody", "shp")}, r.stageWoody},
		{"merge", []string{l.artifact(DirFinalTif, "wetlands", "tif"),
			l.artifact(DirFinalShp, "wetlands", "shp"),
			l.artifact(DirFinalTif, "wetland-types", "tif"),
			l.artifact(DirFinalShp, "wetland-types", "shp")}, r.stageMerge},
	}
}

func (r *Runner) binaryNames() []string {
	names := make([]string, len(r.inputs))
	for i, in := range r.inputs {
		names[i] = r.lay.perYear(DirBinary, in, "binary")
	}
	return names
}

func (r *Runner) reclassNames() []string {
	names := make([]string, len(r.inputs))
	for i, in := range r.inputs {
		names[i] = r.lay.perYear(DirReclass, in, "reclass")
	}
	return names
}

func (r *Runner) stageBinarize(context.Context) error {
	p := r.Cfg.Partition()
	bin, err := raster.NewBinarizer(p.Wetland, p.AllNonWetland())
	if err != nil {
		return err
	}
	for i, in := range r.inputs {
		g, err := r.Store.LoadGrid(in)
		if err != nil {
			return err
		}
		mask, err := bin.Apply(g)
		if err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}
		if err := r.Store.StoreGrid(r.binaryNames()[i], mask); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) stageAggregate(context.Context) error {
	masks := make([]*raster.Grid, len(r.inputs))
	for i, name := range r.binaryNames() {
		g, err := r.Store.LoadGrid(name)
		if err != nil {
			return err
		}
		masks[i] = g
	}
	sum, err := raster.Sum(masks)
	if err != nil {
		return err
	}
	freq, err := raster.Frequency(sum, r.Cfg.YearsClassified)
	if err != nil {
		return err
	}
	reportFrequency(r.Log, "aggregate", freq)
	if err := r.Store.StoreGrid(r.lay.artifact(DirIntermediateTif, "sum", "tif"), sum); err != nil {
		return err
	}
	return r.Store.StoreFloatGrid(r.lay.artifact(DirIntermediateTif, "freq", "gob"), freq)
}

func (r *Runner) stageSmooth(context.Context) error {
	sum, err := r.Store.LoadGrid(r.lay.artifact(DirIntermediateTif, "sum", "tif"))
	if err != nil {
		return err
	}
	s := morph.Smoother{
		Radii:        r.Cfg.KernelRadii,
		MinClusterPx: r.Cfg.MinWetlandSize,
		MaxHolePx:    r.Cfg.MaxWetlandHole,
	}
	mask, err := s.FirstPass(sum)
	if err != nil {
		return err
	}
	reportMask(r.Log, "smooth", mask)
	return r.Store.StoreGrid(r.lay.artifact(DirIntermediateTif, "firstpass", "tif"), mask)
}

func (r *Runner) stageReclassify(context.Context) error {
	p := r.Cfg.Partition()
	for i, in := range r.inputs {
		g, err := r.Store.LoadGrid(in)
		if err != nil {
			return err
		}
		rc, err := classes.ReclassGrid(g, p)
		if err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}
		if err := r.Store.StoreGrid(r.reclassNames()[i], rc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) stageModal(context.Context) error {
	stack := make([]*raster.Grid, len(r.inputs))
	for i, name := range r.reclassNames() {
		g, err := r.Store.LoadGrid(name)
		if err != nil {
			return err
		}
		stack[i] = g
	}
	mode, count, err := raster.Mode(stack)
	if err != nil {
		return err
	}
	firstPass, err := r.Store.LoadGrid(r.lay.artifact(DirIntermediateTif, "firstpass", "tif"))
	if err != nil {
		return err
	}
	masked, err := raster.ApplyMask(mode, firstPass)
	if err != nil {
		return err
	}
	if err := r.Store.StoreGrid(r.lay.artifact(DirIntermediateTif, "mode", "tif"), mode); err != nil {
		return err
	}
	if err := r.Store.StoreGrid(r.lay.artifact(DirIntermediateTif, "mode-freq", "tif"), count); err != nil {
		return err
	}
	return r.Store.StoreGrid(r.lay.artifact(DirIntermediateTif, "mode-masked", "tif"), masked)
}

// loadBuffers returns the cached near/far buffers, rebuilding whatever is
// missing. A lost cache entry is recoverable: it is recomputed, never fatal.
func (r *Runner) loadBuffers() (river.Buffers, error) {
	params := river.Params{NearDist: r.Cfg.RiverSearchDistance, FarDist: r.Cfg.FloodplainExtent}
	buf := river.Buffers{CRS: r.Cfg.CRS}

	load := func(name string) ([]geom.Polygon, bool) {
		if !r.Store.HasVectors(name) {
			return nil, false
		}
		c, err := r.Store.LoadVectors(name)
		if err != nil {
			r.Log.Warn().Err(err).Str("cache", name).Msg("buffer cache unreadable, recomputing")
			return nil, false
		}
		polys := make([]geom.Polygon, len(c.Features))
		for i, f := range c.Features {
			polys[i] = f.Geom
		}
		return polys, true
	}

	nearName := r.lay.buffer(params.NearDist)
	farName := r.lay.buffer(params.FarDist)
	near, okNear := load(nearName)
	far, okFar := load(farName)
	if okNear && okFar {
		buf.Near, buf.Far = near, far
		return buf, nil
	}

	lines, crs, err := r.Store.LoadLines(r.Cfg.RiverNetwork)
	if err != nil {
		return river.Buffers{}, err
	}
	if crs == "" {
		crs = r.Cfg.CRS
	}
	built, err := river.Build(lines, crs, params)
	if err != nil {
		return river.Buffers{}, err
	}
	if !okNear {
		if err := r.Store.StoreVectors(nearName, bufferCollection(built.Near, crs)); err != nil {
			return river.Buffers{}, err
		}
	} else {
		built.Near = near
	}
	if !okFar {
		if err := r.Store.StoreVectors(farName, bufferCollection(built.Far, crs)); err != nil {
			return river.Buffers{}, err
		}
	} else {
		built.Far = far
	}
	return built, nil
}

func bufferCollection(polys []geom.Polygon, crs string) vector.Collection {
	c := vector.Collection{CRS: crs, Features: make([]vector.Feature, len(polys))}
	for i, p := range polys {
		c.Features[i] = vector.Feature{Geom: p, DN: 1}
	}
	return c
}

func (r *Runner) stageBuffers(context.Context) error {
	buf, err := r.loadBuffers()
	if err != nil {
		return err
	}
	// The rasterized near buffer is the river mask the merger consumes.
	def, err := r.referenceDef()
	if err != nil {
		return err
	}
	riverMask, err := vector.Rasterize(bufferCollection(buf.Near, buf.CRS), def, 1)
	if err != nil {
		return err
	}
	return r.Store.StoreGrid(r.lay.artifact(DirIntermediateTif, "river", "tif"), riverMask)
}

// referenceDef is the shared output geometry, taken from the first-pass mask.
func (r *Runner) referenceDef() (raster.GridDef, error) {
	g, err := r.Store.LoadGrid(r.lay.artifact(DirIntermediateTif, "firstpass", "tif"))
	if err != nil {
		return raster.GridDef{}, err
	}
	return g.Def, nil
}

func (r *Runner) maskedMode() (*raster.Grid, error) {
	return r.Store.LoadGrid(r.lay.artifact(DirIntermediateTif, "mode-masked", "tif"))
}

func (r *Runner) storeMaskProducts(tag string, mask *raster.Grid) error {
	if err := r.Store.StoreGrid(r.lay.artifact(DirIntermediateTif, tag, "tif"), mask); err != nil {
		return err
	}
	polys, err := vector.Polygonize(mask, 1)
	if err != nil {
		return err
	}
	polys.CRS = r.Cfg.CRS
	return r.Store.StoreVectors(r.lay.artifact(DirIntermediateShp, tag, "shp"), polys)
}

func (r *Runner) stagePonds(context.Context) error {
	mode, err := r.maskedMode()
	if err != nil {
		return err
	}
	mask, err := subtype.ExtractPonds(mode, subtype.PondParams{
		Code:       r.Cfg.Partition().PondReclass(),
		MinCluster: r.Cfg.SubtypeMinCluster,
		MaxHole:    r.Cfg.SubtypeMaxHole,
		KernelSize: r.Cfg.PondKernelSize,
	})
	if err != nil {
		return err
	}
	reportMask(r.Log, "ponds", mask)
	return r.storeMaskProducts("ponds", mask)
}

func (r *Runner) stageArtificial(context.Context) error {
	mode, err := r.maskedMode()
	if err != nil {
		return err
	}
	mask, err := subtype.ExtractArtificial(mode, subtype.ArtificialParams{
		Code:       r.Cfg.Partition().ArtificialReclass(),
		MinCluster: r.Cfg.SubtypeMinCluster,
		MaxHole:    r.Cfg.SubtypeMaxHole,
	})
	if err != nil {
		return err
	}
	reportMask(r.Log, "artificial", mask)
	return r.storeMaskProducts("artificial", mask)
}

func (r *Runner) stageWoody(context.Context) error {
	// Woody candidates come from the unmasked mode grid.
	mode, err := r.Store.LoadGrid(r.lay.artifact(DirIntermediateTif, "mode", "tif"))
	if err != nil {
		return err
	}
	buf, err := r.loadBuffers()
	if err != nil {
		return err
	}
	mask, clipped, err := subtype.ExtractWoody(mode, buf, subtype.WoodyParams{
		Code:       r.Cfg.Partition().WoodyReclass(),
		MinCluster: r.Cfg.SubtypeMinCluster,
		MaxHole:    r.Cfg.WoodyMaxHole,
	})
	if err != nil {
		return err
	}
	reportMask(r.Log, "woody", mask)
	if err := r.Store.StoreGrid(r.lay.artifact(DirIntermediateTif, "woody", "tif"), mask); err != nil {
		return err
	}
	clipped.CRS = r.Cfg.CRS
	return r.Store.StoreVectors(r.lay.artifact(DirIntermediateShp, "woody", "shp"), clipped)
}

func (r *Runner) stageMerge(context.Context) error {
	loadMask := func(tag string) (*raster.Grid, error) {
		return r.Store.LoadGrid(r.lay.artifact(DirIntermediateTif, tag, "tif"))
	}
	in := merge.Inputs{}
	var err error
	if in.FirstPass, err = loadMask("firstpass"); err != nil {
		return err
	}
	if in.Ponds, err = loadMask("ponds"); err != nil {
		return err
	}
	if in.Artificial, err = loadMask("artificial"); err != nil {
		return err
	}
	if in.Woody, err = loadMask("woody"); err != nil {
		return err
	}
	if in.River, err = loadMask("river"); err != nil {
		return err
	}

	unified, err := merge.Unified(in, r.Cfg.MergeHoleFill)
	if err != nil {
		return err
	}
	reportMask(r.Log, "merge", unified)
	if err := r.Store.StoreGrid(r.lay.artifact(DirFinalTif, "wetlands", "tif"), unified); err != nil {
		return err
	}
	unifiedPolys, err := vector.Polygonize(unified, 1)
	if err != nil {
		return err
	}
	unifiedPolys.CRS = r.Cfg.CRS
	if err := r.Store.StoreVectors(r.lay.artifact(DirFinalShp, "wetlands", "shp"), unifiedPolys); err != nil {
		return err
	}

	diff, err := merge.Differentiated(unified, in)
	if err != nil {
		return err
	}
	if err := r.Store.StoreGrid(r.lay.artifact(DirFinalTif, "wetland-types", "tif"), diff); err != nil {
		return err
	}
	typed := vector.Collection{CRS: r.Cfg.CRS}
	for _, code := range []int32{merge.CodePond, merge.CodeWetland, merge.CodeArtificial, merge.CodeRiver} {
		polys, err := vector.Polygonize(diff, code)
		if err != nil {
			return err
		}
		typed.Features = append(typed.Features, polys.Features...)
	}
	return r.Store.StoreVectors(r.lay.artifact(DirFinalShp, "wetland-types", "shp"), typed)
}
