package pipeline

import (
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"wetland-mapper/internal/morph"
	"wetland-mapper/internal/raster"
)

// reportMask logs foreground extent and component-size statistics for a
// binary stage product.
func reportMask(log zerolog.Logger, stage string, mask *raster.Grid) {
	_, sizes := morph.Label(mask, 1, morph.Conn4)
	ev := log.Info().
		Str("stage", stage).
		Int("foreground_px", mask.CountValue(1)).
		Int("components", len(sizes))
	if len(sizes) > 0 {
		fs := make([]float64, len(sizes))
		for i, s := range sizes {
			fs[i] = float64(s)
		}
		sort.Float64s(fs)
		ev = ev.
			Float64("mean_component_px", stat.Mean(fs, nil)).
			Float64("median_component_px", stat.Quantile(0.5, stat.Empirical, fs, nil))
	}
	ev.Msg("mask summary")
}

// reportFrequency logs the mean wetland frequency.
func reportFrequency(log zerolog.Logger, stage string, freq *raster.FloatGrid) {
	log.Info().
		Str("stage", stage).
		Float64("mean_frequency", stat.Mean(freq.Data, nil)).
		Msg("frequency summary")
}
