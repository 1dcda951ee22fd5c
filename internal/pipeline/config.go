package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wetland-mapper/internal/classes"
	"wetland-mapper/internal/raster"
)

// Config is the immutable run configuration. Everything is required unless
// noted; Validate runs before any grid is processed and a bad partition or
// parameter stops the run. Stages receive the config explicitly — no stage
// reads ambient state.
type Config struct {
	// InputDir is the store-relative directory of annual categorical grids.
	InputDir string `yaml:"input_dir"`
	// RiverNetwork is the store-relative river line file.
	RiverNetwork string `yaml:"river_network"`
	// CRS identifies the output coordinate reference.
	CRS string `yaml:"crs"`
	// NoData is the input grids' nodata value, if any.
	NoData *int32 `yaml:"nodata"`

	// YearsClassified is T, the number of annual grids expected.
	YearsClassified int `yaml:"years_classified"`
	// YearsCovered and RunningDate are free-text traceability tags used in
	// artifact names.
	YearsCovered string `yaml:"years_covered"`
	RunningDate  string `yaml:"running_date"`
	// Prefix starts every artifact name.
	Prefix string `yaml:"prefix"`

	// MinWetlandSize removes first-pass clusters at or below this pixel count.
	MinWetlandSize int `yaml:"min_wetland_size"`
	// MaxWetlandHole fills first-pass holes at or below this pixel count.
	MaxWetlandHole int `yaml:"max_wetland_hole"`
	// KernelRadii is the ordered list of smoothing kernel radii.
	KernelRadii []int `yaml:"kernel_radii"`
	// PondKernelSize is the pond-specific recursive smoothing kernel radius.
	PondKernelSize int `yaml:"pond_kernel_size"`

	// FloodplainExtent is the far river-buffer distance (mean floodplain
	// extent); RiverSearchDistance the near one.
	FloodplainExtent    float64 `yaml:"floodplain_extent"`
	RiverSearchDistance float64 `yaml:"river_search_distance"`

	// WetlandClasses is the ordered wetland-class priority list; the first
	// entry is the pond class.
	WetlandClasses []int32 `yaml:"wetland_classes"`
	// NonWetlandClasses is the non-wetland list excluding the woody class.
	NonWetlandClasses []int32 `yaml:"non_wetland_classes"`
	// WoodyClass is the single woody land-cover class code.
	WoodyClass int32 `yaml:"woody_class"`
	// ArtificialClass names which wetland class is the artificial subtype.
	ArtificialClass int32 `yaml:"artificial_class"`

	// SubtypeMinCluster / SubtypeMaxHole are the subtype cleanup sizes.
	SubtypeMinCluster int `yaml:"subtype_min_cluster"`
	SubtypeMaxHole    int `yaml:"subtype_max_hole"`
	// WoodyMaxHole is the woody-specific hole-fill size.
	WoodyMaxHole int `yaml:"woody_max_hole"`
	// MergeHoleFill smooths seams between subtype masks in the unified
	// product.
	MergeHoleFill int `yaml:"merge_hole_fill"`
}

// Subtype cleanup defaults.
const (
	defaultSubtypeMinCluster = 10
	defaultSubtypeMaxHole    = 2000
	defaultWoodyMaxHole      = 10
	defaultMergeHoleFill     = 20
)

// LoadConfig reads and validates a YAML run configuration.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.SubtypeMinCluster == 0 {
		c.SubtypeMinCluster = defaultSubtypeMinCluster
	}
	if c.SubtypeMaxHole == 0 {
		c.SubtypeMaxHole = defaultSubtypeMaxHole
	}
	if c.WoodyMaxHole == 0 {
		c.WoodyMaxHole = defaultWoodyMaxHole
	}
	if c.MergeHoleFill == 0 {
		c.MergeHoleFill = defaultMergeHoleFill
	}
}

// Validate checks every invariant eagerly.
func (c Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input_dir is required")
	}
	if c.RiverNetwork == "" {
		return fmt.Errorf("river_network is required")
	}
	if c.YearsClassified <= 0 {
		return fmt.Errorf("years_classified must be positive: %w", raster.ErrEmptyInputSet)
	}
	if len(c.KernelRadii) == 0 {
		return fmt.Errorf("kernel_radii must not be empty")
	}
	for _, r := range c.KernelRadii {
		if r <= 0 {
			return fmt.Errorf("kernel radius %d must be positive", r)
		}
	}
	if c.PondKernelSize <= 0 {
		return fmt.Errorf("pond_kernel_size must be positive")
	}
	if c.MinWetlandSize < 0 || c.MaxWetlandHole < 0 {
		return fmt.Errorf("cluster/hole sizes must not be negative")
	}
	if c.RiverSearchDistance <= 0 || c.FloodplainExtent <= 0 {
		return fmt.Errorf("river buffer distances must be positive")
	}
	if err := c.Partition().Validate(); err != nil {
		return err
	}
	return nil
}

// Partition assembles the class partition from the configured lists.
func (c Config) Partition() classes.Partition {
	return classes.Partition{
		Wetland:    c.WetlandClasses,
		Woody:      c.WoodyClass,
		NonWetland: c.NonWetlandClasses,
		Artificial: c.ArtificialClass,
	}
}

// InputNoData returns the configured nodata value, or NoDataNone.
func (c Config) InputNoData() int32 {
	if c.NoData == nil {
		return raster.NoDataNone
	}
	return *c.NoData
}
