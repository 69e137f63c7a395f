// Package config provides configuration loading and access for a succession run.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all run configuration parameters.
type Config struct {
	Succession        SuccessionConfig  `yaml:"succession" toml:"succession"`
	Inputs            InputsConfig      `yaml:"inputs" toml:"inputs"`
	Ecoregions        []EcoregionConfig `yaml:"ecoregions" toml:"ecoregions"`
	SufficientLight   []LightConfig     `yaml:"sufficient_light" toml:"sufficient_light"`
	FireReductions    []FireConfig      `yaml:"fire_reductions" toml:"fire_reductions"`
	HarvestReductions []HarvestConfig   `yaml:"harvest_reductions" toml:"harvest_reductions"`
	Output            OutputConfig      `yaml:"output" toml:"output"`
	Run               RunConfig         `yaml:"run" toml:"run"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-" toml:"-"`
}

// SuccessionConfig holds the succession extension parameters.
type SuccessionConfig struct {
	Timestep      int  `yaml:"timestep" toml:"timestep"`             // years per succession step
	SpinupCohorts bool `yaml:"spinup_cohorts" toml:"spinup_cohorts"` // derive initial biomass by spin-up
	CalibrateMode bool `yaml:"calibrate_mode" toml:"calibrate_mode"` // per-cohort debug traces
}

// InputsConfig names the input tables and rasters. Relative paths are
// resolved against the config file's directory.
type InputsConfig struct {
	Species               string `yaml:"species" toml:"species"`
	SpeciesEcoregion      string `yaml:"species_ecoregion" toml:"species_ecoregion"`
	InitialCommunities    string `yaml:"initial_communities" toml:"initial_communities"`
	InitialCommunitiesMap string `yaml:"initial_communities_map" toml:"initial_communities_map"`
	EcoregionsMap         string `yaml:"ecoregions_map" toml:"ecoregions_map"`
}

// EcoregionConfig defines one ecoregion.
type EcoregionConfig struct {
	Name    string  `yaml:"name" toml:"name"`
	MapCode int     `yaml:"map_code" toml:"map_code"`
	Active  bool    `yaml:"active" toml:"active"`
	AET     float64 `yaml:"aet" toml:"aet"` // mm

	// MinRelativeBiomass lists the thresholds for shade classes 1..5.
	MinRelativeBiomass []float64 `yaml:"min_relative_biomass" toml:"min_relative_biomass"`
}

// LightConfig is one sufficient-light row: the probability of enough light
// at site shade classes 0..5 for a shade tolerance class.
type LightConfig struct {
	ShadeTolerance int       `yaml:"shade_tolerance" toml:"shade_tolerance"`
	Probabilities  []float64 `yaml:"probabilities" toml:"probabilities"`
}

// FireConfig gives the dead-pool reductions for a fire severity.
type FireConfig struct {
	Severity     int     `yaml:"severity" toml:"severity"`
	CoarseLitter float64 `yaml:"coarse_litter" toml:"coarse_litter"`
	FineLitter   float64 `yaml:"fine_litter" toml:"fine_litter"`
}

// HarvestConfig gives the reductions for a harvest prescription. A name
// ending in '*' is a template matching prescriptions by prefix.
type HarvestConfig struct {
	Prescription string  `yaml:"prescription" toml:"prescription"`
	CoarseLitter float64 `yaml:"coarse_litter" toml:"coarse_litter"`
	FineLitter   float64 `yaml:"fine_litter" toml:"fine_litter"`
	CohortWood   float64 `yaml:"cohort_wood" toml:"cohort_wood"`
	CohortLeaf   float64 `yaml:"cohort_leaf" toml:"cohort_leaf"`
}

// OutputConfig holds output settings.
type OutputConfig struct {
	Dir        string `yaml:"dir" toml:"dir"`
	SummaryLog string `yaml:"summary_log" toml:"summary_log"`

	// ANPPMaps writes a 16-bit grayscale PNG of AG-NPP per timestep;
	// Heatmap adds a plotted preview of the same grid.
	ANPPMaps bool `yaml:"anpp_maps" toml:"anpp_maps"`
	Heatmap  bool `yaml:"heatmap" toml:"heatmap"`

	// Snapshot writes the effective config and a JSON snapshot of every
	// site at the end of the run to the output dir.
	Snapshot bool `yaml:"snapshot" toml:"snapshot"`
}

// RunConfig holds run control settings.
type RunConfig struct {
	Duration int    `yaml:"duration" toml:"duration"` // years
	Seed     uint64 `yaml:"seed" toml:"seed"`
	Workers  int    `yaml:"workers" toml:"workers"` // 0 uses GOMAXPROCS
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	BaseDir string // directory relative input paths are resolved against
	Workers int    // effective worker count
	Steps   int    // succession steps in the run
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML or TOML file, merging with embedded
// defaults. The format follows the file extension. If path is empty, only
// embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Fields absent from the file keep their defaults.
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		cfg.Derived.BaseDir = filepath.Dir(path)
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config and checks
// the run settings.
func (c *Config) computeDerived() error {
	if c.Derived.BaseDir == "" {
		c.Derived.BaseDir = "."
	}
	if c.Succession.Timestep < 1 {
		return fmt.Errorf("config: succession timestep %d < 1", c.Succession.Timestep)
	}
	if c.Run.Duration < 0 {
		return fmt.Errorf("config: run duration %d < 0", c.Run.Duration)
	}

	c.Derived.Workers = c.Run.Workers
	if c.Derived.Workers <= 0 {
		c.Derived.Workers = runtime.GOMAXPROCS(0)
	}
	c.Derived.Steps = c.Run.Duration / c.Succession.Timestep
	return nil
}

// Path resolves an input path against the config file's directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Derived.BaseDir, p)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
