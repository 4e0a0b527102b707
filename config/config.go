// Package config provides configuration loading for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Population PopulationConfig `yaml:"population"`
	Genome     GenomeConfig     `yaml:"genome"`
	Actions    ActionsConfig    `yaml:"actions"`
	Selection  SelectionConfig  `yaml:"selection"`
	Sim        SimConfig        `yaml:"sim"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Render     RenderConfig     `yaml:"render"`
	Store      StoreConfig      `yaml:"store"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// Rect is a block of cells.
type Rect struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// WorldConfig holds grid parameters.
type WorldConfig struct {
	Dimension int           `yaml:"dimension"` // side length of the square grid
	Walls     []Rect        `yaml:"walls"`
	Terrain   TerrainConfig `yaml:"terrain"`
}

// TerrainConfig holds procedural obstacle parameters.
type TerrainConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Frequency   float64 `yaml:"frequency"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Threshold   float64 `yaml:"threshold"` // noise above this becomes wall
}

// PopulationConfig holds population and run length.
type PopulationConfig struct {
	Size               int `yaml:"size"`
	Generations        int `yaml:"generations"`
	StepsPerGeneration int `yaml:"steps_per_generation"`
}

// GenomeConfig holds gene engine parameters.
type GenomeConfig struct {
	Genes             int      `yaml:"genes"`
	MaxRelays         int      `yaml:"max_relays"`
	MutationRate      float64  `yaml:"mutation_rate"`
	ExactGeneCount    bool     `yaml:"exact_gene_count"`
	MutateActionTypes bool     `yaml:"mutate_action_types"`
	Activation        string   `yaml:"activation"`   // tanh | sigmoid
	ExecuteMode       string   `yaml:"execute_mode"` // blend | compelling
	Sensors           []string `yaml:"sensors"`      // empty = all
}

// ActionsConfig selects the action catalog.
type ActionsConfig struct {
	Movement []string `yaml:"movement"` // empty = all movement actions
	Bully    bool     `yaml:"bully"`
	Kill     bool     `yaml:"kill"`
	Defend   bool     `yaml:"defend"`
}

// SelectionConfig holds the survival predicate and stopping rule.
type SelectionConfig struct {
	BreedingZone     Rect    `yaml:"breeding_zone"`     // agents outside are culled each generation
	SuccessThreshold float64 `yaml:"success_threshold"` // survival ratio that ends the run
	KeepZoneClear    bool    `yaml:"keep_zone_clear"`   // no terrain walls inside the breeding zone
}

// SimConfig holds execution parameters.
type SimConfig struct {
	Seed              uint64 `yaml:"seed"`
	Workers           int    `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold int    `yaml:"parallel_threshold"` // below this many agents, run inline
}

// TelemetryConfig holds reporting parameters.
type TelemetryConfig struct {
	OutputDir string `yaml:"output_dir"` // empty = no files
	ReportTop int    `yaml:"report_top"` // phenotypes listed per report
	PerfEvery int    `yaml:"perf_every"` // generations between perf log lines
}

// RenderConfig holds frame export parameters.
type RenderConfig struct {
	Enabled bool `yaml:"enabled"`
	Scale   int  `yaml:"scale"` // output pixels per cell
	Every   int  `yaml:"every"` // steps between frames in a rendered generation
}

// StoreConfig holds run history parameters.
type StoreConfig struct {
	Path string `yaml:"path"` // sqlite file, empty = disabled
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	Cells            int     // dimension squared
	Density          float64 // population / cells
	BreedingZoneArea int
}

// Load reads configuration from a YAML file, merged over the embedded defaults.
// If path is empty, only the defaults are used.
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
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) computeDerived() {
	c.Derived.Cells = c.World.Dimension * c.World.Dimension
	if c.Derived.Cells > 0 {
		c.Derived.Density = float64(c.Population.Size) / float64(c.Derived.Cells)
	}
	z := c.Selection.BreedingZone
	c.Derived.BreedingZoneArea = z.W * z.H
}

// Validate reports inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	if c.World.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("world.dimension must be positive, got %d", c.World.Dimension))
	}
	if c.Population.Size <= 0 {
		errs = append(errs, fmt.Errorf("population.size must be positive, got %d", c.Population.Size))
	}
	if c.Population.Size > c.Derived.Cells {
		errs = append(errs, fmt.Errorf("population.size %d exceeds %d cells", c.Population.Size, c.Derived.Cells))
	}
	if c.Population.Generations <= 0 {
		errs = append(errs, fmt.Errorf("population.generations must be positive, got %d", c.Population.Generations))
	}
	if c.Population.StepsPerGeneration <= 0 {
		errs = append(errs, fmt.Errorf("population.steps_per_generation must be positive, got %d", c.Population.StepsPerGeneration))
	}
	if c.Genome.Genes <= 0 {
		errs = append(errs, fmt.Errorf("genome.genes must be positive, got %d", c.Genome.Genes))
	}
	if c.Genome.MaxRelays < 0 {
		errs = append(errs, fmt.Errorf("genome.max_relays must be >= 0, got %d", c.Genome.MaxRelays))
	}
	if t := c.Selection.SuccessThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("selection.success_threshold must be in (0,1], got %v", t))
	}
	if c.Derived.BreedingZoneArea <= 0 {
		errs = append(errs, errors.New("selection.breeding_zone must have positive area"))
	}
	if c.Render.Enabled && c.Telemetry.OutputDir == "" {
		errs = append(errs, errors.New("render.enabled requires telemetry.output_dir"))
	}
	return errors.Join(errs...)
}

// WriteYAML writes the current configuration to a file.
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
