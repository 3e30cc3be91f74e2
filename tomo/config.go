package tomo

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// AlgorithmConfig holds the inversion parameters. All of
// them are fixed for the lifetime of a run.
type AlgorithmConfig struct {
	// NIter is the number of iterations the caller is
	// expected to run. The engine itself never checks it.
	NIter int `yaml:"niter" validate:"gt=0"`

	// NReal is the number of stochastic realizations per
	// phase per iteration.
	NReal int `yaml:"nreal" validate:"gt=0"`

	// NVoronoi is the number of cells in each random
	// spatial parameterization.
	NVoronoi int `yaml:"nvoronoi" validate:"gt=0"`

	// NArrival is the number of arrivals sampled for each
	// realization.
	NArrival int `yaml:"narrival" validate:"gt=0"`

	// AdaptiveVoronoi seeds cells along sampled ray paths
	// instead of uniformly at random.
	AdaptiveVoronoi bool `yaml:"adaptive_voronoi_cells"`

	// OutlierRemovalFactor is the Tukey fence multiplier
	// applied to the residual distribution before
	// sampling.
	OutlierRemovalFactor float64 `yaml:"outlier_removal_factor" validate:"gt=0"`

	// Damped least-squares controls, passed straight to
	// the solver.
	Damp    float64 `yaml:"damp" validate:"gte=0"`
	ATol    float64 `yaml:"atol" validate:"gte=0"`
	BTol    float64 `yaml:"btol" validate:"gte=0"`
	ConLim  float64 `yaml:"conlim" validate:"gte=0"`
	MaxIter int     `yaml:"maxiter" validate:"gt=0"`
}

// LocateConfig holds the hypocenter search step sizes.
type LocateConfig struct {
	DLat   float64 `yaml:"dlat" validate:"gt=0"`
	DLon   float64 `yaml:"dlon" validate:"gt=0"`
	DDepth float64 `yaml:"ddepth" validate:"gt=0"`
	DTime  float64 `yaml:"dtime" validate:"gt=0"`
}

// WorkspaceConfig names the directories the run persists
// state into.
type WorkspaceConfig struct {
	TraveltimeDir string `yaml:"traveltime_dir"`
	OutputDir     string `yaml:"output_dir"`
}

// Config is the full, immutable run configuration. It is
// loaded once on the root process and broadcast; it must
// never be mutated afterwards.
type Config struct {
	Algorithm AlgorithmConfig `yaml:"algorithm" validate:"required"`
	Locate    LocateConfig    `yaml:"locate" validate:"required"`
	Workspace WorkspaceConfig `yaml:"workspace"`
}

// LoadConfig parses and validates a YAML configuration
// file. Missing or malformed parameters are fatal.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig parses and validates raw YAML configuration
// bytes.
func ParseConfig(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return &cfg, nil
}
