// Package config provides configuration loading and management for ventthirds.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"ventthirds/pkg/analysis"
	"ventthirds/pkg/provider"
	"ventthirds/pkg/thresholds"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Threshold calculation parameters
	Thresholds struct {
		// LowerFraction and UpperFraction locate the two splits in the sorted values
		LowerFraction float64 `yaml:"lowerFraction"`
		UpperFraction float64 `yaml:"upperFraction"`

		// MinimumDifference is forced between the two sides of a split that round together
		MinimumDifference float64 `yaml:"minimumDifference"`

		// Precision is the number of decimal places in the report
		Precision int `yaml:"precision"`

		// WarnLow and WarnHigh bound the expected display values
		WarnLow  float64 `yaml:"warnLow"`
		WarnHigh float64 `yaml:"warnHigh"`

		// ExcludeNonPositive drops values <= 0 before the split
		ExcludeNonPositive bool `yaml:"excludeNonPositive"`
	} `yaml:"thresholds"`

	// Image parameters
	Image struct {
		// SliceDir contains the 2D slices of the image, one per z position
		SliceDir string `yaml:"sliceDir"`

		// RegisteredDir names a second, registered image. Leave empty.
		RegisteredDir string `yaml:"registeredDir,omitempty"`

		// Origin is the world position of the first voxel in mm (x, y, z)
		Origin []float64 `yaml:"origin"`

		// Spacing is the voxel size in mm (x, y, z)
		Spacing []float64 `yaml:"spacing"`

		// Direction is the row-major 3x3 direction cosine matrix. Empty means identity.
		Direction []float64 `yaml:"direction,omitempty"`

		// Slope and Intercept map raw samples to display values
		Slope     float64 `yaml:"slope"`
		Intercept float64 `yaml:"intercept"`

		// PaddingValue marks raw samples with no measurement
		PaddingValue *float64 `yaml:"paddingValue,omitempty"`
	} `yaml:"image"`

	// Structure parameters
	Structure struct {
		// MeshFile is the STL surface of the structure
		MeshFile string `yaml:"meshFile"`

		// Name is shown in the report. Defaults to the mesh file name.
		Name string `yaml:"name,omitempty"`
	} `yaml:"structure"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// BandSlicesDir, when set, receives PNG slices of the band map
		BandSlicesDir string `yaml:"bandSlicesDir,omitempty"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default threshold parameters
	t := thresholds.DefaultParams()
	cfg.Thresholds.LowerFraction = t.LowerFraction
	cfg.Thresholds.UpperFraction = t.UpperFraction
	cfg.Thresholds.MinimumDifference = t.MinimumDifference
	cfg.Thresholds.Precision = t.Precision
	cfg.Thresholds.WarnLow = t.WarnLow
	cfg.Thresholds.WarnHigh = t.WarnHigh
	cfg.Thresholds.ExcludeNonPositive = true

	// Set default image parameters
	cfg.Image.Origin = []float64{0, 0, 0}
	cfg.Image.Spacing = []float64{1, 1, 1}
	cfg.Image.Slope = 1

	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// Validate checks the threshold parameters and the shape of the image geometry
func (c *Config) Validate() error {
	if err := c.ThresholdParams().Validate(); err != nil {
		return err
	}
	if len(c.Image.Origin) != 3 {
		return fmt.Errorf("image.origin needs 3 values, got %d", len(c.Image.Origin))
	}
	if len(c.Image.Spacing) != 3 {
		return fmt.Errorf("image.spacing needs 3 values, got %d", len(c.Image.Spacing))
	}
	for i, v := range c.Image.Spacing {
		if v == 0 || math.IsNaN(v) {
			return fmt.Errorf("image.spacing[%d] must be non-zero, got %g", i, v)
		}
	}
	if n := len(c.Image.Direction); n != 0 && n != 9 {
		return fmt.Errorf("image.direction needs 9 values, got %d", n)
	}
	return nil
}

// ThresholdParams returns the threshold section as thresholds.Params
func (c *Config) ThresholdParams() thresholds.Params {
	return thresholds.Params{
		LowerFraction:     c.Thresholds.LowerFraction,
		UpperFraction:     c.Thresholds.UpperFraction,
		MinimumDifference: c.Thresholds.MinimumDifference,
		Precision:         c.Thresholds.Precision,
		WarnLow:           c.Thresholds.WarnLow,
		WarnHigh:          c.Thresholds.WarnHigh,
	}
}

// AnalysisParams returns the parameters of one analysis run
func (c *Config) AnalysisParams() analysis.Params {
	return analysis.Params{
		Thresholds:         c.ThresholdParams(),
		ExcludeNonPositive: c.Thresholds.ExcludeNonPositive,
		Verbose:            c.Output.Verbose,
	}
}

// FileOptions returns where to load the image and structure from. Call
// Validate first; short vectors are treated as zero.
func (c *Config) FileOptions() provider.FileOptions {
	var direction []float64
	if len(c.Image.Direction) > 0 {
		direction = c.Image.Direction
	}
	return provider.FileOptions{
		SliceDir:      c.Image.SliceDir,
		RegisteredDir: c.Image.RegisteredDir,
		Origin:        vec(c.Image.Origin),
		Spacing:       vec(c.Image.Spacing),
		Direction:     direction,
		Slope:         c.Image.Slope,
		Intercept:     c.Image.Intercept,
		PaddingValue:  c.Image.PaddingValue,
		MeshFile:      c.Structure.MeshFile,
		StructureName: c.Structure.Name,
	}
}

func vec(v []float64) r3.Vec {
	if len(v) != 3 {
		return r3.Vec{}
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
