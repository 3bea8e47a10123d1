// Package config provides configuration loading and management for dogblob.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/mdabdk/Image-Blob-Detection/pkg/detection"
	"github.com/mdabdk/Image-Blob-Detection/pkg/threshold"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Detection parameters
	Detection struct {
		// Octaves is the number of octaves in the scale-space pyramid
		Octaves int `yaml:"octaves"`

		// DoGLayers is the number of Difference-of-Gaussian layers per octave
		DoGLayers int `yaml:"dogLayers"`

		// SigmaInit is the standard deviation of the first layer of each octave
		SigmaInit float64 `yaml:"sigmaInit"`

		// KScale is the ratio between the sigmas of adjacent layers
		KScale float64 `yaml:"kScale"`

		// Threshold names the threshold strategy: mean, otsu or yen
		Threshold string `yaml:"threshold"`
	} `yaml:"detection"`

	// Processing parameters
	Processing struct {
		// NumWorkers bounds the goroutines used by each pipeline stage
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// AnnotatedImage is where the image with blob circles is written.
		// Empty disables it
		AnnotatedImage string `yaml:"annotatedImage"`

		// BlobsFile is where the blob records are written as YAML.
		// Empty disables it
		BlobsFile string `yaml:"blobsFile"`

		// CircleThickness is the stroke width of the drawn circles in pixels
		CircleThickness int `yaml:"circleThickness"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Detection.Octaves = 3
	cfg.Detection.DoGLayers = 4
	cfg.Detection.SigmaInit = 1.6
	cfg.Detection.KScale = math.Sqrt2
	cfg.Detection.Threshold = string(threshold.Yen)

	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default

	cfg.Output.Verbose = false
	cfg.Output.CircleThickness = 2

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

	// Keys missing from the file keep their defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
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
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate reports the first out-of-range setting, wrapped in
// ErrInvalidConfig.
func (c *Config) Validate() error {
	d := c.Detection
	switch {
	case d.Octaves < 1:
		return fmt.Errorf("%w: detection.octaves must be at least 1, got %d", ErrInvalidConfig, d.Octaves)
	case d.DoGLayers < 2:
		return fmt.Errorf("%w: detection.dogLayers must be at least 2, got %d", ErrInvalidConfig, d.DoGLayers)
	case !(d.SigmaInit > 0):
		return fmt.Errorf("%w: detection.sigmaInit must be positive, got %v", ErrInvalidConfig, d.SigmaInit)
	case !(d.KScale > 1):
		return fmt.Errorf("%w: detection.kScale must be greater than 1, got %v", ErrInvalidConfig, d.KScale)
	case c.Processing.NumWorkers < 1:
		return fmt.Errorf("%w: processing.numWorkers must be at least 1, got %d", ErrInvalidConfig, c.Processing.NumWorkers)
	case c.Output.CircleThickness < 1:
		return fmt.Errorf("%w: output.circleThickness must be at least 1, got %d", ErrInvalidConfig, c.Output.CircleThickness)
	}
	if _, err := threshold.Parse(d.Threshold); err != nil {
		return fmt.Errorf("%w: detection.threshold: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DetectionParams converts the configuration into pipeline parameters.
func (c *Config) DetectionParams() (detection.Params, error) {
	if err := c.Validate(); err != nil {
		return detection.Params{}, err
	}
	method, _ := threshold.Parse(c.Detection.Threshold)

	return detection.Params{
		Octaves:   c.Detection.Octaves,
		DoGLayers: c.Detection.DoGLayers,
		SigmaInit: c.Detection.SigmaInit,
		KScale:    c.Detection.KScale,
		Threshold: method,
		Workers:   c.Processing.NumWorkers,
	}, nil
}
