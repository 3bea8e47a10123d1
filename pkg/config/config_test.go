package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdabdk/Image-Blob-Detection/pkg/threshold"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Detection.Octaves != 3 || cfg.Detection.DoGLayers != 4 {
		t.Errorf("Unexpected pyramid defaults: %d octaves, %d layers", cfg.Detection.Octaves, cfg.Detection.DoGLayers)
	}
	if cfg.Detection.SigmaInit != 1.6 || cfg.Detection.KScale != math.Sqrt2 {
		t.Errorf("Unexpected scale defaults: sigma %v, k %v", cfg.Detection.SigmaInit, cfg.Detection.KScale)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config is invalid: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Detection.Threshold != "yen" {
		t.Errorf("Expected default threshold yen, got %q", cfg.Detection.Threshold)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Detection.Octaves = 5
	cfg.Detection.Threshold = "otsu"
	cfg.Output.BlobsFile = "blobs.yaml"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Detection.Octaves != 5 || loaded.Detection.Threshold != "otsu" || loaded.Output.BlobsFile != "blobs.yaml" {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("detection:\n  octaves: 2\n  threshold: Mean\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Detection.Octaves != 2 || cfg.Detection.DoGLayers != 4 || cfg.Output.CircleThickness != 2 {
		t.Errorf("Unexpected merged config: %+v", cfg)
	}

	params, err := cfg.DetectionParams()
	if err != nil {
		t.Fatalf("DetectionParams failed: %v", err)
	}
	if params.Threshold != threshold.Mean || params.Octaves != 2 || params.SigmaInit != 1.6 {
		t.Errorf("Unexpected params: %+v", params)
	}
}

func TestMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("detection: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name string
		fn   func(c *Config)
	}{
		{"octaves", func(c *Config) { c.Detection.Octaves = 0 }},
		{"dog layers", func(c *Config) { c.Detection.DoGLayers = 1 }},
		{"sigma", func(c *Config) { c.Detection.SigmaInit = -1 }},
		{"k", func(c *Config) { c.Detection.KScale = 0.5 }},
		{"workers", func(c *Config) { c.Processing.NumWorkers = 0 }},
		{"thickness", func(c *Config) { c.Output.CircleThickness = 0 }},
		{"threshold", func(c *Config) { c.Detection.Threshold = "triangle" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.fn(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if _, err := cfg.DetectionParams(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("DetectionParams: expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Detection.KScale != math.Sqrt2 {
		t.Errorf("Expected k = sqrt(2) after round trip, got %v", cfg.Detection.KScale)
	}
}
