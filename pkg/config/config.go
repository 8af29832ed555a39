// Package config provides configuration loading and management for mprview.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the viewer configuration loaded from YAML. The defaults
// mirror common radiology-viewer behavior; sites that want different
// window/level heuristics or zoom limits override them here rather than in
// code.
type Config struct {
	// Display parameters
	Display struct {
		// WindowLowPercentile and WindowHighPercentile pick the default
		// intensity window from the foreground-voxel distribution when the
		// source carries no window of its own.
		WindowLowPercentile  float64 `yaml:"windowLowPercentile"`
		WindowHighPercentile float64 `yaml:"windowHighPercentile"`

		// EdgeThreshold is the label value above which a segmentation voxel
		// counts as foreground for overlay outlines.
		EdgeThreshold float64 `yaml:"edgeThreshold"`
	} `yaml:"display"`

	// Interaction parameters
	Interaction struct {
		// MinZoom and MaxZoom clamp the per-view zoom factor.
		MinZoom float64 `yaml:"minZoom"`
		MaxZoom float64 `yaml:"maxZoom"`

		// ZoomStep is the multiplicative factor applied per wheel notch.
		ZoomStep float64 `yaml:"zoomStep"`

		// RotationStepDeg is the oblique rotation increment per drag tick,
		// in degrees.
		RotationStepDeg float64 `yaml:"rotationStepDeg"`
	} `yaml:"interaction"`

	// Cine playback parameters
	Cine struct {
		// FPS is the playback rate in slices per second.
		FPS int `yaml:"fps"`
	} `yaml:"cine"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default display parameters
	cfg.Display.WindowLowPercentile = 0.01
	cfg.Display.WindowHighPercentile = 0.99
	cfg.Display.EdgeThreshold = 0.5

	// Set default interaction parameters
	cfg.Interaction.MinZoom = 1.0
	cfg.Interaction.MaxZoom = 10.0
	cfg.Interaction.ZoomStep = 1.15
	cfg.Interaction.RotationStepDeg = 10.0

	// Set default cine parameters
	cfg.Cine.FPS = 10

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

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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

func (cfg *Config) validate() error {
	d := &cfg.Display
	if d.WindowLowPercentile < 0 || d.WindowHighPercentile > 1 || d.WindowLowPercentile >= d.WindowHighPercentile {
		return fmt.Errorf("config: window percentiles [%g, %g] must satisfy 0 <= low < high <= 1",
			d.WindowLowPercentile, d.WindowHighPercentile)
	}
	i := &cfg.Interaction
	if i.MinZoom <= 0 || i.MaxZoom < i.MinZoom {
		return fmt.Errorf("config: zoom limits [%g, %g] invalid", i.MinZoom, i.MaxZoom)
	}
	if i.ZoomStep <= 1 {
		return fmt.Errorf("config: zoomStep %g must be greater than 1", i.ZoomStep)
	}
	if cfg.Cine.FPS <= 0 {
		return fmt.Errorf("config: cine fps %d must be positive", cfg.Cine.FPS)
	}
	return nil
}
