package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"labreserve/internal/model"
)

// DevicesConfig is the root of devices.yaml.
type DevicesConfig struct {
	Devices []model.Device `yaml:"devices"`
}

// LoadDevicesConfig loads and validates the device catalogue from YAML.
func LoadDevicesConfig(path string) (*DevicesConfig, error) {
	if path == "" {
		path = "configs/devices.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read devices config: %w", err)
	}

	var cfg DevicesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse devices config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate devices config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the catalogue for errors.
func (c *DevicesConfig) Validate() error {
	if len(c.Devices) == 0 {
		return fmt.Errorf("no devices defined")
	}

	ids := make(map[int64]bool)
	for i, dev := range c.Devices {
		if dev.ID <= 0 {
			return fmt.Errorf("device[%d]: id must be positive, got %d", i, dev.ID)
		}
		if ids[dev.ID] {
			return fmt.Errorf("device[%d]: duplicate id %d", i, dev.ID)
		}
		ids[dev.ID] = true

		if dev.Name == "" && dev.Type == "" {
			return fmt.Errorf("device[%d]: name or type is required", i)
		}
	}

	return nil
}
