package main

import (
	"os"

	"gopkg.in/yaml.v2"
)

// mountConfig is one entry of a vfsctl config file: mount a memory filesystem at Path, optionally with a
// capacity (in bytes) different from the default pool size.
type mountConfig struct {
	Path           string `yaml:"path"`
	Name           string `yaml:"name"`
	CapacityBytes  int64  `yaml:"capacityBytes"`
}

// rootConfig is the top-level shape of a vfsctl YAML config file: a list of mounts to set up before running a
// command.
type rootConfig struct {
	Mounts []mountConfig `yaml:"mounts"`
}

// loadConfig reads and parses a vfsctl config file from path.
func loadConfig(path string) (*rootConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg rootConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
