package config

import (
	"fmt"
	"os"

	"autodcf/pkg/core/utils"
)

// Load reads a run file from disk and parses it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a run file and merges it onto the defaults. The file may be
// strict JSON, sloppy JSON or Hjson; SmartParseConfig tries each in turn,
// preferring the Hjson reading for anything that is not strict JSON.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if _, err := utils.SmartParseConfig(string(data), &cfg); err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}
