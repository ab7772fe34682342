// Package config holds the pipeline configuration surface.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the root configuration structure.
type Config struct {
	Repo      string       `json:"repo"`      // local path or remote reference
	OutputDir string       `json:"outputDir"` // dataset output root
	Index     IndexConfig  `json:"index"`
	Slice     SliceConfig  `json:"slice"`
	Export    ExportConfig `json:"export"`
}

// IndexConfig holds commit indexing options.
type IndexConfig struct {
	Limit     int    `json:"limit"`     // cap on visited commits; 0 = unlimited
	SortOrder string `json:"sortOrder"` // "asc" or "desc"
}

// SliceConfig holds commit selection options.
type SliceConfig struct {
	Mode     string `json:"mode"`     // commit, tag, release, time-interval
	Interval string `json:"interval"` // e.g. "30d"; only for time-interval mode
	Limit    *int   `json:"limit"`    // cap after slicing; null = no cap
}

// ExportConfig holds snapshot export options.
type ExportConfig struct {
	Exclude []string `json:"exclude"` // extra path patterns, on top of defaults
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "./data",
		Index: IndexConfig{
			SortOrder: "desc",
		},
		Slice: SliceConfig{
			Mode: "commit",
		},
		Export: ExportConfig{
			Exclude: []string{},
		},
	}
}

// LoadConfig loads configuration from a file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		candidates := []string{".snapmine.json"}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			candidates = append(candidates, filepath.Join(home, ".snapmine.json"))
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
