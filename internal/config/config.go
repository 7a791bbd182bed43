// Package config provides configuration loading and validation for taskkit.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds per-command defaults that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Scraper
	Query      string `json:"query,omitempty"`       // Search query for the product scraper
	Pages      int    `json:"pages,omitempty"`       // Number of result pages to scrape
	Layout     string `json:"layout,omitempty"`      // Result page layout: search-result or result-item
	Output     string `json:"output,omitempty"`      // Output file for scraped products
	UseBrowser bool   `json:"use_browser,omitempty"` // Render pages with headless Chrome when HTTP yields nothing

	// Sniffer
	Interface string `json:"interface,omitempty"` // Capture interface
	Filter    string `json:"filter,omitempty"`    // BPF filter expression

	// Server
	Port int `json:"port,omitempty"`

	// ML
	DataDir   string `json:"data_dir,omitempty"`   // Directory holding input datasets
	OutputDir string `json:"output_dir,omitempty"` // Directory receiving metrics and models
	Seed      int64  `json:"seed,omitempty"`       // Random seed for splits and models

	Verbose bool `json:"verbose,omitempty"`
}

// Known scraper layouts, duplicated here so config validation does not import the scraper.
var validLayouts = map[string]bool{
	"":              true,
	"search-result": true,
	"result-item":   true,
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Pages < 0 {
		return fmt.Errorf("config error: 'pages' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535, got %d", c.Port)
	}
	if !validLayouts[c.Layout] {
		return fmt.Errorf("config error: unknown layout %q", c.Layout)
	}
	if c.DataDir != "" {
		info, err := os.Stat(c.DataDir)
		if os.IsNotExist(err) {
			return fmt.Errorf("config error: data directory not found: %s", c.DataDir)
		}
		if err == nil && !info.IsDir() {
			return fmt.Errorf("config error: data_dir is not a directory: %s", c.DataDir)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
// Flag values go in c; file values go in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Query == "" {
		result.Query = defaults.Query
	}
	if result.Layout == "" {
		result.Layout = defaults.Layout
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.Interface == "" {
		result.Interface = defaults.Interface
	}
	if result.Filter == "" {
		result.Filter = defaults.Filter
	}
	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}

	if result.Pages == 0 {
		result.Pages = defaults.Pages
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.Seed == 0 {
		result.Seed = defaults.Seed
	}

	// Bools cannot distinguish unset from false; a true in either source wins.
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}
