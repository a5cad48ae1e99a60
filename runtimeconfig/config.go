// Package runtimeconfig loads tool configuration for the graphtap CLI
// from a YAML or JSON file, with environment overrides for deployment
// settings.
package runtimeconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/graphtap/graphtap/internal/config"
)

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

type Config struct {
	// ArchivePath is the sqlite file traces are archived to.
	ArchivePath string `json:"archivePath" yaml:"archivePath"`
	// ReportDir is where rendered reports are written.
	ReportDir string `json:"reportDir" yaml:"reportDir"`
	// Direction is the default diagram direction, TD or LR.
	Direction string `json:"direction" yaml:"direction"`
	// Detailed enables per-node diffs and the timing table in terminal
	// reports.
	Detailed bool `json:"detailed" yaml:"detailed"`
	// MaxSteps bounds cyclic graph execution.
	MaxSteps int `json:"maxSteps" yaml:"maxSteps"`
	// Redis configures the optional live event stream.
	Redis RedisConfig `json:"redis" yaml:"redis"`
}

// Load reads the config file at path. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON. Environment variables
// (GRAPHTAP_ARCHIVE_PATH, GRAPHTAP_REPORT_DIR, GRAPHTAP_DETAILED,
// GRAPHTAP_MAX_STEPS, GRAPHTAP_REDIS_ADDR) override file values.
func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Config{}, fmt.Errorf("config path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve config path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %q: %w", absPath, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to decode config file %q as YAML: %w", absPath, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to decode config file %q as JSON: %w", absPath, err)
		}
	}

	cfg.normalize()
	cfg.applyEnv()
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{
		ArchivePath: "graphtap.db",
		ReportDir:   ".",
		Direction:   "TD",
		MaxSteps:    100,
	}
	cfg.applyEnv()
	return cfg
}

func (c *Config) normalize() {
	c.ArchivePath = strings.TrimSpace(c.ArchivePath)
	c.ReportDir = strings.TrimSpace(c.ReportDir)
	c.Direction = strings.ToUpper(strings.TrimSpace(c.Direction))
	if c.Direction != "LR" {
		c.Direction = "TD"
	}
	if c.ArchivePath == "" {
		c.ArchivePath = "graphtap.db"
	}
	if c.ReportDir == "" {
		c.ReportDir = "."
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = 100
	}
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	c.Redis.Prefix = strings.TrimSpace(c.Redis.Prefix)
}

func (c *Config) applyEnv() {
	c.ArchivePath = config.StringEnv("GRAPHTAP_ARCHIVE_PATH", c.ArchivePath)
	c.ReportDir = config.StringEnv("GRAPHTAP_REPORT_DIR", c.ReportDir)
	c.Detailed = config.BoolEnv("GRAPHTAP_DETAILED", c.Detailed)
	c.MaxSteps = config.IntEnv("GRAPHTAP_MAX_STEPS", c.MaxSteps)
	c.Redis.Addr = config.StringEnv("GRAPHTAP_REDIS_ADDR", c.Redis.Addr)
}
