// Package config provides unified configuration loading for wirelogic.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all wirelogic configuration settings.
type Config struct {
	// Simulation contains clock and step timing.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Drag contains settings for drag-follow weighting.
	Drag DragConfig `json:"drag" yaml:"drag"`

	// Logging contains settings for operational and step logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store contains settings for the circuit database.
	Store StoreConfig `json:"store" yaml:"store"`

	// MCP contains settings for the MCP server.
	MCP MCPConfig `json:"mcp" yaml:"mcp"`

	// Backup contains settings for store archives.
	Backup BackupConfig `json:"backup" yaml:"backup"`
}

// SimulationConfig configures step timing.
type SimulationConfig struct {
	// TickInterval is the logic clock cadence. Sequential state
	// (controlled switches, inverters, timed buttons) only changes on ticks.
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval"`

	// ButtonDuration is how long a timed button stays on after a press.
	ButtonDuration time.Duration `json:"button_duration" yaml:"button_duration"`

	// StepInterval is the simulated time between propagation steps when
	// the CLI runs a circuit, and the wall-clock pacing with --realtime.
	StepInterval time.Duration `json:"step_interval" yaml:"step_interval"`
}

// DragConfig configures the connectivity analyzer.
type DragConfig struct {
	// Policy is "distance" (default) or "binary".
	Policy string `json:"policy" yaml:"policy"`
}

// LoggingConfig configures wirelogic's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables step tracing to ~/.wirelogic/steps.jsonl.
	Level string `json:"level" yaml:"level"`

	// TraceDir overrides where steps.jsonl is written.
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// StoreConfig configures circuit persistence.
type StoreConfig struct {
	// Path is the SQLite database file. Empty means ~/.wirelogic/circuits.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// MCPConfig configures the MCP server's per-tool rate limit.
type MCPConfig struct {
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`
	Burst         int     `json:"burst" yaml:"burst"`
}

// BackupConfig configures where store archives go and how many are kept.
type BackupConfig struct {
	// Dir holds generated archives. Empty means ~/.wirelogic/backups.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	Retention RetentionConfig `json:"retention" yaml:"retention"`
}

// RetentionConfig bounds the archive directory. A backup survives if any
// configured limit keeps it; with nothing configured the newest 10 survive.
type RetentionConfig struct {
	MaxCount     int    `json:"max_count" yaml:"max_count"`
	MaxAge       string `json:"max_age,omitempty" yaml:"max_age,omitempty"`               // e.g. "30d", "2w", "720h"
	MaxTotalSize string `json:"max_total_size,omitempty" yaml:"max_total_size,omitempty"` // e.g. "100MB"
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickInterval:   100 * time.Millisecond,
			ButtonDuration: time.Second,
			StepInterval:   16 * time.Millisecond,
		},
		Drag: DragConfig{
			Policy: "distance",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		MCP: MCPConfig{
			RatePerSecond: 10,
			Burst:         20,
		},
		Backup: BackupConfig{
			Retention: RetentionConfig{
				MaxCount: 10,
			},
		},
	}
}

// Dir returns the wirelogic home directory (~/.wirelogic).
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".wirelogic"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.wirelogic/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	if dir, err := Dir(); err == nil {
		configPath := filepath.Join(dir, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Unset keys
// keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Path = expandEnvVars(config.Store.Path)
	config.Logging.TraceDir = expandEnvVars(config.Logging.TraceDir)
	config.Backup.Dir = expandEnvVars(config.Backup.Dir)

	return config, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.Simulation.TickInterval)
	}
	if c.Simulation.ButtonDuration <= 0 {
		return fmt.Errorf("button_duration must be positive, got %v", c.Simulation.ButtonDuration)
	}
	if c.Simulation.StepInterval <= 0 {
		return fmt.Errorf("step_interval must be positive, got %v", c.Simulation.StepInterval)
	}

	validPolicies := map[string]bool{"": true, "distance": true, "binary": true}
	if !validPolicies[c.Drag.Policy] {
		return fmt.Errorf("invalid drag policy: %s (valid: distance, binary)", c.Drag.Policy)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.MCP.RatePerSecond < 0 {
		return fmt.Errorf("mcp rate_per_second must be non-negative, got %f", c.MCP.RatePerSecond)
	}
	if c.MCP.Burst < 0 {
		return fmt.Errorf("mcp burst must be non-negative, got %d", c.MCP.Burst)
	}

	if c.Backup.Retention.MaxCount < 0 {
		return fmt.Errorf("backup max_count must be non-negative, got %d", c.Backup.Retention.MaxCount)
	}

	return nil
}

// StorePath returns the configured database path or the default one.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "circuits.db"), nil
}

// BackupDir returns the configured archive directory or the default one.
func (c *Config) BackupDir() (string, error) {
	if c.Backup.Dir != "" {
		return c.Backup.Dir, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "backups"), nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("WIRELOGIC_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Simulation.TickInterval = d
		}
	}

	if v := os.Getenv("WIRELOGIC_BUTTON_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Simulation.ButtonDuration = d
		}
	}

	if v := os.Getenv("WIRELOGIC_STEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Simulation.StepInterval = d
		}
	}

	if v := os.Getenv("WIRELOGIC_DRAG_POLICY"); v != "" {
		config.Drag.Policy = strings.ToLower(v)
	}

	if v := os.Getenv("WIRELOGIC_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("WIRELOGIC_STORE_PATH"); v != "" {
		config.Store.Path = v
	}

	if v := os.Getenv("WIRELOGIC_BACKUP_DIR"); v != "" {
		config.Backup.Dir = v
	}

	if v := os.Getenv("WIRELOGIC_MCP_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.MCP.RatePerSecond = f
		}
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
