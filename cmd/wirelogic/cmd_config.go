package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nvandessel/wirelogic/internal/backup"
	"github.com/nvandessel/wirelogic/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage wirelogic configuration",
		Long: `View and modify wirelogic configuration settings.

Configuration is stored in ~/.wirelogic/config.yaml unless --config names
another file.

Examples:
  wirelogic config list                              # Show all settings
  wirelogic config get simulation.tick_interval      # Get a specific setting
  wirelogic config set simulation.tick_interval 50ms # Set a setting
  wirelogic config set drag.policy binary`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
		newConfigPathCmd(),
	)

	return cmd
}

// configKeys lists every settable key in display order.
var configKeys = []string{
	"simulation.tick_interval",
	"simulation.button_duration",
	"simulation.step_interval",
	"drag.policy",
	"logging.level",
	"logging.trace_dir",
	"store.path",
	"mcp.rate_per_second",
	"mcp.burst",
	"backup.dir",
	"backup.retention.max_count",
	"backup.retention.max_age",
	"backup.retention.max_total_size",
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if jsonOut {
				values := make(map[string]interface{}, len(configKeys))
				for _, key := range configKeys {
					values[key], _ = getConfigValue(cfg, key)
				}
				return writeJSON(cmd.OutOrStdout(), values)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			path, err := configPath(cmd)
			if err != nil {
				return err
			}

			// Start from the file alone so environment overrides are not
			// persisted.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				cfg, err = config.LoadFromFile(path)
				if err != nil {
					return err
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
					"path":   path,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (interface{}, bool) {
	switch key {
	case "simulation.tick_interval":
		return cfg.Simulation.TickInterval.String(), true
	case "simulation.button_duration":
		return cfg.Simulation.ButtonDuration.String(), true
	case "simulation.step_interval":
		return cfg.Simulation.StepInterval.String(), true
	case "drag.policy":
		return cfg.Drag.Policy, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "logging.trace_dir":
		return cfg.Logging.TraceDir, true
	case "store.path":
		return cfg.Store.Path, true
	case "mcp.rate_per_second":
		return cfg.MCP.RatePerSecond, true
	case "mcp.burst":
		return cfg.MCP.Burst, true
	case "backup.dir":
		return cfg.Backup.Dir, true
	case "backup.retention.max_count":
		return cfg.Backup.Retention.MaxCount, true
	case "backup.retention.max_age":
		return cfg.Backup.Retention.MaxAge, true
	case "backup.retention.max_total_size":
		return cfg.Backup.Retention.MaxTotalSize, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "simulation.tick_interval", "simulation.button_duration", "simulation.step_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		switch key {
		case "simulation.tick_interval":
			cfg.Simulation.TickInterval = d
		case "simulation.button_duration":
			cfg.Simulation.ButtonDuration = d
		default:
			cfg.Simulation.StepInterval = d
		}
	case "drag.policy":
		cfg.Drag.Policy = value
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.trace_dir":
		cfg.Logging.TraceDir = value
	case "store.path":
		cfg.Store.Path = value
	case "mcp.rate_per_second":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid rate: %s", value)
		}
		cfg.MCP.RatePerSecond = f
	case "mcp.burst":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid burst: %s", value)
		}
		cfg.MCP.Burst = n
	case "backup.dir":
		cfg.Backup.Dir = value
	case "backup.retention.max_count":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max_count: %s", value)
		}
		cfg.Backup.Retention.MaxCount = n
	case "backup.retention.max_age":
		if value != "" {
			if _, err := backup.ParseDuration(value); err != nil {
				return err
			}
		}
		cfg.Backup.Retention.MaxAge = value
	case "backup.retention.max_total_size":
		if value != "" {
			if _, err := backup.ParseSize(value); err != nil {
				return err
			}
		}
		cfg.Backup.Retention.MaxTotalSize = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
