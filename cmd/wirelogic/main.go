package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvandessel/wirelogic/internal/circuit"
	"github.com/nvandessel/wirelogic/internal/config"
	"github.com/nvandessel/wirelogic/internal/logging"
	"github.com/nvandessel/wirelogic/internal/simulation"
	"github.com/nvandessel/wirelogic/internal/store"
	"github.com/nvandessel/wirelogic/internal/topology"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wirelogic",
		Short: "Wirelogic - digital logic circuit simulator",
		Long: `wirelogic simulates circuits built from sources, switches, buttons,
relays, inverters, indicators and wire joints.

Circuits are described in YAML or JSON topology files, can be stepped on a
virtual or wall clock, rendered as DOT, JSON or HTML, stored by name in a
local database, and served to agents over MCP.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.wirelogic/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newValidateCmd(),
		newRunCmd(),
		newGraphCmd(),
		newServeCmd(),
		newDragCmd(),
		newEnclosedCmd(),
		newSaveCmd(),
		newLoadCmd(),
		newListCmd(),
		newDeleteCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

// loadConfig loads the file named by --config, or the default locations.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configPath returns where config set writes: --config, or the default file.
func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// newTraceLogger opens the step trace. It is nil at info level.
func newTraceLogger(cfg *config.Config) *logging.TraceLogger {
	dir := cfg.Logging.TraceDir
	if dir == "" {
		d, err := config.Dir()
		if err != nil {
			return nil
		}
		dir = d
	}
	return logging.NewTraceLogger(dir, cfg.Logging.Level)
}

// loadCircuit reads a topology file and builds it with the configured
// button hold.
func loadCircuit(path string, cfg *config.Config) (*topology.Document, *circuit.Circuit, error) {
	doc, err := topology.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	c, err := topology.Build(doc, circuit.WithButtonHold(cfg.Simulation.ButtonDuration))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, c, nil
}

// newSimulator wraps c with the configured timing. A nil now uses the wall
// clock.
func newSimulator(c *circuit.Circuit, cfg *config.Config, logger *slog.Logger, now func() time.Time, opts ...simulation.Option) *simulation.Simulator {
	opts = append(opts, simulation.WithLogger(logger), simulation.WithNow(now))
	return simulation.New(c, simulation.Config{
		TickInterval:   cfg.Simulation.TickInterval,
		ButtonDuration: cfg.Simulation.ButtonDuration,
	}, opts...)
}

func openStore(cfg *config.Config) (*store.SQLiteCircuitStore, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteCircuitStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open circuit store: %w", err)
	}
	return s, nil
}

func jsonBytes(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseIndices parses "1,2,5" into part indices.
func parseIndices(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(field, "%d", &n); err != nil || n < 0 {
			return nil, fmt.Errorf("invalid part index %q", field)
		}
		out = append(out, n)
	}
	return out, nil
}

// partsAt resolves document indices on a freshly built circuit.
func partsAt(c *circuit.Circuit, indices []int) ([]*circuit.Part, error) {
	parts := make([]*circuit.Part, 0, len(indices))
	for _, i := range indices {
		p := c.Part(circuit.PartID(i))
		if p == nil {
			return nil, fmt.Errorf("part %d: %w", i, circuit.ErrPartNotFound)
		}
		parts = append(parts, p)
	}
	return parts, nil
}
