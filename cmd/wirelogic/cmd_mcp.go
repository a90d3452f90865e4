package main

import (
	"fmt"

	"github.com/nvandessel/wirelogic/internal/config"
	"github.com/nvandessel/wirelogic/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing circuit tools:
circuit_simulate, circuit_graph, circuit_validate, circuit_drag_weights,
circuit_enclosed_joints, circuit_save, circuit_load, circuit_list and
circuit_delete.

Stored circuits live in the same database as 'wirelogic save'. Every tool
call is appended to ~/.wirelogic/audit.jsonl.

Example client configuration:
  {"command": "wirelogic", "args": ["mcp-server"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			circuits, err := openStore(cfg)
			if err != nil {
				return err
			}

			auditDir, err := config.Dir()
			if err != nil {
				circuits.Close()
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "wirelogic",
				Version:  version,
				Settings: cfg,
				Store:    circuits,
				AuditDir: auditDir,
				Logger:   logger,
			})
			if err != nil {
				circuits.Close()
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			logger.Info("mcp server starting", "db", circuits.Path())
			return server.Run(cmd.Context())
		},
	}
}
