// Package mcp provides an MCP (Model Context Protocol) server exposing
// circuit simulation, rendering and connectivity queries as tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/wirelogic/internal/backup"
	"github.com/nvandessel/wirelogic/internal/config"
	"github.com/nvandessel/wirelogic/internal/logging"
	"github.com/nvandessel/wirelogic/internal/ratelimit"
	"github.com/nvandessel/wirelogic/internal/store"
)

// maxSteps caps how many steps a single tool call may simulate.
const maxSteps = 10000

// Server wraps the MCP SDK server and provides wirelogic tools.
type Server struct {
	server       *sdk.Server
	store        store.CircuitStore
	settings     *config.Config
	toolLimiters *ratelimit.Limiter
	auditLogger  *AuditLogger
	logger       *slog.Logger

	backupDir       string
	retentionPolicy backup.RetentionPolicy
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "wirelogic")
	Version string // Server version

	// Settings supplies simulation timing, drag policy and rate limits.
	// Nil uses config.Default().
	Settings *config.Config

	// Store persists named circuits. Nil uses an in-memory store.
	Store store.CircuitStore

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	Logger *slog.Logger
}

// NewServer creates a new MCP server with wirelogic tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	policy, err := backup.PolicyFromConfig(settings.Backup.Retention)
	if err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	backupDir, err := settings.BackupDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get backup directory: %w", err)
	}

	circuits := cfg.Store
	if circuits == nil {
		circuits = store.NewInMemoryCircuitStore()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var audit *AuditLogger
	if cfg.AuditDir != "" {
		audit = NewAuditLogger(cfg.AuditDir)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        circuits,
		settings:     settings,
		toolLimiters: ratelimit.NewLimiter(settings.MCP.RatePerSecond, settings.MCP.Burst),
		auditLogger:  audit,
		logger:       logger,

		backupDir:       backupDir,
		retentionPolicy: policy,
	}

	if err := s.registerTools(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.Close()
	return err
}

// Close closes the store and the audit log.
func (s *Server) Close() error {
	s.auditLogger.Close()
	return s.store.Close()
}
