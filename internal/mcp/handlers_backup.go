package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/wirelogic/internal/backup"
	"github.com/nvandessel/wirelogic/internal/pathutil"
	"github.com/nvandessel/wirelogic/internal/ratelimit"
)

// handleBackup implements the circuit_backup tool.
func (s *Server) handleBackup(ctx context.Context, req *sdk.CallToolRequest, args BackupInput) (_ *sdk.CallToolResult, _ BackupOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("circuit_backup", start, retErr, sanitizeToolParams(map[string]interface{}{
			"output_path": nonEmpty(args.OutputPath),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_backup"); err != nil {
		return nil, BackupOutput{}, err
	}

	outputPath := args.OutputPath
	if outputPath == "" {
		outputPath = backup.GenerateBackupPath(s.backupDir)
	} else if err := pathutil.ValidatePath(outputPath, []string{s.backupDir}); err != nil {
		return nil, BackupOutput{}, fmt.Errorf("backup path rejected: %w", err)
	}

	archive, err := backup.Backup(ctx, s.store, outputPath)
	if err != nil {
		return nil, BackupOutput{}, fmt.Errorf("backup failed: %w", err)
	}

	deleted, err := backup.ApplyRetention(filepath.Dir(outputPath), s.retentionPolicy)
	if err != nil {
		s.logger.Warn("failed to apply backup retention", "error", err)
	}

	var size int64
	if info, err := os.Stat(outputPath); err == nil {
		size = info.Size()
	}
	s.logger.Debug("backup written", "path", outputPath, "circuits", len(archive.Circuits), "pruned", len(deleted))

	return nil, BackupOutput{
		Path:         outputPath,
		CircuitCount: len(archive.Circuits),
		SizeBytes:    size,
		Pruned:       len(deleted),
		Message:      fmt.Sprintf("Backup created: %d circuits → %s", len(archive.Circuits), outputPath),
	}, nil
}

// handleRestore implements the circuit_restore tool.
func (s *Server) handleRestore(ctx context.Context, req *sdk.CallToolRequest, args RestoreInput) (_ *sdk.CallToolResult, _ RestoreOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("circuit_restore", start, retErr, sanitizeToolParams(map[string]interface{}{
			"input_path": nonEmpty(args.InputPath),
			"mode":       nonEmpty(args.Mode),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_restore"); err != nil {
		return nil, RestoreOutput{}, err
	}

	if args.InputPath == "" {
		return nil, RestoreOutput{}, fmt.Errorf("'input_path' parameter is required")
	}
	mode, err := backup.ParseRestoreMode(args.Mode)
	if err != nil {
		return nil, RestoreOutput{}, err
	}
	if err := pathutil.ValidatePath(args.InputPath, []string{s.backupDir}); err != nil {
		return nil, RestoreOutput{}, fmt.Errorf("restore path rejected: %w", err)
	}

	result, err := backup.Restore(ctx, s.store, args.InputPath, mode)
	if err != nil {
		return nil, RestoreOutput{}, fmt.Errorf("restore failed: %w", err)
	}

	return nil, RestoreOutput{
		Mode:    mode,
		Result:  *result,
		Message: fmt.Sprintf("Restore complete: %d restored, %d skipped, %d removed", result.Restored, result.Skipped, result.Removed),
	}, nil
}

// nonEmpty maps "" to nil so sanitizeToolParams skips unset parameters.
func nonEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
