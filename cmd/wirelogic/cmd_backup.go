package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/wirelogic/internal/backup"
	"github.com/nvandessel/wirelogic/internal/config"
	"github.com/nvandessel/wirelogic/internal/pathutil"
	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive every stored circuit to a backup file",
		Long: `Write every circuit in the database to one compressed, checksummed archive.

Default location: ~/.wirelogic/backups/wirelogic-backup-YYYYMMDD-HHMMSS.json.gz
Old archives are pruned according to backup.retention (default: keep 10).
--output must stay inside the backup directory.

Examples:
  wirelogic backup
  wirelogic backup --output ~/.wirelogic/backups/before-refactor.json.gz
  wirelogic backup list
  wirelogic backup verify <file>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			policy, err := backup.PolicyFromConfig(cfg.Backup.Retention)
			if err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			if outputPath == "" {
				dir, err := cfg.BackupDir()
				if err != nil {
					return fmt.Errorf("failed to get backup directory: %w", err)
				}
				outputPath = backup.GenerateBackupPath(dir)
			} else if err := checkBackupPath(cfg, outputPath); err != nil {
				return fmt.Errorf("backup path rejected: %w", err)
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			archive, err := backup.Backup(cmd.Context(), s, outputPath)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			deleted, err := backup.ApplyRetention(filepath.Dir(outputPath), policy)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to apply retention: %v\n", err)
			}
			newLogger(cmd, cfg).Debug("backup written", "path", outputPath, "pruned", len(deleted))

			if jsonOut {
				var size int64
				if info, err := os.Stat(outputPath); err == nil {
					size = info.Size()
				}
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"path":          outputPath,
					"circuit_count": len(archive.Circuits),
					"size_bytes":    size,
					"pruned":        len(deleted),
					"message":       fmt.Sprintf("Backup created: %d circuits", len(archive.Circuits)),
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✓ Backup created: %d circuit(s)\n", len(archive.Circuits))
			fmt.Fprintf(w, "  Path: %s\n", outputPath)
			if len(deleted) > 0 {
				fmt.Fprintf(w, "  Pruned %d old backup(s)\n", len(deleted))
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Archive path (default: auto-generated in the backup directory)")

	cmd.AddCommand(
		newBackupListCmd(),
		newBackupVerifyCmd(),
	)

	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups with their circuit counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir, err := cfg.BackupDir()
			if err != nil {
				return fmt.Errorf("failed to get backup directory: %w", err)
			}
			backups, err := backup.ListBackups(dir)
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}

			if jsonOut {
				if backups == nil {
					backups = []backup.Info{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"backups":     backups,
					"total_count": len(backups),
					"directory":   dir,
				})
			}

			w := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintf(w, "No backups found in %s\n", dir)
				return nil
			}

			fmt.Fprintf(w, "Backups in %s:\n", dir)
			var total int64
			for _, b := range backups {
				total += b.Size
				fmt.Fprintf(w, "  %s  %8s  %3d circuits  %s\n",
					b.CreatedAt.Local().Format("2006-01-02 15:04"),
					formatBytes(b.Size),
					b.CircuitCount,
					filepath.Base(b.Path),
				)
			}
			fmt.Fprintf(w, "Total: %d backups, %s\n", len(backups), formatBytes(total))
			return nil
		},
	}
}

func newBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check a backup file's SHA-256 checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			jsonOut, _ := cmd.Flags().GetBool("json")

			verr := backup.VerifyChecksum(path)

			if jsonOut {
				out := map[string]interface{}{
					"file":    path,
					"valid":   verr == nil,
					"message": "Checksum OK",
				}
				if verr != nil {
					out["error"] = verr.Error()
					out["message"] = "Checksum verification FAILED"
				}
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
				return verr
			}

			w := cmd.OutOrStdout()
			if verr != nil {
				fmt.Fprintf(w, "FAILED: %v\n", verr)
				fmt.Fprintf(w, "  File: %s\n", path)
				return fmt.Errorf("checksum verification failed: %w", verr)
			}
			fmt.Fprintln(w, "OK: checksum verified")
			fmt.Fprintf(w, "  File: %s\n", path)
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Load circuits from a backup file into the database",
		Long: `Restore circuits from an archive written by 'wirelogic backup'. The archive
is verified and every circuit validated before the database is changed.

Modes:
  merge   - keep circuits that already exist, add the rest (default)
  replace - delete every stored circuit first

Examples:
  wirelogic restore ~/.wirelogic/backups/wirelogic-backup-20260301-120000.json.gz
  wirelogic restore backup.json.gz --mode replace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			modeFlag, _ := cmd.Flags().GetString("mode")

			mode, err := backup.ParseRestoreMode(modeFlag)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := checkBackupPath(cfg, args[0]); err != nil {
				return fmt.Errorf("restore path rejected: %w", err)
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := backup.Restore(cmd.Context(), s, args[0], mode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"mode":     mode,
					"restored": result.Restored,
					"skipped":  result.Skipped,
					"removed":  result.Removed,
					"message":  fmt.Sprintf("Restore complete: %d circuits", result.Restored),
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✓ Restore complete (mode: %s)\n", mode)
			fmt.Fprintf(w, "  Circuits: %d restored, %d skipped", result.Restored, result.Skipped)
			if result.Removed > 0 {
				fmt.Fprintf(w, ", %d removed", result.Removed)
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().String("mode", "merge", "Restore mode: merge or replace")

	return cmd
}

// checkBackupPath confines user-supplied archive paths to the backup directory.
func checkBackupPath(cfg *config.Config, path string) error {
	allowed, err := pathutil.AllowedBackupDirs(cfg)
	if err != nil {
		return err
	}
	return pathutil.ValidatePath(path, allowed)
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
	)
	switch {
	case b >= mb:
		return fmt.Sprintf("%.1fMB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1fKB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%dB", b)
	}
}
