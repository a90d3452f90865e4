// Package backup archives every circuit in a store to a single checksummed
// file and restores stores from those archives.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvandessel/wirelogic/internal/store"
	"github.com/nvandessel/wirelogic/internal/topology"
)

// Archive is the payload of a backup file.
type Archive struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Circuits  []Entry   `json:"circuits"`
}

// Entry is one named circuit in an archive.
type Entry struct {
	Name     string             `json:"name"`
	Document *topology.Document `json:"document"`
}

// filePrefix and fileSuffix bracket every generated archive name.
const (
	filePrefix = "wirelogic-backup-"
	fileSuffix = ".json.gz"
)

// Backup writes every circuit in circuits to path.
func Backup(ctx context.Context, circuits store.CircuitStore, path string) (*Archive, error) {
	records, err := circuits.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list circuits: %w", err)
	}

	archive := &Archive{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Circuits:  make([]Entry, 0, len(records)),
	}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		full, err := circuits.Load(ctx, rec.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load %q: %w", rec.Name, err)
		}
		archive.Circuits = append(archive.Circuits, Entry{Name: full.Name, Document: full.Document})
	}

	if err := Write(path, archive); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	return archive, nil
}

// RestoreMode controls how restore handles circuits that already exist.
type RestoreMode string

const (
	// RestoreMerge keeps existing circuits and skips archived ones with the same name (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace deletes every stored circuit before restoring.
	RestoreReplace RestoreMode = "replace"
)

// ParseRestoreMode maps "" and "merge" to RestoreMerge and "replace" to RestoreReplace.
func ParseRestoreMode(s string) (RestoreMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(RestoreMerge):
		return RestoreMerge, nil
	case string(RestoreReplace):
		return RestoreReplace, nil
	default:
		return "", fmt.Errorf("invalid restore mode %q (valid: merge, replace)", s)
	}
}

// RestoreResult counts what a restore did.
type RestoreResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
	Removed  int `json:"removed"`
}

// Restore loads the archive at path into circuits. The archive is read and
// verified in full before the store is touched.
func Restore(ctx context.Context, circuits store.CircuitStore, path string, mode RestoreMode) (*RestoreResult, error) {
	archive, err := Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	for i, entry := range archive.Circuits {
		if err := topology.Validate(entry.Document); err != nil {
			return nil, fmt.Errorf("archived circuit %d (%q): %w", i, entry.Name, err)
		}
	}

	result := &RestoreResult{}

	if mode == RestoreReplace {
		existing, err := circuits.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list circuits: %w", err)
		}
		for _, rec := range existing {
			if err := circuits.Delete(ctx, rec.Name); err != nil {
				return nil, fmt.Errorf("failed to delete %q: %w", rec.Name, err)
			}
			result.Removed++
		}
	}

	for _, entry := range archive.Circuits {
		if mode == RestoreMerge {
			_, err := circuits.Load(ctx, entry.Name)
			if err == nil {
				result.Skipped++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("failed to check %q: %w", entry.Name, err)
			}
		}

		if _, err := circuits.Save(ctx, entry.Name, entry.Document); err != nil {
			return nil, fmt.Errorf("failed to restore %q: %w", entry.Name, err)
		}
		result.Restored++
	}

	return result, nil
}

// GenerateBackupPath returns a timestamped archive path inside dir.
func GenerateBackupPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, filePrefix+ts+fileSuffix)
}

func isBackupFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}
