// Package pathutil confines user-supplied file paths to known directories.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/wirelogic/internal/config"
)

// RedactPath shortens a path to .../<parent>/<base> for error messages,
// e.g. "/home/user/.wirelogic/backups/a.json.gz" becomes ".../backups/a.json.gz".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// ValidatePath reports an error unless path, after cleaning and symlink
// resolution, lies inside one of allowedDirs. The file itself need not exist.
func ValidatePath(path string, allowedDirs []string) error {
	switch {
	case path == "":
		return fmt.Errorf("path validation failed: path is empty")
	case len(allowedDirs) == 0:
		return fmt.Errorf("path validation failed: no allowed directories configured")
	case strings.ContainsRune(path, '\x00'):
		return fmt.Errorf("path validation failed: path contains null byte")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}

	// Resolve the parent so a symlinked directory cannot point outside.
	dir, err := resolve(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve parent directory: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(abs))

	for _, allowed := range allowedDirs {
		allowedAbs, err := filepath.Abs(allowed)
		if err != nil {
			continue
		}
		root, err := resolve(allowedAbs)
		if err != nil {
			continue
		}
		if within(target, root) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q is outside allowed directories", RedactPath(abs))
}

// resolve evaluates symlinks on the deepest existing ancestor of dir and
// re-appends the components that do not exist yet.
func resolve(dir string) (string, error) {
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
		}
		missing = append(missing, filepath.Base(dir))
		dir = parent
	}
}

// within reports whether path is root or below it.
func within(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(os.PathSeparator))+string(os.PathSeparator))
}

// AllowedBackupDirs returns the directories archives may be written to or
// restored from: the configured backup directory plus any extra ones.
func AllowedBackupDirs(cfg *config.Config, extra ...string) ([]string, error) {
	dir, err := cfg.BackupDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine backup directory: %w", err)
	}
	dirs := []string{dir}
	for _, d := range extra {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs, nil
}
