package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/wirelogic/internal/config"
)

// defaultKeep is how many archives survive when no retention limit is configured.
const defaultKeep = 10

// Info describes one archive on disk.
type Info struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
	CircuitCount int       `json:"circuit_count"`
	Checksum     string    `json:"checksum,omitempty"`
}

// RetentionPolicy selects the archives to keep from a newest-first list.
type RetentionPolicy interface {
	Apply(backups []Info) (keep []Info)
}

// CountPolicy keeps the MaxCount newest archives.
type CountPolicy struct {
	MaxCount int
}

func (p *CountPolicy) Apply(backups []Info) []Info {
	if len(backups) <= p.MaxCount {
		return backups
	}
	return backups[:p.MaxCount]
}

// AgePolicy keeps archives created within MaxAge of Now.
type AgePolicy struct {
	MaxAge time.Duration
	Now    func() time.Time // nil means time.Now
}

func (p *AgePolicy) Apply(backups []Info) []Info {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().Add(-p.MaxAge)

	var keep []Info
	for _, b := range backups {
		if b.CreatedAt.After(cutoff) {
			keep = append(keep, b)
		}
	}
	return keep
}

// SizePolicy keeps the newest archives whose combined size fits in
// MaxTotalBytes. The newest archive is always kept.
type SizePolicy struct {
	MaxTotalBytes int64
}

func (p *SizePolicy) Apply(backups []Info) []Info {
	var keep []Info
	var total int64
	for _, b := range backups {
		if len(keep) > 0 && total+b.Size > p.MaxTotalBytes {
			break
		}
		keep = append(keep, b)
		total += b.Size
	}
	return keep
}

// CompositePolicy keeps an archive if any of its policies keeps it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

func (p *CompositePolicy) Apply(backups []Info) []Info {
	kept := make(map[string]bool)
	for _, policy := range p.Policies {
		for _, b := range policy.Apply(backups) {
			kept[b.Path] = true
		}
	}

	var result []Info
	for _, b := range backups {
		if kept[b.Path] {
			result = append(result, b)
		}
	}
	return result
}

// PolicyFromConfig builds the retention policy described by cfg.
func PolicyFromConfig(cfg config.RetentionConfig) (RetentionPolicy, error) {
	var policies []RetentionPolicy

	if cfg.MaxCount > 0 {
		policies = append(policies, &CountPolicy{MaxCount: cfg.MaxCount})
	}
	if cfg.MaxAge != "" {
		d, err := ParseDuration(cfg.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("backup max_age: %w", err)
		}
		policies = append(policies, &AgePolicy{MaxAge: d})
	}
	if cfg.MaxTotalSize != "" {
		n, err := ParseSize(cfg.MaxTotalSize)
		if err != nil {
			return nil, fmt.Errorf("backup max_total_size: %w", err)
		}
		policies = append(policies, &SizePolicy{MaxTotalBytes: n})
	}

	switch len(policies) {
	case 0:
		return &CountPolicy{MaxCount: defaultKeep}, nil
	case 1:
		return policies[0], nil
	default:
		return &CompositePolicy{Policies: policies}, nil
	}
}

// ListBackups returns the archives in dir, newest first. Files that match
// the archive naming but carry no readable header are still listed, with
// their modification time and no circuit count. A missing dir is empty.
func ListBackups(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []Info
	for _, e := range entries {
		if e.IsDir() || !isBackupFile(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}

		info := Info{
			Path:      filepath.Join(dir, e.Name()),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime(),
		}
		if header, err := ReadHeader(info.Path); err == nil {
			info.CreatedAt = header.CreatedAt
			info.CircuitCount = header.CircuitCount
			info.Checksum = header.Checksum
		}
		backups = append(backups, info)
	}

	// Names embed the timestamp, so name order is creation order.
	sort.Slice(backups, func(i, j int) bool {
		return filepath.Base(backups[i].Path) > filepath.Base(backups[j].Path)
	})
	return backups, nil
}

// ApplyRetention deletes the archives in dir that policy does not keep.
func ApplyRetention(dir string, policy RetentionPolicy) (deleted []string, err error) {
	backups, err := ListBackups(dir)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool)
	for _, b := range policy.Apply(backups) {
		keep[b.Path] = true
	}

	for _, b := range backups {
		if keep[b.Path] {
			continue
		}
		if err := os.Remove(b.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(b.Path), err)
		}
		deleted = append(deleted, b.Path)
	}
	return deleted, nil
}

// ParseDuration accepts Go durations ("720h") plus day and week counts ("30d", "2w").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	unit := map[byte]time.Duration{'d': 24 * time.Hour, 'w': 7 * 24 * time.Hour}[s[len(s)-1]]
	if unit == 0 {
		return 0, fmt.Errorf("invalid duration: %q (expected e.g. 720h, 30d, 2w)", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	return time.Duration(n) * unit, nil
}

// ParseSize parses sizes like "500KB", "100MB" or "1GB" into bytes.
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Longest suffix first so "MB" is not read as "B".
	for _, u := range []struct {
		suffix string
		bytes  int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if !strings.HasSuffix(s, u.suffix) {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(strings.TrimSuffix(s, u.suffix)), 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid size: %q", s)
		}
		return n * u.bytes, nil
	}
	return 0, fmt.Errorf("invalid size: %q (expected suffix: B, KB, MB, GB)", s)
}
