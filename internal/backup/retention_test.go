package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/wirelogic/internal/config"
)

func fiveBackups(now time.Time) []Info {
	return []Info{
		{Path: "/b/5", CreatedAt: now, Size: 100},
		{Path: "/b/4", CreatedAt: now.Add(-1 * time.Hour), Size: 100},
		{Path: "/b/3", CreatedAt: now.Add(-30 * time.Hour), Size: 100},
		{Path: "/b/2", CreatedAt: now.Add(-50 * time.Hour), Size: 100},
		{Path: "/b/1", CreatedAt: now.Add(-800 * time.Hour), Size: 100},
	}
}

func paths(infos []Info) []string {
	out := make([]string, len(infos))
	for i, b := range infos {
		out[i] = b.Path
	}
	return out
}

func TestPolicies(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	fixed := func() time.Time { return now }

	tests := []struct {
		name   string
		policy RetentionPolicy
		want   []string
	}{
		{"count", &CountPolicy{MaxCount: 2}, []string{"/b/5", "/b/4"}},
		{"count above total", &CountPolicy{MaxCount: 9}, []string{"/b/5", "/b/4", "/b/3", "/b/2", "/b/1"}},
		{"age", &AgePolicy{MaxAge: 24 * time.Hour, Now: fixed}, []string{"/b/5", "/b/4"}},
		{"size", &SizePolicy{MaxTotalBytes: 250}, []string{"/b/5", "/b/4"}},
		{"size keeps newest", &SizePolicy{MaxTotalBytes: 10}, []string{"/b/5"}},
		{"composite union", &CompositePolicy{Policies: []RetentionPolicy{
			&CountPolicy{MaxCount: 1},
			&AgePolicy{MaxAge: 72 * time.Hour, Now: fixed},
		}}, []string{"/b/5", "/b/4", "/b/3", "/b/2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paths(tt.policy.Apply(fiveBackups(now)))
			if len(got) != len(tt.want) {
				t.Fatalf("kept %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("kept %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p, err := PolicyFromConfig(config.RetentionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := p.(*CountPolicy); !ok || c.MaxCount != defaultKeep {
		t.Errorf("empty config = %#v, want CountPolicy{%d}", p, defaultKeep)
	}

	p, _ = PolicyFromConfig(config.RetentionConfig{MaxCount: 3})
	if c, ok := p.(*CountPolicy); !ok || c.MaxCount != 3 {
		t.Errorf("count config = %#v", p)
	}

	p, _ = PolicyFromConfig(config.RetentionConfig{MaxCount: 3, MaxAge: "2w", MaxTotalSize: "1MB"})
	if c, ok := p.(*CompositePolicy); !ok || len(c.Policies) != 3 {
		t.Errorf("combined config = %#v", p)
	}

	if _, err := PolicyFromConfig(config.RetentionConfig{MaxAge: "soon"}); err == nil {
		t.Error("expected error for bad max_age")
	}
	if _, err := PolicyFromConfig(config.RetentionConfig{MaxTotalSize: "lots"}); err == nil {
		t.Error("expected error for bad max_total_size")
	}
}

func TestListBackupsAndApplyRetention(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"wirelogic-backup-20260101-000000.json.gz",
		"wirelogic-backup-20260102-000000.json.gz",
		"wirelogic-backup-20260103-000000.json.gz",
	}
	for _, name := range names {
		if err := Write(filepath.Join(dir, name), &Archive{Version: FormatVersion, Circuits: []Entry{{Name: "lamp", Document: lampDoc(false)}}}); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep me"), 0600)
	os.WriteFile(filepath.Join(dir, "wirelogic-backup-garbage.json.gz"), []byte("junk"), 0600)

	backups, err := ListBackups(dir)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(backups) != 4 {
		t.Fatalf("expected 4 archives, got %v", paths(backups))
	}
	if filepath.Base(backups[1].Path) != names[2] || backups[1].CircuitCount != 1 {
		t.Errorf("expected newest dated archive second, got %+v", backups[1])
	}

	deleted, err := ApplyRetention(dir, &CountPolicy{MaxCount: 2})
	if err != nil {
		t.Fatalf("ApplyRetention() error = %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted %v, want 2 files", deleted)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("unrelated files must survive retention")
	}
	if _, err := os.Stat(filepath.Join(dir, names[0])); !os.IsNotExist(err) {
		t.Error("oldest archive should be deleted")
	}
}

func TestListBackups_MissingDir(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "nope"))
	if err != nil || backups != nil {
		t.Errorf("ListBackups() = %v, %v", backups, err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"720h", 720 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"", 0, true},
		{"d", 0, true},
		{"3y", 0, true},
		{"-2d", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"100B", 100, false},
		{"500KB", 500 << 10, false},
		{"100mb", 100 << 20, false},
		{"1GB", 1 << 30, false},
		{"", 0, true},
		{"12", 0, true},
		{"xMB", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSize(%q) = %v, %v", tt.in, got, err)
		}
	}
}
