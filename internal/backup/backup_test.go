package backup

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/wirelogic/internal/store"
	"github.com/nvandessel/wirelogic/internal/topology"
)

func lampDoc(switchOn bool) *topology.Document {
	return &topology.Document{
		Version: 1,
		Parts: []topology.PartSpec{
			{Category: "source"},
			{Category: "toggle-switch", X: 10, Energized: &switchOn},
			{Category: "indicator", X: 20},
		},
		Wires: []topology.WireSpec{
			{A: topology.Endpoint{Part: 0, Socket: "output"}, B: topology.Endpoint{Part: 1, Socket: "input"}},
			{A: topology.Endpoint{Part: 1, Socket: "output"}, B: topology.Endpoint{Part: 2, Socket: "input"}},
		},
	}
}

func seededStore(t *testing.T, names ...string) store.CircuitStore {
	t.Helper()
	s := store.NewInMemoryCircuitStore()
	for _, name := range names {
		if _, err := s.Save(context.Background(), name, lampDoc(false)); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}
	return s
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seededStore(t, "alpha", "beta")
	defer src.Close()

	path := filepath.Join(t.TempDir(), "archive.json.gz")
	archive, err := Backup(ctx, src, path)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if len(archive.Circuits) != 2 || archive.Version != FormatVersion {
		t.Fatalf("archive = %+v", archive)
	}

	header, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if header.Magic != Magic || header.CircuitCount != 2 || !strings.HasPrefix(header.Checksum, "sha256:") {
		t.Errorf("header = %+v", header)
	}
	if err := VerifyChecksum(path); err != nil {
		t.Errorf("VerifyChecksum() error = %v", err)
	}

	dst, err := store.NewSQLiteCircuitStore(filepath.Join(t.TempDir(), "circuits.db"))
	if err != nil {
		t.Fatalf("NewSQLiteCircuitStore() error = %v", err)
	}
	defer dst.Close()

	result, err := Restore(ctx, dst, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.Restored != 2 || result.Skipped != 0 {
		t.Errorf("result = %+v", result)
	}

	rec, err := dst.Load(ctx, "beta")
	if err != nil {
		t.Fatalf("Load(beta) error = %v", err)
	}
	if len(rec.Document.Parts) != 3 || len(rec.Document.Wires) != 2 {
		t.Errorf("restored document = %+v", rec.Document)
	}
	if e := rec.Document.Parts[1].Energized; e == nil || *e {
		t.Errorf("switch energized flag lost: %v", e)
	}
}

func TestBackup_EmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "empty.json.gz")
	archive, err := Backup(context.Background(), seededStore(t), path)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if len(archive.Circuits) != 0 {
		t.Errorf("expected no circuits, got %d", len(archive.Circuits))
	}
	read, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(read.Circuits) != 0 {
		t.Errorf("expected no circuits after read, got %d", len(read.Circuits))
	}
}

func TestRestore_Modes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.json.gz")
	if _, err := Backup(ctx, seededStore(t, "alpha", "beta"), path); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	t.Run("merge keeps existing", func(t *testing.T) {
		dst := store.NewInMemoryCircuitStore()
		dst.Save(ctx, "alpha", lampDoc(true))
		dst.Save(ctx, "gamma", lampDoc(true))

		result, err := Restore(ctx, dst, path, RestoreMerge)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if result.Restored != 1 || result.Skipped != 1 || result.Removed != 0 {
			t.Errorf("result = %+v", result)
		}
		rec, _ := dst.Load(ctx, "alpha")
		if !*rec.Document.Parts[1].Energized {
			t.Error("merge should not overwrite an existing circuit")
		}
		if list, _ := dst.List(ctx); len(list) != 3 {
			t.Errorf("expected 3 circuits, got %d", len(list))
		}
	})

	t.Run("replace clears first", func(t *testing.T) {
		dst := store.NewInMemoryCircuitStore()
		dst.Save(ctx, "alpha", lampDoc(true))
		dst.Save(ctx, "gamma", lampDoc(true))

		result, err := Restore(ctx, dst, path, RestoreReplace)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if result.Restored != 2 || result.Removed != 2 {
			t.Errorf("result = %+v", result)
		}
		if _, err := dst.Load(ctx, "gamma"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("gamma should be gone, got %v", err)
		}
		rec, _ := dst.Load(ctx, "alpha")
		if *rec.Document.Parts[1].Energized {
			t.Error("replace should restore the archived circuit")
		}
	})
}

func TestRestore_InvalidArchivedCircuit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json.gz")
	bad := lampDoc(false)
	bad.Wires[0].B.Part = 9
	archive := &Archive{Version: FormatVersion, Circuits: []Entry{{Name: "bad", Document: bad}}}
	if err := Write(path, archive); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	dst := seededStore(t, "keep")
	_, err := Restore(context.Background(), dst, path, RestoreReplace)
	if !errors.Is(err, topology.ErrInvalidTopology) {
		t.Fatalf("expected ErrInvalidTopology, got %v", err)
	}
	if _, err := dst.Load(context.Background(), "keep"); err != nil {
		t.Errorf("store should be untouched after a rejected archive: %v", err)
	}
}

func TestParseRestoreMode(t *testing.T) {
	tests := []struct {
		in      string
		want    RestoreMode
		wantErr bool
	}{
		{"", RestoreMerge, false},
		{"merge", RestoreMerge, false},
		{"REPLACE", RestoreReplace, false},
		{"overwrite", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRestoreMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseRestoreMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestGenerateBackupPath(t *testing.T) {
	path := GenerateBackupPath("/backups")
	base := filepath.Base(path)
	if filepath.Dir(path) != "/backups" || !isBackupFile(base) {
		t.Errorf("GenerateBackupPath() = %s", path)
	}
}
