package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/wirelogic/internal/config"
	"github.com/nvandessel/wirelogic/internal/visualization"
)

func TestGraphCmd_DefaultFormatIsDOT(t *testing.T) {
	isolateHome(t)
	path := writeCircuit(t, "lamp.yaml", lampYAML)

	out, err := execute(t, "graph", path)
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	if !strings.HasPrefix(out, "graph circuit {") {
		t.Errorf("expected DOT output, got %q", out)
	}
	if !strings.Contains(out, `"p0" -- "p1"`) {
		t.Errorf("expected an edge between p0 and p1 in %q", out)
	}
}

func TestGraphCmd_JSON(t *testing.T) {
	isolateHome(t)
	path := writeCircuit(t, "lamp.yaml", lampYAML)

	out, err := execute(t, "graph", path, "--format", "json")
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	var result map[string]interface{}
	decodeJSON(t, out, &result)
	if result["part_count"] != float64(3) || result["wire_count"] != float64(2) {
		t.Errorf("counts = %v/%v", result["part_count"], result["wire_count"])
	}
	// After one step the source output and switch input are powered.
	if result["powered_sockets"] != float64(2) {
		t.Errorf("powered_sockets = %v, want 2", result["powered_sockets"])
	}

	out, err = execute(t, "graph", path, "--format", "json", "--steps", "0")
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	decodeJSON(t, out, &result)
	if result["powered_sockets"] != float64(0) {
		t.Errorf("powered_sockets = %v, want 0 with --steps 0", result["powered_sockets"])
	}
}

func TestGraphCmd_HTMLToFile(t *testing.T) {
	isolateHome(t)
	path := writeCircuit(t, "lamp.yaml", lampYAML)
	output := filepath.Join(t.TempDir(), "lamp.html")

	out, err := execute(t, "graph", path, "--format", "html", "-o", output)
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	if !strings.Contains(out, "Graph written to "+output) {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("reading html: %v", err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("html should contain an svg element")
	}
}

func TestGraphCmd_UnsupportedFormat(t *testing.T) {
	isolateHome(t)
	path := writeCircuit(t, "lamp.yaml", lampYAML)

	if _, err := execute(t, "graph", path, "--format", "png"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestServeCmd_StartsServer(t *testing.T) {
	isolateHome(t)
	path := writeCircuit(t, "lamp.yaml", lampYAML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Use io.Pipe so the startup message can be read while the server runs.
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		rootCmd := newRootCmd()
		rootCmd.SetOut(pw)
		rootCmd.SetErr(io.Discard)
		rootCmd.SetArgs([]string{"serve", path, "--addr", "127.0.0.1:0"})
		done <- rootCmd.ExecuteContext(ctx)
		pw.Close()
	}()

	ch := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := pr.Read(buf)
		ch <- string(buf[:n])
		// Drain the rest so the server never blocks on output.
		io.Copy(io.Discard, pr)
	}()

	select {
	case msg := <-ch:
		if !strings.Contains(msg, "Circuit server running at http://127.0.0.1:") {
			t.Fatalf("unexpected startup output: %q", msg)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for server output")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned error after cancel: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestReloadCircuit(t *testing.T) {
	path := writeCircuit(t, "lamp.yaml", lampYAML)
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, c, err := loadCircuit(path, cfg)
	if err != nil {
		t.Fatalf("loadCircuit: %v", err)
	}
	srv := visualization.NewServer(newSimulator(c, cfg, logger, nil), time.Hour)
	reload := reloadCircuit(srv, path, cfg, logger, nil)

	partCount := func() int {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
		var state struct {
			Parts []json.RawMessage `json:"parts"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		return len(state.Parts)
	}

	if err := os.WriteFile(path, []byte(chainYAML), 0644); err != nil {
		t.Fatal(err)
	}
	reload()
	if got := partCount(); got != 4 {
		t.Fatalf("parts after reload = %d, want 4", got)
	}

	if err := os.WriteFile(path, []byte("version: 1\nparts: [{category: nonsense}]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	reload()
	if got := partCount(); got != 4 {
		t.Errorf("parts after failed reload = %d, want the previous 4", got)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`wirelogic_reloads_total{result="ok"} 1`,
		`wirelogic_reloads_total{result="error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}
