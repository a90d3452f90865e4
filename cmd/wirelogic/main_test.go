package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolateHome sets HOME to a temp directory to avoid touching the real
// ~/.wirelogic/. It MUST be called by any test that opens the store or
// writes config.
func isolateHome(t *testing.T) string {
	t.Helper()
	tmpHome := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	return tmpHome
}

// execute runs the root command in-process and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(context.Background(), t, args...)
}

func executeContext(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

const lampYAML = `version: 1
parts:
  - category: source
  - category: toggle-switch
    x: 40
    energized: false
  - category: indicator
    x: 80
wires:
  - a: {part: 0, socket: output}
    b: {part: 1, socket: input}
  - a: {part: 1, socket: output}
    b: {part: 2, socket: input}
`

// chainYAML is source(0) - joint(1) - joint(2) - indicator(3).
const chainYAML = `version: 1
parts:
  - category: source
  - category: joint
    x: 20
  - category: joint
    x: 40
  - category: indicator
    x: 60
wires:
  - a: {part: 0, socket: output}
    b: {part: 1, socket: joint}
  - a: {part: 1, socket: joint}
    b: {part: 2, socket: joint}
  - a: {part: 2, socket: joint}
    b: {part: 3, socket: input}
`

func writeCircuit(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing circuit: %v", err)
	}
	return path
}

func decodeJSON(t *testing.T, out string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
}

func TestRootCmd_HasCommands(t *testing.T) {
	want := []string{"version", "validate", "run", "graph", "serve", "drag", "enclosed",
		"save", "load", "list", "delete", "backup", "restore", "config", "mcp-server"}

	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "wirelogic version "+version) {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json failed: %v", err)
	}
	var v map[string]string
	decodeJSON(t, out, &v)
	if v["version"] != version {
		t.Errorf("version = %q, want %q", v["version"], version)
	}
}

func TestValidateCmd(t *testing.T) {
	isolateHome(t)
	good := writeCircuit(t, "lamp.yaml", lampYAML)

	out, err := execute(t, "validate", good)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "is valid (3 parts, 2 wires)") {
		t.Errorf("output = %q", out)
	}

	bad := writeCircuit(t, "bad.yaml", strings.Replace(lampYAML, "category: indicator", "category: capacitor", 1))
	out, err = execute(t, "validate", bad, "--json")
	if err == nil {
		t.Fatal("expected error for invalid circuit")
	}
	var result map[string]interface{}
	decodeJSON(t, out, &result)
	if result["valid"] != false || result["field"] != "parts.category" || result["index"] != float64(2) {
		t.Errorf("result = %v", result)
	}

	if _, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfigFlag_InvalidConfigRejected(t *testing.T) {
	isolateHome(t)
	cfgPath := writeCircuit(t, "config.yaml", "drag:\n  policy: sideways\n")
	circuit := writeCircuit(t, "lamp.yaml", lampYAML)

	_, err := execute(t, "run", circuit, "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("error = %v, want invalid config", err)
	}
}
