package topology

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/wirelogic/internal/circuit"
	"github.com/nvandessel/wirelogic/internal/propagation"
)

const switchedLamp = `
version: 1
parts:
  - category: source
    x: 0
    y: 0
  - category: toggle-switch
    x: 40
    y: 0
    rotation: 90
    energized: true
  - category: joint
    x: 80
    y: 0
  - category: indicator
    x: 120
    y: 0
wires:
  - a: {part: 0, socket: output}
    b: {part: 1, socket: input}
  - a: {part: 1, socket: output}
    b: {part: 2, socket: joint}
  - a: {part: 2, socket: joint}
    b: {part: 3, socket: input}
`

func boolPtr(b bool) *bool { return &b }

func TestBuild_FromYAML(t *testing.T) {
	doc, err := Parse([]byte(switchedLamp), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c, err := Build(doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(c.Parts()) != 4 || len(c.Wires()) != 3 {
		t.Fatalf("expected 4 parts and 3 wires, got %d and %d", len(c.Parts()), len(c.Wires()))
	}
	sw := c.Parts()[1]
	if sw.Category != circuit.ToggleSwitch || !sw.Energized() {
		t.Errorf("expected energized toggle switch, got %s energized=%v", sw.Category, sw.Energized())
	}
	if sw.Position != (circuit.Point{X: 40, Y: 0}) || sw.Rotation != 90 {
		t.Errorf("position/rotation not restored: %+v %v", sw.Position, sw.Rotation)
	}

	propagation.Evaluate(c.Parts())
	if !c.Parts()[3].Socket(circuit.Input).Powered() {
		t.Error("rebuilt circuit should light the indicator")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := circuit.New()
	src, _ := c.CreatePart(circuit.Source)
	inv, _ := c.CreatePart(circuit.Inverter)
	btn, _ := c.CreatePart(circuit.TimedButton)
	j, _ := c.CreatePart(circuit.Joint)
	inv.Position = circuit.Point{X: 3, Y: 4}
	c.ConnectWire(src.Socket(circuit.Output), inv.Socket(circuit.Control))
	c.ConnectWire(src.Socket(circuit.Output), j.Socket(circuit.PassThrough))
	c.ConnectWire(j.Socket(circuit.PassThrough), btn.Socket(circuit.Input))
	c.ConnectWire(j.Socket(circuit.PassThrough), j.Socket(circuit.PassThrough))

	doc := Snapshot(c)
	if doc.Version != CurrentVersion {
		t.Errorf("expected version %d, got %d", CurrentVersion, doc.Version)
	}
	if doc.Parts[0].Energized != nil {
		t.Error("stateless parts must not carry an energized flag")
	}
	if doc.Parts[1].Energized == nil || !*doc.Parts[1].Energized {
		t.Error("inverter's energized flag should be recorded")
	}

	for _, format := range []Format{FormatYAML, FormatJSON} {
		data, err := Marshal(doc, format)
		if err != nil {
			t.Fatalf("%s: Marshal: %v", format, err)
		}
		parsed, err := Parse(data, format)
		if err != nil {
			t.Fatalf("%s: Parse: %v", format, err)
		}
		rebuilt, err := Build(parsed)
		if err != nil {
			t.Fatalf("%s: Build: %v", format, err)
		}
		again := Snapshot(rebuilt)
		if len(again.Parts) != len(doc.Parts) || len(again.Wires) != len(doc.Wires) {
			t.Fatalf("%s: round trip changed sizes", format)
		}
		for i := range doc.Wires {
			if again.Wires[i] != doc.Wires[i] {
				t.Errorf("%s: wire %d changed: %+v vs %+v", format, i, again.Wires[i], doc.Wires[i])
			}
		}
		if again.Parts[1].X != 3 || again.Parts[1].Y != 4 {
			t.Errorf("%s: position lost", format)
		}
	}
}

func TestSnapshot_IndexesAfterDeletion(t *testing.T) {
	c := circuit.New()
	a, _ := c.CreatePart(circuit.Source)
	b, _ := c.CreatePart(circuit.Indicator)
	d, _ := c.CreatePart(circuit.Indicator)
	c.ConnectWire(a.Socket(circuit.Output), d.Socket(circuit.Input))
	c.DeletePart(b)

	doc := Snapshot(c)
	if len(doc.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(doc.Parts))
	}
	if doc.Wires[0].B.Part != 1 {
		t.Errorf("wire should point at the compacted index 1, got %d", doc.Wires[0].B.Part)
	}
	if _, err := Build(doc); err != nil {
		t.Errorf("snapshot after deletion should rebuild: %v", err)
	}
}

func TestBuild_InvalidTopology(t *testing.T) {
	base := func() *Document {
		return &Document{
			Version: 1,
			Parts: []PartSpec{
				{Category: "source"},
				{Category: "controlled-switch"},
			},
			Wires: []WireSpec{
				{A: Endpoint{Part: 0, Socket: "output"}, B: Endpoint{Part: 1, Socket: "control"}},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(d *Document)
		field  string
	}{
		{"unknown category", func(d *Document) { d.Parts[1].Category = "relay" }, "parts.category"},
		{"unknown role", func(d *Document) { d.Wires[0].B.Socket = "gate" }, "wires.b.socket"},
		{"role missing on category", func(d *Document) { d.Wires[0].A.Socket = "input" }, "wires.a.socket"},
		{"part index too large", func(d *Document) { d.Wires[0].B.Part = 5 }, "wires.b.part"},
		{"negative part index", func(d *Document) { d.Wires[0].A.Part = -1 }, "wires.a.part"},
		{"energized on stateless", func(d *Document) { d.Parts[0].Energized = boolPtr(true) }, "parts.energized"},
		{"future version", func(d *Document) { d.Version = 2 }, "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := base()
			tt.mutate(doc)

			c, err := Build(doc)
			if c != nil {
				t.Error("no circuit may be returned for invalid input")
			}
			if !errors.Is(err, ErrInvalidTopology) {
				t.Fatalf("expected ErrInvalidTopology, got %v", err)
			}
			var te *TopologyError
			if !errors.As(err, &te) {
				t.Fatalf("expected *TopologyError, got %T", err)
			}
			if te.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, te.Field)
			}
			if Validate(doc) == nil {
				t.Error("Validate should agree with Build")
			}
		})
	}

	if _, err := Build(nil); !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("nil document: expected ErrInvalidTopology, got %v", err)
	}
	if err := Validate(base()); err != nil {
		t.Errorf("base document should be valid: %v", err)
	}
}

func TestBuild_VersionZeroAccepted(t *testing.T) {
	doc := &Document{Parts: []PartSpec{{Category: "joint"}}}
	if _, err := Build(doc); err != nil {
		t.Errorf("a document without a version should be accepted: %v", err)
	}
}

func TestBuild_WithOptions(t *testing.T) {
	doc := &Document{Parts: []PartSpec{{Category: "timed-button"}}}
	c, err := Build(doc, circuit.WithButtonHold(42))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.ButtonHold() != 42 {
		t.Errorf("expected option to apply, got %v", c.ButtonHold())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"unknown yaml field", "version: 1\nparts:\n  - category: source\n    colour: red\n", FormatYAML},
		{"unknown json field", `{"version":1,"extra":true}`, FormatJSON},
		{"broken json", `{"version":`, FormatJSON},
		{"yaml type mismatch", "parts: 3\n", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), tt.format); !errors.Is(err, ErrInvalidTopology) {
				t.Errorf("expected ErrInvalidTopology, got %v", err)
			}
		})
	}

	if _, err := Parse([]byte("{}"), Format("toml")); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	doc, err := Parse([]byte(switchedLamp), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	for _, name := range []string{"lamp.yaml", "lamp.json"} {
		path := filepath.Join(dir, name)
		if err := SaveFile(path, doc); err != nil {
			t.Fatalf("SaveFile(%s): %v", name, err)
		}
		loaded, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", name, err)
		}
		if len(loaded.Parts) != 4 || len(loaded.Wires) != 3 {
			t.Errorf("%s: unexpected sizes %d/%d", name, len(loaded.Parts), len(loaded.Wires))
		}
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatForPath(t *testing.T) {
	if FormatForPath("a.JSON") != FormatJSON {
		t.Error("expected JSON for .JSON")
	}
	if FormatForPath("a.yml") != FormatYAML || FormatForPath("a") != FormatYAML {
		t.Error("expected YAML by default")
	}
}
