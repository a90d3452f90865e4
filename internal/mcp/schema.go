package mcp

import (
	"github.com/nvandessel/wirelogic/internal/backup"
	"github.com/nvandessel/wirelogic/internal/simulation"
	"github.com/nvandessel/wirelogic/internal/store"
	"github.com/nvandessel/wirelogic/internal/topology"
)

// SimulateInput defines the input for the circuit_simulate tool.
// Every tool that reads a circuit takes either an inline document or the
// name of a stored circuit. The document wins when both are set.
type SimulateInput struct {
	Document     *topology.Document       `json:"document,omitempty" jsonschema:"Inline circuit topology (version, parts, wires)"`
	Name         string                   `json:"name,omitempty" jsonschema:"Name of a stored circuit, used when document is omitted"`
	Steps        int                      `json:"steps,omitempty" jsonschema:"Number of simulation steps to run (default 1)"`
	StepMillis   int                      `json:"step_millis,omitempty" jsonschema:"Simulated milliseconds between steps (default from config)"`
	Interactions []simulation.Interaction `json:"interactions,omitempty" jsonschema:"Part interactions, each applied just before the given step"`
	Reports      bool                     `json:"reports,omitempty" jsonschema:"Include a per-step report for every step"`
}

// SimulateOutput defines the output for the circuit_simulate tool.
type SimulateOutput struct {
	Steps   int                     `json:"steps" jsonschema:"Number of steps run"`
	Parts   []simulation.PartState  `json:"parts" jsonschema:"State of every part after the last step"`
	Reports []simulation.StepReport `json:"reports,omitempty" jsonschema:"Per-step reports when requested"`
	Lit     []int                   `json:"lit" jsonschema:"IDs of indicators that are powered after the last step"`
}

// GraphInput defines the input for the circuit_graph tool.
type GraphInput struct {
	Document *topology.Document `json:"document,omitempty" jsonschema:"Inline circuit topology (version, parts, wires)"`
	Name     string             `json:"name,omitempty" jsonschema:"Name of a stored circuit, used when document is omitted"`
	Format   string             `json:"format,omitempty" jsonschema:"Output format: dot, json (default) or html"`
	Steps    *int               `json:"steps,omitempty" jsonschema:"Steps to simulate before rendering (default 1, 0 renders unpowered)"`
}

// GraphOutput defines the output for the circuit_graph tool.
type GraphOutput struct {
	Format    string      `json:"format" jsonschema:"Format of the rendered graph"`
	Graph     interface{} `json:"graph" jsonschema:"Rendered graph (string for dot and html, object for json)"`
	PartCount int         `json:"part_count" jsonschema:"Number of parts"`
	WireCount int         `json:"wire_count" jsonschema:"Number of wires"`
}

// ValidateInput defines the input for the circuit_validate tool.
type ValidateInput struct {
	Document *topology.Document `json:"document" jsonschema:"Circuit topology to validate"`
}

// ValidateOutput defines the output for the circuit_validate tool.
type ValidateOutput struct {
	Valid   bool   `json:"valid" jsonschema:"Whether the document can be built"`
	Field   string `json:"field,omitempty" jsonschema:"Offending field when invalid"`
	Index   int    `json:"index,omitempty" jsonschema:"Offending part or wire index when invalid"`
	Reason  string `json:"reason,omitempty" jsonschema:"Why the document is invalid"`
	Message string `json:"message" jsonschema:"Human-readable result message"`
}

// DragWeightsInput defines the input for the circuit_drag_weights tool.
type DragWeightsInput struct {
	Document *topology.Document `json:"document,omitempty" jsonschema:"Inline circuit topology (version, parts, wires)"`
	Name     string             `json:"name,omitempty" jsonschema:"Name of a stored circuit, used when document is omitted"`
	Parts    []int              `json:"parts" jsonschema:"Indices of the parts being dragged"`
	Policy   string             `json:"policy,omitempty" jsonschema:"Weighting policy: distance or binary (default from config)"`
}

// JointWeight is one joint's drag-follow factor.
type JointWeight struct {
	Joint          int     `json:"joint"`
	Weight         float64 `json:"weight"`
	SourceDistance int     `json:"source_distance"`
	AnchorDistance int     `json:"anchor_distance"`
}

// DragWeightsOutput defines the output for the circuit_drag_weights tool.
type DragWeightsOutput struct {
	Policy  string        `json:"policy" jsonschema:"Policy used"`
	Weights []JointWeight `json:"weights" jsonschema:"Weight for every joint reachable from the dragged parts"`
}

// EnclosedInput defines the input for the circuit_enclosed_joints tool.
type EnclosedInput struct {
	Document *topology.Document `json:"document,omitempty" jsonschema:"Inline circuit topology (version, parts, wires)"`
	Name     string             `json:"name,omitempty" jsonschema:"Name of a stored circuit, used when document is omitted"`
	Selected []int              `json:"selected" jsonschema:"Indices of the selected parts"`
}

// EnclosedOutput defines the output for the circuit_enclosed_joints tool.
type EnclosedOutput struct {
	Joints []int `json:"joints" jsonschema:"Indices of unselected joints enclosed by the selection"`
	Count  int   `json:"count" jsonschema:"Number of enclosed joints"`
}

// SaveInput defines the input for the circuit_save tool.
type SaveInput struct {
	Name     string             `json:"name" jsonschema:"Name to store the circuit under"`
	Document *topology.Document `json:"document" jsonschema:"Circuit topology to store"`
}

// SaveOutput defines the output for the circuit_save tool.
type SaveOutput struct {
	Record  store.Record `json:"record" jsonschema:"Stored record"`
	Message string       `json:"message" jsonschema:"Human-readable result message"`
}

// ListInput defines the input for the circuit_list tool.
type ListInput struct{}

// ListOutput defines the output for the circuit_list tool.
type ListOutput struct {
	Circuits []store.Record `json:"circuits" jsonschema:"Stored circuits without their documents"`
	Count    int            `json:"count" jsonschema:"Number of stored circuits"`
}

// LoadInput defines the input for the circuit_load tool.
type LoadInput struct {
	Name string `json:"name" jsonschema:"Name of the stored circuit"`
}

// LoadOutput defines the output for the circuit_load tool.
type LoadOutput struct {
	Record store.Record `json:"record" jsonschema:"Stored record including its document"`
}

// DeleteInput defines the input for the circuit_delete tool.
type DeleteInput struct {
	Name string `json:"name" jsonschema:"Name of the stored circuit to delete"`
}

// DeleteOutput defines the output for the circuit_delete tool.
type DeleteOutput struct {
	Deleted bool   `json:"deleted" jsonschema:"Whether the circuit was deleted"`
	Message string `json:"message" jsonschema:"Human-readable result message"`
}

// BackupInput defines the input for the circuit_backup tool.
type BackupInput struct {
	OutputPath string `json:"output_path,omitempty" jsonschema:"Archive path inside the backup directory (default: auto-generated)"`
}

// BackupOutput defines the output for the circuit_backup tool.
type BackupOutput struct {
	Path         string `json:"path" jsonschema:"Archive written"`
	CircuitCount int    `json:"circuit_count" jsonschema:"Number of circuits archived"`
	SizeBytes    int64  `json:"size_bytes" jsonschema:"Archive size in bytes"`
	Pruned       int    `json:"pruned" jsonschema:"Old archives removed by the retention policy"`
	Message      string `json:"message" jsonschema:"Human-readable result message"`
}

// RestoreInput defines the input for the circuit_restore tool.
type RestoreInput struct {
	InputPath string `json:"input_path" jsonschema:"Archive to restore, inside the backup directory"`
	Mode      string `json:"mode,omitempty" jsonschema:"merge (default) keeps existing circuits, replace deletes them first"`
}

// RestoreOutput defines the output for the circuit_restore tool.
type RestoreOutput struct {
	Mode    backup.RestoreMode   `json:"mode" jsonschema:"Restore mode used"`
	Result  backup.RestoreResult `json:"result" jsonschema:"Restored, skipped and removed circuit counts"`
	Message string               `json:"message" jsonschema:"Human-readable result message"`
}
