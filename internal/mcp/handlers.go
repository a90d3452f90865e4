package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/wirelogic/internal/circuit"
	"github.com/nvandessel/wirelogic/internal/connectivity"
	"github.com/nvandessel/wirelogic/internal/ratelimit"
	"github.com/nvandessel/wirelogic/internal/sanitize"
	"github.com/nvandessel/wirelogic/internal/simulation"
	"github.com/nvandessel/wirelogic/internal/store"
	"github.com/nvandessel/wirelogic/internal/topology"
	"github.com/nvandessel/wirelogic/internal/visualization"
)

// registerTools registers all wirelogic MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_simulate",
		Description: "Run a circuit for a number of steps, optionally interacting with switches and buttons, and report part states",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_graph",
		Description: "Render a circuit as Graphviz DOT, JSON or a standalone HTML page",
	}, s.handleGraph)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_validate",
		Description: "Check that a circuit document can be rebuilt, reporting the first offending field",
	}, s.handleValidate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_drag_weights",
		Description: "Compute how strongly each wire joint follows when the given parts are dragged",
	}, s.handleDragWeights)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_enclosed_joints",
		Description: "List the unselected joints that should move with a selection of parts",
	}, s.handleEnclosedJoints)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_save",
		Description: "Store a circuit document under a name, replacing any existing circuit with that name",
	}, s.handleSave)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_load",
		Description: "Load a stored circuit document by name",
	}, s.handleLoad)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_list",
		Description: "List stored circuits",
	}, s.handleList)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_delete",
		Description: "Delete a stored circuit by name",
	}, s.handleDelete)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_backup",
		Description: "Archive every stored circuit to a checksummed backup file, pruning old archives",
	}, s.handleBackup)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "circuit_restore",
		Description: "Restore stored circuits from a backup archive (merge or replace)",
	}, s.handleRestore)

	return nil
}

// resolveDocument returns doc, or the stored document called name when doc
// is nil.
func (s *Server) resolveDocument(ctx context.Context, doc *topology.Document, name string) (*topology.Document, error) {
	if doc != nil {
		return doc, nil
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("either 'document' or 'name' is required")
	}
	rec, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return rec.Document, nil
}

// buildCircuit resolves and builds the circuit a tool call refers to.
func (s *Server) buildCircuit(ctx context.Context, doc *topology.Document, name string) (*circuit.Circuit, error) {
	doc, err := s.resolveDocument(ctx, doc, name)
	if err != nil {
		return nil, err
	}
	return topology.Build(doc, circuit.WithButtonHold(s.settings.Simulation.ButtonDuration))
}

// simulate runs c for steps steps on a virtual clock, so results do not
// depend on wall time.
func (s *Server) simulate(ctx context.Context, c *circuit.Circuit, steps int, stepInterval time.Duration, schedule simulation.Schedule) (*simulation.Simulator, []simulation.StepReport, error) {
	vc := simulation.NewVirtualClock(time.Unix(0, 0).UTC())
	sim := simulation.New(c, simulation.Config{
		TickInterval:   s.settings.Simulation.TickInterval,
		ButtonDuration: s.settings.Simulation.ButtonDuration,
	}, simulation.WithNow(vc.Now), simulation.WithLogger(s.logger))

	reports, err := sim.RunSchedule(ctx, steps, schedule, func(simulation.StepReport) error {
		vc.Advance(stepInterval)
		return nil
	})
	return sim, reports, err
}

// partsByIndex maps document part indices to parts of a freshly built
// circuit, whose part IDs equal their indices.
func partsByIndex(c *circuit.Circuit, indices []int, field string) ([]*circuit.Part, error) {
	parts := make([]*circuit.Part, 0, len(indices))
	for _, i := range indices {
		p := c.Part(circuit.PartID(i))
		if p == nil {
			return nil, fmt.Errorf("%s: part index %d out of range", field, i)
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func documentParams(doc *topology.Document, name string) map[string]interface{} {
	params := map[string]interface{}{}
	if doc != nil {
		params["document"] = fmt.Sprintf("%d parts, %d wires", len(doc.Parts), len(doc.Wires))
	}
	if name != "" {
		params["name"] = name
	}
	return params
}

// handleSimulate implements the circuit_simulate tool.
func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	params := documentParams(args.Document, args.Name)
	params["steps"] = args.Steps
	if len(args.Interactions) > 0 {
		params["interactions"] = len(args.Interactions)
	}
	defer func() {
		s.auditTool("circuit_simulate", start, retErr, sanitizeToolParams(params))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	steps := args.Steps
	if steps == 0 {
		steps = 1
	}
	if steps < 0 || steps > maxSteps {
		return nil, SimulateOutput{}, fmt.Errorf("steps must be between 1 and %d, got %d", maxSteps, args.Steps)
	}
	if args.StepMillis < 0 {
		return nil, SimulateOutput{}, fmt.Errorf("step_millis must be non-negative, got %d", args.StepMillis)
	}
	stepInterval := s.settings.Simulation.StepInterval
	if args.StepMillis > 0 {
		stepInterval = time.Duration(args.StepMillis) * time.Millisecond
	}
	for i, in := range args.Interactions {
		if in.Step < 0 {
			return nil, SimulateOutput{}, fmt.Errorf("interactions[%d]: step must be non-negative", i)
		}
	}

	c, err := s.buildCircuit(ctx, args.Document, args.Name)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	sim, reports, err := s.simulate(ctx, c, steps, stepInterval, simulation.Schedule(args.Interactions))
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("simulation failed at step %d: %w", len(reports), err)
	}

	lit := []int{}
	for _, p := range c.Parts() {
		if p.Category == circuit.Indicator && p.Powered() {
			lit = append(lit, int(p.ID))
		}
	}

	out := SimulateOutput{
		Steps: sim.Steps(),
		Parts: sim.States(),
		Lit:   lit,
	}
	if args.Reports {
		out.Reports = reports
	}
	return nil, out, nil
}

// handleGraph implements the circuit_graph tool.
func (s *Server) handleGraph(ctx context.Context, req *sdk.CallToolRequest, args GraphInput) (_ *sdk.CallToolResult, _ GraphOutput, retErr error) {
	start := time.Now()
	params := documentParams(args.Document, args.Name)
	if args.Format != "" {
		params["format"] = args.Format
	}
	if args.Steps != nil {
		params["steps"] = *args.Steps
	}
	defer func() {
		s.auditTool("circuit_graph", start, retErr, sanitizeToolParams(params))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_graph"); err != nil {
		return nil, GraphOutput{}, err
	}

	formatName := args.Format
	if formatName == "" {
		formatName = string(visualization.FormatJSON)
	}
	format, err := visualization.ParseFormat(formatName)
	if err != nil {
		return nil, GraphOutput{}, err
	}

	steps := 1
	if args.Steps != nil {
		steps = *args.Steps
	}
	if steps < 0 || steps > maxSteps {
		return nil, GraphOutput{}, fmt.Errorf("steps must be between 0 and %d, got %d", maxSteps, steps)
	}

	c, err := s.buildCircuit(ctx, args.Document, args.Name)
	if err != nil {
		return nil, GraphOutput{}, err
	}
	if _, _, err := s.simulate(ctx, c, steps, s.settings.Simulation.StepInterval, nil); err != nil {
		return nil, GraphOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	out := GraphOutput{
		Format:    string(format),
		PartCount: len(c.Parts()),
		WireCount: len(c.Wires()),
	}
	switch format {
	case visualization.FormatDOT:
		out.Graph = visualization.RenderDOT(c)
	case visualization.FormatHTML:
		html, err := visualization.RenderHTML(c)
		if err != nil {
			return nil, GraphOutput{}, fmt.Errorf("rendering html: %w", err)
		}
		out.Graph = string(html)
	default:
		out.Graph = visualization.RenderJSON(c)
	}
	return nil, out, nil
}

// handleValidate implements the circuit_validate tool. An invalid document
// is a successful call with Valid=false.
func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, args ValidateInput) (_ *sdk.CallToolResult, _ ValidateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("circuit_validate", start, retErr, sanitizeToolParams(documentParams(args.Document, "")))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_validate"); err != nil {
		return nil, ValidateOutput{}, err
	}

	if args.Document == nil {
		return nil, ValidateOutput{}, fmt.Errorf("'document' is required")
	}

	err := topology.Validate(args.Document)
	if err == nil {
		return nil, ValidateOutput{
			Valid:   true,
			Message: fmt.Sprintf("Circuit is valid: %d parts, %d wires", len(args.Document.Parts), len(args.Document.Wires)),
		}, nil
	}

	var topoErr *topology.TopologyError
	if !errors.As(err, &topoErr) {
		return nil, ValidateOutput{}, err
	}
	return nil, ValidateOutput{
		Valid:   false,
		Field:   topoErr.Field,
		Index:   topoErr.Index,
		Reason:  topoErr.Reason,
		Message: err.Error(),
	}, nil
}

// handleDragWeights implements the circuit_drag_weights tool.
func (s *Server) handleDragWeights(ctx context.Context, req *sdk.CallToolRequest, args DragWeightsInput) (_ *sdk.CallToolResult, _ DragWeightsOutput, retErr error) {
	start := time.Now()
	params := documentParams(args.Document, args.Name)
	params["parts"] = len(args.Parts)
	if args.Policy != "" {
		params["policy"] = args.Policy
	}
	defer func() {
		s.auditTool("circuit_drag_weights", start, retErr, sanitizeToolParams(params))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_drag_weights"); err != nil {
		return nil, DragWeightsOutput{}, err
	}

	if len(args.Parts) == 0 {
		return nil, DragWeightsOutput{}, fmt.Errorf("'parts' must name at least one dragged part")
	}

	policyName := args.Policy
	if policyName == "" {
		policyName = s.settings.Drag.Policy
	}
	policy, err := connectivity.ParsePolicy(policyName)
	if err != nil {
		return nil, DragWeightsOutput{}, err
	}

	c, err := s.buildCircuit(ctx, args.Document, args.Name)
	if err != nil {
		return nil, DragWeightsOutput{}, err
	}
	dragged, err := partsByIndex(c, args.Parts, "parts")
	if err != nil {
		return nil, DragWeightsOutput{}, err
	}

	weights := connectivity.NewAnalyzer(policy).WeightsForDrag(dragged)
	out := DragWeightsOutput{
		Policy:  policy.String(),
		Weights: make([]JointWeight, 0, len(weights)),
	}
	for _, w := range weights {
		out.Weights = append(out.Weights, JointWeight{
			Joint:          int(w.Joint.ID),
			Weight:         w.Weight,
			SourceDistance: w.SourceDistance,
			AnchorDistance: w.AnchorDistance,
		})
	}
	return nil, out, nil
}

// handleEnclosedJoints implements the circuit_enclosed_joints tool.
func (s *Server) handleEnclosedJoints(ctx context.Context, req *sdk.CallToolRequest, args EnclosedInput) (_ *sdk.CallToolResult, _ EnclosedOutput, retErr error) {
	start := time.Now()
	params := documentParams(args.Document, args.Name)
	params["selected"] = len(args.Selected)
	defer func() {
		s.auditTool("circuit_enclosed_joints", start, retErr, sanitizeToolParams(params))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_enclosed_joints"); err != nil {
		return nil, EnclosedOutput{}, err
	}

	c, err := s.buildCircuit(ctx, args.Document, args.Name)
	if err != nil {
		return nil, EnclosedOutput{}, err
	}
	selected, err := partsByIndex(c, args.Selected, "selected")
	if err != nil {
		return nil, EnclosedOutput{}, err
	}

	joints := connectivity.EnclosedJoints(c.Parts(), selected)
	out := EnclosedOutput{Joints: make([]int, 0, len(joints)), Count: len(joints)}
	for _, j := range joints {
		out.Joints = append(out.Joints, int(j.ID))
	}
	return nil, out, nil
}

// handleSave implements the circuit_save tool.
func (s *Server) handleSave(ctx context.Context, req *sdk.CallToolRequest, args SaveInput) (_ *sdk.CallToolResult, _ SaveOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("circuit_save", start, retErr, sanitizeToolParams(documentParams(args.Document, args.Name)))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_save"); err != nil {
		return nil, SaveOutput{}, err
	}

	if args.Document == nil {
		return nil, SaveOutput{}, fmt.Errorf("'document' is required")
	}
	name := sanitize.CircuitName(args.Name)
	if name == "" {
		return nil, SaveOutput{}, fmt.Errorf("'name' is required (letters, digits, '-', '_' or '.')")
	}

	rec, err := s.store.Save(ctx, name, args.Document)
	if err != nil {
		return nil, SaveOutput{}, fmt.Errorf("failed to save circuit: %w", err)
	}
	s.logger.Debug("circuit saved", "name", rec.Name, "id", rec.ID, "parts", rec.Parts, "wires", rec.Wires)

	rec.Document = nil
	return nil, SaveOutput{
		Record:  rec,
		Message: fmt.Sprintf("Saved circuit %q (%d parts, %d wires)", rec.Name, rec.Parts, rec.Wires),
	}, nil
}

// handleLoad implements the circuit_load tool.
func (s *Server) handleLoad(ctx context.Context, req *sdk.CallToolRequest, args LoadInput) (_ *sdk.CallToolResult, _ LoadOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("circuit_load", start, retErr, sanitizeToolParams(documentParams(nil, args.Name)))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_load"); err != nil {
		return nil, LoadOutput{}, err
	}

	rec, err := s.store.Load(ctx, args.Name)
	if err != nil {
		return nil, LoadOutput{}, err
	}
	return nil, LoadOutput{Record: rec}, nil
}

// handleList implements the circuit_list tool.
func (s *Server) handleList(ctx context.Context, req *sdk.CallToolRequest, args ListInput) (_ *sdk.CallToolResult, _ ListOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("circuit_list", start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_list"); err != nil {
		return nil, ListOutput{}, err
	}

	records, err := s.store.List(ctx)
	if err != nil {
		return nil, ListOutput{}, fmt.Errorf("failed to list circuits: %w", err)
	}
	if records == nil {
		records = []store.Record{}
	}
	return nil, ListOutput{Circuits: records, Count: len(records)}, nil
}

// handleDelete implements the circuit_delete tool.
func (s *Server) handleDelete(ctx context.Context, req *sdk.CallToolRequest, args DeleteInput) (_ *sdk.CallToolResult, _ DeleteOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("circuit_delete", start, retErr, sanitizeToolParams(documentParams(nil, args.Name)))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "circuit_delete"); err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := s.store.Delete(ctx, args.Name); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{
		Deleted: true,
		Message: fmt.Sprintf("Deleted circuit %q", args.Name),
	}, nil
}
