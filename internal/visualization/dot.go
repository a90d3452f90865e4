// Package visualization renders circuits in various output formats.
package visualization

import (
	"fmt"
	"strings"

	"github.com/nvandessel/wirelogic/internal/circuit"
)

// Format specifies the output format for circuit rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use 'dot', 'json' or 'html')", s)
	}
}

// categoryShapes maps part categories to DOT node shapes.
var categoryShapes = map[circuit.Category]string{
	circuit.Source:           "doublecircle",
	circuit.ToggleSwitch:     "box",
	circuit.TimedButton:      "box",
	circuit.ControlledSwitch: "box3d",
	circuit.Inverter:         "invtriangle",
	circuit.Indicator:        "circle",
	circuit.Joint:            "point",
}

func nodeName(p *circuit.Part) string {
	return fmt.Sprintf("p%d", p.ID)
}

func wirePowered(w *circuit.Wire) bool {
	a, b := w.Ends()
	return a.Powered() || b.Powered()
}

// RenderDOT produces an undirected Graphviz representation of c. Part
// positions are pinned so neato and fdp keep the circuit's layout.
func RenderDOT(c *circuit.Circuit) string {
	var b strings.Builder
	b.WriteString("graph circuit {\n")
	b.WriteString("  node [style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=9];\n\n")

	for _, p := range c.Parts() {
		fill := "lightgray"
		if p.Powered() {
			fill = "gold"
		}
		style := "filled"
		if p.Energized() {
			style = "filled,bold"
		}
		label := fmt.Sprintf("%s\\n#%d", p.Category, p.ID)
		if p.Category == circuit.Joint {
			label = ""
		}
		fmt.Fprintf(&b, "  %q [label=\"%s\", shape=%s, fillcolor=%q, style=%q, pos=\"%g,%g!\"];\n",
			nodeName(p), label, categoryShapes[p.Category], fill, style, p.Position.X, -p.Position.Y)
	}
	b.WriteString("\n")

	for _, w := range c.Wires() {
		a, z := w.Ends()
		color := "black"
		if wirePowered(w) {
			color = "red"
		}
		fmt.Fprintf(&b, "  %q -- %q [taillabel=%q, headlabel=%q, color=%q];\n",
			nodeName(a.Part()), nodeName(z.Part()), a.Role().String(), z.Role().String(), color)
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON-ready map with parts, wires and counts.
func RenderJSON(c *circuit.Circuit) map[string]interface{} {
	poweredSockets := 0
	jsonParts := make([]map[string]interface{}, 0, len(c.Parts()))
	for _, p := range c.Parts() {
		sockets := make(map[string]bool, len(p.Sockets()))
		for _, s := range p.Sockets() {
			sockets[s.Role().String()] = s.Powered()
			if s.Powered() {
				poweredSockets++
			}
		}
		entry := map[string]interface{}{
			"id":       int(p.ID),
			"category": p.Category.String(),
			"x":        p.Position.X,
			"y":        p.Position.Y,
			"rotation": p.Rotation,
			"powered":  p.Powered(),
			"sockets":  sockets,
		}
		if p.Category.Stateful() {
			entry["energized"] = p.Energized()
		}
		jsonParts = append(jsonParts, entry)
	}

	jsonWires := make([]map[string]interface{}, 0, len(c.Wires()))
	for _, w := range c.Wires() {
		a, b := w.Ends()
		jsonWires = append(jsonWires, map[string]interface{}{
			"id":      int(w.ID),
			"a":       endpointJSON(a),
			"b":       endpointJSON(b),
			"powered": wirePowered(w),
		})
	}

	return map[string]interface{}{
		"parts":           jsonParts,
		"wires":           jsonWires,
		"part_count":      len(jsonParts),
		"wire_count":      len(jsonWires),
		"powered_sockets": poweredSockets,
	}
}

func endpointJSON(s *circuit.Socket) map[string]interface{} {
	return map[string]interface{}{
		"part":   int(s.Part().ID),
		"socket": s.Role().String(),
	}
}
