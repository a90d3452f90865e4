// Package topology converts between live circuits and their persisted form.
//
// A Document records, per part, its category, position, rotation and
// energized flag, and per wire the two (part index, socket role) endpoints.
// Build is the reconstruction boundary: it validates a Document completely
// before creating anything, so malformed input never produces a partial
// circuit.
package topology

import (
	"github.com/nvandessel/wirelogic/internal/circuit"
)

// CurrentVersion is the document format version written by Snapshot.
const CurrentVersion = 1

// Document is the persisted representation of a circuit.
type Document struct {
	Version int        `json:"version" yaml:"version"`
	Parts   []PartSpec `json:"parts" yaml:"parts"`
	Wires   []WireSpec `json:"wires" yaml:"wires"`
}

// PartSpec describes one part. Energized is omitted for stateless parts.
type PartSpec struct {
	Category  string  `json:"category" yaml:"category"`
	X         float64 `json:"x" yaml:"x"`
	Y         float64 `json:"y" yaml:"y"`
	Rotation  float64 `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Energized *bool   `json:"energized,omitempty" yaml:"energized,omitempty"`
}

// Endpoint names a socket by part index and role name.
type Endpoint struct {
	Part   int    `json:"part" yaml:"part"`
	Socket string `json:"socket" yaml:"socket"`
}

// WireSpec describes one wire.
type WireSpec struct {
	A Endpoint `json:"a" yaml:"a"`
	B Endpoint `json:"b" yaml:"b"`
}

// Snapshot captures c as a Document. Parts are indexed in creation order.
func Snapshot(c *circuit.Circuit) *Document {
	doc := &Document{
		Version: CurrentVersion,
		Parts:   make([]PartSpec, 0, len(c.Parts())),
		Wires:   make([]WireSpec, 0, len(c.Wires())),
	}

	index := make(map[*circuit.Part]int, len(c.Parts()))
	for i, p := range c.Parts() {
		index[p] = i
		spec := PartSpec{
			Category: p.Category.String(),
			X:        p.Position.X,
			Y:        p.Position.Y,
			Rotation: p.Rotation,
		}
		if p.Category.Stateful() {
			on := p.Energized()
			spec.Energized = &on
		}
		doc.Parts = append(doc.Parts, spec)
	}

	for _, w := range c.Wires() {
		a, b := w.Ends()
		doc.Wires = append(doc.Wires, WireSpec{
			A: Endpoint{Part: index[a.Part()], Socket: a.Role().String()},
			B: Endpoint{Part: index[b.Part()], Socket: b.Role().String()},
		})
	}
	return doc
}

// Build validates doc and reconstructs it as a new circuit.
func Build(doc *Document, opts ...circuit.Option) (*circuit.Circuit, error) {
	plan, err := validate(doc)
	if err != nil {
		return nil, err
	}

	c := circuit.New(opts...)
	parts := make([]*circuit.Part, len(plan.categories))
	for i, cat := range plan.categories {
		p, err := c.CreatePart(cat)
		if err != nil {
			return nil, err
		}
		spec := doc.Parts[i]
		p.Position = circuit.Point{X: spec.X, Y: spec.Y}
		p.Rotation = spec.Rotation
		if spec.Energized != nil {
			if err := c.SetEnergized(p, *spec.Energized); err != nil {
				return nil, err
			}
		}
		parts[i] = p
	}

	for _, w := range plan.wires {
		a := parts[w.a.part].Socket(w.a.role)
		b := parts[w.b.part].Socket(w.b.role)
		if _, err := c.ConnectWire(a, b); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Validate reports whether doc can be built, without building it.
func Validate(doc *Document) error {
	_, err := validate(doc)
	return err
}

type resolvedEnd struct {
	part int
	role circuit.Role
}

type resolvedWire struct {
	a, b resolvedEnd
}

type buildPlan struct {
	categories []circuit.Category
	wires      []resolvedWire
}

func validate(doc *Document) (*buildPlan, error) {
	if doc == nil {
		return nil, &TopologyError{Field: "document", Index: -1, Reason: "document is empty"}
	}
	if doc.Version < 0 || doc.Version > CurrentVersion {
		return nil, &TopologyError{Field: "version", Index: -1, Value: itoa(doc.Version), Reason: "unsupported document version"}
	}

	plan := &buildPlan{
		categories: make([]circuit.Category, len(doc.Parts)),
		wires:      make([]resolvedWire, len(doc.Wires)),
	}

	for i, spec := range doc.Parts {
		cat, err := circuit.ParseCategory(spec.Category)
		if err != nil {
			return nil, &TopologyError{Field: "parts.category", Index: i, Value: spec.Category, Reason: "unknown part category"}
		}
		if spec.Energized != nil && !cat.Stateful() {
			return nil, &TopologyError{Field: "parts.energized", Index: i, Value: spec.Category, Reason: "category has no energized state"}
		}
		plan.categories[i] = cat
	}

	for i, spec := range doc.Wires {
		a, err := resolve(plan.categories, spec.A, "wires.a", i)
		if err != nil {
			return nil, err
		}
		b, err := resolve(plan.categories, spec.B, "wires.b", i)
		if err != nil {
			return nil, err
		}
		plan.wires[i] = resolvedWire{a: a, b: b}
	}
	return plan, nil
}

func resolve(categories []circuit.Category, ep Endpoint, field string, index int) (resolvedEnd, error) {
	if ep.Part < 0 || ep.Part >= len(categories) {
		return resolvedEnd{}, &TopologyError{Field: field + ".part", Index: index, Value: itoa(ep.Part), Reason: "part index out of range"}
	}
	role, err := circuit.ParseRole(ep.Socket)
	if err != nil {
		return resolvedEnd{}, &TopologyError{Field: field + ".socket", Index: index, Value: ep.Socket, Reason: "unknown socket role"}
	}
	if !categories[ep.Part].HasRole(role) {
		return resolvedEnd{}, &TopologyError{Field: field + ".socket", Index: index, Value: ep.Socket, Reason: "no such socket on " + categories[ep.Part].String()}
	}
	return resolvedEnd{part: ep.Part, role: role}, nil
}
