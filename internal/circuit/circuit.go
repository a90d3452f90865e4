package circuit

import (
	"fmt"
	"time"
)

// DefaultButtonHold is how long a timed button stays energized after an
// interaction unless the circuit is configured otherwise.
const DefaultButtonHold = time.Second

// Circuit owns the part and wire lists and is the only place graph elements
// are created or destroyed. It is not safe for concurrent use: callers make
// structural edits between simulation steps, never during one.
type Circuit struct {
	parts      []*Part
	wires      []*Wire
	byID       map[PartID]*Part
	nextPart   PartID
	nextWire   WireID
	buttonHold time.Duration
}

// Option configures a Circuit.
type Option func(*Circuit)

// WithButtonHold sets how long a timed button stays energized.
func WithButtonHold(d time.Duration) Option {
	return func(c *Circuit) {
		if d > 0 {
			c.buttonHold = d
		}
	}
}

// New creates an empty circuit.
func New(opts ...Option) *Circuit {
	c := &Circuit{
		byID:       make(map[PartID]*Part),
		buttonHold: DefaultButtonHold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ButtonHold returns the configured timed button duration.
func (c *Circuit) ButtonHold() time.Duration { return c.buttonHold }

// SetButtonHold changes the timed button duration for future interactions.
func (c *Circuit) SetButtonHold(d time.Duration) {
	if d > 0 {
		c.buttonHold = d
	}
}

// Parts returns the parts in creation order. The slice must not be modified.
func (c *Circuit) Parts() []*Part { return c.parts }

// Wires returns the wires in creation order. The slice must not be modified.
func (c *Circuit) Wires() []*Wire { return c.wires }

// Part returns the part with the given ID, or nil.
func (c *Circuit) Part(id PartID) *Part { return c.byID[id] }

// Contains reports whether p is a live part of this circuit.
func (c *Circuit) Contains(p *Part) bool {
	return p != nil && c.byID[p.ID] == p
}

// Sources returns every part of category Source.
func (c *Circuit) Sources() []*Part {
	var out []*Part
	for _, p := range c.parts {
		if p.Category == Source {
			out = append(out, p)
		}
	}
	return out
}

// CreatePart adds a new part of the given category.
func (c *Circuit) CreatePart(cat Category) (*Part, error) {
	if !cat.Valid() {
		return nil, fmt.Errorf("create part: %w: %d", ErrInvalidCategory, cat)
	}
	p := newPart(c.nextPart, cat)
	c.nextPart++
	c.parts = append(c.parts, p)
	c.byID[p.ID] = p
	return p, nil
}

// SetEnergized forces a stateful part's on/off state. It is used when a
// circuit is rebuilt from its persisted form.
func (c *Circuit) SetEnergized(p *Part, on bool) error {
	if !c.Contains(p) {
		return ErrPartNotFound
	}
	if !p.Category.Stateful() {
		return fmt.Errorf("part %d: category %s has no energized state", p.ID, p.Category)
	}
	p.energized = on
	return nil
}

// ConnectWire joins two sockets with a new wire and registers it on both.
// a and b may be the same socket.
func (c *Circuit) ConnectWire(a, b *Socket) (*Wire, error) {
	if a == nil || b == nil || !c.Contains(a.part) || !c.Contains(b.part) {
		return nil, ErrForeignSocket
	}
	w := &Wire{ID: c.nextWire, a: a, b: b}
	c.nextWire++
	a.Connect(w)
	b.Connect(w)
	c.wires = append(c.wires, w)
	return w, nil
}

// DisconnectWire removes w and then removes any joint left without wires.
func (c *Circuit) DisconnectWire(w *Wire) error {
	if !c.detachWire(w) {
		return ErrWireNotFound
	}
	c.collectJoints(w.a.part, w.b.part)
	return nil
}

// DeletePart removes p together with every wire touching it. Joints that
// lose their last wire as a result are removed too.
func (c *Circuit) DeletePart(p *Part) error {
	if !c.Contains(p) {
		return ErrPartNotFound
	}

	var touched []*Part
	for _, s := range p.sockets {
		// detachWire mutates s.wires, so drain from the front.
		for len(s.wires) > 0 {
			w := s.wires[0]
			c.detachWire(w)
			for _, end := range []*Socket{w.a, w.b} {
				if end.part != p {
					touched = append(touched, end.part)
				}
			}
		}
	}

	c.removePart(p)
	c.collectJoints(touched...)
	return nil
}

// Interact applies a manual interaction to p at now.
func (c *Circuit) Interact(p *Part, now time.Time) error {
	if !c.Contains(p) {
		return ErrPartNotFound
	}
	p.Interact(now, c.buttonHold)
	return nil
}

// detachWire unregisters w from both endpoints and drops it from the wire
// list. It reports whether w belonged to the circuit.
func (c *Circuit) detachWire(w *Wire) bool {
	if w == nil {
		return false
	}
	idx := -1
	for i, existing := range c.wires {
		if existing == w {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	w.a.Disconnect(w)
	w.b.Disconnect(w)
	c.wires = append(c.wires[:idx], c.wires[idx+1:]...)
	return true
}

// collectJoints removes every listed joint that has no wires left.
func (c *Circuit) collectJoints(parts ...*Part) {
	for _, p := range parts {
		if p.Category == Joint && c.Contains(p) && p.WireCount() == 0 {
			c.removePart(p)
		}
	}
}

func (c *Circuit) removePart(p *Part) {
	for i, existing := range c.parts {
		if existing == p {
			c.parts = append(c.parts[:i], c.parts[i+1:]...)
			break
		}
	}
	delete(c.byID, p.ID)
	p.removed = true
	for _, s := range p.sockets {
		s.powered = false
	}
}
